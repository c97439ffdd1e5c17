package repository

import (
	"context"
	"time"

	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/pkg/retry"
	"github.com/lootbox-lab/backend/pkg/xcontext"
)

type PurchaseStatistic struct {
	TotalPurchases int64
	TotalBoxes     int64
	TotalSpent     int64
	NetCoinChange  int64
	UniqueBuyers   int64
	CoinWins       int64
	RoleWins       int64
	Losses         int64
	CoinsWon       int64
	CoinsLost      int64
}

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *entity.Purchase) error
	CountBoxesSince(ctx context.Context, communityID, userID string, since time.Time) (int64, error)
	GetHistory(ctx context.Context, communityID, userID string, offset, limit int) ([]entity.Purchase, error)
	Statistic(ctx context.Context, communityID string) (*PurchaseStatistic, error)
	DeleteAll(ctx context.Context, communityID string) error
}

type purchaseRepository struct{}

func NewPurchaseRepository() *purchaseRepository {
	return &purchaseRepository{}
}

func (r *purchaseRepository) Create(ctx context.Context, purchase *entity.Purchase) error {
	return retry.Run(ctx, func(ctx context.Context) error {
		return xcontext.DB(ctx).Create(purchase).Error
	}, retryOptions(ctx, "create purchase"))
}

// CountBoxesSince sums the boxes a user bought inside the rolling window.
// Purchases landing exactly on the window edge still count.
func (r *purchaseRepository) CountBoxesSince(
	ctx context.Context, communityID, userID string, since time.Time,
) (int64, error) {
	return retry.Do(ctx, func(ctx context.Context) (int64, error) {
		var total int64
		err := xcontext.DB(ctx).Model(&entity.Purchase{}).
			Select("COALESCE(SUM(box_count), 0)").
			Where("community_id=? AND user_id=? AND created_at >= ?", communityID, userID, since).
			Scan(&total).Error
		if err != nil {
			return 0, err
		}

		return total, nil
	}, retryOptions(ctx, "count boxes in window"))
}

func (r *purchaseRepository) GetHistory(
	ctx context.Context, communityID, userID string, offset, limit int,
) ([]entity.Purchase, error) {
	return retry.Do(ctx, func(ctx context.Context) ([]entity.Purchase, error) {
		var result []entity.Purchase
		err := xcontext.DB(ctx).
			Where("community_id=? AND user_id=?", communityID, userID).
			Order("created_at DESC").
			Offset(offset).Limit(limit).
			Find(&result).Error
		if err != nil {
			return nil, err
		}

		return result, nil
	}, retryOptions(ctx, "get purchase history"))
}

func (r *purchaseRepository) Statistic(
	ctx context.Context, communityID string,
) (*PurchaseStatistic, error) {
	return retry.Do(ctx, func(ctx context.Context) (*PurchaseStatistic, error) {
		var result PurchaseStatistic
		err := xcontext.DB(ctx).Model(&entity.Purchase{}).
			Select(`
				COUNT(*) AS total_purchases,
				COALESCE(SUM(box_count), 0) AS total_boxes,
				COALESCE(SUM(total_cost), 0) AS total_spent,
				COALESCE(SUM(net_coin_change), 0) AS net_coin_change,
				COUNT(DISTINCT user_id) AS unique_buyers,
				COALESCE(SUM(coin_wins), 0) AS coin_wins,
				COALESCE(SUM(role_wins), 0) AS role_wins,
				COALESCE(SUM(losses), 0) AS losses,
				COALESCE(SUM(coins_won), 0) AS coins_won,
				COALESCE(SUM(coins_lost), 0) AS coins_lost`).
			Where("community_id=?", communityID).
			Scan(&result).Error
		if err != nil {
			return nil, err
		}

		return &result, nil
	}, retryOptions(ctx, "get purchase statistic"))
}

func (r *purchaseRepository) DeleteAll(ctx context.Context, communityID string) error {
	return retry.Run(ctx, func(ctx context.Context) error {
		return xcontext.DB(ctx).Unscoped().
			Delete(&entity.Purchase{}, "community_id=?", communityID).Error
	}, retryOptions(ctx, "delete all purchases"))
}
