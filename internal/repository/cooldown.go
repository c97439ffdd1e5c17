package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/pkg/retry"
	"github.com/lootbox-lab/backend/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type UserCooldownRepository interface {
	Get(ctx context.Context, communityID, userID string) (*entity.UserCooldown, error)
	SetLastPurchase(ctx context.Context, communityID, userID string, at time.Time) error
	SetAdminLockout(ctx context.Context, communityID, userID string, until sql.NullTime) error
	DeleteAll(ctx context.Context, communityID string) error
}

type userCooldownRepository struct{}

func NewUserCooldownRepository() *userCooldownRepository {
	return &userCooldownRepository{}
}

func (r *userCooldownRepository) Get(
	ctx context.Context, communityID, userID string,
) (*entity.UserCooldown, error) {
	return retry.Do(ctx, func(ctx context.Context) (*entity.UserCooldown, error) {
		var result entity.UserCooldown
		err := xcontext.DB(ctx).
			Take(&result, "community_id=? AND user_id=?", communityID, userID).Error
		if err != nil {
			return nil, err
		}

		return &result, nil
	}, retryOptions(ctx, "get user cooldown"))
}

func (r *userCooldownRepository) SetLastPurchase(
	ctx context.Context, communityID, userID string, at time.Time,
) error {
	return retry.Run(ctx, func(ctx context.Context) error {
		return xcontext.DB(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"last_purchase": at}),
		}).Create(&entity.UserCooldown{
			CommunityID:  communityID,
			UserID:       userID,
			LastPurchase: at,
		}).Error
	}, retryOptions(ctx, "set last purchase"))
}

func (r *userCooldownRepository) SetAdminLockout(
	ctx context.Context, communityID, userID string, until sql.NullTime,
) error {
	return retry.Run(ctx, func(ctx context.Context) error {
		return xcontext.DB(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"admin_cooldown_until": until}),
		}).Create(&entity.UserCooldown{
			CommunityID:        communityID,
			UserID:             userID,
			AdminCooldownUntil: until,
		}).Error
	}, retryOptions(ctx, "set admin lockout"))
}

func (r *userCooldownRepository) DeleteAll(ctx context.Context, communityID string) error {
	return retry.Run(ctx, func(ctx context.Context) error {
		return xcontext.DB(ctx).
			Delete(&entity.UserCooldown{}, "community_id=?", communityID).Error
	}, retryOptions(ctx, "delete all user cooldowns"))
}
