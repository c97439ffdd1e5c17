package domain

import (
	"context"

	"github.com/lootbox-lab/backend/internal/model"
	"github.com/lootbox-lab/backend/internal/repository"
	"github.com/lootbox-lab/backend/pkg/errorx"
	"github.com/lootbox-lab/backend/pkg/xcontext"
	"github.com/lootbox-lab/backend/pkg/xredis"
)

const topSpenderCount = 10

type StatsDomain interface {
	Get(ctx context.Context, req *model.GetStatsRequest) (*model.GetStatsResponse, error)
}

type statsDomain struct {
	purchaseRepo repository.PurchaseRepository
	redisClient  xredis.Client
}

func NewStatsDomain(
	purchaseRepo repository.PurchaseRepository,
	redisClient xredis.Client,
) *statsDomain {
	return &statsDomain{
		purchaseRepo: purchaseRepo,
		redisClient:  redisClient,
	}
}

func (d *statsDomain) Get(
	ctx context.Context, req *model.GetStatsRequest,
) (*model.GetStatsResponse, error) {
	stats, err := d.purchaseRepo.Statistic(ctx, req.CommunityID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get purchase statistic: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetStatsResponse{
		TotalPurchases: stats.TotalPurchases,
		TotalBoxes:     stats.TotalBoxes,
		TotalSpent:     stats.TotalSpent,
		NetCoinChange:  stats.NetCoinChange,
		UniqueBuyers:   stats.UniqueBuyers,
		CoinWins:       stats.CoinWins,
		RoleWins:       stats.RoleWins,
		Losses:         stats.Losses,
		CoinsWon:       stats.CoinsWon,
		CoinsLost:      stats.CoinsLost,
		TopSpenders:    []model.TopSpender{},
	}

	// The leaderboard lives in redis only. Losing it degrades this one
	// list, never the purchase records themselves.
	top, err := d.redisClient.ZRevRangeWithScores(
		ctx, spentLeaderboardKey(req.CommunityID), 0, topSpenderCount)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot get spent leaderboard: %v", err)
		return resp, nil
	}

	for _, z := range top {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}

		resp.TopSpenders = append(resp.TopSpenders, model.TopSpender{
			UserID: member,
			Spent:  int64(z.Score),
		})
	}

	return resp, nil
}
