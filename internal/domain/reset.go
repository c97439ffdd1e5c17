package domain

import (
	"context"

	"github.com/lootbox-lab/backend/internal/common"
	"github.com/lootbox-lab/backend/internal/model"
	"github.com/lootbox-lab/backend/internal/repository"
	"github.com/lootbox-lab/backend/pkg/errorx"
	"github.com/lootbox-lab/backend/pkg/xcontext"
	"github.com/lootbox-lab/backend/pkg/xredis"
)

type ResetDomain interface {
	Reset(ctx context.Context, req *model.ResetRequest) (*model.ResetResponse, error)
}

type resetDomain struct {
	lootboxConfigRepo repository.LootboxConfigRepository
	rolePrizeRepo     repository.RolePrizeRepository
	purchaseRepo      repository.PurchaseRepository
	cooldownRepo      repository.UserCooldownRepository
	cooldownGuard     *common.CooldownGuard
	redisClient       xredis.Client
}

func NewResetDomain(
	lootboxConfigRepo repository.LootboxConfigRepository,
	rolePrizeRepo repository.RolePrizeRepository,
	purchaseRepo repository.PurchaseRepository,
	cooldownRepo repository.UserCooldownRepository,
	cooldownGuard *common.CooldownGuard,
	redisClient xredis.Client,
) *resetDomain {
	return &resetDomain{
		lootboxConfigRepo: lootboxConfigRepo,
		rolePrizeRepo:     rolePrizeRepo,
		purchaseRepo:      purchaseRepo,
		cooldownRepo:      cooldownRepo,
		cooldownGuard:     cooldownGuard,
		redisClient:       redisClient,
	}
}

// Reset wipes everything the community has: config, prizes, cooldowns,
// purchase history and the leaderboard. Granted Discord roles and ledger
// balances are left alone.
func (d *resetDomain) Reset(
	ctx context.Context, req *model.ResetRequest,
) (*model.ResetResponse, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.lootboxConfigRepo.Delete(ctx, req.CommunityID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot delete lootbox config: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.rolePrizeRepo.DeleteAll(ctx, req.CommunityID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot delete role prizes: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.cooldownRepo.DeleteAll(ctx, req.CommunityID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot delete user cooldowns: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.purchaseRepo.DeleteAll(ctx, req.CommunityID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot delete purchases: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)

	d.cooldownGuard.Invalidate(req.CommunityID)

	if err := d.redisClient.Del(ctx, spentLeaderboardKey(req.CommunityID)); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot delete spent leaderboard: %v", err)
	}

	return &model.ResetResponse{}, nil
}
