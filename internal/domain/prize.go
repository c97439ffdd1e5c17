package domain

import (
	"context"
	"errors"

	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/internal/model"
	"github.com/lootbox-lab/backend/internal/repository"
	"github.com/lootbox-lab/backend/pkg/errorx"
	"github.com/lootbox-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type PrizeDomain interface {
	Add(ctx context.Context, req *model.AddPrizeRequest) (*model.AddPrizeResponse, error)
	Remove(ctx context.Context, req *model.RemovePrizeRequest) (*model.RemovePrizeResponse, error)
	GetStock(ctx context.Context, req *model.GetStockRequest) (*model.GetStockResponse, error)
}

type prizeDomain struct {
	rolePrizeRepo     repository.RolePrizeRepository
	lootboxConfigRepo repository.LootboxConfigRepository
}

func NewPrizeDomain(
	rolePrizeRepo repository.RolePrizeRepository,
	lootboxConfigRepo repository.LootboxConfigRepository,
) *prizeDomain {
	return &prizeDomain{
		rolePrizeRepo:     rolePrizeRepo,
		lootboxConfigRepo: lootboxConfigRepo,
	}
}

// Add registers a role prize or restocks an existing one. Restocking
// resets the remaining slots to the new maximum.
func (d *prizeDomain) Add(
	ctx context.Context, req *model.AddPrizeRequest,
) (*model.AddPrizeResponse, error) {
	if req.RoleID == "" {
		return nil, errorx.New(errorx.BadRequest, "Role id is required")
	}

	if req.MaxWinners < 1 {
		return nil, errorx.New(errorx.BadRequest, "Max winners must be at least 1")
	}

	if err := d.checkPrizeTypeCap(ctx, req.CommunityID, req.RoleID); err != nil {
		return nil, err
	}

	err := d.rolePrizeRepo.Upsert(ctx, &entity.RolePrize{
		CommunityID:      req.CommunityID,
		RoleID:           req.RoleID,
		RoleName:         req.RoleName,
		MaxWinners:       req.MaxWinners,
		RemainingWinners: req.MaxWinners,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot upsert role prize: %v", err)
		return nil, errorx.Unknown
	}

	return &model.AddPrizeResponse{}, nil
}

func (d *prizeDomain) Remove(
	ctx context.Context, req *model.RemovePrizeRequest,
) (*model.RemovePrizeResponse, error) {
	err := d.rolePrizeRepo.Delete(ctx, req.CommunityID, req.RoleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "No such prize")
		}

		xcontext.Logger(ctx).Errorf("Cannot delete role prize: %v", err)
		return nil, errorx.Unknown
	}

	return &model.RemovePrizeResponse{}, nil
}

func (d *prizeDomain) GetStock(
	ctx context.Context, req *model.GetStockRequest,
) (*model.GetStockResponse, error) {
	prizes, err := d.rolePrizeRepo.GetAll(ctx, req.CommunityID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get role prizes: %v", err)
		return nil, errorx.Unknown
	}

	result := make([]model.RolePrize, 0, len(prizes))
	for _, p := range prizes {
		result = append(result, model.RolePrize{
			RoleID:           p.RoleID,
			RoleName:         p.RoleName,
			MaxWinners:       p.MaxWinners,
			RemainingWinners: p.RemainingWinners,
		})
	}

	lootboxCfg := xcontext.Configs(ctx).Lootbox
	resp := &model.GetStockResponse{
		WinChance:   lootboxCfg.WinChance,
		PrizeChance: lootboxCfg.PrizeVsCoinsChance,
		Prizes:      result,
	}

	cfg, err := d.lootboxConfigRepo.Get(ctx, req.CommunityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot get lootbox config: %v", err)
		return nil, errorx.Unknown
	}

	resp.Price = nullableInt(cfg.Price)
	resp.CooldownSeconds = nullableInt(cfg.CooldownSeconds)
	resp.PurchaseLimit = nullableInt(cfg.PurchaseLimitOverride)
	return resp, nil
}

// checkPrizeTypeCap enforces the configured cap on distinct prize types.
// Restocking an existing role never counts against the cap.
func (d *prizeDomain) checkPrizeTypeCap(ctx context.Context, communityID, roleID string) error {
	cfg, err := d.lootboxConfigRepo.Get(ctx, communityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}

		xcontext.Logger(ctx).Errorf("Cannot get lootbox config: %v", err)
		return errorx.Unknown
	}

	if !cfg.MaxPrizeTypes.Valid {
		return nil
	}

	prizes, err := d.rolePrizeRepo.GetAll(ctx, communityID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get role prizes: %v", err)
		return errorx.Unknown
	}

	for _, p := range prizes {
		if p.RoleID == roleID {
			return nil
		}
	}

	if int64(len(prizes)) >= cfg.MaxPrizeTypes.Int64 {
		return errorx.New(errorx.BadRequest,
			"At most %d prize types can be active at once", cfg.MaxPrizeTypes.Int64)
	}

	return nil
}
