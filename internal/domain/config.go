package domain

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lootbox-lab/backend/internal/common"
	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/internal/model"
	"github.com/lootbox-lab/backend/internal/repository"
	"github.com/lootbox-lab/backend/pkg/errorx"
	"github.com/lootbox-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type ConfigDomain interface {
	Get(ctx context.Context, req *model.GetLootboxConfigRequest) (*model.GetLootboxConfigResponse, error)
	Set(ctx context.Context, req *model.SetLootboxConfigRequest) (*model.SetLootboxConfigResponse, error)
	SetLockout(ctx context.Context, req *model.SetLockoutRequest) (*model.SetLockoutResponse, error)
}

type configDomain struct {
	lootboxConfigRepo repository.LootboxConfigRepository
	cooldownGuard     *common.CooldownGuard
}

func NewConfigDomain(
	lootboxConfigRepo repository.LootboxConfigRepository,
	cooldownGuard *common.CooldownGuard,
) *configDomain {
	return &configDomain{
		lootboxConfigRepo: lootboxConfigRepo,
		cooldownGuard:     cooldownGuard,
	}
}

func (d *configDomain) Get(
	ctx context.Context, req *model.GetLootboxConfigRequest,
) (*model.GetLootboxConfigResponse, error) {
	cfg, err := d.lootboxConfigRepo.Get(ctx, req.CommunityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.GetLootboxConfigResponse{}, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot get lootbox config: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetLootboxConfigResponse{Config: convertConfig(cfg)}, nil
}

// Set applies a partial config update. Only fields present in the request
// change; a purchase limit or prize-type cap of zero clears the value so
// the default rule applies again.
func (d *configDomain) Set(
	ctx context.Context, req *model.SetLootboxConfigRequest,
) (*model.SetLootboxConfigResponse, error) {
	fields := map[string]any{}

	if req.Price != nil {
		if *req.Price < 1 {
			return nil, errorx.New(errorx.BadRequest, "Price must be positive")
		}

		fields["price"] = *req.Price
	}

	if err := applyWinRange(fields, req.WinCoinMin, req.WinCoinMax); err != nil {
		return nil, err
	}

	if err := applyLossRange(fields, req.LossCoinMin, req.LossCoinMax); err != nil {
		return nil, err
	}

	if req.CooldownSeconds != nil {
		if *req.CooldownSeconds < 0 {
			return nil, errorx.New(errorx.BadRequest, "Cooldown cannot be negative")
		}

		fields["cooldown_seconds"] = *req.CooldownSeconds
	}

	if req.PrizeChannelID != nil {
		fields["prize_channel_id"] = *req.PrizeChannelID
	}

	if req.AuditChannelID != nil {
		fields["audit_channel_id"] = *req.AuditChannelID
	}

	if req.MaxPrizeTypes != nil {
		fields["max_prize_types"] = normalizedLimit(*req.MaxPrizeTypes)
	}

	if req.PurchaseLimit != nil {
		fields["purchase_limit_override"] = normalizedLimit(*req.PurchaseLimit)
	}

	if len(fields) == 0 {
		return nil, errorx.New(errorx.BadRequest, "No config field to change")
	}

	// Ranges may be set one bound at a time, so the merged result is
	// validated against the stored config before anything is written.
	current, err := d.lootboxConfigRepo.Get(ctx, req.CommunityID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot get lootbox config: %v", err)
			return nil, errorx.Unknown
		}

		current = &entity.LootboxConfig{CommunityID: req.CommunityID}
	}

	if err := checkMergedRange(current.WinCoinMin, current.WinCoinMax, req.WinCoinMin, req.WinCoinMax); err != nil {
		return nil, err
	}

	if err := checkMergedRange(current.LossCoinMin, current.LossCoinMax, req.LossCoinMin, req.LossCoinMax); err != nil {
		return nil, err
	}

	if _, err := d.lootboxConfigRepo.Upsert(ctx, req.CommunityID, fields); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot upsert lootbox config: %v", err)
		return nil, errorx.Unknown
	}

	return &model.SetLootboxConfigResponse{}, nil
}

func (d *configDomain) SetLockout(
	ctx context.Context, req *model.SetLockoutRequest,
) (*model.SetLockoutResponse, error) {
	if req.DurationSeconds < 0 {
		return nil, errorx.New(errorx.BadRequest, "Duration cannot be negative")
	}

	until := sql.NullTime{}
	if req.DurationSeconds > 0 {
		until = sql.NullTime{
			Time:  time.Now().Add(time.Duration(req.DurationSeconds) * time.Second),
			Valid: true,
		}
	}

	if err := d.cooldownGuard.SetLockout(ctx, req.CommunityID, req.UserID, until); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot set lockout: %v", err)
		return nil, errorx.Unknown
	}

	return &model.SetLockoutResponse{}, nil
}

func applyWinRange(fields map[string]any, min, max *int64) error {
	if min != nil {
		if *min < 0 {
			return errorx.New(errorx.BadRequest, "Win coin values cannot be negative")
		}

		fields["win_coin_min"] = *min
	}

	if max != nil {
		if *max < 0 {
			return errorx.New(errorx.BadRequest, "Win coin values cannot be negative")
		}

		fields["win_coin_max"] = *max
	}

	return nil
}

// applyLossRange takes the loss bounds as non-positive balance deltas; the
// minimum is the worst loss (e.g. min -500, max 0).
func applyLossRange(fields map[string]any, min, max *int64) error {
	if min != nil {
		if *min > 0 {
			return errorx.New(errorx.BadRequest, "Loss coin values cannot be positive")
		}

		fields["loss_coin_min"] = *min
	}

	if max != nil {
		if *max > 0 {
			return errorx.New(errorx.BadRequest, "Loss coin values cannot be positive")
		}

		fields["loss_coin_max"] = *max
	}

	return nil
}

func checkMergedRange(storedMin, storedMax sql.NullInt64, min, max *int64) error {
	mergedMin, mergedMax := storedMin, storedMax
	if min != nil {
		mergedMin = sql.NullInt64{Int64: *min, Valid: true}
	}

	if max != nil {
		mergedMax = sql.NullInt64{Int64: *max, Valid: true}
	}

	if mergedMin.Valid && mergedMax.Valid && mergedMin.Int64 > mergedMax.Int64 {
		return errorx.New(errorx.BadRequest, "Range minimum cannot exceed maximum")
	}

	return nil
}

// normalizedLimit maps the zero sentinel to NULL so "no limit" is stored
// one single way.
func normalizedLimit(value int64) sql.NullInt64 {
	if value <= 0 {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: value, Valid: true}
}

func convertConfig(cfg *entity.LootboxConfig) model.LootboxConfig {
	return model.LootboxConfig{
		Price:           nullableInt(cfg.Price),
		WinCoinMin:      nullableInt(cfg.WinCoinMin),
		WinCoinMax:      nullableInt(cfg.WinCoinMax),
		LossCoinMin:     nullableInt(cfg.LossCoinMin),
		LossCoinMax:     nullableInt(cfg.LossCoinMax),
		CooldownSeconds: nullableInt(cfg.CooldownSeconds),
		PrizeChannelID:  cfg.PrizeChannelID,
		AuditChannelID:  cfg.AuditChannelID,
		MaxPrizeTypes:   nullableInt(cfg.MaxPrizeTypes),
		PurchaseLimit:   nullableInt(cfg.PurchaseLimitOverride),
		Configured:      cfg.IsConfigured(),
	}
}

func nullableInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}

	value := v.Int64
	return &value
}
