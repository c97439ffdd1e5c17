package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lootbox-lab/backend/internal/common"
	"github.com/lootbox-lab/backend/internal/domain/lootbox"
	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/internal/model"
	"github.com/lootbox-lab/backend/internal/repository"
	"github.com/lootbox-lab/backend/pkg/api/unbelievaboat"
	"github.com/lootbox-lab/backend/pkg/errorx"
	"github.com/lootbox-lab/backend/pkg/pubsub"
	"github.com/lootbox-lab/backend/pkg/xcontext"
	"github.com/lootbox-lab/backend/pkg/xredis"
	"github.com/pkg/math"
	"gorm.io/gorm"
)

type PurchaseDomain interface {
	Buy(ctx context.Context, req *model.BuyLootboxRequest) (*model.BuyLootboxResponse, error)
	GetHistory(ctx context.Context, req *model.GetPurchaseHistoryRequest) (*model.GetPurchaseHistoryResponse, error)
}

type purchaseDomain struct {
	lootboxConfigRepo repository.LootboxConfigRepository
	rolePrizeRepo     repository.RolePrizeRepository
	purchaseRepo      repository.PurchaseRepository
	cooldownGuard     *common.CooldownGuard
	opener            *lootbox.Opener
	ledgerEndpoint    unbelievaboat.IEndpoint
	redisClient       xredis.Client
	publisher         pubsub.Publisher
}

func NewPurchaseDomain(
	lootboxConfigRepo repository.LootboxConfigRepository,
	rolePrizeRepo repository.RolePrizeRepository,
	purchaseRepo repository.PurchaseRepository,
	cooldownGuard *common.CooldownGuard,
	opener *lootbox.Opener,
	ledgerEndpoint unbelievaboat.IEndpoint,
	redisClient xredis.Client,
	publisher pubsub.Publisher,
) *purchaseDomain {
	return &purchaseDomain{
		lootboxConfigRepo: lootboxConfigRepo,
		rolePrizeRepo:     rolePrizeRepo,
		purchaseRepo:      purchaseRepo,
		cooldownGuard:     cooldownGuard,
		opener:            opener,
		ledgerEndpoint:    ledgerEndpoint,
		redisClient:       redisClient,
		publisher:         publisher,
	}
}

// auditEvent is published to the audit topic after every settled purchase
// and after every partial failure needing manual remediation.
type auditEvent struct {
	CommunityID   string    `json:"community_id"`
	UserID        string    `json:"user_id"`
	PurchaseID    string    `json:"purchase_id,omitempty"`
	BoxCount      int       `json:"box_count"`
	TotalCost     int64     `json:"total_cost"`
	NetCoinChange int64     `json:"net_coin_change"`
	Status        string    `json:"status"`
	Detail        string    `json:"detail,omitempty"`
	At            time.Time `json:"at"`
}

func (d *purchaseDomain) Buy(
	ctx context.Context, req *model.BuyLootboxRequest,
) (*model.BuyLootboxResponse, error) {
	lootboxCfg := xcontext.Configs(ctx).Lootbox

	if req.Amount < 1 || req.Amount > lootboxCfg.MaxBoxesPerPurchase {
		return nil, errorx.New(errorx.BadRequest,
			"Amount must be between 1 and %d", lootboxCfg.MaxBoxesPerPurchase)
	}

	cfg, err := d.lootboxConfigRepo.Get(ctx, req.CommunityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotConfigured, "Lootbox is not set up yet")
		}

		xcontext.Logger(ctx).Errorf("Cannot get lootbox config: %v", err)
		return nil, errorx.Unknown
	}

	if !cfg.IsConfigured() {
		return nil, errorx.New(errorx.NotConfigured, "Lootbox is not set up yet")
	}

	cooldown := lootboxCfg.DefaultCooldown
	if cfg.CooldownSeconds.Valid {
		cooldown = time.Duration(cfg.CooldownSeconds.Int64) * time.Second
	}

	wait, err := d.cooldownGuard.Check(ctx, req.CommunityID, req.UserID, cooldown)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot check cooldown: %v", err)
		return nil, errorx.Unknown
	}

	if wait > 0 {
		return nil, errorx.New(errorx.OnCooldown,
			"You must wait %s before buying again", wait.Round(time.Second))
	}

	if err := d.checkPurchaseLimit(ctx, req, cfg); err != nil {
		return nil, err
	}

	totalCost := cfg.Price.Int64 * int64(req.Amount)

	balance, err := d.ledgerEndpoint.GetBalance(ctx, req.CommunityID, req.UserID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get balance: %v", err)
		return nil, errorx.Unknown
	}

	if balance < totalCost {
		return nil, errorx.New(errorx.InsufficientFunds,
			"You need %d coins but only have %d", totalCost, balance)
	}

	// The point of no return. Everything after the debit either settles or
	// becomes a partial failure flagged for manual remediation.
	if _, err := d.ledgerEndpoint.DeductCost(ctx, req.CommunityID, req.UserID, totalCost); err != nil {
		if errors.Is(err, unbelievaboat.ErrInsufficientFunds) {
			return nil, errorx.New(errorx.InsufficientFunds,
				"You no longer have enough coins for this purchase")
		}

		xcontext.Logger(ctx).Errorf("Cannot deduct cost: %v", err)
		return nil, errorx.Unknown
	}

	session := d.opener.NewSession(ctx, req.CommunityID, req.UserID, cfg)

	// Each box settles its coins against the ledger before the next one
	// opens, so on a fault the applied total is exactly what the audit
	// event reports.
	outcomes := make([]entity.Outcome, 0, req.Amount)
	var netCoinChange int64
	newBalance := balance - totalCost
	for i := 0; i < req.Amount; i++ {
		outcome, err := d.opener.Open(ctx, session)
		if err != nil {
			return nil, d.partialFailure(ctx, req, totalCost, outcomes, netCoinChange, err)
		}

		if outcome.Coins != 0 {
			newBalance, err = d.ledgerEndpoint.EditBalance(
				ctx, req.CommunityID, req.UserID, outcome.Coins)
			if err != nil {
				return nil, d.partialFailure(ctx, req, totalCost, outcomes, netCoinChange, err)
			}
		}

		outcomes = append(outcomes, *outcome)
		netCoinChange += outcome.Coins
	}

	purchase := &entity.Purchase{
		Base:          entity.Base{ID: uuid.NewString()},
		CommunityID:   req.CommunityID,
		UserID:        req.UserID,
		BoxCount:      req.Amount,
		TotalCost:     totalCost,
		NetCoinChange: netCoinChange,
		Outcomes:      outcomes,
	}
	for _, o := range outcomes {
		switch o.Type {
		case entity.OutcomeWinCoins:
			purchase.CoinWins++
			purchase.CoinsWon += o.Coins
		case entity.OutcomeWinRole:
			purchase.RoleWins++
		case entity.OutcomeLoss:
			purchase.Losses++
			purchase.CoinsLost += -o.Coins
		}
	}
	if err := d.purchaseRepo.Create(ctx, purchase); err != nil {
		return nil, d.partialFailure(ctx, req, totalCost, outcomes, netCoinChange, err)
	}

	if err := d.cooldownGuard.Commit(ctx, req.CommunityID, req.UserID, time.Now()); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit cooldown: %v", err)
	}

	err = d.redisClient.ZIncrBy(ctx, spentLeaderboardKey(req.CommunityID), totalCost, req.UserID)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot update spent leaderboard: %v", err)
	}

	d.publishAudit(ctx, &auditEvent{
		CommunityID:   req.CommunityID,
		UserID:        req.UserID,
		PurchaseID:    purchase.ID,
		BoxCount:      req.Amount,
		TotalCost:     totalCost,
		NetCoinChange: netCoinChange,
		Status:        "settled",
		At:            time.Now(),
	})

	return &model.BuyLootboxResponse{
		Outcomes:      convertOutcomes(outcomes),
		TotalCost:     totalCost,
		NetCoinChange: netCoinChange,
		NewBalance:    newBalance,
	}, nil
}

func (d *purchaseDomain) GetHistory(
	ctx context.Context, req *model.GetPurchaseHistoryRequest,
) (*model.GetPurchaseHistoryResponse, error) {
	if req.Limit == 0 {
		req.Limit = 10
	}

	if req.Limit < 0 || req.Limit > 50 {
		return nil, errorx.New(errorx.BadRequest, "Limit must be between 1 and 50")
	}

	purchases, err := d.purchaseRepo.GetHistory(
		ctx, req.CommunityID, req.UserID, math.MaxInt(req.Offset, 0), req.Limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get purchase history: %v", err)
		return nil, errorx.Unknown
	}

	result := make([]model.Purchase, 0, len(purchases))
	for _, p := range purchases {
		result = append(result, model.Purchase{
			ID:            p.ID,
			BoxCount:      p.BoxCount,
			TotalCost:     p.TotalCost,
			NetCoinChange: p.NetCoinChange,
			Outcomes:      convertOutcomes(p.Outcomes),
			CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		})
	}

	return &model.GetPurchaseHistoryResponse{Purchases: result}, nil
}

// checkPurchaseLimit enforces the rolling-window box limit. The override
// wins when set; without it the default limit applies only while at least
// one role prize still has slots, so drained communities can buy freely.
func (d *purchaseDomain) checkPurchaseLimit(
	ctx context.Context, req *model.BuyLootboxRequest, cfg *entity.LootboxConfig,
) error {
	lootboxCfg := xcontext.Configs(ctx).Lootbox

	var limit int64
	if cfg.PurchaseLimitOverride.Valid {
		limit = cfg.PurchaseLimitOverride.Int64
	} else {
		active, err := d.rolePrizeRepo.HasActive(ctx, req.CommunityID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot check active prizes: %v", err)
			return errorx.Unknown
		}

		if !active {
			return nil
		}

		limit = int64(lootboxCfg.DefaultPurchaseLimit)
	}

	since := time.Now().Add(-lootboxCfg.PurchaseWindow)
	used, err := d.purchaseRepo.CountBoxesSince(ctx, req.CommunityID, req.UserID, since)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count boxes in window: %v", err)
		return errorx.Unknown
	}

	if used+int64(req.Amount) > limit {
		return errorx.New(errorx.OverPurchaseLimit,
			"You can buy at most %d boxes per %s (already bought %d)",
			limit, lootboxCfg.PurchaseWindow, used)
	}

	return nil
}

// partialFailure handles any fault after the debit succeeded. Coins are
// never silently refunded; the event carries how many boxes fully settled
// and the coin total actually applied to the ledger, so a moderator can
// reconcile by hand.
func (d *purchaseDomain) partialFailure(
	ctx context.Context,
	req *model.BuyLootboxRequest,
	totalCost int64,
	settled []entity.Outcome,
	appliedNet int64,
	cause error,
) error {
	xcontext.Logger(ctx).Errorf(
		"Purchase of %s in %s failed after debit (%d/%d boxes settled, %d coins applied): %v",
		req.UserID, req.CommunityID, len(settled), req.Amount, appliedNet, cause)

	d.publishAudit(ctx, &auditEvent{
		CommunityID:   req.CommunityID,
		UserID:        req.UserID,
		BoxCount:      len(settled),
		TotalCost:     totalCost,
		NetCoinChange: appliedNet,
		Status:        "partial_failure",
		Detail:        cause.Error(),
		At:            time.Now(),
	})

	return errorx.New(errorx.PartialFailure,
		"Your payment was taken but the purchase did not finish; contact a moderator")
}

func (d *purchaseDomain) publishAudit(ctx context.Context, event *auditEvent) {
	if d.publisher == nil {
		return
	}

	msg, err := json.Marshal(event)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal audit event: %v", err)
		return
	}

	topic := xcontext.Configs(ctx).Kafka.AuditTopic
	err = d.publisher.Publish(ctx, topic, &pubsub.Pack{
		Key: []byte(event.CommunityID),
		Msg: msg,
	})
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot publish audit event: %v", err)
	}
}

func spentLeaderboardKey(communityID string) string {
	return "lootbox:spent:" + communityID
}

func convertOutcomes(outcomes []entity.Outcome) []model.Outcome {
	result := make([]model.Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		result = append(result, model.Outcome{
			Type:           string(o.Type),
			Coins:          o.Coins,
			RoleID:         o.RoleID,
			RoleName:       o.RoleName,
			RemainingAfter: o.RemainingAfter,
		})
	}

	return result
}
