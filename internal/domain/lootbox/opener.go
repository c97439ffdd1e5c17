package lootbox

import (
	"context"
	"errors"

	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/internal/repository"
	"github.com/lootbox-lab/backend/pkg/api/discord"
	"github.com/lootbox-lab/backend/pkg/xcontext"
	"golang.org/x/exp/slices"
)

// Opener turns one box into one outcome. The decision tree is:
//
//   - with probability 1-winChance the box is a loss and a coin penalty in
//     the configured loss range is drawn;
//   - otherwise, if the community still has role prizes the buyer does not
//     already hold, a second coin toss picks between a role and coins;
//   - a role win must claim a winner slot before it counts. If the slot is
//     gone by claim time the box falls back to a coin win, once, with no
//     second prize draw.
type Opener struct {
	rolePrizeRepo repository.RolePrizeRepository

	discordEndpoint discord.IEndpoint
	rnd             Randomizer
}

func NewOpener(
	rolePrizeRepo repository.RolePrizeRepository,
	discordEndpoint discord.IEndpoint,
	rnd Randomizer,
) *Opener {
	return &Opener{
		rolePrizeRepo:   rolePrizeRepo,
		discordEndpoint: discordEndpoint,
		rnd:             rnd,
	}
}

// Session carries the per-purchase state shared by all boxes of one buy.
// HeldRoles starts as the buyer's current roles and grows as boxes grant
// new ones, so a single purchase never awards the same role twice.
type Session struct {
	CommunityID string
	UserID      string
	Config      *entity.LootboxConfig
	HeldRoles   []string
	Rnd         Randomizer
}

// NewSession fetches the buyer's current roles and prepares a session. A
// failure to read roles is not fatal; the exclusion set just starts empty
// and the prize grant itself stays best-effort.
func (o *Opener) NewSession(
	ctx context.Context, communityID, userID string, cfg *entity.LootboxConfig,
) *Session {
	roles, err := o.discordEndpoint.GetMemberRoles(ctx, communityID, userID)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot fetch member roles of %s: %v", userID, err)
		roles = nil
	}

	return &Session{
		CommunityID: communityID,
		UserID:      userID,
		Config:      cfg,
		HeldRoles:   roles,
		Rnd:         o.rnd,
	}
}

// Open resolves a single box of the session.
func (o *Opener) Open(ctx context.Context, session *Session) (*entity.Outcome, error) {
	cfg := session.Config
	lootboxCfg := xcontext.Configs(ctx).Lootbox

	if session.Rnd.Float64() >= lootboxCfg.WinChance {
		// Loss bounds are stored as non-positive deltas, the minimum
		// being the worst loss.
		return &entity.Outcome{
			Type:  entity.OutcomeLoss,
			Coins: session.Rnd.Range(cfg.LossCoinMin.Int64, cfg.LossCoinMax.Int64),
		}, nil
	}

	eligible, err := o.eligiblePrizes(ctx, session)
	if err != nil {
		return nil, err
	}

	if len(eligible) == 0 || session.Rnd.Float64() >= lootboxCfg.PrizeVsCoinsChance {
		return o.coinWin(session), nil
	}

	prize := eligible[int(session.Rnd.Range(0, int64(len(eligible)-1)))]
	claimed, err := o.rolePrizeRepo.DecrementSlot(ctx, session.CommunityID, prize.RoleID)
	if err != nil {
		if errors.Is(err, repository.ErrNoSlot) {
			// Lost the claim to a concurrent buyer. One fallback, no
			// second draw.
			return o.coinWin(session), nil
		}

		return nil, err
	}

	session.HeldRoles = append(session.HeldRoles, claimed.RoleID)

	// Slot is consumed either way; the role grant itself is best-effort
	// and repaired manually if Discord rejects it.
	err = o.discordEndpoint.GiveRole(ctx, session.CommunityID, session.UserID, claimed.RoleID)
	if err != nil {
		xcontext.Logger(ctx).Errorf(
			"Cannot grant role %s to %s: %v", claimed.RoleID, session.UserID, err)
	}

	return &entity.Outcome{
		Type:           entity.OutcomeWinRole,
		RoleID:         claimed.RoleID,
		RoleName:       claimed.RoleName,
		RemainingAfter: claimed.RemainingWinners,
	}, nil
}

func (o *Opener) coinWin(session *Session) *entity.Outcome {
	cfg := session.Config
	return &entity.Outcome{
		Type:  entity.OutcomeWinCoins,
		Coins: session.Rnd.Range(cfg.WinCoinMin.Int64, cfg.WinCoinMax.Int64),
	}
}

func (o *Opener) eligiblePrizes(
	ctx context.Context, session *Session,
) ([]entity.RolePrize, error) {
	prizes, err := o.rolePrizeRepo.GetEligible(ctx, session.CommunityID)
	if err != nil {
		return nil, err
	}

	eligible := prizes[:0]
	for _, prize := range prizes {
		if !slices.Contains(session.HeldRoles, prize.RoleID) {
			eligible = append(eligible, prize)
		}
	}

	return eligible, nil
}
