package lootbox

import (
	"context"
	"testing"

	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/internal/repository"
	"github.com/lootbox-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func TestOpener_lossBranch(t *testing.T) {
	ctx := testutil.MockContext()
	opener := NewOpener(
		repository.NewRolePrizeRepository(),
		&testutil.MockDiscordEndpoint{},
		&testutil.ScriptedRandomizer{Floats: []float64{0.9}},
	)

	session := opener.NewSession(ctx, testutil.Community1, testutil.User1, testutil.SampleConfig())
	outcome, err := opener.Open(ctx, session)
	require.NoError(t, err)
	require.Equal(t, entity.OutcomeLoss, outcome.Type)
	require.EqualValues(t, -40, outcome.Coins)
	require.Empty(t, outcome.RoleID)
}

func TestOpener_coinWinWithoutPrizes(t *testing.T) {
	ctx := testutil.MockContext()
	opener := NewOpener(
		repository.NewRolePrizeRepository(),
		&testutil.MockDiscordEndpoint{},
		&testutil.ScriptedRandomizer{Floats: []float64{0.1}},
	)

	// The win roll lands but there is nothing in stock, so the prize draw
	// is skipped entirely.
	session := opener.NewSession(ctx, testutil.Community1, testutil.User1, testutil.SampleConfig())
	outcome, err := opener.Open(ctx, session)
	require.NoError(t, err)
	require.Equal(t, entity.OutcomeWinCoins, outcome.Type)
	require.EqualValues(t, 50, outcome.Coins)
}

func TestOpener_roleWin(t *testing.T) {
	ctx := testutil.MockContext()
	prizeRepo := repository.NewRolePrizeRepository()
	discordEndpoint := &testutil.MockDiscordEndpoint{}
	opener := NewOpener(prizeRepo, discordEndpoint,
		&testutil.ScriptedRandomizer{Floats: []float64{0.1}})

	require.NoError(t, prizeRepo.Upsert(ctx, &entity.RolePrize{
		CommunityID: testutil.Community1, RoleID: "role1", RoleName: "VIP",
		MaxWinners: 2, RemainingWinners: 2,
	}))

	session := opener.NewSession(ctx, testutil.Community1, testutil.User1, testutil.SampleConfig())
	outcome, err := opener.Open(ctx, session)
	require.NoError(t, err)
	require.Equal(t, entity.OutcomeWinRole, outcome.Type)
	require.Equal(t, "role1", outcome.RoleID)
	require.Equal(t, "VIP", outcome.RoleName)
	require.Equal(t, 1, outcome.RemainingAfter)
	require.Zero(t, outcome.Coins)

	// The grant went out.
	roles, err := discordEndpoint.GetMemberRoles(ctx, testutil.Community1, testutil.User1)
	require.NoError(t, err)
	require.Contains(t, roles, "role1")

	// The same session never wins the same role twice, even though a slot
	// remains; the second box becomes a coin win.
	outcome, err = opener.Open(ctx, session)
	require.NoError(t, err)
	require.Equal(t, entity.OutcomeWinCoins, outcome.Type)
}

func TestOpener_heldRoleExcluded(t *testing.T) {
	ctx := testutil.MockContext()
	prizeRepo := repository.NewRolePrizeRepository()
	opener := NewOpener(prizeRepo,
		&testutil.MockDiscordEndpoint{
			Roles: map[string][]string{
				testutil.Community1 + "/" + testutil.User1: {"role1"},
			},
		},
		&testutil.ScriptedRandomizer{Floats: []float64{0.1}})

	require.NoError(t, prizeRepo.Upsert(ctx, &entity.RolePrize{
		CommunityID: testutil.Community1, RoleID: "role1",
		MaxWinners: 1, RemainingWinners: 1,
	}))

	session := opener.NewSession(ctx, testutil.Community1, testutil.User1, testutil.SampleConfig())
	outcome, err := opener.Open(ctx, session)
	require.NoError(t, err)
	require.Equal(t, entity.OutcomeWinCoins, outcome.Type)

	// The slot was not consumed.
	prizes, err := prizeRepo.GetAll(ctx, testutil.Community1)
	require.NoError(t, err)
	require.Equal(t, 1, prizes[0].RemainingWinners)
}

// staleEligibleRepo serves an outdated eligible list, standing in for a
// competing buyer winning the race between the prize draw and the claim.
type staleEligibleRepo struct {
	repository.RolePrizeRepository
	stale []entity.RolePrize
}

func (r *staleEligibleRepo) GetEligible(
	ctx context.Context, communityID string,
) ([]entity.RolePrize, error) {
	return r.stale, nil
}

func TestOpener_fallbackWhenSlotLost(t *testing.T) {
	ctx := testutil.MockContext()
	prizeRepo := repository.NewRolePrizeRepository()

	require.NoError(t, prizeRepo.Upsert(ctx, &entity.RolePrize{
		CommunityID: testutil.Community1, RoleID: "role1",
		MaxWinners: 1, RemainingWinners: 1,
	}))

	// The competing buyer already took the last slot, but this session
	// still sees the prize as available.
	claimed, err := prizeRepo.DecrementSlot(ctx, testutil.Community1, "role1")
	require.NoError(t, err)
	require.Equal(t, 0, claimed.RemainingWinners)

	opener := NewOpener(
		&staleEligibleRepo{
			RolePrizeRepository: prizeRepo,
			stale: []entity.RolePrize{{
				CommunityID: testutil.Community1, RoleID: "role1",
				MaxWinners: 1, RemainingWinners: 1,
			}},
		},
		&testutil.MockDiscordEndpoint{},
		&testutil.ScriptedRandomizer{Floats: []float64{0.1}},
	)

	session := opener.NewSession(ctx, testutil.Community1, testutil.User1, testutil.SampleConfig())
	outcome, err := opener.Open(ctx, session)
	require.NoError(t, err)
	require.Equal(t, entity.OutcomeWinCoins, outcome.Type)
	require.EqualValues(t, 50, outcome.Coins)
}
