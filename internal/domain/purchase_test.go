package domain

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/lootbox-lab/backend/internal/common"
	"github.com/lootbox-lab/backend/internal/domain/lootbox"
	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/internal/model"
	"github.com/lootbox-lab/backend/internal/repository"
	"github.com/lootbox-lab/backend/pkg/errorx"
	"github.com/lootbox-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

type purchaseTestEnv struct {
	domain   PurchaseDomain
	ledger   *testutil.MockLedgerEndpoint
	discord  *testutil.MockDiscordEndpoint
	audit    *testutil.MockPublisher
	prizes   repository.RolePrizeRepository
	records  repository.PurchaseRepository
	cooldown *common.CooldownGuard
}

func newPurchaseTestEnv(rnd lootbox.Randomizer) *purchaseTestEnv {
	configRepo := repository.NewLootboxConfigRepository()
	prizeRepo := repository.NewRolePrizeRepository()
	purchaseRepo := repository.NewPurchaseRepository()
	guard := common.NewCooldownGuard(repository.NewUserCooldownRepository())

	ledger := &testutil.MockLedgerEndpoint{Balances: map[string]int64{}}
	discordEndpoint := &testutil.MockDiscordEndpoint{}
	publisher := &testutil.MockPublisher{}

	return &purchaseTestEnv{
		domain: NewPurchaseDomain(
			configRepo, prizeRepo, purchaseRepo, guard,
			lootbox.NewOpener(prizeRepo, discordEndpoint, rnd),
			ledger, &testutil.MockRedisClient{}, publisher,
		),
		ledger:   ledger,
		discord:  discordEndpoint,
		audit:    publisher,
		prizes:   prizeRepo,
		records:  purchaseRepo,
		cooldown: guard,
	}
}

func Test_purchaseDomain_Buy_forcedLoss(t *testing.T) {
	ctx := testutil.MockContext()

	cfg := testutil.SampleConfig()
	cfg.LossCoinMin = sql.NullInt64{Int64: -50, Valid: true}
	cfg.LossCoinMax = sql.NullInt64{Int64: -50, Valid: true}
	cfg.CooldownSeconds = sql.NullInt64{Int64: 0, Valid: true}
	testutil.CreateFixture(ctx, cfg)

	env := newPurchaseTestEnv(&testutil.ScriptedRandomizer{Floats: []float64{0.9}})
	env.ledger.Balances[testutil.Community1+"/"+testutil.User1] = 200

	resp, err := env.domain.Buy(ctx, &model.BuyLootboxRequest{
		CommunityID: testutil.Community1,
		UserID:      testutil.User1,
		Amount:      2,
	})
	require.NoError(t, err)

	require.EqualValues(t, 200, resp.TotalCost)
	require.EqualValues(t, -100, resp.NetCoinChange)
	require.Len(t, resp.Outcomes, 2)
	for _, outcome := range resp.Outcomes {
		require.Equal(t, string(entity.OutcomeLoss), outcome.Type)
		require.EqualValues(t, -50, outcome.Coins)
	}

	// 200 start, 200 cost, 100 extra loss.
	require.EqualValues(t, -100, resp.NewBalance)
	require.EqualValues(t, -100,
		env.ledger.Balances[testutil.Community1+"/"+testutil.User1])

	// One record covers the whole purchase.
	history, err := env.records.GetHistory(ctx, testutil.Community1, testutil.User1, 0, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, 2, history[0].BoxCount)
	require.EqualValues(t, 200, history[0].TotalCost)
	require.EqualValues(t, -100, history[0].NetCoinChange)
	require.Len(t, history[0].Outcomes, 2)
	require.Equal(t, 2, history[0].Losses)
	require.EqualValues(t, 100, history[0].CoinsLost)
	require.Equal(t, 0, history[0].CoinWins)

	// The settlement audit event went out.
	require.Len(t, env.audit.Packs["lootbox.audit"], 1)
	var event map[string]any
	require.NoError(t, json.Unmarshal(env.audit.Packs["lootbox.audit"][0].Msg, &event))
	require.Equal(t, "settled", event["status"])
}

func Test_purchaseDomain_Buy_rejectionsHaveNoSideEffects(t *testing.T) {
	ctx := testutil.MockContext()
	env := newPurchaseTestEnv(&testutil.ScriptedRandomizer{Floats: []float64{0.9}})
	env.ledger.Balances[testutil.Community1+"/"+testutil.User1] = 1000

	req := &model.BuyLootboxRequest{
		CommunityID: testutil.Community1,
		UserID:      testutil.User1,
		Amount:      1,
	}

	// Not configured yet.
	_, err := env.domain.Buy(ctx, req)
	require.ErrorIs(t, err, errorx.New(errorx.NotConfigured, ""))

	// Price set but ranges missing still counts as unconfigured.
	testutil.CreateFixture(ctx, &entity.LootboxConfig{
		CommunityID: testutil.Community1,
		Price:       sql.NullInt64{Int64: 100, Valid: true},
	})
	_, err = env.domain.Buy(ctx, req)
	require.ErrorIs(t, err, errorx.New(errorx.NotConfigured, ""))

	// Amount outside 1..5.
	_, err = env.domain.Buy(ctx, &model.BuyLootboxRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1, Amount: 6,
	})
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	// Nothing was charged or recorded by any rejection.
	require.EqualValues(t, 1000,
		env.ledger.Balances[testutil.Community1+"/"+testutil.User1])
	history, err := env.records.GetHistory(ctx, testutil.Community1, testutil.User1, 0, 10)
	require.NoError(t, err)
	require.Empty(t, history)
	require.Empty(t, env.audit.Packs)
}

func Test_purchaseDomain_Buy_insufficientFunds(t *testing.T) {
	ctx := testutil.MockContext()

	cfg := testutil.SampleConfig()
	cfg.CooldownSeconds = sql.NullInt64{Int64: 0, Valid: true}
	testutil.CreateFixture(ctx, cfg)

	env := newPurchaseTestEnv(&testutil.ScriptedRandomizer{Floats: []float64{0.9}})
	env.ledger.Balances[testutil.Community1+"/"+testutil.User1] = 150

	_, err := env.domain.Buy(ctx, &model.BuyLootboxRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1, Amount: 2,
	})
	require.ErrorIs(t, err, errorx.New(errorx.InsufficientFunds, ""))

	// The balance was only read, never touched.
	require.EqualValues(t, 150,
		env.ledger.Balances[testutil.Community1+"/"+testutil.User1])
}

func Test_purchaseDomain_Buy_cooldown(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixture(ctx, testutil.SampleConfig())

	env := newPurchaseTestEnv(&testutil.ScriptedRandomizer{Floats: []float64{0.9}})
	env.ledger.Balances[testutil.Community1+"/"+testutil.User1] = 10000

	req := &model.BuyLootboxRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1, Amount: 1,
	}

	_, err := env.domain.Buy(ctx, req)
	require.NoError(t, err)

	// The default one hour cooldown now applies.
	_, err = env.domain.Buy(ctx, req)
	require.ErrorIs(t, err, errorx.New(errorx.OnCooldown, ""))

	// Another user is unaffected.
	env.ledger.Balances[testutil.Community1+"/"+testutil.User2] = 10000
	_, err = env.domain.Buy(ctx, &model.BuyLootboxRequest{
		CommunityID: testutil.Community1, UserID: testutil.User2, Amount: 1,
	})
	require.NoError(t, err)
}

func Test_purchaseDomain_Buy_purchaseLimit(t *testing.T) {
	ctx := testutil.MockContext()

	cfg := testutil.SampleConfig()
	cfg.CooldownSeconds = sql.NullInt64{Int64: 0, Valid: true}
	testutil.CreateFixture(ctx, cfg)

	env := newPurchaseTestEnv(&testutil.ScriptedRandomizer{Floats: []float64{0.9}})
	env.ledger.Balances[testutil.Community1+"/"+testutil.User1] = 100000

	// The default limit only applies while prizes are in stock.
	require.NoError(t, env.prizes.Upsert(ctx, &entity.RolePrize{
		CommunityID: testutil.Community1, RoleID: "role1",
		MaxWinners: 1, RemainingWinners: 1,
	}))

	req := &model.BuyLootboxRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1, Amount: 4,
	}
	_, err := env.domain.Buy(ctx, req)
	require.NoError(t, err)

	// 4 of 5 used; two more would cross the line.
	_, err = env.domain.Buy(ctx, &model.BuyLootboxRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1, Amount: 2,
	})
	require.ErrorIs(t, err, errorx.New(errorx.OverPurchaseLimit, ""))

	// But exactly reaching it is fine.
	_, err = env.domain.Buy(ctx, &model.BuyLootboxRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1, Amount: 1,
	})
	require.NoError(t, err)

	_, err = env.domain.Buy(ctx, &model.BuyLootboxRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1, Amount: 1,
	})
	require.ErrorIs(t, err, errorx.New(errorx.OverPurchaseLimit, ""))
}

func Test_purchaseDomain_Buy_limitLiftedWhenDrained(t *testing.T) {
	ctx := testutil.MockContext()

	cfg := testutil.SampleConfig()
	cfg.CooldownSeconds = sql.NullInt64{Int64: 0, Valid: true}
	testutil.CreateFixture(ctx, cfg)

	env := newPurchaseTestEnv(&testutil.ScriptedRandomizer{Floats: []float64{0.9}})
	env.ledger.Balances[testutil.Community1+"/"+testutil.User1] = 100000

	// No prizes in stock, no limit.
	for i := 0; i < 3; i++ {
		_, err := env.domain.Buy(ctx, &model.BuyLootboxRequest{
			CommunityID: testutil.Community1, UserID: testutil.User1, Amount: 5,
		})
		require.NoError(t, err)
	}
}

func Test_purchaseDomain_Buy_limitOverride(t *testing.T) {
	ctx := testutil.MockContext()

	cfg := testutil.SampleConfig()
	cfg.CooldownSeconds = sql.NullInt64{Int64: 0, Valid: true}
	cfg.PurchaseLimitOverride = sql.NullInt64{Int64: 2, Valid: true}
	testutil.CreateFixture(ctx, cfg)

	env := newPurchaseTestEnv(&testutil.ScriptedRandomizer{Floats: []float64{0.9}})
	env.ledger.Balances[testutil.Community1+"/"+testutil.User1] = 100000

	// The override binds even with no prizes in stock.
	_, err := env.domain.Buy(ctx, &model.BuyLootboxRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1, Amount: 2,
	})
	require.NoError(t, err)

	_, err = env.domain.Buy(ctx, &model.BuyLootboxRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1, Amount: 1,
	})
	require.ErrorIs(t, err, errorx.New(errorx.OverPurchaseLimit, ""))
}

func Test_purchaseDomain_Buy_scarcePrizeNeverOverAwarded(t *testing.T) {
	ctx := testutil.MockContext()

	cfg := testutil.SampleConfig()
	cfg.CooldownSeconds = sql.NullInt64{Int64: 0, Valid: true}
	testutil.CreateFixture(ctx, cfg)

	// Both boxes roll the reward branch but only one slot exists; the
	// second box must degrade to coins.
	env := newPurchaseTestEnv(&testutil.ScriptedRandomizer{Floats: []float64{0.1}})
	env.ledger.Balances[testutil.Community1+"/"+testutil.User1] = 100000

	require.NoError(t, env.prizes.Upsert(ctx, &entity.RolePrize{
		CommunityID: testutil.Community1, RoleID: "role1", RoleName: "VIP",
		MaxWinners: 1, RemainingWinners: 1,
	}))

	resp, err := env.domain.Buy(ctx, &model.BuyLootboxRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1, Amount: 2,
	})
	require.NoError(t, err)
	require.Len(t, resp.Outcomes, 2)
	require.Equal(t, string(entity.OutcomeWinRole), resp.Outcomes[0].Type)
	require.Equal(t, string(entity.OutcomeWinCoins), resp.Outcomes[1].Type)

	prizes, err := env.prizes.GetAll(ctx, testutil.Community1)
	require.NoError(t, err)
	require.Equal(t, 0, prizes[0].RemainingWinners)
}

func Test_purchaseDomain_Buy_partialFailure(t *testing.T) {
	ctx := testutil.MockContext()

	cfg := testutil.SampleConfig()
	cfg.CooldownSeconds = sql.NullInt64{Int64: 0, Valid: true}
	testutil.CreateFixture(ctx, cfg)

	env := newPurchaseTestEnv(&testutil.ScriptedRandomizer{Floats: []float64{0.9}})
	env.ledger.Balances[testutil.Community1+"/"+testutil.User1] = 1000

	// The ledger dies right after the debit.
	calls := 0
	env.ledger.EditBalanceFunc = func(_ context.Context, _, _ string, _ int64) (int64, error) {
		calls++
		return 0, errors.New("ledger gone")
	}

	_, err := env.domain.Buy(ctx, &model.BuyLootboxRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1, Amount: 1,
	})
	require.ErrorIs(t, err, errorx.New(errorx.PartialFailure, ""))
	require.Equal(t, 1, calls)

	// The debit stands; no refund is attempted.
	require.EqualValues(t, 900,
		env.ledger.Balances[testutil.Community1+"/"+testutil.User1])

	// A remediation event carries the failure; the box whose coins never
	// reached the ledger does not count as settled.
	require.Len(t, env.audit.Packs["lootbox.audit"], 1)
	var event map[string]any
	require.NoError(t, json.Unmarshal(env.audit.Packs["lootbox.audit"][0].Msg, &event))
	require.Equal(t, "partial_failure", event["status"])
	require.EqualValues(t, 0, event["box_count"])
	require.EqualValues(t, 0, event["net_coin_change"])
}

func Test_purchaseDomain_Buy_partialFailureReportsAppliedCoins(t *testing.T) {
	ctx := testutil.MockContext()

	cfg := testutil.SampleConfig()
	cfg.CooldownSeconds = sql.NullInt64{Int64: 0, Valid: true}
	testutil.CreateFixture(ctx, cfg)

	env := newPurchaseTestEnv(&testutil.ScriptedRandomizer{Floats: []float64{0.1}})
	key := testutil.Community1 + "/" + testutil.User1
	env.ledger.Balances[key] = 1000

	// The first box's coin win settles, then the ledger dies.
	calls := 0
	env.ledger.EditBalanceFunc = func(_ context.Context, _, _ string, delta int64) (int64, error) {
		calls++
		if calls > 1 {
			return 0, errors.New("ledger gone")
		}

		env.ledger.Balances[key] += delta
		return env.ledger.Balances[key], nil
	}

	_, err := env.domain.Buy(ctx, &model.BuyLootboxRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1, Amount: 2,
	})
	require.ErrorIs(t, err, errorx.New(errorx.PartialFailure, ""))

	// The 200 debit plus the one applied 50 coin win.
	require.EqualValues(t, 850, env.ledger.Balances[key])

	// The event states exactly what reached the ledger.
	require.Len(t, env.audit.Packs["lootbox.audit"], 1)
	var event map[string]any
	require.NoError(t, json.Unmarshal(env.audit.Packs["lootbox.audit"][0].Msg, &event))
	require.Equal(t, "partial_failure", event["status"])
	require.EqualValues(t, 1, event["box_count"])
	require.EqualValues(t, 50, event["net_coin_change"])

	// No purchase record is written for an unfinished buy.
	history, err := env.records.GetHistory(ctx, testutil.Community1, testutil.User1, 0, 10)
	require.NoError(t, err)
	require.Empty(t, history)
}

func Test_purchaseDomain_GetHistory_limit(t *testing.T) {
	ctx := testutil.MockContext()
	env := newPurchaseTestEnv(&testutil.ScriptedRandomizer{Floats: []float64{0.9}})

	_, err := env.domain.GetHistory(ctx, &model.GetPurchaseHistoryRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1, Limit: 100,
	})
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	resp, err := env.domain.GetHistory(ctx, &model.GetPurchaseHistoryRequest{
		CommunityID: testutil.Community1, UserID: testutil.User1,
	})
	require.NoError(t, err)
	require.Empty(t, resp.Purchases)
}
