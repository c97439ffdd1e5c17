package domain

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lootbox-lab/backend/internal/common"
	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/internal/model"
	"github.com/lootbox-lab/backend/internal/repository"
	"github.com/lootbox-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func Test_resetDomain_Reset(t *testing.T) {
	ctx := testutil.MockContext()

	configRepo := repository.NewLootboxConfigRepository()
	prizeRepo := repository.NewRolePrizeRepository()
	purchaseRepo := repository.NewPurchaseRepository()
	cooldownRepo := repository.NewUserCooldownRepository()
	guard := common.NewCooldownGuard(cooldownRepo)

	testutil.CreateFixture(ctx,
		testutil.SampleConfig(),
		&entity.RolePrize{
			CommunityID: testutil.Community1, RoleID: "role1",
			MaxWinners: 1, RemainingWinners: 1,
		},
		&entity.Purchase{
			Base:        entity.Base{ID: uuid.NewString()},
			CommunityID: testutil.Community1, UserID: testutil.User1,
			BoxCount: 1, TotalCost: 100,
		},
	)
	require.NoError(t, guard.Commit(ctx, testutil.Community1, testutil.User1, time.Now()))

	deletedKeys := []string{}
	redisClient := &testutil.MockRedisClient{
		DelFunc: func(_ context.Context, keys ...string) error {
			deletedKeys = append(deletedKeys, keys...)
			return nil
		},
	}

	d := NewResetDomain(configRepo, prizeRepo, purchaseRepo, cooldownRepo, guard, redisClient)
	_, err := d.Reset(ctx, &model.ResetRequest{CommunityID: testutil.Community1})
	require.NoError(t, err)

	_, err = configRepo.Get(ctx, testutil.Community1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	prizes, err := prizeRepo.GetAll(ctx, testutil.Community1)
	require.NoError(t, err)
	require.Empty(t, prizes)

	history, err := purchaseRepo.GetHistory(ctx, testutil.Community1, testutil.User1, 0, 10)
	require.NoError(t, err)
	require.Empty(t, history)

	wait, err := guard.Check(ctx, testutil.Community1, testutil.User1, time.Hour)
	require.NoError(t, err)
	require.Zero(t, wait)

	require.Equal(t, []string{"lootbox:spent:" + testutil.Community1}, deletedKeys)
}
