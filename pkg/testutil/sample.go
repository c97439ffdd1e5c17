package testutil

import (
	"context"
	"database/sql"

	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/pkg/xcontext"
)

const (
	Community1 = "community1"
	User1      = "user1"
	User2      = "user2"
)

// SampleConfig is a fully configured community with a 100 coin price, a
// 50..80 coin win range and a -40..-10 loss range.
func SampleConfig() *entity.LootboxConfig {
	return &entity.LootboxConfig{
		CommunityID: Community1,
		Price:       sql.NullInt64{Int64: 100, Valid: true},
		WinCoinMin:  sql.NullInt64{Int64: 50, Valid: true},
		WinCoinMax:  sql.NullInt64{Int64: 80, Valid: true},
		LossCoinMin: sql.NullInt64{Int64: -40, Valid: true},
		LossCoinMax: sql.NullInt64{Int64: -10, Valid: true},
	}
}

func CreateFixture(ctx context.Context, objs ...any) {
	for _, obj := range objs {
		if err := xcontext.DB(ctx).Create(obj).Error; err != nil {
			panic(err)
		}
	}
}
