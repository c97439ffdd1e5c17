package entity

import (
	"context"

	"github.com/lootbox-lab/backend/pkg/xcontext"
)

func MigrateTable(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&LootboxConfig{},
		&RolePrize{},
		&UserCooldown{},
		&Purchase{},
	)
}
