package testutil

import (
	"context"
	"time"

	"github.com/lootbox-lab/backend/config"
	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/pkg/logger"
	"github.com/lootbox-lab/backend/pkg/xcontext"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func MockContext() context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	// Every pooled connection of an in-memory sqlite DSN opens its own
	// database, so the pool must stay at one connection.
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := config.Configs{
		Env:   "testing",
		Kafka: config.KafkaConfigs{AuditTopic: "lootbox.audit"},
		Lootbox: config.LootboxConfigs{
			WinChance:            0.5,
			PrizeVsCoinsChance:   0.5,
			DefaultCooldown:      time.Hour,
			DefaultPurchaseLimit: 5,
			PurchaseWindow:       24 * time.Hour,
			MaxBoxesPerPurchase:  5,
		},
		Retry: config.RetryConfigs{
			MaxRetries: 3,
			BaseDelay:  time.Millisecond,
			MaxDelay:   10 * time.Millisecond,
		},
	}

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.ERROR))
	ctx = xcontext.WithDB(ctx, db)

	if err := entity.MigrateTable(ctx); err != nil {
		panic(err)
	}

	return ctx
}
