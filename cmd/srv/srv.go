package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/lootbox-lab/backend/config"
	"github.com/lootbox-lab/backend/internal/common"
	"github.com/lootbox-lab/backend/internal/domain"
	"github.com/lootbox-lab/backend/internal/domain/lootbox"
	"github.com/lootbox-lab/backend/internal/repository"
	"github.com/lootbox-lab/backend/pkg/api/discord"
	"github.com/lootbox-lab/backend/pkg/api/unbelievaboat"
	"github.com/lootbox-lab/backend/pkg/kafka"
	"github.com/lootbox-lab/backend/pkg/logger"
	"github.com/lootbox-lab/backend/pkg/pubsub"
	"github.com/lootbox-lab/backend/pkg/router"
	"github.com/lootbox-lab/backend/pkg/xcontext"
	"github.com/lootbox-lab/backend/pkg/xredis"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type srv struct {
	ctx context.Context
	app *cli.App

	lootboxConfigRepo repository.LootboxConfigRepository
	rolePrizeRepo     repository.RolePrizeRepository
	cooldownRepo      repository.UserCooldownRepository
	purchaseRepo      repository.PurchaseRepository

	cooldownGuard *common.CooldownGuard
	opener        *lootbox.Opener

	purchaseDomain domain.PurchaseDomain
	configDomain   domain.ConfigDomain
	prizeDomain    domain.PrizeDomain
	statsDomain    domain.StatsDomain
	resetDomain    domain.ResetDomain

	discordEndpoint discord.IEndpoint
	ledgerEndpoint  unbelievaboat.IEndpoint
	redisClient     xredis.Client
	publisher       pubsub.Publisher

	router *router.Router
	server *http.Server
}

func (s *srv) loadConfig() {
	cfg := config.Configs{
		Env:      getEnv("ENV", "local"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		Database: config.DatabaseConfigs{
			Host:     getEnv("MYSQL_HOST", "localhost"),
			Port:     getEnv("MYSQL_PORT", "3306"),
			User:     getEnv("MYSQL_USER", "lootbox"),
			Password: getEnv("MYSQL_PASSWORD", "lootbox"),
			Database: getEnv("MYSQL_DATABASE", "lootbox"),
		},
		ApiServer: config.ServerConfigs{
			Host:         getEnv("HOST", "localhost"),
			Port:         getEnv("PORT", "8080"),
			ServiceToken: getEnv("SERVICE_TOKEN", ""),
		},
		Redis: config.RedisConfigs{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: config.KafkaConfigs{
			Addr:       getEnv("KAFKA_ADDR", "localhost:9092"),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "lootbox.audit"),
		},
		Discord: config.DiscordConfigs{
			BotToken: getEnv("DISCORD_BOT_TOKEN", ""),
			BotID:    getEnv("DISCORD_BOT_ID", ""),
		},
		UnbelievaBoat: config.UnbelievaBoatConfigs{
			APIToken: getEnv("UNBELIEVABOAT_API_TOKEN", ""),
		},
		Lootbox: config.LootboxConfigs{
			WinChance:            getEnvAsFloat("LOOTBOX_WIN_CHANCE", 0.5),
			PrizeVsCoinsChance:   getEnvAsFloat("LOOTBOX_PRIZE_VS_COINS_CHANCE", 0.5),
			DefaultCooldown:      getEnvAsDuration("LOOTBOX_DEFAULT_COOLDOWN", time.Hour),
			DefaultPurchaseLimit: getEnvAsInt("LOOTBOX_DEFAULT_PURCHASE_LIMIT", 5),
			PurchaseWindow:       getEnvAsDuration("LOOTBOX_PURCHASE_WINDOW", 24*time.Hour),
			MaxBoxesPerPurchase:  getEnvAsInt("LOOTBOX_MAX_BOXES_PER_PURCHASE", 5),
		},
		Retry: config.RetryConfigs{
			MaxRetries: getEnvAsInt("RETRY_MAX_RETRIES", 3),
			BaseDelay:  getEnvAsDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
			MaxDelay:   getEnvAsDuration("RETRY_MAX_DELAY", 10*time.Second),
		},
	}

	s.ctx = xcontext.WithConfigs(s.ctx, cfg)
}

func (s *srv) loadLogger() {
	level := logger.ToLevel(xcontext.Configs(s.ctx).LogLevel)
	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(level))
}

func (s *srv) newDatabase() *gorm.DB {
	databaseCfg := xcontext.Configs(s.ctx).Database
	db, err := gorm.Open(mysql.Open(databaseCfg.ConnectionString()))
	if err != nil {
		panic(err)
	}

	return db
}

func (s *srv) loadDatabase() {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
}

func (s *srv) loadEndpoints() {
	cfg := xcontext.Configs(s.ctx)
	s.discordEndpoint = discord.New(cfg.Discord)
	s.ledgerEndpoint = unbelievaboat.New(cfg.UnbelievaBoat)

	var err error
	s.redisClient, err = xredis.NewClient(s.ctx)
	if err != nil {
		panic(err)
	}

	s.publisher, err = kafka.NewPublisher("lootbox-backend", []string{cfg.Kafka.Addr})
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadRepos() {
	s.lootboxConfigRepo = repository.NewLootboxConfigRepository()
	s.rolePrizeRepo = repository.NewRolePrizeRepository()
	s.cooldownRepo = repository.NewUserCooldownRepository()
	s.purchaseRepo = repository.NewPurchaseRepository()
}

func (s *srv) loadDomains() {
	s.cooldownGuard = common.NewCooldownGuard(s.cooldownRepo)
	s.opener = lootbox.NewOpener(s.rolePrizeRepo, s.discordEndpoint, lootbox.NewCryptoRandomizer())

	s.purchaseDomain = domain.NewPurchaseDomain(
		s.lootboxConfigRepo, s.rolePrizeRepo, s.purchaseRepo,
		s.cooldownGuard, s.opener, s.ledgerEndpoint, s.redisClient, s.publisher)
	s.configDomain = domain.NewConfigDomain(s.lootboxConfigRepo, s.cooldownGuard)
	s.prizeDomain = domain.NewPrizeDomain(s.rolePrizeRepo, s.lootboxConfigRepo)
	s.statsDomain = domain.NewStatsDomain(s.purchaseRepo, s.redisClient)
	s.resetDomain = domain.NewResetDomain(
		s.lootboxConfigRepo, s.rolePrizeRepo, s.purchaseRepo,
		s.cooldownRepo, s.cooldownGuard, s.redisClient)
}

func getEnv(key, def string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return def
}

func getEnvAsInt(key string, def int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}

	return def
}

func getEnvAsFloat(key string, def float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}

	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}

	return def
}
