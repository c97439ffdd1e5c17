package config

import (
	"fmt"
	"time"
)

type Configs struct {
	Env      string
	LogLevel string

	Database      DatabaseConfigs
	ApiServer     ServerConfigs
	Redis         RedisConfigs
	Kafka         KafkaConfigs
	Discord       DiscordConfigs
	UnbelievaBoat UnbelievaBoatConfigs
	Lootbox       LootboxConfigs
	Retry         RetryConfigs
}

type DatabaseConfigs struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host string
	Port string

	// ServiceToken authenticates the bot gateway calling this service. The
	// service trusts any request carrying it; user-level permissions are
	// enforced by the gateway.
	ServiceToken string
}

type RedisConfigs struct {
	Addr string
}

type KafkaConfigs struct {
	Addr string

	// AuditTopic receives one event per committed purchase.
	AuditTopic string
}

type DiscordConfigs struct {
	BotToken string
	BotID    string
}

type UnbelievaBoatConfigs struct {
	APIToken string
}

type LootboxConfigs struct {
	// WinChance is the probability that a single box is a win at all.
	// PrizeVsCoinsChance splits the win branch between a role prize and
	// coins while eligible prizes remain.
	WinChance          float64
	PrizeVsCoinsChance float64

	DefaultCooldown time.Duration

	// DefaultPurchaseLimit bounds boxes per user per PurchaseWindow while
	// any role prize still has remaining slots.
	DefaultPurchaseLimit int
	PurchaseWindow       time.Duration

	MaxBoxesPerPurchase int
}

type RetryConfigs struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}
