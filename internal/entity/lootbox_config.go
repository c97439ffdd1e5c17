package entity

import (
	"database/sql"
	"time"
)

// LootboxConfig is the per-community configuration document. The required
// price and coin-range fields start out NULL; purchases are blocked until
// an admin has set all of them.
type LootboxConfig struct {
	CommunityID string `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Price      sql.NullInt64
	WinCoinMin sql.NullInt64
	WinCoinMax sql.NullInt64

	// Loss bounds are non-positive balance deltas; LossCoinMin is the
	// worst loss (e.g. -500..0).
	LossCoinMin sql.NullInt64
	LossCoinMax sql.NullInt64

	CooldownSeconds sql.NullInt64

	PrizeChannelID string
	AuditChannelID string

	// MaxPrizeTypes caps how many role prizes can be configured at once.
	// NULL means unlimited.
	MaxPrizeTypes sql.NullInt64

	// PurchaseLimitOverride replaces the default 24h box limit when set.
	// NULL means the default rule applies (limited while prizes remain in
	// stock, unlimited after).
	PurchaseLimitOverride sql.NullInt64
}

// IsConfigured reports whether all fields required for purchases are set.
func (c *LootboxConfig) IsConfigured() bool {
	return c.Price.Valid &&
		c.WinCoinMin.Valid && c.WinCoinMax.Valid &&
		c.LossCoinMin.Valid && c.LossCoinMax.Valid
}
