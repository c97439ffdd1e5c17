package entity

import (
	"database/sql"
	"time"
)

// UserCooldown tracks when a user last purchased in a community, plus an
// optional administrative lockout that overrides the normal cooldown.
type UserCooldown struct {
	CommunityID string `gorm:"primaryKey"`
	UserID      string `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	LastPurchase       time.Time
	AdminCooldownUntil sql.NullTime
}
