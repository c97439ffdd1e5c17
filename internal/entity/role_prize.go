package entity

import "time"

// RolePrize is one scarce reward type: a Discord role with a finite number
// of winner slots. RemainingWinners only ever decreases by exactly one per
// won slot and never goes negative; Version is the optimistic concurrency
// token guarding that invariant across process instances.
type RolePrize struct {
	CommunityID string `gorm:"primaryKey"`
	RoleID      string `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	RoleName         string
	MaxWinners       int
	RemainingWinners int
	Version          int
}
