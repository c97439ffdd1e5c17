package common

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/internal/repository"
	"github.com/puzpuzpuz/xsync"
	"gorm.io/gorm"
)

// CooldownGuard answers whether a user may buy right now. Admin lockouts
// always win over the per-purchase cooldown, even when the regular cooldown
// has already elapsed. Reads are cached per community/user; checking never
// mutates anything, only Commit and SetLockout write.
type CooldownGuard struct {
	cooldownRepo repository.UserCooldownRepository
	cache        *xsync.MapOf[string, *entity.UserCooldown]
}

func NewCooldownGuard(cooldownRepo repository.UserCooldownRepository) *CooldownGuard {
	return &CooldownGuard{
		cooldownRepo: cooldownRepo,
		cache:        xsync.NewMapOf[*entity.UserCooldown](),
	}
}

func cooldownKey(communityID, userID string) string {
	return communityID + "/" + userID
}

// Check returns the zero duration when the user may purchase, otherwise how
// long they still have to wait.
func (g *CooldownGuard) Check(
	ctx context.Context, communityID, userID string, cooldown time.Duration,
) (time.Duration, error) {
	record, err := g.load(ctx, communityID, userID)
	if err != nil {
		return 0, err
	}

	if record == nil {
		return 0, nil
	}

	now := time.Now()
	if record.AdminCooldownUntil.Valid && record.AdminCooldownUntil.Time.After(now) {
		return record.AdminCooldownUntil.Time.Sub(now), nil
	}

	if cooldown <= 0 || record.LastPurchase.IsZero() {
		return 0, nil
	}

	if readyAt := record.LastPurchase.Add(cooldown); readyAt.After(now) {
		return readyAt.Sub(now), nil
	}

	return 0, nil
}

// Commit stamps a completed purchase. It is called after the purchase
// settled, so the cooldown window starts at the settlement time.
func (g *CooldownGuard) Commit(ctx context.Context, communityID, userID string, at time.Time) error {
	if err := g.cooldownRepo.SetLastPurchase(ctx, communityID, userID, at); err != nil {
		return err
	}

	g.cache.Delete(cooldownKey(communityID, userID))
	return nil
}

// SetLockout installs or clears an admin lockout. A null until clears it.
func (g *CooldownGuard) SetLockout(
	ctx context.Context, communityID, userID string, until sql.NullTime,
) error {
	if err := g.cooldownRepo.SetAdminLockout(ctx, communityID, userID, until); err != nil {
		return err
	}

	g.cache.Delete(cooldownKey(communityID, userID))
	return nil
}

// Invalidate drops every cached entry of a community. Used after a reset.
func (g *CooldownGuard) Invalidate(communityID string) {
	prefix := communityID + "/"
	g.cache.Range(func(key string, _ *entity.UserCooldown) bool {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			g.cache.Delete(key)
		}

		return true
	})
}

func (g *CooldownGuard) load(
	ctx context.Context, communityID, userID string,
) (*entity.UserCooldown, error) {
	key := cooldownKey(communityID, userID)
	if record, ok := g.cache.Load(key); ok {
		return record, nil
	}

	record, err := g.cooldownRepo.Get(ctx, communityID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	g.cache.Store(key, record)
	return record, nil
}
