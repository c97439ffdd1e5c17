package repository

import (
	"context"
	"errors"

	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/pkg/retry"
	"github.com/lootbox-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoSlot reports that no winner slot could be obtained, either because
// the prize was already exhausted or because a concurrent caller consumed
// the slot between our read and our conditional write. It is a safe
// failure, never a fault, and must not be retried.
var ErrNoSlot = errors.New("no remaining winner slots")

type RolePrizeRepository interface {
	Upsert(ctx context.Context, prize *entity.RolePrize) error
	GetAll(ctx context.Context, communityID string) ([]entity.RolePrize, error)
	GetEligible(ctx context.Context, communityID string) ([]entity.RolePrize, error)
	HasActive(ctx context.Context, communityID string) (bool, error)
	Count(ctx context.Context, communityID string) (int64, error)
	DecrementSlot(ctx context.Context, communityID, roleID string) (*entity.RolePrize, error)
	Delete(ctx context.Context, communityID, roleID string) error
	DeleteAll(ctx context.Context, communityID string) error
}

type rolePrizeRepository struct{}

func NewRolePrizeRepository() *rolePrizeRepository {
	return &rolePrizeRepository{}
}

// Upsert creates the prize or fully replaces it, resetting the remaining
// slots to the new maximum.
func (r *rolePrizeRepository) Upsert(ctx context.Context, prize *entity.RolePrize) error {
	return retry.Run(ctx, func(ctx context.Context) error {
		return xcontext.DB(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "community_id"}, {Name: "role_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"role_name":         prize.RoleName,
				"max_winners":       prize.MaxWinners,
				"remaining_winners": prize.RemainingWinners,
				"version":           gorm.Expr("version+1"),
			}),
		}).Create(prize).Error
	}, retryOptions(ctx, "upsert role prize"))
}

func (r *rolePrizeRepository) GetAll(ctx context.Context, communityID string) ([]entity.RolePrize, error) {
	return retry.Do(ctx, func(ctx context.Context) ([]entity.RolePrize, error) {
		var result []entity.RolePrize
		err := xcontext.DB(ctx).
			Order("created_at ASC").
			Find(&result, "community_id=?", communityID).Error
		if err != nil {
			return nil, err
		}

		return result, nil
	}, retryOptions(ctx, "get role prizes"))
}

func (r *rolePrizeRepository) GetEligible(ctx context.Context, communityID string) ([]entity.RolePrize, error) {
	return retry.Do(ctx, func(ctx context.Context) ([]entity.RolePrize, error) {
		var result []entity.RolePrize
		err := xcontext.DB(ctx).
			Find(&result, "community_id=? AND remaining_winners > 0", communityID).Error
		if err != nil {
			return nil, err
		}

		return result, nil
	}, retryOptions(ctx, "get eligible role prizes"))
}

func (r *rolePrizeRepository) HasActive(ctx context.Context, communityID string) (bool, error) {
	return retry.Do(ctx, func(ctx context.Context) (bool, error) {
		var count int64
		err := xcontext.DB(ctx).Model(&entity.RolePrize{}).
			Where("community_id=? AND remaining_winners > 0", communityID).
			Count(&count).Error
		if err != nil {
			return false, err
		}

		return count > 0, nil
	}, retryOptions(ctx, "check active role prizes"))
}

func (r *rolePrizeRepository) Count(ctx context.Context, communityID string) (int64, error) {
	return retry.Do(ctx, func(ctx context.Context) (int64, error) {
		var count int64
		err := xcontext.DB(ctx).Model(&entity.RolePrize{}).
			Where("community_id=?", communityID).
			Count(&count).Error
		if err != nil {
			return 0, err
		}

		return count, nil
	}, retryOptions(ctx, "count role prizes"))
}

// DecrementSlot consumes exactly one winner slot with an optimistic
// read-modify-write: the fresh entry is read together with its version
// token, checked locally, then written back conditioned on the token being
// unchanged. A rejected write means another caller took the slot; that is
// reported as ErrNoSlot, never re-derived from the stale read and never
// retried server-side.
func (r *rolePrizeRepository) DecrementSlot(
	ctx context.Context, communityID, roleID string,
) (*entity.RolePrize, error) {
	return retry.Do(ctx, func(ctx context.Context) (*entity.RolePrize, error) {
		var prize entity.RolePrize
		err := xcontext.DB(ctx).
			Take(&prize, "community_id=? AND role_id=?", communityID, roleID).Error
		if err != nil {
			return nil, err
		}

		if prize.RemainingWinners <= 0 {
			return nil, ErrNoSlot
		}

		tx := xcontext.DB(ctx).Model(&entity.RolePrize{}).
			Where("community_id=? AND role_id=? AND version=?", communityID, roleID, prize.Version).
			Updates(map[string]any{
				"remaining_winners": prize.RemainingWinners - 1,
				"version":           prize.Version + 1,
			})
		if tx.Error != nil {
			return nil, tx.Error
		}

		if tx.RowsAffected == 0 {
			return nil, ErrNoSlot
		}

		prize.RemainingWinners--
		prize.Version++
		return &prize, nil
	}, retryOptions(ctx, "decrement role prize slot"))
}

func (r *rolePrizeRepository) Delete(ctx context.Context, communityID, roleID string) error {
	return retry.Run(ctx, func(ctx context.Context) error {
		tx := xcontext.DB(ctx).
			Delete(&entity.RolePrize{}, "community_id=? AND role_id=?", communityID, roleID)
		if tx.Error != nil {
			return tx.Error
		}

		if tx.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	}, retryOptions(ctx, "delete role prize"))
}

func (r *rolePrizeRepository) DeleteAll(ctx context.Context, communityID string) error {
	return retry.Run(ctx, func(ctx context.Context) error {
		return xcontext.DB(ctx).
			Delete(&entity.RolePrize{}, "community_id=?", communityID).Error
	}, retryOptions(ctx, "delete all role prizes"))
}
