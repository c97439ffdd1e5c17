package repository

import (
	"context"

	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/pkg/retry"
	"github.com/lootbox-lab/backend/pkg/xcontext"
)

type LootboxConfigRepository interface {
	Get(ctx context.Context, communityID string) (*entity.LootboxConfig, error)
	Upsert(ctx context.Context, communityID string, fields map[string]any) (*entity.LootboxConfig, error)
	Delete(ctx context.Context, communityID string) error
}

type lootboxConfigRepository struct{}

func NewLootboxConfigRepository() *lootboxConfigRepository {
	return &lootboxConfigRepository{}
}

func (r *lootboxConfigRepository) Get(ctx context.Context, communityID string) (*entity.LootboxConfig, error) {
	return retry.Do(ctx, func(ctx context.Context) (*entity.LootboxConfig, error) {
		var result entity.LootboxConfig
		err := xcontext.DB(ctx).Take(&result, "community_id=?", communityID).Error
		if err != nil {
			return nil, err
		}

		return &result, nil
	}, retryOptions(ctx, "get lootbox config"))
}

// Upsert creates the config row if needed and applies the given field
// updates, leaving all other fields untouched.
func (r *lootboxConfigRepository) Upsert(
	ctx context.Context, communityID string, fields map[string]any,
) (*entity.LootboxConfig, error) {
	return retry.Do(ctx, func(ctx context.Context) (*entity.LootboxConfig, error) {
		var result entity.LootboxConfig
		err := xcontext.DB(ctx).
			Where(entity.LootboxConfig{CommunityID: communityID}).
			Assign(fields).
			FirstOrCreate(&result).Error
		if err != nil {
			return nil, err
		}

		return &result, nil
	}, retryOptions(ctx, "upsert lootbox config"))
}

func (r *lootboxConfigRepository) Delete(ctx context.Context, communityID string) error {
	return retry.Run(ctx, func(ctx context.Context) error {
		return xcontext.DB(ctx).
			Delete(&entity.LootboxConfig{}, "community_id=?", communityID).Error
	}, retryOptions(ctx, "delete lootbox config"))
}
