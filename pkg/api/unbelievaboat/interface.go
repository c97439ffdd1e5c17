package unbelievaboat

import "context"

type IEndpoint interface {
	GetBalance(ctx context.Context, guildID, userID string) (int64, error)
	EditBalance(ctx context.Context, guildID, userID string, delta int64) (int64, error)
	DeductCost(ctx context.Context, guildID, userID string, cost int64) (int64, error)
}
