package discord

import "context"

type IEndpoint interface {
	GetMemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
	GiveRole(ctx context.Context, guildID, userID, roleID string) error
}
