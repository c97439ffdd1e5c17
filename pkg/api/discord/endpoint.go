package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/puzpuzpuz/xsync"

	"github.com/lootbox-lab/backend/config"
	"github.com/lootbox-lab/backend/pkg/api"
)

const apiURL = "https://discord.com/api"
const userAgent = "DiscordBot (https://lootbox-lab.app, 1.0)"

const giveRoleResource = "give_role"

type Endpoint struct {
	BotToken string
	BotID    string

	apiGenerator      api.Generator
	rateLimitResource *xsync.MapOf[string, *xsync.MapOf[string, time.Time]]
}

func New(cfg config.DiscordConfigs) *Endpoint {
	return &Endpoint{
		BotToken:          cfg.BotToken,
		BotID:             cfg.BotID,
		apiGenerator:      api.NewGenerator(),
		rateLimitResource: xsync.NewMapOf[*xsync.MapOf[string, time.Time]](),
	}
}

// GetMemberRoles returns the role ids the user currently holds in the guild.
func (e *Endpoint) GetMemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	resp, err := e.apiGenerator.New(apiURL, "/guilds/%s/members/%s", guildID, userID).
		Header("User-Agent", userAgent).
		GET(ctx, api.OAuth2("Bot", e.BotToken))
	if err != nil {
		return nil, err
	}

	body, ok := resp.Body.(api.JSON)
	if !ok {
		return nil, errors.New("invalid response")
	}

	// If response has the field of code, an error is returned.
	if code, err := body.GetInt("code"); err == nil {
		return nil, fmt.Errorf("discord error code %d", code)
	}

	value, err := body.Get("roles")
	if err != nil {
		return nil, err
	}

	raw, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid type of field roles (%T)", value)
	}

	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		id, ok := r.(string)
		if !ok {
			return nil, errors.New("invalid role id type")
		}

		roles = append(roles, id)
	}

	return roles, nil
}

func (e *Endpoint) GiveRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := e.checkLimitingResource(giveRoleResource, guildID); err != nil {
		return err
	}

	resp, err := e.apiGenerator.New(apiURL, "/guilds/%s/members/%s/roles/%s", guildID, userID, roleID).
		Header("User-Agent", userAgent).
		PUT(ctx, api.OAuth2("Bot", e.BotToken))
	if err != nil {
		return err
	}

	if err := e.checkTooManyRequest(resp, giveRoleResource, guildID); err != nil {
		return err
	}

	if resp.Code != http.StatusNoContent && resp.Code != http.StatusOK {
		return fmt.Errorf("discord responded status %d", resp.Code)
	}

	return nil
}

func (e *Endpoint) checkLimitingResource(resource, identifier string) error {
	if limit, ok := e.rateLimitResource.Load(resource); ok {
		if resetAt, ok := limit.Load(identifier); ok {
			if resetAt.After(time.Now()) {
				return fmt.Errorf("rate limited until %d", resetAt.Unix())
			}

			// If the rate limit is reset, delete the limit for this resource.
			limit.Delete(identifier)
		}
	}

	return nil
}

func (e *Endpoint) checkTooManyRequest(resp *api.Response, resource, identifier string) error {
	if resp.Code == http.StatusTooManyRequests {
		reset, err := strconv.ParseInt(resp.Header.Get("X-Ratelimit-Reset"), 10, 64)
		if err != nil {
			return err
		}

		resetAt := time.Unix(reset, 0)
		limit, _ := e.rateLimitResource.LoadOrStore(resource, xsync.NewMapOf[time.Time]())
		limit.Store(identifier, resetAt)

		return fmt.Errorf("rate limited until %d", reset)
	}

	return nil
}
