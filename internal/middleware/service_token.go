package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/lootbox-lab/backend/pkg/errorx"
	"github.com/lootbox-lab/backend/pkg/router"
	"github.com/lootbox-lab/backend/pkg/xcontext"
)

// ServiceToken authenticates the bot gateway. Only requests carrying the
// shared service token pass; there is no per-user authentication here, the
// gateway is trusted to enforce Discord-side permissions.
func ServiceToken() router.MiddlewareFunc {
	return func(ctx context.Context, r *http.Request) error {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		expected := xcontext.Configs(ctx).ApiServer.ServiceToken
		if expected == "" {
			return errorx.New(errorx.Unauthenticated, "Service token is not configured")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return errorx.New(errorx.Unauthenticated, "Invalid service token")
		}

		return nil
	}
}
