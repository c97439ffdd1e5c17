package repository

import (
	"context"

	"github.com/lootbox-lab/backend/pkg/retry"
	"github.com/lootbox-lab/backend/pkg/xcontext"
)

// retryOptions routes every store call through the retry wrapper with the
// configured backoff knobs.
func retryOptions(ctx context.Context, label string) retry.Options {
	cfg := xcontext.Configs(ctx).Retry
	return retry.Options{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
		Label:      label,
	}
}
