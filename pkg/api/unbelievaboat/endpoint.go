package unbelievaboat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lootbox-lab/backend/config"
	"github.com/lootbox-lab/backend/pkg/api"
	"github.com/lootbox-lab/backend/pkg/retry"
	"github.com/lootbox-lab/backend/pkg/xcontext"
)

const apiURL = "https://unbelievaboat.com/api/v1"

// ErrInsufficientFunds reports a debit larger than the current cash
// balance. Callers rely on it being distinguishable from transport faults.
var ErrInsufficientFunds = errors.New("insufficient funds")

type Endpoint struct {
	APIToken string

	apiGenerator api.Generator
}

func New(cfg config.UnbelievaBoatConfigs) *Endpoint {
	return &Endpoint{
		APIToken:     cfg.APIToken,
		apiGenerator: api.NewGenerator(),
	}
}

// GetBalance returns the user's cash balance in the guild. The read is
// idempotent, so throttled and unavailable responses are retried with the
// configured backoff.
func (e *Endpoint) GetBalance(ctx context.Context, guildID, userID string) (int64, error) {
	return retry.Do(ctx, func(ctx context.Context) (int64, error) {
		resp, err := e.apiGenerator.New(apiURL, "/guilds/%s/users/%s", guildID, userID).
			Header("Authorization", e.APIToken).
			GET(ctx)
		if err != nil {
			return 0, err
		}

		if err := classifyStatus(resp, true); err != nil {
			return 0, err
		}

		return cashOf(resp)
	}, retryOptions(ctx, "get ledger balance"))
}

// EditBalance adjusts the user's cash balance by delta (negative values
// withdraw) and returns the new balance. A write that fails mid-flight may
// still have applied, so it is never replayed; the caller decides whether
// the failure needs remediation.
func (e *Endpoint) EditBalance(ctx context.Context, guildID, userID string, delta int64) (int64, error) {
	resp, err := e.apiGenerator.New(apiURL, "/guilds/%s/users/%s", guildID, userID).
		Header("Authorization", e.APIToken).
		Body(api.JSON{"cash": delta}).
		PATCH(ctx)
	if err != nil {
		return 0, err
	}

	if err := classifyStatus(resp, false); err != nil {
		return 0, err
	}

	return cashOf(resp)
}

// DeductCost withdraws cost from the user's cash balance. The balance is
// re-read immediately before the withdrawal, so a concurrent spend between
// an earlier check and this call surfaces as ErrInsufficientFunds instead
// of a negative balance.
func (e *Endpoint) DeductCost(ctx context.Context, guildID, userID string, cost int64) (int64, error) {
	balance, err := e.GetBalance(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}

	if balance < cost {
		return 0, ErrInsufficientFunds
	}

	return e.EditBalance(ctx, guildID, userID, -cost)
}

func cashOf(resp *api.Response) (int64, error) {
	body, ok := resp.Body.(api.JSON)
	if !ok {
		return 0, errors.New("invalid response")
	}

	value, err := body.Get("cash")
	if err != nil {
		return 0, err
	}

	cash, ok := value.(float64)
	if !ok {
		return 0, fmt.Errorf("invalid type of field cash (%T)", value)
	}

	return int64(cash), nil
}

// classifyStatus maps non-OK responses to errors. Only idempotent calls
// mark throttled and unavailable responses transient; since writes are
// never replayed their faults stay permanent.
func classifyStatus(resp *api.Response, idempotent bool) error {
	switch resp.Code {
	case http.StatusOK:
		return nil
	case http.StatusTooManyRequests:
		err := errors.New("ledger rate limited")
		if !idempotent {
			return err
		}

		if after, parseErr := strconv.Atoi(resp.Header.Get("Retry-After")); parseErr == nil {
			return retry.Throttled(err, time.Duration(after)*time.Second)
		}

		return retry.Transient(err)
	case http.StatusRequestTimeout, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		err := fmt.Errorf("ledger unavailable (status %d)", resp.Code)
		if !idempotent {
			return err
		}

		return retry.Transient(err)
	default:
		return fmt.Errorf("ledger responded status %d", resp.Code)
	}
}

func retryOptions(ctx context.Context, label string) retry.Options {
	cfg := xcontext.Configs(ctx).Retry
	return retry.Options{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
		Label:      label,
	}
}
