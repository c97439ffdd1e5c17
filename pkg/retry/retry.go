package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/lootbox-lab/backend/pkg/crypto"
	"github.com/lootbox-lab/backend/pkg/xcontext"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
	defaultMaxDelay   = 10 * time.Second
	maxJitter         = 200 * time.Millisecond
)

// Classifier reports whether an error is transient and worth retrying.
// Everything it does not recognize is treated as permanent, so rejections
// like record-not-found or a conditional-write conflict are never hidden
// behind a retry.
type Classifier func(error) bool

type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Classify   Classifier

	// Label identifies the operation in warning logs.
	Label string
}

func (o *Options) withDefaults() {
	if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetries
	}

	if o.BaseDelay == 0 {
		o.BaseDelay = defaultBaseDelay
	}

	if o.MaxDelay == 0 {
		o.MaxDelay = defaultMaxDelay
	}

	if o.Classify == nil {
		o.Classify = IsTransient
	}

	if o.Label == "" {
		o.Label = "operation"
	}
}

// transientError carries an optional retry-after hint supplied by the
// upstream service (e.g. a throttled response header).
type transientError struct {
	err        error
	retryAfter time.Duration
}

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

// Throttled marks err as transient with a server-supplied retry-after hint.
// The hint takes priority over computed backoff.
func Throttled(err error, retryAfter time.Duration) error {
	return transientError{err: err, retryAfter: retryAfter}
}

// Transient marks err as retryable without a hint.
func Transient(err error) error {
	return transientError{err: err}
}

// IsTransient is the default classifier: explicitly marked errors, broken
// connections, timeouts, DNS failures and the usual network errno set.
func IsTransient(err error) bool {
	var te transientError
	if errors.As(err, &te) {
		return true
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	for _, errno := range []syscall.Errno{
		syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.EPIPE, syscall.ETIMEDOUT,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// Do runs op, retrying transient failures with exponential backoff plus
// jitter capped at MaxDelay. Permanent errors and the last transient error
// after MaxRetries propagate unchanged.
func Do[T any](ctx context.Context, op func(context.Context) (T, error), opts Options) (T, error) {
	opts.withDefaults()

	var zero T
	var lastErr error

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !opts.Classify(err) {
			return zero, err
		}

		if attempt == opts.MaxRetries {
			xcontext.Logger(ctx).Errorf("All %d retries of %s exhausted: %v",
				opts.MaxRetries, opts.Label, err)
			break
		}

		delay := backoffDelay(err, attempt, opts)
		xcontext.Logger(ctx).Warnf("Attempt %d/%d of %s failed (%v), retrying in %s",
			attempt+1, opts.MaxRetries, opts.Label, err, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

// Run is Do for operations without a result.
func Run(ctx context.Context, op func(context.Context) error, opts Options) error {
	_, err := Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts)

	return err
}

func backoffDelay(err error, attempt int, opts Options) time.Duration {
	var te transientError
	if errors.As(err, &te) && te.retryAfter > 0 {
		return te.retryAfter
	}

	delay := opts.BaseDelay<<attempt + time.Duration(crypto.RandIntn(int(maxJitter)))
	if delay > opts.MaxDelay {
		delay = opts.MaxDelay
	}

	return delay
}
