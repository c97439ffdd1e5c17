package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}
}

func TestDo_permanentErrorNotRetried(t *testing.T) {
	permanent := errors.New("record not found")

	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, permanent
	}, testOptions())

	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestDo_transientErrorRetriedUntilSuccess(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, Transient(errors.New("connection reset"))
		}

		return 42, nil
	}, testOptions())

	require.NoError(t, err)
	require.Equal(t, 42, result)
	require.Equal(t, 3, calls)
}

func TestDo_exhaustionReturnsLastError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, Transient(errors.New("still down"))
	}, testOptions())

	require.Error(t, err)
	require.Equal(t, "still down", err.Error())
	require.Equal(t, 4, calls)
}

func TestDo_retryAfterHintTakesPriority(t *testing.T) {
	hint := 30 * time.Millisecond
	err := Throttled(errors.New("too many requests"), hint)

	opts := testOptions()
	opts.withDefaults()
	require.Equal(t, hint, backoffDelay(err, 0, opts))

	// Without a hint the delay is computed from the attempt.
	delay := backoffDelay(Transient(errors.New("down")), 10, opts)
	require.Equal(t, opts.MaxDelay, delay)
}

func TestDo_contextCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, Throttled(errors.New("throttled"), time.Minute)
	}, testOptions())

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	require.True(t, IsTransient(Transient(errors.New("x"))))
	require.True(t, IsTransient(Throttled(errors.New("x"), time.Second)))
	require.False(t, IsTransient(errors.New("duplicate key")))
	require.False(t, IsTransient(nil))
}
