package unbelievaboat_test

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/lootbox-lab/backend/config"
	"github.com/lootbox-lab/backend/pkg/api/unbelievaboat"
	"github.com/lootbox-lab/backend/pkg/retry"
	"github.com/lootbox-lab/backend/pkg/testutil"
	"github.com/lootbox-lab/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	requests []*http.Request
	bodies   []string

	respond func(r *http.Request) *http.Response
}

func (t *stubTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	t.requests = append(t.requests, r)
	if r.Body != nil {
		body, _ := io.ReadAll(r.Body)
		t.bodies = append(t.bodies, string(body))
	} else {
		t.bodies = append(t.bodies, "")
	}

	return t.respond(r), nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestEndpoint_DeductCost(t *testing.T) {
	balance := int64(250)
	transport := &stubTransport{
		respond: func(r *http.Request) *http.Response {
			if r.Method == http.MethodPatch {
				balance -= 100
			}

			return jsonResponse(http.StatusOK, fmt.Sprintf(`{"cash": %d}`, balance))
		},
	}

	ctx := xcontext.WithHTTPClient(testutil.MockContext(), &http.Client{Transport: transport})
	endpoint := unbelievaboat.New(config.UnbelievaBoatConfigs{APIToken: "token"})

	newBalance, err := endpoint.DeductCost(ctx, "guild1", "user1", 100)
	require.NoError(t, err)
	require.EqualValues(t, 150, newBalance)

	// A read first, then the withdrawal.
	require.Len(t, transport.requests, 2)
	require.Equal(t, http.MethodGet, transport.requests[0].Method)
	require.Equal(t, http.MethodPatch, transport.requests[1].Method)
	require.Equal(t, "token", transport.requests[1].Header.Get("Authorization"))
	require.JSONEq(t, `{"cash": -100}`, transport.bodies[1])

	// The re-read catches a balance that shrank since the caller checked.
	_, err = endpoint.DeductCost(ctx, "guild1", "user1", 1000)
	require.ErrorIs(t, err, unbelievaboat.ErrInsufficientFunds)
	require.EqualValues(t, 150, balance)
}

func TestEndpoint_throttledReadIsRetried(t *testing.T) {
	attempts := 0
	transport := &stubTransport{
		respond: func(*http.Request) *http.Response {
			attempts++
			if attempts == 1 {
				resp := jsonResponse(http.StatusTooManyRequests, `{}`)
				resp.Header.Set("Retry-After", "0")
				return resp
			}

			return jsonResponse(http.StatusOK, `{"cash": 42}`)
		},
	}

	ctx := xcontext.WithHTTPClient(testutil.MockContext(), &http.Client{Transport: transport})
	endpoint := unbelievaboat.New(config.UnbelievaBoatConfigs{APIToken: "token"})

	balance, err := endpoint.GetBalance(ctx, "guild1", "user1")
	require.NoError(t, err)
	require.EqualValues(t, 42, balance)
	require.Len(t, transport.requests, 2)
}

func TestEndpoint_unavailableReadExhaustsRetries(t *testing.T) {
	transport := &stubTransport{
		respond: func(*http.Request) *http.Response {
			return jsonResponse(http.StatusServiceUnavailable, `{}`)
		},
	}

	ctx := xcontext.WithHTTPClient(testutil.MockContext(), &http.Client{Transport: transport})
	endpoint := unbelievaboat.New(config.UnbelievaBoatConfigs{APIToken: "token"})

	_, err := endpoint.GetBalance(ctx, "guild1", "user1")
	require.Error(t, err)
	require.True(t, retry.IsTransient(err))

	// One attempt plus the configured retries.
	require.Len(t, transport.requests, 4)
}

func TestEndpoint_clientErrorReadIsPermanent(t *testing.T) {
	transport := &stubTransport{
		respond: func(*http.Request) *http.Response {
			return jsonResponse(http.StatusForbidden, `{}`)
		},
	}

	ctx := xcontext.WithHTTPClient(testutil.MockContext(), &http.Client{Transport: transport})
	endpoint := unbelievaboat.New(config.UnbelievaBoatConfigs{APIToken: "token"})

	_, err := endpoint.GetBalance(ctx, "guild1", "user1")
	require.Error(t, err)
	require.False(t, retry.IsTransient(err))
	require.Len(t, transport.requests, 1)
}

func TestEndpoint_writeIsNeverReplayed(t *testing.T) {
	transport := &stubTransport{
		respond: func(*http.Request) *http.Response {
			return jsonResponse(http.StatusServiceUnavailable, `{}`)
		},
	}

	ctx := xcontext.WithHTTPClient(testutil.MockContext(), &http.Client{Transport: transport})
	endpoint := unbelievaboat.New(config.UnbelievaBoatConfigs{APIToken: "token"})

	// The credit may have applied on the far side; replaying it could pay
	// twice, so the fault surfaces immediately as permanent.
	_, err := endpoint.EditBalance(ctx, "guild1", "user1", 50)
	require.Error(t, err)
	require.False(t, retry.IsTransient(err))
	require.Len(t, transport.requests, 1)
}
