package linear_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/linctl/pkg/linear"
)

// flakyTransport fails the first failures calls of each method.
type flakyTransport struct {
	failures int
	err      error
	calls    map[string]int
}

func (f *flakyTransport) attempt(method string) error {
	f.calls[method]++
	if f.calls[method] <= f.failures {
		return f.err
	}

	return nil
}

func (f *flakyTransport) Query(ctx context.Context, document string, variables map[string]any) (any, error) {
	if err := f.attempt("query"); err != nil {
		return nil, err
	}

	return map[string]any{"ok": true}, nil
}

func (f *flakyTransport) Mutate(ctx context.Context, document string, variables map[string]any) (any, error) {
	if err := f.attempt("mutate"); err != nil {
		return nil, err
	}

	return map[string]any{"ok": true}, nil
}

func (f *flakyTransport) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	if err := f.attempt("fetch"); err != nil {
		return nil, err
	}

	return []byte("payload"), nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestRetryingTransport_RetriesEveryOperation(t *testing.T) {
	t.Parallel()

	next := &flakyTransport{failures: 2, err: transientError(), calls: make(map[string]int)}
	transport := linear.NewRetryingTransport(next, linear.NewRetrier(testRetryConfig(3), linear.WithSleeper(noSleep)))
	ctx := context.Background()

	data, err := transport.Query(ctx, "query { x }", nil)
	require.NoError(t, err)
	assert.True(t, linear.LookupBool(data, "ok"))

	_, err = transport.Mutate(ctx, "mutation { x }", nil)
	require.NoError(t, err)

	payload, err := transport.FetchBytes(ctx, "https://example.com/file")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(payload))

	assert.Equal(t, map[string]int{"query": 3, "mutate": 3, "fetch": 3}, next.calls)
}

func TestRetryingTransport_AuthFailsImmediately(t *testing.T) {
	t.Parallel()

	authErr := &linear.APIError{Kind: linear.KindAuth, StatusCode: 401}
	next := &flakyTransport{failures: 10, err: authErr, calls: make(map[string]int)}
	transport := linear.NewRetryingTransport(next, linear.NewRetrier(testRetryConfig(3), linear.WithSleeper(noSleep)))

	_, err := transport.Query(context.Background(), "query { x }", nil)
	require.ErrorIs(t, err, authErr)
	assert.Equal(t, 1, next.calls["query"])
}
