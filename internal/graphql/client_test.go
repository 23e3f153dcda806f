package graphql_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/internal/graphql"
	"github.com/fivetwenty-io/linctl/pkg/linear"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *graphql.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := graphql.NewClient(server.URL, "lin_api_test", graphql.WithUserAgent("linctl-test"))
	require.NoError(t, err)

	return client
}

func asAPIError(t *testing.T, err error) *linear.APIError {
	t.Helper()

	var apiErr *linear.APIError
	require.ErrorAs(t, err, &apiErr)

	return apiErr
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := graphql.NewClient("  ", "key")
	require.ErrorIs(t, err, graphql.ErrEmptyEndpoint)
}

func TestClient_QuerySendsDocumentAndHeaders(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "lin_api_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "linctl-test", r.Header.Get("User-Agent"))

		var payload struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Contains(t, payload.Query, "teams")
		assert.Equal(t, "ENG", payload.Variables["filter"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"teams":{"nodes":[{"id":"t1","key":"ENG"}]}}}`)
	})

	data, err := client.Query(context.Background(), "query { teams { nodes { id key } } }", map[string]any{"filter": "ENG"})
	require.NoError(t, err)

	nodes, err := linear.LookupNodes(data, "teams", "nodes")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "t1", linear.LookupString(nodes[0], "id"))
}

func TestClient_StatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		kind      linear.ErrorKind
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `unauthorized`, linear.KindAuth, false},
		{"forbidden", http.StatusForbidden, ``, linear.KindAuth, false},
		{"not found", http.StatusNotFound, `missing`, linear.KindNotFound, false},
		{"bad gateway", http.StatusBadGateway, `upstream`, linear.KindGeneral, true},
		{"unavailable", http.StatusServiceUnavailable, `down`, linear.KindGeneral, true},
		{"internal", http.StatusInternalServerError, `boom`, linear.KindGeneral, false},
	}

	for _, tt := range tests {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = io.WriteString(w, tt.body)
		})

		_, err := client.Query(context.Background(), "query { viewer { id } }", nil)
		apiErr := asAPIError(t, err)

		assert.Equal(t, tt.kind, apiErr.Kind, tt.name)
		assert.Equal(t, tt.status, apiErr.StatusCode, tt.name)
		assert.Equal(t, tt.retryable, apiErr.IsRetryable(), tt.name)
	}
}

func TestClient_RateLimitCarriesRetryAfter(t *testing.T) {
	t.Parallel()

	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++

		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Query(context.Background(), "query { viewer { id } }", nil)
	apiErr := asAPIError(t, err)

	assert.Equal(t, linear.KindRateLimited, apiErr.Kind)
	assert.True(t, apiErr.IsRetryable())
	require.NotNil(t, apiErr.RetryAfterHint)
	assert.Equal(t, 2*time.Second, *apiErr.RetryAfterHint)
	assert.Equal(t, 1, requests, "the transport never retries on its own")
}

func TestClient_RateLimitHTTPDate(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", time.Now().Add(time.Minute).UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Query(context.Background(), "query { viewer { id } }", nil)
	apiErr := asAPIError(t, err)

	require.NotNil(t, apiErr.RetryAfterHint)
	assert.InDelta(t, time.Minute.Seconds(), apiErr.RetryAfterHint.Seconds(), 2)
}

func TestClient_RateLimitHintIsClamped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
	}{
		{"huge seconds", "99999999999"},
		{"max int64 seconds", "9223372036854775807"},
		{"distant date", time.Now().Add(48 * time.Hour).UTC().Format(http.TimeFormat)},
	}

	for _, tt := range tests {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", tt.value)
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.Query(context.Background(), "query { viewer { id } }", nil)
		apiErr := asAPIError(t, err)

		require.NotNil(t, apiErr.RetryAfterHint, tt.name)
		assert.Equal(t, constants.MaxRetryAfter, *apiErr.RetryAfterHint, tt.name)
	}
}

func TestClient_GraphQLErrorCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code string
		kind linear.ErrorKind
	}{
		{"authentication", "AUTHENTICATION_ERROR", linear.KindAuth},
		{"rate limited", "RATELIMITED", linear.KindRateLimited},
		{"entity not found", "ENTITY_NOT_FOUND", linear.KindNotFound},
		{"validation", "GRAPHQL_VALIDATION_FAILED", linear.KindGeneral},
	}

	for _, tt := range tests {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data":null,"errors":[{"message":"first","extensions":{"code":"`+tt.code+`"}},{"message":"second"}]}`)
		})

		_, err := client.Query(context.Background(), "query { viewer { id } }", nil)
		apiErr := asAPIError(t, err)

		assert.Equal(t, tt.kind, apiErr.Kind, tt.name)
		assert.Equal(t, tt.code, apiErr.Code, tt.name)
		assert.Equal(t, "first; second", apiErr.Message, tt.name)
	}
}

func TestClient_GraphQLErrorsOnErrorStatus(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"errors":[{"message":"Authentication required","extensions":{"code":"UNAUTHENTICATED"}}]}`)
	})

	_, err := client.Mutate(context.Background(), "mutation { x }", nil)
	apiErr := asAPIError(t, err)

	assert.Equal(t, linear.KindAuth, apiErr.Kind)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.False(t, apiErr.IsRetryable())
}

func TestClient_MissingData(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":null}`)
	})

	_, err := client.Query(context.Background(), "query { viewer { id } }", nil)
	require.ErrorIs(t, err, graphql.ErrMissingData)
}

func TestClient_UndecodableBody(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>maintenance</html>`)
	})

	_, err := client.Query(context.Background(), "query { viewer { id } }", nil)
	apiErr := asAPIError(t, err)
	assert.Equal(t, "decoding response", apiErr.Message)
}

func TestClient_LongErrorBodyIsTruncated(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, strings.Repeat("x", 10_000))
	})

	_, err := client.Query(context.Background(), "query { viewer { id } }", nil)
	apiErr := asAPIError(t, err)
	assert.Len(t, apiErr.Message, 4096)
}

func TestClient_ConnectionRefusedIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	client, err := graphql.NewClient(endpoint, "key", graphql.WithTimeout(2*time.Second))
	require.NoError(t, err)

	_, err = client.Query(context.Background(), "query { viewer { id } }", nil)
	apiErr := asAPIError(t, err)

	assert.True(t, apiErr.Transient)
	assert.True(t, apiErr.IsRetryable())
}

func TestClient_CancelledContextIsNotTransient(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{}}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Query(ctx, "query { viewer { id } }", nil)
	require.ErrorIs(t, err, context.Canceled)

	apiErr := asAPIError(t, err)
	assert.False(t, apiErr.Transient)
}

func TestClient_FetchBytes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "lin_api_test", r.Header.Get("Authorization"))

		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		_, _ = io.WriteString(w, "attachment")
	}))
	t.Cleanup(server.Close)

	client, err := graphql.NewClient(server.URL, "lin_api_test")
	require.NoError(t, err)

	payload, err := client.FetchBytes(context.Background(), server.URL+"/file")
	require.NoError(t, err)
	assert.Equal(t, "attachment", string(payload))

	_, err = client.FetchBytes(context.Background(), server.URL+"/missing")
	assert.True(t, linear.IsNotFound(err))
}
