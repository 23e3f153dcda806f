// Package graphql is the HTTP transport for the Linear GraphQL API. It issues
// exactly one HTTP attempt per call; retries belong to the caller.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/internal/logging"
	"github.com/fivetwenty-io/linctl/pkg/linear"
)

const maxErrorBody = 4096

// Client sends GraphQL documents over HTTP.
type Client struct {
	httpClient *retryablehttp.Client
	endpoint   string
	apiKey     string
	userAgent  string
	logger     linear.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger linear.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client, e.g. for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient.HTTPClient = httpClient
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.HTTPClient.Timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient creates a transport for endpoint authenticating with apiKey.
func NewClient(endpoint, apiKey string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 0
	httpClient.CheckRetry = noRetry
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout

	client := &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		apiKey:     apiKey,
		userAgent:  "linctl",
		logger:     linear.NopLogger{},
	}

	for _, opt := range opts {
		opt(client)
	}

	client.httpClient.Logger = logging.NewLeveled(client.logger)

	return client, nil
}

// noRetry leaves every retry decision to the linear.Retrier.
func noRetry(context.Context, *http.Response, error) (bool, error) {
	return false, nil
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []ResponseError `json:"errors"`
}

// Query sends a read-only document and returns the decoded data tree.
func (c *Client) Query(ctx context.Context, document string, variables map[string]any) (any, error) {
	return c.execute(ctx, document, variables)
}

// Mutate sends a mutation document.
func (c *Client) Mutate(ctx context.Context, document string, variables map[string]any) (any, error) {
	return c.execute(ctx, document, variables)
}

// FetchBytes downloads url with the API key attached.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp, body)
	}

	return body, nil
}

func (c *Client) execute(ctx context.Context, document string, variables map[string]any) (any, error) {
	payload, err := json.Marshal(request{Query: document, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}

	c.logger.Debug("GraphQL response", map[string]interface{}{
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
		"bytes":       len(body),
	})

	var decoded response

	decodeErr := json.Unmarshal(body, &decoded)

	if decodeErr == nil && len(decoded.Errors) > 0 {
		return nil, fromGraphQLErrors(resp.StatusCode, decoded.Errors, resp.Header)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp, body)
	}

	if decodeErr != nil {
		return nil, &linear.APIError{
			Kind:       linear.KindGeneral,
			StatusCode: resp.StatusCode,
			Message:    "decoding response",
			Err:        decodeErr,
		}
	}

	if len(decoded.Data) == 0 || string(decoded.Data) == "null" {
		return nil, &linear.APIError{Kind: linear.KindGeneral, StatusCode: resp.StatusCode, Err: ErrMissingData}
	}

	tree, err := linear.DecodeTree(decoded.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding data: %w", err)
	}

	return tree, nil
}

func (c *Client) setHeaders(req *retryablehttp.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
}

// transportError classifies a failure that produced no usable response.
// Cancellation is never transient.
func (c *Client) transportError(ctx context.Context, err error) error {
	transient, _ := retryablehttp.DefaultRetryPolicy(ctx, nil, err)

	c.logger.Debug("GraphQL transport error", map[string]interface{}{
		"error":     err.Error(),
		"transient": transient,
	})

	return &linear.APIError{
		Kind:      linear.KindGeneral,
		Transient: transient,
		Message:   err.Error(),
		Err:       err,
	}
}

// statusError builds an APIError for a non-2xx response without GraphQL errors.
func statusError(resp *http.Response, body []byte) *linear.APIError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	apiErr := &linear.APIError{
		Kind:       kindForStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	if apiErr.Kind == linear.KindRateLimited {
		apiErr.RetryAfterHint = parseRetryAfter(resp.Header, time.Now())
	}

	return apiErr
}
