package linclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/internal/graphql"
	"github.com/fivetwenty-io/linctl/internal/metrics"
	"github.com/fivetwenty-io/linctl/pkg/linear"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired = errors.New("configuration is required")
)

// Config holds everything needed to build a Client.
type Config struct {
	// Endpoint is the GraphQL URL. Empty means the public Linear API.
	Endpoint string `validate:"omitempty,url"`

	// APIKey is sent verbatim in the Authorization header.
	APIKey string `validate:"required"`

	// Core configures retry, cache and concurrency. Nil means defaults.
	Core *linear.Config

	// Logger receives diagnostics. Nil discards them.
	Logger linear.Logger

	// Metrics receives counters. Nil disables them.
	Metrics *metrics.Collector

	// HTTPTimeout bounds a single HTTP attempt.
	HTTPTimeout time.Duration

	// HTTPClient replaces the default pooled client.
	HTTPClient *http.Client

	// UserAgent is sent with every request.
	UserAgent string
}

// Client is the retrying, caching entry point to the API.
type Client struct {
	transport *linear.RetryingTransport
	cache     *linear.Cache
	paginator *linear.Paginator
	resolver  *linear.Resolver
	logger    linear.Logger
	metrics   *metrics.Collector
}

// New creates a client from config.
func New(config *Config) (*Client, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}

	err := validator.New().Struct(config)
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && fieldErrs[0].Field() == "APIKey" {
			return nil, constants.ErrNoAPIKey
		}

		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}

	core := config.Core
	if core == nil {
		core = linear.DefaultConfig()
	}

	err = core.Validate()
	if err != nil {
		return nil, err
	}

	var logger linear.Logger = linear.NopLogger{}
	if config.Logger != nil {
		logger = config.Logger
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = constants.DefaultAPIEndpoint
	}

	options := []graphql.Option{
		graphql.WithLogger(logger),
		graphql.WithHTTPClient(config.HTTPClient),
		graphql.WithTimeout(config.HTTPTimeout),
	}
	if config.UserAgent != "" {
		options = append(options, graphql.WithUserAgent(config.UserAgent))
	}

	raw, err := graphql.NewClient(endpoint, config.APIKey, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return NewWithTransport(raw, core, logger, config.Metrics)
}

// NewWithAPIKey creates a client for the public API with default settings.
func NewWithAPIKey(apiKey string) (*Client, error) {
	return New(&Config{APIKey: apiKey})
}

// NewWithTransport assembles a client around an existing transport. It is the
// seam tests use to substitute a fake API.
func NewWithTransport(
	transport linear.Transport,
	core *linear.Config,
	logger linear.Logger,
	collector *metrics.Collector,
) (*Client, error) {
	if core == nil {
		core = linear.DefaultConfig()
	}

	if logger == nil {
		logger = linear.NopLogger{}
	}

	retrier := linear.NewRetrier(core.Retry,
		linear.WithRetryLogger(logger),
		linear.WithRetryMetrics(collector),
	)

	retrying := linear.NewRetryingTransport(transport, retrier)

	cache, err := linear.NewCacheFromConfig(core.Cache,
		linear.WithCacheLogger(logger),
		linear.WithCacheMetrics(collector),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	paginator := linear.NewPaginator(retrying,
		linear.WithPaginatorLogger(logger),
		linear.WithPaginatorMetrics(collector),
	)

	resolver := linear.NewResolver(retrying, cache,
		linear.WithPaginator(paginator),
		linear.WithResolverLogger(logger),
		linear.WithResolverMetrics(collector),
		linear.WithNoCache(core.NoCache),
		linear.WithMaxConcurrency(core.MaxConcurrency),
	)

	return &Client{
		transport: retrying,
		cache:     cache,
		paginator: paginator,
		resolver:  resolver,
		logger:    logger,
		metrics:   collector,
	}, nil
}

// Query sends a read-only document with retries.
func (c *Client) Query(ctx context.Context, document string, variables map[string]any) (any, error) {
	return c.transport.Query(ctx, document, variables)
}

// Mutate sends a mutation with retries and clears the cache types it
// invalidates.
func (c *Client) Mutate(
	ctx context.Context,
	document string,
	variables map[string]any,
	invalidates ...linear.CacheType,
) (any, error) {
	data, err := c.transport.Mutate(ctx, document, variables)
	if err != nil {
		return nil, err
	}

	for _, cacheType := range invalidates {
		clearErr := c.cache.ClearType(ctx, cacheType)
		if clearErr != nil {
			c.logger.Warn("Failed to invalidate cache", map[string]interface{}{
				"type":  string(cacheType),
				"error": clearErr.Error(),
			})
		}
	}

	return data, nil
}

// FetchBytes downloads url with retries.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return c.transport.FetchBytes(ctx, url)
}

// Cache returns the TTL cache.
func (c *Client) Cache() *linear.Cache {
	return c.cache
}

// Paginator returns the pagination engine bound to the retrying transport.
func (c *Client) Paginator() *linear.Paginator {
	return c.paginator
}

// Resolver returns the identifier resolver.
func (c *Client) Resolver() *linear.Resolver {
	return c.resolver
}

// Metrics returns the collector, which may be nil.
func (c *Client) Metrics() *metrics.Collector {
	return c.metrics
}

// ResolveTeamID resolves a team key, name or ID.
func (c *Client) ResolveTeamID(ctx context.Context, team string) (string, error) {
	return c.resolver.Resolve(ctx, linear.TeamResolver{}, team)
}

// Resolve resolves inputs of a named entity. Team-scoped entities resolve the
// team first.
func (c *Client) Resolve(ctx context.Context, entity, team string, inputs ...string) ([]string, error) {
	teamID := ""

	if team != "" {
		id, err := c.ResolveTeamID(ctx, team)
		if err != nil {
			return nil, err
		}

		teamID = id
	}

	resolver, err := linear.NewEntityResolver(entity, teamID)
	if err != nil {
		return nil, err
	}

	return c.resolver.ResolveMany(ctx, resolver, inputs)
}

// Close releases the cache backend connection, if any.
func (c *Client) Close() {
	if closer, ok := c.cache.Store().(interface{ Close() }); ok {
		closer.Close()
	}
}
