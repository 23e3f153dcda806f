package linear

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/internal/metrics"
)

// ResolverQuery is a single, non-paginated lookup.
type ResolverQuery struct {
	Document  string
	Variables map[string]any
	NodesPath []string
}

// EntityResolver describes how one entity type is looked up. Implementations
// supply the queries and the matching rule; Resolver owns the strategy.
type EntityResolver interface {
	// Entity is the singular display name, e.g. "team".
	Entity() string
	// CacheType is the cache file holding the full catalog.
	CacheType() CacheType
	// CacheKey selects a sub-entry of a keyed cache type; empty means unkeyed.
	CacheKey() string
	// FilterQuery returns a server-side filtered query for input, if the
	// entity has one.
	FilterQuery(input string) (ResolverQuery, bool)
	// CatalogQuery returns the paginated query listing every entity.
	CatalogQuery() PageRequest
	// Match returns the ID of the node input refers to.
	Match(nodes []any, input string) (string, bool)
	// NotFoundHint tells the user how to discover valid identifiers.
	NotFoundHint() string
}

// Resolution stages, used for diagnostics and metrics.
const (
	StageCanonical = "canonical"
	StageCache     = "cache"
	StageFiltered  = "filtered"
	StageCatalog   = "catalog"
)

// IsCanonicalID reports whether input already has the shape of a stable ID.
func IsCanonicalID(input string) bool {
	return len(input) == constants.IDLength && strings.Count(input, "-") == constants.IDDashCount
}

// Resolver turns human identifiers into canonical IDs, trying the cache, then a
// filtered query, then a full catalog sweep.
type Resolver struct {
	querier        Querier
	paginator      *Paginator
	cache          *Cache
	noCache        bool
	maxConcurrency int
	logger         Logger
	metrics        *metrics.Collector
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the diagnostic logger.
func WithResolverLogger(logger Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResolverMetrics records which stage matched.
func WithResolverMetrics(collector *metrics.Collector) ResolverOption {
	return func(r *Resolver) {
		r.metrics = collector
	}
}

// WithNoCache skips cache reads. Catalog sweeps still refresh the cache.
func WithNoCache(noCache bool) ResolverOption {
	return func(r *Resolver) {
		r.noCache = noCache
	}
}

// WithMaxConcurrency bounds ResolveMany fan-out.
func WithMaxConcurrency(limit int) ResolverOption {
	return func(r *Resolver) {
		if limit > 0 {
			r.maxConcurrency = limit
		}
	}
}

// WithPaginator replaces the paginator used for catalog sweeps.
func WithPaginator(paginator *Paginator) ResolverOption {
	return func(r *Resolver) {
		if paginator != nil {
			r.paginator = paginator
		}
	}
}

// NewResolver creates a resolver. cache may be nil to disable caching.
func NewResolver(querier Querier, cache *Cache, opts ...ResolverOption) *Resolver {
	resolver := &Resolver{
		querier:        querier,
		cache:          cache,
		maxConcurrency: constants.DefaultConcurrencyLimit,
		logger:         NopLogger{},
	}

	for _, opt := range opts {
		opt(resolver)
	}

	if resolver.paginator == nil {
		resolver.paginator = NewPaginator(querier,
			WithPaginatorLogger(resolver.logger),
			WithPaginatorMetrics(resolver.metrics),
		)
	}

	return resolver
}

// Resolve returns the canonical ID for input.
func (r *Resolver) Resolve(ctx context.Context, entity EntityResolver, input string) (string, error) {
	input = strings.TrimSpace(input)

	if IsCanonicalID(input) {
		r.matched(entity, StageCanonical, input)

		return input, nil
	}

	if r.cache != nil && !r.noCache {
		nodes, ok := r.cachedNodes(ctx, entity)
		if ok {
			if id, found := entity.Match(nodes, input); found {
				r.matched(entity, StageCache, input)

				return id, nil
			}
		}
	}

	if query, ok := entity.FilterQuery(input); ok {
		data, err := r.querier.Query(ctx, query.Document, query.Variables)
		if err != nil {
			return "", fmt.Errorf("looking up %s %q: %w", entity.Entity(), input, err)
		}

		nodes, err := LookupNodes(data, query.NodesPath...)
		if err != nil {
			return "", fmt.Errorf("looking up %s %q: %w", entity.Entity(), input, err)
		}

		if id, found := entity.Match(nodes, input); found {
			r.matched(entity, StageFiltered, input)

			return id, nil
		}
	}

	nodes, err := r.paginator.PaginateNodes(ctx, entity.CatalogQuery(), PaginationOptions{
		All:      true,
		PageSize: constants.CatalogPageSize,
	})
	if err != nil {
		return "", fmt.Errorf("listing %s catalog: %w", entity.Entity(), err)
	}

	r.storeCatalog(ctx, entity, nodes)

	if id, found := entity.Match(nodes, input); found {
		r.matched(entity, StageCatalog, input)

		return id, nil
	}

	return "", &NotFoundError{
		Entity: entity.Entity(),
		Input:  input,
		Hint:   entity.NotFoundHint(),
	}
}

// ResolveMany resolves inputs concurrently, at most maxConcurrency at a time,
// and returns IDs in input order. The first failure cancels the rest.
func (r *Resolver) ResolveMany(ctx context.Context, entity EntityResolver, inputs []string) ([]string, error) {
	results := make([]string, len(inputs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.maxConcurrency)

	for index, input := range inputs {
		group.Go(func() error {
			id, err := r.Resolve(groupCtx, entity, input)
			if err != nil {
				return err
			}

			results[index] = id

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	return results, nil
}

// Catalog returns the full node list for entity, from cache when fresh,
// otherwise from a sweep that refreshes the cache.
func (r *Resolver) Catalog(ctx context.Context, entity EntityResolver) ([]any, error) {
	if r.cache != nil && !r.noCache {
		if nodes, ok := r.cachedNodes(ctx, entity); ok {
			return nodes, nil
		}
	}

	nodes, err := r.paginator.PaginateNodes(ctx, entity.CatalogQuery(), PaginationOptions{
		All:      true,
		PageSize: constants.CatalogPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s catalog: %w", entity.Entity(), err)
	}

	r.storeCatalog(ctx, entity, nodes)

	return nodes, nil
}

func (r *Resolver) cachedNodes(ctx context.Context, entity EntityResolver) ([]any, bool) {
	var (
		raw json.RawMessage
		ok  bool
	)

	if key := entity.CacheKey(); key != "" {
		raw, ok = r.cache.GetKeyed(ctx, entity.CacheType(), key)
	} else {
		raw, ok = r.cache.Get(ctx, entity.CacheType())
	}

	if !ok {
		return nil, false
	}

	tree, err := DecodeTree(raw)
	if err != nil {
		return nil, false
	}

	nodes, ok := tree.([]any)

	return nodes, ok
}

func (r *Resolver) storeCatalog(ctx context.Context, entity EntityResolver, nodes []any) {
	if r.cache == nil {
		return
	}

	var err error
	if key := entity.CacheKey(); key != "" {
		err = r.cache.SetKeyed(ctx, entity.CacheType(), key, nodes)
	} else {
		err = r.cache.Set(ctx, entity.CacheType(), nodes)
	}

	if err != nil {
		r.logger.Warn("Failed to update cache", map[string]interface{}{
			"type":  string(entity.CacheType()),
			"error": err.Error(),
		})
	}
}

func (r *Resolver) matched(entity EntityResolver, stage, input string) {
	r.metrics.ResolverStage(entity.Entity(), stage)
	r.logger.Debug("Resolved identifier", map[string]interface{}{
		"entity": entity.Entity(),
		"input":  input,
		"stage":  stage,
	})
}

// MatchFields returns the id of the first node whose field equals input under
// Unicode case folding. Fields are tried in order, so an earlier field beats a
// later one; within a field the first node in server order wins.
func MatchFields(nodes []any, input string, fields ...string) (string, bool) {
	folder := cases.Fold()
	want := folder.String(input)

	for _, field := range fields {
		for _, node := range nodes {
			value := LookupString(node, field)
			if value == "" || folder.String(value) != want {
				continue
			}

			if id := LookupString(node, "id"); id != "" {
				return id, true
			}
		}
	}

	return "", false
}
