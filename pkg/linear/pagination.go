package linear

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/internal/metrics"
)

// Direction is the cursor walk direction of one traversal.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// PaginationOptions controls a traversal.
type PaginationOptions struct {
	// Limit caps the number of nodes returned. Nil means no cap.
	Limit *int
	// After starts a forward walk after this cursor.
	After string
	// Before starts a backward walk before this cursor.
	Before string
	// PageSize is the requested page size; zero uses DefaultPageSize.
	PageSize int
	// All keeps fetching until the server reports no more pages.
	All bool
}

// DefaultPaginationOptions returns a single default-sized page.
func DefaultPaginationOptions() PaginationOptions {
	return PaginationOptions{PageSize: constants.DefaultPageSize}
}

// WithLimit returns a copy of the options capped at limit.
func (o PaginationOptions) WithLimit(limit int) PaginationOptions {
	o.Limit = &limit

	return o
}

// Direction returns the walk direction implied by the cursors: backward only
// when Before is set without After.
func (o PaginationOptions) Direction() Direction {
	if o.Before != "" && o.After == "" {
		return Backward
	}

	return Forward
}

// Validate rejects option combinations with no single meaning.
func (o PaginationOptions) Validate() error {
	if o.After != "" && o.Before != "" {
		return ErrConflictingCursors
	}

	if o.PageSize < 0 {
		return constants.ErrInvalidPageSize
	}

	if o.Limit != nil && *o.Limit < 0 {
		return constants.ErrInvalidLimit
	}

	return nil
}

// PageRequest describes a cursor-parameterized GraphQL document. The document
// must declare $first, $after, $last and $before.
type PageRequest struct {
	Document     string
	Variables    map[string]any
	NodesPath    []string
	PageInfoPath []string
}

// PageInfo is the cursor state reported with one page.
type PageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
	StartCursor     string
	EndCursor       string
}

// ParsePageInfo reads a GraphQL PageInfo object.
func ParsePageInfo(tree any) PageInfo {
	return PageInfo{
		HasNextPage:     LookupBool(tree, "hasNextPage"),
		HasPreviousPage: LookupBool(tree, "hasPreviousPage"),
		StartCursor:     LookupString(tree, "startCursor"),
		EndCursor:       LookupString(tree, "endCursor"),
	}
}

// next returns whether more pages exist in direction and the cursor to use.
func (p PageInfo) next(direction Direction) (bool, string) {
	if direction == Backward {
		return p.HasPreviousPage, p.StartCursor
	}

	return p.HasNextPage, p.EndCursor
}

// Paginator drives cursor walks against a Querier.
type Paginator struct {
	querier Querier
	logger  Logger
	metrics *metrics.Collector
}

// PaginatorOption customizes a Paginator.
type PaginatorOption func(*Paginator)

// WithPaginatorLogger sets the diagnostic logger.
func WithPaginatorLogger(logger Logger) PaginatorOption {
	return func(p *Paginator) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPaginatorMetrics records page requests.
func WithPaginatorMetrics(collector *metrics.Collector) PaginatorOption {
	return func(p *Paginator) {
		p.metrics = collector
	}
}

// NewPaginator creates a paginator.
func NewPaginator(querier Querier, opts ...PaginatorOption) *Paginator {
	paginator := &Paginator{
		querier: querier,
		logger:  NopLogger{},
	}

	for _, opt := range opts {
		opt(paginator)
	}

	return paginator
}

// PageHandler receives one page of nodes during streaming.
type PageHandler func(ctx context.Context, nodes []any) error

// PageResult is a materialized traversal.
type PageResult struct {
	Nodes []any
	// PageInfo is the cursor state of the last page fetched, for resuming.
	PageInfo PageInfo
}

// PaginateNodes collects every page of the walk into one slice.
func (p *Paginator) PaginateNodes(ctx context.Context, request PageRequest, opts PaginationOptions) ([]any, error) {
	result, err := p.Paginate(ctx, request, opts)
	if err != nil {
		return nil, err
	}

	return result.Nodes, nil
}

// Paginate is PaginateNodes that also reports where the walk stopped.
func (p *Paginator) Paginate(ctx context.Context, request PageRequest, opts PaginationOptions) (*PageResult, error) {
	collected := make([]any, 0)

	_, pageInfo, err := p.walk(ctx, request, opts, false, func(ctx context.Context, nodes []any) error {
		collected = append(collected, nodes...)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &PageResult{Nodes: collected, PageInfo: pageInfo}, nil
}

// StreamNodes hands each page to handler without retaining it and returns the
// number of nodes delivered. An empty page ends the walk even if the server
// claims more.
func (p *Paginator) StreamNodes(ctx context.Context, request PageRequest, opts PaginationOptions, handler PageHandler) (int, error) {
	delivered, _, err := p.walk(ctx, request, opts, true, handler)

	return delivered, err
}

// walk is the shared cursor loop. Pages are requested strictly one after the
// other since each cursor comes from the previous response.
func (p *Paginator) walk(
	ctx context.Context,
	request PageRequest,
	opts PaginationOptions,
	stopOnEmpty bool,
	handler PageHandler,
) (int, PageInfo, error) {
	var pageInfo PageInfo

	if p.querier == nil {
		return 0, pageInfo, ErrNilQuerier
	}

	err := opts.Validate()
	if err != nil {
		return 0, pageInfo, err
	}

	direction := opts.Direction()

	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = constants.DefaultPageSize
	}

	cursor := opts.After
	if direction == Backward {
		cursor = opts.Before
	}

	delivered := 0

	for {
		size := pageSize
		if opts.Limit != nil {
			remaining := *opts.Limit - delivered
			if remaining <= 0 {
				return delivered, pageInfo, nil
			}

			size = min(size, remaining)
		}

		size = max(1, min(size, constants.MaxPageSize))

		variables := pageVariables(request.Variables, direction, size, cursor)

		p.metrics.PageFetched(string(direction))
		p.logger.Debug("Fetching page", map[string]interface{}{
			"direction": string(direction),
			"size":      size,
			"cursor":    cursor,
		})

		data, err := p.querier.Query(ctx, request.Document, variables)
		if err != nil {
			return delivered, pageInfo, err
		}

		nodes, err := LookupNodes(data, request.NodesPath...)
		if err != nil {
			return delivered, pageInfo, err
		}

		pageInfo = ParsePageInfo(Lookup(data, request.PageInfoPath...))

		if opts.Limit != nil && delivered+len(nodes) > *opts.Limit {
			nodes = nodes[:*opts.Limit-delivered]
		}

		if stopOnEmpty && len(nodes) == 0 {
			return delivered, pageInfo, nil
		}

		err = handler(ctx, nodes)
		if err != nil {
			return delivered, pageInfo, fmt.Errorf("page handler: %w", err)
		}

		delivered += len(nodes)

		if opts.Limit != nil && delivered >= *opts.Limit {
			return delivered, pageInfo, nil
		}

		if !opts.All && opts.Limit == nil {
			return delivered, pageInfo, nil
		}

		hasMore, nextCursor := pageInfo.next(direction)
		if !hasMore || nextCursor == "" {
			return delivered, pageInfo, nil
		}

		cursor = nextCursor
	}
}

// pageVariables copies base and adds the direction's size and cursor
// arguments, never the opposite direction's.
func pageVariables(base map[string]any, direction Direction, size int, cursor string) map[string]any {
	variables := make(map[string]any, len(base)+2)
	for key, value := range base {
		variables[key] = value
	}

	if direction == Backward {
		variables["last"] = size
		if cursor != "" {
			variables["before"] = cursor
		}

		return variables
	}

	variables["first"] = size
	if cursor != "" {
		variables["after"] = cursor
	}

	return variables
}
