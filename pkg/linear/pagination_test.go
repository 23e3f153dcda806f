package linear_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/internal/fake"
	"github.com/fivetwenty-io/linctl/pkg/linear"
)

var errHandlerStop = errors.New("handler stop")

func TestPaginateNodes_SinglePageByDefault(t *testing.T) {
	t.Parallel()

	querier := newPagedQuerier(120)
	paginator := linear.NewPaginator(querier)

	nodes, err := paginator.PaginateNodes(context.Background(), itemsRequest(), linear.DefaultPaginationOptions())
	require.NoError(t, err)

	assert.Len(t, nodes, constants.DefaultPageSize)
	assert.Len(t, querier.Calls(), 1)
}

func TestPaginateNodes_LimitSpansPages(t *testing.T) {
	t.Parallel()

	querier := newPagedQuerier(20)
	paginator := linear.NewPaginator(querier)

	opts := linear.PaginationOptions{PageSize: 5}.WithLimit(7)

	nodes, err := paginator.PaginateNodes(context.Background(), itemsRequest(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"id-0", "id-1", "id-2", "id-3", "id-4", "id-5", "id-6"}, nodeIDs(nodes))

	calls := querier.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 5, calls[0].Variables["first"])
	assert.Equal(t, 2, calls[1].Variables["first"], "second page asks only for the remainder")
	assert.Equal(t, "c4", calls[1].Variables["after"])
}

func TestPaginateNodes_AllStopsWhenNoNextPage(t *testing.T) {
	t.Parallel()

	querier := newPagedQuerier(12)
	paginator := linear.NewPaginator(querier)

	result, err := paginator.Paginate(context.Background(), itemsRequest(), linear.PaginationOptions{PageSize: 5, All: true})
	require.NoError(t, err)

	assert.Len(t, result.Nodes, 12)
	assert.Len(t, querier.Calls(), 3)
	assert.False(t, result.PageInfo.HasNextPage)
	assert.Equal(t, "c11", result.PageInfo.EndCursor)
}

func TestPaginate_ReportsResumeCursor(t *testing.T) {
	t.Parallel()

	querier := newPagedQuerier(30)
	paginator := linear.NewPaginator(querier)

	result, err := paginator.Paginate(context.Background(), itemsRequest(), linear.PaginationOptions{PageSize: 10, After: "c9"})
	require.NoError(t, err)

	assert.Equal(t, "id-10", nodeIDs(result.Nodes)[0])
	assert.True(t, result.PageInfo.HasNextPage)
	assert.Equal(t, "c19", result.PageInfo.EndCursor)
}

func TestPaginateNodes_BackwardUsesLastAndBefore(t *testing.T) {
	t.Parallel()

	querier := newPagedQuerier(20)
	paginator := linear.NewPaginator(querier)

	opts := linear.PaginationOptions{Before: "c15", PageSize: 4, All: true}.WithLimit(6)

	nodes, err := paginator.PaginateNodes(context.Background(), itemsRequest(), opts)
	require.NoError(t, err)
	assert.Len(t, nodes, 6)

	calls := querier.Calls()
	require.Len(t, calls, 2)

	for _, call := range calls {
		assert.NotContains(t, call.Variables, "first")
		assert.NotContains(t, call.Variables, "after")
		assert.Contains(t, call.Variables, "last")
	}

	assert.Equal(t, "c15", calls[0].Variables["before"])
	assert.Equal(t, "c11", calls[1].Variables["before"])
	assert.Equal(t, 2, calls[1].Variables["last"])
}

func TestPaginateNodes_ForwardNeverSendsBackwardArguments(t *testing.T) {
	t.Parallel()

	querier := newPagedQuerier(10)
	paginator := linear.NewPaginator(querier)

	_, err := paginator.PaginateNodes(context.Background(), itemsRequest(), linear.PaginationOptions{PageSize: 3, All: true})
	require.NoError(t, err)

	for _, call := range querier.Calls() {
		assert.NotContains(t, call.Variables, "last")
		assert.NotContains(t, call.Variables, "before")
	}
}

func TestPaginateNodes_ConflictingCursorsRejectedBeforeRequest(t *testing.T) {
	t.Parallel()

	querier := newPagedQuerier(10)
	paginator := linear.NewPaginator(querier)

	_, err := paginator.PaginateNodes(context.Background(), itemsRequest(), linear.PaginationOptions{After: "c1", Before: "c5"})
	require.ErrorIs(t, err, linear.ErrConflictingCursors)
	assert.Empty(t, querier.Calls())
}

func TestPaginateNodes_KeepsBaseVariables(t *testing.T) {
	t.Parallel()

	querier := newPagedQuerier(3)
	paginator := linear.NewPaginator(querier)

	request := itemsRequest()
	request.Variables = map[string]any{"teamId": "team-1"}

	_, err := paginator.PaginateNodes(context.Background(), request, linear.DefaultPaginationOptions())
	require.NoError(t, err)

	calls := querier.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "team-1", calls[0].Variables["teamId"])
	assert.NotContains(t, request.Variables, "first", "base variables are not mutated")
}

func TestPaginateNodes_ClampsPageSize(t *testing.T) {
	t.Parallel()

	querier := newPagedQuerier(5)
	paginator := linear.NewPaginator(querier)

	_, err := paginator.PaginateNodes(context.Background(), itemsRequest(), linear.PaginationOptions{PageSize: 10_000})
	require.NoError(t, err)

	assert.Equal(t, constants.MaxPageSize, querier.Calls()[0].Variables["first"])
}

func TestStreamNodes_DeliversPagesInOrder(t *testing.T) {
	t.Parallel()

	querier := newPagedQuerier(11)
	paginator := linear.NewPaginator(querier)

	var pages [][]string

	count, err := paginator.StreamNodes(context.Background(), itemsRequest(), linear.PaginationOptions{PageSize: 4, All: true},
		func(ctx context.Context, nodes []any) error {
			pages = append(pages, nodeIDs(nodes))

			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, 11, count)
	require.Len(t, pages, 3)
	assert.Equal(t, []string{"id-0", "id-1", "id-2", "id-3"}, pages[0])
	assert.Equal(t, []string{"id-8", "id-9", "id-10"}, pages[2])
}

func TestStreamNodes_StopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	querier := newPagedQuerier(100)
	querier.emptyAfter = 2
	paginator := linear.NewPaginator(querier)

	handled := 0

	count, err := paginator.StreamNodes(context.Background(), itemsRequest(), linear.PaginationOptions{PageSize: 10, All: true},
		func(ctx context.Context, nodes []any) error {
			handled++

			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, 20, count)
	assert.Equal(t, 2, handled, "the empty page is not handed to the handler")
	assert.Len(t, querier.Calls(), 3)
}

func TestStreamNodes_HandlerErrorIsWrapped(t *testing.T) {
	t.Parallel()

	querier := newPagedQuerier(30)
	paginator := linear.NewPaginator(querier)

	count, err := paginator.StreamNodes(context.Background(), itemsRequest(), linear.PaginationOptions{PageSize: 10, All: true},
		func(ctx context.Context, nodes []any) error {
			return errHandlerStop
		})

	require.ErrorIs(t, err, errHandlerStop)
	assert.Contains(t, err.Error(), "page handler")
	assert.Zero(t, count)
	assert.Len(t, querier.Calls(), 1)
}

// cursorlessQuerier always answers with ten nodes and claims more pages in
// both directions without ever supplying a cursor.
func cursorlessQuerier(t *testing.T) *fake.Transport {
	t.Helper()

	nodes := make([]map[string]any, 10)
	for index := range nodes {
		nodes[index] = map[string]any{"id": fmt.Sprintf("id-%d", index)}
	}

	page := fake.Connection("items", nodes...)
	page["items"].(map[string]any)["pageInfo"] = map[string]any{"hasNextPage": true, "hasPreviousPage": true}

	querier := fake.NewTransport(t)
	querier.OnQuery("Items").Return(page, nil)

	return querier
}

func TestPaginateNodes_StopsWithoutCursor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts linear.PaginationOptions
	}{
		{"forward", linear.PaginationOptions{PageSize: 5, All: true}},
		{"backward", linear.PaginationOptions{PageSize: 5, All: true, Before: "c50"}},
	}

	for _, tt := range tests {
		querier := cursorlessQuerier(t)
		paginator := linear.NewPaginator(querier)

		nodes, err := paginator.PaginateNodes(context.Background(), itemsRequest(), tt.opts)
		require.NoError(t, err, tt.name)
		assert.Len(t, nodes, 10, tt.name)
		querier.AssertNumberOfCalls(t, "Query", 1)
	}
}

func TestStreamNodes_StopsWithoutCursor(t *testing.T) {
	t.Parallel()

	querier := cursorlessQuerier(t)
	paginator := linear.NewPaginator(querier)

	pages := 0
	delivered, err := paginator.StreamNodes(context.Background(), itemsRequest(),
		linear.PaginationOptions{PageSize: 5, All: true},
		func(_ context.Context, nodes []any) error {
			pages++

			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 10, delivered)
	assert.Equal(t, 1, pages)
	querier.AssertNumberOfCalls(t, "Query", 1)
}

func TestPaginateNodes_TrimsOversizedPageToLimit(t *testing.T) {
	t.Parallel()

	querier := cursorlessQuerier(t)
	paginator := linear.NewPaginator(querier)

	nodes, err := paginator.PaginateNodes(context.Background(), itemsRequest(),
		linear.DefaultPaginationOptions().WithLimit(3))
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "id-2", linear.LookupString(nodes[2], "id"))
	querier.AssertNumberOfCalls(t, "Query", 1)
}

func TestStreamNodes_TrimsOversizedPageToLimit(t *testing.T) {
	t.Parallel()

	querier := cursorlessQuerier(t)
	paginator := linear.NewPaginator(querier)

	var received []any
	delivered, err := paginator.StreamNodes(context.Background(), itemsRequest(),
		linear.DefaultPaginationOptions().WithLimit(3),
		func(_ context.Context, nodes []any) error {
			received = append(received, nodes...)

			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, delivered)
	assert.Len(t, received, 3)
	querier.AssertNumberOfCalls(t, "Query", 1)
}

func TestPaginationOptions_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, linear.DefaultPaginationOptions().Validate())
	assert.ErrorIs(t, linear.PaginationOptions{PageSize: -1}.Validate(), constants.ErrInvalidPageSize)
	assert.ErrorIs(t, linear.PaginationOptions{}.WithLimit(-3).Validate(), constants.ErrInvalidLimit)

	assert.Equal(t, linear.Forward, linear.PaginationOptions{After: "x"}.Direction())
	assert.Equal(t, linear.Backward, linear.PaginationOptions{Before: "x"}.Direction())
	assert.Equal(t, linear.Forward, linear.PaginationOptions{}.Direction())
}

func TestPaginator_NilQuerier(t *testing.T) {
	t.Parallel()

	paginator := linear.NewPaginator(nil)

	_, err := paginator.PaginateNodes(context.Background(), itemsRequest(), linear.DefaultPaginationOptions())
	require.ErrorIs(t, err, linear.ErrNilQuerier)
}
