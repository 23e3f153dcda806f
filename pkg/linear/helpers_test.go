package linear_test

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/fivetwenty-io/linctl/pkg/linear"
)

// queryCall records one Query invocation.
type queryCall struct {
	Document  string
	Variables map[string]any
}

// pagedQuerier serves a fixed list of IDs as a cursor connection under
// "items". Cursors are "c<index>".
type pagedQuerier struct {
	mutex sync.Mutex
	ids   []string
	calls []queryCall
	// emptyAfter, when non-negative, serves empty pages after that many calls.
	emptyAfter int
}

func newPagedQuerier(count int) *pagedQuerier {
	ids := make([]string, count)
	for index := range ids {
		ids[index] = fmt.Sprintf("id-%d", index)
	}

	return &pagedQuerier{ids: ids, emptyAfter: -1}
}

func itemsRequest() linear.PageRequest {
	return linear.PageRequest{
		Document:     "query Items($first: Int, $after: String, $last: Int, $before: String) { items { nodes { id } } }",
		NodesPath:    []string{"items", "nodes"},
		PageInfoPath: []string{"items", "pageInfo"},
	}
}

func cursorIndex(cursor any) int {
	value, _ := cursor.(string)

	index, err := strconv.Atoi(strings.TrimPrefix(value, "c"))
	if err != nil {
		return -1
	}

	return index
}

func (q *pagedQuerier) Calls() []queryCall {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return append([]queryCall(nil), q.calls...)
}

func (q *pagedQuerier) Query(ctx context.Context, document string, variables map[string]any) (any, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.calls = append(q.calls, queryCall{Document: document, Variables: variables})

	var start, end int

	if last, ok := variables["last"].(int); ok {
		end = len(q.ids)
		if before, ok := variables["before"]; ok {
			end = cursorIndex(before)
		}

		start = max(0, end-last)
	} else {
		first, _ := variables["first"].(int)
		if after, ok := variables["after"]; ok {
			start = cursorIndex(after) + 1
		}

		end = min(len(q.ids), start+first)
	}

	if q.emptyAfter >= 0 && len(q.calls) > q.emptyAfter {
		end = start
	}

	nodes := make([]any, 0, end-start)
	for _, id := range q.ids[start:end] {
		nodes = append(nodes, map[string]any{"id": id})
	}

	pageInfo := map[string]any{
		"hasNextPage":     end < len(q.ids),
		"hasPreviousPage": start > 0,
		"startCursor":     "c" + strconv.Itoa(start),
		"endCursor":       "c" + strconv.Itoa(end-1),
	}

	return map[string]any{
		"items": map[string]any{"nodes": nodes, "pageInfo": pageInfo},
	}, nil
}

func nodeIDs(nodes []any) []string {
	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		ids = append(ids, linear.LookupString(node, "id"))
	}

	return ids
}
