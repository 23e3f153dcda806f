// Package fake provides a testify mock of linear.Transport for tests.
package fake

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"
)

// Transport implements linear.Transport for testing. Expectations are
// registered with On("Query", ctx, document, variables); Operation and
// Variable build matchers for the last two arguments.
//
// Return accepts either (data, err) or a single
// func(variables map[string]any) (any, error) when the answer depends on the
// request.
type Transport struct {
	mock.Mock
}

// NewTransport creates a mock reporting unexpected calls to t.
func NewTransport(t mock.TestingT) *Transport {
	transport := &Transport{}
	transport.Test(t)

	return transport
}

// OnQuery expects the query operation named operation with any variables.
func (m *Transport) OnQuery(operation string) *mock.Call {
	return m.On("Query", mock.Anything, Operation(operation), mock.Anything)
}

// OnMutate expects the mutation named operation with any variables.
func (m *Transport) OnMutate(operation string) *mock.Call {
	return m.On("Mutate", mock.Anything, Operation(operation), mock.Anything)
}

// Query implements linear.Querier.
func (m *Transport) Query(ctx context.Context, document string, variables map[string]any) (any, error) {
	args := m.Called(ctx, document, variables)

	return respond(args, variables)
}

// Mutate implements linear.Mutator.
func (m *Transport) Mutate(ctx context.Context, document string, variables map[string]any) (any, error) {
	args := m.Called(ctx, document, variables)

	return respond(args, variables)
}

// FetchBytes implements linear.ByteFetcher.
func (m *Transport) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]byte), args.Error(1)
}

// Count returns how many Query or Mutate calls named operation were made.
// Call it after the code under test has returned.
func (m *Transport) Count(operation string) int {
	count := 0

	for _, call := range m.Calls {
		if call.Method != "Query" && call.Method != "Mutate" {
			continue
		}

		if document, ok := call.Arguments.Get(1).(string); ok && OperationName(document) == operation {
			count++
		}
	}

	return count
}

func respond(args mock.Arguments, variables map[string]any) (any, error) {
	if fn, ok := args.Get(0).(func(map[string]any) (any, error)); ok {
		return fn(variables)
	}

	return args.Get(0), args.Error(1)
}

// Operation matches a GraphQL document by operation name.
func Operation(name string) interface{} {
	return mock.MatchedBy(func(document string) bool {
		return OperationName(document) == name
	})
}

// Variable matches variables whose key equals value. A nil value matches an
// absent key.
func Variable(key string, value any) interface{} {
	return mock.MatchedBy(func(variables map[string]any) bool {
		return variables[key] == value
	})
}

// OperationName extracts the name from `query Name(...)` or `mutation Name {`.
func OperationName(document string) string {
	fields := strings.Fields(document)
	if len(fields) < 2 {
		return ""
	}

	name, _, _ := strings.Cut(fields[1], "(")

	return name
}

// Connection builds a single-page connection response under root.
func Connection(root string, nodes ...map[string]any) map[string]any {
	list := make([]any, 0, len(nodes))
	for _, node := range nodes {
		list = append(list, node)
	}

	return map[string]any{
		root: map[string]any{
			"nodes":    list,
			"pageInfo": map[string]any{"hasNextPage": false, "hasPreviousPage": false},
		},
	}
}
