package linear_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/linctl/pkg/linear"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tree, err := linear.DecodeTree([]byte(`{"viewer":{"id":"u1","isMe":true,"team":null,"count":3}}`))
	require.NoError(t, err)

	assert.Equal(t, "u1", linear.LookupString(tree, "viewer", "id"))
	assert.True(t, linear.LookupBool(tree, "viewer", "isMe"))
	assert.Nil(t, linear.Lookup(tree, "viewer", "team", "id"))
	assert.Nil(t, linear.Lookup(tree, "missing"))
	assert.Empty(t, linear.LookupString(tree, "viewer", "count"))
	assert.Equal(t, tree, linear.Lookup(tree))
}

func TestLookupNodes(t *testing.T) {
	t.Parallel()

	tree, err := linear.DecodeTree([]byte(`{"teams":{"nodes":[{"id":"a"},{"id":"b"}]},"viewer":{"id":"me"},"bad":{"nodes":"x"}}`))
	require.NoError(t, err)

	nodes, err := linear.LookupNodes(tree, "teams", "nodes")
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	nodes, err = linear.LookupNodes(tree, "viewer")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "me", linear.LookupString(nodes[0], "id"))

	nodes, err = linear.LookupNodes(tree, "projects", "nodes")
	require.NoError(t, err)
	assert.Empty(t, nodes)

	_, err = linear.LookupNodes(tree, "bad", "nodes")
	require.ErrorIs(t, err, linear.ErrInvalidNodes)
}

func TestDecodeTree_Invalid(t *testing.T) {
	t.Parallel()

	_, err := linear.DecodeTree([]byte(`{`))
	require.Error(t, err)

	_, err = linear.DecodeTree([]byte(`{"a":1} {"b":2}`))
	require.ErrorIs(t, err, linear.ErrTrailingJSON)
}

func TestDecodeTree_KeepsLargeIntegers(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"issue":{"number":9007199254740993,"estimate":0.5}}`)

	tree, err := linear.DecodeTree(raw)
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), linear.Lookup(tree, "issue", "number"))

	encoded, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(encoded))
	assert.Contains(t, string(encoded), "9007199254740993")
}
