package linear

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Lookup walks a decoded JSON tree along path. It returns nil when any
// segment is missing or the tree is not an object at that point.
func Lookup(tree any, path ...string) any {
	current := tree

	for _, segment := range path {
		object, ok := current.(map[string]any)
		if !ok {
			return nil
		}

		current, ok = object[segment]
		if !ok {
			return nil
		}
	}

	return current
}

// LookupString returns the string at path, or "" if absent or not a string.
func LookupString(tree any, path ...string) string {
	value, _ := Lookup(tree, path...).(string)

	return value
}

// LookupBool returns the bool at path, or false.
func LookupBool(tree any, path ...string) bool {
	value, _ := Lookup(tree, path...).(bool)

	return value
}

// LookupNodes returns the list at path. A single object is returned as a
// one-element list so "viewer"-style queries share the list code path. A
// missing or null value yields an empty list.
func LookupNodes(tree any, path ...string) ([]any, error) {
	switch value := Lookup(tree, path...).(type) {
	case nil:
		return []any{}, nil
	case []any:
		return value, nil
	case map[string]any:
		return []any{value}, nil
	default:
		return nil, fmt.Errorf("%w: got %T at %v", ErrInvalidNodes, value, path)
	}
}

// DecodeTree unmarshals raw JSON into a generic tree. Numbers are kept as
// json.Number so large integers survive being written back out.
func DecodeTree(raw []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var tree any

	err := decoder.Decode(&tree)
	if err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}

	_, err = decoder.Token()
	if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding JSON: %w", ErrTrailingJSON)
	}

	return tree, nil
}
