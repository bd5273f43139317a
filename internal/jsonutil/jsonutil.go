// Package jsonutil implements the `json_get`/`json_set` intrinsics'
// path-based JSON access, grounded on gjson/sjson rather than
// encoding/json so that a path can address nested documents without an
// intermediate struct/map translation layer.
package jsonutil

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Result mirrors the handful of JSON shapes that `json_get` maps onto
// an L3 value: the caller (internal/interp) is responsible for boxing
// these into vm.Value.
type Result struct {
	Kind   gjson.Type
	Str    string
	Num    float64
	Bool   bool
	Array  []gjson.Result
	Exists bool
}

// Get reads path out of the JSON document doc.
func Get(doc, path string) Result {
	r := gjson.Get(doc, path)
	return Result{
		Kind:   r.Type,
		Str:    r.Str,
		Num:    r.Num,
		Bool:   r.Bool(),
		Array:  r.Array(),
		Exists: r.Exists(),
	}
}

// Set returns a new JSON document with path set to value.
func Set(doc, path string, value any) (string, error) {
	out, err := sjson.Set(doc, path, value)
	if err != nil {
		return "", fmt.Errorf("json_set: %w", err)
	}
	return out, nil
}
