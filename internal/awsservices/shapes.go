package awsservices

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/antigravity-dev/warmcli/internal/grabber"
)

// toGenericPage round-trips a generated SDK output struct through
// encoding/json so the planner's output-path walker (which operates on
// map[string]any/[]any, not concrete generated types) can traverse it. The
// generated structs carry no json tags, so the default field-name encoding
// lines up with Shape's own field naming (which falls back to the Go field
// name under the same condition).
func toGenericPage(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("awsservices: marshal page: %w", err)
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, fmt.Errorf("awsservices: unmarshal page: %w", err)
	}
	return generic, nil
}

// requiredMemberShapes builds a Method.Requires map for a handful of a
// struct's own fields, by Go field name, each reflected independently of the
// struct's other (optional) members.
func requiredMemberShapes(t reflect.Type, cache map[reflect.Type]*grabber.Shape, fieldNames ...string) map[string]*grabber.Shape {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	out := make(map[string]*grabber.Shape, len(fieldNames))
	for _, name := range fieldNames {
		f, ok := t.FieldByName(name)
		if !ok {
			continue
		}
		out[name] = grabber.ShapeFromType(f.Type, nil, cache)
	}
	return out
}
