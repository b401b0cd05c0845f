package grabber

import (
	"reflect"
	"strings"
)

// ShapeKind classifies the variants of Shape the planner understands, mirroring
// the member kinds exposed by aws-sdk-go-v2's generated API types.
type ShapeKind int

const (
	ShapeScalar ShapeKind = iota
	ShapeString
	ShapeStructure
	ShapeList
	ShapeMap
)

// Member is one named field of a structure Shape.
type Member struct {
	Name     string
	Shape    *Shape
	Required bool
}

// Shape is a view over an aws-sdk-go-v2 generated input/output type,
// discovered via reflection so the planner never needs per-service
// generated glue code.
type Shape struct {
	Kind ShapeKind

	// Structure
	Members  []Member
	required map[string]struct{}

	// List
	Element *Shape

	// Map
	Value *Shape

	// String enum, if any; empty means "not an enum".
	Enum []string

	// Timestamp, integer, long, float, double — kept for documentation and
	// completion purposes, not branched on by the planner itself.
	ScalarKind string
}

// IsEnum reports whether this shape is a string shape with a known value set.
func (s *Shape) IsEnum() bool {
	return s != nil && s.Kind == ShapeString && len(s.Enum) > 0
}

// IsListOfEnum reports whether this shape is a list whose element is an enum.
func (s *Shape) IsListOfEnum() bool {
	return s != nil && s.Kind == ShapeList && s.Element.IsEnum()
}

// RequiredMembers returns the set of required member names for a structure
// shape.
func (s *Shape) RequiredMembers() map[string]struct{} {
	if s == nil {
		return nil
	}
	return s.required
}

// ShapeFromType builds a Shape tree from a Go struct type generated by
// aws-sdk-go-v2's code generator (or smithy-go document types). required
// maps field name to whether that field is required; the SDK tracks
// requiredness via doc comments rather than struct tags, so callers supply
// it out of band.
func ShapeFromType(t reflect.Type, required map[string]bool, cache map[reflect.Type]*Shape) *Shape {
	if cache == nil {
		cache = make(map[reflect.Type]*Shape)
	}

	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if existing, ok := cache[t]; ok {
		return existing
	}

	switch t.Kind() {
	case reflect.Struct:
		s := &Shape{Kind: ShapeStructure, required: make(map[string]struct{})}
		cache[t] = s

		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := jsonFieldName(f)
			if name == "-" {
				continue
			}

			memberShape := ShapeFromType(f.Type, required, cache)
			isRequired := required[f.Name]
			if isRequired {
				s.required[name] = struct{}{}
			}
			s.Members = append(s.Members, Member{Name: name, Shape: memberShape, Required: isRequired})
		}
		return s

	case reflect.Slice, reflect.Array:
		elem := t.Elem()
		if elem.Kind() == reflect.Uint8 {
			s := &Shape{Kind: ShapeScalar, ScalarKind: "blob"}
			cache[t] = s
			return s
		}
		s := &Shape{Kind: ShapeList}
		cache[t] = s
		s.Element = ShapeFromType(elem, required, cache)
		return s

	case reflect.Map:
		s := &Shape{Kind: ShapeMap}
		cache[t] = s
		s.Value = ShapeFromType(t.Elem(), required, cache)
		return s

	case reflect.String:
		s := &Shape{Kind: ShapeString}
		cache[t] = s
		return s

	default:
		s := &Shape{Kind: ShapeScalar, ScalarKind: scalarKindOf(t)}
		cache[t] = s
		return s
	}
}

func scalarKindOf(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "long"
	case reflect.Float32:
		return "float"
	case reflect.Float64:
		return "double"
	case reflect.Bool:
		return "boolean"
	default:
		if t.PkgPath() != "" && strings.Contains(t.String(), "time.Time") {
			return "timestamp"
		}
		return "scalar"
	}
}

// jsonFieldName derives the wire name aws-sdk-go-v2 would use for a field,
// preferring its `locationName` struct tag (used throughout the generated
// SDK types) and falling back to the Go field name.
func jsonFieldName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("locationName"); ok && tag != "" {
		return tag
	}
	if tag, ok := f.Tag.Lookup("json"); ok {
		name := strings.Split(tag, ",")[0]
		if name != "" {
			return name
		}
	}
	return f.Name
}
