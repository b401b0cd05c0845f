package grabber

import "strings"

// starSegment is the distinguished path segment meaning "iterate
// elements/values at this point".
const starSegment = "*"

// OutputPath is an ordered tuple of segments identifying a leaf value inside
// a Shape tree, with "*" marking a list/map iteration point.
type OutputPath struct {
	segments []string
}

// NewOutputPath builds a path from its segments.
func NewOutputPath(segments ...string) OutputPath {
	return OutputPath{segments: append([]string{}, segments...)}
}

// Append returns a new path with seg appended.
func (p OutputPath) Append(seg string) OutputPath {
	next := make([]string, len(p.segments)+1)
	copy(next, p.segments)
	next[len(p.segments)] = seg
	return OutputPath{segments: next}
}

// Segments returns the path's raw segment tuple.
func (p OutputPath) Segments() []string {
	return p.segments
}

// FromShape enumerates every leaf path of a shape tree: structures recurse
// per member, lists/maps append "*" then recurse into their element/value
// shape, and scalars yield a single leaf.
func FromShape(s *Shape) []struct {
	Path  OutputPath
	Shape *Shape
} {
	var out []struct {
		Path  OutputPath
		Shape *Shape
	}
	walkShape(s, OutputPath{}, &out)
	return out
}

func walkShape(s *Shape, prefix OutputPath, out *[]struct {
	Path  OutputPath
	Shape *Shape
}) {
	if s == nil {
		return
	}

	switch s.Kind {
	case ShapeStructure:
		for _, m := range s.Members {
			walkShape(m.Shape, prefix.Append(m.Name), out)
		}
	case ShapeList:
		walkShape(s.Element, prefix.Append(starSegment), out)
	case ShapeMap:
		walkShape(s.Value, prefix.Append(starSegment), out)
	default:
		*out = append(*out, struct {
			Path  OutputPath
			Shape *Shape
		}{Path: prefix, Shape: s})
	}
}

// NonBranching strips every "*" segment.
func (p OutputPath) NonBranching() OutputPath {
	out := make([]string, 0, len(p.segments))
	for _, s := range p.segments {
		if s != starSegment {
			out = append(out, s)
		}
	}
	return OutputPath{segments: out}
}

// ForScoring tokenises the non-branching form of the path, used to feed
// KeySpec.Score.
func (p OutputPath) ForScoring() []Token {
	nb := p.NonBranching()
	var tokens []Token
	for _, seg := range nb.segments {
		tokens = append(tokens, tokenise(seg)...)
	}
	return tokens
}

// ToJMESPath renders segments as ".field"/"[]", stripping the leading ".".
func (p OutputPath) ToJMESPath() string {
	var b strings.Builder
	for _, seg := range p.segments {
		if seg == starSegment {
			b.WriteString("[]")
			continue
		}
		b.WriteString(".")
		b.WriteString(seg)
	}
	return strings.TrimPrefix(b.String(), ".")
}
