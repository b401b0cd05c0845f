package grabber

import (
	"fmt"
	"sort"
	"strings"
)

// Args is a frozen set of (name, Arg) bindings with unique keys, used as a
// Method cache key. Two Args with the same bindings compare equal via Key().
type Args struct {
	bindings map[string]*Arg
	order    []string
}

// NewArgs freezes a set of named argument bindings.
func NewArgs(bindings map[string]*Arg) *Args {
	order := make([]string, 0, len(bindings))
	for k := range bindings {
		order = append(order, k)
	}
	sort.Strings(order)
	return &Args{bindings: bindings, order: order}
}

// Get returns the Arg bound to name, or nil.
func (a *Args) Get(name string) *Arg {
	if a == nil {
		return nil
	}
	return a.bindings[name]
}

// Names returns the bound argument names in stable sorted order.
func (a *Args) Names() []string {
	if a == nil {
		return nil
	}
	return a.order
}

// Key returns a deterministic string identifying this binding set, suitable
// for use as a map key alongside pointer identity in the Method cache.
func (a *Args) Key() string {
	if a == nil {
		return ""
	}
	s := ""
	for _, name := range a.order {
		s += name + "=" + argKey(a.bindings[name]) + ";"
	}
	return s
}

func argKey(a *Arg) string {
	if a == nil {
		return "<nil>"
	}
	switch a.Kind {
	case ArgStatic:
		return "static:" + fmt.Sprint(a.Value)
	case ArgMulti:
		return "multi:" + strings.Join(a.Values, ",")
	case ArgLazyCall, ArgCall:
		name := ""
		if a.Method != nil {
			name = a.Method.Name
		}
		return "call:" + name
	case ArgCallOutput:
		return "out:" + argKey(a.Call) + ":" + a.OutputPath.ToJMESPath()
	}
	return "?"
}

// UsedMethods returns the transitive set of Methods referenced by this
// binding set.
func (a *Args) UsedMethods() map[*Method]struct{} {
	out := make(map[*Method]struct{})
	if a == nil {
		return out
	}
	for _, name := range a.order {
		collectUsedMethods(a.bindings[name], out)
	}
	return out
}

func collectUsedMethods(a *Arg, out map[*Method]struct{}) {
	if a == nil {
		return
	}
	if a.Method != nil {
		out[a.Method] = struct{}{}
	}
	if a.BoundArgs != nil {
		for _, name := range a.BoundArgs.order {
			collectUsedMethods(a.BoundArgs.bindings[name], out)
		}
	}
	if a.Call != nil {
		collectUsedMethods(a.Call, out)
	}
}

// ComplexityScore is 1 plus the sum of children's complexity scores.
func (a *Args) ComplexityScore() int {
	if a == nil {
		return 1
	}
	total := 1
	for _, name := range a.order {
		total += argComplexity(a.bindings[name])
	}
	return total
}

func argComplexity(a *Arg) int {
	if a == nil {
		return 0
	}
	total := 1
	if a.BoundArgs != nil {
		total += a.BoundArgs.ComplexityScore()
	}
	if a.Call != nil {
		total += argComplexity(a.Call)
	}
	return total
}
