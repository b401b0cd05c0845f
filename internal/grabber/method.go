package grabber

import "strings"

// cacheEntry is one outcome recorded against an Args key in a Method's
// resolution cache.
type cacheEntry struct {
	resolved       *Args // nil means "no plan found"
	excludedMethod map[string]struct{}
	usedKeys       map[string]struct{}
}

// Method is a named read-only operation of one Service.
type Method struct {
	Name     string
	Path     []Token // tokenised name, verb prefix stripped
	Service  *Service
	Requires map[string]*Shape // required input members by name
	Output   *Shape             // output shape tree

	// Invoke performs the underlying SDK call for this method with the given
	// resolved Args, returning one page of raw results per invocation. The
	// planner never calls this directly during search; it is only used by
	// Executor.Execute once a plan has been chosen.
	Invoke func(args *Args, pageToken string) (page any, nextToken string, err error)

	cache map[string][]cacheEntry
}

// NewMethod constructs a Method. name is the SDK operation name, e.g.
// "ListBuckets" or "DescribeInstances".
func NewMethod(name string, svc *Service, requires map[string]*Shape, output *Shape) *Method {
	return &Method{
		Name:     name,
		Path:     verbStrippedTokens(name),
		Service:  svc,
		Requires: requires,
		Output:   output,
		cache:    make(map[string][]cacheEntry),
	}
}

func verbStrippedTokens(name string) []Token {
	tokens := tokenise(name)
	if len(tokens) > 0 {
		if _, isVerb := verbPrefixes[tokens[0]]; isVerb {
			return tokens[1:]
		}
	}
	return tokens
}

// HowToGet produces the lazy CallOutputs this method can offer for key.
func (m *Method) HowToGet(key string, method string, shape *Shape, args *Args, excludedMethods map[string]struct{}, usedKeys map[string]struct{}) []*Arg {
	if shape.IsEnum() {
		return []*Arg{MultiArg(shape.Enum)}
	}
	if shape.IsListOfEnum() {
		return []*Arg{MultiArg(shape.Element.Enum)}
	}

	nextUsedKeys := cloneKeySet(usedKeys)
	keySpec := MakeKeySpec(key, "").WithoutFormat()
	nextUsedKeys[keyString(keySpec)] = struct{}{}

	for name := range m.Requires {
		required := MakeKeySpec(name, "").WithoutFormat()
		if _, used := nextUsedKeys[keyString(required)]; used {
			return nil // cycle: method would require a key already being pursued higher up the chain
		}
	}

	methodKeySpec := MakeKeySpec(key, method)
	methodScore := methodKeySpec.Score(m.Path)

	var out []*Arg
	for _, leaf := range FromShape(m.Output) {
		pathScore := methodKeySpec.Score(append(append([]Token{}, m.Path...), leaf.Path.ForScoring()...))
		if pathScore == nil {
			continue
		}
		lazy := LazyCallArg(m, args, excludedMethods, nextUsedKeys)
		out = append(out, CallOutputArg(lazy, leaf.Path, methodScore, pathScore, leaf.Shape))
	}
	return out
}

func keyString(ks *KeySpec) string {
	return joinTokens(ks.Tokens())
}

func cloneKeySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func cloneMethodSet(in map[string]struct{}) map[string]struct{} {
	return cloneKeySet(in)
}

// HowToCall resolves this method's required inputs into a usable Args, or
// returns nil if any required input cannot be resolved.
func (m *Method) HowToCall(args *Args, excludedMethods map[string]struct{}, usedKeys map[string]struct{}) *Args {
	key := ""
	if args != nil {
		key = args.Key()
	}

	if entries, ok := m.cache[key]; ok {
		for _, e := range entries {
			if setEqual(e.excludedMethod, excludedMethods) {
				return e.resolved
			}
			if e.resolved != nil && isSubset(e.excludedMethod, excludedMethods) && isSubset(e.usedKeys, usedKeys) {
				if setsDisjointFromUsedMethods(e.resolved, excludedMethods) {
					return e.resolved
				}
			}
		}
	}

	nextExcluded := cloneMethodSet(excludedMethods)
	nextExcluded[m.Name] = struct{}{}

	bindings := map[string]*Arg{}
	if args != nil {
		for _, name := range args.order {
			bindings[name] = args.bindings[name]
		}
	}

	for name, shape := range m.Requires {
		if _, bound := bindings[name]; bound {
			continue
		}

		candidates := m.Service.HowToGet(name, m.Name, shape, NewArgs(bindings), nextExcluded, usedKeys)
		if len(candidates) == 0 {
			m.recordCache(key, nil, excludedMethods, usedKeys)
			return nil
		}
		bindings[name] = candidates[0]
	}

	resolved := NewArgs(bindings)
	m.recordCache(key, resolved, excludedMethods, usedKeys)
	return resolved
}

func (m *Method) recordCache(key string, resolved *Args, excludedMethods, usedKeys map[string]struct{}) {
	m.cache[key] = append(m.cache[key], cacheEntry{
		resolved:       resolved,
		excludedMethod: cloneMethodSet(excludedMethods),
		usedKeys:       cloneKeySet(usedKeys),
	})
}

func setsDisjointFromUsedMethods(resolved *Args, excluded map[string]struct{}) bool {
	for method := range resolved.UsedMethods() {
		if _, ok := excluded[method.Name]; ok {
			return false
		}
	}
	return true
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func isSubset(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// verbOf returns the verb prefix of an operation name, e.g. "list" for
// "ListBuckets".
func verbOf(commandName string) string {
	tokens := tokenise(commandName)
	if len(tokens) == 0 {
		return ""
	}
	return strings.ToLower(string(tokens[0]))
}
