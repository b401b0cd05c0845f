package grabber

import (
	"sort"
	"strings"
)

// MethodFactory builds a Method by name on first reference, supplying its
// required-input shapes and output shape tree. Implementations typically
// wrap a generated aws-sdk-go-v2 service client's operation metadata.
type MethodFactory func(svc *Service, name string) (*Method, bool)

// Service is a named cloud service namespace owning a Method factory and a
// cache of lazily constructed Methods.
type Service struct {
	Name      string
	factory   MethodFactory
	methods   map[string]*Method
	allMethodNames []string
}

// NewService constructs a Service. allMethodNames lists every read-only
// operation name the service exposes (its "list"/"describe"/"get" surface);
// factory constructs a Method for one of those names on first reference.
func NewService(name string, allMethodNames []string, factory MethodFactory) *Service {
	return &Service{
		Name:           name,
		factory:        factory,
		methods:        make(map[string]*Method),
		allMethodNames: allMethodNames,
	}
}

// MethodByName returns the (memoised) Method for name, constructing it via
// the factory on first reference.
func (s *Service) MethodByName(name string) (*Method, bool) {
	if m, ok := s.methods[name]; ok {
		return m, true
	}
	m, ok := s.factory(s, name)
	if !ok {
		return nil, false
	}
	s.methods[name] = m
	return m, true
}

type bucket int

const (
	bucketBest bucket = iota
	bucketBestMethod
	bucketGood
	bucketBad
)

// HowToGet is the planner's entry point: given a key name and (optionally) a
// shape and a calling method, it returns the best-scoring resolved plan it
// can find, partitioning candidate methods into four buckets and stopping at
// the first bucket that yields a resolved group.
func (s *Service) HowToGet(key string, method string, shape *Shape, args *Args, excludedMethods map[string]struct{}, usedKeys map[string]struct{}) []*Arg {
	if shape.IsEnum() {
		return []*Arg{MultiArg(shape.Enum)}
	}
	if shape.IsListOfEnum() {
		return []*Arg{MultiArg(shape.Element.Enum)}
	}

	keySpec := MakeKeySpec(key, "")
	methodKeySpec := MakeKeySpec(key, method)

	buckets := map[bucket][]*Method{}
	for _, name := range s.allMethodNames {
		if _, excluded := excludedMethods[name]; excluded {
			continue
		}
		if !isReadOnlyVerb(name) {
			continue
		}

		m, ok := s.MethodByName(name)
		if !ok {
			continue
		}

		switch {
		case matcherEqualsPath(keySpec, m.Path):
			buckets[bucketBest] = append(buckets[bucketBest], m)
		case matcherEqualsPath(methodKeySpec, m.Path):
			buckets[bucketBestMethod] = append(buckets[bucketBestMethod], m)
		case keySpec.Matches(m.Path):
			buckets[bucketGood] = append(buckets[bucketGood], m)
		default:
			buckets[bucketBad] = append(buckets[bucketBad], m)
		}
	}

	for _, b := range []bucket{bucketBest, bucketBestMethod, bucketGood, bucketBad} {
		methods := buckets[b]
		if len(methods) == 0 {
			continue
		}

		isBestBucket := b == bucketBest || b == bucketBestMethod

		candidates := s.collectCandidates(methods, key, method, shape, args, excludedMethods, usedKeys, isBestBucket)
		groups := groupByQuickScore(candidates)

		for _, group := range groups {
			resolved := resolveGroup(group)
			if len(resolved) > 0 {
				return sortByFullScore(resolved, args)
			}
		}
	}

	return nil
}

func isReadOnlyVerb(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "list") || strings.HasPrefix(lower, "describe") || strings.HasPrefix(lower, "get")
}

func matcherEqualsPath(ks *KeySpec, path []Token) bool {
	for _, m := range ks.matchers {
		if m.pattern == joinTokens(path) {
			return true
		}
	}
	return false
}

// quickScoreKey is (-len(method.requires), path_score, method_score): a
// simpler required-input set wins outright, ahead of path/method score, per
// spec §4.4's `(-len(requires), quick_score(k))` ordering.
type quickScoreKey struct {
	negRequires int
	ps          [3]int
	ms          [3]int
}

type candidate struct {
	arg        *Arg
	quickScore quickScoreKey
}

func (s *Service) collectCandidates(methods []*Method, key, method string, shape *Shape, args *Args, excludedMethods, usedKeys map[string]struct{}, isBestBucket bool) []candidate {
	var out []candidate
	for _, m := range methods {
		negRequires := 0
		if isBestBucket {
			negRequires = -len(m.Requires)
		}
		for _, arg := range m.HowToGet(key, method, shape, args, excludedMethods, usedKeys) {
			ps, ms := arg.QuickScore()
			out = append(out, candidate{arg: arg, quickScore: quickScoreKey{negRequires: negRequires, ps: ps, ms: ms}})
		}
	}
	return out
}

func groupByQuickScore(candidates []candidate) [][]candidate {
	groups := map[quickScoreKey][]candidate{}
	var keys []quickScoreKey
	for _, c := range candidates {
		if _, ok := groups[c.quickScore]; !ok {
			keys = append(keys, c.quickScore)
		}
		groups[c.quickScore] = append(groups[c.quickScore], c)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return quickScoreLess(keys[j], keys[i])
	})

	out := make([][]candidate, len(keys))
	for i, k := range keys {
		out[i] = groups[k]
	}
	return out
}

func quickScoreLess(a, b quickScoreKey) bool {
	if a.negRequires != b.negRequires {
		return a.negRequires < b.negRequires
	}
	if scoreLess(a.ps, b.ps) {
		return true
	}
	if scoreLess(b.ps, a.ps) {
		return false
	}
	return scoreLess(a.ms, b.ms)
}

func resolveGroup(group []candidate) []*Arg {
	var resolved []*Arg
	for _, c := range group {
		if r := c.arg.Unlazy(); r != nil {
			resolved = append(resolved, r)
		}
	}
	return resolved
}

func sortByFullScore(resolved []*Arg, args *Args) []*Arg {
	sort.SliceStable(resolved, func(i, j int) bool {
		fi := resolved[i].FullScore(args)
		fj := resolved[j].FullScore(args)
		for k := range fi {
			if fi[k] != fj[k] {
				return fi[k] > fj[k]
			}
		}
		return false
	})
	return resolved
}
