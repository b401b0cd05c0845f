package grabber

import (
	"sort"
	"strings"
)

// idFormats are the recognised identifier format suffix tokens, such as "arn"
// or "id". KeySpec matchers are generated once per format, plus once for "no
// format", so that e.g. "bucket name" and "bucket arn" both have a chance to
// match a caller's raw key.
var idFormats = []Token{"id", "name", "arn", "code", "list", "identifier"}

// matcher is one scored pattern a KeySpec will try against a candidate token
// sequence. Score is (length, correct_format_bit, not_suffix_bit): longer,
// better-formatted, non-suffix-derived matches win ties.
type matcher struct {
	pattern string
	score   [3]int
}

// KeySpec is an ordered, frozen tuple of tokens derived from a raw identifier
// (and optionally a method name), together with its cached matcher list.
type KeySpec struct {
	tokens   []Token
	format   Token // trailing format suffix, or "" if none
	matchers []matcher
}

// verbPrefixes are stripped from a method name before its tokens are
// prepended to a KeySpec — "list", "describe", "get" name the operation, not
// the data it returns.
var verbPrefixes = map[Token]struct{}{
	"list": {}, "describe": {}, "get": {},
}

// MakeKeySpec derives a KeySpec from a raw key and an optional method name.
// The method's tokens (excluding its verb prefix) are prepended so that
// e.g. method "ListBuckets" key "name" becomes the token sequence
// [bucket, name].
func MakeKeySpec(key string, method string) *KeySpec {
	tokens := tokenise(key)

	if method != "" {
		methodTokens := tokenise(method)
		if len(methodTokens) > 0 {
			if _, isVerb := verbPrefixes[methodTokens[0]]; isVerb {
				methodTokens = methodTokens[1:]
			}
		}
		tokens = append(append([]Token{}, methodTokens...), tokens...)
	}

	ks := &KeySpec{tokens: tokens}
	ks.detectFormat()
	ks.buildMatchers()
	return ks
}

func (ks *KeySpec) detectFormat() {
	if len(ks.tokens) == 0 {
		return
	}
	last := ks.tokens[len(ks.tokens)-1]
	for _, f := range idFormats {
		if last == f {
			ks.format = f
			return
		}
	}
}

// WithoutFormat returns a copy of the spec with its trailing format token
// removed, used when checking for required-key cycles.
func (ks *KeySpec) WithoutFormat() *KeySpec {
	if ks.format == "" {
		return ks
	}
	prefix := ks.tokens[:len(ks.tokens)-1]
	out := &KeySpec{tokens: append([]Token{}, prefix...)}
	out.detectFormat()
	out.buildMatchers()
	return out
}

// nonFormatPrefix is the token tuple minus a trailing recognised format.
func (ks *KeySpec) nonFormatPrefix() []Token {
	if ks.format == "" {
		return ks.tokens
	}
	return ks.tokens[:len(ks.tokens)-1]
}

func (ks *KeySpec) buildMatchers() {
	prefix := ks.nonFormatPrefix()
	var out []matcher

	for l := 1; l <= len(prefix); l++ {
		for start := 0; start+l <= len(prefix); start++ {
			window := prefix[start : start+l]

			// "no format" variant.
			out = append(out, matcher{
				pattern: joinTokens(window),
				score:   [3]int{l, 0, 1},
			})

			for _, f := range idFormats {
				withFormat := append(append([]Token{}, window...), f)
				correct := 0
				if f == ks.format {
					correct = 1
				}
				out = append(out, matcher{
					pattern: joinTokens(withFormat),
					score:   [3]int{l, correct, 1},
				})
			}
		}
	}

	// Suffix variants: every matcher also gets a "<pattern>key" form with the
	// not_suffix bit zeroed.
	suffixed := make([]matcher, 0, len(out))
	for _, m := range out {
		s := m.score
		s[2] = 0
		suffixed = append(suffixed, matcher{
			pattern: m.pattern + " key",
			score:   s,
		})
	}
	out = append(out, suffixed...)

	sort.SliceStable(out, func(i, j int) bool {
		return scoreLess(out[j].score, out[i].score)
	})

	ks.matchers = out
}

func scoreLess(a, b [3]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func joinTokens(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = string(t)
	}
	return strings.Join(parts, " ")
}

// Score returns the highest-scoring matcher whose pattern is a suffix of the
// space-padded, space-joined items, or nil if none matches.
func (ks *KeySpec) Score(items []Token) *[3]int {
	padded := " " + joinTokens(items) + " "
	for _, m := range ks.matchers {
		pattern := " " + m.pattern + " "
		if strings.HasSuffix(padded, pattern) {
			score := m.score
			return &score
		}
	}
	return nil
}

// Matches reports whether any token in items also appears in the spec — the
// loose "good" bucket test used by Service.how_to_get.
func (ks *KeySpec) Matches(items []Token) bool {
	set := make(map[Token]struct{}, len(ks.tokens))
	for _, t := range ks.tokens {
		set[t] = struct{}{}
	}
	for _, t := range items {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// Tokens returns the spec's underlying token tuple.
func (ks *KeySpec) Tokens() []Token {
	return ks.tokens
}

// Equal reports whether two KeySpecs have identical token sequences.
func (ks *KeySpec) Equal(other *KeySpec) bool {
	if other == nil || len(ks.tokens) != len(other.tokens) {
		return false
	}
	for i := range ks.tokens {
		if ks.tokens[i] != other.tokens[i] {
			return false
		}
	}
	return true
}
