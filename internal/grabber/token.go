package grabber

import (
	"strings"
	"unicode"
)

// Token is a lower-case, singularised English-like word used to build and
// match KeySpecs.
type Token string

var irregularSuffixes = []struct {
	suffix      string
	replacement string
}{
	{"ies", "y"},
	{"aliases", "alias"},
	{"indices", "index"},
}

var noStripEsSuffixes = []string{"addresses", "prefixes", "patches"}

var noStripSSuffixes = []string{"ss", "bus", "status", "alias", "analysis"}

// singularise reduces a plural-looking word to its singular form using the
// same small rule table an AWS CLI identifier's plural endings actually need:
// structure member names are rarely pluralised in more exotic ways.
func singularise(w string) string {
	lw := strings.ToLower(w)

	for _, rule := range irregularSuffixes {
		if strings.HasSuffix(lw, rule.suffix) {
			return lw[:len(lw)-len(rule.suffix)] + rule.replacement
		}
	}

	for _, suf := range noStripEsSuffixes {
		if strings.HasSuffix(lw, suf) {
			return strings.TrimSuffix(lw, "es")
		}
	}

	if strings.HasSuffix(lw, "s") {
		for _, suf := range noStripSSuffixes {
			if strings.HasSuffix(lw, suf) {
				return lw
			}
		}
		return strings.TrimSuffix(lw, "s")
	}

	if strings.HasSuffix(lw, "i") && !strings.HasSuffix(lw, "api") {
		return strings.TrimSuffix(lw, "i") + "us"
	}

	return lw
}

// tokenise splits s on separators and camel-case boundaries, lower-cases and
// singularises each part, and drops empties.
func tokenise(s string) []Token {
	var parts []string
	var cur strings.Builder

	runes := []rune(s)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}

	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r):
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (cur.Len() > 0 && nextLower && isAllUpperRun(runes, i)) {
				flush()
			}
			cur.WriteRune(unicode.ToLower(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	tokens := make([]Token, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		tokens = append(tokens, Token(singularise(p)))
	}
	return tokens
}

// isAllUpperRun reports whether runes[i] sits at the boundary of a run of
// upper-case letters followed by a lower-case letter, e.g. the "I" in "XMLId".
func isAllUpperRun(runes []rune, i int) bool {
	if i == 0 {
		return false
	}
	return unicode.IsUpper(runes[i-1])
}
