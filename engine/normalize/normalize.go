// Package normalize canonicalizes free-form vehicle text and extracts
// categorical features from it. Normalization is idempotent: re-normalizing
// normalized text is a no-op.
package normalize

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold decomposes, drops combining marks (diacritics), and recomposes.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// rule is one abbreviation expansion: a sequence of alias tokens replaced by
// a sequence of expansion tokens.
type rule struct {
	alias     []string
	expansion []string
}

// Normalizer canonicalizes text with a fixed abbreviation dictionary.
// Build one per process from configuration and share it; it is read-only
// after construction and safe for concurrent use.
type Normalizer struct {
	rules []rule
}

// New builds a Normalizer. A nil or empty dictionary falls back to
// DefaultAbbreviations. Every expansion also becomes an alias for itself, so
// canonical output re-normalizes to itself even when an expansion contains
// another alias key ("gas licuado" re-matches as a whole before "gas" can
// fire inside it). A rule whose expansion still rewrites under the final
// rule set (a conflicting explicit mapping) cannot be idempotent and is
// dropped.
func New(abbreviations map[string]string) *Normalizer {
	if len(abbreviations) == 0 {
		abbreviations = DefaultAbbreviations
	}

	rules := make([]rule, 0, 2*len(abbreviations))
	aliasKeys := make(map[string]bool, len(abbreviations))
	for alias, expansion := range abbreviations {
		aliasTokens := strings.Fields(strings.ToLower(alias))
		expTokens := strings.Fields(strings.ToLower(expansion))
		if len(aliasTokens) == 0 || len(expTokens) == 0 {
			continue
		}
		rules = append(rules, rule{alias: aliasTokens, expansion: expTokens})
		aliasKeys[strings.Join(aliasTokens, " ")] = true
	}

	for _, r := range rules {
		key := strings.Join(r.expansion, " ")
		if aliasKeys[key] {
			continue
		}
		aliasKeys[key] = true
		rules = append(rules, rule{alias: r.expansion, expansion: r.expansion})
	}

	// Longest alias first so "gran turismo" wins over "gran"; ties broken
	// lexicographically for deterministic expansion.
	sort.Slice(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if len(a.alias) != len(b.alias) {
			return len(a.alias) > len(b.alias)
		}
		ai, bi := strings.Join(a.alias, " "), strings.Join(b.alias, " ")
		if len(ai) != len(bi) {
			return len(ai) > len(bi)
		}
		return ai < bi
	})

	n := &Normalizer{rules: rules}

	stable := make([]rule, 0, len(rules))
	for _, r := range rules {
		if strings.Join(n.expand(r.expansion), " ") == strings.Join(r.expansion, " ") {
			stable = append(stable, r)
		}
	}
	n.rules = stable
	return n
}

// Normalize lowercases, strips diacritics, removes punctuation except hyphen
// and period, collapses whitespace, and expands domain abbreviations on word
// boundaries. Empty or all-punctuation input yields "".
func (n *Normalizer) Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(asciiFold, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			// Punctuation, non-ASCII leftovers, and whitespace all separate words.
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	return strings.Join(n.expand(tokens), " ")
}

// expand applies abbreviation rules to a token stream, longest alias first.
func (n *Normalizer) expand(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		matched := false
		for _, r := range n.rules {
			if i+len(r.alias) > len(tokens) {
				continue
			}
			equal := true
			for k, a := range r.alias {
				if tokens[i+k] != a {
					equal = false
					break
				}
			}
			if equal {
				out = append(out, r.expansion...)
				i += len(r.alias)
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}
	return out
}
