// Package brand resolves brand names from free text in three tiers: exact
// alias lookup, fuzzy partial-ratio matching, and known-variant patterns.
// The lookup table is built once from catalog rows plus a seed alias set.
package brand

import (
	"math"
	"regexp"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/codauto/engine/engine/domain"
	"github.com/codauto/engine/engine/normalize"
)

// DefaultFuzzyThreshold is the minimum partial-ratio score (0-100) for the
// fuzzy tier.
const DefaultFuzzyThreshold = 80

// Confidence levels per extraction tier.
const (
	MethodExact   = "exact_alias"
	MethodFuzzy   = "fuzzy"
	MethodVariant = "variant_pattern"
)

// seedAliases maps common shorthand to canonical brand names, both in
// normalized form. Catalog-derived aliases are layered on top.
var seedAliases = map[string]string{
	"vw":            "volkswagen",
	"chevy":         "chevrolet",
	"gm":            "general motors",
	"mb":            "mercedes benz",
	"benz":          "mercedes benz",
	"mercedes":      "mercedes benz",
	"land rover":    "land rover",
	"alfa":          "alfa romeo",
	"vento":         "volkswagen", // regional badge
	"mini cooper":   "mini",
	"international": "international",
	"freightliner":  "freightliner",
}

// Canonical returns the filterable form of a raw brand string: normalized
// with hyphens folded to spaces, so "MERCEDES-BENZ" and "Mercedes Benz" land
// on the same alias key and vector payload value. Model codes keep their
// hyphens; only brand strings go through this.
func Canonical(n *normalize.Normalizer, s string) string {
	return n.Normalize(strings.ReplaceAll(s, "-", " "))
}

type variantRule struct {
	re    *regexp.Regexp
	brand string
}

// variantRules handle common truncations seen in upload files. Applied to
// normalized text, confidence 0.85.
var variantRules = []variantRule{
	{regexp.MustCompile(`\bvolks?w?a?g?e?n?\b`), "volkswagen"},
	{regexp.MustCompile(`\bchevr?o?l?e?t?\b`), "chevrolet"},
	{regexp.MustCompile(`\bmerce?d?e?s?\b`), "mercedes benz"},
	{regexp.MustCompile(`\bmitsu?b?i?s?h?i?\b`), "mitsubishi"},
	{regexp.MustCompile(`\bfreig?h?t?l?i?n?e?r?\b`), "freightliner"},
	{regexp.MustCompile(`\bintern?a?c?i?o?n?a?l?\b`), "international"},
}

// Lookup resolves brand mentions. Built once per catalog version; read-only
// afterwards and safe for concurrent use.
type Lookup struct {
	norm            *normalize.Normalizer
	aliases         map[string]string          // normalized alias -> canonical brand
	sortedAliases   []string                   // deterministic fuzzy iteration order
	vehicleTypes    map[string]map[string]bool // brand -> catalog vehicle types
	commercialTypes map[string]bool
	fuzzyThreshold  int
}

// NewLookup builds the table from catalog rows. extraAliases (may be nil)
// layer on top of the seed set; commercialTypes is the configured set of
// vehicle types that mark a brand as commercial.
func NewLookup(n *normalize.Normalizer, entries []domain.CatalogEntry, extraAliases map[string]string, commercialTypes []string, fuzzyThreshold int) *Lookup {
	if fuzzyThreshold <= 0 || fuzzyThreshold > 100 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}

	l := &Lookup{
		norm:            n,
		aliases:         make(map[string]string),
		vehicleTypes:    make(map[string]map[string]bool),
		commercialTypes: make(map[string]bool, len(commercialTypes)),
		fuzzyThreshold:  fuzzyThreshold,
	}
	for _, t := range commercialTypes {
		l.commercialTypes[n.Normalize(t)] = true
	}

	for alias, brand := range seedAliases {
		l.aliases[alias] = brand
	}
	for alias, brand := range extraAliases {
		l.aliases[Canonical(n, alias)] = Canonical(n, brand)
	}

	for _, e := range entries {
		b := Canonical(n, e.Brand)
		if b == "" {
			continue
		}
		l.aliases[b] = b
		if vt := n.Normalize(e.VehicleType); vt != "" {
			if l.vehicleTypes[b] == nil {
				l.vehicleTypes[b] = make(map[string]bool)
			}
			l.vehicleTypes[b][vt] = true
		}
	}

	l.sortedAliases = make([]string, 0, len(l.aliases))
	for a := range l.aliases {
		l.sortedAliases = append(l.sortedAliases, a)
	}
	sort.Strings(l.sortedAliases)

	return l
}

// Match is an extracted brand with its confidence and method.
type Match struct {
	Brand      string
	Confidence float64
	Method     string
}

// ExtractBrand resolves a brand mention in text, trying exact alias hits on
// single tokens and adjacent bigrams (confidence 1.0), then fuzzy
// partial-ratio against all aliases, then variant patterns (confidence 0.85).
// Returns the zero Match when nothing resolves.
func (l *Lookup) ExtractBrand(text string) Match {
	t := Canonical(l.norm, text)
	if t == "" {
		return Match{}
	}
	tokens := strings.Fields(t)

	// Tier 1: exact token / bigram alias hits.
	for i, tok := range tokens {
		if i+1 < len(tokens) {
			bigram := tok + " " + tokens[i+1]
			if brand, ok := l.aliases[bigram]; ok {
				return Match{Brand: brand, Confidence: 1.0, Method: MethodExact}
			}
		}
		if brand, ok := l.aliases[tok]; ok {
			return Match{Brand: brand, Confidence: 1.0, Method: MethodExact}
		}
	}

	// Tier 2: fuzzy partial-ratio against every alias. Iteration over the
	// sorted alias list with a strictly-greater comparison keeps ties
	// deterministic.
	bestScore := 0
	bestBrand := ""
	for _, alias := range l.sortedAliases {
		score := fuzzy.PartialRatio(alias, t)
		if score > bestScore {
			bestScore = score
			bestBrand = l.aliases[alias]
		}
	}
	if bestScore >= l.fuzzyThreshold {
		return Match{Brand: bestBrand, Confidence: fuzzyConfidence(bestScore), Method: MethodFuzzy}
	}

	// Tier 3: known truncation patterns.
	for _, vr := range variantRules {
		if vr.re.MatchString(t) {
			return Match{Brand: vr.brand, Confidence: 0.85, Method: MethodVariant}
		}
	}

	return Match{}
}

// fuzzyConfidence maps a partial-ratio score to a confidence band:
// score >= 90 lands in [0.90, 0.95], 80 <= score < 90 in [0.70, 0.89].
// Clamped so float rounding can never push past the band ceiling.
func fuzzyConfidence(score int) float64 {
	if score >= 90 {
		return math.Min(0.95, 0.90+float64(score-90)/10.0*0.05)
	}
	return 0.70 + float64(score-80)/10.0*0.19
}

// IsCommercial reports whether the brand's catalog vehicle-type set
// intersects the configured commercial-type set.
func (l *Lookup) IsCommercial(brand string) bool {
	types := l.vehicleTypes[Canonical(l.norm, brand)]
	for t := range types {
		if l.commercialTypes[t] {
			return true
		}
	}
	return false
}
