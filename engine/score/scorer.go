// Package score ranks retrieved candidates. Two scoring modes exist: a
// blended rule combining embedding similarity with fuzzy label similarity,
// and a structured rule comparing brand/model/year field by field. Exactly
// one mode applies per query, chosen before any candidate is scored.
package score

import (
	"sort"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/codauto/engine/engine/domain"
)

// structuredFieldConfidence is the extraction-confidence floor for the
// structured mode: every field must be at least this certain.
const structuredFieldConfidence = 0.90

// Structured-mode field weights.
const (
	brandWeight = 0.40
	modelWeight = 0.40
	yearWeight  = 0.20
)

// Weights blends embedding and fuzzy similarity. They must sum to 1; config
// validation enforces that before a Scorer is built.
type Weights struct {
	Embed float64
	Fuzzy float64
}

// DefaultWeights leans on the embedding, with fuzzy similarity as a check.
var DefaultWeights = Weights{Embed: 0.7, Fuzzy: 0.3}

// Query is the scorer's view of one input row: the normalized label used for
// fuzzy comparison plus the structured fields and their extraction confidence.
type Query struct {
	Label string
	Brand domain.ExtractedField
	Model domain.ExtractedField
	Year  int
}

// Scorer ranks candidates for queries against one set of weights.
type Scorer struct {
	weights       Weights
	maxCandidates int
}

// New creates a Scorer. maxCandidates <= 0 means no truncation.
func New(w Weights, maxCandidates int) *Scorer {
	if w == (Weights{}) {
		w = DefaultWeights
	}
	return &Scorer{weights: w, maxCandidates: maxCandidates}
}

// Score fills FuzzyScore/FieldScore/FinalScore on every candidate, sorts
// descending by FinalScore with catalog id as the tiebreak, and truncates to
// the configured maximum. The input slice is not modified.
func (s *Scorer) Score(q Query, candidates []domain.Candidate) []domain.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	scored := make([]domain.Candidate, len(candidates))
	copy(scored, candidates)

	structured := s.useStructured(q, scored)
	for i := range scored {
		if structured {
			s.scoreStructured(q, &scored[i])
		} else {
			s.scoreBlended(q, &scored[i])
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].FinalScore != scored[j].FinalScore {
			return scored[i].FinalScore > scored[j].FinalScore
		}
		return scored[i].CatalogID < scored[j].CatalogID
	})

	if s.maxCandidates > 0 && len(scored) > s.maxCandidates {
		scored = scored[:s.maxCandidates]
	}
	return scored
}

// useStructured decides the mode for a whole query: structured scoring needs
// brand, model and year all confidently known, and applies only when no
// candidate carries an embedding vector. Vector presence is tracked on the
// candidate, not inferred from the similarity, because exact-match hits pin
// similarity to 1.0 even for rows that were never embedded.
func (s *Scorer) useStructured(q Query, candidates []domain.Candidate) bool {
	if q.Brand.Value == "" || q.Model.Value == "" || q.Year == 0 {
		return false
	}
	if q.Brand.Confidence < structuredFieldConfidence || q.Model.Confidence < structuredFieldConfidence {
		return false
	}
	for _, c := range candidates {
		if c.HasEmbedding {
			return false
		}
	}
	return true
}

func (s *Scorer) scoreBlended(q Query, c *domain.Candidate) {
	c.FuzzyScore = labelSimilarity(q.Label, c.Label)
	c.FinalScore = s.weights.Embed*c.EmbeddingSimilarity + s.weights.Fuzzy*c.FuzzyScore
}

func (s *Scorer) scoreStructured(q Query, c *domain.Candidate) {
	brandSim := labelSimilarity(q.Brand.Value, c.Brand)
	modelSim := labelSimilarity(q.Model.Value, c.Model)
	yearSim := 0.0
	if q.Year == c.Year {
		yearSim = 1.0
	}
	c.FieldScore = brandWeight*brandSim + modelWeight*modelSim + yearWeight*yearSim
	c.FinalScore = c.FieldScore
}

// labelSimilarity maps token-set similarity to [0,1]. Token-set handles word
// reordering and repeated features in free-text descriptions.
func labelSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return float64(fuzzy.TokenSetRatio(a, b)) / 100
}
