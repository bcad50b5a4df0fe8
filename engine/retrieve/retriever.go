// Package retrieve finds candidate catalog rows for a query. An exact-match
// lookup is tried first; otherwise vector search runs down a ladder of
// minimum-similarity tiers, returning the first tier that produces hits.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codauto/engine/engine/domain"
	"github.com/codauto/engine/engine/semantic"
)

// Retrieval strategies, recorded on every MatchResult.
const (
	StrategyExactMatch = "exact_match"
	StrategyNoMatch    = "no_match"
)

// Tier is one rung of the fallback ladder: a minimum similarity and the
// strategy label attached to hits found at that rung.
type Tier struct {
	MinSimilarity float64
	Strategy      string
}

// DefaultTiers prefers high-confidence evidence first, trading recall for
// precision at each step down.
var DefaultTiers = []Tier{
	{MinSimilarity: 0.85, Strategy: "high_similarity"},
	{MinSimilarity: 0.70, Strategy: "medium_similarity"},
	{MinSimilarity: 0.50, Strategy: "low_similarity"},
}

// ExactMatcher performs a literal equality lookup against a catalog version.
type ExactMatcher interface {
	ExactMatch(ctx context.Context, version, brand, model string, year int, body string) ([]domain.CatalogEntry, error)
}

// VectorSearcher searches a version's vector collection with a score floor.
type VectorSearcher interface {
	Search(ctx context.Context, version string, embedding []float32, limit int, minScore float32, f semantic.Filters) ([]semantic.SearchResult, error)
}

// Input carries everything known about a query at retrieval time. Structured
// fields are optional; Embedding may be nil when inference failed upstream.
type Input struct {
	Brand     string
	Model     string
	Year      int
	Body      string
	Use       string
	Embedding []float32
}

// Result is the retrieval outcome: the strategy that produced the candidates
// and the candidates themselves, ordered by descending similarity.
type Result struct {
	Strategy   string
	Candidates []domain.Candidate
}

// Retriever resolves candidates against one catalog version at a time.
type Retriever struct {
	exact   ExactMatcher
	vectors VectorSearcher
	tiers   []Tier
	limit   int
	logger  *slog.Logger
}

// Options configures a Retriever.
type Options struct {
	Tiers  []Tier
	Limit  int
	Logger *slog.Logger
}

// New creates a Retriever. Zero-value options fall back to DefaultTiers and a
// limit of 10.
func New(exact ExactMatcher, vectors VectorSearcher, opts Options) *Retriever {
	if len(opts.Tiers) == 0 {
		opts.Tiers = DefaultTiers
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Retriever{
		exact:   exact,
		vectors: vectors,
		tiers:   opts.Tiers,
		limit:   opts.Limit,
		logger:  opts.Logger,
	}
}

// Retrieve runs the exact-match shortcut, then the fallback ladder. A query
// with no embedding and no exact hit yields an empty no_match result rather
// than an error; the caller decides whether that is a failure.
func (r *Retriever) Retrieve(ctx context.Context, version string, in Input) (Result, error) {
	if in.Brand != "" && in.Model != "" {
		entries, err := r.exact.ExactMatch(ctx, version, in.Brand, in.Model, in.Year, in.Body)
		if err != nil {
			return Result{}, fmt.Errorf("retrieve: exact match: %w", err)
		}
		if len(entries) > 0 {
			return Result{Strategy: StrategyExactMatch, Candidates: exactCandidates(entries, r.limit)}, nil
		}
	}

	if len(in.Embedding) == 0 {
		return Result{Strategy: StrategyNoMatch, Candidates: nil}, nil
	}

	filters := semantic.Filters{Brand: in.Brand, Body: in.Body, Use: in.Use}
	if in.Year != 0 {
		filters.YearFrom = in.Year - 1
		filters.YearTo = in.Year + 1
	}

	for _, tier := range r.tiers {
		hits, err := r.vectors.Search(ctx, version, in.Embedding, r.limit, float32(tier.MinSimilarity), filters)
		if err != nil {
			return Result{}, fmt.Errorf("retrieve: search tier %.2f: %w", tier.MinSimilarity, err)
		}
		if len(hits) > 0 {
			r.logger.Debug("retrieval tier hit",
				"strategy", tier.Strategy, "min_similarity", tier.MinSimilarity, "hits", len(hits))
			return Result{Strategy: tier.Strategy, Candidates: searchCandidates(hits)}, nil
		}
	}

	return Result{Strategy: StrategyNoMatch, Candidates: nil}, nil
}

// exactCandidates maps literal-equality hits to candidates. An exact hit is
// trusted as if the vectors were identical, so similarity is pinned to 1.0.
func exactCandidates(entries []domain.CatalogEntry, limit int) []domain.Candidate {
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]domain.Candidate, len(entries))
	for i, e := range entries {
		out[i] = domain.Candidate{
			CatalogID:           e.ID,
			Code:                e.Code,
			Brand:               e.Brand,
			Model:               e.Model,
			Year:                e.Year,
			Label:               e.Label,
			HasEmbedding:        len(e.Embedding) > 0,
			EmbeddingSimilarity: 1.0,
		}
	}
	return out
}

func searchCandidates(hits []semantic.SearchResult) []domain.Candidate {
	out := make([]domain.Candidate, len(hits))
	for i, h := range hits {
		out[i] = domain.Candidate{
			CatalogID:           h.Payload.CatalogID,
			Code:                h.Payload.Code,
			Brand:               h.Payload.Brand,
			Model:               h.Payload.Model,
			Year:                h.Payload.Year,
			Label:               h.Payload.Label,
			HasEmbedding:        true,
			EmbeddingSimilarity: float64(h.Score),
		}
	}
	return out
}
