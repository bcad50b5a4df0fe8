// Package match runs the codification pipeline: per row, retrieve candidates
// from the active catalog version, score them, decide, and persist the
// result. Row failures are isolated; catalog-state failures abort the batch.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/codauto/engine/engine/brand"
	"github.com/codauto/engine/engine/domain"
	"github.com/codauto/engine/engine/embed"
	"github.com/codauto/engine/engine/normalize"
	"github.com/codauto/engine/engine/retrieve"
	"github.com/codauto/engine/engine/score"
	"github.com/codauto/engine/pkg/fn"
)

// Pipeline stage names recorded on row errors.
const (
	stageInput    = "input"
	stageEmbed    = "embed"
	stageRetrieve = "retrieve"
	stageScore    = "score"
	stageStore    = "store"
)

// Field extraction methods beyond the brand lookup's own.
const (
	methodProvided = "provided"
	methodPattern  = "pattern"
)

// yearPattern matches plausible model years in normalized text.
var yearPattern = regexp.MustCompile(`\b(19[5-9][0-9]|20[0-9][0-9])\b`)

// Retriever finds candidates for one query against one catalog version.
type Retriever interface {
	Retrieve(ctx context.Context, version string, in retrieve.Input) (retrieve.Result, error)
}

// Embedder produces query vectors. The instance is shared process-wide, so
// the batch runner coalesces all rows into one EmbedBatch call.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Scorer ranks retrieved candidates.
type Scorer interface {
	Score(q score.Query, candidates []domain.Candidate) []domain.Candidate
}

// ResultStore persists per-row results.
type ResultStore interface {
	UpsertResult(ctx context.Context, r domain.MatchResult) error
}

// VersionSource reports the single ACTIVE catalog version.
type VersionSource interface {
	ActiveVersion(ctx context.Context) (string, error)
}

// IndexChecker verifies a version's vector collection exists before any row
// runs. A version can be ACTIVE in the relational store while its collection
// was never built or was dropped; that is a catalog-state fault, not a
// per-row one.
type IndexChecker interface {
	HasCollection(ctx context.Context, version string) (bool, error)
}

// Deps holds the external dependencies of the orchestrator.
type Deps struct {
	Normalizer *normalize.Normalizer
	Brands     *brand.Lookup
	Embedder   Embedder
	Retriever  Retriever
	Scorer     Scorer
	Results    ResultStore
	Versions   VersionSource
	Index      IndexChecker
	Metrics    *Metrics
	Logger     *slog.Logger
}

// Options are the orchestrator tunables.
type Options struct {
	THigh      float64
	TLow       float64
	RowTimeout time.Duration
	Workers    int
	Retry      fn.RetryOpts
}

// DefaultOptions match the default decision thresholds and a conservative
// concurrency level.
var DefaultOptions = Options{
	THigh:      0.90,
	TLow:       0.70,
	RowTimeout: 10 * time.Second,
	Workers:    8,
	Retry: fn.RetryOpts{
		MaxAttempts: 3,
		InitialWait: 200 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Jitter:      true,
	},
}

// Orchestrator coordinates the per-row pipeline and the batch runner.
type Orchestrator struct {
	deps Deps
	opts Options
}

// New creates an Orchestrator. Zero-value options fall back to DefaultOptions
// field by field.
func New(deps Deps, opts Options) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.THigh == 0 && opts.TLow == 0 {
		opts.THigh, opts.TLow = DefaultOptions.THigh, DefaultOptions.TLow
	}
	if opts.RowTimeout <= 0 {
		opts.RowTimeout = DefaultOptions.RowTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions.Workers
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultOptions.Retry
	}
	return &Orchestrator{deps: deps, opts: opts}
}

// preparedRow is one query after normalization and field extraction, ready
// for embedding and retrieval.
type preparedRow struct {
	query  domain.VehicleQuery
	fields map[string]domain.ExtractedField
	label  string
	input  retrieve.Input
	// inputErr holds a validation failure detected during preparation; the
	// row still flows through matchRow so the failure is recorded uniformly.
	inputErr error
}

// prepare normalizes one query and extracts structured fields. Provided
// fields win over extraction with confidence 1.0.
func (o *Orchestrator) prepare(q domain.VehicleQuery) preparedRow {
	n := o.deps.Normalizer
	desc := n.Normalize(q.Description)
	fields := make(map[string]domain.ExtractedField)

	var brandField domain.ExtractedField
	if q.Brand != "" {
		brandField = domain.ExtractedField{Value: brand.Canonical(n, q.Brand), Confidence: 1.0, Method: methodProvided}
	} else if m := o.deps.Brands.ExtractBrand(desc); m.Brand != "" {
		brandField = domain.ExtractedField{Value: m.Brand, Confidence: m.Confidence, Method: m.Method}
	}
	if brandField.Value != "" {
		fields["brand"] = brandField
	}

	var modelField domain.ExtractedField
	if q.Model != "" {
		modelField = domain.ExtractedField{Value: n.Normalize(q.Model), Confidence: 1.0, Method: methodProvided}
		fields["model"] = modelField
	}

	year := q.Year
	if year == 0 {
		if m := yearPattern.FindString(desc); m != "" {
			if y, err := strconv.Atoi(m); err == nil && y >= domain.MinModelYear && y <= domain.MaxModelYear {
				year = y
				fields["year"] = domain.ExtractedField{Value: m, Confidence: 0.90, Method: methodPattern}
			}
		}
	} else {
		fields["year"] = domain.ExtractedField{Value: strconv.Itoa(year), Confidence: 1.0, Method: methodProvided}
	}

	body := n.Normalize(q.BodyHint)
	use := n.Normalize(q.UseHint)
	features := normalize.FeatureLabels(n.ExtractFeatures(q.Description))

	label := embed.BuildText(embed.TextParts{
		Brand:       brandField.Value,
		Model:       modelField.Value,
		Year:        year,
		Body:        body,
		Use:         use,
		Description: desc,
		Features:    features,
	})

	return preparedRow{
		query:  q,
		fields: fields,
		label:  label,
		input: retrieve.Input{
			Brand: brandField.Value,
			Model: modelField.Value,
			Year:  year,
			Body:  body,
			Use:   use,
		},
		inputErr: domain.ValidateQuery(q),
	}
}

// matchRow runs one prepared row through retrieve → score → decide → store.
// It never returns an error: every failure mode is encoded in the MatchResult
// so sibling rows are unaffected. embedErr carries a batch embedding failure
// for rows whose vector is missing.
func (o *Orchestrator) matchRow(ctx context.Context, version string, row preparedRow, vec []float32, embedErr error) (result domain.MatchResult) {
	start := time.Now()
	q := row.query

	result = domain.MatchResult{
		RunID:           q.RunID,
		RowIndex:        q.RowIndex,
		Decision:        domain.DecisionNoMatch,
		Strategy:        retrieve.StrategyNoMatch,
		Candidates:      []domain.Candidate{},
		ExtractedFields: row.fields,
	}
	defer func() {
		if r := recover(); r != nil {
			o.deps.Logger.Error("row panic", "run_id", q.RunID, "row_index", q.RowIndex, "panic", r)
			result.Success = false
			result.Error = fmt.Sprintf("row %d: panic: %v", q.RowIndex, r)
		}
		result.ProcessingTimeMS = time.Since(start).Milliseconds()
		o.observe(result, start)
	}()

	if row.inputErr != nil {
		result.Error = (&domain.RowError{RowIndex: q.RowIndex, Stage: stageInput, Wrapped: row.inputErr}).Error()
		o.store(ctx, &result)
		return result
	}

	row.input.Embedding = vec

	rctx, cancel := context.WithTimeout(ctx, o.opts.RowTimeout)
	defer cancel()

	stage := fn.RetryStage(o.opts.Retry, fn.TracedStage("match.retrieve",
		func(ctx context.Context, in retrieve.Input) fn.Result[retrieve.Result] {
			return fn.FromPair(o.deps.Retriever.Retrieve(ctx, version, in))
		}))
	retrieved, err := stage(rctx, row.input).Unwrap()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", domain.ErrRetrievalTimeout, o.opts.RowTimeout)
		}
		result.Error = (&domain.RowError{RowIndex: q.RowIndex, Stage: stageRetrieve, Wrapped: err}).Error()
		o.store(ctx, &result)
		return result
	}

	// Nothing retrieved and no vector to search with: the embedding failure
	// is the root cause, not an empty catalog.
	if retrieved.Strategy == retrieve.StrategyNoMatch && vec == nil && embedErr != nil {
		result.Error = (&domain.RowError{RowIndex: q.RowIndex, Stage: stageEmbed, Wrapped: embedErr}).Error()
		o.store(ctx, &result)
		return result
	}

	result.Strategy = retrieved.Strategy
	scored := o.deps.Scorer.Score(score.Query{
		Label: row.label,
		Brand: row.fields["brand"],
		Model: row.fields["model"],
		Year:  row.input.Year,
	}, retrieved.Candidates)

	if len(scored) > 0 {
		result.Candidates = scored
		result.Confidence = scored[0].FinalScore
		result.Decision = domain.DecisionFor(result.Confidence, o.opts.THigh, o.opts.TLow)
		if result.Decision != domain.DecisionNoMatch {
			result.SuggestedCode = scored[0].Code
		}
	}
	result.Success = true

	if err := o.deps.Results.UpsertResult(ctx, result); err != nil {
		result.Success = false
		result.Error = (&domain.RowError{RowIndex: q.RowIndex, Stage: stageStore, Wrapped: err}).Error()
	}
	return result
}

// store persists a failed row's result. Failures here are logged, not
// propagated; the row is already failed.
func (o *Orchestrator) store(ctx context.Context, result *domain.MatchResult) {
	if err := o.deps.Results.UpsertResult(ctx, *result); err != nil {
		o.deps.Logger.Error("store failed row",
			"run_id", result.RunID, "row_index", result.RowIndex, "error", err)
	}
}

func (o *Orchestrator) observe(result domain.MatchResult, start time.Time) {
	if o.deps.Metrics == nil {
		return
	}
	o.deps.Metrics.ObserveRow(result.Decision, result.Success, start)
}
