// Package domain defines the core types, version states, and decision policy
// for the vehicle codification engine. It acts as the validation gate at
// pipeline entry points.
package domain

// VersionState is the lifecycle state of a catalog version.
type VersionState string

const (
	VersionUploaded VersionState = "UPLOADED"
	VersionLoaded   VersionState = "LOADED"
	VersionEmbedded VersionState = "EMBEDDED"
	VersionActive   VersionState = "ACTIVE"
	VersionFailed   VersionState = "FAILED"
)

// ValidVersionStates is the set of recognised version states.
var ValidVersionStates = map[VersionState]bool{
	VersionUploaded: true, VersionLoaded: true, VersionEmbedded: true,
	VersionActive: true, VersionFailed: true,
}

// CatalogEntry is one row of a versioned vehicle catalog. Rows are immutable
// once loaded, except for the embedding backfill.
type CatalogEntry struct {
	ID             int64     `json:"id"`
	CatalogVersion string    `json:"catalog_version"`
	Code           string    `json:"code"`
	Brand          string    `json:"brand"`
	Model          string    `json:"model"`
	Year           int       `json:"year"`
	BodyType       string    `json:"body_type,omitempty"`
	UseType        string    `json:"use_type,omitempty"`
	VehicleType    string    `json:"vehicle_type,omitempty"`
	Label          string    `json:"label"`
	Embedding      []float32 `json:"-"` // nil until backfilled
}

// VehicleQuery is one input row to be codified. All structured fields are
// optional; a query is usable with either a description or brand+model.
type VehicleQuery struct {
	RunID       string `json:"run_id"`
	RowIndex    int    `json:"row_index"`
	Brand       string `json:"brand,omitempty"`
	Model       string `json:"model,omitempty"`
	Year        int    `json:"year,omitempty"`
	Description string `json:"description,omitempty"`
	BodyHint    string `json:"body,omitempty"`
	UseHint     string `json:"use,omitempty"`
}

// Candidate is a scored catalog row proposed as a possible match.
// HasEmbedding records whether the row actually carries a vector; an
// exact-match hit pins EmbeddingSimilarity to 1.0 whether or not the row was
// ever embedded, so vector presence must be tracked separately.
type Candidate struct {
	CatalogID           int64   `json:"catalog_id"`
	Code                string  `json:"code"`
	Brand               string  `json:"brand"`
	Model               string  `json:"model"`
	Year                int     `json:"year"`
	Label               string  `json:"label"`
	HasEmbedding        bool    `json:"has_embedding,omitempty"`
	EmbeddingSimilarity float64 `json:"embedding_similarity"`
	FuzzyScore          float64 `json:"fuzzy_score"`
	FieldScore          float64 `json:"field_score,omitempty"`
	FinalScore          float64 `json:"final_score"`
}

// Decision is the three-way outcome of the matching policy.
type Decision string

const (
	DecisionAutoAccept  Decision = "auto_accept"
	DecisionNeedsReview Decision = "needs_review"
	DecisionNoMatch     Decision = "no_match"
)

// Rank orders decisions from worst to best: no_match < needs_review < auto_accept.
func (d Decision) Rank() int {
	switch d {
	case DecisionAutoAccept:
		return 2
	case DecisionNeedsReview:
		return 1
	default:
		return 0
	}
}

// ExtractedField is a single field pulled from the query text, with the
// confidence and method that produced it.
type ExtractedField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// MatchResult is the per-row output of the orchestrator. Results are
// created or overwritten per (run_id, row_index) and never mutated elsewhere.
type MatchResult struct {
	RunID            string                    `json:"run_id"`
	RowIndex         int                       `json:"row_index"`
	Success          bool                      `json:"success"`
	Decision         Decision                  `json:"decision"`
	Confidence       float64                   `json:"confidence"`
	SuggestedCode    string                    `json:"suggested_code,omitempty"`
	Strategy         string                    `json:"strategy,omitempty"`
	Candidates       []Candidate               `json:"candidates"`
	ExtractedFields  map[string]ExtractedField `json:"extracted_fields,omitempty"`
	Error            string                    `json:"error,omitempty"`
	ProcessingTimeMS int64                     `json:"processing_time_ms"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	RunID             string           `json:"run_id"`
	TotalVehicles     int              `json:"total_vehicles"`
	SuccessfulMatches int              `json:"successful_matches"`
	FailedMatches     int              `json:"failed_matches"`
	Decisions         map[Decision]int `json:"decisions"`
}
