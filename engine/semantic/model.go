package semantic

// VectorRecord is a single catalog row vector to store in Qdrant.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   Payload
}

// Payload is the typed metadata stored with each point.
type Payload struct {
	CatalogID int64  `json:"catalog_id"`
	Code      string `json:"code"`
	Brand     string `json:"brand"`
	Model     string `json:"model"`
	Year      int    `json:"year"`
	Body      string `json:"body,omitempty"`
	Use       string `json:"use,omitempty"`
	Label     string `json:"label"`
	Version   string `json:"version"`
}

// SearchResult is one vector search hit. Score is cosine similarity
// (Qdrant reports 1 − cosine distance for cosine collections).
type SearchResult struct {
	ID      string
	Score   float32
	Payload Payload
}

// Filters restricts a similarity search to matching payload fields.
// Zero values are ignored.
type Filters struct {
	Brand    string
	YearFrom int
	YearTo   int
	Body     string
	Use      string
}
