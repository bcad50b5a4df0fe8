package score

import (
	"math"
	"testing"

	"github.com/codauto/engine/engine/domain"
)

func confident(v string) domain.ExtractedField {
	return domain.ExtractedField{Value: v, Confidence: 1.0, Method: "exact"}
}

func TestBlendedScore(t *testing.T) {
	s := New(Weights{Embed: 0.7, Fuzzy: 0.3}, 10)

	out := s.Score(Query{Label: "honda civic 2019 sedan"}, []domain.Candidate{
		{CatalogID: 1, Label: "honda civic 2019 sedan", EmbeddingSimilarity: 0.92},
	})
	if len(out) != 1 {
		t.Fatalf("got %d candidates", len(out))
	}
	c := out[0]
	if c.FuzzyScore != 1.0 {
		t.Errorf("fuzzy = %v, want 1.0 for identical labels", c.FuzzyScore)
	}
	want := 0.7*0.92 + 0.3*1.0
	if math.Abs(c.FinalScore-want) > 1e-9 {
		t.Errorf("final = %v, want %v", c.FinalScore, want)
	}
	if c.FieldScore != 0 {
		t.Errorf("field score = %v, blended mode must not set it", c.FieldScore)
	}
}

func TestStructuredMode(t *testing.T) {
	s := New(DefaultWeights, 10)
	q := Query{
		Label: "toyota corolla 2020",
		Brand: confident("toyota"),
		Model: confident("corolla"),
		Year:  2020,
	}
	// No candidate has a usable embedding: structured mode applies.
	out := s.Score(q, []domain.Candidate{
		{CatalogID: 1, Brand: "toyota", Model: "corolla", Year: 2020, Label: "toyota corolla 2020"},
		{CatalogID: 2, Brand: "toyota", Model: "corolla", Year: 2018, Label: "toyota corolla 2018"},
	})

	if math.Abs(out[0].FieldScore-1.0) > 1e-9 {
		t.Errorf("exact field hit score = %v, want 1.0", out[0].FieldScore)
	}
	if out[0].CatalogID != 1 {
		t.Errorf("best candidate = %d, want 1", out[0].CatalogID)
	}
	// Year mismatch drops exactly the year weight.
	if math.Abs(out[1].FieldScore-0.80) > 1e-9 {
		t.Errorf("year-miss score = %v, want 0.80", out[1].FieldScore)
	}
}

func TestStructuredRequiresConfidentFields(t *testing.T) {
	s := New(DefaultWeights, 10)
	q := Query{
		Label: "toyota corolla 2020",
		Brand: domain.ExtractedField{Value: "toyota", Confidence: 0.85, Method: "fuzzy"},
		Model: confident("corolla"),
		Year:  2020,
	}
	out := s.Score(q, []domain.Candidate{
		{CatalogID: 1, Brand: "toyota", Model: "corolla", Year: 2020, Label: "toyota corolla 2020"},
	})
	// Falls back to blended: FieldScore stays zero.
	if out[0].FieldScore != 0 {
		t.Errorf("field score = %v, want blended mode", out[0].FieldScore)
	}
}

func TestStructuredDisabledByEmbeddings(t *testing.T) {
	s := New(Weights{Embed: 0.7, Fuzzy: 0.3}, 10)
	q := Query{
		Label: "toyota corolla 2020",
		Brand: confident("toyota"),
		Model: confident("corolla"),
		Year:  2020,
	}
	out := s.Score(q, []domain.Candidate{
		{CatalogID: 1, Brand: "toyota", Model: "corolla", Year: 2020, Label: "toyota corolla 2020", HasEmbedding: true, EmbeddingSimilarity: 0.95},
	})
	if out[0].FieldScore != 0 {
		t.Error("usable embeddings must force blended mode")
	}
	if out[0].FinalScore <= 0.9 {
		t.Errorf("final = %v, want blended > 0.9", out[0].FinalScore)
	}
}

func TestStructuredAppliesToPinnedSimilarityWithoutVectors(t *testing.T) {
	s := New(DefaultWeights, 10)
	q := Query{
		Label: "toyota corolla 2020",
		Brand: confident("toyota"),
		Model: confident("corolla"),
		Year:  2020,
	}
	// Exact-match hits against a never-embedded catalog carry a pinned 1.0
	// similarity but no vector; the field-weighted mode must still apply.
	out := s.Score(q, []domain.Candidate{
		{CatalogID: 1, Brand: "toyota", Model: "corolla", Year: 2020, Label: "toyota corolla 2020", EmbeddingSimilarity: 1.0},
		{CatalogID: 2, Brand: "toyota", Model: "corolla", Year: 2018, Label: "toyota corolla 2018", EmbeddingSimilarity: 1.0},
	})

	if math.Abs(out[0].FieldScore-1.0) > 1e-9 {
		t.Errorf("field score = %v, want 1.0 structured hit", out[0].FieldScore)
	}
	if math.Abs(out[1].FieldScore-0.80) > 1e-9 {
		t.Errorf("year-miss field score = %v, want 0.80", out[1].FieldScore)
	}
	if out[0].CatalogID != 1 {
		t.Errorf("best = %d, want the year-exact row", out[0].CatalogID)
	}
}

func TestRankingDeterministicTiebreak(t *testing.T) {
	s := New(Weights{Embed: 1.0, Fuzzy: 0.0}, 10)
	in := []domain.Candidate{
		{CatalogID: 9, Label: "x", EmbeddingSimilarity: 0.8},
		{CatalogID: 3, Label: "x", EmbeddingSimilarity: 0.8},
		{CatalogID: 5, Label: "x", EmbeddingSimilarity: 0.9},
	}
	for i := 0; i < 20; i++ {
		out := s.Score(Query{Label: "x"}, in)
		if out[0].CatalogID != 5 || out[1].CatalogID != 3 || out[2].CatalogID != 9 {
			t.Fatalf("order = %d,%d,%d; want 5,3,9", out[0].CatalogID, out[1].CatalogID, out[2].CatalogID)
		}
	}
}

func TestTruncation(t *testing.T) {
	s := New(Weights{Embed: 1.0, Fuzzy: 0.0}, 2)
	in := []domain.Candidate{
		{CatalogID: 1, EmbeddingSimilarity: 0.5},
		{CatalogID: 2, EmbeddingSimilarity: 0.9},
		{CatalogID: 3, EmbeddingSimilarity: 0.7},
	}
	out := s.Score(Query{Label: "x"}, in)
	if len(out) != 2 {
		t.Fatalf("got %d candidates, want 2", len(out))
	}
	if out[0].CatalogID != 2 || out[1].CatalogID != 3 {
		t.Errorf("kept %d,%d; want the two best (2,3)", out[0].CatalogID, out[1].CatalogID)
	}
}

func TestInputNotMutated(t *testing.T) {
	s := New(Weights{Embed: 1.0, Fuzzy: 0.0}, 10)
	in := []domain.Candidate{
		{CatalogID: 1, EmbeddingSimilarity: 0.5},
		{CatalogID: 2, EmbeddingSimilarity: 0.9},
	}
	s.Score(Query{Label: "x"}, in)
	if in[0].CatalogID != 1 || in[0].FinalScore != 0 {
		t.Error("input slice was mutated")
	}
}

func TestEmptyCandidates(t *testing.T) {
	s := New(DefaultWeights, 10)
	if out := s.Score(Query{Label: "x"}, nil); out != nil {
		t.Errorf("got %+v, want nil", out)
	}
}
