package brand

import (
	"testing"

	"github.com/codauto/engine/engine/domain"
	"github.com/codauto/engine/engine/normalize"
)

func testEntries() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		{Brand: "VOLKSWAGEN", Model: "JETTA", VehicleType: "AUTO"},
		{Brand: "TOYOTA", Model: "COROLLA", VehicleType: "AUTO"},
		{Brand: "TOYOTA", Model: "HILUX", VehicleType: "PICKUP"},
		{Brand: "ALFA ROMEO", Model: "GIULIA", VehicleType: "AUTO"},
		{Brand: "KENWORTH", Model: "T680", VehicleType: "TRACTOCAMION"},
		{Brand: "HONDA", Model: "CIVIC", VehicleType: "AUTO"},
		{Brand: "HONDA", Model: "CB500", VehicleType: "MOTOCICLETA"},
	}
}

func newTestLookup() *Lookup {
	n := normalize.New(nil)
	return NewLookup(n, testEntries(), nil, []string{"TRACTOCAMION", "PICKUP"}, DefaultFuzzyThreshold)
}

func TestExtractBrandExactAlias(t *testing.T) {
	l := newTestLookup()

	tests := []struct {
		text string
		want string
	}{
		{"VW JETTA 2018", "volkswagen"},
		{"vehiculo marca TOYOTA modelo COROLLA", "toyota"},
		{"ALFA ROMEO GIULIA VELOCE", "alfa romeo"}, // adjacent-token bigram
		{"kenworth t680 2022", "kenworth"},
	}
	for _, tt := range tests {
		m := l.ExtractBrand(tt.text)
		if m.Brand != tt.want {
			t.Errorf("ExtractBrand(%q).Brand = %q, want %q", tt.text, m.Brand, tt.want)
		}
		if m.Confidence != 1.0 {
			t.Errorf("ExtractBrand(%q).Confidence = %v, want 1.0", tt.text, m.Confidence)
		}
		if m.Method != MethodExact {
			t.Errorf("ExtractBrand(%q).Method = %q, want %q", tt.text, m.Method, MethodExact)
		}
	}
}

func TestExtractBrandFuzzy(t *testing.T) {
	l := newTestLookup()

	// Misspelled brand: no exact alias hit, fuzzy tier resolves it.
	m := l.ExtractBrand("VOLKSWAGE JETTA")
	if m.Brand != "volkswagen" {
		t.Fatalf("Brand = %q, want volkswagen", m.Brand)
	}
	if m.Method != MethodFuzzy {
		t.Fatalf("Method = %q, want %q", m.Method, MethodFuzzy)
	}
	if m.Confidence < 0.70 || m.Confidence > 0.95 {
		t.Errorf("Confidence = %v, want within [0.70, 0.95]", m.Confidence)
	}
}

func TestFuzzyConfidenceBands(t *testing.T) {
	tests := []struct {
		score   int
		low, hi float64
	}{
		{100, 0.90, 0.95},
		{95, 0.90, 0.95},
		{90, 0.90, 0.95},
		{89, 0.70, 0.89},
		{80, 0.70, 0.89},
	}
	for _, tt := range tests {
		c := fuzzyConfidence(tt.score)
		if c < tt.low || c > tt.hi {
			t.Errorf("fuzzyConfidence(%d) = %v, want within [%v, %v]", tt.score, c, tt.low, tt.hi)
		}
	}
}

func TestFuzzyConfidenceCeiling(t *testing.T) {
	// A perfect partial-ratio score must land exactly on the band ceiling,
	// not drift past it through float arithmetic.
	if c := fuzzyConfidence(100); c != 0.95 {
		t.Errorf("fuzzyConfidence(100) = %v, want 0.95", c)
	}
}

func TestExtractBrandHyphenatedCatalogBrand(t *testing.T) {
	n := normalize.New(nil)
	entries := []domain.CatalogEntry{
		{Brand: "MERCEDES-BENZ", Model: "SPRINTER", VehicleType: "CAMION"},
	}
	l := NewLookup(n, entries, nil, nil, DefaultFuzzyThreshold)

	// Hyphen and space forms must resolve to the same canonical brand.
	for _, text := range []string{"MERCEDES-BENZ SPRINTER 2020", "Mercedes Benz Sprinter"} {
		m := l.ExtractBrand(text)
		if m.Brand != "mercedes benz" {
			t.Errorf("ExtractBrand(%q).Brand = %q, want %q", text, m.Brand, "mercedes benz")
		}
		if m.Confidence != 1.0 || m.Method != MethodExact {
			t.Errorf("ExtractBrand(%q) = %+v, want exact hit with confidence 1.0", text, m)
		}
	}
}

func TestExtractBrandNoMatch(t *testing.T) {
	l := newTestLookup()
	m := l.ExtractBrand("zzqqy xxwwv")
	if m.Brand != "" || m.Confidence != 0.0 {
		t.Errorf("expected zero Match, got %+v", m)
	}
}

func TestExtractBrandEmpty(t *testing.T) {
	l := newTestLookup()
	if m := l.ExtractBrand(""); m.Brand != "" {
		t.Errorf("expected zero Match for empty text, got %+v", m)
	}
}

func TestExtractBrandDeterministic(t *testing.T) {
	l := newTestLookup()
	first := l.ExtractBrand("TOYOTTA COROLLA")
	for i := 0; i < 20; i++ {
		if m := l.ExtractBrand("TOYOTTA COROLLA"); m != first {
			t.Fatalf("non-deterministic extraction: %+v vs %+v", m, first)
		}
	}
}

func TestIsCommercial(t *testing.T) {
	l := newTestLookup()

	if !l.IsCommercial("KENWORTH") {
		t.Error("kenworth should be commercial (tractocamion)")
	}
	if !l.IsCommercial("toyota") {
		t.Error("toyota should be commercial (sells pickups)")
	}
	if l.IsCommercial("volkswagen") {
		t.Error("volkswagen should not be commercial in this catalog")
	}
	if l.IsCommercial("unknown brand") {
		t.Error("unknown brand should not be commercial")
	}
}

func TestSuggestVehicleType(t *testing.T) {
	l := newTestLookup()

	tests := []struct {
		brand, desc string
		want        string
	}{
		{"HONDA", "MOTOCICLETA CB500 DEPORTIVA", TypeMotorcycle},
		{"TOYOTA", "PICK-UP DOBLE CABINA DIESEL", TypeTruck},
		{"KENWORTH", "T680 2022", TypeTruck}, // commercial brand, no keywords
		{"VOLKSWAGEN", "JETTA SEDAN", TypeAuto},
		{"HONDA", "scooter electrico", TypeMotorcycle},
	}
	for _, tt := range tests {
		if got := l.SuggestVehicleType(tt.brand, tt.desc); got != tt.want {
			t.Errorf("SuggestVehicleType(%q, %q) = %q, want %q", tt.brand, tt.desc, got, tt.want)
		}
	}
}
