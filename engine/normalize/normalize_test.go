package normalize

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	n := New(nil)

	tests := []struct {
		input string
		want  string
	}{
		{"HONDA CIVIC 2019", "honda civic 2019"},
		{"  Volkswagen   Jetta  ", "volkswagen jetta"},
		{"SEDÁN AUTOMÁTICO", "sedan automatico"},
		{"CAMIÓN C/REDILAS", "camion c redilas"},
		{"PICK-UP 3.5L V6", "pick-up 3.5l v6"},
		{"JETTA 4 PTS AUT", "jetta 4 puertas automatico"},
		{"GOLF GT A.A", "golf gran turismo aire acondicionado"},
		{"", ""},
		{"   ", ""},
		{"¡¿!?", ""},
	}

	for _, tt := range tests {
		if got := n.Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New(nil)

	inputs := []string{
		"HONDA CIVIC 2019 SEDAN 4 PUERTAS AUTOMATICO",
		"VOLKSWAGEN JETTA 4 PTS AUT A.A",
		"CAMIÓN VOLTEO DIESEL 4X4",
		"nissan tsuru gs ii",
		"",
		"TOYOTA HILUX DOBLE CABINA TDI",
	}

	for _, in := range inputs {
		once := n.Normalize(in)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestNormalizeLongestAliasFirst(t *testing.T) {
	n := New(map[string]string{
		"gas":    "gasolina",
		"gas lp": "gas licuado",
	})
	if got := n.Normalize("MOTOR GAS LP"); got != "motor gas licuado" {
		t.Errorf("got %q, want %q", got, "motor gas licuado")
	}
}

func TestNormalizeOverlappingAliases(t *testing.T) {
	// "gas" is both a rule of its own and a prefix of "gas lp"; both rules
	// must survive, and expanded output must re-normalize to itself even
	// though "gas licuado" contains the "gas" alias.
	n := New(map[string]string{
		"gas":    "gasolina",
		"gas lp": "gas licuado",
	})

	tests := []struct {
		input string
		want  string
	}{
		{"MOTOR GAS LP", "motor gas licuado"},
		{"MOTOR GAS", "motor gasolina"},
	}
	for _, tt := range tests {
		got := n.Normalize(tt.input)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if again := n.Normalize(got); again != got {
			t.Errorf("not idempotent for %q: first %q, second %q", tt.input, got, again)
		}
	}
}

func TestNormalizeWordBoundary(t *testing.T) {
	n := New(nil)
	// "aut" must not expand inside "autopista".
	if got := n.Normalize("AUTOPISTA"); got != "autopista" {
		t.Errorf("got %q, want %q", got, "autopista")
	}
}

func TestExtractFeatures(t *testing.T) {
	n := New(nil)

	feats := n.ExtractFeatures("HONDA CIVIC 2019 SEDAN 4 PUERTAS AUTOMATICO 2.0L TURBO")

	want := []Feature{
		{"transmission", "automatica"},
		{"engine", "2.0l"},
		{"engine", "turbo"},
		{"body", "sedan"},
	}
	if !reflect.DeepEqual(feats, want) {
		t.Errorf("got %+v, want %+v", feats, want)
	}
}

func TestExtractFeaturesMultipleCategories(t *testing.T) {
	n := New(nil)

	feats := n.ExtractFeatures("pickup diesel 4x4 manual")
	byCat := make(map[string]string)
	for _, f := range feats {
		byCat[f.Category] = f.Label
	}

	expect := map[string]string{
		"transmission": "manual",
		"fuel":         "diesel",
		"drivetrain":   "4x4",
		"body":         "pickup",
	}
	for cat, label := range expect {
		if byCat[cat] != label {
			t.Errorf("category %s: got %q, want %q", cat, byCat[cat], label)
		}
	}
}

func TestExtractFeaturesEmpty(t *testing.T) {
	n := New(nil)
	if feats := n.ExtractFeatures(""); feats != nil {
		t.Errorf("expected nil, got %+v", feats)
	}
	if feats := n.ExtractFeatures("tsuru"); len(feats) != 0 {
		t.Errorf("expected no features, got %+v", feats)
	}
}
