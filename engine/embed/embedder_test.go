package embed

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/codauto/engine/engine/domain"
)

// mockClient returns fixed-dimension vectors and records batch sizes.
type mockClient struct {
	dim        int
	err        error
	batchCalls [][]string
	lastText   string
}

func (m *mockClient) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastText = text
	vec := make([]float32, m.dim)
	for i := range vec {
		vec[i] = float32(len(text)%7 + i + 1)
	}
	return vec, nil
}

func (m *mockClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.batchCalls = append(m.batchCalls, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = m.Embed(ctx, t)
	}
	return out, nil
}

func TestInitialize(t *testing.T) {
	e := New(&mockClient{dim: 8}, nil)

	if e.State() != StateUninitialized {
		t.Fatalf("state = %v, want uninitialized", e.State())
	}
	if _, err := e.EmbedVehicle(context.Background(), "honda civic"); !errors.Is(err, domain.ErrEmbedderNotReady) {
		t.Fatalf("expected ErrEmbedderNotReady before Initialize, got %v", err)
	}

	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !e.Ready() || e.Dimension() != 8 {
		t.Fatalf("ready=%v dim=%d, want ready with dim 8", e.Ready(), e.Dimension())
	}

	// Second Initialize is a no-op.
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
}

func TestInitializeFailureResetsState(t *testing.T) {
	mc := &mockClient{dim: 4, err: errors.New("backend down")}
	e := New(mc, nil)

	if err := e.Initialize(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if e.State() != StateUninitialized {
		t.Fatalf("state = %v, want uninitialized after failure", e.State())
	}

	mc.err = nil
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("retry Initialize: %v", err)
	}
}

func TestEmbedVehicleNormalized(t *testing.T) {
	e := New(&mockClient{dim: 4}, nil)
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	vec, err := e.EmbedVehicle(context.Background(), "toyota corolla [2020] sedan")
	if err != nil {
		t.Fatal(err)
	}

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1.0) > 1e-6 {
		t.Errorf("output norm = %v, want 1.0", norm)
	}
}

func TestEmbedVehiclePlaceholder(t *testing.T) {
	mc := &mockClient{dim: 4}
	e := New(mc, nil)
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := e.EmbedVehicle(context.Background(), "   "); err != nil {
		t.Fatal(err)
	}
	if mc.lastText != placeholderText {
		t.Errorf("embedded %q, want placeholder %q", mc.lastText, placeholderText)
	}
}

func TestEmbedBatchChunking(t *testing.T) {
	mc := &mockClient{dim: 4}
	e := New(mc, nil)
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	texts := make([]string, BatchSize+10)
	for i := range texts {
		texts[i] = "vehiculo"
	}

	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	if len(mc.batchCalls) != 2 {
		t.Fatalf("got %d chunks, want 2", len(mc.batchCalls))
	}
	if len(mc.batchCalls[0]) != BatchSize || len(mc.batchCalls[1]) != 10 {
		t.Errorf("chunk sizes = %d, %d; want %d, 10", len(mc.batchCalls[0]), len(mc.batchCalls[1]), BatchSize)
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	e := New(&mockClient{dim: 4}, nil)
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	vecs, err := e.EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Errorf("got (%v, %v), want (nil, nil)", vecs, err)
	}
}
