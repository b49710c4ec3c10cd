package vectorstore

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/portfolio-agent/internal/models"
)

func rec(id string, values ...float32) models.VectorRecord {
	return models.VectorRecord{
		ID:       id,
		Values:   values,
		Metadata: models.RecordMetadata{Text: "text of " + id, Source: id + ".txt"},
	}
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	spec := IndexSpec{Name: "portfolio-agent", Dimension: 3, Metric: "cosine"}
	if err := s.EnsureIndex(ctx, spec); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if err := s.EnsureIndex(ctx, spec); err != nil {
		t.Fatalf("EnsureIndex should be idempotent: %v", err)
	}

	records := []models.VectorRecord{
		rec("a", 1, 0, 0),
		rec("b", 0.9, 0.1, 0),
		rec("c", 0, 1, 0),
	}
	if err := s.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	matches, err := s.Query(ctx, []float32{0.9, 0.1, 0}, 2, true)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Record.ID != "b" || math.Abs(matches[0].Score-1) > 1e-6 {
		t.Errorf("top match should be b with score 1, got %s %f", matches[0].Record.ID, matches[0].Score)
	}
	if matches[0].Record.Metadata.Text != "text of b" || matches[0].Record.Metadata.Source != "b.txt" {
		t.Errorf("metadata not returned: %+v", matches[0].Record.Metadata)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("matches should be ordered by descending score")
	}

	// Overwrite by id.
	updated := rec("c", 0.9, 0.1, 0)
	updated.Metadata.Text = "rewritten"
	if err := s.Upsert(ctx, []models.VectorRecord{updated}); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	matches, err = s.Query(ctx, []float32{0, 1, 0}, 10, false)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 3 {
		t.Errorf("overwrite should not add a record, got %d matches", len(matches))
	}
	for _, m := range matches {
		if m.Record.Metadata.Text != "" {
			t.Errorf("metadata should be omitted when not requested: %+v", m.Record.Metadata)
		}
	}

	if err := s.Upsert(ctx, []models.VectorRecord{rec("bad", 1, 0)}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for short vector, got %v", err)
	}
	if err := s.EnsureIndex(ctx, IndexSpec{Name: "portfolio-agent", Dimension: 4}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for existing index, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
	if s.Size() != 3 {
		t.Errorf("Size=%d, want 3", s.Size())
	}
}

func TestMemoryStore_requiresIndex(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Upsert(ctx, []models.VectorRecord{rec("a", 1)}); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("Upsert before EnsureIndex: got %v", err)
	}
	if _, err := s.Query(ctx, []float32{1}, 1, true); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("Query before EnsureIndex: got %v", err)
	}
}

func TestMemoryStore_emptyAndZeroK(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.EnsureIndex(ctx, IndexSpec{Name: "x", Dimension: 2})
	if m, err := s.Query(ctx, []float32{1, 0}, 3, true); err != nil || len(m) != 0 {
		t.Errorf("empty store: got %v, %v", m, err)
	}
	_ = s.Upsert(ctx, []models.VectorRecord{rec("a", 1, 0)})
	if m, err := s.Query(ctx, []float32{1, 0}, 0, true); err != nil || len(m) != 0 {
		t.Errorf("k=0: got %v, %v", m, err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1},
		{[]float32{2, 0}, []float32{1, 0}, 1},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
		{[]float32{0, 0}, []float32{1, 0}, 0},
		{[]float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("CosineSimilarity(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

type failingStore struct {
	*MemoryStore
	failOn map[string]bool
	calls  int
}

func (f *failingStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	f.calls++
	if f.failOn[records[0].ID] {
		return errors.New("upstream unavailable")
	}
	return f.MemoryStore.Upsert(ctx, records)
}

func TestUpsertBatches_isolatesFailures(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	_ = mem.EnsureIndex(ctx, IndexSpec{Name: "x", Dimension: 1})
	store := &failingStore{MemoryStore: mem, failOn: map[string]bool{"r2": true}}

	records := make([]models.VectorRecord, 5)
	for i := range records {
		records[i] = rec("r"+string(rune('0'+i)), float32(i+1))
	}
	uploaded, failed := UpsertBatches(ctx, store, records, 2, nil)
	if store.calls != 3 {
		t.Errorf("expected 3 upsert calls, got %d", store.calls)
	}
	if uploaded != 2 || failed != 1 {
		t.Errorf("uploaded=%d failed=%d, want 2/1", uploaded, failed)
	}
	if mem.Size() != 3 {
		t.Errorf("records from healthy batches should be stored, got %d", mem.Size())
	}
}

func TestUpsertBatches_defaultBatchSize(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	_ = mem.EnsureIndex(ctx, IndexSpec{Name: "x", Dimension: 1})
	store := &failingStore{MemoryStore: mem}
	records := make([]models.VectorRecord, 120)
	for i := range records {
		records[i] = models.VectorRecord{ID: string(rune('A'+i%26)) + string(rune('a'+i/26)), Values: []float32{1}}
	}
	uploaded, failed := UpsertBatches(ctx, store, records, 0, nil)
	if uploaded != 3 || failed != 0 || store.calls != 3 {
		t.Errorf("uploaded=%d failed=%d calls=%d, want 3/0/3", uploaded, failed, store.calls)
	}
}
