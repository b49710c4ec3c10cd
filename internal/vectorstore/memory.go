package vectorstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/hyperjump/portfolio-agent/internal/models"
)

// MemoryStore is an in-process vector index using brute-force search.
// Suitable for tests and local development; nothing is persisted.
type MemoryStore struct {
	mu      sync.RWMutex
	spec    IndexSpec
	ready   bool
	records map[string]models.VectorRecord
}

// NewMemoryStore returns an empty in-memory store. Call EnsureIndex before use.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.VectorRecord)}
}

// EnsureIndex fixes the store's dimension on first call and checks it afterwards.
func (m *MemoryStore) EnsureIndex(ctx context.Context, spec IndexSpec) error {
	if spec.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", spec.Dimension)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready {
		if m.spec.Dimension != spec.Dimension {
			return fmt.Errorf("%w: index %q has %d, want %d", ErrDimensionMismatch, m.spec.Name, m.spec.Dimension, spec.Dimension)
		}
		return nil
	}
	m.spec = spec
	m.ready = true
	return nil
}

// Upsert inserts or overwrites records by id. The whole call fails if any vector has the wrong dimension.
func (m *MemoryStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return ErrIndexNotFound
	}
	if err := checkRecordDimensions(records, m.spec.Dimension); err != nil {
		return err
	}
	for _, r := range records {
		vec := make([]float32, len(r.Values))
		copy(vec, r.Values)
		r.Values = vec
		m.records[r.ID] = r
	}
	return nil
}

// Query returns the topK records closest to vector.
func (m *MemoryStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ready {
		return nil, ErrIndexNotFound
	}
	if len(vector) != m.spec.Dimension {
		return nil, fmt.Errorf("%w: query has %d, want %d", ErrDimensionMismatch, len(vector), m.spec.Dimension)
	}
	if topK <= 0 || len(m.records) == 0 {
		return nil, nil
	}
	matches := make([]models.Match, 0, len(m.records))
	for _, r := range m.records {
		rec := models.VectorRecord{ID: r.ID, Values: r.Values}
		if includeMetadata {
			rec.Metadata = r.Metadata
		}
		matches = append(matches, models.Match{Record: rec, Score: score(m.spec.Metric, vector, r.Values)})
	}
	return sortMatches(matches, topK), nil
}

// Size returns the number of records in the store.
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
