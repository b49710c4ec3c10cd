// Package vectorstore provides the vector index backends the portfolio agent stores chunk
// embeddings in, behind one small interface.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hyperjump/portfolio-agent/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrDimensionMismatch is returned when an index exists with a different dimension,
	// or a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrIndexNotFound is returned when an operation runs before EnsureIndex.
	ErrIndexNotFound = errors.New("vector index not found")
)

// DefaultBatchSize is the number of records sent per upsert call.
const DefaultBatchSize = 50

// IndexSpec describes the index a store must provide.
type IndexSpec struct {
	Name      string
	Dimension int
	Metric    string
}

// Store is a vector index keyed by record id.
// Implementations are safe for concurrent use.
type Store interface {
	// EnsureIndex creates the index if absent. It is idempotent and returns
	// ErrDimensionMismatch when an existing index has a different dimension.
	EnsureIndex(ctx context.Context, spec IndexSpec) error
	// Upsert inserts or overwrites records by id.
	Upsert(ctx context.Context, records []models.VectorRecord) error
	// Query returns at most topK matches ordered by descending score.
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]models.Match, error)
	Close() error
}

// UpsertBatches writes records in batches of batchSize, one Upsert call per batch.
// A failed batch is logged and skipped; later batches are still attempted.
func UpsertBatches(ctx context.Context, store Store, records []models.VectorRecord, batchSize int, logger *zap.Logger) (uploaded, failed int) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]
		if err := store.Upsert(ctx, batch); err != nil {
			failed++
			logger.Error("upsert batch failed",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.String("first_id", batch[0].ID),
				zap.Error(err))
			continue
		}
		uploaded++
		logger.Info("upserted batch", zap.Int("batch_start", start), zap.Int("batch_size", len(batch)))
	}
	return uploaded, failed
}

// sortMatches orders matches by descending score, ties by id, and keeps at most topK.
func sortMatches(matches []models.Match, topK int) []models.Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Record.ID < matches[j].Record.ID
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches
}

func checkRecordDimensions(records []models.VectorRecord, dim int) error {
	for _, r := range records {
		if len(r.Values) != dim {
			return fmt.Errorf("%w: record %q has %d, want %d", ErrDimensionMismatch, r.ID, len(r.Values), dim)
		}
	}
	return nil
}
