package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/portfolio-agent/internal/models"
)

// QdrantConfig configures a QdrantStore.
type QdrantConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// QdrantStore is a minimal REST client to a Qdrant collection.
// Qdrant point ids must be integers or UUIDs, so record ids are mapped to UUIDv5 and the
// original id travels in the payload.
type QdrantStore struct {
	rest *restClient
	url  string

	mu         sync.RWMutex
	collection string
	dimension  int
}

// NewQdrantStore returns a store for the Qdrant instance at cfg.URL.
func NewQdrantStore(cfg QdrantConfig) *QdrantStore {
	return &QdrantStore{
		rest: newRESTClient(cfg.Timeout, map[string]string{"api-key": cfg.APIKey}),
		url:  strings.TrimRight(cfg.URL, "/"),
	}
}

// PointID returns the Qdrant point id used for a record id.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

func qdrantDistance(metric string) string {
	switch metric {
	case "dotproduct":
		return "Dot"
	case "euclidean":
		return "Euclid"
	default:
		return "Cosine"
	}
}

// EnsureIndex creates the collection if missing and checks the vector size otherwise.
func (q *QdrantStore) EnsureIndex(ctx context.Context, spec IndexSpec) error {
	collURL := q.url + "/collections/" + url.PathEscape(spec.Name)

	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := q.rest.do(ctx, http.MethodGet, collURL, nil, &info)
	var se *StatusError
	switch {
	case errors.As(err, &se) && se.Code == http.StatusNotFound:
		body := map[string]any{
			"vectors": map[string]any{
				"size":     spec.Dimension,
				"distance": qdrantDistance(spec.Metric),
			},
		}
		if err := q.rest.do(ctx, http.MethodPut, collURL, body, nil); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	case err != nil:
		return fmt.Errorf("describe collection: %w", err)
	case info.Result.Config.Params.Vectors.Size != spec.Dimension:
		return fmt.Errorf("%w: collection %q has %d, want %d",
			ErrDimensionMismatch, spec.Name, info.Result.Config.Params.Vectors.Size, spec.Dimension)
	}

	q.mu.Lock()
	q.collection = spec.Name
	q.dimension = spec.Dimension
	q.mu.Unlock()
	return nil
}

func (q *QdrantStore) collectionURL() (string, int, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.collection == "" {
		return "", 0, ErrIndexNotFound
	}
	return q.url + "/collections/" + url.PathEscape(q.collection), q.dimension, nil
}

// Upsert writes records as points and waits for the write to be applied.
func (q *QdrantStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	base, dim, err := q.collectionURL()
	if err != nil {
		return err
	}
	if err := checkRecordDimensions(records, dim); err != nil {
		return err
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     PointID(r.ID),
			"vector": r.Values,
			"payload": map[string]any{
				"id":     r.ID,
				"text":   r.Metadata.Text,
				"source": r.Metadata.Source,
			},
		}
	}
	if err := q.rest.do(ctx, http.MethodPut, base+"/points?wait=true", map[string]any{"points": points}, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// Query searches the collection.
func (q *QdrantStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]models.Match, error) {
	base, _, err := q.collectionURL()
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := q.rest.do(ctx, http.MethodPost, base+"/points/search", req, &resp); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}
	matches := make([]models.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		rec := models.VectorRecord{ID: fmt.Sprint(r.ID)}
		if v, ok := r.Payload["id"].(string); ok {
			rec.ID = v
		}
		if includeMetadata {
			if v, ok := r.Payload["text"].(string); ok {
				rec.Metadata.Text = v
			}
			if v, ok := r.Payload["source"].(string); ok {
				rec.Metadata.Source = v
			}
		}
		matches = append(matches, models.Match{Record: rec, Score: r.Score})
	}
	return sortMatches(matches, topK), nil
}

// Close releases idle connections.
func (q *QdrantStore) Close() error {
	q.rest.client.CloseIdleConnections()
	return nil
}
