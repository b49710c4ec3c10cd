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

	"github.com/cenkalti/backoff/v4"
	"github.com/hyperjump/portfolio-agent/internal/models"
	"go.uber.org/zap"
)

const (
	pineconeAPIVersion   = "2024-07"
	defaultControllerURL = "https://api.pinecone.io"
)

// PineconeConfig configures a PineconeStore.
type PineconeConfig struct {
	APIKey        string
	ControllerURL string
	Cloud         string
	Region        string
	ReadyTimeout  time.Duration
	Timeout       time.Duration
	Logger        *zap.Logger
}

// PineconeStore talks to a Pinecone serverless index over its REST API.
// The control plane creates and describes the index; vectors go to the index host.
type PineconeStore struct {
	rest          *restClient
	controllerURL string
	cloud         string
	region        string
	readyTimeout  time.Duration
	logger        *zap.Logger

	mu   sync.RWMutex
	host string
	spec IndexSpec
}

type pineconeIndex struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

type pineconeVector struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values,omitempty"`
	Metadata *models.RecordMetadata `json:"metadata,omitempty"`
}

// NewPineconeStore returns a store for the given account. Call EnsureIndex before use.
func NewPineconeStore(cfg PineconeConfig) *PineconeStore {
	if cfg.ControllerURL == "" {
		cfg.ControllerURL = defaultControllerURL
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 2 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &PineconeStore{
		rest: newRESTClient(cfg.Timeout, map[string]string{
			"Api-Key":                cfg.APIKey,
			"X-Pinecone-API-Version": pineconeAPIVersion,
		}),
		controllerURL: strings.TrimRight(cfg.ControllerURL, "/"),
		cloud:         cfg.Cloud,
		region:        cfg.Region,
		readyTimeout:  cfg.ReadyTimeout,
		logger:        cfg.Logger,
	}
}

// EnsureIndex creates the serverless index if absent and waits until it is ready.
func (p *PineconeStore) EnsureIndex(ctx context.Context, spec IndexSpec) error {
	if spec.Metric == "" {
		spec.Metric = "cosine"
	}
	idx, err := p.describe(ctx, spec.Name)
	if errors.Is(err, ErrIndexNotFound) {
		p.logger.Info("creating pinecone index",
			zap.String("index", spec.Name),
			zap.Int("dimension", spec.Dimension),
			zap.String("metric", spec.Metric))
		if err := p.create(ctx, spec); err != nil {
			return err
		}
		idx, err = p.waitReady(ctx, spec.Name)
	}
	if err != nil {
		return err
	}
	if idx.Dimension != spec.Dimension {
		return fmt.Errorf("%w: index %q has %d, want %d", ErrDimensionMismatch, spec.Name, idx.Dimension, spec.Dimension)
	}
	if !idx.Status.Ready || idx.Host == "" {
		if idx, err = p.waitReady(ctx, spec.Name); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.host = hostURL(idx.Host)
	p.spec = spec
	p.mu.Unlock()
	p.logger.Info("pinecone index ready", zap.String("index", spec.Name), zap.String("host", idx.Host))
	return nil
}

func (p *PineconeStore) describe(ctx context.Context, name string) (*pineconeIndex, error) {
	var idx pineconeIndex
	err := p.rest.do(ctx, http.MethodGet, p.controllerURL+"/indexes/"+url.PathEscape(name), nil, &idx)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("describe index: %w", err)
	}
	return &idx, nil
}

func (p *PineconeStore) create(ctx context.Context, spec IndexSpec) error {
	body := map[string]any{
		"name":      spec.Name,
		"dimension": spec.Dimension,
		"metric":    spec.Metric,
		"spec": map[string]any{
			"serverless": map[string]any{
				"cloud":  p.cloud,
				"region": p.region,
			},
		},
	}
	err := p.rest.do(ctx, http.MethodPost, p.controllerURL+"/indexes", body, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusConflict {
		// Created concurrently by another process.
		return nil
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// waitReady polls describe with exponential backoff until the index reports ready.
func (p *PineconeStore) waitReady(ctx context.Context, name string) (*pineconeIndex, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = p.readyTimeout

	var ready *pineconeIndex
	op := func() error {
		idx, err := p.describe(ctx, name)
		if err != nil {
			return err
		}
		if !idx.Status.Ready || idx.Host == "" {
			return fmt.Errorf("index %q not ready (state %q)", name, idx.Status.State)
		}
		ready = idx
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("wait for index: %w", err)
	}
	return ready, nil
}

func (p *PineconeStore) dataHost() (string, int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.host == "" {
		return "", 0, ErrIndexNotFound
	}
	return p.host, p.spec.Dimension, nil
}

// Upsert sends records to the index host in one request.
func (p *PineconeStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	host, dim, err := p.dataHost()
	if err != nil {
		return err
	}
	if err := checkRecordDimensions(records, dim); err != nil {
		return err
	}
	vectors := make([]pineconeVector, len(records))
	for i := range records {
		md := records[i].Metadata
		vectors[i] = pineconeVector{ID: records[i].ID, Values: records[i].Values, Metadata: &md}
	}
	var resp struct {
		UpsertedCount int `json:"upsertedCount"`
	}
	if err := p.rest.do(ctx, http.MethodPost, host+"/vectors/upsert", map[string]any{"vectors": vectors}, &resp); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	if resp.UpsertedCount != len(records) {
		p.logger.Warn("pinecone upserted count differs",
			zap.Int("sent", len(records)), zap.Int("upserted", resp.UpsertedCount))
	}
	return nil
}

// Query returns the topK nearest vectors.
func (p *PineconeStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]models.Match, error) {
	host, _, err := p.dataHost()
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": includeMetadata,
		"includeValues":   false,
	}
	var resp struct {
		Matches []struct {
			ID       string                 `json:"id"`
			Score    float64                `json:"score"`
			Values   []float32              `json:"values"`
			Metadata *models.RecordMetadata `json:"metadata"`
		} `json:"matches"`
	}
	if err := p.rest.do(ctx, http.MethodPost, host+"/query", req, &resp); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	matches := make([]models.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		rec := models.VectorRecord{ID: m.ID, Values: m.Values}
		if includeMetadata && m.Metadata != nil {
			rec.Metadata = *m.Metadata
		}
		matches = append(matches, models.Match{Record: rec, Score: m.Score})
	}
	return sortMatches(matches, topK), nil
}

// Close releases idle connections.
func (p *PineconeStore) Close() error {
	p.rest.client.CloseIdleConnections()
	return nil
}

// hostURL returns host with a scheme; the control plane reports bare host names.
func hostURL(host string) string {
	host = strings.TrimRight(host, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}
