package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hyperjump/portfolio-agent/internal/chunkid"
	"github.com/hyperjump/portfolio-agent/internal/config"
	"github.com/hyperjump/portfolio-agent/internal/embedding"
	"github.com/hyperjump/portfolio-agent/internal/extract"
	"github.com/hyperjump/portfolio-agent/internal/models"
	"github.com/hyperjump/portfolio-agent/internal/vectorstore"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Indexer loads documents, chunks them, embeds every chunk and upserts the vectors.
type Indexer struct {
	embedder  embedding.Embedder
	store     vectorstore.Store
	extractor *extract.Extractor
	chunker   *Chunker
	spec      vectorstore.IndexSpec
	config    config.IngestConfig
	idFunc    chunkid.Func
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for progress and skipped-chunk events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer with the given dependencies.
// extractor may be nil; a default extractor is used then.
func NewIndexer(
	embedder embedding.Embedder,
	store vectorstore.Store,
	extractor *extract.Extractor,
	spec vectorstore.IndexSpec,
	cfg config.IngestConfig,
	opts ...IndexerOption,
) (*Indexer, error) {
	idFunc, err := chunkid.ForScheme(cfg.IDScheme)
	if err != nil {
		return nil, err
	}
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = vectorstore.DefaultBatchSize
	}
	limit := rate.Inf
	if cfg.EmbedDelay > 0 {
		limit = rate.Every(cfg.EmbedDelay)
	}
	idx := &Indexer{
		embedder:  embedder,
		store:     store,
		extractor: extractor,
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		spec:      spec,
		config:    cfg,
		idFunc:    idFunc,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Run ingests every allowed file under dir.
func (idx *Indexer) Run(ctx context.Context, dir string) (models.IngestReport, error) {
	docs, err := LoadDocuments(dir, idx.config.Extensions, idx.extractor, idx.logger)
	if err != nil {
		return models.IngestReport{}, fmt.Errorf("load documents: %w", err)
	}
	idx.logger.Info("documents loaded", zap.String("dir", dir), zap.Int("documents", len(docs)))
	return idx.IngestDocuments(ctx, docs)
}

// IngestFiles ingests an explicit list of files. Sources are relative to the configured data directory.
func (idx *Indexer) IngestFiles(ctx context.Context, paths []string) (models.IngestReport, error) {
	root := idx.config.DataDir
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	docs := make([]models.Document, 0, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			idx.logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
			continue
		}
		doc, err := loadFile(root, abs, idx.extractor)
		if err != nil {
			idx.logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	return idx.IngestDocuments(ctx, docs)
}

// IngestDocuments chunks, embeds and upserts docs. Chunks whose embedding fails after one
// retry are logged and skipped; the run continues. The returned error is non-nil only when
// the index cannot be ensured or ctx ends.
func (idx *Indexer) IngestDocuments(ctx context.Context, docs []models.Document) (models.IngestReport, error) {
	report := models.IngestReport{Documents: len(docs)}
	chunks := idx.chunker.Split(docs)
	report.Chunks = len(chunks)
	for i := range chunks {
		chunks[i].ID = idx.idFunc(i, chunks[i].Source, chunks[i].Index, chunks[i].Text)
	}

	if err := idx.store.EnsureIndex(ctx, idx.spec); err != nil {
		return report, fmt.Errorf("ensure index: %w", err)
	}
	if len(chunks) == 0 {
		idx.logger.Warn("nothing to ingest")
		return report, nil
	}

	start := time.Now()
	records := make([]models.VectorRecord, 0, len(chunks))
	for i, c := range chunks {
		vec, err := idx.embedWithRetry(ctx, c.Text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				idx.finish(ctx, &report, records)
				return report, ctxErr
			}
			report.Skipped++
			idx.logger.Warn("skipping chunk",
				zap.String("chunk_id", c.ID),
				zap.String("source", c.Source),
				zap.Error(err))
			continue
		}
		records = append(records, models.NewVectorRecord(c, vec))
		report.Embedded++
		if (i+1)%25 == 0 {
			idx.logger.Info("embedding progress", zap.Int("done", i+1), zap.Int("total", len(chunks)))
		}
	}
	idx.finish(ctx, &report, records)
	idx.logger.Info("ingestion finished",
		zap.Int("documents", report.Documents),
		zap.Int("chunks", report.Chunks),
		zap.Int("embedded", report.Embedded),
		zap.Int("skipped", report.Skipped),
		zap.Int("batches", report.Batches),
		zap.Int("failed_batches", report.FailedBatches),
		zap.Duration("took", time.Since(start)))
	return report, nil
}

func (idx *Indexer) finish(ctx context.Context, report *models.IngestReport, records []models.VectorRecord) {
	if len(records) == 0 {
		return
	}
	// Upload what was embedded even when ctx already ended.
	upCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		upCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
	}
	report.Batches, report.FailedBatches = vectorstore.UpsertBatches(upCtx, idx.store, records, idx.config.BatchSize, idx.logger)
}

// embedWithRetry waits for the rate limiter, then embeds text, retrying once after RetryBackoff.
func (idx *Indexer) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	op := func() error {
		if err := idx.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		v, err := idx.embedder.Embed(ctx, text)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			return err
		}
		vec = v
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(idx.config.RetryBackoff), 1), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return vec, nil
}
