package vectorstore

import (
	"fmt"

	"github.com/hyperjump/portfolio-agent/internal/config"
	"go.uber.org/zap"
)

// StoreType names a vector store backend.
type StoreType string

const (
	// StoreTypePinecone is the hosted serverless index.
	StoreTypePinecone StoreType = "pinecone"
	// StoreTypeQdrant is a self-hosted Qdrant collection.
	StoreTypeQdrant StoreType = "qdrant"
	// StoreTypeSQLite keeps vectors in a local file.
	StoreTypeSQLite StoreType = "sqlite"
	// StoreTypeMemory keeps vectors in process; nothing survives a restart.
	StoreTypeMemory StoreType = "memory"
)

// New creates the store selected by cfg.Type. apiKey is used by the hosted backends.
func New(cfg config.VectorStoreConfig, apiKey string, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch StoreType(cfg.Type) {
	case StoreTypePinecone:
		return NewPineconeStore(PineconeConfig{
			APIKey:        apiKey,
			ControllerURL: cfg.Pinecone.ControllerURL,
			Cloud:         cfg.Pinecone.Cloud,
			Region:        cfg.Pinecone.Region,
			ReadyTimeout:  cfg.Pinecone.ReadyTimeout,
			Timeout:       cfg.Timeout,
			Logger:        logger,
		}), nil
	case StoreTypeQdrant:
		return NewQdrantStore(QdrantConfig{URL: cfg.Qdrant.URL, APIKey: apiKey, Timeout: cfg.Timeout}), nil
	case StoreTypeSQLite:
		return NewSQLiteStore(cfg.SQLite.Path)
	case StoreTypeMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector store type: %s (supported: pinecone, qdrant, sqlite, memory)", cfg.Type)
	}
}

// SpecFromConfig returns the index spec described by cfg.
func SpecFromConfig(cfg config.VectorStoreConfig) IndexSpec {
	return IndexSpec{Name: cfg.IndexName, Dimension: cfg.Dimension, Metric: cfg.Metric}
}
