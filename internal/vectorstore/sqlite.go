package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/portfolio-agent/internal/models"
)

// SQLiteStore keeps vectors in a local SQLite file and answers queries with a full scan.
// Several named indexes can share one database file.
type SQLiteStore struct {
	db *sql.DB

	mu   sync.RWMutex
	spec IndexSpec
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS indexes (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		metric TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS vectors (
		index_name TEXT NOT NULL,
		id TEXT NOT NULL,
		source TEXT,
		text TEXT,
		embedding BLOB NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (index_name, id),
		FOREIGN KEY (index_name) REFERENCES indexes(name) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// EnsureIndex creates the named index row if absent and checks the dimension otherwise.
func (s *SQLiteStore) EnsureIndex(ctx context.Context, spec IndexSpec) error {
	if spec.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", spec.Dimension)
	}
	if spec.Metric == "" {
		spec.Metric = "cosine"
	}
	var dim int
	var metric string
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension, metric FROM indexes WHERE name = ?`, spec.Name).Scan(&dim, &metric)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO indexes (name, dimension, metric) VALUES (?, ?, ?)`,
			spec.Name, spec.Dimension, spec.Metric); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to describe index: %w", err)
	case dim != spec.Dimension:
		return fmt.Errorf("%w: index %q has %d, want %d", ErrDimensionMismatch, spec.Name, dim, spec.Dimension)
	default:
		spec.Metric = metric
	}

	s.mu.Lock()
	s.spec = spec
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) current() (IndexSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.spec.Name == "" {
		return IndexSpec{}, ErrIndexNotFound
	}
	return s.spec, nil
}

// Upsert writes all records in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	spec, err := s.current()
	if err != nil {
		return err
	}
	if err := checkRecordDimensions(records, spec.Dimension); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vectors (index_name, id, source, text, embedding, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(index_name, id) DO UPDATE SET
			source = excluded.source,
			text = excluded.text,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, spec.Name, r.ID, r.Metadata.Source, r.Metadata.Text,
			float32SliceToBytes(r.Values)); err != nil {
			return fmt.Errorf("failed to upsert %q: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// Query scans every vector of the index and returns the topK best.
func (s *SQLiteStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]models.Match, error) {
	spec, err := s.current()
	if err != nil {
		return nil, err
	}
	if len(vector) != spec.Dimension {
		return nil, fmt.Errorf("%w: query has %d, want %d", ErrDimensionMismatch, len(vector), spec.Dimension)
	}
	if topK <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, text, embedding FROM vectors WHERE index_name = ?`, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var (
			id, source, text sql.NullString
			blob             []byte
		)
		if err := rows.Scan(&id, &source, &text, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan vector: %w", err)
		}
		values := bytesToFloat32Slice(blob)
		rec := models.VectorRecord{ID: id.String, Values: values}
		if includeMetadata {
			rec.Metadata = models.RecordMetadata{Text: text.String, Source: source.String}
		}
		matches = append(matches, models.Match{Record: rec, Score: score(spec.Metric, vector, values)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vectors: %w", err)
	}
	return sortMatches(matches, topK), nil
}

// Count returns the number of vectors stored for the current index.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	spec, err := s.current()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vectors WHERE index_name = ?`, spec.Name).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
