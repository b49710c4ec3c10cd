// Package retriever turns a user query into grounding context from the vector index.
package retriever

import (
	"context"
	"strings"

	"github.com/hyperjump/portfolio-agent/internal/embedding"
	"github.com/hyperjump/portfolio-agent/internal/models"
	"github.com/hyperjump/portfolio-agent/internal/vectorstore"
	"github.com/hyperjump/portfolio-agent/pkg/utils"
	"go.uber.org/zap"
)

// Delimiter precedes every retrieved chunk in the context string.
const Delimiter = "\n---\n"

const (
	defaultTopK            = 3
	defaultMaxContextChars = 8000
)

// Result is the outcome of one retrieval. Err is set when retrieval degraded to an
// empty context; callers continue with Context regardless.
type Result struct {
	Context string
	Matches []models.Match
	Err     error
}

// Retriever embeds queries and looks them up in the store.
// It holds no per-request state and is safe for concurrent use.
type Retriever struct {
	embedder        embedding.Embedder
	store           vectorstore.Store
	topK            int
	maxContextChars int
	logger          *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger used to report degraded retrievals.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// WithTopK sets the default number of matches.
func WithTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithMaxContextChars bounds the context string length in runes.
func WithMaxContextChars(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.maxContextChars = n
		}
	}
}

// New creates a Retriever.
func New(embedder embedding.Embedder, store vectorstore.Store, opts ...Option) *Retriever {
	r := &Retriever{
		embedder:        embedder,
		store:           store,
		topK:            defaultTopK,
		maxContextChars: defaultMaxContextChars,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the concatenated text of the k best matches for query.
// Any embedding or query failure yields an empty context with Err set; it never fails the caller.
// k <= 0 uses the configured default.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) Result {
	if k <= 0 {
		k = r.topK
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("retrieval degraded: embed failed", zap.Error(err))
		return Result{Err: err}
	}
	matches, err := r.store.Query(ctx, vec, k, true)
	if err != nil {
		r.logger.Warn("retrieval degraded: query failed", zap.Error(err))
		return Result{Err: err}
	}
	return Result{Context: r.buildContext(matches), Matches: matches}
}

// buildContext joins match texts in score order, stopping before the bound is exceeded.
// A first match that alone exceeds the bound is clipped.
func (r *Retriever) buildContext(matches []models.Match) string {
	var b strings.Builder
	used := 0
	for i, m := range matches {
		piece := Delimiter + m.Record.Metadata.Text
		n := utils.RuneLen(piece)
		if used+n > r.maxContextChars {
			if i == 0 {
				b.WriteString(utils.Clip(piece, r.maxContextChars))
			}
			break
		}
		b.WriteString(piece)
		used += n
	}
	return b.String()
}
