package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/portfolio-agent/internal/config"
	"github.com/hyperjump/portfolio-agent/internal/embedding"
	"github.com/hyperjump/portfolio-agent/internal/indexer"
	"github.com/hyperjump/portfolio-agent/internal/models"
	"github.com/hyperjump/portfolio-agent/internal/prompts"
	"github.com/hyperjump/portfolio-agent/internal/retriever"
	"github.com/hyperjump/portfolio-agent/internal/vectorstore"
	"go.uber.org/zap"
)

// TestPipeline_ingestThenChat ingests a small corpus and checks that a chat turn
// is grounded on the chunk that matches the question.
func TestPipeline_ingestThenChat(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"resume.txt":       "Satish Rohit Singh. Lead Data Scientist with 15 years of experience.",
		"projects/rag.md":  "Built this portfolio agent with retrieval augmented generation.",
		"certs/cloud.txt":  "AWS Certified Machine Learning Specialty.",
		"ignored/notes.go": "package notes",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Embedding.Dimensions = 16
	cfg.VectorStore.Dimension = 16
	cfg.VectorStore.Type = "memory"
	cfg.Ingest.DataDir = dir
	cfg.Ingest.EmbedDelay = 0
	cfg.Ingest.RetryBackoff = 0
	cfg.Retrieval.TopK = 1

	emb := embedding.NewCachedEmbedder(embedding.NewMockEmbedder(16), cfg.Embedding.CacheSize)
	store, err := vectorstore.New(cfg.VectorStore, "", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	idx, err := indexer.NewIndexer(emb, store, nil, vectorstore.SpecFromConfig(cfg.VectorStore), cfg.Ingest)
	if err != nil {
		t.Fatal(err)
	}
	report, err := idx.Run(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if report.Documents != 3 || report.Embedded != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}

	assembler, err := prompts.NewAssembler(prompts.Profile{Name: cfg.Profile.Name, Title: cfg.Profile.Title})
	if err != nil {
		t.Fatal(err)
	}
	chat := &fakeChat{answer: "AWS ML Specialty."}
	srv := NewServer(cfg, Dependencies{
		Retriever: retriever.New(emb, store, retriever.WithTopK(cfg.Retrieval.TopK)),
		Chat:      chat,
		Speech:    &fakeSpeech{},
		Prompts:   assembler,
		PDF:       &fakePDF{},
	}, zap.NewNop())

	// The mock embedder maps identical text to identical vectors, so asking with
	// the exact chunk text must retrieve that chunk.
	env := &testEnv{server: srv}
	out := decodeChat(t, env.do(chatRequest(`{"message":"AWS Certified Machine Learning Specialty."}`)))
	if out.Action != models.ActionReply {
		t.Fatalf("unexpected response: %+v", out)
	}
	system := chat.last[0].Content
	if !strings.Contains(system, "AWS Certified Machine Learning Specialty.") {
		t.Errorf("system prompt not grounded on the matching chunk:\n%s", system)
	}
	if strings.Contains(system, "portfolio agent with retrieval") {
		t.Error("top_k 1 should include only the best chunk")
	}
}
