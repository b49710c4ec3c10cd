package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/portfolio-agent/internal/models"
)

// fakePinecone serves the control and data plane from one server, backed by a MemoryStore.
type fakePinecone struct {
	t          *testing.T
	mu         sync.Mutex
	created    bool
	dimension  int
	notReadyOn int // describe calls that report not-ready after creation
	describes  int
	mem        *MemoryStore
	srv        *httptest.Server
}

func newFakePinecone(t *testing.T) *fakePinecone {
	f := &fakePinecone{t: t, mem: NewMemoryStore(), notReadyOn: 1}
	mux := http.NewServeMux()
	mux.HandleFunc("/indexes/portfolio-agent", f.describe)
	mux.HandleFunc("/indexes", f.create)
	mux.HandleFunc("/vectors/upsert", f.upsert)
	mux.HandleFunc("/query", f.query)
	f.srv = httptest.NewServer(f.checkHeaders(mux))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePinecone) checkHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Api-Key") != "test-key" || r.Header.Get("X-Pinecone-API-Version") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakePinecone) describe(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.created {
		http.Error(w, `{"error":{"code":"NOT_FOUND"}}`, http.StatusNotFound)
		return
	}
	f.describes++
	ready := f.describes > f.notReadyOn
	_ = json.NewEncoder(w).Encode(map[string]any{
		"name":      "portfolio-agent",
		"dimension": f.dimension,
		"metric":    "cosine",
		"host":      f.srv.URL,
		"status":    map[string]any{"ready": ready, "state": "Initializing"},
	})
}

func (f *fakePinecone) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string `json:"name"`
		Dimension int    `json:"dimension"`
		Metric    string `json:"metric"`
		Spec      struct {
			Serverless struct {
				Cloud  string `json:"cloud"`
				Region string `json:"region"`
			} `json:"serverless"`
		} `json:"spec"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if body.Spec.Serverless.Cloud != "aws" || body.Spec.Serverless.Region != "us-east-1" {
		f.t.Errorf("unexpected serverless spec: %+v", body.Spec)
	}
	f.mu.Lock()
	f.created = true
	f.dimension = body.Dimension
	f.mu.Unlock()
	_ = f.mem.EnsureIndex(r.Context(), IndexSpec{Name: body.Name, Dimension: body.Dimension, Metric: body.Metric})
	w.WriteHeader(http.StatusCreated)
}

func (f *fakePinecone) upsert(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Vectors []models.VectorRecord `json:"vectors"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := f.mem.Upsert(r.Context(), body.Vectors); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]int{"upsertedCount": len(body.Vectors)})
}

func (f *fakePinecone) query(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Vector          []float32 `json:"vector"`
		TopK            int       `json:"topK"`
		IncludeMetadata bool      `json:"includeMetadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	matches, err := f.mem.Query(r.Context(), body.Vector, body.TopK, body.IncludeMetadata)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		item := map[string]any{"id": m.Record.ID, "score": m.Score}
		if body.IncludeMetadata {
			item["metadata"] = m.Record.Metadata
		}
		out = append(out, item)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"matches": out, "namespace": ""})
}

func newTestPinecone(f *fakePinecone, key string) *PineconeStore {
	return NewPineconeStore(PineconeConfig{
		APIKey:        key,
		ControllerURL: f.srv.URL,
		Cloud:         "aws",
		Region:        "us-east-1",
		ReadyTimeout:  10 * time.Second,
	})
}

func TestPineconeStore(t *testing.T) {
	f := newFakePinecone(t)
	s := newTestPinecone(f, "test-key")
	defer s.Close()
	exerciseStore(t, s)
}

func TestPineconeStore_badKey(t *testing.T) {
	f := newFakePinecone(t)
	s := newTestPinecone(f, "wrong")
	err := s.EnsureIndex(context.Background(), IndexSpec{Name: "portfolio-agent", Dimension: 3})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 StatusError, got %v", err)
	}
}

func TestPineconeStore_requiresIndex(t *testing.T) {
	s := NewPineconeStore(PineconeConfig{APIKey: "k"})
	if _, err := s.Query(context.Background(), []float32{1}, 1, true); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestHostURL(t *testing.T) {
	tests := map[string]string{
		"portfolio-agent-abc.svc.pinecone.io": "https://portfolio-agent-abc.svc.pinecone.io",
		"http://127.0.0.1:9999/":              "http://127.0.0.1:9999",
		"https://x.io":                        "https://x.io",
	}
	for in, want := range tests {
		if got := hostURL(in); got != want {
			t.Errorf("hostURL(%q) = %q, want %q", in, got, want)
		}
	}
}
