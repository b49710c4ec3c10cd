package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newGeminiTestServer answers generateContent and embed calls. ttsData nil means no audio part.
func newGeminiTestServer(t *testing.T, ttsData []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.Contains(path, "mbedContent"):
			values := []float32{0.5, 0.5, 0.5, 0.5}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"embeddings": []map[string]any{{"values": values}},
				"embedding":  map[string]any{"values": values},
			})
		case strings.Contains(path, "tts") && strings.HasSuffix(path, ":generateContent"):
			parts := []map[string]any{}
			if ttsData != nil {
				parts = append(parts, map[string]any{"inlineData": map[string]any{
					"mimeType": "audio/L16;codec=pcm;rate=24000",
					"data":     base64.StdEncoding.EncodeToString(ttsData),
				}})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{{"content": map[string]any{"role": "model", "parts": parts}}},
			})
		case strings.HasSuffix(path, ":generateContent"):
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			if _, ok := req["systemInstruction"]; !ok {
				t.Error("system instruction should be sent")
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{{"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": "Hello from Gemini"}},
				}}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGemini(t *testing.T, srv *httptest.Server, dims int) *GeminiClient {
	t.Helper()
	c, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:         "test",
		BaseURL:        srv.URL,
		ChatModel:      "gemini-2.5-flash",
		Temperature:    0.3,
		EmbeddingModel: "text-embedding-004",
		Dimensions:     dims,
		TTSModel:       "gemini-2.5-flash-preview-tts",
		Voice:          "Kore",
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestGeminiClient_Complete(t *testing.T) {
	c := newTestGemini(t, newGeminiTestServer(t, nil), 4)
	got, err := c.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hello from Gemini" {
		t.Errorf("got %q", got)
	}
}

func TestGeminiClient_Embed(t *testing.T) {
	c := newTestGemini(t, newGeminiTestServer(t, nil), 4)
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 4 {
		t.Errorf("got %v", vec)
	}

	wrong := newTestGemini(t, newGeminiTestServer(t, nil), 768)
	if _, err := wrong.Embed(context.Background(), "hello"); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestGeminiClient_Synthesize(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xff, 0x7f}
	c := newTestGemini(t, newGeminiTestServer(t, pcm), 4)
	audio, err := c.Synthesize(context.Background(), "Hello")
	if err != nil {
		t.Fatal(err)
	}
	if string(audio.Data) != string(pcm) {
		t.Errorf("got %v", audio.Data)
	}
	if !strings.HasPrefix(audio.MIMEType, "audio/L16") {
		t.Errorf("mime = %q", audio.MIMEType)
	}
}

func TestGeminiClient_SynthesizeNoAudio(t *testing.T) {
	c := newTestGemini(t, newGeminiTestServer(t, nil), 4)
	if _, err := c.Synthesize(context.Background(), "Hello"); !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio, got %v", err)
	}
}

func TestGeminiClient_SynthesizeKeepsASCIIValuedPCM(t *testing.T) {
	// 0x6241 samples are all base64 alphabet bytes and must not be decoded again.
	pcm := bytes.Repeat([]byte("Ab"), 2400)
	c := newTestGemini(t, newGeminiTestServer(t, pcm), 4)
	audio, err := c.Synthesize(context.Background(), "Hello")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(audio.Data, pcm) {
		t.Errorf("got %d bytes, want the %d PCM bytes unchanged", len(audio.Data), len(pcm))
	}
}

func TestSplitMessages(t *testing.T) {
	system, user := splitMessages([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "q1"},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleUser, Content: ""},
	})
	if system != "a\n\nb" {
		t.Errorf("system = %q", system)
	}
	if len(user) != 1 || user[0] != "q1" {
		t.Errorf("user = %v", user)
	}
}
