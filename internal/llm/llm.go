// Package llm wraps the hosted model providers used for embeddings, chat completion and
// speech synthesis. Clients are stateless after construction and safe for concurrent use.
package llm

import (
	"context"
	"errors"

	"github.com/hyperjump/portfolio-agent/internal/embedding"
)

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

var (
	// ErrEmptyResponse is returned when a chat model answers with no text.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrNoAudio is returned when a speech model answers without audio data.
	ErrNoAudio = errors.New("model returned no audio")
)

// Message is one turn of a chat prompt.
type Message struct {
	Role    string
	Content string
}

// Audio is synthesized speech as returned by the provider.
// MIMEType may carry sample format hints such as "audio/L16;codec=pcm;rate=24000".
type Audio struct {
	Data     []byte
	MIMEType string
}

// ChatModel completes a prompt.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// SpeechModel turns text into audio.
type SpeechModel interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Provider is one hosted account serving all three capabilities.
type Provider interface {
	embedding.Embedder
	ChatModel
	SpeechModel
}

// splitMessages separates system instructions from the user turns.
func splitMessages(messages []Message) (system string, user []string) {
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		user = append(user, m.Content)
	}
	return system, user
}
