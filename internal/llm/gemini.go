package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/portfolio-agent/internal/embedding"
	"github.com/hyperjump/portfolio-agent/pkg/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey         string
	BaseURL        string // optional; overrides the Gemini API endpoint
	ChatModel      string
	Temperature    float32
	EmbeddingModel string
	Dimensions     int
	TTSModel       string
	Voice          string
	Logger         *zap.Logger
}

// GeminiClient serves embeddings, chat and speech from the Gemini API.
type GeminiClient struct {
	client *genai.Client
	cfg    GeminiConfig
	logger *zap.Logger
}

// NewGeminiClient creates a client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = embedding.DefaultDimensions
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiClient{client: client, cfg: cfg, logger: cfg.Logger}, nil
}

// Embed returns the embedding of text with the configured output dimensionality.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.cfg.EmbeddingModel, genai.Text(text),
		&genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(g.cfg.Dimensions))})
	if err != nil {
		return nil, fmt.Errorf("gemini: embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("gemini: embed: %w", ErrEmptyResponse)
	}
	values := resp.Embeddings[0].Values
	if err := embedding.CheckDimensions(values, g.cfg.Dimensions); err != nil {
		return nil, fmt.Errorf("gemini: embed: %w", err)
	}
	// Truncated output dimensionalities are not unit length.
	utils.NormalizeL2(values)
	return values, nil
}

// Dimensions returns the configured embedding dimension.
func (g *GeminiClient) Dimensions() int {
	return g.cfg.Dimensions
}

// Complete sends system messages as the system instruction and the rest as user content.
func (g *GeminiClient) Complete(ctx context.Context, messages []Message) (string, error) {
	system, user := splitMessages(messages)
	if len(user) == 0 {
		return "", fmt.Errorf("gemini: complete: no user content")
	}
	contents := make([]*genai.Content, 0, len(user))
	for _, u := range user {
		contents = append(contents, genai.NewContentFromText(u, genai.RoleUser))
	}
	config := &genai.GenerateContentConfig{Temperature: genai.Ptr(g.cfg.Temperature)}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.ChatModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: generate: %w", ErrEmptyResponse)
	}
	return text, nil
}

// Synthesize asks the TTS model for audio using the configured prebuilt voice.
// The provider usually answers with headerless 16-bit PCM.
func (g *GeminiClient) Synthesize(ctx context.Context, text string) (Audio, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.cfg.Voice},
			},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.TTSModel, genai.Text(text), config)
	if err != nil {
		return Audio{}, fmt.Errorf("gemini: synthesize: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Audio{}, ErrNoAudio
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		return Audio{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
	}
	return Audio{}, ErrNoAudio
}
