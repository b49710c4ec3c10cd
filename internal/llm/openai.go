package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/portfolio-agent/internal/embedding"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAIPCMFormat describes the "pcm" speech response format: 24 kHz, 16-bit, mono.
const openAIPCMFormat = "audio/L16;codec=pcm;rate=24000;channels=1"

// OpenAIConfig configures an OpenAIClient. BaseURL allows any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	Temperature    float32
	EmbeddingModel string
	Dimensions     int
	TTSModel       string
	Voice          string
	Logger         *zap.Logger
}

// OpenAIClient serves embeddings, chat and speech from an OpenAI-compatible API.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger *zap.Logger
}

// NewOpenAIClient creates a client from cfg.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = embedding.DefaultDimensions
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		logger: cfg.Logger,
	}, nil
}

// Embed returns the embedding of text, requesting the configured dimension.
func (o *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(o.cfg.EmbeddingModel),
		Dimensions: o.cfg.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai: embed: %w", ErrEmptyResponse)
	}
	values := resp.Data[0].Embedding
	if err := embedding.CheckDimensions(values, o.cfg.Dimensions); err != nil {
		return nil, fmt.Errorf("openai: embed: %w", err)
	}
	return values, nil
}

// Dimensions returns the configured embedding dimension.
func (o *OpenAIClient) Dimensions() int {
	return o.cfg.Dimensions
}

// Complete runs a non-streaming chat completion.
func (o *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.cfg.ChatModel,
		Messages:    msgs,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: chat completion: %w", ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai: chat completion: %w", ErrEmptyResponse)
	}
	return text, nil
}

// Synthesize requests raw PCM speech.
func (o *OpenAIClient) Synthesize(ctx context.Context, text string) (Audio, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.cfg.TTSModel),
		Input:          text,
		Voice:          openai.SpeechVoice(o.cfg.Voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return Audio{}, fmt.Errorf("openai: synthesize: %w", err)
	}
	defer resp.Close()
	data, err := io.ReadAll(resp)
	if err != nil {
		return Audio{}, fmt.Errorf("openai: read speech: %w", err)
	}
	if len(data) == 0 {
		return Audio{}, ErrNoAudio
	}
	return Audio{Data: data, MIMEType: openAIPCMFormat}, nil
}
