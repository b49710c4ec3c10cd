package llm

import (
	"context"
	"fmt"

	"github.com/hyperjump/portfolio-agent/internal/config"
	"go.uber.org/zap"
)

// New creates the provider selected by cfg.Name.
func New(ctx context.Context, cfg config.ProviderConfig, dimensions int, apiKey string, logger *zap.Logger) (Provider, error) {
	switch cfg.Name {
	case "gemini":
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:         apiKey,
			BaseURL:        cfg.BaseURL,
			ChatModel:      cfg.ChatModel,
			Temperature:    cfg.Temperature,
			EmbeddingModel: cfg.EmbeddingModel,
			Dimensions:     dimensions,
			TTSModel:       cfg.TTSModel,
			Voice:          cfg.Voice,
			Logger:         logger,
		})
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:         apiKey,
			BaseURL:        cfg.BaseURL,
			ChatModel:      cfg.ChatModel,
			Temperature:    cfg.Temperature,
			EmbeddingModel: cfg.EmbeddingModel,
			Dimensions:     dimensions,
			TTSModel:       cfg.TTSModel,
			Voice:          cfg.Voice,
			Logger:         logger,
		})
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: gemini, openai)", cfg.Name)
	}
}
