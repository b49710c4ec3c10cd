package config

import "time"

// DefaultIndexName is the vector index used by both ingestion and serving.
const DefaultIndexName = "portfolio-agent"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "gemini"
	}
	applyProviderDefaults(&cfg.Provider)

	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "pinecone"
	}
	if cfg.VectorStore.IndexName == "" {
		cfg.VectorStore.IndexName = DefaultIndexName
	}
	if cfg.VectorStore.Dimension == 0 {
		cfg.VectorStore.Dimension = cfg.Embedding.Dimensions
	}
	if cfg.VectorStore.Metric == "" {
		cfg.VectorStore.Metric = "cosine"
	}
	if cfg.VectorStore.APIKeyEnv == "" {
		cfg.VectorStore.APIKeyEnv = "PINECONE_API_KEY"
	}
	if cfg.VectorStore.Timeout == 0 {
		cfg.VectorStore.Timeout = 15 * time.Second
	}
	if cfg.VectorStore.Pinecone.ControllerURL == "" {
		cfg.VectorStore.Pinecone.ControllerURL = "https://api.pinecone.io"
	}
	if cfg.VectorStore.Pinecone.Cloud == "" {
		cfg.VectorStore.Pinecone.Cloud = "aws"
	}
	if cfg.VectorStore.Pinecone.Region == "" {
		cfg.VectorStore.Pinecone.Region = "us-east-1"
	}
	if cfg.VectorStore.Pinecone.ReadyTimeout == 0 {
		cfg.VectorStore.Pinecone.ReadyTimeout = 2 * time.Minute
	}
	if cfg.VectorStore.SQLite.Path == "" {
		cfg.VectorStore.SQLite.Path = "./data/index.db"
	}

	if cfg.Ingest.DataDir == "" {
		cfg.Ingest.DataDir = "./data"
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".txt", ".md", ".pdf", ".xlsx"}
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Ingest.EmbedDelay == 0 {
		cfg.Ingest.EmbedDelay = 2 * time.Second
	}
	if cfg.Ingest.RetryBackoff == 0 {
		cfg.Ingest.RetryBackoff = 10 * time.Second
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 50
	}
	if cfg.Ingest.IDScheme == "" {
		cfg.Ingest.IDScheme = "sequential"
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.MaxContextChars == 0 {
		cfg.Retrieval.MaxContextChars = 8000
	}

	if cfg.Limits.MaxMessageChars == 0 {
		cfg.Limits.MaxMessageChars = 2000
	}
	if cfg.Limits.MaxUploadBytes == 0 {
		cfg.Limits.MaxUploadBytes = 5 << 20
	}
	if cfg.Limits.MaxJDChars == 0 {
		cfg.Limits.MaxJDChars = 30000
	}
	if cfg.Limits.MaxTTSChars == 0 {
		cfg.Limits.MaxTTSChars = 5000
	}
	if cfg.Limits.PDFWorkers == 0 {
		cfg.Limits.PDFWorkers = 2
	}
	if cfg.Limits.PDFQueue == 0 {
		cfg.Limits.PDFQueue = 8
	}

	if cfg.RateLimit.ChatPerMinute == 0 {
		cfg.RateLimit.ChatPerMinute = 15
	}
	if cfg.RateLimit.AnalyzePerMinute == 0 {
		cfg.RateLimit.AnalyzePerMinute = 10
	}
	if cfg.RateLimit.TTSPerMinute == 0 {
		cfg.RateLimit.TTSPerMinute = 20
	}

	if cfg.Profile.Name == "" {
		cfg.Profile.Name = "Satish Rohit Singh"
	}
	if cfg.Profile.ShortName == "" {
		cfg.Profile.ShortName = "Satish"
	}
	if cfg.Profile.Title == "" {
		cfg.Profile.Title = "Lead Data Scientist"
	}
	if cfg.Profile.Location == "" {
		cfg.Profile.Location = "Abu Dhabi"
	}
	if cfg.Profile.ResumePath == "" {
		cfg.Profile.ResumePath = "./resume.txt"
	}
}

func applyProviderDefaults(p *ProviderConfig) {
	if p.Temperature == 0 {
		p.Temperature = 0.3
	}
	switch p.Name {
	case "openai":
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = "OPENAI_API_KEY"
		}
		if p.ChatModel == "" {
			p.ChatModel = "gpt-4o-mini"
		}
		if p.EmbeddingModel == "" {
			p.EmbeddingModel = "text-embedding-3-small"
		}
		if p.TTSModel == "" {
			p.TTSModel = "tts-1"
		}
		if p.Voice == "" {
			p.Voice = "alloy"
		}
	default:
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = "GOOGLE_API_KEY"
		}
		if p.ChatModel == "" {
			p.ChatModel = "gemini-2.5-flash"
		}
		if p.EmbeddingModel == "" {
			p.EmbeddingModel = "text-embedding-004"
		}
		if p.TTSModel == "" {
			p.TTSModel = "gemini-2.5-flash-preview-tts"
		}
		if p.Voice == "" {
			p.Voice = "Kore"
		}
	}
}
