// Package config provides configuration loading and structs for the portfolio agent.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingSecret is returned by ResolveSecrets when a required API key is not in the environment.
var ErrMissingSecret = errors.New("missing required secret")

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Provider    ProviderConfig    `yaml:"provider"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Limits      LimitsConfig      `yaml:"limits"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Profile     ProfileConfig     `yaml:"profile"`

	// Secrets are filled by ResolveSecrets and never written back to disk.
	Secrets Secrets `yaml:"-"`
}

// Secrets holds API keys read from the environment.
type Secrets struct {
	ProviderAPIKey    string
	VectorStoreAPIKey string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	// TrustedProxies lists peer addresses or CIDRs whose forwarding headers name the client.
	TrustedProxies []string      `yaml:"trusted_proxies"`
}

// ProviderConfig selects the hosted model provider used for embeddings, chat and speech.
type ProviderConfig struct {
	Name           string  `yaml:"name"` // gemini or openai
	APIKeyEnv      string  `yaml:"api_key_env"`
	BaseURL        string  `yaml:"base_url"`
	ChatModel      string  `yaml:"chat_model"`
	Temperature    float32 `yaml:"temperature"`
	EmbeddingModel string  `yaml:"embedding_model"`
	TTSModel       string  `yaml:"tts_model"`
	Voice          string  `yaml:"voice"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Dimensions int `yaml:"dimensions"`
	CacheSize  int `yaml:"cache_size"`
}

// VectorStoreConfig selects and configures the vector index backend.
type VectorStoreConfig struct {
	Type      string         `yaml:"type"` // pinecone, qdrant, sqlite or memory
	IndexName string         `yaml:"index_name"`
	Dimension int            `yaml:"dimension"`
	Metric    string         `yaml:"metric"`
	APIKeyEnv string         `yaml:"api_key_env"`
	Timeout   time.Duration  `yaml:"timeout"`
	Pinecone  PineconeConfig `yaml:"pinecone"`
	Qdrant    QdrantConfig   `yaml:"qdrant"`
	SQLite    SQLiteConfig   `yaml:"sqlite"`
}

// PineconeConfig holds Pinecone serverless settings.
type PineconeConfig struct {
	ControllerURL string        `yaml:"controller_url"`
	Cloud         string        `yaml:"cloud"`
	Region        string        `yaml:"region"`
	ReadyTimeout  time.Duration `yaml:"ready_timeout"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	URL string `yaml:"url"`
}

// SQLiteConfig holds the local index database path.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	DataDir      string        `yaml:"data_dir"`
	Extensions   []string      `yaml:"extensions"`
	ChunkSize    int           `yaml:"chunk_size"`
	ChunkOverlap int           `yaml:"chunk_overlap"`
	EmbedDelay   time.Duration `yaml:"embed_delay"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	BatchSize    int           `yaml:"batch_size"`
	IDScheme     string        `yaml:"id_scheme"` // sequential or content
}

// RetrievalConfig holds query-time retrieval settings.
type RetrievalConfig struct {
	TopK            int `yaml:"top_k"`
	MaxContextChars int `yaml:"max_context_chars"`
}

// LimitsConfig holds request validation limits and the PDF worker pool size.
type LimitsConfig struct {
	MaxMessageChars int   `yaml:"max_message_chars"`
	MaxUploadBytes  int64 `yaml:"max_upload_bytes"`
	MaxJDChars      int   `yaml:"max_jd_chars"`
	MaxTTSChars     int   `yaml:"max_tts_chars"`
	PDFWorkers      int   `yaml:"pdf_workers"`
	PDFQueue        int   `yaml:"pdf_queue"`
}

// RateLimitConfig holds per-client-address request limits per minute.
type RateLimitConfig struct {
	ChatPerMinute    int `yaml:"chat_per_minute"`
	AnalyzePerMinute int `yaml:"analyze_per_minute"`
	TTSPerMinute     int `yaml:"tts_per_minute"`
}

// ProfileConfig describes the person the assistant represents.
type ProfileConfig struct {
	Name       string `yaml:"name"`
	ShortName  string `yaml:"short_name"`
	Title      string `yaml:"title"`
	Location   string `yaml:"location"`
	ResumePath string `yaml:"resume_path"`
}

// Load reads and parses the config file at path, applies defaults, expands paths and validates.
// Returns an error if the file cannot be read, parsed, or is invalid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Ingest.DataDir = expandPath(cfg.Ingest.DataDir, configDir)
	cfg.Profile.ResumePath = expandPath(cfg.Profile.ResumePath, configDir)
	cfg.VectorStore.SQLite.Path = expandPath(cfg.VectorStore.SQLite.Path, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports configuration errors that must stop the process before it serves requests.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown provider %q (supported: gemini, openai)", c.Provider.Name)
	}
	switch c.VectorStore.Type {
	case "pinecone", "qdrant", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown vector store type %q (supported: pinecone, qdrant, sqlite, memory)", c.VectorStore.Type)
	}
	if c.VectorStore.IndexName == "" {
		return errors.New("vector_store.index_name is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding.dimensions must be positive")
	}
	if c.Embedding.Dimensions != c.VectorStore.Dimension {
		return fmt.Errorf("embedding dimension %d does not match vector store dimension %d",
			c.Embedding.Dimensions, c.VectorStore.Dimension)
	}
	if c.VectorStore.Type == "qdrant" && c.VectorStore.Qdrant.URL == "" {
		return errors.New("vector_store.qdrant.url is required for the qdrant store")
	}
	if c.Ingest.ChunkSize <= 0 {
		return errors.New("ingest.chunk_size must be positive")
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, %d)", c.Ingest.ChunkSize)
	}
	if c.Ingest.BatchSize <= 0 {
		return errors.New("ingest.batch_size must be positive")
	}
	switch c.Ingest.IDScheme {
	case "sequential", "content":
	default:
		return fmt.Errorf("unknown ingest.id_scheme %q (supported: sequential, content)", c.Ingest.IDScheme)
	}
	for _, origin := range c.Server.AllowedOrigins {
		if strings.Contains(origin, "*") {
			return fmt.Errorf("wildcard origin %q is not allowed; list origins explicitly", origin)
		}
	}
	if _, err := c.Server.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes parses server.trusted_proxies. A bare address becomes a single-host prefix.
func (s ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, entry := range s.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// ResolveSecrets reads the API keys named in the config from the environment.
// The provider key is always required; the vector store key only for hosted stores.
func (c *Config) ResolveSecrets(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	c.Secrets.ProviderAPIKey = getenv(c.Provider.APIKeyEnv)
	if c.Secrets.ProviderAPIKey == "" {
		return fmt.Errorf("%w: %s", ErrMissingSecret, c.Provider.APIKeyEnv)
	}
	c.Secrets.VectorStoreAPIKey = getenv(c.VectorStore.APIKeyEnv)
	if c.VectorStore.Type == "pinecone" && c.Secrets.VectorStoreAPIKey == "" {
		return fmt.Errorf("%w: %s", ErrMissingSecret, c.VectorStore.APIKeyEnv)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" (or plain relative paths)
// are relative to configDir; "~/" paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}
