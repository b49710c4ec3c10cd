// Package main is the portfolio agent CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/portfolio-agent/internal/chunkid"
	"github.com/hyperjump/portfolio-agent/internal/cli"
	"github.com/hyperjump/portfolio-agent/internal/config"
	"github.com/hyperjump/portfolio-agent/internal/embedding"
	"github.com/hyperjump/portfolio-agent/internal/extract"
	"github.com/hyperjump/portfolio-agent/internal/indexer"
	"github.com/hyperjump/portfolio-agent/internal/llm"
	"github.com/hyperjump/portfolio-agent/internal/prompts"
	"github.com/hyperjump/portfolio-agent/internal/retriever"
	"github.com/hyperjump/portfolio-agent/internal/server"
	"github.com/hyperjump/portfolio-agent/internal/vectorstore"
	"github.com/hyperjump/portfolio-agent/internal/watcher"
	"github.com/hyperjump/portfolio-agent/internal/workpool"
	"github.com/hyperjump/portfolio-agent/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/etc/portfolio-agent/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "version", "--version", "-v":
		fmt.Printf("portfolio version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads .env and the config, resolves secrets and builds the logger.
// Any failure here is fatal: the process must not start half-configured.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger) {
	envErr := godotenv.Load()

	cfg, resolvedConfigPath, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	if envErr != nil {
		logger.Debug("no .env file loaded", zap.Error(envErr))
	}
	if err := cfg.ResolveSecrets(os.Getenv); err != nil {
		logger.Fatal("Missing credentials", zap.Error(err))
	}
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("provider", cfg.Provider.Name),
		zap.String("vector_store", cfg.VectorStore.Type),
	)
	return cfg, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	assembler, err := prompts.NewAssembler(prompts.Profile{
		Name:      cfg.Profile.Name,
		ShortName: cfg.Profile.ShortName,
		Title:     cfg.Profile.Title,
		Location:  cfg.Profile.Location,
	})
	if err != nil {
		logger.Fatal("Failed to load prompts", zap.Error(err))
	}
	ret := retriever.New(components.Embedder, components.Store,
		retriever.WithLogger(logger),
		retriever.WithTopK(cfg.Retrieval.TopK),
		retriever.WithMaxContextChars(cfg.Retrieval.MaxContextChars),
	)

	srv := server.NewServer(cfg, server.Dependencies{
		Retriever: ret,
		Chat:      components.Provider,
		Speech:    components.Provider,
		Prompts:   assembler,
		PDF:       extract.NewExtractor(),
		Pool:      workpool.New(cfg.Limits.PDFWorkers, cfg.Limits.PDFQueue),
		Resume:    server.LoadResume(cfg.Profile, logger),
	}, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	dir := fs.String("dir", "", "data directory (default: ingest.data_dir from config)")
	watch := fs.Bool("watch", false, "keep running and re-ingest files as they change (requires id_scheme: content)")
	outputFormat := fs.String("output", "text", "report format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	if *dir != "" {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			logger.Fatal("Invalid data directory", zap.String("dir", *dir), zap.Error(err))
		}
		cfg.Ingest.DataDir = abs
	}
	if *watch && cfg.Ingest.IDScheme != chunkid.SchemeContent {
		// Sequential ids restart at chunk_0 on every run and would overwrite unrelated chunks.
		logger.Fatal("watch mode requires ingest.id_scheme: content", zap.String("id_scheme", cfg.Ingest.IDScheme))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// Ingestion embeds each chunk once; the query cache would only hold memory.
	idx, err := indexer.NewIndexer(
		components.Provider,
		components.Store,
		extract.NewExtractor(),
		vectorstore.SpecFromConfig(cfg.VectorStore),
		cfg.Ingest,
		indexer.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("Failed to create indexer", zap.Error(err))
	}

	start := time.Now()
	report, err := idx.Run(ctx, cfg.Ingest.DataDir)
	if err != nil {
		logger.Fatal("Ingestion failed", zap.Error(err))
	}
	if err := cli.WriteReport(os.Stdout, report, time.Since(start), format); err != nil {
		logger.Error("Output failed", zap.Error(err))
	}
	if !*watch {
		return
	}

	w := watcher.NewWatcher(cfg.Ingest.DataDir, cfg.Ingest.Extensions, func(paths []string) {
		start := time.Now()
		report, err := idx.IngestFiles(ctx, paths)
		if err != nil {
			logger.Error("re-ingest failed", zap.Strings("paths", paths), zap.Error(err))
			return
		}
		_ = cli.WriteReport(os.Stdout, report, time.Since(start), format)
	}, watcher.WithLogger(logger))
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	<-ctx.Done()
	logger.Info("Stopping watcher")
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: portfolio search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  portfolio search machine learning projects
  portfolio search -k 5 "leadership experience"
  portfolio search -output json cloud certifications
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	k := fs.Int("k", 0, "number of matches (default: retrieval.top_k from config)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ret := retriever.New(components.Embedder, components.Store,
		retriever.WithLogger(logger),
		retriever.WithTopK(cfg.Retrieval.TopK),
		retriever.WithMaxContextChars(cfg.Retrieval.MaxContextChars),
	)
	start := time.Now()
	res := ret.Retrieve(ctx, queryStr, *k)
	if err := cli.WriteMatches(os.Stdout, queryStr, res.Matches, time.Since(start), res.Err, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Provider llm.Provider
	// Embedder is Provider behind the query embedding cache.
	Embedder embedding.Embedder
	Store    vectorstore.Store
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

// initializeComponents builds the model provider and vector store and ensures the index
// exists with the configured dimension. A dimension mismatch is returned as an error.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	provider, err := llm.New(ctx, cfg.Provider, cfg.Embedding.Dimensions, cfg.Secrets.ProviderAPIKey, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model provider: %w", err)
	}
	store, err := vectorstore.New(cfg.VectorStore, cfg.Secrets.VectorStoreAPIKey, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	spec := vectorstore.SpecFromConfig(cfg.VectorStore)
	if err := store.EnsureIndex(ctx, spec); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to ensure index %q: %w", spec.Name, err)
	}
	logger.Info("vector index ready",
		zap.String("type", cfg.VectorStore.Type),
		zap.String("index", spec.Name),
		zap.Int("dimension", spec.Dimension))

	return &Components{
		Provider: provider,
		Embedder: embedding.NewCachedEmbedder(provider, cfg.Embedding.CacheSize),
		Store:    store,
	}, nil
}

func printUsage() {
	fmt.Println(`portfolio - RAG assistant for a personal portfolio site

Usage:
  portfolio server [flags]           Start the HTTP API (/chat, /analyze_jd, /tts, /health)
  portfolio ingest [flags]           Chunk, embed and upload the data directory
  portfolio search [flags] <query>   Show the chunks retrieved for a query
  portfolio version                  Show version
  portfolio help                     Show this help

Common Flags:
  --config string    Config file path (default: /etc/portfolio-agent/config.yaml, or ./config.yaml if present)
  --debug            Enable debug logging

Ingest Flags:
  --dir string       Data directory (default: ingest.data_dir)
  --watch            Re-ingest files as they change (requires ingest.id_scheme: content)
  --output string    Report format: text or json (default: text)

Search Flags:
  --k int            Number of matches (default: retrieval.top_k)
  --output string    Output format: text or json (default: text)

Environment:
  GOOGLE_API_KEY     Gemini API key (or the variable named by provider.api_key_env)
  PINECONE_API_KEY   Pinecone API key when vector_store.type is pinecone
  A .env file in the working directory is loaded first.

Examples:
  portfolio ingest --dir ./data
  portfolio ingest --watch
  portfolio search --k 5 "leadership experience"
  portfolio server --debug`)
}
