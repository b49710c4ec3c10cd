// Package server provides the HTTP API of the portfolio agent.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/portfolio-agent/internal/config"
	"github.com/hyperjump/portfolio-agent/internal/llm"
	"github.com/hyperjump/portfolio-agent/internal/prompts"
	"github.com/hyperjump/portfolio-agent/internal/retriever"
	"github.com/hyperjump/portfolio-agent/internal/workpool"
	"go.uber.org/zap"
)

// ContextRetriever returns grounding context for a query. k <= 0 uses the retriever's default.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, k int) retriever.Result
}

// PDFExtractor extracts text from an uploaded PDF.
type PDFExtractor interface {
	PDFText(content []byte) (string, error)
}

// Dependencies are the collaborators the handlers call.
type Dependencies struct {
	Retriever ContextRetriever
	Chat      llm.ChatModel
	Speech    llm.SpeechModel
	Prompts   *prompts.Assembler
	PDF       PDFExtractor
	Pool      *workpool.Pool
	// Resume is the full resume text used for JD analysis.
	Resume string
}

// Server is the HTTP server for the portfolio agent API.
type Server struct {
	deps   Dependencies
	config *config.Config
	logger *zap.Logger
	router http.Handler
	server *http.Server
}

// NewServer creates a server with the given dependencies and builds its router.
func NewServer(cfg *config.Config, deps Dependencies, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Pool == nil {
		deps.Pool = workpool.New(cfg.Limits.PDFWorkers, cfg.Limits.PDFQueue)
	}
	s := &Server{
		deps:   deps,
		config: cfg,
		logger: logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessLog(s.logger))
	trusted, err := s.config.Server.TrustedProxyPrefixes()
	if err != nil {
		s.logger.Warn("ignoring trusted_proxies; forwarding headers will not be honoured", zap.Error(err))
		trusted = nil
	}
	if len(trusted) > 0 {
		r.Use(trustedRealIP(trusted))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	r.Use(securityHeaders)
	r.Use(corsHandler(s.config.Server.AllowedOrigins))

	rl := s.config.RateLimit
	r.With(rateLimit(rl.ChatPerMinute)).Post("/chat", s.handleChat)
	r.With(rateLimit(rl.AnalyzePerMinute)).Post("/analyze_jd", s.handleAnalyzeJD)
	r.With(rateLimit(rl.TTSPerMinute)).Post("/tts", s.handleTTS)
	r.Get("/health", s.handleHealth)
	return r
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
