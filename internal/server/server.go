// Package server provides the HTTP server that wires all services together.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lucidnotes/lucid-search/internal/analytics"
	"github.com/lucidnotes/lucid-search/internal/auth"
	"github.com/lucidnotes/lucid-search/internal/config"
	"github.com/lucidnotes/lucid-search/internal/embedding"
	"github.com/lucidnotes/lucid-search/internal/highlight"
	"github.com/lucidnotes/lucid-search/internal/index"
	"github.com/lucidnotes/lucid-search/internal/pkg/logger"
	"github.com/lucidnotes/lucid-search/internal/pkg/middleware"
	"github.com/lucidnotes/lucid-search/internal/qdrant"
	"github.com/lucidnotes/lucid-search/internal/search"
)

// Server is the main HTTP server that wires all services together.
type Server struct {
	cfg        *config.Config
	version    string
	log        *logger.Logger
	httpServer *http.Server

	// Services
	store     *highlight.Store
	qdrant    *qdrant.Client
	searcher  *qdrant.Searcher
	cache     *embedding.Cache
	embedder  *embedding.OpenAIProvider
	publisher analytics.Publisher
	search    *search.Service
	indexer   *index.Indexer
	verifier  *auth.Verifier

	// Handlers
	searchHandler *search.Handler
	healthHandler *HealthHandler

	indexerCancel context.CancelFunc

	mu      sync.RWMutex
	started bool
}

// New creates a new server with all dependencies.
func New(cfg *config.Config, version string, log *logger.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		version: version,
		log:     log,
	}

	store, err := highlight.Open(cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open highlight store: %w", err)
	}
	s.store = store

	qdrantCfg, err := qdrant.ParseClientConfig(cfg.Qdrant.URL, cfg.Qdrant.APIKey)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant url: %w", err)
	}
	qc, err := qdrant.NewClient(qdrantCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	s.qdrant = qc
	s.searcher = qdrant.NewSearcher(qc, cfg.Qdrant.Collection)

	cache, err := embedding.NewCache(cfg.Cache, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	s.cache = cache
	s.embedder = embedding.NewOpenAIProvider(cfg.Embedding, cache, log)

	switch cfg.Analytics.Type {
	case "kafka":
		publisher, err := analytics.NewKafkaPublisher(analytics.KafkaConfig{
			Brokers: cfg.Analytics.KafkaBrokerList(),
			Topic:   cfg.Analytics.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create analytics publisher: %w", err)
		}
		s.publisher = publisher
	default:
		s.publisher = analytics.NewMemoryPublisher()
	}

	s.search = search.NewService(s.store, s.searcher, s.embedder, s.store, s.publisher, log, search.Config{
		DefaultLimit:       cfg.Search.DefaultLimit,
		MaxLimit:           cfg.Search.MaxLimit,
		PrefetchMultiplier: cfg.Search.PrefetchMultiplier,
		RRFConstant:        cfg.Search.RRFConstant,
	})

	s.indexer = index.New(s.store, s.searcher, s.embedder, log, index.DefaultConfig())
	s.verifier = auth.NewVerifier(cfg.Auth, log)

	s.searchHandler = search.NewHandler(s.search, log)

	var cachePinger Pinger
	if s.cache != nil {
		cachePinger = s.cache
	}
	s.healthHandler = NewHealthHandler(s.store, s.qdrant, cachePinger, version)

	return s, nil
}

// Start ensures the vector collection exists, launches the background
// indexer, and serves HTTP until the listener closes.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	collCfg := qdrant.DefaultCollectionConfig(s.cfg.Qdrant.Collection)
	collCfg.VectorSize = uint64(s.cfg.Embedding.Dimensions)
	if err := s.qdrant.EnsureCollection(ctx, collCfg); err != nil {
		cancel()
		return fmt.Errorf("failed to ensure collection: %w", err)
	}
	cancel()

	indexerCtx, indexerCancel := context.WithCancel(context.Background())
	s.indexerCancel = indexerCancel
	go func() {
		if err := s.indexer.Run(indexerCtx); err != nil && indexerCtx.Err() == nil {
			s.log.WithError(err).Error("indexer stopped")
		}
	}()

	handler := s.setupRoutes()

	addr := s.cfg.Address()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.log.Info("Starting HTTP server", "addr", addr, "version", s.version)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.log.Info("Shutting down server...")

	if s.indexerCancel != nil {
		s.indexerCancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("HTTP shutdown error", "error", err)
		}
	}

	if s.qdrant != nil {
		s.qdrant.Close()
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.store != nil {
		s.store.Close()
	}

	s.started = false
	s.log.Info("Server stopped")

	return nil
}

// setupRoutes configures all HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/search", s.verifier.Middleware(http.HandlerFunc(s.searchHandler.HandleSearch)))
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealth)

	var handler http.Handler = mux

	if s.cfg.Security.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: float64(s.cfg.Security.RateLimit),
			Burst:             s.cfg.Security.RateLimit * 2,
			CleanupInterval:   time.Minute,
		})
		handler = limiter.Middleware(handler)
	}

	handler = s.corsMiddleware(handler)

	return wrapWithLogging(handler, s.log)
}

// corsMiddleware applies the configured allowed origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	origins := strings.TrimSpace(s.cfg.Security.CORSOrigins)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origins != "" {
			w.Header().Set("Access-Control-Allow-Origin", origins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// wrapWithLogging logs each request with its status and duration.
func wrapWithLogging(handler http.Handler, log *logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		handler.ServeHTTP(wrapped, r)

		log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
