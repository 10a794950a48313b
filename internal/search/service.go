// Package search provides the hybrid highlight search orchestrator.
package search

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lucidnotes/lucid-search/internal/analytics"
	"github.com/lucidnotes/lucid-search/internal/highlight"
	"github.com/lucidnotes/lucid-search/internal/pkg/errors"
	"github.com/lucidnotes/lucid-search/internal/pkg/logger"
	"github.com/lucidnotes/lucid-search/internal/search/fusion"
)

// Search modes.
const (
	ModeKeyword  = "keyword"
	ModeSemantic = "semantic"
	ModeHybrid   = "hybrid"
)

// KeywordRetriever runs the full-text retrieval leg.
type KeywordRetriever interface {
	LexicalSearch(ctx context.Context, text, userID string, count int) ([]highlight.RankedCandidate, error)
}

// SemanticRetriever runs the vector retrieval leg.
type SemanticRetriever interface {
	SemanticSearch(ctx context.Context, vector []float32, userID string, count int) ([]highlight.RankedCandidate, error)
}

// Embedder turns query text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Hydrator expands candidate ids into full highlight records.
type Hydrator interface {
	Hydrate(ctx context.Context, id, userID string) (*highlight.Highlight, error)
}

// Config configures the search service.
type Config struct {
	// DefaultLimit is used when a request does not specify a limit.
	DefaultLimit int

	// MaxLimit is the largest accepted limit.
	MaxLimit int

	// PrefetchMultiplier controls how many candidates each hybrid leg
	// fetches relative to the requested limit.
	PrefetchMultiplier int

	// RRFConstant is the fusion smoothing constant.
	RRFConstant int
}

// DefaultConfig returns sensible search defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:       10,
		MaxLimit:           100,
		PrefetchMultiplier: 2,
		RRFConstant:        fusion.DefaultK,
	}
}

// Service orchestrates retrieval, fusion, and hydration.
type Service struct {
	keyword   KeywordRetriever
	semantic  SemanticRetriever
	embedder  Embedder
	hydrator  Hydrator
	publisher analytics.Publisher
	log       *logger.Logger
	cfg       Config
}

// NewService creates a new search service. The publisher may be nil.
func NewService(keyword KeywordRetriever, semantic SemanticRetriever, embedder Embedder, hydrator Hydrator, publisher analytics.Publisher, log *logger.Logger, cfg Config) *Service {
	if cfg.DefaultLimit == 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		keyword:   keyword,
		semantic:  semantic,
		embedder:  embedder,
		hydrator:  hydrator,
		publisher: publisher,
		log:       log,
		cfg:       cfg,
	}
}

// Request represents a search request.
type Request struct {
	// Query is the search text.
	Query string `json:"query"`

	// Mode selects the retrieval strategy: keyword, semantic, or hybrid.
	Mode string `json:"mode"`

	// Limit is the maximum number of results. Absent means the default;
	// an explicit value must be within [1, MaxLimit].
	Limit *int `json:"limit,omitempty"`
}

// Response represents a search response.
type Response struct {
	// Results are the hydrated highlights in relevance order.
	Results []highlight.Highlight `json:"results"`

	// Count is the number of results returned.
	Count int `json:"count"`

	// Mode echoes the retrieval strategy used.
	Mode string `json:"mode"`

	// Query echoes the search text.
	Query string `json:"query"`

	// TookMS is the server-side search latency in milliseconds.
	TookMS int64 `json:"took_ms"`
}

// validate normalizes the request in place and returns the effective limit.
// The query is trimmed before any further use. An absent limit falls back to
// the default; an explicit limit, including zero, must be within range.
func (s *Service) validate(req *Request) (int, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return 0, errors.ValidationError("query must not be empty")
	}

	switch req.Mode {
	case ModeKeyword, ModeSemantic, ModeHybrid:
	default:
		return 0, errors.ValidationError("mode must be keyword, semantic, or hybrid").
			WithDetail("mode", req.Mode)
	}

	limit := s.cfg.DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit < 1 || limit > s.cfg.MaxLimit {
		return 0, errors.ValidationError("limit out of range").
			WithDetail("min", "1").
			WithDetail("max", strconv.Itoa(s.cfg.MaxLimit))
	}

	return limit, nil
}

// Search runs one search for a user and returns hydrated results.
func (s *Service) Search(ctx context.Context, userID string, req Request) (*Response, error) {
	limit, err := s.validate(&req)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	var candidates []scoredCandidate

	switch req.Mode {
	case ModeKeyword:
		candidates, err = s.keywordLeg(ctx, req.Query, userID, limit)
	case ModeSemantic:
		candidates, err = s.semanticLeg(ctx, req.Query, userID, limit)
	case ModeHybrid:
		candidates, err = s.hybridLegs(ctx, req.Query, userID, limit)
	}
	if err != nil {
		return nil, errors.SearchError("search failed", err)
	}

	results, err := s.hydrate(ctx, userID, candidates)
	if err != nil {
		return nil, errors.SearchError("hydration failed", err)
	}

	took := time.Since(start)

	s.log.WithUser(userID).Debug("search completed",
		"mode", req.Mode,
		"limit", limit,
		"results", len(results),
		"took_ms", took.Milliseconds(),
	)

	s.record(userID, req, len(results), took)

	return &Response{
		Results: results,
		Count:   len(results),
		Mode:    req.Mode,
		Query:   req.Query,
		TookMS:  took.Milliseconds(),
	}, nil
}

// scoredCandidate pairs a candidate id with the score reported to clients.
type scoredCandidate struct {
	ID    string
	Score float64
}

func (s *Service) keywordLeg(ctx context.Context, query, userID string, limit int) ([]scoredCandidate, error) {
	ranked, err := s.keyword.LexicalSearch(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	return nativeScores(ranked), nil
}

func (s *Service) semanticLeg(ctx context.Context, query, userID string, limit int) ([]scoredCandidate, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	ranked, err := s.semantic.SemanticSearch(ctx, vector, userID, limit)
	if err != nil {
		return nil, err
	}
	return nativeScores(ranked), nil
}

// hybridLegs embeds the query once, runs both retrieval legs concurrently,
// and fuses the results. Either leg failing fails the whole search.
func (s *Service) hybridLegs(ctx context.Context, query, userID string, limit int) ([]scoredCandidate, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	prefetch := limit * s.cfg.PrefetchMultiplier

	var (
		semanticRanked []highlight.RankedCandidate
		keywordRanked  []highlight.RankedCandidate
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		semanticRanked, err = s.semantic.SemanticSearch(gctx, vector, userID, prefetch)
		return err
	})

	g.Go(func() error {
		var err error
		keywordRanked, err = s.keyword.LexicalSearch(gctx, query, userID, prefetch)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fusion.Fuse(semanticRanked, keywordRanked, fusion.Config{K: s.cfg.RRFConstant})
	fused = fusion.Truncate(fused, limit)

	candidates := make([]scoredCandidate, len(fused))
	for i, f := range fused {
		candidates[i] = scoredCandidate{ID: f.ID, Score: f.FusedScore}
	}
	return candidates, nil
}

// hydrate expands candidates in order. Candidates with no backing row are
// dropped silently; the fused order of the survivors is preserved.
func (s *Service) hydrate(ctx context.Context, userID string, candidates []scoredCandidate) ([]highlight.Highlight, error) {
	results := make([]highlight.Highlight, 0, len(candidates))
	for _, c := range candidates {
		h, err := s.hydrator.Hydrate(ctx, c.ID, userID)
		if err != nil {
			return nil, err
		}
		if h == nil {
			continue
		}
		h.Score = c.Score
		results = append(results, *h)
	}
	return results, nil
}

// record publishes a search analytics event without blocking or failing
// the response.
func (s *Service) record(userID string, req Request, resultCount int, took time.Duration) {
	if s.publisher == nil {
		return
	}

	event := analytics.NewSearchEvent(userID, req.Query, req.Mode, resultCount, took)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.publisher.Publish(ctx, event); err != nil {
			s.log.Warn("failed to publish search event", "error", err)
		}
	}()
}

func nativeScores(ranked []highlight.RankedCandidate) []scoredCandidate {
	out := make([]scoredCandidate, len(ranked))
	for i, r := range ranked {
		out[i] = scoredCandidate{ID: r.ID, Score: r.NativeScore}
	}
	return out
}

