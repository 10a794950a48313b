// Package embedding turns query and highlight text into dense vectors.
package embedding

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lucidnotes/lucid-search/internal/config"
	"github.com/lucidnotes/lucid-search/internal/pkg/errors"
	"github.com/lucidnotes/lucid-search/internal/pkg/logger"
)

// MaxBatchSize is the hard upper bound on a single batch request.
const MaxBatchSize = 100

// Provider generates dense embeddings from text.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for up to MaxBatchSize texts,
	// returned in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIProvider implements Provider against the OpenAI embeddings API.
type OpenAIProvider struct {
	client   *openai.Client
	model    openai.EmbeddingModel
	dims     int
	maxBatch int
	cache    *Cache
	log      *logger.Logger
}

// NewOpenAIProvider creates a provider from config. The cache may be nil.
func NewOpenAIProvider(cfg config.EmbeddingConfig, cache *Cache, log *logger.Logger) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.SmallEmbedding3
	}

	dims := cfg.Dimensions
	if dims == 0 {
		dims = 1536
	}

	maxBatch := cfg.MaxBatch
	if maxBatch < 1 || maxBatch > MaxBatchSize {
		maxBatch = MaxBatchSize
	}

	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		dims:     dims,
		maxBatch: maxBatch,
		cache:    cache,
		log:      log,
	}
}

// Dimensions returns the expected embedding dimensionality.
func (p *OpenAIProvider) Dimensions() int {
	return p.dims
}

// Embed generates an embedding for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.EmbeddingError("text must not be empty", nil)
	}

	if vec, ok := p.cache.Get(ctx, text); ok {
		return vec, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: p.model,
	})
	if err != nil {
		return nil, errors.EmbeddingError("embedding request failed", err)
	}
	if len(resp.Data) != 1 {
		return nil, errors.EmbeddingError("unexpected embedding count in response", nil)
	}

	vec := resp.Data[0].Embedding
	if len(vec) != p.dims {
		return nil, errors.EmbeddingError("unexpected embedding dimensionality", nil).
			WithDetail("want", strconv.Itoa(p.dims)).
			WithDetail("got", strconv.Itoa(len(vec)))
	}

	p.cache.Set(ctx, text, vec)
	return vec, nil
}

// EmbedBatch generates embeddings for up to MaxBatchSize texts. Upstream does
// not guarantee response order, so results are re-sorted by the reported
// index before returning.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.EmbeddingError("batch must not be empty", nil)
	}
	if len(texts) > p.maxBatch {
		return nil, errors.EmbeddingError("batch exceeds maximum size", nil).
			WithDetail("max", strconv.Itoa(p.maxBatch)).
			WithDetail("got", strconv.Itoa(len(texts)))
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, errors.EmbeddingError("batch contains empty text", nil)
		}
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: p.model,
	})
	if err != nil {
		return nil, errors.EmbeddingError("batch embedding request failed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.EmbeddingError("embedding count does not match input count", nil).
			WithDetail("want", strconv.Itoa(len(texts))).
			WithDetail("got", strconv.Itoa(len(resp.Data)))
	}

	return sortByIndex(resp.Data), nil
}

// sortByIndex orders upstream embedding records by their reported index.
func sortByIndex(data []openai.Embedding) [][]float32 {
	sorted := make([]openai.Embedding, len(data))
	copy(sorted, data)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})

	vectors := make([][]float32, len(sorted))
	for i, d := range sorted {
		vectors[i] = d.Embedding
	}
	return vectors
}

// CosineSimilarity returns the normalized dot product of two vectors in
// [-1, 1]. Vectors of unequal length fail with a dimension mismatch error;
// a zero-magnitude vector yields 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.DimensionMismatchError(len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

