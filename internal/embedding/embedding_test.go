package embedding

import (
	"context"
	"math"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lucidnotes/lucid-search/internal/config"
	"github.com/lucidnotes/lucid-search/internal/pkg/errors"
	"github.com/lucidnotes/lucid-search/internal/pkg/logger"
)

func testProvider() *OpenAIProvider {
	cfg := config.EmbeddingConfig{
		APIKey:     "test-key",
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
		MaxBatch:   100,
	}
	return NewOpenAIProvider(cfg, nil, logger.New("error", "text"))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{
			name: "identical vectors",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2, 3},
			want: 1.0,
		},
		{
			name: "opposite vectors",
			a:    []float32{1, 0},
			b:    []float32{-1, 0},
			want: -1.0,
		},
		{
			name: "orthogonal vectors",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0.0,
		},
		{
			name: "zero vector yields zero",
			a:    []float32{0, 0, 0},
			b:    []float32{1, 2, 3},
			want: 0.0,
		},
		{
			name: "scale invariant",
			a:    []float32{1, 1},
			b:    []float32{10, 10},
			want: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if err != nil {
				t.Fatalf("CosineSimilarity() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2})
	if err == nil {
		t.Fatal("expected error for unequal vector lengths")
	}

	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Code != errors.CodeDimensionMismatch {
		t.Errorf("Code = %s, want %s", appErr.Code, errors.CodeDimensionMismatch)
	}
	if !strings.Contains(appErr.Message, "3 != 2") {
		t.Errorf("Message = %q, want dimensions in message", appErr.Message)
	}
}

func TestEmbedRejectsEmptyText(t *testing.T) {
	p := testProvider()

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := p.Embed(context.Background(), text); err == nil {
			t.Errorf("Embed(%q) expected error", text)
		}
	}
}

func TestEmbedBatchValidation(t *testing.T) {
	p := testProvider()

	tests := []struct {
		name  string
		texts []string
	}{
		{"empty batch", nil},
		{"oversize batch", make([]string, MaxBatchSize+1)},
		{"blank entry", []string{"ok", "  "}},
	}

	for i := range tests[1].texts {
		tests[1].texts[i] = "text"
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.EmbedBatch(context.Background(), tt.texts)
			if err == nil {
				t.Fatal("expected error")
			}

			appErr, ok := err.(*errors.AppError)
			if !ok {
				t.Fatalf("expected *errors.AppError, got %T", err)
			}
			if appErr.Code != errors.CodeEmbedding {
				t.Errorf("Code = %s, want %s", appErr.Code, errors.CodeEmbedding)
			}
		})
	}
}

func TestSortByIndex(t *testing.T) {
	// Upstream may return records out of order.
	data := []openai.Embedding{
		{Index: 2, Embedding: []float32{3}},
		{Index: 0, Embedding: []float32{1}},
		{Index: 1, Embedding: []float32{2}},
	}

	vectors := sortByIndex(data)

	for i, want := range []float32{1, 2, 3} {
		if vectors[i][0] != want {
			t.Errorf("vectors[%d] = %v, want [%v]", i, vectors[i], want)
		}
	}
}

func TestDimensions(t *testing.T) {
	p := testProvider()
	if got := p.Dimensions(); got != 1536 {
		t.Errorf("Dimensions() = %d, want 1536", got)
	}
}
