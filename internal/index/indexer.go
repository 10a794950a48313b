// Package index keeps the vector collection in sync with stored highlights.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/lucidnotes/lucid-search/internal/embedding"
	"github.com/lucidnotes/lucid-search/internal/highlight"
	"github.com/lucidnotes/lucid-search/internal/pkg/logger"
	"github.com/lucidnotes/lucid-search/internal/qdrant"
)

// Source lists highlights pending vector indexing or removal and records
// completion of each.
type Source interface {
	ListUnembedded(ctx context.Context, limit int) ([]highlight.Embeddable, error)
	MarkEmbedded(ctx context.Context, ids []string) error
	ListDeleted(ctx context.Context, limit int) ([]string, error)
	ClearDeleted(ctx context.Context, ids []string) error
}

// Sink writes and removes highlight points in the vector collection.
type Sink interface {
	Upsert(ctx context.Context, points []qdrant.Point) error
	Delete(ctx context.Context, filter qdrant.DeleteFilter) error
}

// Config configures the indexer.
type Config struct {
	// BatchSize is the number of highlights embedded per pass. Capped at
	// the embedding provider's batch limit.
	BatchSize int

	// Interval between background passes.
	Interval time.Duration
}

// DefaultConfig returns sensible indexer defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize: embedding.MaxBatchSize,
		Interval:  30 * time.Second,
	}
}

// Indexer embeds pending highlights and upserts them into the collection.
type Indexer struct {
	source   Source
	sink     Sink
	embedder embedding.Provider
	log      *logger.Logger
	cfg      Config
}

// New creates an indexer.
func New(source Source, sink Sink, embedder embedding.Provider, log *logger.Logger, cfg Config) *Indexer {
	if cfg.BatchSize <= 0 || cfg.BatchSize > embedding.MaxBatchSize {
		cfg.BatchSize = embedding.MaxBatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Indexer{
		source:   source,
		sink:     sink,
		embedder: embedder,
		log:      log,
		cfg:      cfg,
	}
}

// RunOnce purges points for deleted highlights, then processes a single
// batch of pending ones. Returns the number of highlights indexed.
func (i *Indexer) RunOnce(ctx context.Context) (int, error) {
	if err := i.purgeDeleted(ctx); err != nil {
		return 0, err
	}

	pending, err := i.source.ListUnembedded(ctx, i.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("listing pending highlights: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	texts := make([]string, len(pending))
	for n, p := range pending {
		texts[n] = p.Text
	}

	vectors, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding batch: %w", err)
	}

	now := time.Now().UTC()
	points := make([]qdrant.Point, len(pending))
	ids := make([]string, len(pending))
	for n, p := range pending {
		points[n] = qdrant.Point{
			ID:     p.ID,
			Vector: vectors[n],
			Payload: qdrant.PointPayload{
				UserID:    p.UserID,
				BookID:    p.BookID,
				Text:      p.Text,
				IndexedAt: now,
			},
		}
		ids[n] = p.ID
	}

	if err := i.sink.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("upserting points: %w", err)
	}

	if err := i.source.MarkEmbedded(ctx, ids); err != nil {
		return 0, fmt.Errorf("marking highlights embedded: %w", err)
	}

	i.log.Info("indexed highlights", "count", len(pending))
	return len(pending), nil
}

// purgeDeleted removes points for highlights deleted since the last pass.
// Tombstones are cleared only after the collection delete succeeds, so a
// failed pass retries the same ids.
func (i *Indexer) purgeDeleted(ctx context.Context) error {
	ids, err := i.source.ListDeleted(ctx, i.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("listing deleted highlights: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	if err := i.sink.Delete(ctx, qdrant.DeleteFilter{IDs: ids}); err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	if err := i.source.ClearDeleted(ctx, ids); err != nil {
		return fmt.Errorf("clearing tombstones: %w", err)
	}

	i.log.Info("purged deleted highlights", "count", len(ids))
	return nil
}

// Run processes batches until the context is cancelled, draining the backlog
// before sleeping between passes.
func (i *Indexer) Run(ctx context.Context) error {
	ticker := time.NewTicker(i.cfg.Interval)
	defer ticker.Stop()

	for {
		for {
			n, err := i.RunOnce(ctx)
			if err != nil {
				i.log.WithError(err).Error("index pass failed")
				break
			}
			if n < i.cfg.BatchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
