package qdrant

import (
	"context"

	"github.com/lucidnotes/lucid-search/internal/highlight"
)

// Searcher binds a client to one collection so callers do not carry the
// collection name through every search.
type Searcher struct {
	client     *Client
	collection string
}

// NewSearcher creates a collection-bound searcher.
func NewSearcher(client *Client, collection string) *Searcher {
	return &Searcher{client: client, collection: collection}
}

// SemanticSearch runs a user-scoped dense search against the bound collection.
func (s *Searcher) SemanticSearch(ctx context.Context, vector []float32, userID string, count int) ([]highlight.RankedCandidate, error) {
	return s.client.SemanticSearch(ctx, s.collection, vector, userID, count)
}

// Upsert writes highlight points into the bound collection.
func (s *Searcher) Upsert(ctx context.Context, points []Point) error {
	return s.client.UpsertPoints(ctx, s.collection, points)
}

// Delete removes points from the bound collection.
func (s *Searcher) Delete(ctx context.Context, filter DeleteFilter) error {
	return s.client.DeletePoints(ctx, s.collection, filter)
}
