package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/lucidnotes/lucid-search/internal/highlight"
	"github.com/lucidnotes/lucid-search/internal/pkg/errors"
)

// SemanticSearch runs a user-scoped dense vector search and returns up to
// count candidates ordered by cosine similarity. An empty match set is not
// an error.
func (c *Client) SemanticSearch(ctx context.Context, collection string, vector []float32, userID string, count int) ([]highlight.RankedCandidate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, errors.RetrievalError("semantic search failed", fmt.Errorf("client is closed"))
	}

	if len(vector) == 0 {
		return nil, errors.RetrievalError("semantic search failed", fmt.Errorf("query vector is empty"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	points, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName(collection),
		Query:          qdrant.NewQueryDense(vector),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				keywordCondition("user_id", userID),
			},
		},
		Limit:       qdrant.PtrOf(uint64(count)),
		WithPayload: qdrant.NewWithPayload(false),
	})
	if err != nil {
		return nil, errors.RetrievalError("semantic search failed", err)
	}

	candidates := make([]highlight.RankedCandidate, 0, len(points))
	for _, p := range points {
		candidates = append(candidates, highlight.RankedCandidate{
			ID:          pointID(p.Id),
			NativeScore: float64(p.Score),
			SourceRank:  len(candidates) + 1,
		})
	}

	return candidates, nil
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	}
	return ""
}
