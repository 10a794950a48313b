// Package highlight defines the highlight domain model and its Postgres store.
package highlight

import "time"

// Category is a user-defined grouping attached to a highlight.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Tag is a free-form label attached to a highlight.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Highlight is the fully hydrated domain record returned by search.
type Highlight struct {
	ID            string     `json:"id"`
	BookID        string     `json:"book_id"`
	SourceID      string     `json:"source_id,omitempty"`
	Text          string     `json:"text"`
	Note          string     `json:"note,omitempty"`
	Location      string     `json:"location,omitempty"`
	LocationType  string     `json:"location_type,omitempty"`
	HighlightedAt *time.Time `json:"highlighted_at,omitempty"`
	SourceURL     string     `json:"source_url,omitempty"`
	Color         string     `json:"color,omitempty"`
	Categories    []Category `json:"categories"`
	Tags          []Tag      `json:"tags"`
	UserNote      *string    `json:"user_note"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Score is the relevance score assigned by the retrieval path
	// (native rank score, similarity, or fused RRF score).
	Score float64 `json:"score"`
}

// RankedCandidate is a bare retrieval hit before hydration.
type RankedCandidate struct {
	// ID is the highlight identifier.
	ID string

	// NativeScore is the retriever's own relevance signal
	// (ts_rank_cd for lexical, cosine similarity for semantic).
	NativeScore float64

	// SourceRank is the 1-based position in the retriever's result list.
	SourceRank int
}

// Embeddable is a highlight pending vector indexing.
type Embeddable struct {
	ID     string
	UserID string
	BookID string
	Text   string
}
