// Package analytics records search activity for product reporting.
package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventTypeSearch is the event type emitted after each completed search.
const EventTypeSearch = "search.performed"

// Event is a single search analytics record.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type.
	Type string `json:"type"`

	// UserID is the searching user.
	UserID string `json:"user_id"`

	// Query is the search text as submitted.
	Query string `json:"query"`

	// Mode is the search mode used.
	Mode string `json:"mode"`

	// ResultCount is the number of results returned.
	ResultCount int `json:"result_count"`

	// DurationMS is the end-to-end search latency in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// Timestamp is when the search completed.
	Timestamp time.Time `json:"timestamp"`
}

// NewSearchEvent builds a search event with a fresh identifier.
func NewSearchEvent(userID, query, mode string, resultCount int, duration time.Duration) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        EventTypeSearch,
		UserID:      userID,
		Query:       query,
		Mode:        mode,
		ResultCount: resultCount,
		DurationMS:  duration.Milliseconds(),
		Timestamp:   time.Now().UTC(),
	}
}

// Publisher records search events. Publishing is best-effort from the
// caller's point of view: a failed publish never fails the search.
type Publisher interface {
	// Publish records an event.
	Publish(ctx context.Context, event Event) error

	// Close releases publisher resources.
	Close() error
}

// MemoryPublisher retains events in memory. Used in the monolith deployment
// and in tests.
type MemoryPublisher struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryPublisher creates an in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish appends the event to the in-memory log.
func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of all recorded events.
func (p *MemoryPublisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Close is a no-op for the in-memory publisher.
func (p *MemoryPublisher) Close() error {
	return nil
}
