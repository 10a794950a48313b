package client

import (
	"context"
	"strings"
	"sync"

	"github.com/lucidnotes/lucid-search/internal/highlight"
	"github.com/lucidnotes/lucid-search/internal/search"
)

// State is the controller's view state.
type State string

// Controller states.
const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
	StateSuccess   State = "success"
	StateError     State = "error"
)

// Searcher executes a search request. *Client implements it.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// Controller drives the search view. Each invocation captures a monotonic
// epoch; when a search completes, its response is applied only if no newer
// invocation has started in the meantime. Out-of-order responses from slow
// requests can therefore never overwrite fresher results.
type Controller struct {
	searcher Searcher

	mu      sync.Mutex
	epoch   uint64
	state   State
	query   string
	mode    string
	results []highlight.Highlight
	err     error
}

// NewController creates a controller in the idle state with hybrid mode.
func NewController(searcher Searcher) *Controller {
	return &Controller{
		searcher: searcher,
		state:    StateIdle,
		mode:     search.ModeHybrid,
	}
}

// SetQuery updates the pending query text.
func (c *Controller) SetQuery(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = query
}

// SetMode updates the retrieval mode for subsequent searches.
func (c *Controller) SetMode(mode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
}

// Search runs the current query. A blank query clears results and returns
// to idle without a network call. Search blocks until its own request
// completes; concurrent invocations are safe and the newest one wins.
func (c *Controller) Search(ctx context.Context) {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	query := c.query
	mode := c.mode

	if strings.TrimSpace(query) == "" {
		c.state = StateIdle
		c.results = nil
		c.err = nil
		c.mu.Unlock()
		return
	}

	c.state = StateSearching
	c.err = nil
	c.mu.Unlock()

	resp, err := c.searcher.Search(ctx, search.Request{Query: query, Mode: mode})

	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer invocation owns the view now.
	if epoch != c.epoch {
		return
	}

	if err != nil {
		c.state = StateError
		c.results = nil
		c.err = err
		return
	}

	c.state = StateSuccess
	c.results = resp.Results
	c.err = nil
}

// State returns the current view state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Results returns the results of the most recent successful search, or nil
// after an error or a blank query.
func (c *Controller) Results() []highlight.Highlight {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results
}

// Err returns the error from the most recent failed search.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
