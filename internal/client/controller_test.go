package client

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lucidnotes/lucid-search/internal/highlight"
	"github.com/lucidnotes/lucid-search/internal/search"
)

// fakeSearcher resolves requests on demand so tests can control completion
// order.
type fakeSearcher struct {
	mu      sync.Mutex
	pending []chan result
}

type result struct {
	resp *search.Response
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	f.mu.Lock()
	ch := make(chan result, 1)
	f.pending = append(f.pending, ch)
	f.mu.Unlock()

	r := <-ch
	return r.resp, r.err
}

func (f *fakeSearcher) resolve(i int, resp *search.Response, err error) {
	f.mu.Lock()
	ch := f.pending[i]
	f.mu.Unlock()
	ch <- result{resp: resp, err: err}
}

func (f *fakeSearcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func respWith(ids ...string) *search.Response {
	results := make([]highlight.Highlight, len(ids))
	for i, id := range ids {
		results[i] = highlight.Highlight{ID: id}
	}
	return &search.Response{Results: results, Count: len(results)}
}

type immediateSearcher struct {
	resp  *search.Response
	err   error
	calls int
}

func (s *immediateSearcher) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	s.calls++
	return s.resp, s.err
}

func TestControllerInitialState(t *testing.T) {
	c := NewController(&immediateSearcher{})

	if c.State() != StateIdle {
		t.Errorf("State() = %s, want idle", c.State())
	}
	if c.Results() != nil {
		t.Error("expected no results initially")
	}
}

func TestControllerBlankQueryShortCircuits(t *testing.T) {
	s := &immediateSearcher{resp: respWith("A")}
	c := NewController(s)

	// Populate results first.
	c.SetQuery("stoicism")
	c.Search(context.Background())
	if c.State() != StateSuccess {
		t.Fatalf("State() = %s, want success", c.State())
	}

	for _, q := range []string{"", "   ", "\t\n"} {
		c.SetQuery(q)
		c.Search(context.Background())

		if c.State() != StateIdle {
			t.Errorf("query %q: State() = %s, want idle", q, c.State())
		}
		if c.Results() != nil {
			t.Errorf("query %q: expected results cleared", q)
		}
	}

	if s.calls != 1 {
		t.Errorf("searcher calls = %d, want 1 (blank queries must not hit the network)", s.calls)
	}
}

func TestControllerSuccess(t *testing.T) {
	s := &immediateSearcher{resp: respWith("A", "B")}
	c := NewController(s)

	c.SetQuery("marcus aurelius")
	c.Search(context.Background())

	if c.State() != StateSuccess {
		t.Fatalf("State() = %s, want success", c.State())
	}
	if len(c.Results()) != 2 {
		t.Errorf("len(Results()) = %d, want 2", len(c.Results()))
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v, want nil", c.Err())
	}
}

func TestControllerError(t *testing.T) {
	s := &immediateSearcher{resp: respWith("A", "B")}
	c := NewController(s)

	// Populate results, then have the next search fail.
	c.SetQuery("marcus aurelius")
	c.Search(context.Background())
	if c.State() != StateSuccess {
		t.Fatalf("State() = %s, want success", c.State())
	}

	s.resp = nil
	s.err = fmt.Errorf("server unreachable")
	c.SetQuery("seneca")
	c.Search(context.Background())

	if c.State() != StateError {
		t.Fatalf("State() = %s, want error", c.State())
	}
	if c.Err() == nil {
		t.Error("Err() = nil, want error")
	}
	if c.Results() != nil {
		t.Errorf("Results() = %+v after error, want cleared", c.Results())
	}
}

func TestControllerStaleResponseDiscarded(t *testing.T) {
	s := &fakeSearcher{}
	c := NewController(s)

	var wg sync.WaitGroup

	// First search (alpha) starts and hangs.
	c.SetQuery("alpha")
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Search(context.Background())
	}()
	waitFor(t, func() bool { return s.count() == 1 })

	// Second search (beta) starts while alpha is in flight.
	c.SetQuery("beta")
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Search(context.Background())
	}()
	waitFor(t, func() bool { return s.count() == 2 })

	// Beta completes first, then the stale alpha response arrives.
	s.resolve(1, respWith("beta-1"), nil)
	waitFor(t, func() bool { return c.State() == StateSuccess })

	s.resolve(0, respWith("alpha-1"), nil)
	wg.Wait()

	if c.State() != StateSuccess {
		t.Fatalf("State() = %s, want success", c.State())
	}
	results := c.Results()
	if len(results) != 1 || results[0].ID != "beta-1" {
		t.Errorf("Results() = %+v, want the beta response", results)
	}
}

func TestControllerStaleErrorDiscarded(t *testing.T) {
	s := &fakeSearcher{}
	c := NewController(s)

	var wg sync.WaitGroup

	c.SetQuery("alpha")
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Search(context.Background())
	}()
	waitFor(t, func() bool { return s.count() == 1 })

	c.SetQuery("beta")
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Search(context.Background())
	}()
	waitFor(t, func() bool { return s.count() == 2 })

	s.resolve(1, respWith("beta-1"), nil)
	waitFor(t, func() bool { return c.State() == StateSuccess })

	// The stale request failing must not flip the view into an error state.
	s.resolve(0, nil, fmt.Errorf("timeout"))
	wg.Wait()

	if c.State() != StateSuccess {
		t.Errorf("State() = %s, want success after stale error", c.State())
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v, want nil", c.Err())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 2000; i++ {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}
