package assets

import (
	"context"
	"sync/atomic"
)

// Result carries the outcome of one asynchronous fetch back to the render
// loop.
type Result struct {
	ID   uint64
	URL  string
	Data []byte
	Err  error
}

// Loader issues asynchronous fetches tagged with monotonically increasing
// request ids. Only the most recently issued request is current; results
// of superseded requests must be discarded on arrival (last-writer-wins).
// Superseding is the only cancellation mechanism.
type Loader struct {
	source  Source
	cache   *Cache
	latest  atomic.Uint64
	results chan Result
}

// NewLoader creates a loader over the given source. The results channel is
// buffered so fetch goroutines never block on a slow consumer.
func NewLoader(source Source) *Loader {
	return &Loader{
		source:  source,
		cache:   NewCache(),
		results: make(chan Result, 16),
	}
}

// Request starts an asynchronous fetch and returns its id. The fetch posts
// a Result to the Results channel on a future frame whether it succeeds or
// fails; issuing a new request supersedes all in-flight ones.
func (l *Loader) Request(ctx context.Context, url string) uint64 {
	id := l.latest.Add(1)

	if data, ok := l.cache.Get(url); ok {
		l.results <- Result{ID: id, URL: url, Data: data}
		return id
	}

	go func() {
		data, err := l.source.FetchBytes(ctx, url)
		if err == nil {
			l.cache.Set(url, data)
		}
		l.results <- Result{ID: id, URL: url, Data: data, Err: err}
	}()
	return id
}

// Results is drained by the render loop each frame.
func (l *Loader) Results() <-chan Result {
	return l.results
}

// Stale reports whether a result belongs to a superseded request and must
// not touch shared scene state.
func (l *Loader) Stale(r Result) bool {
	return r.ID != l.latest.Load()
}
