// Package assets fetches model and motion clip bytes from local and
// remote sources and caches them in memory.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Source fetches raw asset bytes identified by a URL or path.
type Source interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// FileSource reads assets from the local filesystem. A file:// prefix is
// accepted and stripped.
type FileSource struct{}

// FetchBytes reads the file at the given path.
func (FileSource) FetchBytes(_ context.Context, url string) ([]byte, error) {
	path := strings.TrimPrefix(url, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading asset %s: %w", path, err)
	}
	return data, nil
}

// HTTPSource fetches assets over HTTP(S).
type HTTPSource struct {
	Client *http.Client
}

// NewHTTPSource creates an HTTP source with the given request timeout.
func NewHTTPSource(timeout time.Duration) *HTTPSource {
	return &HTTPSource{Client: &http.Client{Timeout: timeout}}
}

// FetchBytes issues a GET for the URL and returns the response body.
func (s *HTTPSource) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return data, nil
}

// AutoSource dispatches to an HTTP or file source by URL scheme.
type AutoSource struct {
	HTTP Source
	File Source
}

// NewAutoSource creates a scheme-dispatching source with the given HTTP
// timeout.
func NewAutoSource(timeout time.Duration) *AutoSource {
	return &AutoSource{HTTP: NewHTTPSource(timeout), File: FileSource{}}
}

// FetchBytes routes http/https URLs to the HTTP source and everything
// else to the file source.
func (s *AutoSource) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return s.HTTP.FetchBytes(ctx, url)
	}
	return s.File.FetchBytes(ctx, url)
}

// Cache is a simple in-memory byte cache keyed by URL.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stat counters are atomic so Get can stay on the read lock.
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string][]byte)}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.data[key]
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
