package directory

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

// DefaultTTL is how long fetched mappings are served before refetching
const DefaultTTL = 24 * time.Hour

// Snapshot is one fetched copy of the directory
type Snapshot struct {
	Mappings  []statement.CustomerMapping
	FetchedAt time.Time
}

// Expired reports whether the snapshot is older than ttl at now
func (s Snapshot) Expired(now time.Time, ttl time.Duration) bool {
	return s.FetchedAt.IsZero() || now.Sub(s.FetchedAt) >= ttl
}

// Cache serves mappings from a Source, refetching once the TTL has passed.
// A failed refetch falls back to the previous snapshot.
type Cache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time
	logger *log.Logger

	mu       sync.Mutex
	snapshot *Snapshot
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithClock replaces time.Now
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithTTL sets the expiry; non-positive values keep DefaultTTL
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewCache creates a Cache over source. A nil logger discards output.
func NewCache(source Source, logger *log.Logger, opts ...CacheOption) *Cache {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Cache{
		source: source,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the current snapshot, fetching when there is none or it expired
func (c *Cache) Get(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.snapshot != nil && !c.snapshot.Expired(now, c.ttl) {
		return *c.snapshot, nil
	}

	mappings, err := c.source.FetchMappings(ctx)
	if err != nil {
		if c.snapshot != nil {
			c.logger.Warn("customer directory fetch failed, serving stale data",
				"err", err,
				"fetched_at", c.snapshot.FetchedAt,
				"mappings", len(c.snapshot.Mappings))
			return *c.snapshot, nil
		}
		return Snapshot{}, fmt.Errorf("fetching customer mappings: %w", err)
	}

	c.snapshot = &Snapshot{Mappings: mappings, FetchedAt: now}
	c.logger.Info("customer directory loaded", "mappings", len(mappings))
	return *c.snapshot, nil
}

// Invalidate drops the cached snapshot's freshness so the next Get refetches.
// The data is kept as a fallback.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot != nil {
		c.snapshot.FetchedAt = time.Time{}
	}
}
