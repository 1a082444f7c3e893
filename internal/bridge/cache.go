package bridge

import (
	"sync"
	"time"

	"github.com/Pamir-AI/distiller-cm5-go/internal/discovery"
)

// DefaultDiscoveryTTL is how long discovery results stay fresh.
const DefaultDiscoveryTTL = 5 * time.Second

// Discoverer enumerates available MCP servers. Discovery may be slow and
// may fail on environment problems.
type Discoverer interface {
	DiscoverServers() ([]discovery.Server, error)
}

// ServerDiscoveryCache wraps a Discoverer with a time-to-live cache. The
// cache entry is replaced wholesale on refresh, never mutated in place.
type ServerDiscoveryCache struct {
	mu         sync.Mutex
	discoverer Discoverer
	ttl        time.Duration
	servers    []discovery.Server
	fetchedAt  time.Time
	now        func() time.Time
}

// NewServerDiscoveryCache creates a cache over the given discoverer.
// A non-positive ttl falls back to DefaultDiscoveryTTL.
func NewServerDiscoveryCache(d Discoverer, ttl time.Duration) *ServerDiscoveryCache {
	if ttl <= 0 {
		ttl = DefaultDiscoveryTTL
	}
	return &ServerDiscoveryCache{
		discoverer: d,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Servers returns the discovered server list. Within the TTL window the
// cached result is returned without touching the discoverer; otherwise a
// synchronous re-discovery replaces the entry. Discovery failures
// propagate so they stay visible; no stale fallback.
func (c *ServerDiscoveryCache) Servers(forceRefresh bool) ([]discovery.Server, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !forceRefresh && !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl {
		return cloneServers(c.servers), nil
	}

	servers, err := c.discoverer.DiscoverServers()
	if err != nil {
		return nil, err
	}

	c.servers = servers
	c.fetchedAt = c.now()
	return cloneServers(servers), nil
}

func cloneServers(servers []discovery.Server) []discovery.Server {
	return append([]discovery.Server(nil), servers...)
}
