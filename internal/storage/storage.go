package storage

import (
	"sync"

	"github.com/eugenenazirov/chainconf/internal/accounts"
)

// AccountCache memoizes derived accounts per network. Derivation is
// deterministic, so a cached entry is indistinguishable from a fresh one.
type AccountCache interface {
	Get(network string) ([]accounts.Account, bool)
	Put(network string, list []accounts.Account)
	Len() int
}

// MemoryCache keeps derived accounts in-memory and guards access with a RWMutex.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]accounts.Account
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string][]accounts.Account),
	}
}

// Get returns a defensive copy of the accounts cached for network.
func (c *MemoryCache) Get(network string) ([]accounts.Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list, ok := c.entries[network]
	if !ok {
		return nil, false
	}
	return clone(list), true
}

// Put stores a copy of list. An existing entry is kept, so concurrent
// first-time derivations settle on a single slice.
func (c *MemoryCache) Put(network string, list []accounts.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[network]; ok {
		return
	}
	c.entries[network] = clone(list)
}

// Len reports the number of cached networks.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func clone(src []accounts.Account) []accounts.Account {
	out := make([]accounts.Account, len(src))
	copy(out, src)
	return out
}
