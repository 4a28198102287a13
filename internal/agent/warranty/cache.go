package warranty

import (
	"sync"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
)

// PredictionCache stores rendered claim predictions by VIN.
type PredictionCache interface {
	Get(vin model.VIN) (string, bool)
	Put(vin model.VIN, response string)
}

// MemoryCache is a process-lifetime PredictionCache. Entries never expire and
// the map is unbounded: the VIN set seen by one process is small.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[model.VIN]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[model.VIN]string)}
}

func (c *MemoryCache) Get(vin model.VIN) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[vin]
	return v, ok
}

func (c *MemoryCache) Put(vin model.VIN, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[vin] = response
}

// Len returns the number of cached VINs.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ PredictionCache = (*MemoryCache)(nil)
