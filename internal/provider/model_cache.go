package provider

import (
	"context"
	"fmt"
	"sync"
)

// ModelInfo holds the capability metadata of one model.
type ModelInfo struct {
	Name             string
	InputTokenLimit  int
	OutputTokenLimit int
}

// ModelLoader fetches metadata for a model the cache has not seen.
type ModelLoader func(ctx context.Context, model string) (ModelInfo, error)

// ModelCache is a read-through cache of model metadata keyed by model id.
// Reads are concurrent; population happens under a single writer lock.
type ModelCache struct {
	mu     sync.RWMutex
	models map[string]ModelInfo
}

// Models is the process-wide cache shared by all adapters.
var Models = NewModelCache()

func NewModelCache() *ModelCache {
	return &ModelCache{models: make(map[string]ModelInfo)}
}

// Lookup returns cached metadata, loading and storing it on first use.
func (c *ModelCache) Lookup(ctx context.Context, model string, load ModelLoader) (ModelInfo, error) {
	c.mu.RLock()
	info, ok := c.models[model]
	c.mu.RUnlock()
	if ok {
		return info, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if info, ok := c.models[model]; ok {
		return info, nil
	}
	if load == nil {
		return ModelInfo{}, fmt.Errorf("model %q: no metadata", model)
	}
	info, err := load(ctx, model)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("model %q: %w", model, err)
	}
	c.models[model] = info
	return info, nil
}

// Put stores metadata, replacing any cached entry.
func (c *ModelCache) Put(info ModelInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[info.Name] = info
}

// StaticLoader serves metadata from a fixed table.
func StaticLoader(table map[string]ModelInfo) ModelLoader {
	return func(ctx context.Context, model string) (ModelInfo, error) {
		if info, ok := table[model]; ok {
			info.Name = model
			return info, nil
		}
		return ModelInfo{}, fmt.Errorf("unknown model")
	}
}
