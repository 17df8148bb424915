package aisdk

import (
	"context"
	"sync"
	"time"
)

// ModelFetcher loads a single model description from a backend.
type ModelFetcher func(ctx context.Context, modelID string) (*ModelInfo, error)

// ModelListFetcher loads every model a backend offers.
type ModelListFetcher func(ctx context.Context) ([]*ModelInfo, error)

// ModelCache keeps backend model metadata for a fixed TTL. Failed fetches are
// never cached. Single lookups and the full list are cached separately.
type ModelCache struct {
	ttl      time.Duration
	fetchOne ModelFetcher
	fetchAll ModelListFetcher
	now      func() time.Time

	mu       sync.RWMutex
	models   map[string]stamped[*ModelInfo]
	list     stamped[[]*ModelInfo]
	haveList bool
}

type stamped[T any] struct {
	value T
	at    time.Time
}

// NewModelCache returns a cache in front of the two fetchers.
func NewModelCache(ttl time.Duration, fetchOne ModelFetcher, fetchAll ModelListFetcher) *ModelCache {
	return &ModelCache{
		ttl:      ttl,
		fetchOne: fetchOne,
		fetchAll: fetchAll,
		now:      time.Now,
		models:   make(map[string]stamped[*ModelInfo]),
	}
}

func (mc *ModelCache) fresh(at time.Time) bool {
	return mc.now().Sub(at) < mc.ttl
}

// Peek returns a cached, unexpired model without fetching.
func (mc *ModelCache) Peek(modelID string) (*ModelInfo, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	e, ok := mc.models[modelID]
	if !ok || !mc.fresh(e.at) {
		return nil, false
	}
	return e.value, true
}

// GetModel returns modelID from the cache, fetching it when missing or stale.
func (mc *ModelCache) GetModel(ctx context.Context, modelID string) (*ModelInfo, error) {
	if m, ok := mc.Peek(modelID); ok {
		return m, nil
	}

	m, err := mc.fetchOne(ctx, modelID)
	if err != nil {
		return nil, err
	}

	mc.mu.Lock()
	mc.models[modelID] = stamped[*ModelInfo]{value: m, at: mc.now()}
	mc.mu.Unlock()
	return m, nil
}

// GetModelList returns every model, fetching the list when missing or stale.
func (mc *ModelCache) GetModelList(ctx context.Context) ([]*ModelInfo, error) {
	mc.mu.RLock()
	list, ok := mc.list, mc.haveList && mc.fresh(mc.list.at)
	mc.mu.RUnlock()
	if ok {
		return list.value, nil
	}

	models, err := mc.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	mc.mu.Lock()
	mc.list = stamped[[]*ModelInfo]{value: models, at: mc.now()}
	mc.haveList = true
	mc.mu.Unlock()
	return models, nil
}
