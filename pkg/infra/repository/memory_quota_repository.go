package repository

import (
	"context"
	"sync"
	"time"

	"github.com/ApexGov/inspector/pkg/domain/quota"
)

type memoryQuotaRepository struct {
	mu     sync.RWMutex
	states map[string]quota.State
}

func NewMemoryQuotaRepository() quota.Repository {
	return &memoryQuotaRepository{states: make(map[string]quota.State)}
}

func (r *memoryQuotaRepository) Get(_ context.Context, key string) (*quota.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[key]
	if !ok {
		return nil, quota.ErrStateNotFound
	}
	return &state, nil
}

func (r *memoryQuotaRepository) Save(_ context.Context, key string, state quota.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[key] = state
	return nil
}

func (r *memoryQuotaRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, key)
	return nil
}

func (r *memoryQuotaRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for key, state := range r.states {
		if state.ResetAt < before.UnixMilli() {
			delete(r.states, key)
			removed++
		}
	}
	return removed, nil
}
