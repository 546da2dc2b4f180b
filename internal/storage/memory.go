package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"liquidityPool/internal/model"
)

// MemoryPoolStore keeps pool records in memory.
type MemoryPoolStore struct {
	mu    sync.RWMutex
	pools map[common.Address]model.PoolState
}

func NewMemoryPoolStore(pools ...model.PoolState) *MemoryPoolStore {
	s := &MemoryPoolStore{pools: make(map[common.Address]model.PoolState, len(pools))}
	for _, p := range pools {
		s.pools[p.Address] = p
	}
	return s
}

func (s *MemoryPoolStore) GetPool(_ context.Context, address common.Address) (model.PoolState, bool, error) {
	s.mu.RLock()
	p, ok := s.pools[address]
	s.mu.RUnlock()
	return p, ok, nil
}

func (s *MemoryPoolStore) PutPool(ctx context.Context, pool model.PoolState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.pools[pool.Address] = pool
	s.mu.Unlock()
	return nil
}

// ListPools returns all pools ordered by address.
func (s *MemoryPoolStore) ListPools(_ context.Context) ([]model.PoolState, error) {
	s.mu.RLock()
	out := make([]model.PoolState, 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Address.Hex() < out[j].Address.Hex() })
	return out, nil
}
