package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"liquidityPool/internal/model"
)

// PoolStore persists pool records.
type PoolStore interface {
	GetPool(ctx context.Context, address common.Address) (model.PoolState, bool, error)
	PutPool(ctx context.Context, pool model.PoolState) error
	ListPools(ctx context.Context) ([]model.PoolState, error)
}

// EventSink receives committed pool events.
type EventSink interface {
	PutEvents(ctx context.Context, events []model.PoolEvent) error
}

// SnapshotStore persists the exported world state.
type SnapshotStore interface {
	Load(ctx context.Context) (model.Snapshot, bool, error)
	Save(ctx context.Context, snap model.Snapshot) error
}

// MultiSink fans events out to several sinks and returns the first error.
type MultiSink []EventSink

func (m MultiSink) PutEvents(ctx context.Context, events []model.PoolEvent) error {
	var first error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutEvents(ctx, events); err != nil && first == nil {
			first = err
		}
	}
	return first
}
