package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"liquidityPool/internal/model"
)

func TestJsonlEventsRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	s := NewJsonlStorage(path)

	events := []model.PoolEvent{
		{ID: "a", Kind: model.EventAddLiquidity, Pool: common.HexToAddress("0x01"), AmountX: 500, AmountY: 500, LPAmount: 500, Timestamp: 10},
		{ID: "b", Kind: model.EventSwapXForY, Pool: common.HexToAddress("0x01"), AmountX: 250, AmountY: 166, Timestamp: 11},
	}
	if err := s.PutEvents(ctx, events[:1]); err != nil {
		t.Fatalf("put events: %v", err)
	}
	if err := s.PutEvents(ctx, events[1:]); err != nil {
		t.Fatalf("put events: %v", err)
	}
	if err := s.PutEvents(ctx, nil); err != nil {
		t.Fatalf("put empty batch: %v", err)
	}

	var got []model.PoolEvent
	err := ReadEvents(ctx, path, func(ev model.PoolEvent) error {
		got = append(got, ev)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if !reflect.DeepEqual(events, got) {
		t.Fatalf("events mismatch: %+v != %+v", events, got)
	}
}

func TestReadEventsBadLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	data := "{\"id\":\"a\",\"kind\":\"swap_x_for_y\"}\n\nnot json\n{\"id\":\"b\"}\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var ids []string
	var bad []int
	err := ReadEvents(ctx, path, func(ev model.PoolEvent) error {
		ids = append(ids, ev.ID)
		return nil
	}, func(line int, _ error) {
		bad = append(bad, line)
	})
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if !reflect.DeepEqual(bad, []int{3}) {
		t.Fatalf("unexpected bad lines: %v", bad)
	}

	if err := ReadEvents(ctx, path, func(model.PoolEvent) error { return nil }, nil); err == nil {
		t.Fatalf("expected decode error without onBad")
	}
}

func TestFileSnapshotStore(t *testing.T) {
	ctx := context.Background()
	store := &FileSnapshotStore{Path: filepath.Join(t.TempDir(), "state", "snapshot.json")}

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("expected empty load, got ok=%v err=%v", ok, err)
	}

	snap := model.Snapshot{
		Pools:  []model.PoolState{{Address: common.HexToAddress("0x99"), ReserveX: 1, ReserveY: 2, LPSupply: 1}},
		Nonces: map[string]uint64{common.HexToAddress("0xbb").Hex(): 4},
	}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(store.Path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}

	loaded, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(snap.Pools, loaded.Pools) || !reflect.DeepEqual(snap.Nonces, loaded.Nonces) {
		t.Fatalf("snapshot mismatch: %+v", loaded)
	}
	if loaded.SavedAt == "" {
		t.Fatalf("saved_at not stamped")
	}
}

func TestMemoryPoolStoreOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryPoolStore(model.PoolState{Address: common.HexToAddress("0x02")})
	if err := s.PutPool(ctx, model.PoolState{Address: common.HexToAddress("0x01"), FeeBps: 30}); err != nil {
		t.Fatalf("put pool: %v", err)
	}

	pools, err := s.ListPools(ctx)
	if err != nil {
		t.Fatalf("list pools: %v", err)
	}
	if len(pools) != 2 || pools[0].Address != common.HexToAddress("0x01") {
		t.Fatalf("unexpected order: %+v", pools)
	}

	p, ok, err := s.GetPool(ctx, common.HexToAddress("0x01"))
	if err != nil || !ok || p.FeeBps != 30 {
		t.Fatalf("get pool: %+v ok=%v err=%v", p, ok, err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.PutPool(cancelled, model.PoolState{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

type errSink struct{ calls int }

func (s *errSink) PutEvents(context.Context, []model.PoolEvent) error {
	s.calls++
	return errors.New("down")
}

func TestMultiSinkReachesEverySink(t *testing.T) {
	first, second := &errSink{}, &errSink{}
	err := MultiSink{first, nil, second}.PutEvents(context.Background(), []model.PoolEvent{{ID: "x"}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("calls = %d, %d", first.calls, second.calls)
	}
}
