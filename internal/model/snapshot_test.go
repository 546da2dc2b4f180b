package model

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSnapshotJSONRoundTrip(t *testing.T) {
	original := Snapshot{
		Mints: []MintRecord{
			{Address: common.HexToAddress("0x02"), Authority: common.HexToAddress("0xaa"), Decimals: 6, Supply: 10},
			{Address: common.HexToAddress("0x01"), Authority: common.HexToAddress("0xaa"), Decimals: 6, Supply: 20},
		},
		Accounts: []AccountRecord{
			{Address: common.HexToAddress("0x10"), Mint: common.HexToAddress("0x01"), Owner: common.HexToAddress("0xbb"), Balance: 20},
		},
		Pools: []PoolState{
			{Address: common.HexToAddress("0x99"), ReserveX: 750, ReserveY: 419, LPSupply: 500000000, FeeBps: 10},
		},
		Nonces:  map[string]uint64{"0x00000000000000000000000000000000000000bb": 3},
		SavedAt: "2024-01-01T00:00:00Z",
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Snapshot
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Mints[0].Address != common.HexToAddress("0x01") {
		t.Fatalf("mints not sorted: %+v", decoded.Mints)
	}
	if !reflect.DeepEqual(original.Pools, decoded.Pools) {
		t.Fatalf("pools mismatch: %+v != %+v", original.Pools, decoded.Pools)
	}
	if !reflect.DeepEqual(original.Nonces, decoded.Nonces) {
		t.Fatalf("nonces mismatch: %+v != %+v", original.Nonces, decoded.Nonces)
	}

	again, err := json.Marshal(decoded)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(again) != string(b) {
		t.Fatalf("encoding not stable:\n%s\n%s", b, again)
	}
}

func TestSnapshotUnmarshalEmptyNonces(t *testing.T) {
	var s Snapshot
	if err := json.Unmarshal([]byte(`{"mints":[],"accounts":[],"pools":[]}`), &s); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if s.Nonces == nil {
		t.Fatalf("nonces should be initialized")
	}
}
