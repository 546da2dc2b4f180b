package model

import (
	"encoding/json"
	"sort"
)

// Snapshot is the exported world state: ledger contents, pools and the
// per-caller nonces of the access guard.
type Snapshot struct {
	Mints    []MintRecord      `json:"mints"`
	Accounts []AccountRecord   `json:"accounts"`
	Pools    []PoolState       `json:"pools"`
	Nonces   map[string]uint64 `json:"nonces"`
	SavedAt  string            `json:"saved_at"`
}

// MarshalJSON sorts collections so equal states encode to equal bytes.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type Alias Snapshot
	a := Alias(s)

	a.Mints = append([]MintRecord(nil), s.Mints...)
	sort.Slice(a.Mints, func(i, j int) bool {
		return a.Mints[i].Address.Hex() < a.Mints[j].Address.Hex()
	})
	a.Accounts = append([]AccountRecord(nil), s.Accounts...)
	sort.Slice(a.Accounts, func(i, j int) bool {
		return a.Accounts[i].Address.Hex() < a.Accounts[j].Address.Hex()
	})
	a.Pools = append([]PoolState(nil), s.Pools...)
	sort.Slice(a.Pools, func(i, j int) bool {
		return a.Pools[i].Address.Hex() < a.Pools[j].Address.Hex()
	})
	if a.Nonces == nil {
		a.Nonces = map[string]uint64{}
	}
	return json.Marshal(a)
}

// UnmarshalJSON decodes a Snapshot from JSON.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type Alias Snapshot
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = Snapshot(a)
	if s.Nonces == nil {
		s.Nonces = map[string]uint64{}
	}
	return nil
}
