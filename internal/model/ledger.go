package model

import "github.com/ethereum/go-ethereum/common"

// MintRecord captures a ledger mint.
type MintRecord struct {
	Address   common.Address `json:"address"`
	Authority common.Address `json:"authority"`
	Decimals  uint8          `json:"decimals"`
	Supply    uint64         `json:"supply"`
}

// AccountRecord captures a ledger token account.
type AccountRecord struct {
	Address         common.Address `json:"address"`
	Mint            common.Address `json:"mint"`
	Owner           common.Address `json:"owner"`
	Balance         uint64         `json:"balance"`
	Delegate        common.Address `json:"delegate,omitempty"`
	DelegatedAmount uint64         `json:"delegated_amount,omitempty"`
}
