package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PoolState is the persistent record of a two-asset constant-product pool.
type PoolState struct {
	Address   common.Address `json:"address"`
	Authority common.Address `json:"authority"`
	AssetX    common.Address `json:"asset_x"`
	AssetY    common.Address `json:"asset_y"`
	LPMint    common.Address `json:"lp_mint"`
	CustodyX  common.Address `json:"custody_x"`
	CustodyY  common.Address `json:"custody_y"`
	ReserveX  uint64         `json:"reserve_x"`
	ReserveY  uint64         `json:"reserve_y"`
	LPSupply  uint64         `json:"lp_supply"`
	FeeBps    uint64         `json:"fee_bps"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// PoolAccounts are the pool-owned accounts a request must name.
type PoolAccounts struct {
	Pool     common.Address `json:"pool"`
	CustodyX common.Address `json:"custody_x"`
	CustodyY common.Address `json:"custody_y"`
	LPMint   common.Address `json:"lp_mint"`
}

// Accounts returns the account binding stored in the pool record.
func (p PoolState) Accounts() PoolAccounts {
	return PoolAccounts{
		Pool:     p.Address,
		CustodyX: p.CustodyX,
		CustodyY: p.CustodyY,
		LPMint:   p.LPMint,
	}
}
