package model

import "github.com/ethereum/go-ethereum/common"

// Event kinds written to the event journal.
const (
	EventInitialize      = "initialize"
	EventAddLiquidity    = "add_liquidity"
	EventRemoveLiquidity = "remove_liquidity"
	EventSwapXForY       = "swap_x_for_y"
	EventSwapYForX       = "swap_y_for_x"
)

// PoolEvent records one committed pool operation and the post-state it left.
// Amounts are the quantities moved; Kind tells their direction. A swap moves
// AmountX and AmountY in opposite directions, fees included in the input.
type PoolEvent struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Pool      common.Address `json:"pool"`
	Caller    common.Address `json:"caller"`
	AmountX   uint64         `json:"amount_x"`
	AmountY   uint64         `json:"amount_y"`
	LPAmount  uint64         `json:"lp_amount"`
	FeeX      uint64         `json:"fee_x"`
	FeeY      uint64         `json:"fee_y"`
	ReserveX  uint64         `json:"reserve_x"`
	ReserveY  uint64         `json:"reserve_y"`
	LPSupply  uint64         `json:"lp_supply"`
	FeeBps    uint64         `json:"fee_bps"`
	Timestamp uint64         `json:"timestamp"`
}
