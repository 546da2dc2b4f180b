package report

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"liquidityPool/internal/model"
)

// reserves is a pool's reserve and supply triple at one point in time.
type reserves struct {
	X, Y, Supply uint64
}

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	Pool          common.Address
	WindowStart   uint64
	WindowEnd     uint64
	SwapCount     uint64
	DepositCount  uint64
	WithdrawCount uint64
	VolumeX       *big.Int
	VolumeY       *big.Int
	FeeX          *big.Int
	FeeY          *big.Int
	FeeBps        uint64
	LastTS        uint64

	// Open is the pool state before the first event of the window, Close the
	// state after the last one.
	Open  reserves
	Close reserves
}

func NewAccumulator(ev model.PoolEvent, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		Pool:        ev.Pool,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		VolumeX:     big.NewInt(0),
		VolumeY:     big.NewInt(0),
		FeeX:        big.NewInt(0),
		FeeY:        big.NewInt(0),
		FeeBps:      ev.FeeBps,
		LastTS:      ev.Timestamp,
		Open:        preState(ev),
		Close:       postState(ev),
	}
}

func (a *Accumulator) AddEvent(ev model.PoolEvent) error {
	switch ev.Kind {
	case model.EventSwapXForY:
		a.SwapCount++
		addUint(a.FeeX, ev.FeeX)
	case model.EventSwapYForX:
		a.SwapCount++
		addUint(a.FeeY, ev.FeeY)
	case model.EventAddLiquidity:
		a.DepositCount++
	case model.EventRemoveLiquidity:
		a.WithdrawCount++
	case model.EventInitialize:
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if ev.Kind == model.EventSwapXForY || ev.Kind == model.EventSwapYForX {
		addUint(a.VolumeX, ev.AmountX)
		addUint(a.VolumeY, ev.AmountY)
	}

	if ev.Timestamp >= a.LastTS {
		a.LastTS = ev.Timestamp
		a.Close = postState(ev)
		a.FeeBps = ev.FeeBps
	}
	return nil
}

func addUint(target *big.Int, v uint64) {
	target.Add(target, new(big.Int).SetUint64(v))
}

func postState(ev model.PoolEvent) reserves {
	return reserves{X: ev.ReserveX, Y: ev.ReserveY, Supply: ev.LPSupply}
}

// preState recovers the state an event started from by undoing its movements.
func preState(ev model.PoolEvent) reserves {
	post := postState(ev)
	switch ev.Kind {
	case model.EventSwapXForY:
		return reserves{X: post.X - ev.AmountX, Y: post.Y + ev.AmountY, Supply: post.Supply}
	case model.EventSwapYForX:
		return reserves{X: post.X + ev.AmountX, Y: post.Y - ev.AmountY, Supply: post.Supply}
	case model.EventAddLiquidity:
		return reserves{X: post.X - ev.AmountX, Y: post.Y - ev.AmountY, Supply: post.Supply - ev.LPAmount}
	case model.EventRemoveLiquidity:
		return reserves{X: post.X + ev.AmountX, Y: post.Y + ev.AmountY, Supply: post.Supply + ev.LPAmount}
	default:
		return reserves{}
	}
}
