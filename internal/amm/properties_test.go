package amm

import (
	"errors"
	"testing"

	errorsmod "cosmossdk.io/errors"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"liquidityPool/internal/fixedpoint"
)

// Random operation sequences keep the pool consistent with the ledger, keep
// LP supply zero exactly when reserves are zero, and never raise the reserve
// product on a failed request.
func TestEngineSequencesKeepInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := newHarness(t, Config{})
		p := h.initPool(rapid.Uint64Range(0, 500).Draw(t, "fee"))
		totalX := h.balance(h.trader, h.assetX) + h.ledger.Balance(p.CustodyX)

		steps := rapid.IntRange(1, 25).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			before := h.pool()
			var err error
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				_, err = h.add(
					rapid.Uint64Range(1, 1_000_000).Draw(t, "add_x"),
					rapid.Uint64Range(1, 1_000_000).Draw(t, "add_y"),
				)
			case 1:
				_, _, err = h.remove(rapid.Uint64Range(0, before.LPSupply+1).Draw(t, "lp"))
			case 2:
				_, err = h.swap(XForY, rapid.Uint64Range(0, 1_000_000).Draw(t, "in_x"))
			case 3:
				_, err = h.swap(YForX, rapid.Uint64Range(0, 1_000_000).Draw(t, "in_y"))
			}

			after := h.pool()
			if err != nil {
				require.Equal(t, before, after)
				var coded *errorsmod.Error
				require.True(t, errors.As(err, &coded), "untyped error %v", err)
				require.Equal(t, Codespace, coded.Codespace())
				continue
			}
			require.Equal(t, after.LPSupply == 0, after.ReserveX == 0 && after.ReserveY == 0)
			require.Equal(t, after.ReserveX, h.ledger.Balance(after.CustodyX))
			require.Equal(t, after.ReserveY, h.ledger.Balance(after.CustodyY))
			if before.LPSupply == after.LPSupply {
				prodBefore := fixedpoint.Product(before.ReserveX, before.ReserveY)
				prodAfter := fixedpoint.Product(after.ReserveX, after.ReserveY)
				require.False(t, prodAfter.Lt(prodBefore))
			}
		}

		// no asset is created or destroyed by the pool
		require.Equal(t, totalX, h.balance(h.trader, h.assetX)+h.ledger.Balance(p.CustodyX))
		h.requireConsistent()
	})
}
