package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"liquidityPool/internal/amm"
	"liquidityPool/internal/app"
)

func newPoolCmd() *cobra.Command {
	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Create pools, provide liquidity and swap",
	}
	poolCmd.AddCommand(
		newPoolInitCmd(),
		newPoolAddCmd(),
		newPoolRemoveCmd(),
		newPoolSwapCmd(),
		newPoolShowCmd(),
		newPoolQuoteCmd(),
		newPoolCheckCmd(),
	)
	return poolCmd
}

func newPoolInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a pool for an asset pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := signerFrom(cmd)
			if err != nil {
				return err
			}
			assetX, err := addressFlag(cmd, "asset-x")
			if err != nil {
				return err
			}
			assetY, err := addressFlag(cmd, "asset-y")
			if err != nil {
				return err
			}
			feeBps, _ := cmd.Flags().GetUint64("fee-bps")
			return withApp(cmd, true, func(ctx context.Context, a *app.App) (any, error) {
				return a.InitPool(ctx, signer, assetX, assetY, feeBps)
			})
		},
	}
	cmd.Flags().String("asset-x", "", "first asset mint")
	cmd.Flags().String("asset-y", "", "second asset mint")
	cmd.Flags().Uint64("fee-bps", 30, "swap fee in basis points")
	addKeyFlag(cmd)
	return cmd
}

func newPoolAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Deposit both assets and receive LP shares",
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := signerFrom(cmd)
			if err != nil {
				return err
			}
			pool, err := addressFlag(cmd, "pool")
			if err != nil {
				return err
			}
			amountX, _ := cmd.Flags().GetUint64("amount-x")
			amountY, _ := cmd.Flags().GetUint64("amount-y")
			minLP, _ := cmd.Flags().GetUint64("min-lp")
			delegated, _ := cmd.Flags().GetBool("delegated")
			return withApp(cmd, true, func(ctx context.Context, a *app.App) (any, error) {
				minted, err := a.Deposit(ctx, signer, pool, amountX, amountY, minLP, delegated)
				if err != nil {
					return nil, err
				}
				return poolResult(ctx, a, pool, map[string]any{"minted": minted})
			})
		},
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().Uint64("amount-x", 0, "asset X deposit")
	cmd.Flags().Uint64("amount-y", 0, "asset Y deposit")
	cmd.Flags().Uint64("min-lp", 0, "minimum LP shares to accept")
	cmd.Flags().Bool("delegated", false, "debit through the pool's approval")
	addKeyFlag(cmd)
	return cmd
}

func newPoolRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Burn LP shares for a pro-rata share of reserves",
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := signerFrom(cmd)
			if err != nil {
				return err
			}
			pool, err := addressFlag(cmd, "pool")
			if err != nil {
				return err
			}
			lpAmount, _ := cmd.Flags().GetUint64("lp")
			minX, _ := cmd.Flags().GetUint64("min-x")
			minY, _ := cmd.Flags().GetUint64("min-y")
			delegated, _ := cmd.Flags().GetBool("delegated")
			return withApp(cmd, true, func(ctx context.Context, a *app.App) (any, error) {
				paidX, paidY, err := a.Withdraw(ctx, signer, pool, lpAmount, minX, minY, delegated)
				if err != nil {
					return nil, err
				}
				return poolResult(ctx, a, pool, map[string]any{"amount_x": paidX, "amount_y": paidY})
			})
		},
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().Uint64("lp", 0, "LP shares to burn")
	cmd.Flags().Uint64("min-x", 0, "minimum asset X to accept")
	cmd.Flags().Uint64("min-y", 0, "minimum asset Y to accept")
	cmd.Flags().Bool("delegated", true, "burn through the pool's approval")
	addKeyFlag(cmd)
	return cmd
}

func newPoolSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Sell one pool asset for the other",
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := signerFrom(cmd)
			if err != nil {
				return err
			}
			pool, err := addressFlag(cmd, "pool")
			if err != nil {
				return err
			}
			dirFlag, _ := cmd.Flags().GetString("direction")
			dir, err := amm.ParseDirection(dirFlag)
			if err != nil {
				return err
			}
			amountIn, _ := cmd.Flags().GetUint64("amount")
			minOut, _ := cmd.Flags().GetUint64("min-out")
			delegated, _ := cmd.Flags().GetBool("delegated")
			return withApp(cmd, true, func(ctx context.Context, a *app.App) (any, error) {
				out, err := a.Trade(ctx, signer, pool, dir, amountIn, minOut, delegated)
				if err != nil {
					return nil, err
				}
				return poolResult(ctx, a, pool, map[string]any{"direction": dir.String(), "amount_in": amountIn, "amount_out": out})
			})
		},
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("direction", "x_for_y", "swap direction (x_for_y, y_for_x)")
	cmd.Flags().Uint64("amount", 0, "input amount including the fee")
	cmd.Flags().Uint64("min-out", 0, "minimum output to accept")
	cmd.Flags().Bool("delegated", false, "debit through the pool's approval")
	addKeyFlag(cmd)
	return cmd
}

func newPoolShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one pool or every pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, _ := cmd.Flags().GetString("pool")
			return withApp(cmd, false, func(ctx context.Context, a *app.App) (any, error) {
				if raw == "" {
					return a.Engine.Pools(ctx)
				}
				pool, err := addressFlag(cmd, "pool")
				if err != nil {
					return nil, err
				}
				return a.Engine.Pool(ctx, pool)
			})
		},
	}
	cmd.Flags().String("pool", "", "pool address, all pools when empty")
	return cmd
}

func newPoolQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap, deposit or withdrawal without executing it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := addressFlag(cmd, "pool")
			if err != nil {
				return err
			}
			dirFlag, _ := cmd.Flags().GetString("direction")
			amountIn, _ := cmd.Flags().GetUint64("amount")
			amountX, _ := cmd.Flags().GetUint64("amount-x")
			amountY, _ := cmd.Flags().GetUint64("amount-y")
			lpAmount, _ := cmd.Flags().GetUint64("lp")
			return withApp(cmd, false, func(ctx context.Context, a *app.App) (any, error) {
				switch {
				case lpAmount > 0:
					x, y, err := a.Engine.QuoteRemove(ctx, pool, lpAmount)
					if err != nil {
						return nil, err
					}
					return map[string]any{"lp": lpAmount, "amount_x": x, "amount_y": y}, nil
				case amountX > 0 || amountY > 0:
					minted, err := a.Engine.QuoteAdd(ctx, pool, amountX, amountY)
					if err != nil {
						return nil, err
					}
					return map[string]any{"amount_x": amountX, "amount_y": amountY, "minted": minted}, nil
				default:
					dir, err := amm.ParseDirection(dirFlag)
					if err != nil {
						return nil, err
					}
					q, err := a.Engine.QuoteSwap(ctx, pool, dir, amountIn)
					if err != nil {
						return nil, err
					}
					return map[string]any{"direction": q.Direction.String(), "amount_in": q.AmountIn, "fee": q.Fee, "amount_out": q.AmountOut}, nil
				}
			})
		},
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("direction", "x_for_y", "swap direction (x_for_y, y_for_x)")
	cmd.Flags().Uint64("amount", 0, "swap input amount")
	cmd.Flags().Uint64("amount-x", 0, "deposit of asset X")
	cmd.Flags().Uint64("amount-y", 0, "deposit of asset Y")
	cmd.Flags().Uint64("lp", 0, "LP shares to withdraw")
	return cmd
}

func newPoolCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify pool invariants against the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App) (any, error) {
				results, err := a.Engine.CheckInvariants(ctx)
				if err != nil {
					return nil, err
				}
				var broken int
				for _, res := range results {
					if res.Broken {
						broken++
					}
				}
				if broken > 0 {
					if err := printJSON(cmd.OutOrStdout(), results); err != nil {
						return nil, err
					}
					return nil, fmt.Errorf("%d of %d pools violate invariants", broken, len(results))
				}
				return results, nil
			})
		},
	}
}

// poolResult adds the post-operation pool state to fields.
func poolResult(ctx context.Context, a *app.App, pool common.Address, fields map[string]any) (any, error) {
	p, err := a.Engine.Pool(ctx, pool)
	if err != nil {
		return nil, err
	}
	fields["pool"] = p
	return fields, nil
}
