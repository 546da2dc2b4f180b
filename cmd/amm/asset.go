package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"liquidityPool/internal/app"
	"liquidityPool/internal/config"
	"liquidityPool/internal/ledger"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"address":     crypto.PubkeyToAddress(key.PublicKey).Hex(),
				"private_key": config.EncodePrivateKey(key),
			})
		},
	}
}

func addKeyFlag(cmd *cobra.Command) {
	cmd.Flags().String("key", "", "hex private key of the signer (defaults to $AMM_KEY)")
}

func signerFrom(cmd *cobra.Command) (app.Signer, error) {
	raw, _ := cmd.Flags().GetString("key")
	if raw == "" {
		raw = os.Getenv("AMM_KEY")
	}
	key, err := config.ParsePrivateKey(raw)
	if err != nil {
		return app.Signer{}, err
	}
	return app.NewSigner(key), nil
}

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return common.Address{}, fmt.Errorf("--%s is required", name)
	}
	return config.ParseAddress(raw)
}

func newAssetCmd() *cobra.Command {
	assetCmd := &cobra.Command{
		Use:   "asset",
		Short: "Manage asset mints and accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an asset mint owned by the signer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := signerFrom(cmd)
			if err != nil {
				return err
			}
			symbol, _ := cmd.Flags().GetString("symbol")
			decimals, _ := cmd.Flags().GetUint8("decimals")
			return withApp(cmd, true, func(_ context.Context, a *app.App) (any, error) {
				asset, err := a.CreateAsset(signer.Address, symbol, decimals)
				if err != nil {
					return nil, err
				}
				return map[string]any{"asset": asset, "authority": signer.Address, "decimals": decimals}, nil
			})
		},
	}
	createCmd.Flags().String("symbol", "", "asset symbol")
	createCmd.Flags().Uint8("decimals", 6, "asset decimals")
	addKeyFlag(createCmd)

	mintCmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint asset units to an owner, signed by the mint authority",
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := signerFrom(cmd)
			if err != nil {
				return err
			}
			asset, err := addressFlag(cmd, "asset")
			if err != nil {
				return err
			}
			to, err := addressFlag(cmd, "to")
			if err != nil {
				return err
			}
			amount, _ := cmd.Flags().GetUint64("amount")
			return withApp(cmd, true, func(_ context.Context, a *app.App) (any, error) {
				account, err := a.Fund(asset, to, amount, signer.Address)
				if err != nil {
					return nil, err
				}
				return accountView(a, account)
			})
		},
	}
	mintCmd.Flags().String("asset", "", "asset mint address")
	mintCmd.Flags().String("to", "", "receiving owner")
	mintCmd.Flags().Uint64("amount", 0, "amount in base units")
	addKeyFlag(mintCmd)

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the associated account of an owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asset, err := addressFlag(cmd, "asset")
			if err != nil {
				return err
			}
			owner, err := addressFlag(cmd, "owner")
			if err != nil {
				return err
			}
			return withApp(cmd, false, func(_ context.Context, a *app.App) (any, error) {
				return accountView(a, ledger.AssociatedAccount(owner, asset))
			})
		},
	}
	balanceCmd.Flags().String("asset", "", "asset mint address")
	balanceCmd.Flags().String("owner", "", "account owner")

	assetCmd.AddCommand(createCmd, mintCmd, balanceCmd)
	return assetCmd
}

func accountView(a *app.App, address common.Address) (any, error) {
	acc, ok := a.Ledger.Account(address)
	if !ok {
		return nil, ledger.ErrAccountNotFound.Wrapf("account %s", address.Hex())
	}
	return map[string]any{
		"account":          acc.Address,
		"mint":             acc.Mint,
		"owner":            acc.Owner,
		"balance":          acc.Balance,
		"delegate":         acc.Delegate,
		"delegated_amount": acc.DelegatedAmount,
	}, nil
}

func newApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Let a pool debit the signer's account for delegated requests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := signerFrom(cmd)
			if err != nil {
				return err
			}
			asset, err := addressFlag(cmd, "asset")
			if err != nil {
				return err
			}
			pool, err := addressFlag(cmd, "pool")
			if err != nil {
				return err
			}
			amount, _ := cmd.Flags().GetUint64("amount")
			return withApp(cmd, true, func(_ context.Context, a *app.App) (any, error) {
				if err := a.Approve(signer.Address, asset, pool, amount); err != nil {
					return nil, err
				}
				return accountView(a, ledger.AssociatedAccount(signer.Address, asset))
			})
		},
	}
	cmd.Flags().String("asset", "", "asset or LP mint address")
	cmd.Flags().String("pool", "", "pool allowed to debit")
	cmd.Flags().Uint64("amount", 0, "approved amount, 0 revokes")
	addKeyFlag(cmd)
	return cmd
}
