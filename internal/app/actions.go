package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"liquidityPool/internal/amm"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
)

// Signer is a keyed identity submitting requests.
type Signer struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
}

func NewSigner(key *ecdsa.PrivateKey) Signer {
	return Signer{Key: key, Address: crypto.PubkeyToAddress(key.PublicKey)}
}

// AssetAddress derives the mint address of an asset created by authority.
func AssetAddress(authority common.Address, symbol string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("mint"), authority.Bytes(), []byte(symbol))[12:])
}

// CreateAsset registers a mint for symbol under authority.
func (a *App) CreateAsset(authority common.Address, symbol string, decimals uint8) (common.Address, error) {
	if symbol == "" {
		return common.Address{}, fmt.Errorf("symbol is required")
	}
	asset := AssetAddress(authority, symbol)
	if err := a.Ledger.CreateMint(asset, authority, decimals); err != nil {
		return common.Address{}, err
	}
	return asset, nil
}

// Fund mints amount of asset into the associated account of owner, opening it
// when missing. authority must be the mint authority of asset.
func (a *App) Fund(asset, owner common.Address, amount uint64, authority common.Address) (common.Address, error) {
	account, err := a.Ledger.OpenAssociatedAccount(owner, asset)
	if err != nil {
		return common.Address{}, err
	}
	if err := a.Ledger.MintTo(asset, account, amount, authority); err != nil {
		return common.Address{}, err
	}
	return account, nil
}

// Approve lets pool debit up to amount of asset from the associated account
// of owner.
func (a *App) Approve(owner, asset, pool common.Address, amount uint64) error {
	return a.Ledger.Approve(ledger.AssociatedAccount(owner, asset), pool, amount, owner)
}

// InitPool signs and submits a pool initialization for the pair.
func (a *App) InitPool(ctx context.Context, s Signer, assetX, assetY common.Address, feeBps uint64) (model.PoolState, error) {
	req := amm.InitializePoolRequest{
		Authority: s.Address,
		AssetX:    assetX,
		AssetY:    assetY,
		FeeBps:    feeBps,
		Nonce:     a.Engine.Nonces().Next(s.Address),
	}
	if err := req.Sign(s.Key); err != nil {
		return model.PoolState{}, err
	}
	return a.Engine.InitializePool(ctx, req)
}

// Deposit adds liquidity from the associated accounts of s and credits LP
// shares to its associated LP account.
func (a *App) Deposit(ctx context.Context, s Signer, pool common.Address, amountX, amountY, minLP uint64, delegated bool) (uint64, error) {
	p, err := a.Engine.Pool(ctx, pool)
	if err != nil {
		return 0, err
	}
	lpAccount, err := a.Ledger.OpenAssociatedAccount(s.Address, p.LPMint)
	if err != nil {
		return 0, err
	}
	req := amm.AddLiquidityRequest{
		Accounts:      p.Accounts(),
		Depositor:     s.Address,
		SourceX:       ledger.AssociatedAccount(s.Address, p.AssetX),
		SourceY:       ledger.AssociatedAccount(s.Address, p.AssetY),
		DestinationLP: lpAccount,
		AmountX:       amountX,
		AmountY:       amountY,
		MinLPOut:      minLP,
		Delegated:     delegated,
		Nonce:         a.Engine.Nonces().Next(s.Address),
	}
	if err := req.Sign(s.Key); err != nil {
		return 0, err
	}
	return a.Engine.AddLiquidity(ctx, req)
}

// Withdraw burns LP shares of s and pays both assets to its associated
// accounts.
func (a *App) Withdraw(ctx context.Context, s Signer, pool common.Address, lpAmount, minX, minY uint64, delegated bool) (uint64, uint64, error) {
	p, err := a.Engine.Pool(ctx, pool)
	if err != nil {
		return 0, 0, err
	}
	destX, err := a.Ledger.OpenAssociatedAccount(s.Address, p.AssetX)
	if err != nil {
		return 0, 0, err
	}
	destY, err := a.Ledger.OpenAssociatedAccount(s.Address, p.AssetY)
	if err != nil {
		return 0, 0, err
	}
	req := amm.RemoveLiquidityRequest{
		Accounts:     p.Accounts(),
		Withdrawer:   s.Address,
		SourceLP:     ledger.AssociatedAccount(s.Address, p.LPMint),
		DestinationX: destX,
		DestinationY: destY,
		LPAmount:     lpAmount,
		MinAmountX:   minX,
		MinAmountY:   minY,
		Delegated:    delegated,
		Nonce:        a.Engine.Nonces().Next(s.Address),
	}
	if err := req.Sign(s.Key); err != nil {
		return 0, 0, err
	}
	return a.Engine.RemoveLiquidity(ctx, req)
}

// Trade swaps amountIn of the input side of dir between the associated
// accounts of s.
func (a *App) Trade(ctx context.Context, s Signer, pool common.Address, dir amm.Direction, amountIn, minOut uint64, delegated bool) (uint64, error) {
	p, err := a.Engine.Pool(ctx, pool)
	if err != nil {
		return 0, err
	}
	assetIn, assetOut := p.AssetX, p.AssetY
	if dir == amm.YForX {
		assetIn, assetOut = assetOut, assetIn
	}
	dest, err := a.Ledger.OpenAssociatedAccount(s.Address, assetOut)
	if err != nil {
		return 0, err
	}
	req := amm.SwapRequest{
		Accounts:     p.Accounts(),
		Trader:       s.Address,
		Source:       ledger.AssociatedAccount(s.Address, assetIn),
		Destination:  dest,
		AmountIn:     amountIn,
		MinAmountOut: minOut,
		Delegated:    delegated,
		Nonce:        a.Engine.Nonces().Next(s.Address),
	}
	if err := req.Sign(dir, s.Key); err != nil {
		return 0, err
	}
	return a.Engine.Swap(ctx, dir, req)
}
