package amm

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"liquidityPool/internal/model"
)

// Request is a signed instruction addressed to the pool program.
type Request interface {
	// Caller is the identity the signature must recover to.
	Caller() common.Address
	RequestNonce() uint64
	Digest() (common.Hash, error)
	RequestSignature() []byte
}

// InitializePoolRequest creates a pool for an asset pair.
type InitializePoolRequest struct {
	Authority common.Address
	AssetX    common.Address
	AssetY    common.Address
	FeeBps    uint64
	Nonce     uint64
	Signature []byte
}

// AddLiquidityRequest deposits both assets and mints LP shares.
type AddLiquidityRequest struct {
	Accounts      model.PoolAccounts
	Depositor     common.Address
	SourceX       common.Address
	SourceY       common.Address
	DestinationLP common.Address
	AmountX       uint64
	AmountY       uint64
	MinLPOut      uint64
	Delegated     bool
	Nonce         uint64
	Signature     []byte
}

// RemoveLiquidityRequest burns LP shares for a pro-rata share of reserves.
type RemoveLiquidityRequest struct {
	Accounts     model.PoolAccounts
	Withdrawer   common.Address
	SourceLP     common.Address
	DestinationX common.Address
	DestinationY common.Address
	LPAmount     uint64
	MinAmountX   uint64
	MinAmountY   uint64
	Delegated    bool
	Nonce        uint64
	Signature    []byte
}

// SwapRequest trades one pool asset for the other. Source holds the input
// asset and Destination receives the output asset.
type SwapRequest struct {
	Accounts     model.PoolAccounts
	Trader       common.Address
	Source       common.Address
	Destination  common.Address
	AmountIn     uint64
	MinAmountOut uint64
	Delegated    bool
	Nonce        uint64
	Signature    []byte
}

func packDigest(method string, args ...interface{}) (common.Hash, error) {
	parsed, err := RequestABI()
	if err != nil {
		return common.Hash{}, fmt.Errorf("load request abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}
	return crypto.Keccak256Hash(data), nil
}

func (r InitializePoolRequest) Caller() common.Address   { return r.Authority }
func (r InitializePoolRequest) RequestNonce() uint64     { return r.Nonce }
func (r InitializePoolRequest) RequestSignature() []byte { return r.Signature }

func (r InitializePoolRequest) Digest() (common.Hash, error) {
	return packDigest(methodInitializePool, r.Authority, r.AssetX, r.AssetY, r.FeeBps, r.Nonce)
}

func (r AddLiquidityRequest) Caller() common.Address   { return r.Depositor }
func (r AddLiquidityRequest) RequestNonce() uint64     { return r.Nonce }
func (r AddLiquidityRequest) RequestSignature() []byte { return r.Signature }

func (r AddLiquidityRequest) Digest() (common.Hash, error) {
	a := r.Accounts
	return packDigest(methodAddLiquidity,
		a.Pool, a.CustodyX, a.CustodyY, a.LPMint,
		r.Depositor, r.SourceX, r.SourceY, r.DestinationLP,
		r.AmountX, r.AmountY, r.MinLPOut, r.Delegated, r.Nonce,
	)
}

func (r RemoveLiquidityRequest) Caller() common.Address   { return r.Withdrawer }
func (r RemoveLiquidityRequest) RequestNonce() uint64     { return r.Nonce }
func (r RemoveLiquidityRequest) RequestSignature() []byte { return r.Signature }

func (r RemoveLiquidityRequest) Digest() (common.Hash, error) {
	a := r.Accounts
	return packDigest(methodRemoveLiquidity,
		a.Pool, a.CustodyX, a.CustodyY, a.LPMint,
		r.Withdrawer, r.SourceLP, r.DestinationX, r.DestinationY,
		r.LPAmount, r.MinAmountX, r.MinAmountY, r.Delegated, r.Nonce,
	)
}

// SwapDigest returns the digest of a swap in the given direction.
func (r SwapRequest) SwapDigest(dir Direction) (common.Hash, error) {
	method := methodSwapXForY
	if dir == YForX {
		method = methodSwapYForX
	}
	a := r.Accounts
	return packDigest(method,
		a.Pool, a.CustodyX, a.CustodyY, a.LPMint,
		r.Trader, r.Source, r.Destination,
		r.AmountIn, r.MinAmountOut, r.Delegated, r.Nonce,
	)
}

// directedSwap binds a swap to its direction so the signature covers it.
type directedSwap struct {
	SwapRequest
	dir Direction
}

func (r directedSwap) Caller() common.Address       { return r.Trader }
func (r directedSwap) RequestNonce() uint64         { return r.Nonce }
func (r directedSwap) RequestSignature() []byte     { return r.Signature }
func (r directedSwap) Digest() (common.Hash, error) { return r.SwapDigest(r.dir) }

func sign(digest common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	return sig, nil
}

// Sign fills in the signature using key.
func (r *InitializePoolRequest) Sign(key *ecdsa.PrivateKey) error {
	digest, err := r.Digest()
	if err != nil {
		return err
	}
	r.Signature, err = sign(digest, key)
	return err
}

// Sign fills in the signature using key.
func (r *AddLiquidityRequest) Sign(key *ecdsa.PrivateKey) error {
	digest, err := r.Digest()
	if err != nil {
		return err
	}
	r.Signature, err = sign(digest, key)
	return err
}

// Sign fills in the signature using key.
func (r *RemoveLiquidityRequest) Sign(key *ecdsa.PrivateKey) error {
	digest, err := r.Digest()
	if err != nil {
		return err
	}
	r.Signature, err = sign(digest, key)
	return err
}

// Sign fills in the signature for a swap in direction dir.
func (r *SwapRequest) Sign(dir Direction, key *ecdsa.PrivateKey) error {
	digest, err := r.SwapDigest(dir)
	if err != nil {
		return err
	}
	r.Signature, err = sign(digest, key)
	return err
}
