package amm

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func derive(seed string, parts ...common.Address) common.Address {
	data := make([][]byte, 0, len(parts)+1)
	data = append(data, []byte(seed))
	for _, p := range parts {
		data = append(data, p.Bytes())
	}
	return common.BytesToAddress(crypto.Keccak256(data...)[12:])
}

// PoolAddress derives the pool identity of an unordered asset pair.
func PoolAddress(assetA, assetB common.Address) common.Address {
	lo, hi := assetA, assetB
	if bytes.Compare(lo.Bytes(), hi.Bytes()) > 0 {
		lo, hi = hi, lo
	}
	return derive("pool", lo, hi)
}

// LPMintAddress derives the share token mint of a pool.
func LPMintAddress(pool common.Address) common.Address {
	return derive("lp_mint", pool)
}

// CustodyAddress derives the pool-owned account holding asset.
func CustodyAddress(pool, asset common.Address) common.Address {
	return derive("custody", pool, asset)
}
