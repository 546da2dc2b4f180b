package amm

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Request encodings. Each signed request is the ABI call data of one of these
// methods; the selector keeps digests of different operations apart.
const requestABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "authority", "type": "address"},
      {"internalType": "address", "name": "assetX", "type": "address"},
      {"internalType": "address", "name": "assetY", "type": "address"},
      {"internalType": "uint64", "name": "feeBps", "type": "uint64"},
      {"internalType": "uint64", "name": "nonce", "type": "uint64"}
    ],
    "name": "initializePool",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "pool", "type": "address"},
      {"internalType": "address", "name": "custodyX", "type": "address"},
      {"internalType": "address", "name": "custodyY", "type": "address"},
      {"internalType": "address", "name": "lpMint", "type": "address"},
      {"internalType": "address", "name": "depositor", "type": "address"},
      {"internalType": "address", "name": "sourceX", "type": "address"},
      {"internalType": "address", "name": "sourceY", "type": "address"},
      {"internalType": "address", "name": "destinationLp", "type": "address"},
      {"internalType": "uint64", "name": "amountX", "type": "uint64"},
      {"internalType": "uint64", "name": "amountY", "type": "uint64"},
      {"internalType": "uint64", "name": "minLpOut", "type": "uint64"},
      {"internalType": "bool", "name": "delegated", "type": "bool"},
      {"internalType": "uint64", "name": "nonce", "type": "uint64"}
    ],
    "name": "addLiquidity",
    "outputs": [{"internalType": "uint64", "name": "minted", "type": "uint64"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "pool", "type": "address"},
      {"internalType": "address", "name": "custodyX", "type": "address"},
      {"internalType": "address", "name": "custodyY", "type": "address"},
      {"internalType": "address", "name": "lpMint", "type": "address"},
      {"internalType": "address", "name": "withdrawer", "type": "address"},
      {"internalType": "address", "name": "sourceLp", "type": "address"},
      {"internalType": "address", "name": "destinationX", "type": "address"},
      {"internalType": "address", "name": "destinationY", "type": "address"},
      {"internalType": "uint64", "name": "lpAmount", "type": "uint64"},
      {"internalType": "uint64", "name": "minAmountX", "type": "uint64"},
      {"internalType": "uint64", "name": "minAmountY", "type": "uint64"},
      {"internalType": "bool", "name": "delegated", "type": "bool"},
      {"internalType": "uint64", "name": "nonce", "type": "uint64"}
    ],
    "name": "removeLiquidity",
    "outputs": [
      {"internalType": "uint64", "name": "amountX", "type": "uint64"},
      {"internalType": "uint64", "name": "amountY", "type": "uint64"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "pool", "type": "address"},
      {"internalType": "address", "name": "custodyX", "type": "address"},
      {"internalType": "address", "name": "custodyY", "type": "address"},
      {"internalType": "address", "name": "lpMint", "type": "address"},
      {"internalType": "address", "name": "trader", "type": "address"},
      {"internalType": "address", "name": "source", "type": "address"},
      {"internalType": "address", "name": "destination", "type": "address"},
      {"internalType": "uint64", "name": "amountIn", "type": "uint64"},
      {"internalType": "uint64", "name": "minAmountOut", "type": "uint64"},
      {"internalType": "bool", "name": "delegated", "type": "bool"},
      {"internalType": "uint64", "name": "nonce", "type": "uint64"}
    ],
    "name": "swapXForY",
    "outputs": [{"internalType": "uint64", "name": "amountOut", "type": "uint64"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "pool", "type": "address"},
      {"internalType": "address", "name": "custodyX", "type": "address"},
      {"internalType": "address", "name": "custodyY", "type": "address"},
      {"internalType": "address", "name": "lpMint", "type": "address"},
      {"internalType": "address", "name": "trader", "type": "address"},
      {"internalType": "address", "name": "source", "type": "address"},
      {"internalType": "address", "name": "destination", "type": "address"},
      {"internalType": "uint64", "name": "amountIn", "type": "uint64"},
      {"internalType": "uint64", "name": "minAmountOut", "type": "uint64"},
      {"internalType": "bool", "name": "delegated", "type": "bool"},
      {"internalType": "uint64", "name": "nonce", "type": "uint64"}
    ],
    "name": "swapYForX",
    "outputs": [{"internalType": "uint64", "name": "amountOut", "type": "uint64"}],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const (
	methodInitializePool  = "initializePool"
	methodAddLiquidity    = "addLiquidity"
	methodRemoveLiquidity = "removeLiquidity"
	methodSwapXForY       = "swapXForY"
	methodSwapYForX       = "swapYForX"
)

var (
	requestABI     abi.ABI
	requestABIOnce sync.Once
	requestABIErr  error
)

// RequestABI returns the parsed request ABI.
func RequestABI() (abi.ABI, error) {
	requestABIOnce.Do(func() {
		requestABI, requestABIErr = abi.JSON(strings.NewReader(requestABIJSON))
	})
	return requestABI, requestABIErr
}
