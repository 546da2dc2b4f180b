package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// OpKind selects what an Op does inside a batch.
type OpKind uint8

const (
	OpTransfer OpKind = iota + 1
	OpMintTo
	OpBurn
	OpExpectBalance
	OpCreateMint
	OpOpenAccount
	OpExpectSupply
)

func (k OpKind) String() string {
	switch k {
	case OpTransfer:
		return "transfer"
	case OpMintTo:
		return "mint_to"
	case OpBurn:
		return "burn"
	case OpExpectBalance:
		return "expect_balance"
	case OpCreateMint:
		return "create_mint"
	case OpOpenAccount:
		return "open_account"
	case OpExpectSupply:
		return "expect_supply"
	default:
		return fmt.Sprintf("op(%d)", uint8(k))
	}
}

// Op is one step of an atomic batch. Signer is the identity authorizing a
// debit or a mint: the account owner, its delegate, or the mint authority.
// Owner is the new account owner, or the authority of a new mint.
type Op struct {
	Kind     OpKind
	Mint     common.Address
	From     common.Address
	To       common.Address
	Amount   uint64
	Signer   common.Address
	Owner    common.Address
	Decimals uint8
}

// Transfer moves amount of mint from one account to another.
func Transfer(mint, from, to common.Address, amount uint64, signer common.Address) Op {
	return Op{Kind: OpTransfer, Mint: mint, From: from, To: to, Amount: amount, Signer: signer}
}

// MintTo issues amount of mint into an account.
func MintTo(mint, to common.Address, amount uint64, signer common.Address) Op {
	return Op{Kind: OpMintTo, Mint: mint, To: to, Amount: amount, Signer: signer}
}

// Burn destroys amount of mint held by an account.
func Burn(mint, from common.Address, amount uint64, signer common.Address) Op {
	return Op{Kind: OpBurn, Mint: mint, From: from, Amount: amount, Signer: signer}
}

// ExpectBalance asserts the balance an account holds at this point of the batch.
func ExpectBalance(account common.Address, amount uint64) Op {
	return Op{Kind: OpExpectBalance, To: account, Amount: amount}
}

// CreateMint registers a mint inside a batch.
func CreateMint(mint, authority common.Address, decimals uint8) Op {
	return Op{Kind: OpCreateMint, Mint: mint, Owner: authority, Decimals: decimals}
}

// OpenAccount creates an empty account inside a batch.
func OpenAccount(account, mint, owner common.Address) Op {
	return Op{Kind: OpOpenAccount, Mint: mint, To: account, Owner: owner}
}

// ExpectSupply asserts the supply of a mint at this point of the batch.
func ExpectSupply(mint common.Address, amount uint64) Op {
	return Op{Kind: OpExpectSupply, Mint: mint, Amount: amount}
}
