package ledger

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error codespace of the custody ledger.
const Codespace = "ledger"

var (
	ErrMintNotFound          = errorsmod.Register(Codespace, 2, "mint not found")
	ErrMintExists            = errorsmod.Register(Codespace, 3, "mint already exists")
	ErrAccountNotFound       = errorsmod.Register(Codespace, 4, "account not found")
	ErrAccountExists         = errorsmod.Register(Codespace, 5, "account already exists")
	ErrMintMismatch          = errorsmod.Register(Codespace, 6, "account mint mismatch")
	ErrInsufficientFunds     = errorsmod.Register(Codespace, 7, "insufficient funds")
	ErrOwnerMismatch         = errorsmod.Register(Codespace, 8, "signer is neither owner nor delegate")
	ErrInsufficientAllowance = errorsmod.Register(Codespace, 9, "delegated amount exceeded")
	ErrMintAuthority         = errorsmod.Register(Codespace, 10, "signer is not the mint authority")
	ErrOverflow              = errorsmod.Register(Codespace, 11, "balance or supply overflow")
	ErrBalanceMismatch       = errorsmod.Register(Codespace, 12, "unexpected account balance")
)
