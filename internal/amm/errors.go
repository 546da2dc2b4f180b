package amm

import (
	"errors"

	errorsmod "cosmossdk.io/errors"

	"liquidityPool/internal/fixedpoint"
	"liquidityPool/internal/ledger"
)

// Codespace is the error codespace of the pool program.
const Codespace = "amm"

var (
	ErrInvalidFeeRate               = errorsmod.Register(Codespace, 2, "fee rate must be below 10000 bps")
	ErrIdenticalAssets              = errorsmod.Register(Codespace, 3, "pool assets must differ")
	ErrPoolAlreadyExists            = errorsmod.Register(Codespace, 4, "pool already exists for asset pair")
	ErrInsufficientInitialLiquidity = errorsmod.Register(Codespace, 5, "deposit mints no liquidity")
	ErrImbalancedDeposit            = errorsmod.Register(Codespace, 6, "deposit ratio differs from reserves")
	ErrInsufficientLpBalance        = errorsmod.Register(Codespace, 7, "insufficient lp balance")
	ErrZeroWithdrawal               = errorsmod.Register(Codespace, 8, "withdrawal pays out nothing")
	ErrInsufficientLiquidity        = errorsmod.Register(Codespace, 9, "insufficient liquidity")
	ErrArithmeticOverflow           = errorsmod.Register(Codespace, 10, "arithmetic overflow")
	ErrDivisionByZero               = errorsmod.Register(Codespace, 11, "division by zero")
	ErrAccountMismatch              = errorsmod.Register(Codespace, 12, "account mismatch")
	ErrUnauthorized                 = errorsmod.Register(Codespace, 13, "unauthorized")
	ErrPoolNotFound                 = errorsmod.Register(Codespace, 14, "pool not found")
	ErrInvalidAmount                = errorsmod.Register(Codespace, 15, "amount must be positive")
	ErrInsufficientFunds            = errorsmod.Register(Codespace, 16, "insufficient funds")
	ErrSlippageExceeded             = errorsmod.Register(Codespace, 17, "slippage bound exceeded")
	ErrInvariantViolated            = errorsmod.Register(Codespace, 18, "pool invariant violated")
)

// mathError maps fixedpoint sentinels onto the pool taxonomy.
func mathError(err error, context string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fixedpoint.ErrDivisionByZero):
		return ErrDivisionByZero.Wrap(context)
	case errors.Is(err, fixedpoint.ErrArithmeticOverflow):
		return ErrArithmeticOverflow.Wrap(context)
	default:
		return errorsmod.Wrap(err, context)
	}
}

// ledgerError maps custody ledger failures onto the pool taxonomy.
func ledgerError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return errorsmod.Wrap(ErrInsufficientFunds, err.Error())
	case errors.Is(err, ledger.ErrOwnerMismatch),
		errors.Is(err, ledger.ErrInsufficientAllowance),
		errors.Is(err, ledger.ErrMintAuthority):
		return errorsmod.Wrap(ErrUnauthorized, err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrMintNotFound),
		errors.Is(err, ledger.ErrMintMismatch),
		errors.Is(err, ledger.ErrAccountExists),
		errors.Is(err, ledger.ErrMintExists):
		return errorsmod.Wrap(ErrAccountMismatch, err.Error())
	case errors.Is(err, ledger.ErrOverflow):
		return errorsmod.Wrap(ErrArithmeticOverflow, err.Error())
	case errors.Is(err, ledger.ErrBalanceMismatch):
		return errorsmod.Wrap(ErrInvariantViolated, err.Error())
	default:
		return err
	}
}
