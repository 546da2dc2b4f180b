package ledger

import (
	"github.com/ethereum/go-ethereum/common"

	"liquidityPool/internal/fixedpoint"
)

// batch is the copy-on-write overlay used by Execute. The caller holds the
// ledger lock for the batch's whole life.
type batch struct {
	ledger   *Ledger
	mints    map[common.Address]Mint
	accounts map[common.Address]Account
}

func (b *batch) mint(addr common.Address) (Mint, error) {
	if m, ok := b.mints[addr]; ok {
		return m, nil
	}
	m, ok := b.ledger.mints[addr]
	if !ok {
		return Mint{}, ErrMintNotFound.Wrapf("mint %s", addr.Hex())
	}
	return m, nil
}

func (b *batch) account(addr common.Address) (Account, error) {
	if acc, ok := b.accounts[addr]; ok {
		return acc, nil
	}
	acc, ok := b.ledger.accounts[addr]
	if !ok {
		return Account{}, ErrAccountNotFound.Wrapf("account %s", addr.Hex())
	}
	return acc, nil
}

func (b *batch) apply(op Op) error {
	switch op.Kind {
	case OpTransfer:
		return b.transfer(op)
	case OpMintTo:
		return b.mintTo(op)
	case OpBurn:
		return b.burn(op)
	case OpExpectBalance:
		acc, err := b.account(op.To)
		if err != nil {
			return err
		}
		if acc.Balance != op.Amount {
			return ErrBalanceMismatch.Wrapf("account %s holds %d, expected %d", op.To.Hex(), acc.Balance, op.Amount)
		}
		return nil
	case OpExpectSupply:
		m, err := b.mint(op.Mint)
		if err != nil {
			return err
		}
		if m.Supply != op.Amount {
			return ErrBalanceMismatch.Wrapf("mint %s supply %d, expected %d", op.Mint.Hex(), m.Supply, op.Amount)
		}
		return nil
	case OpCreateMint:
		if _, err := b.mint(op.Mint); err == nil {
			return ErrMintExists.Wrapf("mint %s", op.Mint.Hex())
		}
		b.mints[op.Mint] = Mint{Address: op.Mint, Authority: op.Owner, Decimals: op.Decimals}
		return nil
	case OpOpenAccount:
		if _, err := b.mint(op.Mint); err != nil {
			return err
		}
		if _, err := b.account(op.To); err == nil {
			return ErrAccountExists.Wrapf("account %s", op.To.Hex())
		}
		b.accounts[op.To] = Account{Address: op.To, Mint: op.Mint, Owner: op.Owner}
		return nil
	default:
		return ErrMintMismatch.Wrapf("unknown op %s", op.Kind)
	}
}

func (b *batch) transfer(op Op) error {
	from, err := b.account(op.From)
	if err != nil {
		return err
	}
	to, err := b.account(op.To)
	if err != nil {
		return err
	}
	if from.Mint != op.Mint || to.Mint != op.Mint {
		return ErrMintMismatch.Wrapf("transfer of %s from %s to %s", op.Mint.Hex(), op.From.Hex(), op.To.Hex())
	}
	if err := debit(&from, op.Amount, op.Signer); err != nil {
		return err
	}
	b.accounts[from.Address] = from

	// re-read: from and to may be the same account
	to, _ = b.account(op.To)
	balance, err := fixedpoint.CheckedAdd(to.Balance, op.Amount)
	if err != nil {
		return ErrOverflow.Wrapf("credit %d to %s", op.Amount, op.To.Hex())
	}
	to.Balance = balance
	b.accounts[to.Address] = to
	return nil
}

func (b *batch) mintTo(op Op) error {
	m, err := b.mint(op.Mint)
	if err != nil {
		return err
	}
	if m.Authority != op.Signer {
		return ErrMintAuthority.Wrapf("mint %s signed by %s", op.Mint.Hex(), op.Signer.Hex())
	}
	to, err := b.account(op.To)
	if err != nil {
		return err
	}
	if to.Mint != op.Mint {
		return ErrMintMismatch.Wrapf("mint %s into %s", op.Mint.Hex(), op.To.Hex())
	}

	supply, err := fixedpoint.CheckedAdd(m.Supply, op.Amount)
	if err != nil {
		return ErrOverflow.Wrapf("supply of %s", op.Mint.Hex())
	}
	balance, err := fixedpoint.CheckedAdd(to.Balance, op.Amount)
	if err != nil {
		return ErrOverflow.Wrapf("credit %d to %s", op.Amount, op.To.Hex())
	}
	m.Supply = supply
	to.Balance = balance
	b.mints[m.Address] = m
	b.accounts[to.Address] = to
	return nil
}

func (b *batch) burn(op Op) error {
	m, err := b.mint(op.Mint)
	if err != nil {
		return err
	}
	from, err := b.account(op.From)
	if err != nil {
		return err
	}
	if from.Mint != op.Mint {
		return ErrMintMismatch.Wrapf("burn %s from %s", op.Mint.Hex(), op.From.Hex())
	}
	if err := debit(&from, op.Amount, op.Signer); err != nil {
		return err
	}
	supply, err := fixedpoint.CheckedSub(m.Supply, op.Amount)
	if err != nil {
		return ErrOverflow.Wrapf("supply of %s below burn", op.Mint.Hex())
	}
	m.Supply = supply
	b.mints[m.Address] = m
	b.accounts[from.Address] = from
	return nil
}

// debit removes amount from acc on behalf of signer, consuming the delegated
// allowance when the signer is the delegate rather than the owner.
func debit(acc *Account, amount uint64, signer common.Address) error {
	if acc.Balance < amount {
		return ErrInsufficientFunds.Wrapf("account %s holds %d, needs %d", acc.Address.Hex(), acc.Balance, amount)
	}

	switch {
	case signer == acc.Owner:
	case acc.DelegatedAmount > 0 && signer == acc.Delegate:
		if acc.DelegatedAmount < amount {
			return ErrInsufficientAllowance.Wrapf("account %s delegated %d, needs %d", acc.Address.Hex(), acc.DelegatedAmount, amount)
		}
		acc.DelegatedAmount -= amount
		if acc.DelegatedAmount == 0 {
			acc.Delegate = common.Address{}
		}
	default:
		return ErrOwnerMismatch.Wrapf("debit of %s by %s", acc.Address.Hex(), signer.Hex())
	}

	acc.Balance -= amount
	return nil
}
