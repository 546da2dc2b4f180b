// Package ledger is the custody ledger the pool settles against: token mints,
// token accounts with a single delegated allowance each, and atomic batches.
package ledger

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"liquidityPool/internal/fixedpoint"
	"liquidityPool/internal/model"
)

// Mint is a fungible token type.
type Mint struct {
	Address   common.Address
	Authority common.Address
	Decimals  uint8
	Supply    uint64
}

// Account holds a balance of one mint for one owner.
type Account struct {
	Address         common.Address
	Mint            common.Address
	Owner           common.Address
	Balance         uint64
	Delegate        common.Address
	DelegatedAmount uint64
}

// Ledger is an in-memory custody ledger safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	mints    map[common.Address]Mint
	accounts map[common.Address]Account
}

func New() *Ledger {
	return &Ledger{
		mints:    make(map[common.Address]Mint),
		accounts: make(map[common.Address]Account),
	}
}

// AssociatedAccount derives the canonical account address of owner for mint.
func AssociatedAccount(owner, mint common.Address) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("account"), owner.Bytes(), mint.Bytes())[12:])
}

// CreateMint registers a new mint with zero supply.
func (l *Ledger) CreateMint(address, authority common.Address, decimals uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.mints[address]; ok {
		return ErrMintExists.Wrapf("mint %s", address.Hex())
	}
	l.mints[address] = Mint{Address: address, Authority: authority, Decimals: decimals}
	return nil
}

// OpenAccount creates an empty account at address.
func (l *Ledger) OpenAccount(address, mint, owner common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.openLocked(address, mint, owner)
}

// OpenAssociatedAccount returns the associated account of owner for mint,
// creating it when missing.
func (l *Ledger) OpenAssociatedAccount(owner, mint common.Address) (common.Address, error) {
	address := AssociatedAccount(owner, mint)

	l.mu.Lock()
	defer l.mu.Unlock()

	if acc, ok := l.accounts[address]; ok {
		if acc.Mint != mint || acc.Owner != owner {
			return common.Address{}, ErrMintMismatch.Wrapf("associated account %s", address.Hex())
		}
		return address, nil
	}
	if err := l.openLocked(address, mint, owner); err != nil {
		return common.Address{}, err
	}
	return address, nil
}

func (l *Ledger) openLocked(address, mint, owner common.Address) error {
	if _, ok := l.mints[mint]; !ok {
		return ErrMintNotFound.Wrapf("mint %s", mint.Hex())
	}
	if _, ok := l.accounts[address]; ok {
		return ErrAccountExists.Wrapf("account %s", address.Hex())
	}
	l.accounts[address] = Account{Address: address, Mint: mint, Owner: owner}
	return nil
}

// Mint returns the mint at address.
func (l *Ledger) Mint(address common.Address) (Mint, bool) {
	l.mu.RLock()
	m, ok := l.mints[address]
	l.mu.RUnlock()
	return m, ok
}

// Account returns the account at address.
func (l *Ledger) Account(address common.Address) (Account, bool) {
	l.mu.RLock()
	acc, ok := l.accounts[address]
	l.mu.RUnlock()
	return acc, ok
}

// Balance returns the balance of an account, zero when it does not exist.
func (l *Ledger) Balance(address common.Address) uint64 {
	acc, _ := l.Account(address)
	return acc.Balance
}

// Approve sets the single delegate of an account. An amount of zero revokes.
func (l *Ledger) Approve(account, delegate common.Address, amount uint64, signer common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[account]
	if !ok {
		return ErrAccountNotFound.Wrapf("account %s", account.Hex())
	}
	if acc.Owner != signer {
		return ErrOwnerMismatch.Wrapf("approve on %s by %s", account.Hex(), signer.Hex())
	}
	if amount == 0 {
		acc.Delegate = common.Address{}
	} else {
		acc.Delegate = delegate
	}
	acc.DelegatedAmount = amount
	l.accounts[account] = acc
	return nil
}

// MintTo issues tokens into an account, signed by the mint authority.
func (l *Ledger) MintTo(mint, to common.Address, amount uint64, signer common.Address) error {
	return l.Execute([]Op{MintTo(mint, to, amount, signer)}, nil)
}

// Transfer moves tokens between two accounts of the same mint.
func (l *Ledger) Transfer(mint, from, to common.Address, amount uint64, signer common.Address) error {
	return l.Execute([]Op{Transfer(mint, from, to, amount, signer)}, nil)
}

// Execute applies ops atomically. Every op runs against a private overlay; the
// first failing op discards it. onCommit, when set, runs after all ops
// succeeded and before the overlay is published, so its failure discards the
// batch as well. onCommit runs with the ledger locked and must not call back
// into the ledger.
func (l *Ledger) Execute(ops []Op, onCommit func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := &batch{
		ledger:   l,
		mints:    make(map[common.Address]Mint),
		accounts: make(map[common.Address]Account),
	}
	for _, op := range ops {
		if err := b.apply(op); err != nil {
			return err
		}
	}
	if onCommit != nil {
		if err := onCommit(); err != nil {
			return err
		}
	}

	for addr, m := range b.mints {
		l.mints[addr] = m
	}
	for addr, acc := range b.accounts {
		l.accounts[addr] = acc
	}
	return nil
}

// Export returns the ledger contents ordered by address.
func (l *Ledger) Export() ([]model.MintRecord, []model.AccountRecord) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	mints := make([]model.MintRecord, 0, len(l.mints))
	for _, m := range l.mints {
		mints = append(mints, model.MintRecord{
			Address:   m.Address,
			Authority: m.Authority,
			Decimals:  m.Decimals,
			Supply:    m.Supply,
		})
	}
	sort.Slice(mints, func(i, j int) bool { return mints[i].Address.Hex() < mints[j].Address.Hex() })

	accounts := make([]model.AccountRecord, 0, len(l.accounts))
	for _, acc := range l.accounts {
		accounts = append(accounts, model.AccountRecord{
			Address:         acc.Address,
			Mint:            acc.Mint,
			Owner:           acc.Owner,
			Balance:         acc.Balance,
			Delegate:        acc.Delegate,
			DelegatedAmount: acc.DelegatedAmount,
		})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Address.Hex() < accounts[j].Address.Hex() })

	return mints, accounts
}

// Restore rebuilds a ledger from exported records.
func Restore(mints []model.MintRecord, accounts []model.AccountRecord) (*Ledger, error) {
	l := New()
	for _, m := range mints {
		if _, ok := l.mints[m.Address]; ok {
			return nil, ErrMintExists.Wrapf("mint %s", m.Address.Hex())
		}
		l.mints[m.Address] = Mint{
			Address:   m.Address,
			Authority: m.Authority,
			Decimals:  m.Decimals,
			Supply:    m.Supply,
		}
	}

	held := make(map[common.Address]uint64, len(mints))
	for _, rec := range accounts {
		if _, ok := l.mints[rec.Mint]; !ok {
			return nil, ErrMintNotFound.Wrapf("account %s references mint %s", rec.Address.Hex(), rec.Mint.Hex())
		}
		if _, ok := l.accounts[rec.Address]; ok {
			return nil, ErrAccountExists.Wrapf("account %s", rec.Address.Hex())
		}
		total, err := fixedpoint.CheckedAdd(held[rec.Mint], rec.Balance)
		if err != nil {
			return nil, ErrOverflow.Wrapf("mint %s holdings", rec.Mint.Hex())
		}
		held[rec.Mint] = total
		l.accounts[rec.Address] = Account{
			Address:         rec.Address,
			Mint:            rec.Mint,
			Owner:           rec.Owner,
			Balance:         rec.Balance,
			Delegate:        rec.Delegate,
			DelegatedAmount: rec.DelegatedAmount,
		}
	}

	for addr, m := range l.mints {
		if held[addr] != m.Supply {
			return nil, ErrBalanceMismatch.Wrapf("mint %s supply %d, accounts hold %d", addr.Hex(), m.Supply, held[addr])
		}
	}
	return l, nil
}
