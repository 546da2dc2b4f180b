package ledger

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	alice     = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	authority = common.HexToAddress("0x00000000000000000000000000000000000a0a0a")
	tokenA    = common.HexToAddress("0x000000000000000000000000000000000000aaaa")
	tokenB    = common.HexToAddress("0x000000000000000000000000000000000000bbbb")
)

func setup(t *testing.T) (*Ledger, common.Address, common.Address) {
	t.Helper()
	l := New()
	require.NoError(t, l.CreateMint(tokenA, authority, 6))
	require.NoError(t, l.CreateMint(tokenB, authority, 6))
	aliceA, err := l.OpenAssociatedAccount(alice, tokenA)
	require.NoError(t, err)
	bobA, err := l.OpenAssociatedAccount(bob, tokenA)
	require.NoError(t, err)
	require.NoError(t, l.MintTo(tokenA, aliceA, 1_000, authority))
	return l, aliceA, bobA
}

func TestCreateMintRejectsDuplicate(t *testing.T) {
	l := New()
	require.NoError(t, l.CreateMint(tokenA, authority, 9))
	err := l.CreateMint(tokenA, authority, 9)
	require.ErrorIs(t, err, ErrMintExists)
}

func TestOpenAssociatedAccountIsIdempotent(t *testing.T) {
	l := New()
	require.NoError(t, l.CreateMint(tokenA, authority, 6))

	first, err := l.OpenAssociatedAccount(alice, tokenA)
	require.NoError(t, err)
	second, err := l.OpenAssociatedAccount(alice, tokenA)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, AssociatedAccount(alice, tokenA), first)
	require.NotEqual(t, AssociatedAccount(bob, tokenA), first)

	_, err = l.OpenAssociatedAccount(alice, tokenB)
	require.ErrorIs(t, err, ErrMintNotFound)
}

func TestMintToRequiresAuthority(t *testing.T) {
	l, aliceA, _ := setup(t)

	err := l.MintTo(tokenA, aliceA, 1, alice)
	require.ErrorIs(t, err, ErrMintAuthority)

	m, ok := l.Mint(tokenA)
	require.True(t, ok)
	require.Equal(t, uint64(1_000), m.Supply)
	require.Equal(t, uint64(1_000), l.Balance(aliceA))
}

func TestTransfer(t *testing.T) {
	l, aliceA, bobA := setup(t)

	require.NoError(t, l.Transfer(tokenA, aliceA, bobA, 400, alice))
	require.Equal(t, uint64(600), l.Balance(aliceA))
	require.Equal(t, uint64(400), l.Balance(bobA))

	err := l.Transfer(tokenA, aliceA, bobA, 601, alice)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	err = l.Transfer(tokenA, aliceA, bobA, 1, bob)
	require.ErrorIs(t, err, ErrOwnerMismatch)

	bobB, err := l.OpenAssociatedAccount(bob, tokenB)
	require.NoError(t, err)
	err = l.Transfer(tokenA, aliceA, bobB, 1, alice)
	require.ErrorIs(t, err, ErrMintMismatch)
}

func TestTransferToSelfKeepsBalance(t *testing.T) {
	l, aliceA, _ := setup(t)
	require.NoError(t, l.Transfer(tokenA, aliceA, aliceA, 250, alice))
	require.Equal(t, uint64(1_000), l.Balance(aliceA))
}

func TestDelegatedDebitConsumesAllowance(t *testing.T) {
	l, aliceA, bobA := setup(t)

	require.NoError(t, l.Approve(aliceA, bob, 300, alice))
	require.NoError(t, l.Transfer(tokenA, aliceA, bobA, 200, bob))

	acc, _ := l.Account(aliceA)
	require.Equal(t, uint64(100), acc.DelegatedAmount)
	require.Equal(t, bob, acc.Delegate)

	err := l.Transfer(tokenA, aliceA, bobA, 101, bob)
	require.ErrorIs(t, err, ErrInsufficientAllowance)

	require.NoError(t, l.Transfer(tokenA, aliceA, bobA, 100, bob))
	acc, _ = l.Account(aliceA)
	require.Zero(t, acc.DelegatedAmount)
	require.Equal(t, common.Address{}, acc.Delegate)

	err = l.Transfer(tokenA, aliceA, bobA, 1, bob)
	require.ErrorIs(t, err, ErrOwnerMismatch)
}

func TestApproveByNonOwner(t *testing.T) {
	l, aliceA, _ := setup(t)
	err := l.Approve(aliceA, bob, 10, bob)
	require.ErrorIs(t, err, ErrOwnerMismatch)

	require.NoError(t, l.Approve(aliceA, bob, 10, alice))
	require.NoError(t, l.Approve(aliceA, bob, 0, alice))
	acc, _ := l.Account(aliceA)
	require.Equal(t, common.Address{}, acc.Delegate)
}

func TestBurn(t *testing.T) {
	l, aliceA, _ := setup(t)
	require.NoError(t, l.Execute([]Op{Burn(tokenA, aliceA, 250, alice)}, nil))

	m, _ := l.Mint(tokenA)
	require.Equal(t, uint64(750), m.Supply)
	require.Equal(t, uint64(750), l.Balance(aliceA))
}

func TestExecuteIsAtomic(t *testing.T) {
	l, aliceA, bobA := setup(t)

	err := l.Execute([]Op{
		Transfer(tokenA, aliceA, bobA, 500, alice),
		MintTo(tokenA, bobA, 10, authority),
		Transfer(tokenA, aliceA, bobA, 501, alice),
	}, nil)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	require.Equal(t, uint64(1_000), l.Balance(aliceA))
	require.Zero(t, l.Balance(bobA))
	m, _ := l.Mint(tokenA)
	require.Equal(t, uint64(1_000), m.Supply)
}

func TestExecuteExpectBalance(t *testing.T) {
	l, aliceA, bobA := setup(t)

	err := l.Execute([]Op{
		Transfer(tokenA, aliceA, bobA, 10, alice),
		ExpectBalance(bobA, 11),
	}, nil)
	require.ErrorIs(t, err, ErrBalanceMismatch)
	require.Zero(t, l.Balance(bobA))

	require.NoError(t, l.Execute([]Op{
		Transfer(tokenA, aliceA, bobA, 10, alice),
		ExpectBalance(bobA, 10),
		ExpectBalance(aliceA, 990),
	}, nil))
}

func TestExecuteCommitHook(t *testing.T) {
	l, aliceA, bobA := setup(t)

	hookErr := errors.New("store down")
	err := l.Execute([]Op{Transfer(tokenA, aliceA, bobA, 10, alice)}, func() error { return hookErr })
	require.ErrorIs(t, err, hookErr)
	require.Zero(t, l.Balance(bobA))

	called := false
	require.NoError(t, l.Execute([]Op{Transfer(tokenA, aliceA, bobA, 10, alice)}, func() error {
		called = true
		return nil
	}))
	require.True(t, called)
	require.Equal(t, uint64(10), l.Balance(bobA))
}

func TestExportRestore(t *testing.T) {
	l, aliceA, bobA := setup(t)
	require.NoError(t, l.Transfer(tokenA, aliceA, bobA, 123, alice))
	require.NoError(t, l.Approve(bobA, alice, 50, bob))

	mints, accounts := l.Export()
	restored, err := Restore(mints, accounts)
	require.NoError(t, err)

	gotMints, gotAccounts := restored.Export()
	require.Equal(t, mints, gotMints)
	require.Equal(t, accounts, gotAccounts)

	accounts[0].Balance++
	_, err = Restore(mints, accounts)
	require.ErrorIs(t, err, ErrBalanceMismatch)
}

func TestExecuteCreatesMintAndAccounts(t *testing.T) {
	l := New()
	lp := common.HexToAddress("0x000000000000000000000000000000000000cccc")
	custody := common.HexToAddress("0x000000000000000000000000000000000000dddd")

	err := l.Execute([]Op{
		CreateMint(lp, bob, 6),
		OpenAccount(custody, lp, bob),
		MintTo(lp, custody, 42, bob),
		ExpectBalance(custody, 42),
		ExpectSupply(lp, 42),
	}, nil)
	require.NoError(t, err)

	err = l.Execute([]Op{ExpectSupply(lp, 41)}, nil)
	require.ErrorIs(t, err, ErrBalanceMismatch)

	m, ok := l.Mint(lp)
	require.True(t, ok)
	require.Equal(t, uint64(42), m.Supply)
	require.Equal(t, bob, m.Authority)

	err = l.Execute([]Op{OpenAccount(custody, lp, alice)}, nil)
	require.ErrorIs(t, err, ErrAccountExists)

	other := common.HexToAddress("0x000000000000000000000000000000000000eeee")
	err = l.Execute([]Op{
		CreateMint(other, bob, 6),
		CreateMint(other, bob, 6),
	}, nil)
	require.ErrorIs(t, err, ErrMintExists)
	_, ok = l.Mint(other)
	require.False(t, ok)
}
