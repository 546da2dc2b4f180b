package amm

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
)

// Verifier checks that sig over digest was produced by signer.
type Verifier interface {
	Verify(digest common.Hash, sig []byte, signer common.Address) error
}

// SignatureVerifier recovers secp256k1 signatures in [R || S || V] form.
type SignatureVerifier struct{}

func (SignatureVerifier) Verify(digest common.Hash, sig []byte, signer common.Address) error {
	if len(sig) != crypto.SignatureLength {
		return ErrUnauthorized.Wrapf("signature length %d", len(sig))
	}
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return ErrUnauthorized.Wrapf("recover signer: %v", err)
	}
	if got := crypto.PubkeyToAddress(*pub); got != signer {
		return ErrUnauthorized.Wrapf("signed by %s, expected %s", got.Hex(), signer.Hex())
	}
	return nil
}

// NonceTracker enforces strictly increasing nonces per caller. A nonce is
// reserved while its request runs and becomes the caller's latest nonce only
// when the request commits.
type NonceTracker struct {
	mu      sync.Mutex
	last    map[common.Address]uint64
	pending map[common.Address]map[uint64]struct{}
}

func NewNonceTracker() *NonceTracker {
	return &NonceTracker{
		last:    make(map[common.Address]uint64),
		pending: make(map[common.Address]map[uint64]struct{}),
	}
}

// Reserve claims nonce for caller.
func (n *NonceTracker) Reserve(caller common.Address, nonce uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if last, ok := n.last[caller]; ok && nonce <= last {
		return ErrUnauthorized.Wrapf("nonce %d not above %d for %s", nonce, last, caller.Hex())
	}
	inflight := n.pending[caller]
	if _, ok := inflight[nonce]; ok {
		return ErrUnauthorized.Wrapf("nonce %d in use for %s", nonce, caller.Hex())
	}
	if inflight == nil {
		inflight = make(map[uint64]struct{})
		n.pending[caller] = inflight
	}
	inflight[nonce] = struct{}{}
	return nil
}

// Commit records a reserved nonce as used.
func (n *NonceTracker) Commit(caller common.Address, nonce uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.drop(caller, nonce)
	if last, ok := n.last[caller]; !ok || nonce > last {
		n.last[caller] = nonce
	}
}

// Release gives back a reserved nonce after a failed request.
func (n *NonceTracker) Release(caller common.Address, nonce uint64) {
	n.mu.Lock()
	n.drop(caller, nonce)
	n.mu.Unlock()
}

func (n *NonceTracker) drop(caller common.Address, nonce uint64) {
	inflight := n.pending[caller]
	delete(inflight, nonce)
	if len(inflight) == 0 {
		delete(n.pending, caller)
	}
}

// Next returns the smallest nonce caller may use.
func (n *NonceTracker) Next(caller common.Address) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	last, ok := n.last[caller]
	if !ok {
		return 0
	}
	return last + 1
}

// Export returns the latest committed nonce per caller keyed by hex address.
func (n *NonceTracker) Export() map[string]uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make(map[string]uint64, len(n.last))
	for addr, nonce := range n.last {
		out[addr.Hex()] = nonce
	}
	return out
}

// Import replaces the committed nonces.
func (n *NonceTracker) Import(nonces map[string]uint64) error {
	last := make(map[common.Address]uint64, len(nonces))
	for k, nonce := range nonces {
		if !common.IsHexAddress(k) {
			return ErrAccountMismatch.Wrapf("nonce owner %q", k)
		}
		last[common.HexToAddress(k)] = nonce
	}

	n.mu.Lock()
	n.last = last
	n.mu.Unlock()
	return nil
}

// authorize verifies the request signature and reserves its nonce. On success
// the nonce must be committed or released.
func (e *Engine) authorize(req Request) error {
	digest, err := req.Digest()
	if err != nil {
		return ErrUnauthorized.Wrap(err.Error())
	}
	if err := e.verifier.Verify(digest, req.RequestSignature(), req.Caller()); err != nil {
		return err
	}
	return e.nonces.Reserve(req.Caller(), req.RequestNonce())
}

// checkBinding requires the request accounts to be the ones stored in the pool
// and the pool to sit at the address derived from its pair.
func checkBinding(p model.PoolState, got model.PoolAccounts) error {
	if PoolAddress(p.AssetX, p.AssetY) != p.Address {
		return ErrAccountMismatch.Wrapf("pool %s is not derived from its assets", p.Address.Hex())
	}
	want := p.Accounts()
	if got != want {
		return ErrAccountMismatch.Wrapf("accounts %+v do not match pool %s", got, p.Address.Hex())
	}
	return nil
}

// userAccount checks an account the request moves funds through. A debited
// account must be owned by the caller.
func (e *Engine) userAccount(address, mint, caller common.Address, debit bool) (ledger.Account, error) {
	acc, ok := e.ledger.Account(address)
	if !ok {
		return ledger.Account{}, ErrAccountMismatch.Wrapf("account %s not found", address.Hex())
	}
	if acc.Mint != mint {
		return ledger.Account{}, ErrAccountMismatch.Wrapf("account %s holds %s, expected %s", address.Hex(), acc.Mint.Hex(), mint.Hex())
	}
	if debit && acc.Owner != caller {
		return ledger.Account{}, ErrUnauthorized.Wrapf("account %s is not owned by %s", address.Hex(), caller.Hex())
	}
	return acc, nil
}

// debitSigner is the ledger signer of a debit from a caller-owned account.
// A delegated debit is signed by the pool and consumes the caller's approval.
func debitSigner(p model.PoolState, caller common.Address, delegated bool) common.Address {
	if delegated {
		return p.Address
	}
	return caller
}

// checkAllowance rejects a delegated debit the approval cannot cover.
func checkAllowance(acc ledger.Account, pool common.Address, amount uint64) error {
	if acc.Delegate != pool || acc.DelegatedAmount < amount {
		return ErrUnauthorized.Wrapf("account %s approved %d to %s, needs %d for %s",
			acc.Address.Hex(), acc.DelegatedAmount, acc.Delegate.Hex(), amount, pool.Hex())
	}
	return nil
}
