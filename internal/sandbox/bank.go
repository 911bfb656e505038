// Package sandbox provides in-memory token and name-registry collaborators for
// local runs and tests.
package sandbox

import (
	"context"
	"math/big"
	"sync"

	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/GoPolymarket/namegate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance   = apperrors.Define(apperrors.ErrAvailability, "INSUFFICIENT_BALANCE", "insufficient token balance")
	ErrInsufficientAllowance = apperrors.Define(apperrors.ErrAvailability, "INSUFFICIENT_ALLOWANCE", "insufficient token allowance")
	ErrNameUnavailable       = apperrors.Define(apperrors.ErrState, "NAME_UNAVAILABLE", "name already owned")
	ErrUnknownRegistry       = apperrors.Define(apperrors.ErrReference, "UNKNOWN_REGISTRY", "unknown name registry")
)

type accountKey struct {
	Token   common.Address
	Account common.Address
}

type allowanceKey struct {
	Token   common.Address
	Owner   common.Address
	Spender common.Address
}

// Bank is a multi-token ledger of balances and allowances. Holder is the
// registrar's own account: TransferIn pulls into it against the payer's
// allowance to the holder, TransferOut moves out of it.
type Bank struct {
	mu         sync.Mutex
	holder     common.Address
	balances   map[accountKey]*big.Int
	allowances map[allowanceKey]*big.Int
}

func NewBank(holder common.Address) *Bank {
	return &Bank{
		holder:     holder,
		balances:   make(map[accountKey]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

func (b *Bank) Holder() common.Address { return b.holder }

// Mint credits amount of token to account.
func (b *Bank) Mint(token, to common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.add(token, to, amount)
}

func (b *Bank) BalanceOf(token, account common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.balance(token, account))
}

func (b *Bank) Allowance(token, owner, spender common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.allowances[allowanceKey{token, owner, spender}]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Approve sets owner's allowance for spender to exactly amount.
func (b *Bank) Approve(token, owner, spender common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allowances[allowanceKey{token, owner, spender}] = new(big.Int).Set(amount)
}

// TransferIn pulls amount from the payer into the holder. The payer must have
// approved the holder for at least amount.
func (b *Bank) TransferIn(_ context.Context, token, from common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transferFrom(token, b.holder, from, b.holder, amount)
}

func (b *Bank) TransferOut(_ context.Context, token, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.move(token, b.holder, to, amount)
}

// SetApproval lets spender draw up to amount of the holder's token.
func (b *Bank) SetApproval(_ context.Context, token, spender common.Address, amount *big.Int) error {
	if spender == (common.Address{}) {
		return ledger.ErrZeroReference
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allowances[allowanceKey{token, b.holder, spender}] = new(big.Int).Set(amount)
	return nil
}

// TransferFrom moves amount from owner to to on behalf of spender, consuming allowance.
func (b *Bank) TransferFrom(token, spender, owner, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transferFrom(token, spender, owner, to, amount)
}

func (b *Bank) transferFrom(token, spender, owner, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ledger.ErrInvalidAmount
	}
	key := allowanceKey{token, owner, spender}
	allowed, ok := b.allowances[key]
	if !ok || allowed.Cmp(amount) < 0 {
		return ErrInsufficientAllowance.Withf("%s", spender.Hex())
	}
	if err := b.move(token, owner, to, amount); err != nil {
		return err
	}
	b.allowances[key] = new(big.Int).Sub(allowed, amount)
	return nil
}

func (b *Bank) balance(token, account common.Address) *big.Int {
	v, ok := b.balances[accountKey{token, account}]
	if !ok {
		return new(big.Int)
	}
	return v
}

func (b *Bank) add(token, account common.Address, amount *big.Int) {
	b.balances[accountKey{token, account}] = new(big.Int).Add(b.balance(token, account), amount)
}

func (b *Bank) move(token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ledger.ErrInvalidAmount
	}
	have := b.balance(token, from)
	if have.Cmp(amount) < 0 {
		return ErrInsufficientBalance.Withf("%s holds %s of %s", from.Hex(), have.String(), token.Hex())
	}
	b.balances[accountKey{token, from}] = new(big.Int).Sub(have, amount)
	b.add(token, to, amount)
	return nil
}
