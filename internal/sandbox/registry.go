package sandbox

import (
	"context"
	"sync"

	"github.com/GoPolymarket/namegate/internal/names"
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
)

// TierDecimals is the precision of registry tier prices.
const TierDecimals = 6

// Registry is an in-memory name-ownership registry. Names are priced by length
// and the fee is drawn in fee tokens from the payer's allowance on assignment.
type Registry struct {
	mu          sync.Mutex
	address     common.Address
	bank        *Bank
	payer       common.Address
	feeToken    common.Address
	feeDecimals uint8
	tiers       map[int]fixedpoint.Amount
	owners      map[common.Hash]common.Address
}

func NewRegistry(address common.Address, bank *Bank, feeToken common.Address, feeDecimals uint8) *Registry {
	return &Registry{
		address:     address,
		bank:        bank,
		payer:       bank.Holder(),
		feeToken:    feeToken,
		feeDecimals: feeDecimals,
		tiers:       make(map[int]fixedpoint.Amount),
		owners:      make(map[common.Hash]common.Address),
	}
}

func (r *Registry) Address() common.Address { return r.address }

// SetPrice prices names of exactly length characters, in whole-token units at TierDecimals.
func (r *Registry) SetPrice(length int, price fixedpoint.Amount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers[length] = price.To(TierDecimals)
}

func (r *Registry) ValidateName(name string) error {
	return names.Validate(name)
}

// BasePrice is zero for lengths without a tier.
func (r *Registry) BasePrice(_ context.Context, registry common.Address, name string) (fixedpoint.Amount, error) {
	if registry != r.address {
		return fixedpoint.Amount{}, ErrUnknownRegistry.Withf("%s", registry.Hex())
	}
	if err := names.Validate(name); err != nil {
		return fixedpoint.Amount{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.price(name), nil
}

func (r *Registry) price(name string) fixedpoint.Amount {
	p, ok := r.tiers[len(name)]
	if !ok {
		return fixedpoint.Zero(TierDecimals)
	}
	return fixedpoint.New(p.Value, p.Decimals)
}

func (r *Registry) Assign(_ context.Context, registry common.Address, name string, owner common.Address) error {
	if registry != r.address {
		return ErrUnknownRegistry.Withf("%s", registry.Hex())
	}
	if err := names.Validate(name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id := names.ID(name)
	if _, taken := r.owners[id]; taken {
		return ErrNameUnavailable.Withf("%q", name)
	}
	fee := r.price(name).To(r.feeDecimals)
	if fee.Sign() > 0 {
		if err := r.bank.TransferFrom(r.feeToken, r.address, r.payer, r.address, fee.Value); err != nil {
			return err
		}
	}
	r.owners[id] = owner
	return nil
}

// OwnerOf returns the owner of name, if assigned.
func (r *Registry) OwnerOf(name string) (common.Address, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[names.ID(name)]
	return owner, ok
}
