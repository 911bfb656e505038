package service

import (
	"context"
	"math/big"

	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/GoPolymarket/namegate/internal/model"
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
)

// PriceSource reads the current USD price published by an oracle.
type PriceSource interface {
	LatestPrice(ctx context.Context, oracle common.Address) (fixedpoint.Amount, error)
}

// TokenGateway moves fungible tokens between callers and the registrar's holding account.
type TokenGateway interface {
	TransferIn(ctx context.Context, token, from common.Address, amount *big.Int) error
	TransferOut(ctx context.Context, token, to common.Address, amount *big.Int) error
	SetApproval(ctx context.Context, token, spender common.Address, amount *big.Int) error
}

// NameRegistry is the external name-ownership registry.
type NameRegistry interface {
	// ValidateName applies the registry's own character rule.
	ValidateName(name string) error
	BasePrice(ctx context.Context, registry common.Address, name string) (fixedpoint.Amount, error)
	// Assign transfers ownership of name to owner. The registry collects its fee
	// in reserve-unit tokens against the approval granted to it.
	Assign(ctx context.Context, registry common.Address, name string, owner common.Address) error
}

// StateRepo persists committed ledger snapshots.
type StateRepo interface {
	Load(ctx context.Context) (*ledger.Snapshot, error)
	Save(ctx context.Context, snap *ledger.Snapshot) error
}

// Publisher receives one notification per committed change.
type Publisher interface {
	Publish(n *model.Notification)
}
