package oracle

import (
	"context"
	"sync"

	"github.com/GoPolymarket/namegate/internal/pkg/apperrors"
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
)

var ErrUnknownOracle = apperrors.Define(apperrors.ErrUpstream, "UNKNOWN_ORACLE", "no price published by oracle")

// Static serves operator-set prices. Used in sandbox mode and tests.
type Static struct {
	mu     sync.RWMutex
	prices map[common.Address]fixedpoint.Amount
}

func NewStatic() *Static {
	return &Static{prices: make(map[common.Address]fixedpoint.Amount)}
}

func (s *Static) Set(oracle common.Address, price fixedpoint.Amount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[oracle] = fixedpoint.New(price.Value, price.Decimals)
}

func (s *Static) LatestPrice(_ context.Context, oracle common.Address) (fixedpoint.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[oracle]
	if !ok {
		return fixedpoint.Amount{}, ErrUnknownOracle.Withf("%s", oracle.Hex())
	}
	return fixedpoint.New(p.Value, p.Decimals), nil
}
