package service

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/GoPolymarket/namegate/internal/model"
	"github.com/GoPolymarket/namegate/internal/names"
	"github.com/GoPolymarket/namegate/internal/pkg/apperrors"
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/GoPolymarket/namegate/internal/pkg/metrics"
	"github.com/ethereum/go-ethereum/common"
)

const (
	pathSettlement = "settlement"
	pathReserve    = "reserve"

	// quoteAttempts bounds how often a quote re-resolves when admin commits
	// keep landing between its state read and its oracle read.
	quoteAttempts = 3
)

// pricing holds the external inputs of a registration, resolved before the
// ledger lock is taken so no transaction waits on oracle or registry reads.
type pricing struct {
	registry      common.Address
	feed          ledger.Feed
	reservePrice  fixedpoint.Amount
	basePrice     fixedpoint.Amount
	currencyPrice fixedpoint.Amount
}

// resolve checks, in order: guard (when guarded), name characters, feed
// presence (when currency is set), registry base price, oracle price.
func (r *Registrar) resolve(ctx context.Context, name string, currency *common.Address, guarded bool) (*pricing, error) {
	var (
		paused   bool
		registry common.Address
		reserve  fixedpoint.Amount
		feed     ledger.Feed
		hasFeed  bool
	)
	r.view(func(s *ledger.State) {
		paused = s.Paused
		registry = s.Registry
		reserve = r.reservePrice(s)
		if currency != nil {
			feed, hasFeed = s.Feeds.Get(*currency)
		}
	})

	if guarded && paused {
		return nil, ledger.ErrPaused
	}
	if err := r.names.ValidateName(name); err != nil {
		return nil, err
	}
	if currency != nil && !hasFeed {
		return nil, ledger.ErrUnsupportedCurrency.Withf("%s", currency.Hex())
	}
	if registry == (common.Address{}) {
		return nil, ledger.ErrZeroReference.Withf("registry not set")
	}

	base, err := r.names.BasePrice(ctx, registry, name)
	if err != nil {
		return nil, upstream("registry base price lookup failed", err)
	}
	if base.Sign() <= 0 {
		return nil, ledger.ErrInvalidNamePrice.Withf("%q", name)
	}

	p := &pricing{registry: registry, feed: feed, reservePrice: reserve, basePrice: base}
	if currency != nil {
		price, err := r.prices.LatestPrice(ctx, feed.Oracle)
		if err != nil {
			return nil, upstream("oracle read failed", err)
		}
		p.currencyPrice = price
	}
	return p, nil
}

// current fails when the registry or feed moved between resolve and the transaction.
func (p *pricing) current(s *ledger.State, currency *common.Address) error {
	if s.Registry != p.registry {
		return ErrRegistryChanged
	}
	if currency == nil {
		return nil
	}
	feed, ok := s.Feeds.Get(*currency)
	if !ok {
		return ledger.ErrUnsupportedCurrency.Withf("%s", currency.Hex())
	}
	if feed.Oracle != p.feed.Oracle || feed.Decimals != p.feed.Decimals {
		return ErrFeedChanged
	}
	return nil
}

// unchanged is current plus the reserve-unit price, for reads that quote from
// the resolved snapshot rather than from a transaction.
func (p *pricing) unchanged(s *ledger.State, currency *common.Address) error {
	if err := p.current(s, currency); err != nil {
		return err
	}
	if s.ReservePrice.Cmp(p.reservePrice.Value) != 0 {
		return ErrPriceChanged
	}
	return nil
}

// resolveQuote resolves pricing for a read-only quote and confirms under the
// read lock that no commit landed while the registry and oracle were read.
func (r *Registrar) resolveQuote(ctx context.Context, name string, currency *common.Address) (*pricing, error) {
	var stale error
	for attempt := 0; attempt < quoteAttempts; attempt++ {
		p, err := r.resolve(ctx, name, currency, false)
		if err != nil {
			return nil, err
		}
		r.view(func(s *ledger.State) { stale = p.unchanged(s, currency) })
		if stale == nil {
			return p, nil
		}
	}
	return nil, stale
}

func (r *Registrar) reservePrice(s *ledger.State) fixedpoint.Amount {
	return fixedpoint.New(s.ReservePrice, ledger.PriceDecimals)
}

// QuotePrice returns what registerWithSettlement would charge for name in
// currency against the current state. It never mutates.
func (r *Registrar) QuotePrice(ctx context.Context, name string, currency common.Address) (*model.Quote, error) {
	start := time.Now()
	defer func() {
		metrics.QuoteLatency.WithLabelValues(pathSettlement).Observe(time.Since(start).Seconds())
	}()

	p, err := r.resolveQuote(ctx, name, &currency)
	if err != nil {
		return nil, err
	}
	amount, err := ledger.Quote(p.basePrice, p.reservePrice, p.currencyPrice, p.feed.Decimals)
	if err != nil {
		return nil, err
	}
	return &model.Quote{
		Name:      name,
		Currency:  currency.Hex(),
		BasePrice: p.basePrice,
		Amount:    amount,
	}, nil
}

// QuoteReservePrice returns what registerWithReserve would charge for name.
func (r *Registrar) QuoteReservePrice(ctx context.Context, name string) (*model.Quote, error) {
	start := time.Now()
	defer func() {
		metrics.QuoteLatency.WithLabelValues(pathReserve).Observe(time.Since(start).Seconds())
	}()

	p, err := r.resolveQuote(ctx, name, nil)
	if err != nil {
		return nil, err
	}
	return &model.Quote{
		Name:      name,
		Currency:  r.cfg.ReserveToken.Hex(),
		BasePrice: p.basePrice,
		Amount:    p.basePrice.To(r.cfg.ReserveDecimals),
	}, nil
}

// RegisterWithSettlement sells name to caller for a settlement currency.
func (r *Registrar) RegisterWithSettlement(ctx context.Context, caller common.Address, name string, currency, agent common.Address) (*model.Receipt, error) {
	receipt, err := r.registerWithSettlement(ctx, caller, name, currency, agent)
	r.record(pathSettlement, name, caller, err)
	return receipt, err
}

func (r *Registrar) registerWithSettlement(ctx context.Context, caller common.Address, name string, currency, agent common.Address) (*model.Receipt, error) {
	// 1-4. guard, name, feed, base price, plus the oracle read
	p, err := r.resolve(ctx, name, &currency, true)
	if err != nil {
		return nil, err
	}

	var receipt *model.Receipt
	err = r.mutate(ctx, caller, func(tx *txn) error {
		s := tx.state
		if err := s.Guard(); err != nil {
			return err
		}
		if err := p.current(s, &currency); err != nil {
			return err
		}

		// 5. quote
		amount, err := ledger.Quote(p.basePrice, r.reservePrice(s), p.currencyPrice, p.feed.Decimals)
		if err != nil {
			return err
		}

		// 6. the treasury must cover the registry fee
		fee := p.basePrice.To(r.cfg.ReserveDecimals)
		if err := s.Treasury.Cover(fee.Value); err != nil {
			return err
		}

		// 7. pull payment
		if err := r.tokens.TransferIn(ctx, currency, caller, amount.Value); err != nil {
			return upstream("settlement transfer failed", err)
		}

		// 8. split and credit
		agentShare, operatorShare := s.Commissions.Settle(agent, currency, amount.Value)
		if err := s.Feeds.Credit(currency, operatorShare); err != nil {
			return r.refund(ctx, currency, caller, amount.Value, err)
		}

		// 9. pay the registry and assign
		if err := s.Treasury.Spend(fee.Value); err != nil {
			return r.refund(ctx, currency, caller, amount.Value, err)
		}
		if err := r.names.Assign(ctx, p.registry, name, caller); err != nil {
			return r.refund(ctx, currency, caller, amount.Value, upstream("name assignment failed", err))
		}

		receipt = &model.Receipt{
			Name:          name,
			NameID:        names.ID(name).Hex(),
			Owner:         caller.Hex(),
			Currency:      currency.Hex(),
			Amount:        amount,
			AgentShare:    fixedpoint.New(agentShare, amount.Decimals),
			OperatorShare: fixedpoint.New(operatorShare, amount.Decimals),
			RegistryFee:   fee,
		}
		if agent != (common.Address{}) {
			receipt.Agent = agent.Hex()
		}
		tx.emit(model.KindNameRegistered, registrationAttrs(receipt))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// RegisterWithReserve sells name to caller for reserve-unit tokens at the base price.
func (r *Registrar) RegisterWithReserve(ctx context.Context, caller common.Address, name string, agent common.Address) (*model.Receipt, error) {
	receipt, err := r.registerWithReserve(ctx, caller, name, agent)
	r.record(pathReserve, name, caller, err)
	return receipt, err
}

func (r *Registrar) registerWithReserve(ctx context.Context, caller common.Address, name string, agent common.Address) (*model.Receipt, error) {
	p, err := r.resolve(ctx, name, nil, true)
	if err != nil {
		return nil, err
	}
	token := r.cfg.ReserveToken

	var receipt *model.Receipt
	err = r.mutate(ctx, caller, func(tx *txn) error {
		s := tx.state
		if err := s.Guard(); err != nil {
			return err
		}
		if err := p.current(s, nil); err != nil {
			return err
		}

		amount := p.basePrice.To(r.cfg.ReserveDecimals)
		if amount.Sign() <= 0 {
			return ledger.ErrInvalidNamePrice.Withf("%q", name)
		}
		fee := amount
		if err := s.Treasury.Cover(fee.Value); err != nil {
			return err
		}

		if err := r.tokens.TransferIn(ctx, token, caller, amount.Value); err != nil {
			return upstream("reserve transfer failed", err)
		}

		agentShare, operatorShare := s.Commissions.Settle(agent, token, amount.Value)
		s.CreditReserve(operatorShare)

		if err := s.Treasury.Spend(fee.Value); err != nil {
			return r.refund(ctx, token, caller, amount.Value, err)
		}
		if err := r.names.Assign(ctx, p.registry, name, caller); err != nil {
			return r.refund(ctx, token, caller, amount.Value, upstream("name assignment failed", err))
		}

		receipt = &model.Receipt{
			Name:          name,
			NameID:        names.ID(name).Hex(),
			Owner:         caller.Hex(),
			Currency:      token.Hex(),
			Amount:        amount,
			AgentShare:    fixedpoint.New(agentShare, amount.Decimals),
			OperatorShare: fixedpoint.New(operatorShare, amount.Decimals),
			RegistryFee:   fee,
		}
		if agent != (common.Address{}) {
			receipt.Agent = agent.Hex()
		}
		tx.emit(model.KindNameRegistered, registrationAttrs(receipt))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// refund returns a pulled payment after a later step failed. The transaction is
// discarded by the caller returning cause.
func (r *Registrar) refund(ctx context.Context, token, to common.Address, amount *big.Int, cause error) error {
	if err := r.tokens.TransferOut(ctx, token, to, amount); err != nil {
		r.log.Error("refund failed",
			"token", token.Hex(),
			"to", to.Hex(),
			"amount", amount.String(),
			"cause", cause.Error(),
			"error", err.Error())
		return errors.Join(cause, apperrors.NewUpstream("refund failed", err))
	}
	r.log.Warn("payment refunded", "token", token.Hex(), "to", to.Hex(), "amount", amount.String(), "cause", cause.Error())
	return cause
}

func (r *Registrar) record(path, name string, caller common.Address, err error) {
	if err == nil {
		metrics.RegistrationsTotal.WithLabelValues(path, "ok").Inc()
		return
	}
	metrics.RegistrationsTotal.WithLabelValues(path, "rejected").Inc()
	code := string(apperrors.ErrInternal)
	if appErr := apperrors.Wrap(err); appErr != nil {
		code = appErr.Code
	}
	metrics.Rejects.WithLabelValues(code).Inc()
	r.log.Warn("registration rejected", "path", path, "name", name, "caller", caller.Hex(), "code", code, "error", err.Error())
}

func registrationAttrs(rc *model.Receipt) map[string]string {
	return map[string]string{
		"name":           rc.Name,
		"name_id":        rc.NameID,
		"owner":          rc.Owner,
		"currency":       rc.Currency,
		"agent":          rc.Agent,
		"amount":         amountAttr(rc.Amount.Value),
		"agent_share":    amountAttr(rc.AgentShare.Value),
		"operator_share": amountAttr(rc.OperatorShare.Value),
		"registry_fee":   amountAttr(rc.RegistryFee.Value),
	}
}
