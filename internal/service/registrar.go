package service

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/GoPolymarket/namegate/internal/model"
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/GoPolymarket/namegate/internal/pkg/logger"
	"github.com/GoPolymarket/namegate/internal/pkg/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
)

type RegistrarConfig struct {
	Operator        common.Address
	ReserveToken    common.Address
	ReserveDecimals uint8
	// Initial reserve-unit USD price at ledger.PriceDecimals; nil leaves it unset.
	ReservePrice *big.Int
	Registry     common.Address
}

// Registrar owns the ledger state. Every mutation runs under one exclusive lock
// against a clone of the state, which replaces the live state only when the
// whole operation succeeded.
type Registrar struct {
	mu    deadlock.RWMutex
	state *ledger.State

	cfg    RegistrarConfig
	prices PriceSource
	tokens TokenGateway
	names  NameRegistry
	repo   StateRepo
	events Publisher
	log    *slog.Logger
}

func NewRegistrar(cfg RegistrarConfig, prices PriceSource, tokens TokenGateway, names NameRegistry, repo StateRepo, events Publisher) (*Registrar, error) {
	if cfg.Operator == (common.Address{}) {
		return nil, ledger.ErrZeroReference.Withf("operator")
	}
	if cfg.ReserveToken == (common.Address{}) {
		return nil, ledger.ErrZeroReference.Withf("reserve token")
	}
	if cfg.ReserveDecimals == 0 {
		cfg.ReserveDecimals = 18
	}

	state := ledger.NewState()
	if cfg.ReservePrice != nil {
		if err := state.SetReservePrice(cfg.ReservePrice); err != nil {
			return nil, err
		}
	}
	if cfg.Registry != (common.Address{}) {
		state.Registry = cfg.Registry
	}

	return &Registrar{
		state:  state,
		cfg:    cfg,
		prices: prices,
		tokens: tokens,
		names:  names,
		repo:   repo,
		events: events,
		log:    logger.Component("registrar"),
	}, nil
}

// Load replaces the in-memory state with the last persisted snapshot, if any.
func (r *Registrar) Load(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}
	snap, err := r.repo.Load(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = ledger.Restore(snap)
	r.observe()
	r.log.Info("ledger restored", "feeds", len(snap.Feeds), "agents", len(snap.Agents), "paused", snap.Paused)
	return nil
}

func (r *Registrar) Operator() common.Address { return r.cfg.Operator }

func (r *Registrar) ReserveToken() common.Address { return r.cfg.ReserveToken }

func (r *Registrar) ReserveDecimals() uint8 { return r.cfg.ReserveDecimals }

// txn is the working set of one mutation.
type txn struct {
	state  *ledger.State
	caller common.Address
	notes  []*model.Notification
}

func (t *txn) emit(kind model.NotificationKind, attrs map[string]string) {
	t.notes = append(t.notes, &model.Notification{
		ID:         uuid.NewString(),
		Kind:       kind,
		Actor:      t.caller.Hex(),
		Attributes: attrs,
		CreatedAt:  time.Now().UTC(),
	})
}

// mutate runs fn as one transaction. On error the clone is dropped and the live
// state is untouched.
func (r *Registrar) mutate(ctx context.Context, caller common.Address, fn func(tx *txn) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &txn{state: r.state.Clone(), caller: caller}
	if err := fn(tx); err != nil {
		return err
	}
	r.state = tx.state

	if r.repo != nil {
		if err := r.repo.Save(ctx, r.state.Snapshot()); err != nil {
			logger.LogError(ctx, err, "failed to persist ledger snapshot")
		}
	}
	for _, n := range tx.notes {
		r.log.Info("ledger updated", "kind", n.Kind, "actor", n.Actor, "id", n.ID)
		if r.events != nil {
			r.events.Publish(n)
		}
	}
	r.observe()
	return nil
}

// operatorTx is mutate for operator-only operations.
func (r *Registrar) operatorTx(ctx context.Context, caller common.Address, fn func(tx *txn) error) error {
	if caller != r.cfg.Operator {
		metrics.Rejects.WithLabelValues(ledger.ErrNotOperator.Code).Inc()
		return ledger.ErrNotOperator.Withf("%s", caller.Hex())
	}
	return r.mutate(ctx, caller, fn)
}

func (r *Registrar) view(fn func(s *ledger.State)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.state)
}

// observe refreshes the balance gauges. Caller holds the lock.
func (r *Registrar) observe() {
	deposited := fixedpoint.New(r.state.Treasury.Deposited, r.cfg.ReserveDecimals)
	metrics.ReserveDeposited.Set(deposited.Decimal().InexactFloat64())
	for _, f := range r.state.Feeds.List() {
		collected := fixedpoint.New(f.Collected, f.Decimals)
		metrics.CollectedBalance.WithLabelValues(f.Currency.Hex()).Set(collected.Decimal().InexactFloat64())
	}
}

// Snapshot returns a consistent copy of the whole ledger.
func (r *Registrar) Snapshot() *ledger.Snapshot {
	var snap *ledger.Snapshot
	r.view(func(s *ledger.State) { snap = s.Snapshot() })
	return snap
}

func (r *Registrar) Feed(currency common.Address) (ledger.Feed, error) {
	var (
		feed ledger.Feed
		ok   bool
	)
	r.view(func(s *ledger.State) { feed, ok = s.Feeds.Get(currency) })
	if !ok {
		return ledger.Feed{}, ledger.ErrNotAFeed.Withf("%s", currency.Hex())
	}
	return feed, nil
}

// AgentRate returns the agent's commission rate; 0 means not an agent.
func (r *Registrar) AgentRate(agent common.Address) uint64 {
	var rate uint64
	r.view(func(s *ledger.State) { rate = s.Commissions.Rate(agent) })
	return rate
}

func (r *Registrar) EarnedCommission(agent, currency common.Address) *big.Int {
	var earned *big.Int
	r.view(func(s *ledger.State) { earned = s.Commissions.Earned(agent, currency) })
	return earned
}

// ReserveBalances returns deposited, approved and reserve-denominated collected amounts.
func (r *Registrar) ReserveBalances() (deposited, approved, collected *big.Int) {
	r.view(func(s *ledger.State) {
		deposited = new(big.Int).Set(s.Treasury.Deposited)
		approved = new(big.Int).Set(s.Treasury.Approved)
		collected = new(big.Int).Set(s.CollectedReserve)
	})
	return deposited, approved, collected
}

func (r *Registrar) Paused() bool {
	var paused bool
	r.view(func(s *ledger.State) { paused = s.Paused })
	return paused
}

func amountAttr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
