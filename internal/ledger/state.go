package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// State is the whole ledger: feeds, agents, commissions, treasury, reserve-unit
// price, the reserve-denominated collected counter, registry reference and guard.
// It has no internal locking; its owner serializes access.
type State struct {
	Feeds       *FeedRegistry
	Commissions *CommissionLedger
	Treasury    *TreasuryReserve

	// ReservePrice is the USD price of one reserve-unit token at PriceDecimals.
	ReservePrice *big.Int
	// CollectedReserve is the operator share of reserve-unit settlements.
	CollectedReserve *big.Int
	Registry         common.Address
	Paused           bool
}

func NewState() *State {
	return &State{
		Feeds:            NewFeedRegistry(),
		Commissions:      NewCommissionLedger(),
		Treasury:         NewTreasuryReserve(),
		ReservePrice:     new(big.Int),
		CollectedReserve: new(big.Int),
	}
}

// Clone returns a deep copy used as the working set of one transaction.
func (s *State) Clone() *State {
	return &State{
		Feeds:            s.Feeds.Clone(),
		Commissions:      s.Commissions.Clone(),
		Treasury:         s.Treasury.Clone(),
		ReservePrice:     new(big.Int).Set(s.ReservePrice),
		CollectedReserve: new(big.Int).Set(s.CollectedReserve),
		Registry:         s.Registry,
		Paused:           s.Paused,
	}
}

// Guard fails when paid operations are blocked.
func (s *State) Guard() error {
	if s.Paused {
		return ErrPaused
	}
	return nil
}

func (s *State) Pause() error {
	if s.Paused {
		return ErrPaused
	}
	s.Paused = true
	return nil
}

func (s *State) Unpause() error {
	if !s.Paused {
		return ErrNotPaused
	}
	s.Paused = false
	return nil
}

func (s *State) SetReservePrice(price *big.Int) error {
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	s.ReservePrice = new(big.Int).Set(price)
	return nil
}

func (s *State) SetRegistry(registry common.Address) error {
	if registry == (common.Address{}) {
		return ErrZeroReference
	}
	s.Registry = registry
	return nil
}

func (s *State) CreditReserve(amount *big.Int) {
	s.CollectedReserve = new(big.Int).Add(s.CollectedReserve, amount)
}

// ForwardReserve zeroes the reserve-denominated collected counter and returns it.
func (s *State) ForwardReserve() (*big.Int, error) {
	if s.CollectedReserve.Sign() == 0 {
		return nil, ErrNothingToForward
	}
	amount := s.CollectedReserve
	s.CollectedReserve = new(big.Int)
	return amount, nil
}

// Snapshot is a plain-data copy of State for persistence and inspection.
type Snapshot struct {
	Feeds            []Feed         `json:"feeds"`
	Agents           []AgentRate    `json:"agents"`
	Earnings         []Earning      `json:"earnings"`
	Deposited        *big.Int       `json:"deposited"`
	Approved         *big.Int       `json:"approved"`
	ReservePrice     *big.Int       `json:"reserve_price"`
	CollectedReserve *big.Int       `json:"collected_reserve"`
	Registry         common.Address `json:"registry"`
	Paused           bool           `json:"paused"`
}

func (s *State) Snapshot() *Snapshot {
	return &Snapshot{
		Feeds:            s.Feeds.List(),
		Agents:           s.Commissions.Agents(),
		Earnings:         s.Commissions.Earnings(),
		Deposited:        new(big.Int).Set(s.Treasury.Deposited),
		Approved:         new(big.Int).Set(s.Treasury.Approved),
		ReservePrice:     new(big.Int).Set(s.ReservePrice),
		CollectedReserve: new(big.Int).Set(s.CollectedReserve),
		Registry:         s.Registry,
		Paused:           s.Paused,
	}
}

// Restore rebuilds State from a snapshot.
func Restore(snap *Snapshot) *State {
	s := NewState()
	if snap == nil {
		return s
	}
	for _, f := range snap.Feeds {
		collected := new(big.Int)
		if f.Collected != nil {
			collected.Set(f.Collected)
		}
		s.Feeds.feeds[f.Currency] = &Feed{Currency: f.Currency, Oracle: f.Oracle, Decimals: f.Decimals, Collected: collected}
	}
	for _, a := range snap.Agents {
		s.Commissions.rates[a.Agent] = a.Rate
	}
	for _, e := range snap.Earnings {
		if e.Amount != nil {
			s.Commissions.earned[commissionKey{Agent: e.Agent, Currency: e.Currency}] = new(big.Int).Set(e.Amount)
		}
	}
	s.Treasury.Deposited = copyOrZero(snap.Deposited)
	s.Treasury.Approved = copyOrZero(snap.Approved)
	s.ReservePrice = copyOrZero(snap.ReservePrice)
	s.CollectedReserve = copyOrZero(snap.CollectedReserve)
	s.Registry = snap.Registry
	s.Paused = snap.Paused
	return s
}

func copyOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
