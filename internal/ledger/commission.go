package ledger

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// CommissionScale is 100% expressed as a rate: percent with six decimals,
// so 20% is 20_000_000.
const CommissionScale uint64 = 100_000_000

var commissionScale = new(big.Int).SetUint64(CommissionScale)

type commissionKey struct {
	Agent    common.Address
	Currency common.Address
}

// Earning is the accumulated commission an agent earned in one currency.
type Earning struct {
	Agent    common.Address `json:"agent"`
	Currency common.Address `json:"currency"`
	Amount   *big.Int       `json:"amount"`
}

// AgentRate is an agent's commission rate; zero means not an agent.
type AgentRate struct {
	Agent common.Address `json:"agent"`
	Rate  uint64         `json:"rate"`
}

// CommissionLedger holds agent rates and per (agent, currency) earned commission.
// Removing an agent zeroes its rate and keeps its earnings.
type CommissionLedger struct {
	rates  map[common.Address]uint64
	earned map[commissionKey]*big.Int
}

func NewCommissionLedger() *CommissionLedger {
	return &CommissionLedger{
		rates:  make(map[common.Address]uint64),
		earned: make(map[commissionKey]*big.Int),
	}
}

func validateAgent(agent common.Address, rate uint64) error {
	if agent == (common.Address{}) {
		return ErrZeroReference
	}
	if rate == 0 || rate > CommissionScale {
		return ErrInvalidRate
	}
	return nil
}

func (l *CommissionLedger) AddAgent(agent common.Address, rate uint64) error {
	if err := validateAgent(agent, rate); err != nil {
		return err
	}
	if l.rates[agent] != 0 {
		return ErrAlreadyAgent.Withf("%s", agent.Hex())
	}
	l.rates[agent] = rate
	return nil
}

func (l *CommissionLedger) UpdateRate(agent common.Address, rate uint64) error {
	if err := validateAgent(agent, rate); err != nil {
		return err
	}
	if l.rates[agent] == 0 {
		return ErrNotAnAgent.Withf("%s", agent.Hex())
	}
	l.rates[agent] = rate
	return nil
}

func (l *CommissionLedger) RemoveAgent(agent common.Address) error {
	if agent == (common.Address{}) {
		return ErrZeroReference
	}
	if l.rates[agent] == 0 {
		return ErrNotAnAgent.Withf("%s", agent.Hex())
	}
	l.rates[agent] = 0
	return nil
}

func (l *CommissionLedger) Rate(agent common.Address) uint64 {
	return l.rates[agent]
}

func (l *CommissionLedger) Earned(agent, currency common.Address) *big.Int {
	v, ok := l.earned[commissionKey{Agent: agent, Currency: currency}]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Settle splits amount between agent and operator and records the agent share as
// earned commission. A zero agent or an address without an active rate earns
// nothing. operatorShare is always amount - agentShare.
func (l *CommissionLedger) Settle(agent, currency common.Address, amount *big.Int) (agentShare, operatorShare *big.Int) {
	agentShare = new(big.Int)
	if agent != (common.Address{}) {
		if rate := l.rates[agent]; rate != 0 {
			agentShare.Mul(amount, new(big.Int).SetUint64(rate))
			agentShare.Quo(agentShare, commissionScale)
		}
	}
	operatorShare = new(big.Int).Sub(amount, agentShare)

	if agentShare.Sign() > 0 {
		key := commissionKey{Agent: agent, Currency: currency}
		prev, ok := l.earned[key]
		if !ok {
			prev = new(big.Int)
		}
		l.earned[key] = new(big.Int).Add(prev, agentShare)
	}
	return agentShare, operatorShare
}

// Agents lists every agent ever added, including removed ones with rate 0.
func (l *CommissionLedger) Agents() []AgentRate {
	out := make([]AgentRate, 0, len(l.rates))
	for agent, rate := range l.rates {
		out = append(out, AgentRate{Agent: agent, Rate: rate})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Agent.Bytes(), out[j].Agent.Bytes()) < 0
	})
	return out
}

func (l *CommissionLedger) Earnings() []Earning {
	out := make([]Earning, 0, len(l.earned))
	for key, amount := range l.earned {
		out = append(out, Earning{Agent: key.Agent, Currency: key.Currency, Amount: new(big.Int).Set(amount)})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Agent.Bytes(), out[j].Agent.Bytes()); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].Currency.Bytes(), out[j].Currency.Bytes()) < 0
	})
	return out
}

func (l *CommissionLedger) Clone() *CommissionLedger {
	cp := NewCommissionLedger()
	for k, v := range l.rates {
		cp.rates[k] = v
	}
	for k, v := range l.earned {
		cp.earned[k] = new(big.Int).Set(v)
	}
	return cp
}
