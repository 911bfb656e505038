package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/GoPolymarket/namegate/internal/model"
	"github.com/GoPolymarket/namegate/internal/oracle"
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/GoPolymarket/namegate/internal/sandbox"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	operator     = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	alice        = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	agent        = common.HexToAddress("0x0000000000000000000000000000000000000a03")
	holder       = common.HexToAddress("0x0000000000000000000000000000000000000a04")
	reserveToken = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	usdt         = common.HexToAddress("0x0000000000000000000000000000000000000b02")
	btc          = common.HexToAddress("0x0000000000000000000000000000000000000b03")
	usdtOracle   = common.HexToAddress("0x0000000000000000000000000000000000000c01")
	btcOracle    = common.HexToAddress("0x0000000000000000000000000000000000000c02")
	registryAddr = common.HexToAddress("0x0000000000000000000000000000000000000d01")
)

const rate20 = 20_000_000

type recordingPublisher struct {
	mu    sync.Mutex
	notes []*model.Notification
}

func (p *recordingPublisher) Publish(n *model.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notes = append(p.notes, n)
}

func (p *recordingPublisher) kinds() []model.NotificationKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.NotificationKind, 0, len(p.notes))
	for _, n := range p.notes {
		out = append(out, n.Kind)
	}
	return out
}

type memoryRepo struct {
	mu    sync.Mutex
	saved *ledger.Snapshot
	saves int
}

func (m *memoryRepo) Load(context.Context) (*ledger.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, nil
}

func (m *memoryRepo) Save(_ context.Context, snap *ledger.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = snap
	m.saves++
	return nil
}

type fixture struct {
	ctx      context.Context
	r        *Registrar
	bank     *sandbox.Bank
	registry *sandbox.Registry
	prices   *oracle.Static
	events   *recordingPublisher
	repo     *memoryRepo
}

func units(whole int64, decimals uint8) *big.Int {
	return fixedpoint.Units(whole, decimals).Value
}

// fund mints amount of token to account and approves the registrar's holder to pull it.
func fund(bank *sandbox.Bank, token, account common.Address, amount *big.Int) {
	bank.Mint(token, account, amount)
	bank.Approve(token, account, bank.Holder(), amount)
}

// newFixture builds a registrar with a USDT feed, 10 registrations worth of
// treasury reserve approved to the registry, and a funded caller.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test wrap the static oracle the registrar reads.
func newFixtureWith(t *testing.T, wrap func(*oracle.Static) PriceSource) *fixture {
	t.Helper()
	ctx := context.Background()

	bank := sandbox.NewBank(holder)
	registry := sandbox.NewRegistry(registryAddr, bank, reserveToken, 18)
	registry.SetPrice(5, fixedpoint.Units(4000, sandbox.TierDecimals))
	registry.SetPrice(6, fixedpoint.Units(2000, sandbox.TierDecimals))
	registry.SetPrice(7, fixedpoint.Units(1000, sandbox.TierDecimals))
	registry.SetPrice(8, fixedpoint.Units(500, sandbox.TierDecimals))

	prices := oracle.NewStatic()
	prices.Set(usdtOracle, fixedpoint.MustParse("1", ledger.OracleDecimals))
	prices.Set(btcOracle, fixedpoint.MustParse("25964.5", ledger.OracleDecimals))

	var source PriceSource = prices
	if wrap != nil {
		source = wrap(prices)
	}

	events := &recordingPublisher{}
	repo := &memoryRepo{}
	r, err := NewRegistrar(RegistrarConfig{
		Operator:        operator,
		ReserveToken:    reserveToken,
		ReserveDecimals: 18,
		ReservePrice:    fixedpoint.MustParse("0.01175", ledger.PriceDecimals).Value,
		Registry:        registryAddr,
	}, source, bank, registry, repo, events)
	require.NoError(t, err)

	require.NoError(t, r.AddFeed(ctx, operator, usdt, usdtOracle, 6))

	fund(bank, reserveToken, operator, units(10_000, 18))
	require.NoError(t, r.DepositReserve(ctx, operator, units(10_000, 18)))
	require.NoError(t, r.ApproveRegistry(ctx, operator, units(10_000, 18)))

	fund(bank, usdt, alice, units(1_000, 6))

	return &fixture{ctx: ctx, r: r, bank: bank, registry: registry, prices: prices, events: events, repo: repo}
}

func TestQuotePrice_StablecoinSevenCharName(t *testing.T) {
	f := newFixture(t)

	q, err := f.r.QuotePrice(f.ctx, "ruwaifa", usdt)
	require.NoError(t, err)
	// 1000 tokens at 0.01175 USD each, paid in a 1 USD token with 6 decimals
	assert.Equal(t, int64(11_750_000), q.Amount.Value.Int64())
	assert.Equal(t, uint8(6), q.Amount.Decimals)

	again, err := f.r.QuotePrice(f.ctx, "ruwaifa", usdt)
	require.NoError(t, err)
	assert.Equal(t, q.Amount.Value.String(), again.Amount.Value.String())
}

// hookedPrices runs onRead before each oracle read, outside any registrar lock.
type hookedPrices struct {
	*oracle.Static
	onRead func()
}

func (h *hookedPrices) LatestPrice(ctx context.Context, oracleAddr common.Address) (fixedpoint.Amount, error) {
	if h.onRead != nil {
		h.onRead()
	}
	return h.Static.LatestPrice(ctx, oracleAddr)
}

func TestQuotePrice_CommitDuringOracleReadIsNotMixed(t *testing.T) {
	hook := &hookedPrices{}
	f := newFixtureWith(t, func(s *oracle.Static) PriceSource {
		hook.Static = s
		return hook
	})

	pre, err := f.r.QuotePrice(f.ctx, "ruwaifa", usdt)
	require.NoError(t, err)
	assert.Equal(t, "11750000", pre.Amount.Value.String())

	fired := false
	hook.onRead = func() {
		if fired {
			return
		}
		fired = true
		require.NoError(t, f.r.UpdateFeed(f.ctx, operator, usdt, usdtOracle, 18))
		require.NoError(t, f.r.SetReservePrice(f.ctx, operator, fixedpoint.Units(1, ledger.PriceDecimals).Value))
	}

	// the quote must match the post-commit state, never old precision with the new price
	q, err := f.r.QuotePrice(f.ctx, "ruwaifa", usdt)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, units(1_000, 18).String(), q.Amount.Value.String())
	assert.Equal(t, uint8(18), q.Amount.Decimals)
}

func TestQuotePrice_GivesUpWhenStateKeepsMoving(t *testing.T) {
	hook := &hookedPrices{}
	f := newFixtureWith(t, func(s *oracle.Static) PriceSource {
		hook.Static = s
		return hook
	})

	price := int64(1)
	hook.onRead = func() {
		price++
		require.NoError(t, f.r.SetReservePrice(f.ctx, operator, fixedpoint.Units(price, ledger.PriceDecimals).Value))
	}

	_, err := f.r.QuotePrice(f.ctx, "ruwaifa", usdt)
	assert.True(t, errors.Is(err, ErrPriceChanged))
}

func TestQuoteReservePrice_FollowsRegistry(t *testing.T) {
	f := newFixture(t)
	next := common.HexToAddress("0x0000000000000000000000000000000000000d02")
	require.NoError(t, f.r.SetRegistry(f.ctx, operator, next))

	// the sandbox registry only prices names for its own address
	_, err := f.r.QuoteReservePrice(f.ctx, "ruwaifa")
	assert.True(t, errors.Is(err, sandbox.ErrUnknownRegistry))
}

func TestRegisterWithSettlement_AgentTwentyPercent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.r.AddAgent(f.ctx, operator, agent, rate20))

	receipt, err := f.r.RegisterWithSettlement(f.ctx, alice, "ruwaifa", usdt, agent)
	require.NoError(t, err)

	assert.Equal(t, int64(11_750_000), receipt.Amount.Value.Int64())
	assert.Equal(t, int64(2_350_000), receipt.AgentShare.Value.Int64())
	assert.Equal(t, int64(9_400_000), receipt.OperatorShare.Value.Int64())

	feed, err := f.r.Feed(usdt)
	require.NoError(t, err)
	assert.Equal(t, int64(9_400_000), feed.Collected.Int64())
	assert.Equal(t, int64(2_350_000), f.r.EarnedCommission(agent, usdt).Int64())

	owner, ok := f.registry.OwnerOf("ruwaifa")
	require.True(t, ok)
	assert.Equal(t, alice, owner)

	// caller paid the quote, the registrar holds it
	wantAlice := new(big.Int).Sub(units(1_000, 6), big.NewInt(11_750_000))
	assert.Equal(t, wantAlice.String(), f.bank.BalanceOf(usdt, alice).String())
	assert.Equal(t, int64(11_750_000), f.bank.BalanceOf(usdt, holder).Int64())

	// the registry fee came out of the treasury and its approval
	deposited, approved, _ := f.r.ReserveBalances()
	assert.Equal(t, units(9_000, 18).String(), deposited.String())
	assert.Equal(t, units(9_000, 18).String(), approved.String())
	assert.Equal(t, units(1_000, 18).String(), f.bank.BalanceOf(reserveToken, registryAddr).String())

	assert.Contains(t, f.events.kinds(), model.KindNameRegistered)
}

func TestRegisterWithSettlement_TwentyFivePercentExact(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.r.AddAgent(f.ctx, operator, agent, 25_000_000))

	q, err := f.r.QuotePrice(f.ctx, "ruwaifa", usdt)
	require.NoError(t, err)

	_, err = f.r.RegisterWithSettlement(f.ctx, alice, "ruwaifa", usdt, agent)
	require.NoError(t, err)

	wantAgent := new(big.Int).Quo(new(big.Int).Mul(q.Amount.Value, big.NewInt(25)), big.NewInt(100))
	wantCollected := new(big.Int).Sub(q.Amount.Value, wantAgent)

	feed, _ := f.r.Feed(usdt)
	assert.Equal(t, wantAgent.String(), f.r.EarnedCommission(agent, usdt).String())
	assert.Equal(t, wantCollected.String(), feed.Collected.String())
}

func TestRegisterWithSettlement_NoAgent(t *testing.T) {
	f := newFixture(t)

	receipt, err := f.r.RegisterWithSettlement(f.ctx, alice, "ruwaifa", usdt, common.Address{})
	require.NoError(t, err)
	assert.Zero(t, receipt.AgentShare.Value.Sign())

	// an address that is not an agent earns nothing either
	_, err = f.r.RegisterWithSettlement(f.ctx, alice, "abcdefg", usdt, agent)
	require.NoError(t, err)
	assert.Zero(t, f.r.EarnedCommission(agent, usdt).Sign())

	feed, _ := f.r.Feed(usdt)
	assert.Equal(t, int64(2*11_750_000), feed.Collected.Int64())
}

func TestRegisterWithReserve_AgentTwentyPercent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.r.AddAgent(f.ctx, operator, agent, rate20))
	fund(f.bank, reserveToken, alice, units(1_000, 18))

	q, err := f.r.QuoteReservePrice(f.ctx, "ruwaifa")
	require.NoError(t, err)
	assert.Equal(t, units(1_000, 18).String(), q.Amount.Value.String())

	receipt, err := f.r.RegisterWithReserve(f.ctx, alice, "ruwaifa", agent)
	require.NoError(t, err)
	assert.Equal(t, units(200, 18).String(), receipt.AgentShare.Value.String())
	assert.Equal(t, units(800, 18).String(), receipt.OperatorShare.Value.String())

	_, _, collected := f.r.ReserveBalances()
	assert.Equal(t, units(800, 18).String(), collected.String())
	assert.Equal(t, units(200, 18).String(), f.r.EarnedCommission(agent, reserveToken).String())
	assert.Zero(t, f.bank.BalanceOf(reserveToken, alice).Sign())

	// currency feeds are untouched by the reserve path
	feed, _ := f.r.Feed(usdt)
	assert.Zero(t, feed.Collected.Sign())

	paid, err := f.r.ForwardCollectedReserve(f.ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, units(800, 18).String(), paid.String())
	_, err = f.r.ForwardCollectedReserve(f.ctx, operator)
	assert.True(t, errors.Is(err, ledger.ErrNothingToForward))
}

func TestRegisterWithSettlement_InsufficientReserveChangesNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.WithdrawReserve(f.ctx, operator)
	require.NoError(t, err)

	before := f.r.Snapshot()
	aliceBefore := f.bank.BalanceOf(usdt, alice)
	notesBefore := len(f.events.kinds())

	_, err = f.r.RegisterWithSettlement(f.ctx, alice, "ruwaifa", usdt, common.Address{})
	assert.True(t, errors.Is(err, ledger.ErrInsufficientReserve))

	assert.Equal(t, before, f.r.Snapshot())
	assert.Equal(t, aliceBefore.String(), f.bank.BalanceOf(usdt, alice).String())
	assert.Len(t, f.events.kinds(), notesBefore)
	_, ok := f.registry.OwnerOf("ruwaifa")
	assert.False(t, ok)
}

func TestRegisterWithSettlement_InsufficientApproval(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.r.ApproveRegistry(f.ctx, operator, units(999, 18)))

	_, err := f.r.RegisterWithSettlement(f.ctx, alice, "ruwaifa", usdt, common.Address{})
	assert.True(t, errors.Is(err, ledger.ErrInsufficientApproval))
	assert.Equal(t, units(1_000, 6).String(), f.bank.BalanceOf(usdt, alice).String())
}

func TestRegisterWithSettlement_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.r.RegisterWithSettlement(f.ctx, alice, "Ruwaifa!", usdt, common.Address{})
	assert.True(t, errors.Is(err, ledger.ErrInvalidCharacters))

	_, err = f.r.RegisterWithSettlement(f.ctx, alice, "ruwaifa", btc, common.Address{})
	assert.True(t, errors.Is(err, ledger.ErrUnsupportedCurrency))

	// four-character names have no tier
	_, err = f.r.RegisterWithSettlement(f.ctx, alice, "abcd", usdt, common.Address{})
	assert.True(t, errors.Is(err, ledger.ErrInvalidNamePrice))

	// character check runs before the currency check
	_, err = f.r.RegisterWithSettlement(f.ctx, alice, "a b", btc, common.Address{})
	assert.True(t, errors.Is(err, ledger.ErrInvalidCharacters))
}

func TestRegisterWithSettlement_ZeroOracleReading(t *testing.T) {
	f := newFixture(t)
	f.prices.Set(usdtOracle, fixedpoint.Zero(ledger.OracleDecimals))

	_, err := f.r.RegisterWithSettlement(f.ctx, alice, "ruwaifa", usdt, common.Address{})
	assert.True(t, errors.Is(err, ledger.ErrInvalidCurrencyPrice))
}

func TestRegisterWithSettlement_CallerCannotPay(t *testing.T) {
	f := newFixture(t)
	before := f.r.Snapshot()

	// bob approved the spend but holds no USDT
	bob := common.HexToAddress("0x0000000000000000000000000000000000000a09")
	f.bank.Approve(usdt, bob, holder, units(1_000, 6))
	_, err := f.r.RegisterWithSettlement(f.ctx, bob, "ruwaifa", usdt, common.Address{})
	assert.True(t, errors.Is(err, sandbox.ErrInsufficientBalance))
	assert.Equal(t, before, f.r.Snapshot())
}

func TestRegisterWithSettlement_WithoutApprovalChangesNothing(t *testing.T) {
	f := newFixture(t)
	bob := common.HexToAddress("0x0000000000000000000000000000000000000a09")
	f.bank.Mint(usdt, bob, units(1_000, 6))

	before := f.r.Snapshot()
	notesBefore := len(f.events.kinds())

	_, err := f.r.RegisterWithSettlement(f.ctx, bob, "ruwaifa", usdt, common.Address{})
	assert.True(t, errors.Is(err, sandbox.ErrInsufficientAllowance))

	assert.Equal(t, before, f.r.Snapshot())
	assert.Equal(t, units(1_000, 6).String(), f.bank.BalanceOf(usdt, bob).String())
	assert.Zero(t, f.bank.BalanceOf(usdt, holder).Sign())
	assert.Len(t, f.events.kinds(), notesBefore)
	_, ok := f.registry.OwnerOf("ruwaifa")
	assert.False(t, ok)

	// an approval short of the quote is refused the same way
	f.bank.Approve(usdt, bob, holder, big.NewInt(11_749_999))
	_, err = f.r.RegisterWithSettlement(f.ctx, bob, "ruwaifa", usdt, common.Address{})
	assert.True(t, errors.Is(err, sandbox.ErrInsufficientAllowance))
	assert.Equal(t, before, f.r.Snapshot())

	f.bank.Approve(usdt, bob, holder, big.NewInt(11_750_000))
	_, err = f.r.RegisterWithSettlement(f.ctx, bob, "ruwaifa", usdt, common.Address{})
	require.NoError(t, err)
	assert.Zero(t, f.bank.Allowance(usdt, bob, holder).Sign())
}

func TestRegisterWithSettlement_RefundsWhenAssignmentFails(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.r.AddAgent(f.ctx, operator, agent, rate20))

	_, err := f.r.RegisterWithSettlement(f.ctx, alice, "ruwaifa", usdt, agent)
	require.NoError(t, err)
	before := f.r.Snapshot()
	aliceBefore := f.bank.BalanceOf(usdt, alice)

	// name already owned: the registry refuses after payment was pulled
	_, err = f.r.RegisterWithSettlement(f.ctx, alice, "ruwaifa", usdt, agent)
	assert.True(t, errors.Is(err, sandbox.ErrNameUnavailable))

	assert.Equal(t, before, f.r.Snapshot())
	assert.Equal(t, aliceBefore.String(), f.bank.BalanceOf(usdt, alice).String())
	assert.Equal(t, int64(2_350_000), f.r.EarnedCommission(agent, usdt).Int64())
}

func TestPauseBlocksPaidPaths(t *testing.T) {
	f := newFixture(t)
	fund(f.bank, reserveToken, alice, units(1_000, 18))
	require.NoError(t, f.r.Pause(f.ctx, operator))
	assert.True(t, f.r.Paused())

	_, err := f.r.RegisterWithSettlement(f.ctx, alice, "ruwaifa", usdt, common.Address{})
	assert.True(t, errors.Is(err, ledger.ErrPaused))
	_, err = f.r.RegisterWithReserve(f.ctx, alice, "ruwaifa", common.Address{})
	assert.True(t, errors.Is(err, ledger.ErrPaused))
	// guard wins over any input error
	_, err = f.r.RegisterWithSettlement(f.ctx, alice, "BAD NAME", btc, common.Address{})
	assert.True(t, errors.Is(err, ledger.ErrPaused))

	// quotes stay available
	_, err = f.r.QuotePrice(f.ctx, "ruwaifa", usdt)
	assert.NoError(t, err)

	assert.True(t, errors.Is(f.r.Pause(f.ctx, operator), ledger.ErrPaused))
	require.NoError(t, f.r.Unpause(f.ctx, operator))
	assert.True(t, errors.Is(f.r.Unpause(f.ctx, operator), ledger.ErrNotPaused))

	_, err = f.r.RegisterWithSettlement(f.ctx, alice, "ruwaifa", usdt, common.Address{})
	assert.NoError(t, err)
}

func TestAdminRequiresOperator(t *testing.T) {
	f := newFixture(t)

	checks := map[string]error{
		"add feed":      f.r.AddFeed(f.ctx, alice, btc, btcOracle, 8),
		"add agent":     f.r.AddAgent(f.ctx, alice, agent, rate20),
		"pause":         f.r.Pause(f.ctx, alice),
		"reserve price": f.r.SetReservePrice(f.ctx, alice, big.NewInt(1)),
		"registry":      f.r.SetRegistry(f.ctx, alice, alice),
		"approve":       f.r.ApproveRegistry(f.ctx, alice, big.NewInt(1)),
		"deposit":       f.r.DepositReserve(f.ctx, alice, big.NewInt(1)),
	}
	for name, err := range checks {
		assert.True(t, errors.Is(err, ledger.ErrNotOperator), name)
	}
	_, err := f.r.WithdrawReserve(f.ctx, alice)
	assert.True(t, errors.Is(err, ledger.ErrNotOperator))
	assert.False(t, f.r.Paused())
}

func TestFeedAdmin(t *testing.T) {
	f := newFixture(t)

	err := f.r.AddFeed(f.ctx, operator, usdt, usdtOracle, 6)
	assert.True(t, errors.Is(err, ledger.ErrFeedExists))
	_, err = f.r.RemoveFeed(f.ctx, operator, btc)
	assert.True(t, errors.Is(err, ledger.ErrNotAFeed))
	_, err = f.r.RemoveFeed(f.ctx, operator, common.Address{})
	assert.True(t, errors.Is(err, ledger.ErrZeroReference))

	_, err = f.r.RegisterWithSettlement(f.ctx, alice, "ruwaifa", usdt, common.Address{})
	require.NoError(t, err)

	// update keeps the collected balance
	require.NoError(t, f.r.UpdateFeed(f.ctx, operator, usdt, btcOracle, 6))
	feed, _ := f.r.Feed(usdt)
	assert.Equal(t, btcOracle, feed.Oracle)
	assert.Equal(t, int64(11_750_000), feed.Collected.Int64())

	payout, err := f.r.RemoveFeed(f.ctx, operator, usdt)
	require.NoError(t, err)
	assert.Equal(t, int64(11_750_000), payout.Value.Int64())
	assert.Equal(t, uint8(6), payout.Decimals)
	assert.Equal(t, int64(11_750_000), f.bank.BalanceOf(usdt, operator).Int64())
	_, err = f.r.Feed(usdt)
	assert.True(t, errors.Is(err, ledger.ErrNotAFeed))

	// removing an empty feed pays nothing
	require.NoError(t, f.r.AddFeed(f.ctx, operator, btc, btcOracle, 8))
	payout, err = f.r.RemoveFeed(f.ctx, operator, btc)
	require.NoError(t, err)
	assert.Zero(t, payout.Sign())
}

func TestForwardCollected(t *testing.T) {
	f := newFixture(t)
	_, err := f.r.ForwardCollected(f.ctx, operator, usdt)
	assert.True(t, errors.Is(err, ledger.ErrNothingToForward))

	_, err = f.r.RegisterWithSettlement(f.ctx, alice, "ruwaifa", usdt, common.Address{})
	require.NoError(t, err)

	amount, err := f.r.ForwardCollected(f.ctx, operator, usdt)
	require.NoError(t, err)
	assert.Equal(t, int64(11_750_000), amount.Value.Int64())
	assert.Equal(t, uint8(6), amount.Decimals)
	assert.Equal(t, int64(11_750_000), f.bank.BalanceOf(usdt, operator).Int64())

	feed, _ := f.r.Feed(usdt)
	assert.Zero(t, feed.Collected.Sign())
}

func TestReserveAdmin(t *testing.T) {
	f := newFixture(t)

	assert.True(t, errors.Is(f.r.DepositReserve(f.ctx, operator, big.NewInt(0)), ledger.ErrInvalidAmount))

	amount, err := f.r.WithdrawReserve(f.ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, units(10_000, 18).String(), amount.String())
	assert.Equal(t, units(10_000, 18).String(), f.bank.BalanceOf(reserveToken, operator).String())

	_, err = f.r.WithdrawReserve(f.ctx, operator)
	assert.True(t, errors.Is(err, ledger.ErrInvalidAmount))

	assert.True(t, errors.Is(f.r.SetReservePrice(f.ctx, operator, big.NewInt(0)), ledger.ErrInvalidPrice))
	assert.True(t, errors.Is(f.r.SetRegistry(f.ctx, operator, common.Address{}), ledger.ErrZeroReference))
}

func TestAgentAdmin(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.r.AddAgent(f.ctx, operator, agent, rate20))
	assert.True(t, errors.Is(f.r.AddAgent(f.ctx, operator, agent, rate20), ledger.ErrAlreadyAgent))
	assert.True(t, errors.Is(f.r.AddAgent(f.ctx, operator, alice, ledger.CommissionScale+1), ledger.ErrInvalidRate))

	require.NoError(t, f.r.UpdateAgentRate(f.ctx, operator, agent, 10_000_000))
	assert.Equal(t, uint64(10_000_000), f.r.AgentRate(agent))

	require.NoError(t, f.r.RemoveAgent(f.ctx, operator, agent))
	assert.Zero(t, f.r.AgentRate(agent))
	require.NoError(t, f.r.AddAgent(f.ctx, operator, agent, rate20))
}

func TestNotificationsAndPersistence(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.r.SetReservePrice(f.ctx, operator, fixedpoint.MustParse("0.02", 18).Value))

	kinds := f.events.kinds()
	assert.Equal(t, []model.NotificationKind{
		model.KindFeedAdded,
		model.KindReserveDeposited,
		model.KindReserveApproved,
		model.KindReservePriceSet,
	}, kinds)
	assert.Equal(t, operator.Hex(), f.events.notes[0].Actor)
	assert.Equal(t, usdt.Hex(), f.events.notes[0].Attributes["currency"])

	// failed mutations are neither published nor saved
	saves := f.repo.saves
	_ = f.r.AddFeed(f.ctx, operator, usdt, usdtOracle, 6)
	assert.Equal(t, saves, f.repo.saves)
	assert.Len(t, f.events.kinds(), 4)

	// a fresh registrar restores the saved ledger
	r2, err := NewRegistrar(RegistrarConfig{Operator: operator, ReserveToken: reserveToken}, f.prices, f.bank, f.registry, f.repo, nil)
	require.NoError(t, err)
	require.NoError(t, r2.Load(f.ctx))
	assert.Equal(t, f.r.Snapshot(), r2.Snapshot())
}

func TestConcurrentRegistrations(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.r.AddAgent(f.ctx, operator, agent, rate20))

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.r.RegisterWithSettlement(f.ctx, alice, fmt.Sprintf("user%03d", i), usdt, agent)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	feed, _ := f.r.Feed(usdt)
	assert.Equal(t, int64(n*9_400_000), feed.Collected.Int64())
	assert.Equal(t, int64(n*2_350_000), f.r.EarnedCommission(agent, usdt).Int64())

	deposited, _, _ := f.r.ReserveBalances()
	assert.Equal(t, units(10_000-n*1_000, 18).String(), deposited.String())
	assert.Equal(t, int64(n*11_750_000), f.bank.BalanceOf(usdt, holder).Int64())
}

func TestNewRegistrarRequiresReferences(t *testing.T) {
	_, err := NewRegistrar(RegistrarConfig{ReserveToken: reserveToken}, nil, nil, nil, nil, nil)
	assert.True(t, errors.Is(err, ledger.ErrZeroReference))
	_, err = NewRegistrar(RegistrarConfig{Operator: operator}, nil, nil, nil, nil, nil)
	assert.True(t, errors.Is(err, ledger.ErrZeroReference))
}
