package main

import (
	"context"
	"testing"

	"github.com/GoPolymarket/namegate/internal/config"
	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/GoPolymarket/namegate/internal/model"
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	operatorHex = "0x0000000000000000000000000000000000000a01"
	aliceHex    = "0x0000000000000000000000000000000000000a02"
	reserveHex  = "0x0000000000000000000000000000000000000b01"
	usdtHex     = "0x0000000000000000000000000000000000000b02"
	oracleHex   = "0x0000000000000000000000000000000000000c01"
	registryHex = "0x0000000000000000000000000000000000000d01"
)

type discard struct{}

func (discard) Publish(*model.Notification) {}

type memoryRepo struct{ snap *ledger.Snapshot }

func (m *memoryRepo) Load(context.Context) (*ledger.Snapshot, error) { return m.snap, nil }

func (m *memoryRepo) Save(_ context.Context, snap *ledger.Snapshot) error {
	m.snap = snap
	return nil
}

func sandboxConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{Operator: operatorHex},
		Ledger: config.LedgerConfig{
			ReserveToken:    reserveHex,
			ReserveDecimals: 18,
			ReservePrice:    "0.01175",
			Registry:        registryHex,
		},
		Feeds: []config.FeedConfig{
			{Currency: usdtHex, Oracle: oracleHex, Decimals: 6, Price: "1"},
		},
		Sandbox: config.SandboxConfig{
			Enabled: true,
			Tiers:   []config.TierConfig{{Length: 7, Price: "1000"}},
			Faucet: []config.FaucetConfig{
				{Token: reserveHex, Account: operatorHex, Amount: "10000", Decimals: 18},
				{Token: usdtHex, Account: aliceHex, Amount: "100", Decimals: 6},
			},
		},
	}
}

func TestNewRegistrarFromConfig(t *testing.T) {
	ctx := context.Background()
	reg, err := newRegistrar(ctx, sandboxConfig(), nil, discard{})
	require.NoError(t, err)

	feed, err := reg.Feed(common.HexToAddress(usdtHex))
	require.NoError(t, err)
	assert.Equal(t, uint8(6), feed.Decimals)

	q, err := reg.QuotePrice(ctx, "ruwaifa", common.HexToAddress(usdtHex))
	require.NoError(t, err)
	assert.Equal(t, "11.75", q.Amount.String())

	// the faucet funded and pre-approved both accounts
	operator := common.HexToAddress(operatorHex)
	stock := fixedpoint.Units(10_000, 18).Value
	require.NoError(t, reg.DepositReserve(ctx, operator, stock))
	require.NoError(t, reg.ApproveRegistry(ctx, operator, stock))

	receipt, err := reg.RegisterWithSettlement(ctx, common.HexToAddress(aliceHex), "ruwaifa", common.HexToAddress(usdtHex), common.Address{})
	require.NoError(t, err)
	assert.Equal(t, "11.75", receipt.Amount.String())
}

func TestNewRegistrarDefaultsReserveDecimalsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := sandboxConfig()
	cfg.Ledger.ReserveDecimals = 0

	reg, err := newRegistrar(ctx, cfg, nil, discard{})
	require.NoError(t, err)
	assert.Equal(t, uint8(18), reg.ReserveDecimals())

	// the sandbox registry prices in the same precision the ledger uses
	q, err := reg.QuoteReservePrice(ctx, "ruwaifa")
	require.NoError(t, err)
	assert.Equal(t, uint8(18), q.Amount.Decimals)
	assert.Equal(t, "1000", q.Amount.String())
}

func TestNewRegistrarRejectsOutOfRangeDecimals(t *testing.T) {
	ctx := context.Background()

	for name, mutate := range map[string]func(*config.Config){
		"reserve wraps":    func(c *config.Config) { c.Ledger.ReserveDecimals = 262 },
		"reserve negative": func(c *config.Config) { c.Ledger.ReserveDecimals = -1 },
		"feed wraps":       func(c *config.Config) { c.Feeds[0].Decimals = 262 },
		"faucet wraps":     func(c *config.Config) { c.Sandbox.Faucet[1].Decimals = 256 },
		"beyond uint256":   func(c *config.Config) { c.Ledger.ReserveDecimals = 78 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := sandboxConfig()
			mutate(cfg)
			_, err := newRegistrar(ctx, cfg, nil, discard{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "outside 0..77")
		})
	}
}

func TestNewRegistrarSkipsRestoredFeeds(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{}

	first, err := newRegistrar(ctx, sandboxConfig(), repo, discard{})
	require.NoError(t, err)
	require.NoError(t, first.Pause(ctx, first.Operator()))

	// restart against the same store: the feed exists already and pause survives
	second, err := newRegistrar(ctx, sandboxConfig(), repo, discard{})
	require.NoError(t, err)
	assert.True(t, second.Paused())
	assert.Len(t, second.Snapshot().Feeds, 1)
}

func TestNewRegistrarRejectsBadConfig(t *testing.T) {
	ctx := context.Background()

	cfg := sandboxConfig()
	cfg.Sandbox.Enabled = false
	_, err := newRegistrar(ctx, cfg, nil, discard{})
	assert.Error(t, err)

	cfg = sandboxConfig()
	cfg.Auth.Operator = "nobody"
	_, err = newRegistrar(ctx, cfg, nil, discard{})
	assert.Error(t, err)

	cfg = sandboxConfig()
	cfg.Feeds[0].Price = ""
	_, err = newRegistrar(ctx, cfg, nil, discard{})
	assert.Error(t, err)

	cfg = sandboxConfig()
	cfg.Ledger.ReservePrice = "abc"
	_, err = newRegistrar(ctx, cfg, nil, discard{})
	assert.Error(t, err)
}
