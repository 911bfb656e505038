package main

import (
	"context"
	"fmt"
	"time"

	"github.com/GoPolymarket/namegate/internal/config"
	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/GoPolymarket/namegate/internal/oracle"
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/GoPolymarket/namegate/internal/pkg/logger"
	"github.com/GoPolymarket/namegate/internal/sandbox"
	"github.com/GoPolymarket/namegate/internal/service"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// defaultHolder is the sandbox custody account when none is configured.
var defaultHolder = common.BytesToAddress(crypto.Keccak256([]byte("namegate/sandbox/holder")))

const (
	defaultReserveDecimals = 18
	// 10^77 is the largest power of ten below 2^256.
	maxTokenDecimals = 77
)

func parseDecimals(field string, raw int) (uint8, error) {
	if raw < 0 || raw > maxTokenDecimals {
		return 0, fmt.Errorf("%s: %d is outside 0..%d", field, raw, maxTokenDecimals)
	}
	return uint8(raw), nil
}

// reserveDecimals resolves ledger.reserve_decimals, 0 meaning the default.
func reserveDecimals(cfg config.LedgerConfig) (uint8, error) {
	if cfg.ReserveDecimals == 0 {
		return defaultReserveDecimals, nil
	}
	return parseDecimals("ledger.reserve_decimals", cfg.ReserveDecimals)
}

func parseAddress(field, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s: %q is not a hex address", field, raw)
	}
	return common.HexToAddress(raw), nil
}

// newRegistrar builds the registrar and its collaborators from config, restores
// the persisted ledger and adds any configured feeds that are still missing.
func newRegistrar(ctx context.Context, cfg *config.Config, repo service.StateRepo, events service.Publisher) (*service.Registrar, error) {
	if !cfg.Sandbox.Enabled {
		return nil, fmt.Errorf("sandbox.enabled=false: only the in-memory token and registry collaborators are available")
	}

	operator, err := parseAddress("auth.operator", cfg.Auth.Operator)
	if err != nil {
		return nil, err
	}
	reserveToken, err := parseAddress("ledger.reserve_token", cfg.Ledger.ReserveToken)
	if err != nil {
		return nil, err
	}
	registryAddr, err := parseAddress("ledger.registry", cfg.Ledger.Registry)
	if err != nil {
		return nil, err
	}
	decimals, err := reserveDecimals(cfg.Ledger)
	if err != nil {
		return nil, err
	}
	if err := checkFeedDecimals(cfg.Feeds); err != nil {
		return nil, err
	}

	rc := service.RegistrarConfig{
		Operator:        operator,
		ReserveToken:    reserveToken,
		ReserveDecimals: decimals,
		Registry:        registryAddr,
	}
	if cfg.Ledger.ReservePrice != "" {
		price, err := fixedpoint.Parse(cfg.Ledger.ReservePrice, ledger.PriceDecimals)
		if err != nil {
			return nil, fmt.Errorf("ledger.reserve_price: %w", err)
		}
		rc.ReservePrice = price.Value
	}

	bank, registry, err := newSandbox(cfg.Sandbox, registryAddr, reserveToken, decimals)
	if err != nil {
		return nil, err
	}

	// Oracle (on-chain > static config prices)
	var prices service.PriceSource
	var static *oracle.Static
	if cfg.Chain.RPCURL != "" {
		prices = oracle.NewChainlink(
			cfg.Chain.RPCURL,
			time.Duration(cfg.Chain.OracleCacheSeconds)*time.Second,
			time.Duration(cfg.Chain.OracleTimeoutMs)*time.Millisecond,
			cfg.Chain.OracleRetries,
		)
		logger.Info("✅ Reading prices from on-chain oracles", "rpc", cfg.Chain.RPCURL)
	} else {
		static = oracle.NewStatic()
		prices = static
	}

	reg, err := service.NewRegistrar(rc, prices, bank, registry, repo, events)
	if err != nil {
		return nil, err
	}
	if err := reg.Load(ctx); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if err := bootstrapFeeds(ctx, reg, static, cfg.Feeds); err != nil {
		return nil, err
	}
	return reg, nil
}

func newSandbox(cfg config.SandboxConfig, registryAddr, reserveToken common.Address, reserveDecimals uint8) (*sandbox.Bank, *sandbox.Registry, error) {
	holder := defaultHolder
	if cfg.Holder != "" {
		h, err := parseAddress("sandbox.holder", cfg.Holder)
		if err != nil {
			return nil, nil, err
		}
		holder = h
	}
	bank := sandbox.NewBank(holder)
	registry := sandbox.NewRegistry(registryAddr, bank, reserveToken, reserveDecimals)

	for _, tier := range cfg.Tiers {
		price, err := fixedpoint.Parse(tier.Price, sandbox.TierDecimals)
		if err != nil {
			return nil, nil, fmt.Errorf("sandbox.tiers[%d]: %w", tier.Length, err)
		}
		registry.SetPrice(tier.Length, price)
	}

	for i, f := range cfg.Faucet {
		token, err := parseAddress(fmt.Sprintf("sandbox.faucet[%d].token", i), f.Token)
		if err != nil {
			return nil, nil, err
		}
		account, err := parseAddress(fmt.Sprintf("sandbox.faucet[%d].account", i), f.Account)
		if err != nil {
			return nil, nil, err
		}
		decimals, err := parseDecimals(fmt.Sprintf("sandbox.faucet[%d].decimals", i), f.Decimals)
		if err != nil {
			return nil, nil, err
		}
		amount, err := fixedpoint.Parse(f.Amount, decimals)
		if err != nil {
			return nil, nil, fmt.Errorf("sandbox.faucet[%d].amount: %w", i, err)
		}
		// faucet funds are pre-approved so the account can pay the holder
		bank.Mint(token, account, amount.Value)
		allowance := bank.Allowance(token, account, holder)
		bank.Approve(token, account, holder, allowance.Add(allowance, amount.Value))
	}

	logger.Info("🧪 Sandbox collaborators enabled", "holder", holder.Hex(), "tiers", len(cfg.Tiers), "faucet", len(cfg.Faucet))
	return bank, registry, nil
}

func checkFeedDecimals(feeds []config.FeedConfig) error {
	for i, f := range feeds {
		if _, err := parseDecimals(fmt.Sprintf("feeds[%d].decimals", i), f.Decimals); err != nil {
			return err
		}
	}
	return nil
}

// bootstrapFeeds adds configured feeds that the restored ledger does not know.
// With a static oracle the configured price is installed for every feed.
func bootstrapFeeds(ctx context.Context, reg *service.Registrar, static *oracle.Static, feeds []config.FeedConfig) error {
	for i, f := range feeds {
		currency, err := parseAddress(fmt.Sprintf("feeds[%d].currency", i), f.Currency)
		if err != nil {
			return err
		}
		oracleAddr, err := parseAddress(fmt.Sprintf("feeds[%d].oracle", i), f.Oracle)
		if err != nil {
			return err
		}

		if static != nil {
			if f.Price == "" {
				return fmt.Errorf("feeds[%d].price is required without chain.rpc_url", i)
			}
			price, err := fixedpoint.Parse(f.Price, ledger.OracleDecimals)
			if err != nil {
				return fmt.Errorf("feeds[%d].price: %w", i, err)
			}
			static.Set(oracleAddr, price)
		}

		decimals, err := parseDecimals(fmt.Sprintf("feeds[%d].decimals", i), f.Decimals)
		if err != nil {
			return err
		}

		if _, err := reg.Feed(currency); err == nil {
			continue
		}
		if err := reg.AddFeed(ctx, reg.Operator(), currency, oracleAddr, decimals); err != nil {
			return fmt.Errorf("feeds[%d]: %w", i, err)
		}
	}
	return nil
}
