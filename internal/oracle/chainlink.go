// Package oracle reads USD prices for settlement currencies.
package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const aggregatorABI = `[
{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"latestRoundData","outputs":[{"name":"roundId","type":"uint80"},{"name":"answer","type":"int256"},{"name":"startedAt","type":"uint256"},{"name":"updatedAt","type":"uint256"},{"name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"}
]`

var parsedAggregatorABI = mustParseABI(aggregatorABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ContractCaller is the subset of ethclient.Client the reader needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Chainlink reads aggregator contracts over JSON-RPC with a per-call timeout,
// bounded retries and a short TTL cache per oracle.
type Chainlink struct {
	rpcURL   string
	mu       sync.Mutex
	caller   ContractCaller
	cacheTTL time.Duration
	cache    map[common.Address]priceEntry
	decimals map[common.Address]uint8
	timeout  time.Duration
	retries  int
}

type priceEntry struct {
	price   fixedpoint.Amount
	expires time.Time
}

func NewChainlink(rpcURL string, ttl, timeout time.Duration, retries int) *Chainlink {
	if ttl < 0 {
		ttl = 0
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &Chainlink{
		rpcURL:   strings.TrimSpace(rpcURL),
		cacheTTL: ttl,
		cache:    make(map[common.Address]priceEntry),
		decimals: make(map[common.Address]uint8),
		timeout:  timeout,
		retries:  retries,
	}
}

// NewChainlinkWithCaller uses caller instead of dialing rpcURL.
func NewChainlinkWithCaller(caller ContractCaller, ttl, timeout time.Duration, retries int) *Chainlink {
	c := NewChainlink("", ttl, timeout, retries)
	c.caller = caller
	return c
}

// LatestPrice returns the aggregator's latest answer at the aggregator's own precision.
// A zero answer is returned as is; a negative one is rejected.
func (c *Chainlink) LatestPrice(ctx context.Context, oracle common.Address) (fixedpoint.Amount, error) {
	if oracle == (common.Address{}) {
		return fixedpoint.Amount{}, ledger.ErrZeroReference
	}
	if hit, ok := c.cacheGet(oracle); ok {
		return hit, nil
	}

	decimals, err := c.oracleDecimals(ctx, oracle)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	output, err := c.call(ctx, oracle, "latestRoundData")
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	answer, err := decodeAnswer(output)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	if answer.Sign() < 0 {
		return fixedpoint.Amount{}, ledger.ErrInvalidCurrencyPrice.Withf("negative answer from %s", oracle.Hex())
	}

	price := fixedpoint.New(answer, decimals)
	c.cacheSet(oracle, price)
	return price, nil
}

func (c *Chainlink) oracleDecimals(ctx context.Context, oracle common.Address) (uint8, error) {
	c.mu.Lock()
	d, ok := c.decimals[oracle]
	c.mu.Unlock()
	if ok {
		return d, nil
	}

	output, err := c.call(ctx, oracle, "decimals")
	if err != nil {
		return 0, err
	}
	values, err := parsedAggregatorABI.Unpack("decimals", output)
	if err != nil || len(values) != 1 {
		return 0, fmt.Errorf("failed to decode decimals: %v", err)
	}
	d, ok = values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", values[0])
	}

	c.mu.Lock()
	c.decimals[oracle] = d
	c.mu.Unlock()
	return d, nil
}

func decodeAnswer(output []byte) (*big.Int, error) {
	values, err := parsedAggregatorABI.Unpack("latestRoundData", output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode latestRoundData: %w", err)
	}
	if len(values) != 5 {
		return nil, fmt.Errorf("latestRoundData returned %d values", len(values))
	}
	answer, ok := values[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected answer type %T", values[1])
	}
	return answer, nil
}

func (c *Chainlink) call(ctx context.Context, oracle common.Address, method string) ([]byte, error) {
	data, err := parsedAggregatorABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack call data: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		caller, err := c.getCaller(attemptCtx)
		if err != nil {
			cancel()
			lastErr = err
			if !shouldRetry(ctx, attempt, c.retries) {
				break
			}
			continue
		}

		msg := ethereum.CallMsg{
			To:   &oracle,
			Data: data,
		}
		output, err := caller.CallContract(attemptCtx, msg, nil)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("rpc call %s failed: %w", method, err)
			if !shouldRetry(ctx, attempt, c.retries) {
				break
			}
			continue
		}
		return output, nil
	}
	return nil, lastErr
}

func (c *Chainlink) getCaller(ctx context.Context) (ContractCaller, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.caller != nil {
		return c.caller, nil
	}
	if c.rpcURL == "" {
		return nil, fmt.Errorf("rpc url not configured")
	}
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect rpc: %w", err)
	}
	c.caller = client
	return c.caller, nil
}

func (c *Chainlink) cacheGet(oracle common.Address) (fixedpoint.Amount, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[oracle]
	if !ok {
		return fixedpoint.Amount{}, false
	}
	if time.Now().After(entry.expires) {
		delete(c.cache, oracle)
		return fixedpoint.Amount{}, false
	}
	return fixedpoint.New(entry.price.Value, entry.price.Decimals), true
}

func (c *Chainlink) cacheSet(oracle common.Address, price fixedpoint.Amount) {
	if c.cacheTTL == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[oracle] = priceEntry{
		price:   fixedpoint.New(price.Value, price.Decimals),
		expires: time.Now().Add(c.cacheTTL),
	}
}

func shouldRetry(ctx context.Context, attempt, max int) bool {
	if attempt >= max {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	default:
	}
	time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
	return true
}
