package signer

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// eip1271MagicValue is bytes4(keccak256("isValidSignature(bytes32,bytes)")).
var eip1271MagicValue = []byte{0x16, 0x26, 0xba, 0x7e}

var parsedEIP1271ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(`[{"inputs":[{"name":"_hash","type":"bytes32"},{"name":"_signature","type":"bytes"}],"name":"isValidSignature","outputs":[{"name":"magicValue","type":"bytes4"}],"stateMutability":"view","type":"function"}]`))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// ContractCaller is the subset of ethclient.Client the verifier needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ContractVerifier accepts request signatures from contract wallets by asking
// the wallet's isValidSignature (EIP-1271) about the personal-sign hash.
type ContractVerifier struct {
	caller   ContractCaller
	mu       sync.Mutex
	cacheTTL time.Duration
	cache    map[string]cacheEntry
	timeout  time.Duration
	retries  int
}

type cacheEntry struct {
	valid   bool
	expires time.Time
}

func NewContractVerifier(caller ContractCaller, ttl, timeout time.Duration, retries int) *ContractVerifier {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &ContractVerifier{
		caller:   caller,
		cacheTTL: ttl,
		cache:    make(map[string]cacheEntry),
		timeout:  timeout,
		retries:  retries,
	}
}

func (v *ContractVerifier) Verify(ctx context.Context, contract common.Address, digest common.Hash, signature string) (bool, error) {
	if contract == (common.Address{}) {
		return false, fmt.Errorf("zero contract address")
	}
	sigBytes, err := hexutil.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("invalid signature encoding")
	}
	key := v.cacheKey(contract, digest, signature)
	if hit, ok := v.cacheGet(key); ok {
		return hit, nil
	}

	var hash [32]byte
	copy(hash[:], accounts.TextHash(digest.Bytes()))
	data, err := parsedEIP1271ABI.Pack("isValidSignature", hash, sigBytes)
	if err != nil {
		return false, fmt.Errorf("failed to pack call data: %w", err)
	}
	msg := ethereum.CallMsg{To: &contract, Data: data}

	var lastErr error
	for attempt := 0; attempt <= v.retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, v.timeout)
		output, err := v.caller.CallContract(attemptCtx, msg, nil)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("rpc call failed: %w", err)
			if !shouldRetry(ctx, attempt, v.retries) {
				break
			}
			continue
		}
		valid := len(output) >= 4 && bytes.Equal(output[:4], eip1271MagicValue)
		v.cacheSet(key, valid)
		return valid, nil
	}
	return false, lastErr
}

func (v *ContractVerifier) cacheKey(contract common.Address, digest common.Hash, signature string) string {
	return contract.Hex() + ":" + digest.Hex() + ":" + strings.ToLower(signature)
}

func (v *ContractVerifier) cacheGet(key string) (bool, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	entry, ok := v.cache[key]
	if !ok {
		return false, false
	}
	if time.Now().After(entry.expires) {
		delete(v.cache, key)
		return false, false
	}
	return entry.valid, true
}

func (v *ContractVerifier) cacheSet(key string, valid bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cache[key] = cacheEntry{
		valid:   valid,
		expires: time.Now().Add(v.cacheTTL),
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
