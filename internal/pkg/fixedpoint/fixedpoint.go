// Package fixedpoint carries integer amounts together with their decimal scale.
// Every cross-scale conversion in the module goes through Rescale.
package fixedpoint

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

// Amount is Value * 10^-Decimals.
type Amount struct {
	Value    *big.Int
	Decimals uint8
}

var (
	pow10Mu    sync.RWMutex
	pow10Cache = map[uint]*big.Int{}
)

// Pow10 returns 10^n. The returned value must not be mutated.
func Pow10(n uint) *big.Int {
	pow10Mu.RLock()
	v, ok := pow10Cache[n]
	pow10Mu.RUnlock()
	if ok {
		return v
	}
	v = new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(uint64(n)), nil)
	pow10Mu.Lock()
	pow10Cache[n] = v
	pow10Mu.Unlock()
	return v
}

// Rescale converts v from one decimal scale to another, flooring when scaling down.
func Rescale(v *big.Int, from, to uint8) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	switch {
	case from == to:
		return new(big.Int).Set(v)
	case to > from:
		return new(big.Int).Mul(v, Pow10(uint(to-from)))
	default:
		return new(big.Int).Quo(v, Pow10(uint(from-to)))
	}
}

func New(v *big.Int, decimals uint8) Amount {
	if v == nil {
		v = new(big.Int)
	}
	return Amount{Value: new(big.Int).Set(v), Decimals: decimals}
}

func FromInt64(v int64, decimals uint8) Amount {
	return Amount{Value: big.NewInt(v), Decimals: decimals}
}

func Zero(decimals uint8) Amount {
	return Amount{Value: new(big.Int), Decimals: decimals}
}

// Units returns whole units scaled to decimals, e.g. Units(1000, 18) is 1000 tokens.
func Units(whole int64, decimals uint8) Amount {
	return Amount{Value: new(big.Int).Mul(big.NewInt(whole), Pow10(uint(decimals))), Decimals: decimals}
}

// Parse reads a human decimal string ("0.01175") at the given scale.
// Inputs with more fractional digits than the scale allows are rejected rather than rounded.
func Parse(s string, decimals uint8) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("invalid amount %q: negative", s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, fmt.Errorf("invalid amount %q: more than %d decimal places", s, decimals)
	}
	v := scaled.BigInt()
	if !FitsUint256(v) {
		return Amount{}, fmt.Errorf("invalid amount %q: exceeds 256 bits", s)
	}
	return Amount{Value: v, Decimals: decimals}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string, decimals uint8) Amount {
	a, err := Parse(s, decimals)
	if err != nil {
		panic(err)
	}
	return a
}

// FitsUint256 reports whether v is a valid unsigned 256-bit quantity.
func FitsUint256(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(math.MaxBig256) <= 0
}

func (a Amount) Sign() int {
	if a.Value == nil {
		return 0
	}
	return a.Value.Sign()
}

func (a Amount) IsZero() bool {
	return a.Sign() == 0
}

// To rescales a to the given number of decimals.
func (a Amount) To(decimals uint8) Amount {
	return Amount{Value: Rescale(a.Value, a.Decimals, decimals), Decimals: decimals}
}

// Int returns a copy of the raw integer value.
func (a Amount) Int() *big.Int {
	if a.Value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.Value)
}

func (a Amount) Cmp(b Amount) int {
	if a.Decimals == b.Decimals {
		return a.Int().Cmp(b.Int())
	}
	d := a.Decimals
	if b.Decimals > d {
		d = b.Decimals
	}
	return a.To(d).Value.Cmp(b.To(d).Value)
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.Int(), -int32(a.Decimals))
}

// String formats a in whole units, e.g. "11.75".
func (a Amount) String() string {
	return a.Decimal().String()
}

type amountJSON struct {
	Value     string `json:"value"`
	Decimals  uint8  `json:"decimals"`
	Formatted string `json:"formatted"`
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(amountJSON{
		Value:     a.Int().String(),
		Decimals:  a.Decimals,
		Formatted: a.String(),
	})
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var raw amountJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, ok := new(big.Int).SetString(raw.Value, 10)
	if !ok {
		return fmt.Errorf("invalid amount value %q", raw.Value)
	}
	a.Value = v
	a.Decimals = raw.Decimals
	return nil
}
