package ledger

import (
	"math/big"

	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
)

const (
	// PriceDecimals is the scale of the reserve-unit USD price.
	PriceDecimals uint8 = 18
	// OracleDecimals is the scale oracles report USD prices in.
	OracleDecimals uint8 = 8
	// MinCurrencyDecimals is the smallest settlement-currency precision accepted.
	MinCurrencyDecimals uint8 = 6
)

// Quote converts a base name price, denominated in the reserve unit, into the
// settlement currency: base * reservePriceUSD / currencyPriceUSD, expressed
// with currencyDecimals.
//
// The whole conversion is a single arbitrary-precision product divided once, so
// the only rounding is the final floor to the settlement currency's precision.
// Quote is pure; registration and read-only price lookups both call it.
func Quote(basePrice, reservePriceUSD, currencyPriceUSD fixedpoint.Amount, currencyDecimals uint8) (fixedpoint.Amount, error) {
	if basePrice.Sign() <= 0 {
		return fixedpoint.Amount{}, ErrInvalidBasePrice
	}
	if reservePriceUSD.Sign() <= 0 {
		return fixedpoint.Amount{}, ErrInvalidReservePrice
	}
	if currencyPriceUSD.Sign() <= 0 {
		return fixedpoint.Amount{}, ErrInvalidCurrencyPrice
	}
	if currencyDecimals < MinCurrencyDecimals {
		return fixedpoint.Amount{}, ErrUnsupportedPrecision
	}

	// num = base * reserve * 10^(out + currencyPrice.dec)
	// den = currencyPrice * 10^(base.dec + reserve.dec)
	num := new(big.Int).Mul(basePrice.Value, reservePriceUSD.Value)
	num.Mul(num, fixedpoint.Pow10(uint(currencyDecimals)+uint(currencyPriceUSD.Decimals)))

	den := new(big.Int).Mul(currencyPriceUSD.Value, fixedpoint.Pow10(uint(basePrice.Decimals)+uint(reservePriceUSD.Decimals)))

	out := num.Quo(num, den)
	if !fixedpoint.FitsUint256(out) {
		return fixedpoint.Amount{}, ErrAmountOverflow
	}
	if out.Sign() == 0 {
		return fixedpoint.Amount{}, ErrZeroQuote
	}
	return fixedpoint.Amount{Value: out, Decimals: currencyDecimals}, nil
}
