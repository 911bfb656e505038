package ledger

import (
	"errors"
	"math/big"
	"testing"

	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	// 1000 reserve-unit tokens at the registry's 6-decimal tier precision.
	tierPrice7   = fixedpoint.FromInt64(1_000_000_000, 6)
	reservePrice = fixedpoint.MustParse("0.01175", PriceDecimals)
	usdtPrice    = fixedpoint.MustParse("1", OracleDecimals)
)

func TestQuoteStablecoin(t *testing.T) {
	// 1000 * 0.01175 / 1 = 11.75 USDT
	got, err := Quote(tierPrice7, reservePrice, usdtPrice, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(11_750_000), got.Value.Int64())
	assert.Equal(t, uint8(6), got.Decimals)
	assert.Equal(t, "11.75", got.String())
}

func TestQuoteFloorsOnlyOnce(t *testing.T) {
	btc := fixedpoint.MustParse("25964.5", OracleDecimals)
	got, err := Quote(tierPrice7, reservePrice, btc, 8)
	require.NoError(t, err)

	// floor(1000 * 0.01175 / 25964.5 * 1e8) computed directly
	num := new(big.Int).Mul(big.NewInt(1175), fixedpoint.Pow10(8))
	num.Mul(num, big.NewInt(10)) // 11.75 -> 1175 / 100, btc -> 259645 / 10
	den := new(big.Int).Mul(big.NewInt(259645), big.NewInt(100))
	want := new(big.Int).Quo(num, den)
	assert.Equal(t, want.String(), got.Value.String())
}

func TestQuoteEighteenDecimals(t *testing.T) {
	eth := fixedpoint.MustParse("1637.17", OracleDecimals)
	got, err := Quote(tierPrice7, reservePrice, eth, 18)
	require.NoError(t, err)

	// 11.75 / 1637.17 at 18 decimals
	num := new(big.Int).Mul(big.NewInt(1175), fixedpoint.Pow10(18))
	den := big.NewInt(163717)
	want := new(big.Int).Quo(num, den)
	assert.Equal(t, want.String(), got.Value.String())
}

func TestQuoteIsDeterministic(t *testing.T) {
	a, err := Quote(tierPrice7, reservePrice, usdtPrice, 6)
	require.NoError(t, err)
	b, err := Quote(tierPrice7, reservePrice, usdtPrice, 6)
	require.NoError(t, err)
	assert.Equal(t, a.Value.String(), b.Value.String())
}

func TestQuoteFailures(t *testing.T) {
	cases := []struct {
		name     string
		base     fixedpoint.Amount
		reserve  fixedpoint.Amount
		currency fixedpoint.Amount
		decimals uint8
		want     error
	}{
		{"zero base", fixedpoint.Zero(6), reservePrice, usdtPrice, 6, ErrInvalidBasePrice},
		{"zero reserve price", tierPrice7, fixedpoint.Zero(18), usdtPrice, 6, ErrInvalidReservePrice},
		{"zero oracle reading", tierPrice7, reservePrice, fixedpoint.Zero(8), 6, ErrInvalidCurrencyPrice},
		{"five decimals", tierPrice7, reservePrice, usdtPrice, 5, ErrUnsupportedPrecision},
		{"rounds to zero", fixedpoint.FromInt64(1, 6), reservePrice, fixedpoint.MustParse("100000", 8), 6, ErrZeroQuote},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Quote(tc.base, tc.reserve, tc.currency, tc.decimals)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestQuoteChecksBasePriceFirst(t *testing.T) {
	_, err := Quote(fixedpoint.Zero(6), fixedpoint.Zero(18), fixedpoint.Zero(8), 2)
	assert.True(t, errors.Is(err, ErrInvalidBasePrice))
}
