package fixedpoint

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRescale(t *testing.T) {
	v := big.NewInt(1_000_000_000) // 1000 at 6 decimals

	up := Rescale(v, 6, 18)
	assert.Equal(t, "1000000000000000000000", up.String())

	down := Rescale(big.NewInt(11_759_999), 6, 2)
	assert.Equal(t, int64(1175), down.Int64(), "scaling down floors")

	same := Rescale(v, 6, 6)
	same.SetInt64(1)
	assert.Equal(t, int64(1_000_000_000), v.Int64(), "rescale must not alias its input")
}

func TestParse(t *testing.T) {
	a, err := Parse("0.01175", 18)
	require.NoError(t, err)
	assert.Equal(t, "11750000000000000", a.Value.String())
	assert.Equal(t, uint8(18), a.Decimals)

	rate, err := Parse("20", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000_000), rate.Value.Int64())

	_, err = Parse("1.1234567", 6)
	assert.Error(t, err, "more fractional digits than the scale")

	_, err = Parse("-1", 6)
	assert.Error(t, err)

	_, err = Parse("abc", 6)
	assert.Error(t, err)
}

func TestAmountFormattingAndCompare(t *testing.T) {
	a := FromInt64(11_750_000, 6)
	assert.Equal(t, "11.75", a.String())

	b := MustParse("11.75", 18)
	assert.Equal(t, 0, a.Cmp(b))
	assert.Equal(t, -1, Zero(6).Cmp(a))

	assert.Equal(t, "1000", Units(1000, 18).String())
	assert.True(t, Amount{}.IsZero())
}

func TestAmountJSONRoundTrip(t *testing.T) {
	a := FromInt64(11_750_000, 6)
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"11750000","decimals":6,"formatted":"11.75"}`, string(raw))

	var back Amount
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, 0, back.Cmp(a))
}

func TestFitsUint256(t *testing.T) {
	assert.True(t, FitsUint256(big.NewInt(0)))
	assert.False(t, FitsUint256(big.NewInt(-1)))
	assert.False(t, FitsUint256(new(big.Int).Lsh(big.NewInt(1), 256)))
	assert.False(t, FitsUint256(nil))
}
