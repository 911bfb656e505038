package handler

import (
	"strconv"
	"strings"

	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/GoPolymarket/namegate/internal/pkg/apperrors"
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// rateDecimals is the fractional precision of a percent commission rate.
const rateDecimals = 6

func parseAddress(field, raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, apperrors.NewInvalidRequest(field + " must be a 0x-prefixed 20-byte hex address")
	}
	return common.HexToAddress(raw), nil
}

// parseOptionalAddress treats an empty value as the zero address.
func parseOptionalAddress(field, raw string) (common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return common.Address{}, nil
	}
	return parseAddress(field, raw)
}

func parseAmount(field, raw string, decimals uint8) (fixedpoint.Amount, error) {
	a, err := fixedpoint.Parse(strings.TrimSpace(raw), decimals)
	if err != nil {
		return fixedpoint.Amount{}, apperrors.New(apperrors.ErrInvalidRequest, field+": "+err.Error(), err)
	}
	return a, nil
}

// parseRate reads a percent ("20", "12.5") into commission-scale units.
func parseRate(raw string) (uint64, error) {
	a, err := parseAmount("rate", raw, rateDecimals)
	if err != nil {
		return 0, err
	}
	if !a.Value.IsUint64() || a.Value.Uint64() > ledger.CommissionScale {
		return 0, ledger.ErrInvalidRate.Withf("%s%%", raw)
	}
	return a.Value.Uint64(), nil
}

func queryLimit(c *gin.Context, def, max int) int {
	limit := def
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

func bindError(err error) error {
	return apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err)
}

