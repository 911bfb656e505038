package service

import (
	"errors"

	"github.com/GoPolymarket/namegate/internal/pkg/apperrors"
)

var (
	ErrFeedChanged     = apperrors.Define(apperrors.ErrState, "FEED_CHANGED", "price feed changed while the registration was priced")
	ErrRegistryChanged = apperrors.Define(apperrors.ErrState, "REGISTRY_CHANGED", "name registry changed while the registration was priced")
	ErrPriceChanged    = apperrors.Define(apperrors.ErrState, "RESERVE_PRICE_CHANGED", "reserve-unit price changed while the quote was priced")
)

// upstream keeps named failures from collaborators and wraps anything else.
func upstream(msg string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.NewUpstream(msg, err)
}
