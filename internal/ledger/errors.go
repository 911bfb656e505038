package ledger

import "github.com/GoPolymarket/namegate/internal/pkg/apperrors"

// Named failure conditions. Match with errors.Is.
var (
	// Reference errors
	ErrZeroReference = apperrors.Define(apperrors.ErrReference, "ZERO_REFERENCE", "zero reference")

	// State errors
	ErrFeedExists   = apperrors.Define(apperrors.ErrState, "FEED_ALREADY_PRESENT", "price feed already present")
	ErrNotAFeed     = apperrors.Define(apperrors.ErrState, "NOT_A_FEED", "not a price feed")
	ErrAlreadyAgent = apperrors.Define(apperrors.ErrState, "ALREADY_AN_AGENT", "already an agent")
	ErrNotAnAgent   = apperrors.Define(apperrors.ErrState, "NOT_AN_AGENT", "not an agent")
	ErrNotPaused    = apperrors.Define(apperrors.ErrState, "NOT_PAUSED", "registrar is not paused")

	// Value-range errors
	ErrInvalidBasePrice     = apperrors.Define(apperrors.ErrValueRange, "INVALID_BASE_PRICE", "invalid base price")
	ErrInvalidReservePrice  = apperrors.Define(apperrors.ErrValueRange, "INVALID_RESERVE_PRICE", "invalid reserve-unit price")
	ErrInvalidCurrencyPrice = apperrors.Define(apperrors.ErrValueRange, "INVALID_CURRENCY_PRICE", "invalid currency price")
	ErrUnsupportedPrecision = apperrors.Define(apperrors.ErrValueRange, "UNSUPPORTED_PRECISION", "unsupported currency precision")
	ErrInvalidPrice         = apperrors.Define(apperrors.ErrValueRange, "INVALID_PRICE", "invalid price")
	ErrInvalidNamePrice     = apperrors.Define(apperrors.ErrValueRange, "INVALID_NAME_PRICE", "invalid name price")
	ErrInvalidRate          = apperrors.Define(apperrors.ErrValueRange, "INVALID_COMMISSION_RATE", "invalid commission rate")
	ErrInvalidAmount        = apperrors.Define(apperrors.ErrValueRange, "INVALID_AMOUNT", "invalid amount")
	ErrAmountOverflow       = apperrors.Define(apperrors.ErrValueRange, "AMOUNT_OVERFLOW", "amount exceeds 256 bits")
	ErrZeroQuote            = apperrors.Define(apperrors.ErrValueRange, "ZERO_QUOTE", "quote rounds to zero in settlement currency")

	// Availability errors
	ErrUnsupportedCurrency  = apperrors.Define(apperrors.ErrAvailability, "UNSUPPORTED_CURRENCY", "unsupported currency")
	ErrInsufficientReserve  = apperrors.Define(apperrors.ErrAvailability, "INSUFFICIENT_RESERVE", "insufficient reserve")
	ErrInsufficientApproval = apperrors.Define(apperrors.ErrAvailability, "INSUFFICIENT_APPROVAL", "insufficient registry approval")
	ErrNothingToForward     = apperrors.Define(apperrors.ErrAvailability, "NOTHING_TO_FORWARD", "nothing to forward")
	ErrPaused               = apperrors.Define(apperrors.ErrGuardPaused, "PAUSED", "registrar is paused")

	// Input-format errors
	ErrInvalidCharacters = apperrors.Define(apperrors.ErrInputFormat, "INVALID_CHARACTERS", "invalid characters")

	// Authorization
	ErrNotOperator = apperrors.Define(apperrors.ErrAuthFailed, "NOT_OPERATOR", "caller is not the operator")
)
