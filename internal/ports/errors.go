package ports

import "errors"

// Standard application-level errors.
// Core packages return these (usually wrapped with %w and detail) so callers
// can render a specific message per kind instead of a generic failure.
var (
	// Validation errors: bad input shape or range. Reported synchronously,
	// never retried, never fatal to the process.
	ErrInvalidPrice       = errors.New("entry and stop-loss prices must be positive")
	ErrUnknownProductType = errors.New("unknown product type")
	ErrInvalidDirection   = errors.New("entry/stop-loss direction is invalid for the product type")
	ErrInvalidParameter   = errors.New("parameter out of range")
	ErrInvalidPercentage  = errors.New("sell percentage must be in (0, 100]")

	// Lookup errors: not retryable without a valid id.
	ErrNotFound = errors.New("trade not found")

	// State errors: operating on a trade in the wrong lifecycle state.
	// The caller must re-fetch current state before retrying.
	ErrTradeNotOpen      = errors.New("trade is not open")
	ErrNoUnitsRemaining  = errors.New("no units remaining to sell")
	ErrAlreadyClosed     = errors.New("trade is already closed")
	ErrImmutableField    = errors.New("field cannot be modified")
	ErrInvalidTransition = errors.New("status transition not allowed")

	// Database errors: the persistence adapter wraps infrastructure
	// failures with these so callers stay driver-agnostic.
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
	ErrDeleteFailed = errors.New("database delete failed")
)
