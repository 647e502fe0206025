package domain

import "errors"

// Sentinel domain errors, classified by IsXError helpers below so the HTTP
// front can map them without a second switch. The outbox worker does not
// classify errors: any dispatch failure marks the event FAILED.
var (
	// Validation errors (422 at the HTTP boundary, never retried).
	ErrInvalidSupplierCode = errors.New("supplier code is required")
	ErrInvalidOfficeCode   = errors.New("office code is required")
	ErrUnsafeFreeText      = errors.New("free text field contains disallowed content")
	ErrRawPAN              = errors.New("raw card number is not allowed in customer snapshot")

	// Business rule errors (400, never retried).
	ErrInvalidTimeWindow       = errors.New("dropoff must be after pickup")
	ErrInvalidAmount           = errors.New("total amount must be positive")
	ErrReservationNotFound     = errors.New("reservation not found")
	ErrInvalidTransition       = errors.New("invalid reservation status transition")
	ErrCodeGenerationExhausted = errors.New("exhausted reservation code generation attempts")
	ErrUnknownOutboxEventType  = errors.New("unknown outbox event type")

	// Store errors (500). The code generator retries codes its exists
	// predicate reports as taken, up to its own cap; an ErrDuplicateCode
	// returned by Save (a code taken between that check and the insert) is
	// not retried and reaches the caller.
	ErrStoreFailure  = errors.New("store operation failed")
	ErrDuplicateCode = errors.New("reservation code already exists")

	// Resilience-fabric errors. Never propagate past a provider adapter —
	// always mapped to a Result (spec.md §4.6) — but are typed so internal
	// callers of the breaker/retry packages can match on them.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// IsValidationError reports whether err should surface as HTTP 422.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidSupplierCode) ||
		errors.Is(err, ErrInvalidOfficeCode) ||
		errors.Is(err, ErrUnsafeFreeText) ||
		errors.Is(err, ErrRawPAN)
}

// IsBusinessRuleError reports whether err should surface as HTTP 400
// (spec.md §7 lists dropoff-before-pickup and non-positive amount as
// BusinessRuleError examples, alongside CodeGenerationExhausted and
// ReservationNotFound).
func IsBusinessRuleError(err error) bool {
	return errors.Is(err, ErrInvalidTimeWindow) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrReservationNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrCodeGenerationExhausted) ||
		errors.Is(err, ErrUnknownOutboxEventType)
}

// IsStoreError reports whether err should surface as HTTP 500.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStoreFailure) || errors.Is(err, ErrDuplicateCode)
}
