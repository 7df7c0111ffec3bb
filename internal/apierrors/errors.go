// Package apierrors defines the HTTP-facing error shape and the sentinel
// errors the core raises, so ingress adapters can map them to the right
// status code / ack decision (spec ss7) without string-matching messages.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the JSON body returned for any non-2xx response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e APIError) Error() string {
	return e.Message
}

const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeBusinessRejected = "BUSINESS_REJECTED"
	CodeConflict         = "IDEMPOTENCY_CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
)

func NewValidationError(message string) APIError {
	return APIError{Code: CodeValidation, Message: message, Status: http.StatusBadRequest}
}

func NewBusinessRejectedError(reason string) APIError {
	return APIError{Code: CodeBusinessRejected, Message: reason, Status: http.StatusUnprocessableEntity}
}

func NewConflictError(message string) APIError {
	return APIError{Code: CodeConflict, Message: message, Status: http.StatusConflict}
}

func NewInternalError(message string) APIError {
	return APIError{Code: CodeInternal, Message: message, Status: http.StatusInternalServerError}
}

// Sentinel errors raised by the store and processor layers. Ingress adapters
// branch on these with errors.Is, never on message text.
var (
	// ErrAccountNotFound / ErrAccountInactive / ErrCurrencyMismatch /
	// ErrInsufficientFunds / ErrSelfTransfer are business rejections
	// (spec ss4.1 step 3-4): deterministic, never retried, result in a FAILED
	// Transaction committed to the store.
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountInactive    = errors.New("account is not active")
	ErrCurrencyMismatch   = errors.New("currency mismatch")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrSelfTransfer       = errors.New("source and destination account must differ")
	ErrInvalidAmountScale = errors.New("amount has more precision than the supported scale")

	// ErrIdempotencyKeyConflict is the invariant-violation case from spec
	// ss4.1/ss9 Open Question (ii): a Transaction with the requested
	// transactionId already exists but under a different idempotency key.
	// This is a caller contract violation, not a business rejection.
	ErrIdempotencyKeyConflict = errors.New("transaction id exists under a different idempotency key")

	// ErrTransientConflict wraps store-level serialization/deadlock aborts
	// and optimistic version mismatches - the two retryable classes named in
	// spec ss4.1.
	ErrTransientConflict = errors.New("transient store conflict")

	// ErrStoreUnavailable is a transient infrastructure failure: the request
	// leaves no committed side effects and must not be acknowledged upstream.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// IsBusinessRejection reports whether err is one of the deterministic
// validation/business-rejection sentinels that the Processor commits as a
// FAILED Transaction rather than retrying.
func IsBusinessRejection(err error) bool {
	switch {
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrAccountInactive),
		errors.Is(err, ErrCurrencyMismatch),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrInvalidAmountScale):
		return true
	default:
		return false
	}
}

// WrapTransient marks err as a retryable transient conflict.
func WrapTransient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTransientConflict, err)
}
