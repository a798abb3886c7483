// Package apperr defines the shared error taxonomy for Makola.
//
// Services return these sentinels (usually wrapped with %w and extra
// context); controllers translate them to HTTP statuses with Status().
//
//	if err := svc.Grant(...); err != nil {
//	    response.Error(w, apperr.Status(err), err.Error())
//	    return
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated means the bearer credential is missing or invalid.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the caller's role check failed.
	ErrForbidden = errors.New("forbidden")

	// ErrMfaRequired means an admin grant was attempted without a verified
	// second factor. Controllers add requireMfa:true to the response body.
	ErrMfaRequired = errors.New("mfa verification required")

	// ErrReasonRequired means an admin grant was attempted without a reason.
	ErrReasonRequired = errors.New("reason required")

	// ErrBadRequest covers malformed or invalid input.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound covers missing records, and records the caller may not see.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers lost write races: a pending payment already exists,
	// a shopper job already taken, a status changed underneath the caller.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition means the requested order status change is not an
	// edge of the lifecycle table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUpstream means the backing store itself failed.
	ErrUpstream = errors.New("upstream failure")
)

// BadRequestf wraps ErrBadRequest with a formatted message.
func BadRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrBadRequest}, args...)...)
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

// Status maps an error to its HTTP status code. Unknown errors are treated
// as upstream failures (500).
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrMfaRequired),
		errors.Is(err, ErrReasonRequired):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
