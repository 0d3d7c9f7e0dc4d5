package gateway

import "errors"

// ErrUnavailable marks transport failures and non-2xx responses from the
// parking API. The portal surfaces it as a generic connectivity notice and
// never retries automatically.
var ErrUnavailable = errors.New("gateway: could not reach the server")

// ErrCheckoutUnavailable means the checkout response carried no redirect URL.
// Fatal for the attempt; the visitor has to retry.
var ErrCheckoutUnavailable = errors.New("gateway: no checkout_url returned")

// ValidationError rejects bad plate input locally, before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "gateway: " + e.Message
}

// RejectionError carries a domain-level rejection from the backend (for
// example, no matching entry scan). Recoverable by editing the input.
type RejectionError struct {
	Detail string
}

func (e *RejectionError) Error() string {
	return "gateway: scan rejected: " + e.Detail
}

// IsValidation reports whether err is a local input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRejection reports whether err is a backend domain rejection.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
