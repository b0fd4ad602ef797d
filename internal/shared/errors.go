package shared

import "errors"

// Error taxonomy shared by every module. Domain errors wrap exactly one of
// these so callers classify failures with errors.Is.
var (
	// ErrValidation covers malformed input: non-integer or non-positive
	// quantities, missing selections, duplicate destinations.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates an unknown product, outlet or other reference.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock indicates an issue or transfer exceeding the
	// available balance.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict covers uniqueness violations and blocked deletions.
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates a location outside the caller's scope.
	ErrForbidden = errors.New("forbidden")
	// ErrUnavailable marks a transaction that was aborted before commit,
	// e.g. on timeout. Retrying the same request is safe.
	ErrUnavailable = errors.New("temporarily unavailable")
)

// UserSafeMessage returns a message that can be shown to API callers
// without leaking internal details.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrForbidden):
		return err.Error()
	default:
		return "internal error, please retry"
	}
}
