package allocation

import "errors"

var (
	// ErrValidation: the order or allocation is not in a state that allows the
	// requested transition, or the input is out of range.
	ErrValidation = errors.New("invalid state")
	// ErrInsufficientStock: a hard stock failure (oversell not allowed, or the
	// chosen batch no longer holds enough plants).
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNotFound: a referenced order, allocation, product or batch does not exist
	// in the caller's organization.
	ErrNotFound = errors.New("not found")
)

// Kind classifies an error for the action boundary.
type Kind string

const (
	KindNone           Kind = ""
	KindValidation     Kind = "validation"
	KindStock          Kind = "stock"
	KindNotFound       Kind = "not_found"
	KindInfrastructure Kind = "infrastructure"
)

// KindOf maps err onto the error taxonomy. Anything not wrapping one of the
// sentinel errors is an infrastructure failure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInsufficientStock):
		return KindStock
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInfrastructure
	}
}
