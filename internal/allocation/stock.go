package allocation

import "fmt"

// EffectiveATS returns the quantity still available to sell for a product.
// An override replaces the calculated batch stock; product tier reservations are
// subtracted from whichever base applies. Batch tier allocations are not subtracted
// here because they have already been taken off the batch quantity.
func EffectiveATS(calculated int, override *int, reserved int) int {
	base := calculated
	if override != nil {
		base = *override
	}
	return base - reserved
}

// Level is a coarse stock indicator shown next to a product.
type Level string

const (
	LevelOutOfStock Level = "out_of_stock"
	LevelLow        Level = "low"
	LevelOK         Level = "ok"
)

// StockLevel compares the effective ATS with the low stock threshold.
func StockLevel(ats, threshold int) Level {
	switch {
	case ats <= 0:
		return LevelOutOfStock
	case ats <= threshold:
		return LevelLow
	default:
		return LevelOK
	}
}

// CheckOversell decides what happens when requested exceeds ats.
// Returns ("", nil) when there is enough stock, a warning when the product allows
// oversell, and an ErrInsufficientStock-wrapped error otherwise.
func CheckOversell(product string, requested, ats int, allowOversell bool) (string, error) {
	if requested <= ats {
		return "", nil
	}
	if !allowOversell {
		return "", fmt.Errorf("%w: %s has %d available to sell, %d requested", ErrInsufficientStock, product, max(ats, 0), requested)
	}
	return fmt.Sprintf("%s is oversold: %d available to sell, %d requested (short %d)",
		product, max(ats, 0), requested, requested-max(ats, 0)), nil
}

// ValidatePickedQuantity rejects picked quantities outside [0, quantity].
func ValidatePickedQuantity(quantity, picked int) error {
	if picked < 0 {
		return fmt.Errorf("%w: picked quantity cannot be negative", ErrValidation)
	}
	if picked > quantity {
		return fmt.Errorf("%w: picked quantity %d exceeds allocated quantity %d", ErrValidation, picked, quantity)
	}
	return nil
}

// Shortage returns nil when the allocation was fully picked, otherwise the
// number of plants missing.
func Shortage(quantity, picked int) *int {
	if picked >= quantity {
		return nil
	}
	s := quantity - picked
	return &s
}
