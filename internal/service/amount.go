package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var minorUnitFactor = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit decimal amount to integer minor currency
// units, rounding half up.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnitFactor).Round(0).IntPart()
}

// ValidateAmount compares a local major-unit total against a provider
// minor-unit amount. Exact equality is required; any mismatch is
// ErrWrongAmount and aborts placement.
func ValidateAmount(local decimal.Decimal, providerMinor int64) error {
	localMinor := ToMinorUnits(local)
	if localMinor != providerMinor {
		return fmt.Errorf("%w: local %d, provider %d", ErrWrongAmount, localMinor, providerMinor)
	}
	return nil
}
