package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits carried by balances and
// amounts. Sub-cent precision is rejected rather than rounded.
const MoneyScale = 2

// ValidateAmount checks a caller-supplied monetary amount: it must be strictly
// positive and must not require more than MoneyScale fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	// Compare against the truncated value so representations with trailing
	// zeros, such as 10.100, are accepted.
	if !amount.Equal(amount.Truncate(MoneyScale)) {
		return fmt.Errorf("%w: amount precision exceeds %d decimal places", ErrInvalidAmount, MoneyScale)
	}
	return nil
}
