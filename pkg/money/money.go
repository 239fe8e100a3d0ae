// Package money provides the fixed-point arithmetic used for product
// quantities and prices. Quantities carry three decimal places, monetary
// values two; both are decimal.Decimal end to end so no caller ever sees a
// binary float.
package money

import "github.com/shopspring/decimal"

const (
	// MoneyScale is the number of decimal places carried by monetary values.
	MoneyScale int32 = 2
	// QuantityScale is the number of decimal places carried by stock quantities.
	QuantityScale int32 = 3
)

// Zero is the exact fixed-point zero.
var Zero = decimal.Zero

// Multiply returns qty * unitPrice at full precision. The result keeps the
// combined scale of both inputs; rounding to MoneyScale happens only at
// display time via RoundMoney.
func Multiply(qty, unitPrice decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice)
}

// Sum adds the given values without losing precision. An empty input sums to
// the exact decimal zero, never an absent value.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// RoundMoney rounds half-up to MoneyScale. Display-path only; internal
// accumulation stays at full precision.
func RoundMoney(value decimal.Decimal) decimal.Decimal {
	return value.Round(MoneyScale)
}

// RoundQuantity rounds half-up to QuantityScale.
func RoundQuantity(value decimal.Decimal) decimal.Decimal {
	return value.Round(QuantityScale)
}
