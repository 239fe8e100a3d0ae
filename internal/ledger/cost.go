package ledger

import (
	"github.com/shopspring/decimal"
	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	"github.com/stockledgerhq/stockledger-backend/pkg/money"
)

// LineCost returns quantity * unit price for one line item, at full
// precision. The custom price override wins when present. A zero quantity
// yields the exact fixed-point zero on both price paths.
func LineCost(item models.LineItem) decimal.Decimal {
	return money.Multiply(item.QuantityChange, item.UnitPrice())
}

// TotalCost sums LineCost over the given items. An empty set costs the exact
// fixed-point zero, identical for open and closed batches.
func TotalCost(items []models.LineItem) decimal.Decimal {
	costs := make([]decimal.Decimal, len(items))
	for i, item := range items {
		costs[i] = LineCost(item)
	}
	return money.Sum(costs...)
}
