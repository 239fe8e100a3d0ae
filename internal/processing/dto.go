package processing

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockledgerhq/stockledger-backend/internal/ledger"
	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	"github.com/stockledgerhq/stockledger-backend/pkg/money"
)

// BatchDTO is the batch payload returned to clients. TotalCost is the full
// sum over line costs, rendered at the money scale.
type BatchDTO struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Type        string        `json:"type"`
	Closed      bool          `json:"closed"`
	TotalCost   string        `json:"total_cost"`
	LineItems   []LineItemDTO `json:"line_items"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
}

// LineItemDTO is one product's quantity delta inside a batch.
type LineItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	QuantityChange string    `json:"quantity_change"`
	CustomPrice    *string   `json:"custom_price,omitempty"`
	LineCost       string    `json:"line_cost"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewBatchDTO builds a DTO from the persisted batch.
func NewBatchDTO(batch *models.ProcessingBatch) *BatchDTO {
	dto := &BatchDTO{
		ID:          batch.ID,
		Name:        batch.Name,
		Description: batch.Description,
		Type:        batch.Type.String(),
		Closed:      batch.Closed,
		TotalCost:   money.RoundMoney(ledger.TotalCost(batch.LineItems)).String(),
		LineItems:   make([]LineItemDTO, len(batch.LineItems)),
		CreatedAt:   batch.CreatedAt,
		UpdatedAt:   batch.UpdatedAt,
	}
	for i := range batch.LineItems {
		dto.LineItems[i] = newLineItemDTO(&batch.LineItems[i])
	}
	if batch.DeletedAt.Valid {
		t := batch.DeletedAt.Time
		dto.DeletedAt = &t
	}
	return dto
}

func newLineItemDTO(item *models.LineItem) LineItemDTO {
	dto := LineItemDTO{
		ID:             item.ID,
		ProductID:      item.ProductID,
		QuantityChange: money.RoundQuantity(item.QuantityChange).String(),
		LineCost:       money.RoundMoney(ledger.LineCost(*item)).String(),
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
	if item.Product != nil {
		dto.ProductName = item.Product.Name
	}
	if item.CustomPrice != nil {
		price := money.RoundMoney(*item.CustomPrice).String()
		dto.CustomPrice = &price
	}
	return dto
}
