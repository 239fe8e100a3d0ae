package products

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	"github.com/stockledgerhq/stockledger-backend/pkg/money"
)

// ProductDTO is the flat read record exposed for a product. Fixed-point
// values travel as strings so no reader ever sees a binary float.
type ProductDTO struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Quantity          string     `json:"quantity"`
	Price             string     `json:"price"`
	Unit              string     `json:"unit"`
	Currency          string     `json:"currency"`
	Warehouses        []string   `json:"warehouses"`
	Amount            string     `json:"amount"`
	Cost              string     `json:"cost"`
	ReservationAmount string     `json:"reservation_amount"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
}

// NewProductDTO builds a DTO from the persisted model and the live reserved
// quantity computed by the ledger.
func NewProductDTO(product *models.Product, reserved decimal.Decimal) *ProductDTO {
	unitSlug := ""
	if product.Unit != nil {
		unitSlug = product.Unit.Slug
	}
	currencySlug := ""
	if product.Currency != nil {
		currencySlug = product.Currency.Slug
	}

	dto := &ProductDTO{
		ID:                product.ID,
		Name:              product.Name,
		Quantity:          money.RoundQuantity(product.Quantity).String(),
		Price:             money.RoundMoney(product.Price).String(),
		Unit:              unitSlug,
		Currency:          currencySlug,
		Warehouses:        make([]string, len(product.Warehouses)),
		Amount:            product.Amount(),
		Cost:              product.Cost(),
		ReservationAmount: fmt.Sprintf("%s %s", money.RoundQuantity(reserved), unitSlug),
		CreatedAt:         product.CreatedAt,
		UpdatedAt:         product.UpdatedAt,
	}
	for i, w := range product.Warehouses {
		dto.Warehouses[i] = w.Name
	}
	if product.DeletedAt.Valid {
		t := product.DeletedAt.Time
		dto.DeletedAt = &t
	}
	return dto
}
