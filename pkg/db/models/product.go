package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a stocked item. Quantity is mutated only by the ledger engine's
// close apply-step; every other write path treats it as read-only.
//
// Soft deletion keeps the row so historical line items stay resolvable.
type Product struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name       string          `gorm:"column:name;not null"`
	UnitID     uuid.UUID       `gorm:"column:unit_id;type:uuid;not null"`
	Unit       *Unit           `gorm:"foreignKey:UnitID"`
	Quantity   decimal.Decimal `gorm:"column:quantity;type:numeric(10,3);not null;default:0"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null;default:0"`
	CurrencyID uuid.UUID       `gorm:"column:currency_id;type:uuid;not null"`
	Currency   *Currency       `gorm:"foreignKey:CurrencyID"`
	Warehouses []Warehouse     `gorm:"many2many:product_warehouses"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt  gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Amount renders "<quantity> <unit-slug>" for read endpoints.
func (p Product) Amount() string {
	slug := ""
	if p.Unit != nil {
		slug = p.Unit.Slug
	}
	return fmt.Sprintf("%s %s", p.Quantity, slug)
}

// Cost renders "<price> <currency-slug>" for read endpoints.
func (p Product) Cost() string {
	slug := ""
	if p.Currency != nil {
		slug = p.Currency.Slug
	}
	return fmt.Sprintf("%s %s", p.Price, slug)
}
