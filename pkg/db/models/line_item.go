package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LineItem is one product's quantity delta inside a batch. The magnitude is
// always positive; the owning batch's type decides whether it adds or
// subtracts. A product appears at most once per batch.
type LineItem struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	BatchID        uuid.UUID        `gorm:"column:batch_id;type:uuid;not null;uniqueIndex:idx_line_items_product_batch"`
	Batch          *ProcessingBatch `gorm:"foreignKey:BatchID"`
	ProductID      uuid.UUID        `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_line_items_product_batch"`
	Product        *Product         `gorm:"foreignKey:ProductID"`
	QuantityChange decimal.Decimal  `gorm:"column:quantity_change;type:numeric(10,3);not null;default:0"`
	CustomPrice    *decimal.Decimal `gorm:"column:custom_price;type:numeric(10,2)"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (li *LineItem) BeforeCreate(*gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	return nil
}

// UnitPrice returns the custom price override when present, the product's
// price otherwise.
func (li LineItem) UnitPrice() decimal.Decimal {
	if li.CustomPrice != nil {
		return *li.CustomPrice
	}
	if li.Product != nil {
		return li.Product.Price
	}
	return decimal.Zero
}
