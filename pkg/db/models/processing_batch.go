package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockledgerhq/stockledger-backend/pkg/enums"
)

// ProcessingBatch groups line items into one admission or release
// transaction. Created open; once Closed flips to true the batch and its
// line items are immutable and the flag never goes back.
type ProcessingBatch struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Description *string         `gorm:"column:description"`
	Type        enums.BatchType `gorm:"column:type;not null"`
	Closed      bool            `gorm:"column:closed;not null;default:false"`
	LineItems   []LineItem      `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (b *ProcessingBatch) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// IsRelease reports whether closing this batch subtracts stock.
func (b ProcessingBatch) IsRelease() bool {
	return b.Type == enums.BatchTypeRelease
}

// IsAdmission reports whether closing this batch adds stock.
func (b ProcessingBatch) IsAdmission() bool {
	return b.Type == enums.BatchTypeAdmission
}
