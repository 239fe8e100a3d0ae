package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEntry records who performed a batch close and when. Written after the
// closing transaction commits; the ledger core never reads it back.
type AuditEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BatchID   uuid.UUID `gorm:"column:batch_id;type:uuid;not null;index"`
	Actor     string    `gorm:"column:actor;not null"`
	Action    string    `gorm:"column:action;not null"`
	Comment   *string   `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *AuditEntry) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
