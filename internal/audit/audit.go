package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Actions recorded against processing batches.
const (
	ActionBatchCreated = "batch_created"
	ActionBatchClosed  = "batch_closed"
	ActionBatchDeleted = "batch_deleted"
)

// Entry captures a single lifecycle event to be recorded.
type Entry struct {
	BatchID uuid.UUID
	Actor   string
	Action  string
	Comment string
}

// Sink receives lifecycle events. Implementations must be safe to call
// after the transaction that produced the event has committed.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
}

// Store persists audit entries to the database.
type Store struct {
	db *gorm.DB
}

// NewStore builds a store tied to the provided GORM DB.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Record inserts an audit entry row.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.BatchID == uuid.Nil {
		return fmt.Errorf("batch id is required")
	}
	if entry.Action == "" {
		return fmt.Errorf("action is required")
	}
	row := &models.AuditEntry{
		BatchID: entry.BatchID,
		Actor:   entry.Actor,
		Action:  entry.Action,
	}
	if entry.Comment != "" {
		row.Comment = &entry.Comment
	}
	return s.db.WithContext(ctx).Create(row).Error
}

// ListByBatch returns the audit trail for a batch, oldest first.
func (s *Store) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.AuditEntry, error) {
	var rows []models.AuditEntry
	err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}
