package processing

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository handles processing batch and line item persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateBatch inserts a new batch row.
func (r *Repository) CreateBatch(ctx context.Context, batch *models.ProcessingBatch) (*models.ProcessingBatch, error) {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

// FindBatchByID loads a batch with its line items and their products.
// Products load unscoped: a soft-deleted product must still price the
// line items that reference it.
func (r *Repository) FindBatchByID(ctx context.Context, id uuid.UUID) (*models.ProcessingBatch, error) {
	var batch models.ProcessingBatch
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("LineItems.Product", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		Preload("LineItems.Product.Unit").
		Preload("LineItems.Product.Currency").
		First(&batch, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// UpdateBatch updates an existing batch row.
func (r *Repository) UpdateBatch(ctx context.Context, batch *models.ProcessingBatch) (*models.ProcessingBatch, error) {
	if err := r.db.WithContext(ctx).Save(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

// DeleteBatch soft-deletes a batch. Line items stay in place under the
// flagged row.
func (r *Repository) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProcessingBatch{}).Error
}

// ListBatches lists batches newest first, line items preloaded. Soft-deleted
// rows are included only when includeDeleted is set.
func (r *Repository) ListBatches(ctx context.Context, includeDeleted bool) ([]models.ProcessingBatch, error) {
	qb := r.db.WithContext(ctx)
	if includeDeleted {
		qb = qb.Unscoped()
	}
	var rows []models.ProcessingBatch
	err := qb.
		Preload("LineItems").
		Preload("LineItems.Product", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		Order("created_at DESC").
		Find(&rows).
		Error
	return rows, err
}

// CreateLineItem inserts a line item row. The unique (batch, product) index
// rejects duplicates at write time.
func (r *Repository) CreateLineItem(ctx context.Context, item *models.LineItem) (*models.LineItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// FindLineItemByID loads a line item with its product.
func (r *Repository) FindLineItemByID(ctx context.Context, id uuid.UUID) (*models.LineItem, error) {
	var item models.LineItem
	err := r.db.WithContext(ctx).
		Preload("Product", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		First(&item, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateLineItem updates an existing line item row.
func (r *Repository) UpdateLineItem(ctx context.Context, item *models.LineItem) (*models.LineItem, error) {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteLineItem removes a line item by ID.
func (r *Repository) DeleteLineItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.LineItem{}).Error
}
