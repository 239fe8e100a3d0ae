package products

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository handles product persistence.
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

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductDetail fetches a product with unit, currency, and warehouse memberships.
func (r *Repository) GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Unit").
		Preload("Currency").
		Preload("Warehouses").
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts lists products with preloaded relations, newest first.
// Soft-deleted rows are included only when includeDeleted is set.
func (r *Repository) ListProducts(ctx context.Context, includeDeleted bool) ([]models.Product, error) {
	qb := r.db.WithContext(ctx)
	if includeDeleted {
		qb = qb.Unscoped()
	}
	var rows []models.Product
	err := qb.
		Preload("Unit").
		Preload("Currency").
		Preload("Warehouses").
		Order("created_at DESC").
		Find(&rows).
		Error
	return rows, err
}

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct updates an existing product row.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// ReplaceWarehouses replaces the product's warehouse memberships.
func (r *Repository) ReplaceWarehouses(ctx context.Context, product *models.Product, warehouses []models.Warehouse) error {
	return r.db.WithContext(ctx).Model(product).Association("Warehouses").Replace(warehouses)
}

// DeleteProduct soft-deletes a product by ID. Historical line items keep
// resolving against the flagged row.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// FindWarehouses loads warehouse rows for the given IDs.
func (r *Repository) FindWarehouses(ctx context.Context, ids []uuid.UUID) ([]models.Warehouse, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Warehouse
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}
