package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository wires together persistence helpers for units, currencies, and warehouses.
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

// CreateUnit inserts a new unit row.
func (r *Repository) CreateUnit(ctx context.Context, unit *models.Unit) (*models.Unit, error) {
	if err := r.db.WithContext(ctx).Create(unit).Error; err != nil {
		return nil, err
	}
	return unit, nil
}

// FindUnitByID loads a single unit.
func (r *Repository) FindUnitByID(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// UpdateUnit updates an existing unit row.
func (r *Repository) UpdateUnit(ctx context.Context, unit *models.Unit) (*models.Unit, error) {
	if err := r.db.WithContext(ctx).Save(unit).Error; err != nil {
		return nil, err
	}
	return unit, nil
}

// ListUnits returns all units ordered by name.
func (r *Repository) ListUnits(ctx context.Context) ([]models.Unit, error) {
	var rows []models.Unit
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// CreateCurrency inserts a new currency row.
func (r *Repository) CreateCurrency(ctx context.Context, currency *models.Currency) (*models.Currency, error) {
	if err := r.db.WithContext(ctx).Create(currency).Error; err != nil {
		return nil, err
	}
	return currency, nil
}

// FindCurrencyByID loads a single currency.
func (r *Repository) FindCurrencyByID(ctx context.Context, id uuid.UUID) (*models.Currency, error) {
	var currency models.Currency
	if err := r.db.WithContext(ctx).First(&currency, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &currency, nil
}

// UpdateCurrency updates an existing currency row.
func (r *Repository) UpdateCurrency(ctx context.Context, currency *models.Currency) (*models.Currency, error) {
	if err := r.db.WithContext(ctx).Save(currency).Error; err != nil {
		return nil, err
	}
	return currency, nil
}

// ListCurrencies returns all currencies ordered by slug.
func (r *Repository) ListCurrencies(ctx context.Context) ([]models.Currency, error) {
	var rows []models.Currency
	err := r.db.WithContext(ctx).Order("slug ASC").Find(&rows).Error
	return rows, err
}

// CreateWarehouse inserts a new warehouse row.
func (r *Repository) CreateWarehouse(ctx context.Context, warehouse *models.Warehouse) (*models.Warehouse, error) {
	if err := r.db.WithContext(ctx).Create(warehouse).Error; err != nil {
		return nil, err
	}
	return warehouse, nil
}

// FindWarehouseByID loads a single warehouse.
func (r *Repository) FindWarehouseByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	if err := r.db.WithContext(ctx).First(&warehouse, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &warehouse, nil
}

// ListWarehouses returns all warehouses ordered by name.
func (r *Repository) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	var rows []models.Warehouse
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// UpdateWarehouse updates an existing warehouse row.
func (r *Repository) UpdateWarehouse(ctx context.Context, warehouse *models.Warehouse) (*models.Warehouse, error) {
	if err := r.db.WithContext(ctx).Save(warehouse).Error; err != nil {
		return nil, err
	}
	return warehouse, nil
}

// CountWarehouseLinks counts every product ever assigned to the warehouse,
// soft-deleted products included.
func (r *Repository) CountWarehouseLinks(ctx context.Context, warehouseID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("product_warehouses").
		Where("warehouse_id = ?", warehouseID).
		Count(&count).
		Error
	return count, err
}

// DeleteWarehouse removes a warehouse row. The join table cascades.
func (r *Repository) DeleteWarehouse(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Warehouse{}, "id = ?", id).Error
}

// CountWarehouseProducts returns how many non-deleted products are stocked in the warehouse.
func (r *Repository) CountWarehouseProducts(ctx context.Context, warehouseID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("product_warehouses pw").
		Joins("JOIN products p ON p.id = pw.product_id AND p.deleted_at IS NULL").
		Where("pw.warehouse_id = ?", warehouseID).
		Count(&count).
		Error
	return count, err
}
