package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	pkgerrors "github.com/stockledgerhq/stockledger-backend/pkg/errors"
	"gorm.io/gorm"
)

// Service exposes reference-data management for units, currencies, and warehouses.
type Service interface {
	CreateUnit(ctx context.Context, name, slug string) (*UnitDTO, error)
	UpdateUnit(ctx context.Context, id uuid.UUID, name, slug string) (*UnitDTO, error)
	ListUnits(ctx context.Context) ([]UnitDTO, error)
	CreateCurrency(ctx context.Context, name, slug string) (*CurrencyDTO, error)
	UpdateCurrency(ctx context.Context, id uuid.UUID, name, slug string) (*CurrencyDTO, error)
	ListCurrencies(ctx context.Context) ([]CurrencyDTO, error)
	CreateWarehouse(ctx context.Context, name string) (*WarehouseDTO, error)
	UpdateWarehouse(ctx context.Context, id uuid.UUID, name string) (*WarehouseDTO, error)
	DeleteWarehouse(ctx context.Context, id uuid.UUID) error
	ListWarehouses(ctx context.Context) ([]WarehouseDTO, error)
	GetWarehouse(ctx context.Context, id uuid.UUID) (*WarehouseDTO, error)
}

// UnitDTO is the unit payload returned to clients.
type UnitDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// CurrencyDTO is the currency payload returned to clients.
type CurrencyDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// WarehouseDTO is the warehouse payload returned to clients.
type WarehouseDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ProductCount int64     `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type service struct {
	repo *Repository
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateUnit(ctx context.Context, name, slug string) (*UnitDTO, error) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit name is required")
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit slug is required")
	}
	unit, err := s.repo.CreateUnit(ctx, &models.Unit{Name: name, Slug: slug})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert unit")
	}
	return newUnitDTO(unit), nil
}

func (s *service) UpdateUnit(ctx context.Context, id uuid.UUID, name, slug string) (*UnitDTO, error) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit name is required")
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit slug is required")
	}
	unit, err := s.repo.FindUnitByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load unit")
	}
	unit.Name = name
	unit.Slug = slug
	if _, err := s.repo.UpdateUnit(ctx, unit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update unit")
	}
	return newUnitDTO(unit), nil
}

func (s *service) ListUnits(ctx context.Context) ([]UnitDTO, error) {
	rows, err := s.repo.ListUnits(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list units")
	}
	out := make([]UnitDTO, len(rows))
	for i := range rows {
		out[i] = *newUnitDTO(&rows[i])
	}
	return out, nil
}

func (s *service) CreateCurrency(ctx context.Context, name, slug string) (*CurrencyDTO, error) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency name is required")
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency slug is required")
	}
	currency, err := s.repo.CreateCurrency(ctx, &models.Currency{Name: name, Slug: slug})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert currency")
	}
	return newCurrencyDTO(currency), nil
}

func (s *service) UpdateCurrency(ctx context.Context, id uuid.UUID, name, slug string) (*CurrencyDTO, error) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency name is required")
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency slug is required")
	}
	currency, err := s.repo.FindCurrencyByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "currency not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load currency")
	}
	currency.Name = name
	currency.Slug = slug
	if _, err := s.repo.UpdateCurrency(ctx, currency); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update currency")
	}
	return newCurrencyDTO(currency), nil
}

func (s *service) ListCurrencies(ctx context.Context) ([]CurrencyDTO, error) {
	rows, err := s.repo.ListCurrencies(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list currencies")
	}
	out := make([]CurrencyDTO, len(rows))
	for i := range rows {
		out[i] = *newCurrencyDTO(&rows[i])
	}
	return out, nil
}

func (s *service) CreateWarehouse(ctx context.Context, name string) (*WarehouseDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse name is required")
	}
	warehouse, err := s.repo.CreateWarehouse(ctx, &models.Warehouse{Name: name})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert warehouse")
	}
	return newWarehouseDTO(warehouse, 0), nil
}

func (s *service) UpdateWarehouse(ctx context.Context, id uuid.UUID, name string) (*WarehouseDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse name is required")
	}
	warehouse, err := s.repo.FindWarehouseByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load warehouse")
	}
	warehouse.Name = name
	if _, err := s.repo.UpdateWarehouse(ctx, warehouse); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update warehouse")
	}
	count, err := s.repo.CountWarehouseProducts(ctx, warehouse.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count warehouse products")
	}
	return newWarehouseDTO(warehouse, count), nil
}

// DeleteWarehouse removes a warehouse outright. Warehouses carry no ledger
// history of their own, but any product assignment, live or soft-deleted,
// blocks the delete.
func (s *service) DeleteWarehouse(ctx context.Context, id uuid.UUID) error {
	warehouse, err := s.repo.FindWarehouseByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load warehouse")
	}
	links, err := s.repo.CountWarehouseLinks(ctx, warehouse.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count warehouse links")
	}
	if links > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "warehouse still has products assigned").
			WithDetails(map[string]any{"product_count": links})
	}
	if err := s.repo.DeleteWarehouse(ctx, warehouse.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete warehouse")
	}
	return nil
}

func (s *service) ListWarehouses(ctx context.Context) ([]WarehouseDTO, error) {
	rows, err := s.repo.ListWarehouses(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list warehouses")
	}
	out := make([]WarehouseDTO, len(rows))
	for i := range rows {
		count, err := s.repo.CountWarehouseProducts(ctx, rows[i].ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count warehouse products")
		}
		out[i] = *newWarehouseDTO(&rows[i], count)
	}
	return out, nil
}

func (s *service) GetWarehouse(ctx context.Context, id uuid.UUID) (*WarehouseDTO, error) {
	warehouse, err := s.repo.FindWarehouseByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load warehouse")
	}
	count, err := s.repo.CountWarehouseProducts(ctx, warehouse.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count warehouse products")
	}
	return newWarehouseDTO(warehouse, count), nil
}

func newUnitDTO(unit *models.Unit) *UnitDTO {
	return &UnitDTO{ID: unit.ID, Name: unit.Name, Slug: unit.Slug, CreatedAt: unit.CreatedAt}
}

func newCurrencyDTO(currency *models.Currency) *CurrencyDTO {
	return &CurrencyDTO{ID: currency.ID, Name: currency.Name, Slug: currency.Slug, CreatedAt: currency.CreatedAt}
}

func newWarehouseDTO(warehouse *models.Warehouse, productCount int64) *WarehouseDTO {
	return &WarehouseDTO{
		ID:           warehouse.ID,
		Name:         warehouse.Name,
		ProductCount: productCount,
		CreatedAt:    warehouse.CreatedAt,
	}
}
