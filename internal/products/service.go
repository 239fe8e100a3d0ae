package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledgerhq/stockledger-backend/pkg/db"
	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	pkgerrors "github.com/stockledgerhq/stockledger-backend/pkg/errors"
	"gorm.io/gorm"
)

// Service exposes catalog-side product management. Stock quantity is not
// writable here; only the ledger's close apply-step mutates it.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, includeDeleted bool) ([]ProductDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name         string
	Price        decimal.Decimal
	UnitID       uuid.UUID
	CurrencyID   uuid.UUID
	WarehouseIDs []uuid.UUID
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name         *string
	Price        *decimal.Decimal
	UnitID       *uuid.UUID
	CurrencyID   *uuid.UUID
	WarehouseIDs *[]uuid.UUID
}

type reservationReader interface {
	ReservedQuantity(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	repo         *Repository
	dbClient     *db.Client
	reservations reservationReader
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient *db.Client, reservations reservationReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if reservations == nil {
		return nil, fmt.Errorf("reservation reader required")
	}
	return &service{repo: repo, dbClient: dbClient, reservations: reservations}, nil
}

// CreateProduct creates the product with its warehouse memberships.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.UnitID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit_id is required")
	}
	if input.CurrencyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency_id is required")
	}

	var createdID uuid.UUID
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		warehouses, err := s.loadWarehouses(ctx, txRepo, input.WarehouseIDs)
		if err != nil {
			return err
		}

		product := &models.Product{
			Name:       input.Name,
			Price:      input.Price,
			UnitID:     input.UnitID,
			CurrencyID: input.CurrencyID,
			Warehouses: warehouses,
		}
		created, err := txRepo.CreateProduct(ctx, product)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		createdID = created.ID
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	return s.GetProduct(ctx, createdID)
}

// UpdateProduct updates catalog fields on an existing product.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be blank")
	}
	if input.Price != nil && input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product, err := txRepo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}

		applyUpdateToProduct(product, input)
		if _, err := txRepo.UpdateProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}

		if input.WarehouseIDs != nil {
			warehouses, err := s.loadWarehouses(ctx, txRepo, *input.WarehouseIDs)
			if err != nil {
				return err
			}
			if err := txRepo.ReplaceWarehouses(ctx, product, warehouses); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace warehouses")
			}
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	return s.GetProduct(ctx, productID)
}

// DeleteProduct soft-deletes the product.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	return nil
}

// GetProduct returns the flat read record, including the live reservation.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product detail")
	}
	reserved, err := s.reservations.ReservedQuantity(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute reservation")
	}
	return NewProductDTO(product, reserved), nil
}

// ListProducts returns all products; deleted rows only when asked for.
func (s *service) ListProducts(ctx context.Context, includeDeleted bool) ([]ProductDTO, error) {
	rows, err := s.repo.ListProducts(ctx, includeDeleted)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	out := make([]ProductDTO, len(rows))
	for i := range rows {
		reserved, err := s.reservations.ReservedQuantity(ctx, rows[i].ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute reservation")
		}
		out[i] = *NewProductDTO(&rows[i], reserved)
	}
	return out, nil
}

func (s *service) loadWarehouses(ctx context.Context, repo *Repository, ids []uuid.UUID) ([]models.Warehouse, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	warehouses, err := repo.FindWarehouses(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load warehouses")
	}
	if len(warehouses) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "one or more warehouse ids do not exist")
	}
	return warehouses, nil
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.UnitID != nil {
		product.UnitID = *input.UnitID
	}
	if input.CurrencyID != nil {
		product.CurrencyID = *input.CurrencyID
	}
}
