package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	"github.com/stockledgerhq/stockledger-backend/pkg/enums"
	pkgerrors "github.com/stockledgerhq/stockledger-backend/pkg/errors"
	"github.com/stockledgerhq/stockledger-backend/pkg/money"
)

// Row is one product's aggregate quantity for the month.
type Row struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Unit        string    `json:"unit"`
	Total       string    `json:"total"`
}

// Review is the monthly admission/release aggregation, grouped by product
// over every batch created in the month, open and closed alike.
type Review struct {
	Year       int   `json:"year"`
	Month      int   `json:"month"`
	Admissions []Row `json:"admissions"`
	Releases   []Row `json:"releases"`
}

// Service builds read-only monthly review documents.
type Service interface {
	MonthlyReview(ctx context.Context, year int, month time.Month) (*Review, error)
}

type service struct {
	db *gorm.DB
}

// NewService constructs a reports service instance.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &service{db: db}, nil
}

// MonthlyReview aggregates quantity changes by product for batches created in
// the given month. Sums run over the fixed-point type; nothing here mutates
// ledger state.
func (s *service) MonthlyReview(ctx context.Context, year int, month time.Month) (*Review, error) {
	if month < time.January || month > time.December {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "month must be between 1 and 12")
	}
	if year < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "year is required")
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var items []models.LineItem
	err := s.db.WithContext(ctx).
		Joins("JOIN processing_batches b ON b.id = line_items.batch_id").
		Where("b.deleted_at IS NULL AND b.created_at >= ? AND b.created_at < ?", start, end).
		Preload("Batch").
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Product.Unit").
		Find(&items).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load monthly line items")
	}

	admissions := map[uuid.UUID][]decimal.Decimal{}
	releases := map[uuid.UUID][]decimal.Decimal{}
	productByID := map[uuid.UUID]*models.Product{}

	for i := range items {
		item := &items[i]
		if item.Batch == nil || item.Product == nil {
			continue
		}
		productByID[item.ProductID] = item.Product
		switch item.Batch.Type {
		case enums.BatchTypeAdmission:
			admissions[item.ProductID] = append(admissions[item.ProductID], item.QuantityChange)
		case enums.BatchTypeRelease:
			releases[item.ProductID] = append(releases[item.ProductID], item.QuantityChange)
		}
	}

	return &Review{
		Year:       year,
		Month:      int(month),
		Admissions: buildRows(admissions, productByID),
		Releases:   buildRows(releases, productByID),
	}, nil
}

func buildRows(byProduct map[uuid.UUID][]decimal.Decimal, products map[uuid.UUID]*models.Product) []Row {
	rows := make([]Row, 0, len(byProduct))
	for productID, changes := range byProduct {
		product := products[productID]
		unit := ""
		if product.Unit != nil {
			unit = product.Unit.Slug
		}
		rows = append(rows, Row{
			ProductID:   productID,
			ProductName: product.Name,
			Unit:        unit,
			Total:       money.RoundQuantity(money.Sum(changes...)).String(),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProductName == rows[j].ProductName {
			return rows[i].ProductID.String() < rows[j].ProductID.String()
		}
		return rows[i].ProductName < rows[j].ProductName
	})
	return rows
}
