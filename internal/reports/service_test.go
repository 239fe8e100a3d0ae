package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	"github.com/stockledgerhq/stockledger-backend/pkg/enums"
	pkgerrors "github.com/stockledgerhq/stockledger-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:reports_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Unit{},
		&models.Currency{},
		&models.Product{},
		&models.ProcessingBatch{},
		&models.LineItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func mustCreateProduct(t *testing.T, conn *gorm.DB, name string) *models.Product {
	t.Helper()
	unit := &models.Unit{Name: "Kilogram", Slug: "kg_" + uuid.NewString()[:8]}
	currency := &models.Currency{Name: "US Dollar", Slug: "usd_" + uuid.NewString()[:8]}
	if err := conn.Create(unit).Error; err != nil {
		t.Fatalf("create unit: %v", err)
	}
	if err := conn.Create(currency).Error; err != nil {
		t.Fatalf("create currency: %v", err)
	}
	product := &models.Product{
		Name:       name,
		Price:      decimal.NewFromInt(1),
		UnitID:     unit.ID,
		CurrencyID: currency.ID,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func mustCreateBatchAt(t *testing.T, conn *gorm.DB, batchType enums.BatchType, closed bool, createdAt time.Time) *models.ProcessingBatch {
	t.Helper()
	batch := &models.ProcessingBatch{Name: "B", Type: batchType, Closed: closed}
	if err := conn.Create(batch).Error; err != nil {
		t.Fatalf("create batch: %v", err)
	}
	// autoCreateTime wins on insert; pin the window explicitly
	if err := conn.Model(batch).UpdateColumn("created_at", createdAt).Error; err != nil {
		t.Fatalf("set created_at: %v", err)
	}
	return batch
}

func mustCreateItem(t *testing.T, conn *gorm.DB, batchID, productID uuid.UUID, quantity string) {
	t.Helper()
	item := &models.LineItem{
		BatchID:        batchID,
		ProductID:      productID,
		QuantityChange: decimal.RequireFromString(quantity),
	}
	if err := conn.Create(item).Error; err != nil {
		t.Fatalf("create line item: %v", err)
	}
}

func TestMonthlyReview(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	svc, err := NewService(conn)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	flour := mustCreateProduct(t, conn, "Flour")
	sugar := mustCreateProduct(t, conn, "Sugar")

	inMonth := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	otherMonth := time.Date(2026, time.April, 2, 12, 0, 0, 0, time.UTC)

	admissionOpen := mustCreateBatchAt(t, conn, enums.BatchTypeAdmission, false, inMonth)
	mustCreateItem(t, conn, admissionOpen.ID, flour.ID, "5")

	admissionClosed := mustCreateBatchAt(t, conn, enums.BatchTypeAdmission, true, inMonth)
	mustCreateItem(t, conn, admissionClosed.ID, flour.ID, "2.5")
	mustCreateItem(t, conn, admissionClosed.ID, sugar.ID, "1")

	release := mustCreateBatchAt(t, conn, enums.BatchTypeRelease, true, inMonth)
	mustCreateItem(t, conn, release.ID, flour.ID, "3")

	// outside the window; must not show up
	outside := mustCreateBatchAt(t, conn, enums.BatchTypeAdmission, false, otherMonth)
	mustCreateItem(t, conn, outside.ID, flour.ID, "100")

	review, err := svc.MonthlyReview(ctx, 2026, time.March)
	if err != nil {
		t.Fatalf("monthly review: %v", err)
	}
	if review.Year != 2026 || review.Month != 3 {
		t.Fatalf("unexpected period %d-%d", review.Year, review.Month)
	}

	if len(review.Admissions) != 2 {
		t.Fatalf("expected 2 admission rows, got %d", len(review.Admissions))
	}
	// rows are sorted by product name
	if review.Admissions[0].ProductName != "Flour" || review.Admissions[0].Total != "7.5" {
		t.Fatalf("unexpected flour admissions %+v", review.Admissions[0])
	}
	if review.Admissions[1].ProductName != "Sugar" || review.Admissions[1].Total != "1" {
		t.Fatalf("unexpected sugar admissions %+v", review.Admissions[1])
	}

	if len(review.Releases) != 1 {
		t.Fatalf("expected 1 release row, got %d", len(review.Releases))
	}
	if review.Releases[0].ProductName != "Flour" || review.Releases[0].Total != "3" {
		t.Fatalf("unexpected releases %+v", review.Releases[0])
	}
}

func TestMonthlyReviewKeepsSoftDeletedProducts(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	svc, err := NewService(conn)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	salt := mustCreateProduct(t, conn, "Salt")
	inMonth := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	admission := mustCreateBatchAt(t, conn, enums.BatchTypeAdmission, true, inMonth)
	mustCreateItem(t, conn, admission.ID, salt.ID, "4")

	if err := conn.Delete(&models.Product{}, "id = ?", salt.ID).Error; err != nil {
		t.Fatalf("soft delete product: %v", err)
	}

	review, err := svc.MonthlyReview(ctx, 2026, time.March)
	if err != nil {
		t.Fatalf("monthly review: %v", err)
	}
	if len(review.Admissions) != 1 {
		t.Fatalf("expected the closed batch's history to survive the product's soft delete, got %d admission rows", len(review.Admissions))
	}
	if review.Admissions[0].ProductName != "Salt" || review.Admissions[0].Total != "4" {
		t.Fatalf("unexpected admission row %+v", review.Admissions[0])
	}
}

func TestMonthlyReviewEmptyMonth(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	svc, err := NewService(conn)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	review, err := svc.MonthlyReview(ctx, 2026, time.January)
	if err != nil {
		t.Fatalf("monthly review: %v", err)
	}
	if len(review.Admissions) != 0 || len(review.Releases) != 0 {
		t.Fatalf("expected empty review, got %+v", review)
	}
}

func TestMonthlyReviewValidation(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	svc, err := NewService(conn)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.MonthlyReview(ctx, 2026, time.Month(13)); err == nil {
		t.Fatal("expected validation error for month 13")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	if _, err := svc.MonthlyReview(ctx, 0, time.March); err == nil {
		t.Fatal("expected validation error for year 0")
	}
}
