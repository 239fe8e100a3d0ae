package processing

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockledgerhq/stockledger-backend/internal/audit"
	"github.com/stockledgerhq/stockledger-backend/pkg/db"
	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	"github.com/stockledgerhq/stockledger-backend/pkg/enums"
	pkgerrors "github.com/stockledgerhq/stockledger-backend/pkg/errors"
	"github.com/stockledgerhq/stockledger-backend/pkg/logger"
)

type recordingSink struct {
	entries []audit.Entry
}

func (r *recordingSink) Record(_ context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:processing_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		&models.AuditEntry{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB, *recordingSink) {
	t.Helper()
	conn := openTestDB(t)
	sink := &recordingSink{}
	logg := logger.New(logger.Options{ServiceName: "processing-test", Output: io.Discard})
	svc, err := NewService(NewRepository(conn), db.NewFromGorm(conn), sink, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn, sink
}

func mustCreateProduct(t *testing.T, conn *gorm.DB, price string) *models.Product {
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
		Name:       "Test Product",
		Price:      decimal.RequireFromString(price),
		UnitID:     unit.ID,
		CurrencyID: currency.ID,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func closeBatch(t *testing.T, conn *gorm.DB, batchID uuid.UUID) {
	t.Helper()
	if err := conn.Model(&models.ProcessingBatch{}).
		Where("id = ?", batchID).
		Update("closed", true).Error; err != nil {
		t.Fatalf("close batch: %v", err)
	}
}

func TestCreateBatch(t *testing.T) {
	ctx := context.Background()
	svc, _, sink := newTestService(t)

	desc := "weekly intake"
	created, err := svc.CreateBatch(ctx, "ops@example.com", CreateBatchInput{
		Name:        "  Intake 12  ",
		Description: &desc,
		Type:        "admission",
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if created.Name != "Intake 12" || created.Type != "admission" || created.Closed {
		t.Fatalf("unexpected batch %+v", created)
	}
	if created.TotalCost != "0" {
		t.Fatalf("empty batch total must be exact zero, got %q", created.TotalCost)
	}
	if len(sink.entries) != 1 || sink.entries[0].Action != audit.ActionBatchCreated {
		t.Fatalf("expected batch_created audit entry, got %+v", sink.entries)
	}

	if _, err := svc.CreateBatch(ctx, "ops", CreateBatchInput{Name: "x", Type: "transfer"}); err == nil {
		t.Fatal("expected validation error for unknown type")
	}
	if _, err := svc.CreateBatch(ctx, "ops", CreateBatchInput{Name: "  ", Type: "release"}); err == nil {
		t.Fatal("expected validation error for blank name")
	}
}

func TestLineItemLifecycleAndCosts(t *testing.T) {
	ctx := context.Background()
	svc, conn, _ := newTestService(t)
	product := mustCreateProduct(t, conn, "4.00")

	batch, err := svc.CreateBatch(ctx, "ops", CreateBatchInput{Name: "Release 3", Type: "release"})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}

	withItem, err := svc.AddLineItem(ctx, batch.ID, LineItemInput{
		ProductID:      product.ID,
		QuantityChange: decimal.RequireFromString("3"),
	})
	if err != nil {
		t.Fatalf("add line item: %v", err)
	}
	if len(withItem.LineItems) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(withItem.LineItems))
	}
	if withItem.LineItems[0].LineCost != "12" {
		t.Fatalf("expected line cost 12 at product price, got %q", withItem.LineItems[0].LineCost)
	}
	if withItem.TotalCost != "12" {
		t.Fatalf("expected total 12, got %q", withItem.TotalCost)
	}

	custom := decimal.RequireFromString("2.50")
	updated, err := svc.UpdateLineItem(ctx, batch.ID, withItem.LineItems[0].ID, UpdateLineItemInput{
		CustomPrice: &custom,
	})
	if err != nil {
		t.Fatalf("update line item: %v", err)
	}
	if updated.LineItems[0].LineCost != "7.5" {
		t.Fatalf("expected custom-price cost 7.5, got %q", updated.LineItems[0].LineCost)
	}

	cleared, err := svc.UpdateLineItem(ctx, batch.ID, withItem.LineItems[0].ID, UpdateLineItemInput{
		ClearCustomPrice: true,
	})
	if err != nil {
		t.Fatalf("clear custom price: %v", err)
	}
	if cleared.LineItems[0].CustomPrice != nil {
		t.Fatal("custom price should be cleared")
	}
	if cleared.LineItems[0].LineCost != "12" {
		t.Fatalf("expected cost back at product price, got %q", cleared.LineItems[0].LineCost)
	}

	empty, err := svc.RemoveLineItem(ctx, batch.ID, withItem.LineItems[0].ID)
	if err != nil {
		t.Fatalf("remove line item: %v", err)
	}
	if len(empty.LineItems) != 0 || empty.TotalCost != "0" {
		t.Fatalf("expected empty batch with zero total, got %+v", empty)
	}
}

func TestBatchCostSurvivesProductSoftDelete(t *testing.T) {
	ctx := context.Background()
	svc, conn, _ := newTestService(t)
	product := mustCreateProduct(t, conn, "5.00")

	batch, err := svc.CreateBatch(ctx, "ops", CreateBatchInput{Name: "Admission 9", Type: "admission"})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	withItem, err := svc.AddLineItem(ctx, batch.ID, LineItemInput{
		ProductID:      product.ID,
		QuantityChange: decimal.RequireFromString("2"),
	})
	if err != nil {
		t.Fatalf("add line item: %v", err)
	}
	if withItem.TotalCost != "10" {
		t.Fatalf("expected total 10, got %q", withItem.TotalCost)
	}

	if err := conn.Delete(&models.Product{}, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("soft delete product: %v", err)
	}

	// line items keep pricing against the deleted product row
	got, err := svc.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if got.TotalCost != "10" {
		t.Fatalf("total cost changed after product soft delete: 10 -> %q", got.TotalCost)
	}
	if len(got.LineItems) != 1 || got.LineItems[0].LineCost != "10" {
		t.Fatalf("expected line cost 10 after soft delete, got %+v", got.LineItems)
	}

	listed, err := svc.ListBatches(ctx, false)
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(listed) != 1 || listed[0].TotalCost != "10" {
		t.Fatalf("expected listed total 10 after soft delete, got %+v", listed)
	}
}

func TestDuplicateLineItemRejected(t *testing.T) {
	ctx := context.Background()
	svc, conn, _ := newTestService(t)
	product := mustCreateProduct(t, conn, "1.00")

	batch, err := svc.CreateBatch(ctx, "ops", CreateBatchInput{Name: "B", Type: "admission"})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	first, err := svc.AddLineItem(ctx, batch.ID, LineItemInput{
		ProductID:      product.ID,
		QuantityChange: decimal.RequireFromString("5"),
	})
	if err != nil {
		t.Fatalf("add line item: %v", err)
	}

	_, err = svc.AddLineItem(ctx, batch.ID, LineItemInput{
		ProductID:      product.ID,
		QuantityChange: decimal.RequireFromString("9"),
	})
	if err == nil {
		t.Fatal("expected duplicate rejection")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict code, got %v", err)
	}

	// the existing item is untouched
	got, err := svc.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if len(got.LineItems) != 1 || got.LineItems[0].QuantityChange != first.LineItems[0].QuantityChange {
		t.Fatalf("existing item must be unmodified, got %+v", got.LineItems)
	}
}

func TestMutationAfterCloseRejected(t *testing.T) {
	ctx := context.Background()
	svc, conn, _ := newTestService(t)
	product := mustCreateProduct(t, conn, "1.00")

	batch, err := svc.CreateBatch(ctx, "ops", CreateBatchInput{Name: "B", Type: "release"})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	withItem, err := svc.AddLineItem(ctx, batch.ID, LineItemInput{
		ProductID:      product.ID,
		QuantityChange: decimal.RequireFromString("1"),
	})
	if err != nil {
		t.Fatalf("add line item: %v", err)
	}
	closeBatch(t, conn, batch.ID)

	newName := "renamed"
	qty := decimal.RequireFromString("2")
	mutations := []struct {
		name string
		call func() error
	}{
		{"update batch", func() error {
			_, err := svc.UpdateBatch(ctx, batch.ID, UpdateBatchInput{Name: &newName})
			return err
		}},
		{"delete batch", func() error {
			return svc.DeleteBatch(ctx, batch.ID, "ops")
		}},
		{"add line item", func() error {
			other := mustCreateProduct(t, conn, "1.00")
			_, err := svc.AddLineItem(ctx, batch.ID, LineItemInput{ProductID: other.ID, QuantityChange: qty})
			return err
		}},
		{"update line item", func() error {
			_, err := svc.UpdateLineItem(ctx, batch.ID, withItem.LineItems[0].ID, UpdateLineItemInput{QuantityChange: &qty})
			return err
		}},
		{"remove line item", func() error {
			_, err := svc.RemoveLineItem(ctx, batch.ID, withItem.LineItems[0].ID)
			return err
		}},
	}
	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			err := m.call()
			if err == nil {
				t.Fatal("expected rejection on closed batch")
			}
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
				t.Fatalf("expected state conflict, got %v", err)
			}
		})
	}

	// reads still work
	got, err := svc.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if !got.Closed || len(got.LineItems) != 1 {
		t.Fatalf("closed batch should read back intact, got %+v", got)
	}
}

func TestDeleteBatchIsSoft(t *testing.T) {
	ctx := context.Background()
	svc, conn, sink := newTestService(t)

	batch, err := svc.CreateBatch(ctx, "ops", CreateBatchInput{Name: "Scratch", Type: "admission"})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if err := svc.DeleteBatch(ctx, batch.ID, "ops@example.com"); err != nil {
		t.Fatalf("delete batch: %v", err)
	}
	if len(sink.entries) != 2 || sink.entries[1].Action != audit.ActionBatchDeleted {
		t.Fatalf("expected batch_deleted audit entry, got %+v", sink.entries)
	}

	visible, err := svc.ListBatches(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 0 {
		t.Fatalf("deleted batch should be hidden, got %d", len(visible))
	}
	all, err := svc.ListBatches(ctx, true)
	if err != nil {
		t.Fatalf("list include deleted: %v", err)
	}
	if len(all) != 1 || all[0].DeletedAt == nil {
		t.Fatal("include-deleted list should surface the row with deleted_at")
	}

	var count int64
	if err := conn.Unscoped().Model(&models.ProcessingBatch{}).Where("id = ?", batch.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatal("soft delete must keep the row")
	}
}

func TestVisibleFields(t *testing.T) {
	open := VisibleFields(false)
	if open["name"] != FieldEditable || open["line_items"] != FieldEditable {
		t.Fatalf("open batch fields should be editable, got %v", open)
	}
	if open["type"] != FieldReadOnly {
		t.Fatal("type is immutable even while open")
	}

	closed := VisibleFields(true)
	for field, mode := range closed {
		if mode != FieldReadOnly {
			t.Fatalf("closed batch field %s must be read only, got %s", field, mode)
		}
	}
}

func TestBatchTypeParsing(t *testing.T) {
	if _, err := enums.ParseBatchType("admission"); err != nil {
		t.Fatalf("admission should parse: %v", err)
	}
	if _, err := enums.ParseBatchType("release"); err != nil {
		t.Fatalf("release should parse: %v", err)
	}
	if _, err := enums.ParseBatchType("transfer"); err == nil {
		t.Fatal("unknown type must not parse")
	}
}
