package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockledgerhq/stockledger-backend/internal/audit"
	"github.com/stockledgerhq/stockledger-backend/pkg/db"
	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	"github.com/stockledgerhq/stockledger-backend/pkg/enums"
	pkgerrors "github.com/stockledgerhq/stockledger-backend/pkg/errors"
	"github.com/stockledgerhq/stockledger-backend/pkg/logger"
	"github.com/stockledgerhq/stockledger-backend/pkg/metrics"
	"github.com/stockledgerhq/stockledger-backend/pkg/money"
)

// Engine computes reservations and runs the batch closing protocol. It is
// stateless; everything it knows comes from the current ledger rows.
type Engine struct {
	dbClient *db.Client
	logg     *logger.Logger
	sink     audit.Sink
	closes   *metrics.CloseMetrics
}

// NewEngine constructs the ledger engine.
func NewEngine(dbClient *db.Client, logg *logger.Logger, sink audit.Sink, closes *metrics.CloseMetrics) (*Engine, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if sink == nil {
		return nil, fmt.Errorf("audit sink required")
	}
	return &Engine{dbClient: dbClient, logg: logg, sink: sink, closes: closes}, nil
}

// ReservedQuantity sums quantity changes over every line item that belongs to
// an open release batch and references the product. Closed batches and
// admissions contribute nothing. Computed live at query time.
func (e *Engine) ReservedQuantity(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	items, err := e.openReleaseItems(ctx, e.dbClient.DB(), productID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load open release items")
	}
	changes := make([]decimal.Decimal, len(items))
	for i, item := range items {
		changes[i] = item.QuantityChange
	}
	return money.Sum(changes...), nil
}

// AvailableQuantity is on-hand minus reserved. Derived, never stored.
func (e *Engine) AvailableQuantity(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	var product models.Product
	if err := e.dbClient.DB().WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	reserved, err := e.ReservedQuantity(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return product.Quantity.Sub(reserved), nil
}

// CloseCheck reports why a batch cannot close. Both fields zero means it can.
type CloseCheck struct {
	AlreadyClosed        bool
	InfeasibleProductIDs []uuid.UUID
}

// CanClose is the all-or-nothing gate over the whole batch.
func (c CloseCheck) CanClose() bool {
	return !c.AlreadyClosed && len(c.InfeasibleProductIDs) == 0
}

// CheckClose evaluates the closing gate without mutating anything. The result
// is advisory; Close re-validates inside its own transaction.
func (e *Engine) CheckClose(ctx context.Context, batchID uuid.UUID) (*CloseCheck, error) {
	conn := e.dbClient.DB()
	batch, err := e.loadBatch(ctx, conn, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Closed {
		return &CloseCheck{AlreadyClosed: true}, nil
	}
	failing, err := e.infeasibleProducts(ctx, conn, batch)
	if err != nil {
		return nil, err
	}
	return &CloseCheck{InfeasibleProductIDs: failing}, nil
}

// Close runs the closing protocol: inside one transaction it re-validates
// every line item against current on-hand stock, applies the quantity deltas,
// and flips the closed flag. Any failure leaves quantities and the flag
// untouched. The audit sink fires only after the commit.
func (e *Engine) Close(ctx context.Context, batchID uuid.UUID, actor, comment string) error {
	start := time.Now()
	batchType := ""

	err := e.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		batch, err := e.loadBatch(ctx, tx, batchID)
		if err != nil {
			return err
		}
		batchType = batch.Type.String()

		if batch.Closed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "batch already closed")
		}

		products, err := e.lockProducts(ctx, tx, batch)
		if err != nil {
			return err
		}

		if batch.IsRelease() {
			var failing []uuid.UUID
			for _, item := range batch.LineItems {
				product := products[item.ProductID]
				if product.Quantity.Sub(item.QuantityChange).IsNegative() {
					failing = append(failing, item.ProductID)
				}
			}
			if len(failing) > 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock to close batch").
					WithDetails(map[string]any{"product_ids": failing})
			}
		}

		for _, item := range batch.LineItems {
			product := products[item.ProductID]
			next := product.Quantity
			if batch.IsAdmission() {
				next = next.Add(item.QuantityChange)
			} else {
				next = next.Sub(item.QuantityChange)
			}
			res := tx.WithContext(ctx).Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				Update("quantity", next)
			if res.Error != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "db: apply quantity change")
			}
			if res.RowsAffected != 1 {
				return pkgerrors.New(pkgerrors.CodeDependency, "product row vanished during close")
			}
			product.Quantity = next
			products[item.ProductID] = product
		}

		// guarded flip so a racing closer cannot double-apply
		res := tx.WithContext(ctx).Model(&models.ProcessingBatch{}).
			Where("id = ? AND closed = ?", batch.ID, false).
			Update("closed", true)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "db: mark batch closed")
		}
		if res.RowsAffected != 1 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "batch already closed")
		}
		return nil
	})

	e.closes.ObserveDuration(batchType, time.Since(start))

	if err != nil {
		e.closes.IncFailure(batchType, closeFailureReason(err))
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close batch")
	}

	e.closes.IncSuccess(batchType)

	entry := audit.Entry{BatchID: batchID, Actor: actor, Action: audit.ActionBatchClosed, Comment: comment}
	if sinkErr := e.sink.Record(ctx, entry); sinkErr != nil {
		// the close committed; a lost audit row must not unwind it
		e.logg.Error(e.logg.WithBatchID(ctx, batchID.String()), "recording close audit entry", sinkErr)
	}
	return nil
}

func (e *Engine) loadBatch(ctx context.Context, conn *gorm.DB, batchID uuid.UUID) (*models.ProcessingBatch, error) {
	var batch models.ProcessingBatch
	err := conn.WithContext(ctx).
		Preload("LineItems").
		First(&batch, "id = ?", batchID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load batch")
	}
	return &batch, nil
}

// lockProducts loads every referenced product row, taking row locks where the
// store supports them. SQLite serializes writers on its own.
func (e *Engine) lockProducts(ctx context.Context, tx *gorm.DB, batch *models.ProcessingBatch) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, len(batch.LineItems))
	for i, item := range batch.LineItems {
		ids[i] = item.ProductID
	}
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q := tx.WithContext(ctx).Unscoped()
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []models.Product
	if err := q.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock products")
	}
	var deleted []string
	for _, row := range rows {
		if row.DeletedAt.Valid {
			deleted = append(deleted, row.ID.String())
			continue
		}
		out[row.ID] = row
	}
	if len(deleted) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "batch references a deleted product").
			WithDetails(map[string]any{"product_ids": deleted})
	}
	if len(out) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "batch references a missing product")
	}
	return out, nil
}

// infeasibleProducts lists the products that would make Close fail: lines
// referencing a soft-deleted product, and release lines that would drive
// on-hand stock negative.
func (e *Engine) infeasibleProducts(ctx context.Context, conn *gorm.DB, batch *models.ProcessingBatch) ([]uuid.UUID, error) {
	var failing []uuid.UUID
	for _, item := range batch.LineItems {
		var product models.Product
		if err := conn.WithContext(ctx).Unscoped().First(&product, "id = ?", item.ProductID).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		if product.DeletedAt.Valid {
			failing = append(failing, item.ProductID)
			continue
		}
		if batch.IsRelease() && product.Quantity.Sub(item.QuantityChange).IsNegative() {
			failing = append(failing, item.ProductID)
		}
	}
	return failing, nil
}

func (e *Engine) openReleaseItems(ctx context.Context, conn *gorm.DB, productID uuid.UUID) ([]models.LineItem, error) {
	var items []models.LineItem
	err := conn.WithContext(ctx).
		Joins("JOIN processing_batches b ON b.id = line_items.batch_id").
		Where("b.type = ? AND b.closed = ? AND b.deleted_at IS NULL", enums.BatchTypeRelease, false).
		Where("line_items.product_id = ?", productID).
		Find(&items).
		Error
	return items, err
}

func closeFailureReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "transaction"
	}
	switch typed.Code() {
	case pkgerrors.CodeNotFound:
		return "not_found"
	case pkgerrors.CodeStateConflict:
		if typed.Details() != nil {
			return "infeasible"
		}
		return "already_closed"
	default:
		return "transaction"
	}
}
