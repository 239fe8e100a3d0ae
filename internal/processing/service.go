package processing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockledgerhq/stockledger-backend/internal/audit"
	"github.com/stockledgerhq/stockledger-backend/pkg/db"
	"github.com/stockledgerhq/stockledger-backend/pkg/db/models"
	"github.com/stockledgerhq/stockledger-backend/pkg/enums"
	pkgerrors "github.com/stockledgerhq/stockledger-backend/pkg/errors"
	"github.com/stockledgerhq/stockledger-backend/pkg/logger"
)

// Service manages the open phase of a batch's lifecycle: creating batches,
// attaching and editing line items, and discarding batches. Closing belongs
// to the ledger engine.
type Service interface {
	CreateBatch(ctx context.Context, actor string, input CreateBatchInput) (*BatchDTO, error)
	UpdateBatch(ctx context.Context, batchID uuid.UUID, input UpdateBatchInput) (*BatchDTO, error)
	DeleteBatch(ctx context.Context, batchID uuid.UUID, actor string) error
	GetBatch(ctx context.Context, batchID uuid.UUID) (*BatchDTO, error)
	ListBatches(ctx context.Context, includeDeleted bool) ([]BatchDTO, error)
	AddLineItem(ctx context.Context, batchID uuid.UUID, input LineItemInput) (*BatchDTO, error)
	UpdateLineItem(ctx context.Context, batchID, itemID uuid.UUID, input UpdateLineItemInput) (*BatchDTO, error)
	RemoveLineItem(ctx context.Context, batchID, itemID uuid.UUID) (*BatchDTO, error)
}

// CreateBatchInput holds the validated payload to create a batch.
type CreateBatchInput struct {
	Name        string
	Description *string
	Type        string
}

// UpdateBatchInput holds optional mutation values for an open batch. Type is
// immutable after creation.
type UpdateBatchInput struct {
	Name        *string
	Description *string
}

// LineItemInput attaches one product's quantity delta to an open batch.
type LineItemInput struct {
	ProductID      uuid.UUID
	QuantityChange decimal.Decimal
	CustomPrice    *decimal.Decimal
}

// UpdateLineItemInput mutates an existing line item while the batch is open.
type UpdateLineItemInput struct {
	QuantityChange   *decimal.Decimal
	CustomPrice      *decimal.Decimal
	ClearCustomPrice bool
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	sink     audit.Sink
	logg     *logger.Logger
}

// NewService constructs a processing service instance.
func NewService(repo *Repository, dbClient *db.Client, sink audit.Sink, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("processing repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if sink == nil {
		return nil, fmt.Errorf("audit sink required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, dbClient: dbClient, sink: sink, logg: logg}, nil
}

// CreateBatch creates an open batch of the given type.
func (s *service) CreateBatch(ctx context.Context, actor string, input CreateBatchInput) (*BatchDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch name is required")
	}
	batchType, err := enums.ParseBatchType(input.Type)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "type must be admission or release")
	}

	batch := &models.ProcessingBatch{
		Name:        input.Name,
		Description: input.Description,
		Type:        batchType,
	}
	if _, err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert batch")
	}

	s.recordAudit(ctx, audit.Entry{BatchID: batch.ID, Actor: actor, Action: audit.ActionBatchCreated})
	return s.GetBatch(ctx, batch.ID)
}

// UpdateBatch edits name or description while the batch is open.
func (s *service) UpdateBatch(ctx context.Context, batchID uuid.UUID, input UpdateBatchInput) (*BatchDTO, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch name cannot be blank")
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		batch, err := s.loadOpenBatch(ctx, txRepo, batchID)
		if err != nil {
			return err
		}
		if input.Name != nil {
			batch.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			batch.Description = input.Description
		}
		if _, err := txRepo.UpdateBatch(ctx, batch); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update batch")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update batch")
	}

	return s.GetBatch(ctx, batchID)
}

// DeleteBatch discards an open batch. Closed batches are history and cannot
// be removed.
func (s *service) DeleteBatch(ctx context.Context, batchID uuid.UUID, actor string) error {
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := s.loadOpenBatch(ctx, txRepo, batchID); err != nil {
			return err
		}
		if err := txRepo.DeleteBatch(ctx, batchID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete batch")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete batch")
	}

	s.recordAudit(ctx, audit.Entry{BatchID: batchID, Actor: actor, Action: audit.ActionBatchDeleted})
	return nil
}

// GetBatch returns the batch with its line items and total cost.
func (s *service) GetBatch(ctx context.Context, batchID uuid.UUID) (*BatchDTO, error) {
	batch, err := s.repo.FindBatchByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load batch")
	}
	return NewBatchDTO(batch), nil
}

// ListBatches returns all batches; deleted rows only when asked for.
func (s *service) ListBatches(ctx context.Context, includeDeleted bool) ([]BatchDTO, error) {
	rows, err := s.repo.ListBatches(ctx, includeDeleted)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list batches")
	}
	out := make([]BatchDTO, len(rows))
	for i := range rows {
		out[i] = *NewBatchDTO(&rows[i])
	}
	return out, nil
}

// AddLineItem attaches a product delta to an open batch. A product can appear
// at most once per batch.
func (s *service) AddLineItem(ctx context.Context, batchID uuid.UUID, input LineItemInput) (*BatchDTO, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.QuantityChange.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity_change cannot be negative")
	}
	if input.CustomPrice != nil && input.CustomPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom_price cannot be negative")
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := s.loadOpenBatch(ctx, txRepo, batchID); err != nil {
			return err
		}

		var product models.Product
		if err := tx.WithContext(ctx).First(&product, "id = ?", input.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "product does not exist")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}

		item := &models.LineItem{
			BatchID:        batchID,
			ProductID:      input.ProductID,
			QuantityChange: input.QuantityChange,
			CustomPrice:    input.CustomPrice,
		}
		if _, err := txRepo.CreateLineItem(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product already has a line item in this batch")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert line item")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add line item")
	}

	return s.GetBatch(ctx, batchID)
}

// UpdateLineItem mutates quantity or price override while the batch is open.
func (s *service) UpdateLineItem(ctx context.Context, batchID, itemID uuid.UUID, input UpdateLineItemInput) (*BatchDTO, error) {
	if input.QuantityChange != nil && input.QuantityChange.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity_change cannot be negative")
	}
	if input.CustomPrice != nil && input.CustomPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom_price cannot be negative")
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := s.loadOpenBatch(ctx, txRepo, batchID); err != nil {
			return err
		}
		item, err := s.loadBatchItem(ctx, txRepo, batchID, itemID)
		if err != nil {
			return err
		}
		if input.QuantityChange != nil {
			item.QuantityChange = *input.QuantityChange
		}
		if input.ClearCustomPrice {
			item.CustomPrice = nil
		} else if input.CustomPrice != nil {
			item.CustomPrice = input.CustomPrice
		}
		if _, err := txRepo.UpdateLineItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update line item")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line item")
	}

	return s.GetBatch(ctx, batchID)
}

// RemoveLineItem detaches a line item from an open batch.
func (s *service) RemoveLineItem(ctx context.Context, batchID, itemID uuid.UUID) (*BatchDTO, error) {
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := s.loadOpenBatch(ctx, txRepo, batchID); err != nil {
			return err
		}
		if _, err := s.loadBatchItem(ctx, txRepo, batchID, itemID); err != nil {
			return err
		}
		if err := txRepo.DeleteLineItem(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete line item")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove line item")
	}

	return s.GetBatch(ctx, batchID)
}

// loadOpenBatch loads the batch and rejects any mutation once it is closed.
func (s *service) loadOpenBatch(ctx context.Context, repo *Repository, batchID uuid.UUID) (*models.ProcessingBatch, error) {
	batch, err := repo.FindBatchByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load batch")
	}
	if batch.Closed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "batch is closed")
	}
	return batch, nil
}

func (s *service) loadBatchItem(ctx context.Context, repo *Repository, batchID, itemID uuid.UUID) (*models.LineItem, error) {
	item, err := repo.FindLineItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load line item")
	}
	if item.BatchID != batchID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line item not found")
	}
	return item, nil
}

func (s *service) recordAudit(ctx context.Context, entry audit.Entry) {
	if err := s.sink.Record(ctx, entry); err != nil {
		s.logg.Error(s.logg.WithBatchID(ctx, entry.BatchID.String()), "recording batch audit entry", err)
	}
}
