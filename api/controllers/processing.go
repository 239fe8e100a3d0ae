package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockledgerhq/stockledger-backend/api/middleware"
	"github.com/stockledgerhq/stockledger-backend/api/responses"
	"github.com/stockledgerhq/stockledger-backend/api/validators"
	"github.com/stockledgerhq/stockledger-backend/internal/audit"
	"github.com/stockledgerhq/stockledger-backend/internal/ledger"
	"github.com/stockledgerhq/stockledger-backend/internal/processing"
	pkgerrors "github.com/stockledgerhq/stockledger-backend/pkg/errors"
	"github.com/stockledgerhq/stockledger-backend/pkg/logger"
)

type batchCreateRequest struct {
	Name        string  `json:"name" validate:"required,min=1"`
	Description *string `json:"description,omitempty"`
	Type        string  `json:"type" validate:"required,oneof=admission release"`
}

func (req batchCreateRequest) toInput() processing.CreateBatchInput {
	return processing.CreateBatchInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
	}
}

type batchUpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Description *string `json:"description,omitempty"`
}

func (req batchUpdateRequest) toInput() processing.UpdateBatchInput {
	return processing.UpdateBatchInput{
		Name:        req.Name,
		Description: req.Description,
	}
}

type lineItemCreateRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	QuantityChange string    `json:"quantity_change" validate:"required"`
	CustomPrice    *string   `json:"custom_price,omitempty"`
}

func (req lineItemCreateRequest) toInput() (processing.LineItemInput, error) {
	qty, err := decimal.NewFromString(req.QuantityChange)
	if err != nil {
		return processing.LineItemInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "quantity_change must be a decimal string")
	}
	input := processing.LineItemInput{
		ProductID:      req.ProductID,
		QuantityChange: qty,
	}
	if req.CustomPrice != nil {
		price, err := decimal.NewFromString(*req.CustomPrice)
		if err != nil {
			return processing.LineItemInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "custom_price must be a decimal string")
		}
		input.CustomPrice = &price
	}
	return input, nil
}

type lineItemUpdateRequest struct {
	QuantityChange   *string `json:"quantity_change,omitempty"`
	CustomPrice      *string `json:"custom_price,omitempty"`
	ClearCustomPrice bool    `json:"clear_custom_price,omitempty"`
}

func (req lineItemUpdateRequest) toInput() (processing.UpdateLineItemInput, error) {
	input := processing.UpdateLineItemInput{ClearCustomPrice: req.ClearCustomPrice}
	if req.QuantityChange != nil {
		qty, err := decimal.NewFromString(*req.QuantityChange)
		if err != nil {
			return processing.UpdateLineItemInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "quantity_change must be a decimal string")
		}
		input.QuantityChange = &qty
	}
	if req.CustomPrice != nil {
		price, err := decimal.NewFromString(*req.CustomPrice)
		if err != nil {
			return processing.UpdateLineItemInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "custom_price must be a decimal string")
		}
		input.CustomPrice = &price
	}
	return input, nil
}

func BatchCreate(svc processing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "processing service unavailable"))
			return
		}

		var payload batchCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		batch, err := svc.CreateBatch(r.Context(), actor, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, batch)
	}
}

func BatchUpdate(svc processing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "processing service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload batchUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.UpdateBatch(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, batch)
	}
}

func BatchDelete(svc processing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "processing service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if err := svc.DeleteBatch(r.Context(), id, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

type batchDetailResponse struct {
	Batch  *processing.BatchDTO `json:"batch"`
	Fields map[string]string    `json:"fields"`
}

// BatchDetail returns the batch along with per-field edit modes so clients
// can grey out inputs once the batch closes.
func BatchDetail(svc processing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "processing service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.GetBatch(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, batchDetailResponse{
			Batch:  batch,
			Fields: processing.VisibleFields(batch.Closed),
		})
	}
}

func BatchList(svc processing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "processing service unavailable"))
			return
		}

		includeDeleted, err := validators.ParseQueryBool(r, "include_deleted", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListBatches(r.Context(), includeDeleted)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func LineItemAdd(svc processing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "processing service unavailable"))
			return
		}

		batchID, err := validators.ParseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload lineItemCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.AddLineItem(r.Context(), batchID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, batch)
	}
}

func LineItemUpdate(svc processing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "processing service unavailable"))
			return
		}

		batchID, err := validators.ParseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload lineItemUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.UpdateLineItem(r.Context(), batchID, itemID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, batch)
	}
}

func LineItemRemove(svc processing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "processing service unavailable"))
			return
		}

		batchID, err := validators.ParseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.RemoveLineItem(r.Context(), batchID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, batch)
	}
}

type batchCloseRequest struct {
	Comment string `json:"comment,omitempty"`
}

// BatchClose runs the closing transaction. Stock only ever moves through
// this handler.
func BatchClose(engine *ledger.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger engine unavailable"))
			return
		}

		batchID, err := validators.ParseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload batchCloseRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		actor := middleware.ActorFromContext(r.Context())
		if err := engine.Close(r.Context(), batchID, actor, payload.Comment); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"message": "batch closed, product quantities updated",
		})
	}
}

type closeCheckResponse struct {
	CanClose             bool        `json:"can_close"`
	AlreadyClosed        bool        `json:"already_closed"`
	InfeasibleProductIDs []uuid.UUID `json:"infeasible_product_ids,omitempty"`
}

// BatchCheckClose is an advisory dry run. The closing transaction revalidates
// everything, so a positive answer here can still fail on close.
func BatchCheckClose(engine *ledger.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger engine unavailable"))
			return
		}

		batchID, err := validators.ParseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		check, err := engine.CheckClose(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, closeCheckResponse{
			CanClose:             check.CanClose(),
			AlreadyClosed:        check.AlreadyClosed,
			InfeasibleProductIDs: check.InfeasibleProductIDs,
		})
	}
}

type auditEntryResponse struct {
	ID        uuid.UUID `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func BatchAuditTrail(store *audit.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit store unavailable"))
			return
		}

		batchID, err := validators.ParseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := store.ListByBatch(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]auditEntryResponse, 0, len(entries))
		for _, entry := range entries {
			out = append(out, auditEntryResponse{
				ID:        entry.ID,
				Actor:     entry.Actor,
				Action:    entry.Action,
				Comment:   entry.Comment,
				CreatedAt: entry.CreatedAt,
			})
		}

		responses.WriteSuccess(w, out)
	}
}
