package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockledgerhq/stockledger-backend/api/responses"
	"github.com/stockledgerhq/stockledger-backend/api/validators"
	"github.com/stockledgerhq/stockledger-backend/internal/products"
	pkgerrors "github.com/stockledgerhq/stockledger-backend/pkg/errors"
	"github.com/stockledgerhq/stockledger-backend/pkg/logger"
)

type productCreateRequest struct {
	Name         string      `json:"name" validate:"required,min=1"`
	Price        string      `json:"price" validate:"required"`
	UnitID       uuid.UUID   `json:"unit_id" validate:"required"`
	CurrencyID   uuid.UUID   `json:"currency_id" validate:"required"`
	WarehouseIDs []uuid.UUID `json:"warehouse_ids,omitempty"`
}

func (req productCreateRequest) toInput() (products.CreateProductInput, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return products.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price must be a decimal string")
	}
	return products.CreateProductInput{
		Name:         req.Name,
		Price:        price,
		UnitID:       req.UnitID,
		CurrencyID:   req.CurrencyID,
		WarehouseIDs: req.WarehouseIDs,
	}, nil
}

type productUpdateRequest struct {
	Name         *string      `json:"name,omitempty" validate:"omitempty,min=1"`
	Price        *string      `json:"price,omitempty"`
	UnitID       *uuid.UUID   `json:"unit_id,omitempty"`
	CurrencyID   *uuid.UUID   `json:"currency_id,omitempty"`
	WarehouseIDs *[]uuid.UUID `json:"warehouse_ids,omitempty"`
}

func (req productUpdateRequest) toInput() (products.UpdateProductInput, error) {
	input := products.UpdateProductInput{
		Name:         req.Name,
		UnitID:       req.UnitID,
		CurrencyID:   req.CurrencyID,
		WarehouseIDs: req.WarehouseIDs,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			return products.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price must be a decimal string")
		}
		input.Price = &price
	}
	return input, nil
}

func ProductCreate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload productCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ProductUpdate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload productUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func ProductDelete(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

func ProductDetail(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func ProductList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		includeDeleted, err := validators.ParseQueryBool(r, "include_deleted", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListProducts(r.Context(), includeDeleted)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}
