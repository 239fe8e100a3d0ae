package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stockledgerhq/stockledger-backend/api/responses"
	"github.com/stockledgerhq/stockledger-backend/api/validators"
	"github.com/stockledgerhq/stockledger-backend/internal/ledger"
	pkgerrors "github.com/stockledgerhq/stockledger-backend/pkg/errors"
	"github.com/stockledgerhq/stockledger-backend/pkg/logger"
)

type availabilityResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Reserved  string    `json:"reserved"`
	Available string    `json:"available"`
}

// ProductAvailability reports reserved and available quantities for one
// product. Reserved counts open release batches only, so the figures shift
// as draft batches change.
func ProductAvailability(engine *ledger.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger engine unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reserved, err := engine.ReservedQuantity(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		available, err := engine.AvailableQuantity(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, availabilityResponse{
			ProductID: productID,
			Reserved:  reserved.String(),
			Available: available.String(),
		})
	}
}
