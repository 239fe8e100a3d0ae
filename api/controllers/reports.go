package controllers

import (
	"net/http"
	"time"

	"github.com/stockledgerhq/stockledger-backend/api/responses"
	"github.com/stockledgerhq/stockledger-backend/api/validators"
	"github.com/stockledgerhq/stockledger-backend/internal/reports"
	pkgerrors "github.com/stockledgerhq/stockledger-backend/pkg/errors"
	"github.com/stockledgerhq/stockledger-backend/pkg/logger"
)

// MonthlyReview summarizes quantity movement per product for one calendar
// month, split into admissions and releases.
func MonthlyReview(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		now := time.Now().UTC()

		year, err := validators.ParseQueryInt(r, "year", now.Year(), 1, 9999)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		month, err := validators.ParseQueryInt(r, "month", int(now.Month()), 1, 12)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		review, err := svc.MonthlyReview(r.Context(), year, time.Month(month))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, review)
	}
}
