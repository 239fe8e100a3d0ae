package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stockledgerhq/stockledger-backend/api/controllers"
	"github.com/stockledgerhq/stockledger-backend/api/middleware"
	"github.com/stockledgerhq/stockledger-backend/internal/audit"
	"github.com/stockledgerhq/stockledger-backend/internal/catalog"
	"github.com/stockledgerhq/stockledger-backend/internal/ledger"
	"github.com/stockledgerhq/stockledger-backend/internal/processing"
	"github.com/stockledgerhq/stockledger-backend/internal/products"
	"github.com/stockledgerhq/stockledger-backend/internal/reports"
	"github.com/stockledgerhq/stockledger-backend/pkg/config"
	"github.com/stockledgerhq/stockledger-backend/pkg/db"
	"github.com/stockledgerhq/stockledger-backend/pkg/logger"
	pkgredis "github.com/stockledgerhq/stockledger-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP pkgredis.Pinger,
	idemStore pkgredis.IdempotencyStore,
	limiter pkgredis.RateLimiter,
	catalogService catalog.Service,
	productService products.Service,
	processingService processing.Service,
	reportsService reports.Service,
	engine *ledger.Engine,
	auditStore *audit.Store,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/units", controllers.UnitList(catalogService, logg))
			r.Post("/units", controllers.UnitCreate(catalogService, logg))
			r.Put("/units/{unitId}", controllers.UnitUpdate(catalogService, logg))
			r.Get("/currencies", controllers.CurrencyList(catalogService, logg))
			r.Post("/currencies", controllers.CurrencyCreate(catalogService, logg))
			r.Put("/currencies/{currencyId}", controllers.CurrencyUpdate(catalogService, logg))
			r.Route("/warehouses", func(r chi.Router) {
				r.Get("/", controllers.WarehouseList(catalogService, logg))
				r.Post("/", controllers.WarehouseCreate(catalogService, logg))
				r.Get("/{warehouseId}", controllers.WarehouseDetail(catalogService, logg))
				r.Put("/{warehouseId}", controllers.WarehouseUpdate(catalogService, logg))
				r.Delete("/{warehouseId}", controllers.WarehouseDelete(catalogService, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(productService, logg))
			r.Post("/", controllers.ProductCreate(productService, logg))
			r.Get("/{productId}", controllers.ProductDetail(productService, logg))
			r.Put("/{productId}", controllers.ProductUpdate(productService, logg))
			r.Delete("/{productId}", controllers.ProductDelete(productService, logg))
			r.Get("/{productId}/availability", controllers.ProductAvailability(engine, logg))
		})

		r.Route("/batches", func(r chi.Router) {
			r.Get("/", controllers.BatchList(processingService, logg))
			r.Post("/", controllers.BatchCreate(processingService, logg))
			r.Get("/{batchId}", controllers.BatchDetail(processingService, logg))
			r.Put("/{batchId}", controllers.BatchUpdate(processingService, logg))
			r.Delete("/{batchId}", controllers.BatchDelete(processingService, logg))
			r.Post("/{batchId}/items", controllers.LineItemAdd(processingService, logg))
			r.Put("/{batchId}/items/{itemId}", controllers.LineItemUpdate(processingService, logg))
			r.Delete("/{batchId}/items/{itemId}", controllers.LineItemRemove(processingService, logg))
			r.Get("/{batchId}/check-close", controllers.BatchCheckClose(engine, logg))
			r.With(middleware.CloseRateLimit(middleware.DefaultCloseRateLimitPolicy, limiter, logg)).
				Post("/{batchId}/close", controllers.BatchClose(engine, logg))
			r.Get("/{batchId}/audit", controllers.BatchAuditTrail(auditStore, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/monthly-review", controllers.MonthlyReview(reportsService, logg))
		})
	})

	return r
}
