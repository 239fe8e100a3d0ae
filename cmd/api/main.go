package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stockledgerhq/stockledger-backend/api/routes"
	"github.com/stockledgerhq/stockledger-backend/internal/audit"
	"github.com/stockledgerhq/stockledger-backend/internal/catalog"
	"github.com/stockledgerhq/stockledger-backend/internal/ledger"
	"github.com/stockledgerhq/stockledger-backend/internal/processing"
	"github.com/stockledgerhq/stockledger-backend/internal/products"
	"github.com/stockledgerhq/stockledger-backend/internal/reports"
	"github.com/stockledgerhq/stockledger-backend/pkg/config"
	"github.com/stockledgerhq/stockledger-backend/pkg/db"
	"github.com/stockledgerhq/stockledger-backend/pkg/logger"
	"github.com/stockledgerhq/stockledger-backend/pkg/metrics"
	"github.com/stockledgerhq/stockledger-backend/pkg/migrate"
	"github.com/stockledgerhq/stockledger-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	closeMetrics := metrics.NewCloseMetrics(registry)

	auditStore := audit.NewStore(dbClient.DB())

	engine, err := ledger.NewEngine(dbClient, logg, auditStore, closeMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger engine", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(products.NewRepository(dbClient.DB()), dbClient, engine)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	processingService, err := processing.NewService(processing.NewRepository(dbClient.DB()), dbClient, auditStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create processing service", err)
		os.Exit(1)
	}

	reportsService, err := reports.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		redisClient,
		redisClient,
		catalogService,
		productService,
		processingService,
		reportsService,
		engine,
		auditStore,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", router)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stop:
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
