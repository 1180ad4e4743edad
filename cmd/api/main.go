package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/cimillas/booking-core/internal/app"
	"github.com/cimillas/booking-core/internal/clock"
	"github.com/cimillas/booking-core/internal/config"
	"github.com/cimillas/booking-core/internal/storage/memory"
	"github.com/cimillas/booking-core/internal/storage/postgres"
	storageredis "github.com/cimillas/booking-core/internal/storage/redis"
	transporthttp "github.com/cimillas/booking-core/internal/transport/http"
	"github.com/cimillas/booking-core/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load(logger)

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		ledger app.CapacityLedger
		units  app.UnitRepository
		holds  app.HoldStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("connect to db")
		}
		defer pool.Close()

		if err := pool.Ping(startupCtx); err != nil {
			logger.WithError(err).Fatal("db ping")
		}
		if err := migrations.Apply(startupCtx, pool); err != nil {
			logger.WithError(err).Fatal("apply migrations")
		}

		ledgerRepo := postgres.NewLedgerRepository(pool)
		ledger = ledgerRepo
		units = ledgerRepo
		holds = postgres.NewHoldRepository(pool)
	} else {
		memLedger := memory.NewLedger()
		ledger = memLedger
		units = memLedger
		holds = memory.NewHoldStore()
	}

	catalog := memory.NewCatalog()
	orders := memory.NewOrderSink()
	clk := clock.NewSystem()

	holdOpts := []app.HoldServiceOption{app.WithHoldTTL(cfg.HoldTTL)}
	var cache app.AvailabilityCache
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(startupCtx).Err(); err != nil {
			logger.WithError(err).Warn("redis ping failed, availability cache disabled")
		} else {
			cache = storageredis.NewAvailabilityCache(client)
			holdOpts = append(holdOpts, app.WithAvailabilityCache(cache))
		}
	}

	holdSvc := app.NewHoldService(ledger, holds, clk, logger, holdOpts...)
	pricingSvc := app.NewPricingService(ledger, catalog, catalog, clk)
	sessionSvc := app.NewSessionService(holdSvc, pricingSvc, orders, clk, logger,
		app.WithSessionHoldTTL(cfg.HoldTTL))
	catalogSvc := app.NewCatalogService(units, catalog, cache, logger)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweeper := app.NewSweeper(holdSvc, logger, cfg.SweepInterval)
	sweeper.Start(sweepCtx)

	router := transporthttp.NewRouter(holdSvc, pricingSvc, sessionSvc, catalogSvc, logger)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch,
			http.MethodPut, http.MethodDelete,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: corsMiddleware.Handler(router),
	}

	logger.WithField("port", cfg.Port).Info("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server error")
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	stopSweep()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("server shutdown error")
	}
	logger.Info("server stopped")
}
