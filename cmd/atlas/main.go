package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atlas-retail/atlas-ledger/internal/app"
	"github.com/atlas-retail/atlas-ledger/internal/coa"
	"github.com/atlas-retail/atlas-ledger/internal/ledger"
	"github.com/atlas-retail/atlas-ledger/internal/platform/cache"
	"github.com/atlas-retail/atlas-ledger/internal/platform/db"
	"github.com/atlas-retail/atlas-ledger/internal/reports"
	"github.com/atlas-retail/atlas-ledger/internal/sales"
	"github.com/atlas-retail/atlas-ledger/internal/shared"
	"github.com/atlas-retail/atlas-ledger/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, role cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	coaRepo := coa.NewRepository(pool)
	coaService := coa.NewService(coaRepo, auditLogger)
	roleRegistry := coa.NewRoleRegistry(coaRepo, redisClient, cfg.RoleCacheTTL)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, roleRegistry, auditLogger)

	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(reportsRepo, coaService)

	salesService := sales.NewService(pool, ledgerService, idempotencyStore, logger)

	coaHandler := coa.NewHandler(coaService, logger)
	ledgerHandler := ledger.NewHandler(ledgerService, logger)
	reportsHandler := reports.NewHandler(reportsService, logger)
	salesHandler := sales.NewHandler(salesService, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		CoAHandler:     coaHandler,
		LedgerHandler:  ledgerHandler,
		ReportsHandler: reportsHandler,
		SalesHandler:   salesHandler,
		JobHandler:     jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
