package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/pos/internal/app"
	"github.com/kasirpos/pos/internal/audit"
	audithttp "github.com/kasirpos/pos/internal/audit/http"
	"github.com/kasirpos/pos/internal/auth"
	"github.com/kasirpos/pos/internal/documents"
	"github.com/kasirpos/pos/internal/inventory"
	"github.com/kasirpos/pos/internal/masterdata/categories"
	"github.com/kasirpos/pos/internal/masterdata/customers"
	"github.com/kasirpos/pos/internal/masterdata/products"
	"github.com/kasirpos/pos/internal/masterdata/suppliers"
	"github.com/kasirpos/pos/internal/observability"
	"github.com/kasirpos/pos/internal/platform/cache"
	"github.com/kasirpos/pos/internal/platform/db"
	"github.com/kasirpos/pos/internal/reports"
	"github.com/kasirpos/pos/internal/settings"
	"github.com/kasirpos/pos/internal/shared"
	"github.com/kasirpos/pos/internal/warranty"
	"github.com/kasirpos/pos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisConf, err := cache.Options(cfg.RedisAddr)
	if err != nil {
		logger.Error("redis address", slog.Any("error", err))
		os.Exit(1)
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled until it recovers", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: redisConf.Addr, Username: redisConf.Username, Password: redisConf.Password, DB: redisConf.DB, TLSConfig: redisConf.TLSConfig}
	jobClient, err := jobs.NewClient(redisOpts, cfg.AppBaseURL)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	if err := reportCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("report cache invalidation listener", slog.Any("error", err))
	}
	reportService := reports.NewService(reports.NewRepository(dbpool), reportCache)

	ledger := inventory.NewLedger(inventory.Config{AllowNegativeStock: cfg.AllowNegativeStock})
	inventoryHandler := inventory.NewHandler(logger, inventory.NewService(inventory.NewRepository(dbpool)))

	documentService := documents.NewService(
		documents.NewRepository(dbpool, cfg.TxTimeout),
		ledger,
		auditLogger,
		reportService,
		logger,
	)

	settingsService := settings.NewService(settings.NewRepository(dbpool))
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(auth.NewRepository(dbpool), tokens, settingsService, jobClient, cfg.ResetTokenTTL)

	warrantyService := warranty.NewService(warranty.NewRepository(dbpool))

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Tokens:  tokens,
		Ready:   readiness(dbpool),

		AuthHandler:       auth.NewHandler(logger, authService, cfg.AuthRateLimit),
		SalesHandler:      documents.NewHandler(documents.KindSale, logger, documentService, idempotencyStore),
		PurchasesHandler:  documents.NewHandler(documents.KindPurchase, logger, documentService, idempotencyStore),
		ProductsHandler:   products.NewHandler(logger, products.NewService(products.NewRepository(dbpool)), inventoryHandler.Movements),
		CategoriesHandler: categories.NewHandler(logger, categories.NewService(categories.NewRepository(dbpool))),
		CustomersHandler:  customers.NewHandler(logger, customers.NewService(customers.NewRepository(dbpool), documentService, warrantyService)),
		SuppliersHandler:  suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(dbpool), documentService)),
		WarrantyHandler:   warranty.NewHandler(logger, warrantyService),
		ReportsHandler:    reports.NewHandler(logger, reportService),
		SettingsHandler:   settings.NewHandler(logger, settingsService, auth.RequireRole(auth.RoleAdmin)),
		JobHandler:        jobs.NewHandler(inspector, logger),
		AuditHandler:      audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool))),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

func readiness(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}
