package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kasirpos/pos/internal/app"
	jobmetrics "github.com/kasirpos/pos/internal/jobs"
	"github.com/kasirpos/pos/internal/platform/cache"
	"github.com/kasirpos/pos/internal/platform/db"
	"github.com/kasirpos/pos/internal/reports"
	"github.com/kasirpos/pos/internal/shared"
	"github.com/kasirpos/pos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisConf, err := cache.Options(cfg.RedisAddr)
	if err != nil {
		logger.Error("redis address", slog.Any("error", err))
		os.Exit(1)
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: redisConf.Addr, Username: redisConf.Username, Password: redisConf.Password, DB: redisConf.DB, TLSConfig: redisConf.TLSConfig}
	client, err := jobs.NewClient(redisOpts, cfg.AppBaseURL)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	reportService := reports.NewService(reports.NewRepository(pool), reports.NewCache(redisClient, cfg.ReportCacheTTL))

	var mailer jobs.Mailer = jobs.LogMailer{Logger: logger}
	if cfg.SMTPAddr != "" {
		mailer = jobs.SMTPMailer{Addr: cfg.SMTPAddr, Username: cfg.SMTPUsername, Password: cfg.SMTPPassword, From: cfg.SMTPFrom}
	}
	mailJob := &jobs.MailJob{Mailer: mailer, Logger: logger, Metrics: metrics}
	lowStockJob := &jobs.LowStockScanJob{Source: reportService, Mail: client, AlertEmail: cfg.AlertEmail, Logger: logger, Metrics: metrics}
	expiryJob := &jobs.WarrantyExpiryJob{Source: reportService, Mail: client, Days: cfg.WarrantyExpiryDays, Logger: logger, Metrics: metrics}
	purgeJob := &jobs.IdempotencyPurgeJob{Store: shared.NewIdempotencyStore(pool), Retention: cfg.IdempotencyRetention, Logger: logger, Metrics: metrics}

	now := time.Now().UTC()
	lowStockTask, err := jobs.NewScanTask(jobs.TaskLowStockScan, now)
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	expiryTask, err := jobs.NewScanTask(jobs.TaskWarrantyExpiryScan, now)
	if err != nil {
		logger.Error("build warranty expiry task", slog.Any("error", err))
		os.Exit(1)
	}
	purgeTask, err := jobs.NewScanTask(jobs.TaskIdempotencyPurge, now)
	if err != nil {
		logger.Error("build idempotency purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailJob.Handle},
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
			{Type: jobs.TaskWarrantyExpiryScan, Handler: expiryJob.Handle},
			{Type: jobs.TaskIdempotencyPurge, Handler: purgeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LowStockCron, Task: lowStockTask},
			{Spec: cfg.WarrantyExpiryCron, Task: expiryTask},
			{Spec: cfg.IdempotencyPurgeCron, Task: purgeTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
