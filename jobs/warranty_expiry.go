package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/kasirpos/pos/internal/jobs"
	"github.com/kasirpos/pos/internal/reports"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ExpiringSource lists warranties ending within days.
type ExpiringSource interface {
	ExpiringWarranties(ctx context.Context, days, limit int) ([]reports.ExpiringWarranty, error)
}

// WarrantyExpiryJob reminds customers whose warranty ends inside the window.
// Each warranty is reminded at most once: the task id is derived from the
// warranty id and retained for the whole window.
type WarrantyExpiryJob struct {
	Source  ExpiringSource
	Mail    Enqueuer
	Days    int
	Limit   int
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskWarrantyExpiryScan tasks.
func (j *WarrantyExpiryJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Source == nil {
		return errors.New("warranty expiry scan: handler not configured")
	}
	var payload ScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("scan payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	tracker := metricsOrDefault(j.Metrics).Track(TaskWarrantyExpiryScan)
	defer func() { err = tracker.End(err) }()

	days := j.Days
	if days <= 0 {
		days = 30
	}
	limit := j.Limit
	if limit <= 0 {
		limit = 500
	}
	logger := loggerOrDefault(j.Logger, TaskWarrantyExpiryScan).With(slog.Int("days", days))
	start := time.Now()

	items, err := j.Source.ExpiringWarranties(ctx, days, limit)
	if err != nil {
		logger.Error("load expiring warranties", slog.Any("error", err))
		return err
	}
	metricsOrDefault(j.Metrics).SetExpiringWarranties(len(items))

	reminded := 0
	if j.Mail != nil {
		for _, w := range items {
			if w.Email == "" {
				continue
			}
			_, err := j.Mail.EnqueueSendEmail(ctx, warrantyReminder(w),
				asynq.TaskID("warranty-expiry:"+w.ID),
				asynq.Retention(time.Duration(days)*24*time.Hour),
			)
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				continue
			}
			if err != nil {
				logger.Error("enqueue reminder", slog.String("warranty_id", w.ID), slog.Any("error", err))
				return err
			}
			reminded++
		}
	}
	logger.Info("warranty expiry scan finished",
		slog.Int("expiring", len(items)),
		slog.Int("reminded", reminded),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func warrantyReminder(w reports.ExpiringWarranty) SendEmailPayload {
	name := w.CustomerName
	if name == "" {
		name = "Customer"
	}
	body := fmt.Sprintf("Dear %s,\n\nThe warranty for your %s (serial number %s) ends on %s, in %d days.\n",
		name, w.ProductName, w.SerialNumber, w.End.Format(time.DateOnly), w.DaysRemaining)
	if w.InvoiceNumber != "" {
		body += fmt.Sprintf("Purchase reference: %s.\n", w.InvoiceNumber)
	}
	return SendEmailPayload{
		To:       w.Email,
		Subject:  "Your warranty is about to expire",
		Body:     body,
		Template: TemplateWarrantyExpiry,
	}
}

func loggerOrDefault(logger *slog.Logger, job string) *slog.Logger {
	if logger != nil {
		return logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}
