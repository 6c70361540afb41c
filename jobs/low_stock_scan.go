package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/kasirpos/pos/internal/jobs"
	"github.com/kasirpos/pos/internal/reports"
)

// LowStockSource lists products at or below their reorder level.
type LowStockSource interface {
	LowStock(ctx context.Context, limit int) ([]reports.LowStockItem, error)
}

// LowStockScanJob publishes the low-stock gauge and mails a digest to the
// store's alert address.
type LowStockScanJob struct {
	Source     LowStockSource
	Mail       Enqueuer
	AlertEmail string
	Limit      int
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Source == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload ScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("scan payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	tracker := metricsOrDefault(j.Metrics).Track(TaskLowStockScan)
	defer func() { err = tracker.End(err) }()

	logger := loggerOrDefault(j.Logger, TaskLowStockScan)
	start := time.Now()
	limit := j.Limit
	if limit <= 0 {
		limit = 200
	}
	items, err := j.Source.LowStock(ctx, limit)
	if err != nil {
		logger.Error("load low stock", slog.Any("error", err))
		return err
	}
	metricsOrDefault(j.Metrics).SetLowStock(len(items))
	logger.Info("low stock scan finished", slog.Int("products", len(items)), slog.Duration("duration", time.Since(start)))

	if len(items) == 0 || j.Mail == nil || j.AlertEmail == "" {
		return nil
	}
	day := start.UTC().Format(time.DateOnly)
	_, err = j.Mail.EnqueueSendEmail(ctx, SendEmailPayload{
		To:       j.AlertEmail,
		Subject:  fmt.Sprintf("%d products need restocking", len(items)),
		Body:     lowStockDigest(items),
		Template: TemplateLowStock,
	}, asynq.TaskID("low-stock:"+day), asynq.Retention(24*time.Hour))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func lowStockDigest(items []reports.LowStockItem) string {
	var b strings.Builder
	b.WriteString("The following products are at or below their reorder level:\n\n")
	for _, it := range items {
		sku := it.SKU
		if sku == "" {
			sku = "-"
		}
		fmt.Fprintf(&b, "- %s (%s): %d in stock, reorder at %d\n", it.Name, sku, it.StockQuantity, it.ReorderLevel)
	}
	return b.String()
}
