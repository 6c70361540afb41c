package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueMail carries outgoing mail so a slow relay never blocks scans.
	QueueMail = "mail"

	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskLowStockScan reports products at or below their reorder level.
	TaskLowStockScan = "inventory:low-stock-scan"
	// TaskWarrantyExpiryScan reminds customers of warranties about to end.
	TaskWarrantyExpiryScan = "warranty:expiry-scan"
	// TaskIdempotencyPurge drops expired Idempotency-Key claims.
	TaskIdempotencyPurge = "maintenance:idempotency-purge"
)

// Mail templates.
const (
	TemplatePasswordReset  = "password_reset"
	TemplateLowStock       = "low_stock"
	TemplateWarrantyExpiry = "warranty_expiry"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Template string `json:"template,omitempty"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts = append([]asynq.Option{asynq.Queue(QueueMail), asynq.MaxRetry(5)}, opts...)
	return asynq.NewTask(TaskTypeSendEmail, data, opts...), nil
}

// ScanPayload carries scheduling metadata for the periodic scans.
type ScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for,omitempty"`
}

// NewScanTask constructs a periodic task (scans and maintenance).
func NewScanTask(taskType string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault), asynq.MaxRetry(2), asynq.Timeout(5*time.Minute)), nil
}

// Enqueuer submits mail tasks. *Client satisfies it.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
