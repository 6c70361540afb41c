package warranty

import (
	"fmt"
	"time"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Warranty is a coverage record keyed by the unit's serial number.
type Warranty struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name"`
	CustomerID    string    `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	SaleID        *string   `json:"sale_id"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	SerialNumber  string    `json:"serial_number"`
	PeriodMonths  int       `json:"warranty_period"`
	Start         time.Time `json:"warranty_start"`
	End           time.Time `json:"warranty_end"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Status of a warranty at a point in time.
type Status string

const (
	StatusValid   Status = "valid"
	StatusExpired Status = "expired"
)

// Verification is the result of a serial number lookup.
type Verification struct {
	Warranty      Warranty `json:"warranty"`
	Status        Status   `json:"status"`
	DaysRemaining int      `json:"days_remaining"`
}

// Evaluate reports the status of w at now. A warranty is valid through its
// end instant; days remaining round up.
func Evaluate(w Warranty, now time.Time) Verification {
	v := Verification{Warranty: w, Status: StatusExpired}
	if now.After(w.End) {
		return v
	}
	v.Status = StatusValid
	left := w.End.Sub(now)
	days := int(left / (24 * time.Hour))
	if left%(24*time.Hour) != 0 {
		days++
	}
	v.DaysRemaining = days
	return v
}

// Input is the create/update payload. End defaults to Start plus
// PeriodMonths; Start defaults to the current time.
type Input struct {
	ProductID    string     `json:"product_id" validate:"required,uuid"`
	CustomerID   string     `json:"customer_id" validate:"required,uuid"`
	SaleID       *string    `json:"sale_id" validate:"omitempty,uuid"`
	SerialNumber string     `json:"serial_number" validate:"required,max=128"`
	PeriodMonths int        `json:"warranty_period" validate:"gte=0,lte=120"`
	Start        *time.Time `json:"warranty_start"`
	End          *time.Time `json:"warranty_end"`
	Notes        string     `json:"notes" validate:"max=2000"`
}

// VerifyInput is the public lookup payload.
type VerifyInput struct {
	SerialNumber string `json:"serial_number" validate:"required,max=128"`
}

// Filter narrows warranty listings.
type Filter struct {
	Search     string
	Status     Status
	CustomerID string
	Page       int
	Limit      int
}

var (
	ErrNotFound        = fmt.Errorf("%w: warranty", httpx.ErrNotFound)
	ErrDuplicateSerial = fmt.Errorf("%w: warranty with this serial number already exists", httpx.ErrDuplicate)
	ErrInvalidPeriod   = fmt.Errorf("%w: warranty_end or a positive warranty_period is required", httpx.ErrValidation)
	ErrEndBeforeStart  = fmt.Errorf("%w: warranty_end must not be before warranty_start", httpx.ErrValidation)
	ErrMissingRef      = fmt.Errorf("%w: product, customer or sale", httpx.ErrNotFound)
)
