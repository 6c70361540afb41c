package documents

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasirpos/pos/internal/inventory"
	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Kind distinguishes sales from purchases. Both share one document shape.
type Kind string

const (
	KindSale     Kind = "sale"
	KindPurchase Kind = "purchase"
)

// Direction returns the stock effect of the kind's items.
func (k Kind) Direction() inventory.Direction {
	if k == KindPurchase {
		return inventory.DirectionIn
	}
	return inventory.DirectionOut
}

func (k Kind) numberPrefix() string {
	if k == KindPurchase {
		return "PO"
	}
	return "INV"
}

func (k Kind) label() string {
	if k == KindPurchase {
		return "purchase"
	}
	return "sale"
}

// Status of a document.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Payment statuses.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentPartial = "partial"
)

// DefaultPaymentMethod is used when the caller sends none.
const DefaultPaymentMethod = "cash"

// Counterparty is the customer or supplier snapshot stored on the document.
// It is copied at write time and never follows later edits of the catalog.
type Counterparty struct {
	Name    string `json:"name"`
	TaxID   string `json:"tax_id"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Document is a sale or purchase header with its items.
type Document struct {
	ID             string          `json:"id"`
	Kind           Kind            `json:"kind"`
	Number         string          `json:"invoice_number"`
	CounterpartyID *string         `json:"counterparty_id"`
	Counterparty   Counterparty    `json:"counterparty"`
	Date           time.Time       `json:"date"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total"`
	Status         Status          `json:"status"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentStatus  string          `json:"payment_status"`
	Notes          string          `json:"notes"`
	CreatedBy      *string         `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Items          []Item          `json:"items,omitempty"`
}

// Item is one document line. ProductCode and ProductName are snapshots.
type Item struct {
	ID          string          `json:"id"`
	DocumentID  string          `json:"document_id"`
	LineNo      int             `json:"line_no"`
	ProductID   string          `json:"product_id"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Total       decimal.Decimal `json:"total"`
}

// Rounded returns a copy with money fields rounded to two decimals for output.
func (d Document) Rounded() Document {
	d.Subtotal = d.Subtotal.Round(2)
	d.Tax = d.Tax.Round(2)
	d.Discount = d.Discount.Round(2)
	d.Total = d.Total.Round(2)
	if d.Items != nil {
		items := make([]Item, len(d.Items))
		for i, it := range d.Items {
			it.UnitPrice = it.UnitPrice.Round(2)
			it.UnitCost = it.UnitCost.Round(2)
			it.Total = it.Total.Round(2)
			items[i] = it
		}
		d.Items = items
	}
	return d
}

func (d *Document) applyTotals(t Totals) {
	d.Subtotal = t.Subtotal
	d.Tax = t.Tax
	d.Total = t.Total
}

func (d Document) ref() inventory.Ref {
	return inventory.Ref{Type: d.Kind.label(), ID: d.ID}
}

// ItemInput is a requested line.
type ItemInput struct {
	ProductID string           `json:"product_id" validate:"required,uuid"`
	Quantity  int64            `json:"quantity" validate:"gt=0,lte=1000000000"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// Input is the create/update payload. Totals are always computed server-side;
// any totals sent by the client are ignored.
type Input struct {
	Number         string          `json:"invoice_number" validate:"omitempty,max=64"`
	CounterpartyID *string         `json:"counterparty_id" validate:"omitempty,uuid"`
	Counterparty   Counterparty    `json:"counterparty"`
	Date           *time.Time      `json:"date"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Discount       decimal.Decimal `json:"discount"`
	Status         Status          `json:"status" validate:"omitempty,oneof=pending completed cancelled"`
	PaymentMethod  string          `json:"payment_method" validate:"omitempty,max=32"`
	PaymentStatus  string          `json:"payment_status" validate:"omitempty,oneof=pending paid partial"`
	Notes          string          `json:"notes" validate:"max=2000"`
	Items          []ItemInput     `json:"items" validate:"dive"`
}

// AddItemsInput is the payload of the incremental add-items operation.
type AddItemsInput struct {
	Items []ItemInput `json:"items" validate:"dive"`
}

// ListFilter narrows document listings.
type ListFilter struct {
	Search         string
	Status         Status
	CounterpartyID string
	From           time.Time
	To             time.Time
	Page           int
	Limit          int
	WithItems      bool
}

var (
	ErrNotFound             = fmt.Errorf("%w: document", httpx.ErrNotFound)
	ErrItemNotFound         = fmt.Errorf("%w: document item", httpx.ErrNotFound)
	ErrCounterpartyNotFound = fmt.Errorf("%w: counterparty", httpx.ErrNotFound)
	ErrDuplicateNumber      = fmt.Errorf("%w: invoice number already exists", httpx.ErrConflict)
	ErrNoItems              = fmt.Errorf("%w: at least one item is required", httpx.ErrValidation)
	ErrInvalidItem          = fmt.Errorf("%w: invalid item", httpx.ErrValidation)
	ErrInvalidAmounts       = fmt.Errorf("%w: invalid amounts", httpx.ErrValidation)
	ErrCounterpartyRequired = fmt.Errorf("%w: supplier is required", httpx.ErrValidation)
)
