package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Direction is the stock effect of a document kind.
type Direction int

const (
	// DirectionOut decrements stock (sales).
	DirectionOut Direction = -1
	// DirectionIn increments stock and refreshes cost price (purchases).
	DirectionIn Direction = 1
)

func (d Direction) String() string {
	if d == DirectionIn {
		return "IN"
	}
	return "OUT"
}

// Level is the locked stock position of one product.
type Level struct {
	ProductID    string
	Code         string
	Name         string
	Quantity     int64
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
}

// Line is one item effect posted to the ledger.
type Line struct {
	ProductID string
	Quantity  int64
	UnitCost  decimal.Decimal
}

// RefOpening marks the stock a product was created with.
const RefOpening = "opening"

// Ref identifies the document that caused a movement.
type Ref struct {
	Type string
	ID   string
}

// Movement is a stock card row.
type Movement struct {
	ID         int64           `json:"id"`
	ProductID  string          `json:"product_id"`
	RefType    string          `json:"ref_type"`
	RefID      string          `json:"ref_id"`
	QtyChange  int64           `json:"qty_change"`
	BalanceQty int64           `json:"balance_qty"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Note       string          `json:"note"`
	PostedAt   time.Time       `json:"posted_at"`
}

// MovementFilter narrows a stock card listing.
type MovementFilter struct {
	ProductID string
	From      time.Time
	To        time.Time
	Limit     int
}

var (
	// ErrProductNotFound indicates a line references an unknown product.
	ErrProductNotFound = fmt.Errorf("%w: product", httpx.ErrNotFound)
	// ErrInsufficientStock is returned when negative stock is disallowed.
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", httpx.ErrConflict)
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be positive", httpx.ErrValidation)
	// ErrQuantityOverflow indicates a stock level would leave the int64 range.
	ErrQuantityOverflow = fmt.Errorf("%w: stock quantity out of range", httpx.ErrValidation)
	// ErrPostingClosed is returned when a posting is reused after commit.
	ErrPostingClosed = fmt.Errorf("inventory: posting already committed")
)
