package products

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Product represents a product entity
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	SKU           *string         `json:"sku"`
	Barcode       *string         `json:"barcode"`
	CategoryID    *string         `json:"category_id"`
	CategoryName  string          `json:"category_name,omitempty"`
	SupplierID    *string         `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name,omitempty"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	StockQuantity int64           `json:"stock_quantity"`
	ReorderLevel  int64           `json:"reorder_level"`
	Location      string          `json:"location"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LowStock reports whether the product is at or below its reorder level.
func (p Product) LowStock() bool {
	return p.StockQuantity <= p.ReorderLevel
}

// References counts document lines pointing at a product.
type References struct {
	SaleItems     int
	PurchaseItems int
}

var (
	ErrNotFound         = fmt.Errorf("%w: product", httpx.ErrNotFound)
	ErrDuplicateSKU     = fmt.Errorf("%w: sku already in use", httpx.ErrDuplicate)
	ErrDuplicateBarcode = fmt.Errorf("%w: barcode already in use", httpx.ErrDuplicate)
	ErrCategoryNotFound = fmt.Errorf("%w: category", httpx.ErrNotFound)
	ErrSupplierNotFound = fmt.Errorf("%w: supplier", httpx.ErrNotFound)
	ErrInUse            = fmt.Errorf("%w: product is used by sales or purchases", httpx.ErrConflict)
	ErrHasWarranties    = fmt.Errorf("%w: product has registered warranties", httpx.ErrConflict)
	ErrNegativePrice    = fmt.Errorf("%w: prices must not be negative", httpx.ErrValidation)
	ErrPriceOutOfRange  = fmt.Errorf("%w: prices allow at most 4 decimals and must be below 10^14", httpx.ErrValidation)
)
