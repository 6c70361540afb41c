package products

import "github.com/shopspring/decimal"

// Input is the create/update payload. StockQuantity is only honoured on
// create; afterwards stock moves through sales and purchases.
type Input struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=2000"`
	SKU           string          `json:"sku" validate:"max=64"`
	Barcode       string          `json:"barcode" validate:"max=64"`
	CategoryID    string          `json:"category_id" validate:"omitempty,uuid"`
	SupplierID    string          `json:"supplier_id" validate:"omitempty,uuid"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	StockQuantity int64           `json:"stock_quantity" validate:"gte=0,lte=1000000000"`
	ReorderLevel  int64           `json:"reorder_level" validate:"gte=0"`
	Location      string          `json:"location" validate:"max=100"`
	IsActive      *bool           `json:"is_active"`
}
