package products

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kasirpos/pos/internal/masterdata/shared"
	"github.com/kasirpos/pos/internal/platform/httpx"
)

func build(in Input) (Product, error) {
	in.Name = shared.NormalizeName(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	in.Barcode = strings.TrimSpace(in.Barcode)
	if err := httpx.Validate(in); err != nil {
		return Product{}, err
	}
	if in.CostPrice.IsNegative() || in.SellingPrice.IsNegative() {
		return Product{}, ErrNegativePrice
	}
	if !storable(in.CostPrice) || !storable(in.SellingPrice) {
		return Product{}, ErrPriceOutOfRange
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return Product{
		Name:          in.Name,
		Description:   strings.TrimSpace(in.Description),
		SKU:           shared.NullIfEmpty(in.SKU),
		Barcode:       shared.NullIfEmpty(in.Barcode),
		CategoryID:    shared.NullIfEmpty(in.CategoryID),
		SupplierID:    shared.NullIfEmpty(in.SupplierID),
		CostPrice:     in.CostPrice,
		SellingPrice:  in.SellingPrice,
		StockQuantity: in.StockQuantity,
		ReorderLevel:  in.ReorderLevel,
		Location:      strings.TrimSpace(in.Location),
		IsActive:      active,
	}, nil
}

// priceLimit is the exclusive bound of a NUMERIC(18,4) price column.
var priceLimit = decimal.New(1, 14)

func storable(d decimal.Decimal) bool {
	return d.Equal(d.Round(4)) && d.LessThan(priceLimit)
}
