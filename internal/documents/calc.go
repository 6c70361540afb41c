package documents

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// AmountScale is the number of fractional digits money columns keep.
const AmountScale = 4

// maxAmount is the exclusive bound of a NUMERIC(18,4) column.
var maxAmount = decimal.New(1, 14)

// fitsAmount reports whether d is stored without rounding or overflow.
func fitsAmount(d decimal.Decimal) bool {
	return d.Equal(d.Round(AmountScale)) && d.Abs().LessThan(maxAmount)
}

// Totals are the aggregates of a document.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Priced is the minimal view of a line the calculator needs.
type Priced struct {
	Quantity  int64
	UnitPrice decimal.Decimal
}

// LineTotal returns quantity x unit price, unrounded.
func LineTotal(quantity int64, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity))
}

// Summarize computes subtotal, tax and grand total:
//
//	subtotal = sum(line totals)
//	tax      = (subtotal - discount) * taxRate / 100, rounded to AmountScale
//	total    = subtotal - discount + tax
//
// Inputs are not validated here.
func Summarize(lines []Priced, discount, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l.Quantity, l.UnitPrice))
	}
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate).Div(hundred).Round(AmountScale)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    taxable.Add(tax),
	}
}

func pricedItems(items []Item) []Priced {
	out := make([]Priced, len(items))
	for i, it := range items {
		out[i] = Priced{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return out
}
