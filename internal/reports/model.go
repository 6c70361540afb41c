package reports

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Range bounds a report by document date. Zero values are open ends; To is
// exclusive.
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) token() string {
	return stamp(r.From) + "_" + stamp(r.To)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// Grouping is the bucket width of the sales-by-date report.
type Grouping string

const (
	GroupHour  Grouping = "hour"
	GroupDay   Grouping = "day"
	GroupWeek  Grouping = "week"
	GroupMonth Grouping = "month"
	GroupYear  Grouping = "year"
)

// ParseGrouping validates a group_by value. Empty means day.
func ParseGrouping(s string) (Grouping, error) {
	switch g := Grouping(s); g {
	case "":
		return GroupDay, nil
	case GroupHour, GroupDay, GroupWeek, GroupMonth, GroupYear:
		return g, nil
	}
	return "", fmt.Errorf("%w: group_by must be hour, day, week, month or year", httpx.ErrValidation)
}

type SalesSummary struct {
	TotalSales   int             `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	AverageSale  decimal.Decimal `json:"average_sale"`
	MinSale      decimal.Decimal `json:"min_sale"`
	MaxSale      decimal.Decimal `json:"max_sale"`
}

type DatePoint struct {
	Date         time.Time       `json:"date"`
	SalesCount   int             `json:"sales_count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
}

type ProductSales struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	SalesCount    int             `json:"sales_count"`
}

type InventoryValue struct {
	TotalCostValue     decimal.Decimal `json:"total_cost_value"`
	TotalSellingValue  decimal.Decimal `json:"total_selling_value"`
	PotentialProfit    decimal.Decimal `json:"potential_profit"`
	TotalProducts      int             `json:"total_products"`
	OutOfStockProducts int             `json:"out_of_stock_products"`
	LowStockProducts   int             `json:"low_stock_products"`
}

type LowStockItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	StockQuantity int64           `json:"stock_quantity"`
	ReorderLevel  int64           `json:"reorder_level"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	CategoryName  string          `json:"category_name"`
}

type CategorySales struct {
	ID            *string         `json:"id"`
	Name          string          `json:"name"`
	SalesCount    int             `json:"sales_count"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
}

type TopCustomer struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Phone            string          `json:"phone"`
	Email            string          `json:"email"`
	SalesCount       int             `json:"sales_count"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
	AveragePurchase  decimal.Decimal `json:"average_purchase"`
	LastPurchaseDate time.Time       `json:"last_purchase_date"`
}

type ProductMargin struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	ProfitMargin  decimal.Decimal `json:"profit_margin"`
}

type PaymentMethodShare struct {
	PaymentMethod string          `json:"payment_method"`
	SalesCount    int             `json:"sales_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Percentage    decimal.Decimal `json:"percentage"`
}

type WarrantyStatus struct {
	TotalWarranties   int `json:"total_warranties"`
	ActiveWarranties  int `json:"active_warranties"`
	ExpiredWarranties int `json:"expired_warranties"`
	ExpiringSoon      int `json:"expiring_soon"`
}

type ExpiringWarranty struct {
	ID            string    `json:"id"`
	SerialNumber  string    `json:"serial_number"`
	Start         time.Time `json:"warranty_start"`
	End           time.Time `json:"warranty_end"`
	PeriodMonths  int       `json:"warranty_period"`
	ProductName   string    `json:"product_name"`
	SKU           string    `json:"sku"`
	CustomerName  string    `json:"customer_name"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	InvoiceNumber string    `json:"invoice_number"`
	DaysRemaining int       `json:"days_remaining"`
}

// Overview is the dashboard payload assembled from several reports.
type Overview struct {
	Sales       SalesSummary   `json:"sales"`
	Inventory   InventoryValue `json:"inventory"`
	Warranties  WarrantyStatus `json:"warranties"`
	TopProducts []ProductSales `json:"top_products"`
	LowStock    []LowStockItem `json:"low_stock"`
}
