package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Handler serves /api/reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the reports HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/overview", h.handleOverview)
	r.Get("/sales/summary", h.handleSalesSummary)
	r.Get("/sales/by-date", h.handleSalesByDate)
	r.Get("/sales/by-category", h.handleSalesByCategory)
	r.Get("/sales/profit-margin", h.handleProfitMargin)
	r.Get("/sales/payment-methods", h.handlePaymentMethods)
	r.Get("/products/top-selling", h.handleTopProducts)
	r.Get("/inventory/value", h.handleInventoryValue)
	r.Get("/inventory/low-stock", h.handleLowStock)
	r.Get("/customers/top", h.handleTopCustomers)
	r.Get("/warranties/status", h.handleWarrantyStatus)
	r.Get("/warranties/expiring", h.handleExpiringWarranties)
}

// parseRange reads start_date and end_date. A date-only end_date covers
// the whole day.
func parseRange(r *http.Request) (Range, error) {
	from, err := httpx.TimeQuery(r, "start_date")
	if err != nil {
		return Range{}, err
	}
	to, err := httpx.TimeQuery(r, "end_date")
	if err != nil {
		return Range{}, err
	}
	if len(r.URL.Query().Get("end_date")) == len(time.DateOnly) {
		to = to.AddDate(0, 0, 1)
	}
	return Range{From: from, To: to}, nil
}

func (h *Handler) respond(w http.ResponseWriter, op string, v interface{}, err error) {
	if err != nil {
		if httpx.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("report failed", slog.String("report", op), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) withRange(w http.ResponseWriter, r *http.Request, op string, fn func(Range) (interface{}, error)) {
	rng, err := parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	v, err := fn(rng)
	h.respond(w, op, v, err)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	h.withRange(w, r, "overview", func(rng Range) (interface{}, error) {
		return h.service.Overview(r.Context(), rng)
	})
}

func (h *Handler) handleSalesSummary(w http.ResponseWriter, r *http.Request) {
	h.withRange(w, r, "sales_summary", func(rng Range) (interface{}, error) {
		return h.service.SalesSummary(r.Context(), rng)
	})
}

func (h *Handler) handleSalesByDate(w http.ResponseWriter, r *http.Request) {
	group, err := ParseGrouping(r.URL.Query().Get("group_by"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.withRange(w, r, "sales_by_date", func(rng Range) (interface{}, error) {
		return h.service.SalesByDate(r.Context(), rng, group)
	})
}

func (h *Handler) handleSalesByCategory(w http.ResponseWriter, r *http.Request) {
	h.withRange(w, r, "sales_by_category", func(rng Range) (interface{}, error) {
		return h.service.SalesByCategory(r.Context(), rng)
	})
}

func (h *Handler) handleProfitMargin(w http.ResponseWriter, r *http.Request) {
	h.withRange(w, r, "profit_margin", func(rng Range) (interface{}, error) {
		return h.service.ProfitMargins(r.Context(), rng)
	})
}

func (h *Handler) handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	h.withRange(w, r, "payment_methods", func(rng Range) (interface{}, error) {
		return h.service.PaymentMethods(r.Context(), rng)
	})
}

func (h *Handler) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	limit := httpx.IntQuery(r, "limit", defaultTopLimit)
	h.withRange(w, r, "top_products", func(rng Range) (interface{}, error) {
		return h.service.TopProducts(r.Context(), rng, limit)
	})
}

func (h *Handler) handleTopCustomers(w http.ResponseWriter, r *http.Request) {
	limit := httpx.IntQuery(r, "limit", defaultTopLimit)
	h.withRange(w, r, "top_customers", func(rng Range) (interface{}, error) {
		return h.service.TopCustomers(r.Context(), rng, limit)
	})
}

func (h *Handler) handleInventoryValue(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.InventoryValue(r.Context())
	h.respond(w, "inventory_value", v, err)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.LowStock(r.Context(), httpx.IntQuery(r, "limit", defaultLowStockLimit))
	h.respond(w, "low_stock", v, err)
}

func (h *Handler) handleWarrantyStatus(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.WarrantyStatus(r.Context())
	h.respond(w, "warranty_status", v, err)
}

func (h *Handler) handleExpiringWarranties(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.ExpiringWarranties(r.Context(),
		httpx.IntQuery(r, "days", defaultExpiringDays),
		httpx.IntQuery(r, "limit", defaultExpiringLimit))
	h.respond(w, "expiring_warranties", v, err)
}
