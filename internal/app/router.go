package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/kasirpos/pos/internal/audit/http"
	"github.com/kasirpos/pos/internal/auth"
	"github.com/kasirpos/pos/internal/documents"
	"github.com/kasirpos/pos/internal/masterdata/categories"
	"github.com/kasirpos/pos/internal/masterdata/customers"
	"github.com/kasirpos/pos/internal/masterdata/products"
	"github.com/kasirpos/pos/internal/masterdata/suppliers"
	"github.com/kasirpos/pos/internal/observability"
	"github.com/kasirpos/pos/internal/platform/httpx"
	"github.com/kasirpos/pos/internal/reports"
	"github.com/kasirpos/pos/internal/settings"
	"github.com/kasirpos/pos/internal/warranty"
	"github.com/kasirpos/pos/jobs"
)

// Version is reported by GET /api.
var Version = "dev"

// RouterParams groups dependencies for building the HTTP router. Nil
// handlers are not mounted.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
	Tokens  *auth.Tokens
	// Ready reports whether backing services are reachable.
	Ready func(ctx context.Context) error

	AuthHandler       *auth.Handler
	SalesHandler      *documents.Handler
	PurchasesHandler  *documents.Handler
	ProductsHandler   *products.Handler
	CategoriesHandler *categories.Handler
	CustomersHandler  *customers.Handler
	SuppliersHandler  *suppliers.Handler
	WarrantyHandler   *warranty.Handler
	ReportsHandler    *reports.Handler
	SettingsHandler   *settings.Handler
	JobHandler        *jobs.Handler
	AuditHandler      *audithttp.Handler
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := params.Ready(ctx); err != nil {
				if params.Logger != nil {
					params.Logger.Warn("readiness check", slog.Any("error", err))
				}
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusOK, map[string]string{
				"status":  "ok",
				"message": "POS API is running",
				"version": Version,
			})
		})

		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}

		protect := auth.Middleware(params.Tokens)
		adminOnly := auth.RequireRole(auth.RoleAdmin)

		if params.WarrantyHandler != nil {
			r.Route("/warranties", func(r chi.Router) {
				verifyRate := 0
				if params.Config != nil {
					verifyRate = params.Config.VerifyRateLimit
				}
				params.WarrantyHandler.MountPublic(r, verifyRate)
				r.Group(func(r chi.Router) {
					r.Use(protect)
					params.WarrantyHandler.MountRoutes(r)
				})
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(protect)
			mount(r, "/sales", params.SalesHandler)
			mount(r, "/purchases", params.PurchasesHandler)
			mount(r, "/products", params.ProductsHandler)
			mount(r, "/categories", params.CategoriesHandler)
			mount(r, "/customers", params.CustomersHandler)
			mount(r, "/suppliers", params.SuppliersHandler)
			mount(r, "/reports", params.ReportsHandler)
			mount(r, "/settings", params.SettingsHandler)
			if params.JobHandler != nil {
				r.With(adminOnly).Route("/jobs", params.JobHandler.MountRoutes)
			}
			if params.AuditHandler != nil {
				r.With(adminOnly).Route("/audit-logs", params.AuditHandler.MountRoutes)
			}
		})
	})

	return r
}

type routeMounter interface {
	MountRoutes(r chi.Router)
}

// mount skips typed-nil handlers so optional modules can be left out.
func mount[T routeMounter](r chi.Router, pattern string, h T) {
	var zero T
	if any(h) == any(zero) {
		return
	}
	r.Route(pattern, h.MountRoutes)
}
