package settings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Handler exposes settings over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	write   func(http.Handler) http.Handler
}

// NewHandler builds a Handler. write, when non-nil, wraps the update route
// (typically an admin role check).
func NewHandler(logger *slog.Logger, service *Service, write func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, write: write}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{key}", h.Show)
	if h.write != nil {
		r.With(h.write).Put("/", h.Update)
		return
	}
	r.Put("/", h.Update)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, "list settings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, "get setting", err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := httpx.DecodeJSON(r, &values); err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.Update(r.Context(), values)
	if err != nil {
		h.fail(w, "update settings", err)
		return
	}
	h.logger.Info("settings updated", slog.Int("keys", len(values)))
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
