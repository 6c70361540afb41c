package warranty

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/kasirpos/pos/internal/platform/httpx"
	"github.com/kasirpos/pos/internal/shared"
)

// Handler exposes warranty endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the authenticated routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/serial/{serialNumber}", h.ShowBySerial)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// MountPublic registers the unauthenticated verification route. perMinute
// caps requests per client IP.
func (h *Handler) MountPublic(r chi.Router, perMinute int) {
	if perMinute <= 0 {
		perMinute = 30
	}
	r.With(httprate.LimitByIP(perMinute, time.Minute)).Post("/verify", h.Verify)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		Search:     q.Get("search"),
		Status:     Status(q.Get("status")),
		CustomerID: q.Get("customer_id"),
		Page:       httpx.IntQuery(r, "page", 1),
		Limit:      httpx.IntQuery(r, "limit", defaultLimit),
	}
	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list warranties", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.Page[Warranty]{
		Data:       items,
		Pagination: shared.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get warranty", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) ShowBySerial(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetBySerial(r.Context(), chi.URLParam(r, "serialNumber"))
	if err != nil {
		h.fail(w, "get warranty by serial", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create warranty", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update warranty", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete warranty", err)
		return
	}
	httpx.Message(w, "Warranty deleted successfully")
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var in VerifyInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Verify(r.Context(), strings.TrimSpace(in.SerialNumber))
	if err != nil {
		h.fail(w, "verify warranty", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
