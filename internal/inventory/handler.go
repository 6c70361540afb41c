package inventory

import (
	"log/slog"
	"net/http"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Handler serves stock card endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// Movements handles GET /products/{id}/movements.
func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, err := httpx.TimeQuery(r, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.TimeQuery(r, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	moves, err := h.service.Movements(r.Context(), MovementFilter{
		ProductID: id,
		From:      from,
		To:        to,
		Limit:     httpx.IntQuery(r, "limit", 200),
	})
	if err != nil {
		if httpx.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("list stock movements", slog.String("product_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, moves)
}
