package documents

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kasirpos/pos/internal/platform/httpx"
	"github.com/kasirpos/pos/internal/shared"
)

// IdempotencyPort guards create requests carrying an Idempotency-Key header.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Handler serves the REST surface of one document kind.
type Handler struct {
	kind        Kind
	logger      *slog.Logger
	service     *Service
	idempotency IdempotencyPort
}

// NewHandler constructs a handler for kind. idempotency may be nil.
func NewHandler(kind Kind, logger *slog.Logger, service *Service, idempotency IdempotencyPort) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{kind: kind, logger: logger, service: service, idempotency: idempotency}
}

// MountRoutes registers routes relative to the kind's base path.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	if h.kind == KindPurchase {
		r.Get("/supplier/{supplierId}", h.ListByCounterparty)
		r.Post("/{id}/items", h.AddItems)
		r.Delete("/{id}/items/{itemId}", h.RemoveItem)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
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
	q := r.URL.Query()
	h.list(w, r, ListFilter{
		Search:    strings.TrimSpace(q.Get("search")),
		Status:    Status(q.Get("status")),
		From:      from,
		To:        to,
		Page:      httpx.IntQuery(r, "page", 1),
		Limit:     httpx.IntQuery(r, "limit", 20),
		WithItems: q.Get("include") == "items",
	})
}

func (h *Handler) ListByCounterparty(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "supplierId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.list(w, r, ListFilter{
		CounterpartyID: id,
		Page:           httpx.IntQuery(r, "page", 1),
		Limit:          httpx.IntQuery(r, "limit", 20),
		WithItems:      true,
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter ListFilter) {
	docs, total, err := h.service.List(r.Context(), h.kind, filter)
	if err != nil {
		h.fail(w, "list documents", err)
		return
	}
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = d.Rounded()
	}
	httpx.JSON(w, http.StatusOK, shared.Page[Document]{
		Data:       out,
		Pagination: shared.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.Get(r.Context(), h.kind, id)
	if err != nil {
		h.fail(w, "get document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc.Rounded())
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	module := string(h.kind) + ".create"
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, module); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.RespondError(w, httpx.ErrConflict)
				return
			}
			h.fail(w, "idempotency check", err)
			return
		}
	}
	doc, err := h.service.Create(r.Context(), h.kind, in, actorID(r))
	if err != nil {
		if key != "" && h.idempotency != nil {
			if derr := h.idempotency.Delete(r.Context(), key, module); derr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", derr))
			}
		}
		h.fail(w, "create document", err)
		return
	}
	h.logger.Info("document created",
		slog.String("kind", string(h.kind)),
		slog.String("id", doc.ID),
		slog.String("invoice_number", doc.Number),
		slog.Int("items", len(doc.Items)),
	)
	httpx.JSON(w, http.StatusCreated, doc.Rounded())
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
	doc, err := h.service.Update(r.Context(), h.kind, id, in, actorID(r))
	if err != nil {
		h.fail(w, "update document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc.Rounded())
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), h.kind, id, actorID(r)); err != nil {
		h.fail(w, "delete document", err)
		return
	}
	httpx.Message(w, strings.ToUpper(h.kind.label()[:1])+h.kind.label()[1:]+" deleted successfully")
}

func (h *Handler) AddItems(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in AddItemsInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.AddItems(r.Context(), h.kind, id, in, actorID(r))
	if err != nil {
		h.fail(w, "add document items", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc.Rounded())
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	itemID, err := httpx.IDParam(r, "itemId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.RemoveItem(r.Context(), h.kind, id, itemID, actorID(r))
	if err != nil {
		h.fail(w, "remove document item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc.Rounded())
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.String("kind", string(h.kind)), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func actorID(r *http.Request) string {
	if actor, ok := shared.ActorFromContext(r.Context()); ok {
		return actor.UserID
	}
	return ""
}
