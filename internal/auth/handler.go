package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

const forgotPasswordMessage = "If your email is registered, you will receive a password reset link"

// Handler exposes the authentication endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	perMinute int
}

// NewHandler builds a Handler. perMinute caps login and password reset
// attempts per client IP; zero uses a default of 10.
func NewHandler(logger *slog.Logger, service *Service, perMinute int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if perMinute <= 0 {
		perMinute = 10
	}
	return &Handler{logger: logger, service: service, perMinute: perMinute}
}

// MountRoutes registers auth routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	limited := r.With(httprate.LimitByIP(h.perMinute, time.Minute))
	limited.Post("/login", h.Login)
	limited.Post("/forgot-password", h.ForgotPassword)
	limited.Post("/reset-password", h.ResetPassword)
	r.Post("/register", h.Register)
	r.Post("/verify-token", h.VerifyToken)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	h.logger.Info("user logged in", slog.String("user_id", sess.User.ID))
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	h.logger.Info("user registered", slog.String("user_id", sess.User.ID))
	httpx.JSON(w, http.StatusCreated, sess)
}

func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var in TokenInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Verify(r.Context(), in.Token)
	if err != nil {
		h.fail(w, "verify token", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"valid": true, "user": user})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in ForgotPasswordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.ForgotPassword(r.Context(), in); err != nil {
		h.fail(w, "forgot password", err)
		return
	}
	httpx.Message(w, forgotPasswordMessage)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in ResetPasswordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.ResetPassword(r.Context(), in); err != nil {
		h.fail(w, "reset password", err)
		return
	}
	httpx.Message(w, "Password has been reset successfully")
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
