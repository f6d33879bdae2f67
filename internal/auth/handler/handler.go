// Package handler exposes login and password reset over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradegate/internal/account"
	"tradegate/pkg/platform/httputil"
	"tradegate/pkg/requestcontext"
)

// Service is the auth port consumed by this handler.
type Service interface {
	Login(ctx context.Context, email, password string) (string, *account.Account, error)
	RequestPasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, tokenValue, newPassword string) error
}

// Handler wires auth endpoints to the auth service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the auth endpoints. All of them are public.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/password-reset", h.HandleRequestReset)
	r.Post("/auth/password-reset/complete", h.HandleCompleteReset)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[LoginRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, acct, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login refused",
			"request_id", requestcontext.RequestID(ctx),
			"client_ip", requestcontext.ClientIP(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:  session,
		ID:     acct.ID.String(),
		Role:   string(acct.Role),
		Status: string(acct.Status),
	})
}

func (h *Handler) HandleRequestReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[ResetRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.RequestPasswordReset(ctx, req.Email); err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Identical body whether or not the account exists.
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the address is registered, a reset email has been sent",
	})
}

func (h *Handler) HandleCompleteReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[CompleteResetRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.CompletePasswordReset(ctx, req.Token, req.NewPassword); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "password updated",
	})
}
