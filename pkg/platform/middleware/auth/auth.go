// Package auth guards routes behind a bearer session token and exposes the
// authenticated account through requestcontext.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "tradegate/pkg/domain"
	dErrors "tradegate/pkg/domain-errors"
	"tradegate/pkg/platform/httputil"
	"tradegate/pkg/requestcontext"
)

// SessionValidator validates a bearer token and returns the account it
// authenticates. Satisfied by the JWT session issuer.
type SessionValidator interface {
	ValidateSession(tokenString string) (id.AccountID, string, error)
}

const bearerPrefix = "Bearer "

// RequireSession rejects requests without a valid bearer token and stores the
// account ID and role in the request context.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			accountID, role, err := validator.ValidateSession(token)
			if err != nil {
				logger.WarnContext(ctx, "rejected session token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired session"))
				return
			}

			ctx = requestcontext.WithAccountID(ctx, accountID)
			ctx = requestcontext.WithRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only sessions carrying the given role. Mount after
// RequireSession.
func RequireRole(role string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Role(ctx) != role {
				logger.WarnContext(ctx, "role check failed",
					"request_id", requestcontext.RequestID(ctx),
					"required", role,
					"account_id", requestcontext.AccountID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "not found"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
