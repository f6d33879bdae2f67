// Package httptransport assembles the public router: shared middleware, the
// onboarding and auth handlers, and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradegate/internal/account"
	authhandler "tradegate/internal/auth/handler"
	onboardinghandler "tradegate/internal/onboarding/handler"
	sessionauth "tradegate/pkg/platform/middleware/auth"
	"tradegate/pkg/platform/middleware/metadata"
	"tradegate/pkg/platform/middleware/requestid"
	"tradegate/pkg/platform/middleware/requesttime"
	"tradegate/pkg/platform/middleware/tracing"
)

// Deps carries everything the router mounts.
type Deps struct {
	Onboarding *onboardinghandler.Handler
	Auth       *authhandler.Handler
	Sessions   sessionauth.SessionValidator
	Logger     *slog.Logger
}

// NewRouter wires all endpoints. Route groups, outermost first: operational,
// public onboarding/auth, session-guarded account routes, admin routes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.Middleware)
	r.Use(tracing.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	deps.Onboarding.RegisterPublic(r)
	deps.Auth.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(sessionauth.RequireSession(deps.Sessions, deps.Logger))
		deps.Onboarding.RegisterAccount(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(sessionauth.RequireSession(deps.Sessions, deps.Logger))
		r.Use(sessionauth.RequireRole(string(account.RoleAdmin), deps.Logger))
		deps.Onboarding.RegisterAdmin(r)
	})

	return r
}
