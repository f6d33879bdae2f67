// Package requesttime pins one "now" per HTTP request so audit timestamps and
// domain timestamps within a single operation agree.
package requesttime

import (
	"net/http"
	"time"

	"tradegate/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
