package rbac

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/erp-api/internal/platform/httpx"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers. It expects the
// authentication middleware to have run first.
type Middleware struct {
	Logger *slog.Logger
}

// Require rejects requests whose identity does not satisfy c.
func (m Middleware) Require(c Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if err := Check(identity, c); err != nil {
				if m.Logger != nil && identity != nil {
					m.Logger.Debug("rbac denied",
						slog.String("capability", c.Name),
						slog.String("role", string(identity.Role)),
						slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, r, m.Logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
