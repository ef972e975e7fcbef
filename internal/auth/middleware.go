package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/erp-api/internal/platform/httpx"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// UserLoader resolves the account behind a token subject.
type UserLoader interface {
	FindByID(ctx context.Context, id int64) (*User, error)
}

// Middleware authenticates bearer tokens.
type Middleware struct {
	tokens *TokenManager
	users  UserLoader
	logger *slog.Logger
}

// NewMiddleware constructs the authentication middleware.
func NewMiddleware(tokens *TokenManager, users UserLoader, logger *slog.Logger) *Middleware {
	return &Middleware{tokens: tokens, users: users, logger: logger}
}

// Authenticate attaches the caller's identity when a bearer token is present.
// Requests without a token continue anonymously; the route's capability
// decides whether that is acceptable.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := m.tokens.Parse(raw)
		if err != nil {
			m.reject(w, r, shared.Unauthorized("Not authorized, token failed"), err)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			m.reject(w, r, shared.Unauthorized("Not authorized, token failed"), err)
			return
		}
		user, err := m.users.FindByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				m.reject(w, r, shared.Unauthorized("Not authorized, token failed"), err)
				return
			}
			httpx.RespondError(w, r, m.logger, err)
			return
		}
		if !user.IsActive {
			m.reject(w, r, shared.Unauthorized("User account is inactive"), nil)
			return
		}
		ctx := shared.ContextWithIdentity(r.Context(), user.Identity())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, err, cause error) {
	if m.logger != nil && cause != nil {
		m.logger.Debug("token rejected", slog.String("path", r.URL.Path), slog.Any("error", cause))
	}
	httpx.RespondError(w, r, m.logger, err)
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}
