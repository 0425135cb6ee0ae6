package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"central-illustration/internal/apierr"
	"central-illustration/internal/logger"
	"central-illustration/internal/models"
	"central-illustration/internal/service"
)

type userKey struct{}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the authenticated user attached by the auth middleware.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey{}).(*models.User)
	return u, ok && u != nil
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type Auth struct {
	auth Authenticator
	log  *logger.Logger
}

func NewAuth(a Authenticator, log *logger.Logger) *Auth {
	if log == nil {
		log = logger.Nop()
	}
	return &Auth{auth: a, log: log.With("middleware", "auth")}
}

// bearerToken reads the Authorization header, falling back to ?token= for
// clients that cannot set headers (websocket upgrades).
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	apierr.Write(w, http.StatusUnauthorized, "Could not validate credentials")
}

// Optional attaches the user when a valid token is present and otherwise
// lets the request through anonymously.
func (a *Auth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := bearerToken(r); tok != "" {
			if u, err := a.auth.Authenticate(r.Context(), tok); err == nil {
				r = r.WithContext(WithUser(r.Context(), u))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			unauthorized(w)
			return
		}
		u, err := a.auth.Authenticate(r.Context(), tok)
		switch {
		case errors.Is(err, service.ErrInactiveUser):
			apierr.Write(w, http.StatusBadRequest, "Inactive user")
			return
		case err != nil:
			if !errors.Is(err, service.ErrInvalidToken) {
				a.log.Error("authenticate", "error", err)
			}
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return a.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFrom(r.Context())
		if !u.IsAdmin() {
			apierr.Write(w, http.StatusForbidden, "Not enough permissions")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
