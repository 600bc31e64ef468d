package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/jcmexdev/storefront/internal/pkg/requestmeta"
	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
)

type identityKey struct{}

// ErrorWriter renders a rejected request.
type ErrorWriter func(w http.ResponseWriter, status int, code, msg string)

// Identity reads the caller identity forwarded by the gateway. Requests
// without a user id pass through anonymously.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(requestmeta.HeaderXUserID))
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		role := domain.RoleUser
		if strings.EqualFold(strings.TrimSpace(r.Header.Get(requestmeta.HeaderXUserRole)), string(domain.RoleAdmin)) {
			role = domain.RoleAdmin
		}
		ctx := WithIdentity(r.Context(), domain.Identity{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller identity and whether one was supplied.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok && id.UserID != ""
}

// RequireIdentity rejects anonymous requests with 401.
func RequireIdentity(reject ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFrom(r.Context()); !ok {
				reject(w, http.StatusUnauthorized, "unauthenticated", "login first to access this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects callers without the admin role with 403.
func RequireAdmin(reject ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				reject(w, http.StatusUnauthorized, "unauthenticated", "login first to access this resource")
				return
			}
			if !id.IsAdmin() {
				reject(w, http.StatusForbidden, "forbidden", "role is not allowed to access this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
