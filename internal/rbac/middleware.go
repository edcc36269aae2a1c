package rbac

import (
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/zamsuite/zamsuite-auth/internal/platform/httpx"
	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Gate   *Gate
	Logger *slog.Logger
}

// RequireAny ensures the current user has at least one of the required
// permissions. Unauthenticated requests get 401, authenticated requests
// lacking every permission get 403.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := m.currentUserID(r)
			if !ok {
				httpx.Message(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			set, err := m.resolve(w, r, userID)
			if err != nil {
				return
			}
			for _, p := range normalized {
				if set.Has(p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Message(w, http.StatusForbidden, "forbidden")
		})
	}
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := m.currentUserID(r)
			if !ok {
				httpx.Message(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			set, err := m.resolve(w, r, userID)
			if err != nil {
				return
			}
			for _, p := range normalized {
				if !set.Has(p) {
					httpx.Message(w, http.StatusForbidden, "forbidden")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) resolve(w http.ResponseWriter, r *http.Request, userID int64) (PermissionSet, error) {
	set, err := m.Gate.resolver.Resolve(r.Context(), userID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac resolve", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		httpx.JSON(w, http.StatusInternalServerError, httpx.ErrorBody{Error: "internal_error", Message: "authorization check failed"})
		return nil, err
	}
	return set, nil
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}

// CurrentUserID exposes the session user lookup for handlers that need the
// acting user beyond the permission check.
func CurrentUserID(r *http.Request) (int64, bool) {
	return Middleware{}.currentUserID(r)
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}
