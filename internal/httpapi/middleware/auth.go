package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type Keys struct {
	Public []string
	Admin  []string
}

type Role string

const (
	RoleAnonymous Role = "anonymous" // no keys configured
	RolePublic    Role = "public"
	RoleAdmin     Role = "admin"
)

type (
	roleKey       struct{}
	authHeaderKey struct{}
)

// RoleFrom returns the role the auth middleware granted, or RoleAnonymous.
func RoleFrom(ctx context.Context) Role {
	if r, ok := ctx.Value(roleKey{}).(Role); ok {
		return r
	}
	return RoleAnonymous
}

// AuthHeader returns the request header the accepted API key was read from,
// or "" when no key was checked.
func AuthHeader(ctx context.Context) string {
	h, _ := ctx.Value(authHeaderKey{}).(string)
	return h
}

func withRole(r *http.Request, role Role, header string) *http.Request {
	ctx := context.WithValue(r.Context(), roleKey{}, role)
	ctx = context.WithValue(ctx, authHeaderKey{}, header)
	return r.WithContext(ctx)
}

// readAuth returns the presented key and the header that carried it.
func readAuth(r *http.Request) (key, header string) {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:]), "Authorization"
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return strings.TrimSpace(k), "X-API-Key"
	}
	return "", ""
}

func hasKey(given string, set []string) bool {
	if given == "" {
		return false
	}
	for _, k := range set {
		if subtle.ConstantTimeCompare([]byte(k), []byte(given)) == 1 {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// RequireAny allows requests that present either a public or admin key.
// If no keys are configured, it allows all requests (handy for local dev).
func RequireAny(keys Keys) func(http.Handler) http.Handler {
	enabled := len(keys.Public) > 0 || len(keys.Admin) > 0
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, header := readAuth(r)
			switch {
			case hasKey(key, keys.Admin):
				next.ServeHTTP(w, withRole(r, RoleAdmin, header))
			case hasKey(key, keys.Public):
				next.ServeHTTP(w, withRole(r, RolePublic, header))
			default:
				writeError(w, http.StatusUnauthorized, "unauthorized")
			}
		})
	}
}

// RequireAdmin only permits requests that present an admin key.
// If no admin keys are configured, it allows all requests (dev).
func RequireAdmin(keys Keys) func(http.Handler) http.Handler {
	enabled := len(keys.Admin) > 0
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, header := readAuth(r)
			if hasKey(key, keys.Admin) {
				next.ServeHTTP(w, withRole(r, RoleAdmin, header))
				return
			}
			writeError(w, http.StatusForbidden, "forbidden")
		})
	}
}
