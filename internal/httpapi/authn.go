package httpapi

import (
	"errors"
	"net/http"

	"receiptz.org/internal/auth"
)

// Routes reachable without credentials. Everything else behind /v1 requires
// a validated principal before the handler runs.
var publicPaths = map[string]struct{}{
	"/":                        {},
	"/healthz":                 {},
	"/readyz":                  {},
	"/metrics":                 {},
	"/openapi.yaml":            {},
	"/v1/info":                 {},
	"/v1/users":                {},
	"/v1/users/login":          {},
	"/v1/users/forgotPassword": {},
	"/v1/users/resetPassword":  {},
	"/v1/users/verify":         {},
	"/v1/organizations":        {},
	"/v1/countries":            {},
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a.strategy == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := publicPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		ac, err := a.strategy.Authenticate(r)
		if err != nil {
			// The three failure classes get distinct messages so a client
			// can tell a lost header from a stale session.
			switch {
			case errors.Is(err, auth.ErrMissingCredentials):
				writeError(w, r, http.StatusUnauthorized, "authentication credentials are required")
			case errors.Is(err, auth.ErrExpiredCredentials):
				writeError(w, r, http.StatusUnauthorized, "credentials have expired")
			case errors.Is(err, auth.ErrMalformedCredentials):
				writeError(w, r, http.StatusUnauthorized, "malformed authentication credentials")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithContext(r.Context(), ac)))
	})
}
