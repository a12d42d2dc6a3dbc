// Package authn resolves the ledger scope of each request from its bearer token.
package authn

import (
	"errors"
	"net/http"
	"strings"

	"maasser/internal/auth"
	applog "maasser/internal/log"
)

// Middleware authenticates requests with the verifier. Requests without a
// token run in demo mode when the verifier allows it. Invalid tokens are
// always rejected.
func Middleware(v *auth.Verifier, onUnauthorized func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	if onUnauthorized == nil {
		onUnauthorized = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				onUnauthorized(w, r, err)
				return
			}

			if token == "" {
				if !v.AllowDemo() {
					onUnauthorized(w, r, auth.ErrMissingToken)
					return
				}
				next.ServeHTTP(w, r.WithContext(auth.WithScope(r.Context(), "")))
				return
			}

			scope, err := v.Verify(token)
			if err != nil {
				applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).
					WarnContext(r.Context(), "Rejected bearer token", applog.NewFields().WithError(err).ToSlice()...)
				onUnauthorized(w, r, err)
				return
			}

			ctx := auth.WithScope(r.Context(), scope)
			logger := applog.FromContext(ctx).With(applog.FieldScope, scope)
			next.ServeHTTP(w, r.WithContext(applog.IntoContext(ctx, logger)))
		})
	}
}

var errMalformedHeader = errors.New("invalid authorization header")

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errMalformedHeader
	}
	return strings.TrimSpace(parts[1]), nil
}
