package http

import (
	"net/http"

	"maasser/internal/auth"
)

// scopeOf returns the ledger scope resolved by the auth middleware. Requests
// that never passed through it fall back to the demo scope.
func scopeOf(r *http.Request) string {
	scope, _ := auth.ScopeFromContext(r.Context())
	return scope
}

// clientKey identifies a client for rate limiting.
func (s *Server) clientKey(r *http.Request) string {
	return s.detector.ExtractClientIP(r)
}
