package auth

import "context"

type ctxKey string

const scopeKey ctxKey = "scope"

// WithScope records the authenticated scope. An empty scope means demo mode.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// ScopeFromContext returns the scope and whether the request was authenticated
// at all. Demo requests return ("", true).
func ScopeFromContext(ctx context.Context) (string, bool) {
	scope, ok := ctx.Value(scopeKey).(string)
	return scope, ok
}
