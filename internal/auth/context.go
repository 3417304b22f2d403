package auth

import (
	"context"
	"strings"
)

// context key type for storing auth claims in context
type claimsContextKey struct{}

// NewContext returns a copy of ctx carrying claims.
func NewContext(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, c)
}

// FromContext extracts auth claims from the context, if present.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return c, ok && c != nil
}

// BearerToken strips an optional "Bearer" prefix from an authorization value.
func BearerToken(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "Bearer"))
}
