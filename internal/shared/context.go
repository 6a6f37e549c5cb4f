package shared

import "context"

type principalContextKey struct{}

// ContextWithPrincipalID stores the authenticated principal ID in context.
// The session layer in front of this service is responsible for putting it there.
func ContextWithPrincipalID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, principalContextKey{}, id)
}

// PrincipalIDFromContext extracts the authenticated principal ID from context.
func PrincipalIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(principalContextKey{}).(int64)
	return id, ok
}
