package principal

import "context"

type ctxKey struct{}

// IntoContext attaches p to ctx for the remainder of the request.
func IntoContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext retrieves the Principal attached by IntoContext, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok
}
