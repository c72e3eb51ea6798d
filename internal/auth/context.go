package auth

import "context"

type identityKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom extracts the identity from the context, or nil if absent.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// OwnerFrom returns the owner identity carried by ctx, or "".
func OwnerFrom(ctx context.Context) string {
	if id := IdentityFrom(ctx); id != nil {
		return id.ID
	}
	return ""
}
