package auth

import (
	"context"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
)

type identityKey struct{}

// Identity is the authenticated caller as resolved from the access token.
type Identity struct {
	UserID int64
	SID    string
	Role   string
}

// Is reports whether the caller has the given role.
func (i Identity) Is(role enums.Role) bool {
	parsed, err := enums.ParseRole(i.Role)
	return err == nil && parsed == role
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext reports false for missing or anonymous identities.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || identity.UserID <= 0 {
		return Identity{}, false
	}
	return identity, true
}
