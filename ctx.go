package storefront

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

var identityCtxKey = &contextKey{"identity"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// IdentityLocalsKey is the fiber Locals key the access guard stores claims under
const IdentityLocalsKey = "user"

// WithIdentity sets the resolved identity in the given context
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the identity in the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok
}

// WithClaimsContext sets the TokenClaims in the given context
func WithClaimsContext(ctx context.Context, claims *TokenClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// GetClaims extracts the TokenClaims from the standard context
func GetClaims(ctx context.Context) (*TokenClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*TokenClaims)
	return raw, ok && raw != nil
}

// IdentityFromFiber returns the identity the access guard attached to the request.
func IdentityFromFiber(c *fiber.Ctx) (Identity, bool) {
	if identity, ok := IdentityFromContext(c.UserContext()); ok {
		return identity, true
	}

	claims, ok := c.Locals(IdentityLocalsKey).(*TokenClaims)
	if !ok || claims == nil {
		return Identity{}, false
	}
	return identityFromClaims(claims), true
}

func identityFromClaims(claims *TokenClaims) Identity {
	return Identity{
		UserID: claims.UserID(),
		Role:   UserRole(claims.Role()),
	}
}
