package storefront

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload of every token kind. Verification and reset
// tokens carry no role.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID      string   `json:"userId"`
	UserRole UserRole `json:"role,omitempty"`
}

// UserID returns the user the token was issued for
func (c *TokenClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Role returns the role captured when the token was issued
func (c *TokenClaims) Role() string {
	return string(c.UserRole)
}

// Kind returns the token kind taken from the audience claim
func (c *TokenClaims) Kind() TokenKind {
	if len(c.Audience) == 0 {
		return ""
	}
	return TokenKind(c.Audience[0])
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Identity is the {userId, role} pair the access guard attaches to a request.
type Identity struct {
	UserID string   `json:"userId"`
	Role   UserRole `json:"role"`
}
