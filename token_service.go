package storefront

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenKind selects the secret, lifetime and audience of a token
type TokenKind string

const (
	TokenVerification TokenKind = "verification"
	TokenAccess       TokenKind = "access"
	TokenRefresh      TokenKind = "refresh"
	TokenReset        TokenKind = "reset"
)

// TokenKinds lists every kind the issuer signs.
var TokenKinds = []TokenKind{TokenVerification, TokenAccess, TokenRefresh, TokenReset}

// TokenPayload is the data signed into a token. Role is ignored for
// verification and reset tokens.
type TokenPayload struct {
	UserID string
	Role   UserRole
}

// TokenKindConfig is the secret and lifetime of one token kind.
type TokenKindConfig struct {
	Secret string
	TTL    time.Duration
}

// TokenConfig is the explicit configuration of the token issuer. It is
// built once at startup and never mutated.
type TokenConfig struct {
	Issuer       string
	Verification TokenKindConfig
	Access       TokenKindConfig
	Refresh      TokenKindConfig
	Reset        TokenKindConfig
}

func (c TokenConfig) kind(k TokenKind) (TokenKindConfig, bool) {
	switch k {
	case TokenVerification:
		return c.Verification, true
	case TokenAccess:
		return c.Access, true
	case TokenRefresh:
		return c.Refresh, true
	case TokenReset:
		return c.Reset, true
	default:
		return TokenKindConfig{}, false
	}
}

// TokenIssuer creates and verifies the signed tokens of the session lifecycle.
type TokenIssuer interface {
	Issue(kind TokenKind, payload TokenPayload) (string, error)
	Verify(kind TokenKind, token string) (*TokenClaims, error)
}

// TokenServiceImpl implements TokenIssuer with HS256 signed JWTs
type TokenServiceImpl struct {
	issuer string
	kinds  map[TokenKind]tokenSettings
	logger Logger
	now    func() time.Time
}

type tokenSettings struct {
	key []byte
	ttl time.Duration
}

// TokenServiceOption configures the token service
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.logger = normalizeLogger(logger)
	}
}

// WithTokenClock sets the clock used for issuing and validating tokens
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a TokenIssuer. Every kind needs its own non
// empty secret and a positive lifetime.
func NewTokenService(cfg TokenConfig, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	ts := &TokenServiceImpl{
		issuer: cfg.Issuer,
		kinds:  make(map[TokenKind]tokenSettings, len(TokenKinds)),
		logger: defLogger{},
		now:    time.Now,
	}

	seen := map[string]TokenKind{}
	for _, kind := range TokenKinds {
		kc, _ := cfg.kind(kind)
		if kc.Secret == "" {
			return nil, errors.New(fmt.Sprintf("missing signing secret for %s tokens", kind), errors.CategoryInternal)
		}
		if other, ok := seen[kc.Secret]; ok {
			return nil, errors.New(fmt.Sprintf("%s and %s tokens share a signing secret", other, kind), errors.CategoryInternal)
		}
		if kc.TTL <= 0 {
			return nil, errors.New(fmt.Sprintf("invalid lifetime for %s tokens", kind), errors.CategoryInternal)
		}
		seen[kc.Secret] = kind
		ts.kinds[kind] = tokenSettings{key: []byte(kc.Secret), ttl: kc.TTL}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// Issue signs a token of the given kind
func (ts *TokenServiceImpl) Issue(kind TokenKind, payload TokenPayload) (string, error) {
	settings, ok := ts.kinds[kind]
	if !ok {
		return "", errors.New(fmt.Sprintf("unknown token kind %q", kind), errors.CategoryInternal)
	}

	if payload.UserID == "" {
		return "", errors.New("token payload requires a user id", errors.CategoryInternal)
	}

	now := ts.now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   payload.UserID,
			Audience:  jwt.ClaimStrings{string(kind)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(settings.ttl)),
		},
		UID: payload.UserID,
	}

	if kind == TokenAccess || kind == TokenRefresh {
		claims.UserRole = payload.Role
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(settings.key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify checks signature, expiry, issuer and audience in one step. Any
// failure is reported as ErrInvalidOrExpiredToken so callers cannot tell
// an expired token from a forged one.
func (ts *TokenServiceImpl) Verify(kind TokenKind, tokenString string) (*TokenClaims, error) {
	settings, ok := ts.kinds[kind]
	if !ok || tokenString == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithAudience(string(kind)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return settings.key, nil
	}, parserOptions...)

	if err != nil {
		ts.logger.Debug("token service rejected %s token: %v", kind, err)
		return nil, ErrInvalidOrExpiredToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.UserID() == "" {
		ts.logger.Debug("token service could not decode %s claims", kind)
		return nil, ErrInvalidOrExpiredToken
	}

	return claims, nil
}

// TTL returns the configured lifetime of a token kind
func (ts *TokenServiceImpl) TTL(kind TokenKind) time.Duration {
	return ts.kinds[kind].ttl
}
