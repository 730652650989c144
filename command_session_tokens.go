package storefront

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type LoginMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e LoginMessage) Type() string { return "user.login" }

// Validate implements validation.Validatable
func (e LoginMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required),
	)
}

// LoginResult is the token pair and the sanitized user returned on login
type LoginResult struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         *PublicUser `json:"user"`
}

// Login authenticates a verified user and opens a session. The refresh
// token on record is overwritten, so any earlier session stops refreshing.
func (s *SessionController) Login(ctx context.Context, msg LoginMessage) (*LoginResult, error) {
	var result *LoginResult
	err := s.run(ctx, msg.Type(), func(ctx context.Context) error {
		var err error
		result, err = s.login(ctx, msg)
		return err
	})
	return result, err
}

func (s *SessionController) login(ctx context.Context, msg LoginMessage) (*LoginResult, error) {
	msg.Email = NormalizeEmail(msg.Email)
	if err := msg.Validate(); err != nil {
		return nil, validationError(err)
	}

	user, err := s.users.FindByEmail(ctx, msg.Email)
	if err != nil {
		if IsNotFound(err) {
			s.record(ctx, ActivityEventLoginFailure, "", map[string]any{"email": msg.Email, "reason": "unknown_email"})
			return nil, ErrInvalidCredentials
		}
		return nil, serverError(err, "failed to look up user")
	}

	if err := ComparePasswordAndHash(msg.Password, user.PasswordHash); err != nil {
		s.record(ctx, ActivityEventLoginFailure, user.ID.String(), map[string]any{"reason": "password_mismatch"})
		return nil, ErrInvalidCredentials
	}

	if !user.Verified {
		s.record(ctx, ActivityEventLoginFailure, user.ID.String(), map[string]any{"reason": "not_verified"})
		return nil, ErrNotVerified
	}

	payload := TokenPayload{UserID: user.ID.String(), Role: user.Role}

	accessToken, err := s.tokens.Issue(TokenAccess, payload)
	if err != nil {
		return nil, serverError(err, "failed to issue access token")
	}

	refreshToken, err := s.tokens.Issue(TokenRefresh, payload)
	if err != nil {
		return nil, serverError(err, "failed to issue refresh token")
	}

	user.SetRefreshToken(refreshToken)
	saved, err := s.users.Save(ctx, user)
	if err != nil {
		return nil, serverError(err, "failed to store refresh token")
	}

	s.record(ctx, ActivityEventLoginSuccess, user.ID.String(), nil)

	return &LoginResult{
		Token:        accessToken,
		RefreshToken: refreshToken,
		User:         saved.Sanitize(),
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The token must
// verify and also equal the value currently stored on its user. The
// refresh token itself is not rotated.
func (s *SessionController) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var accessToken string
	err := s.run(ctx, "session.refresh", func(ctx context.Context) error {
		if refreshToken == "" {
			return ErrMissingInput
		}

		claims, err := s.tokens.Verify(TokenRefresh, refreshToken)
		if err != nil {
			return ErrInvalidOrExpiredToken
		}

		user, err := s.users.FindByID(ctx, claims.UserID())
		if err != nil {
			if IsNotFound(err) {
				return ErrInvalidOrExpiredToken
			}
			return serverError(err, "failed to load user for refresh")
		}

		if !user.HasRefreshToken(refreshToken) {
			return ErrInvalidOrExpiredToken
		}

		accessToken, err = s.tokens.Issue(TokenAccess, TokenPayload{UserID: user.ID.String(), Role: user.Role})
		if err != nil {
			return serverError(err, "failed to issue access token")
		}

		s.record(ctx, ActivityEventTokenRefreshed, user.ID.String(), nil)
		return nil
	})
	return accessToken, err
}

// Logout clears the refresh token of the user that owns it.
func (s *SessionController) Logout(ctx context.Context, refreshToken string) error {
	return s.run(ctx, "session.logout", func(ctx context.Context) error {
		if refreshToken == "" {
			return ErrMissingInput
		}

		user, err := s.users.FindByRefreshToken(ctx, refreshToken)
		if err != nil {
			if IsNotFound(err) {
				return ErrInvalidRefreshToken
			}
			return serverError(err, "failed to look up refresh token")
		}

		user.SetRefreshToken("")
		if _, err := s.users.Save(ctx, user); err != nil {
			return serverError(err, "failed to clear refresh token")
		}

		s.record(ctx, ActivityEventLogout, user.ID.String(), nil)
		return nil
	})
}
