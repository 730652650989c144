package storefront

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

type FinalizePasswordResetMessage struct {
	Token    string `json:"-"`
	Password string `json:"password"`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset.finalize" }

// Validate implements validation.Validatable
func (p FinalizePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Password, validation.Required, validation.Length(MinPasswordLength, 0)),
	)
}

// ResetPassword replaces the password of the user a reset token points at.
// The stored refresh token is left untouched, open sessions survive.
func (s *SessionController) ResetPassword(ctx context.Context, msg FinalizePasswordResetMessage) error {
	return s.run(ctx, msg.Type(), func(ctx context.Context) error {
		invalid := withCode(ErrInvalidOrExpiredToken, goerrors.CodeBadRequest)

		claims, err := s.tokens.Verify(TokenReset, msg.Token)
		if err != nil {
			return invalid
		}

		if err := msg.Validate(); err != nil {
			return validationError(err)
		}

		user, err := s.users.FindByID(ctx, claims.UserID())
		if err != nil {
			if IsNotFound(err) {
				return invalid
			}
			return serverError(err, "failed to load user for password reset")
		}

		hash, err := HashPassword(msg.Password)
		if err != nil {
			return serverError(err, "failed to hash password")
		}

		user.PasswordHash = hash
		if _, err := s.users.Save(ctx, user); err != nil {
			return serverError(err, "failed to update password")
		}

		s.record(ctx, ActivityEventPasswordResetSuccess, user.ID.String(), nil)
		return nil
	})
}
