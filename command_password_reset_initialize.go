package storefront

import (
	"context"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email"`
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// Validate implements validation.Validatable
func (p InitializePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
	)
}

// RequestPasswordReset emails a reset link to a registered user. A failed
// dispatch is reported as a server error with no compensating action.
func (s *SessionController) RequestPasswordReset(ctx context.Context, msg InitializePasswordResetMessage) error {
	return s.run(ctx, msg.Type(), func(ctx context.Context) error {
		msg.Email = NormalizeEmail(msg.Email)
		if err := msg.Validate(); err != nil {
			return validationError(err)
		}

		user, err := s.users.FindByEmail(ctx, msg.Email)
		if err != nil {
			if IsNotFound(err) {
				return ErrEmailNotRegistered
			}
			return serverError(err, "failed to retrieve user for password reset")
		}

		token, err := s.tokens.Issue(TokenReset, TokenPayload{UserID: user.ID.String()})
		if err != nil {
			return serverError(err, "failed to issue reset token")
		}

		link := s.ResetPasswordLink(token)
		if err := s.mailer.SendResetPasswordEmail(ctx, user.Email, link); err != nil {
			s.logger.Error("reset password email to %s failed: %v", user.Email, err)
			return serverError(err, "failed to send reset password email")
		}

		s.record(ctx, ActivityEventPasswordResetRequest, user.ID.String(), nil)
		return nil
	})
}

// ResetPasswordLink composes the frontend link a reset token is delivered in
func (s *SessionController) ResetPasswordLink(token string) string {
	return s.frontendURL + "/reset-password/" + url.PathEscape(token)
}
