package storefront

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// VerifyEmail marks the user a verification token points at as verified.
// It is idempotent: a verified user is reported with alreadyVerified and
// left untouched.
func (s *SessionController) VerifyEmail(ctx context.Context, token string) (alreadyVerified bool, err error) {
	err = s.run(ctx, "user.verify", func(ctx context.Context) error {
		var err error
		alreadyVerified, err = s.verifyEmail(ctx, token)
		return err
	})
	return alreadyVerified, err
}

func (s *SessionController) verifyEmail(ctx context.Context, token string) (bool, error) {
	invalid := withCode(ErrInvalidOrExpiredToken, goerrors.CodeBadRequest)

	claims, err := s.tokens.Verify(TokenVerification, token)
	if err != nil {
		return false, invalid
	}

	user, err := s.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if IsNotFound(err) {
			return false, invalid
		}
		return false, serverError(err, "failed to load user for verification")
	}

	if user.Verified {
		return true, nil
	}

	user.Verified = true
	if _, err := s.users.Save(ctx, user); err != nil {
		return false, serverError(err, "failed to mark user as verified")
	}

	s.record(ctx, ActivityEventEmailVerified, user.ID.String(), nil)

	return false, nil
}
