package storefront

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/hashid/pkg/hashid"
)

// MinPasswordLength is the shortest password signup and reset accept
const MinPasswordLength = 6

type RegisterUserMessage struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate implements validation.Validatable
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(MinPasswordLength, 0)),
	)
}

// Signup creates an unverified user and emails a verification link. When
// the email cannot be sent the user stays created and the error kind is
// EMAIL_DISPATCH_FAILED, so the caller can offer ResendVerification.
func (s *SessionController) Signup(ctx context.Context, msg RegisterUserMessage) (*User, error) {
	var created *User
	err := s.run(ctx, msg.Type(), func(ctx context.Context) error {
		var err error
		created, err = s.signup(ctx, msg)
		return err
	})
	return created, err
}

func (s *SessionController) signup(ctx context.Context, msg RegisterUserMessage) (*User, error) {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = NormalizeEmail(msg.Email)

	if err := msg.Validate(); err != nil {
		return nil, validationError(err)
	}

	if _, err := s.users.FindByEmail(ctx, msg.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !IsNotFound(err) {
		return nil, serverError(err, "failed to look up email")
	}

	hash, err := HashPassword(msg.Password)
	if err != nil {
		return nil, serverError(err, "failed to hash password")
	}

	user := &User{
		Name:         msg.Name,
		Email:        msg.Email,
		PasswordHash: hash,
		Role:         RoleUser,
		Verified:     false,
		Cart:         []CartItem{},
	}
	if s.useHashid {
		if id, err := hashid.NewUUID(msg.Email); err == nil {
			user.ID = id
		}
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		// a concurrent signup may have won the unique index
		if _, ferr := s.users.FindByEmail(ctx, msg.Email); ferr == nil {
			return nil, ErrDuplicateEmail
		}
		return nil, serverError(err, "could not create user")
	}

	s.record(ctx, ActivityEventSignup, created.ID.String(), map[string]any{"email": created.Email})

	if err := s.sendVerification(ctx, created); err != nil {
		return created, err
	}

	return created, nil
}

type ResendVerificationMessage struct {
	Email string `json:"email"`
}

func (e ResendVerificationMessage) Type() string { return "user.verification.resend" }

// Validate implements validation.Validatable
func (e ResendVerificationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

// ResendVerification issues a fresh verification token for an unverified
// user. It returns alreadyVerified when there is nothing to do.
func (s *SessionController) ResendVerification(ctx context.Context, msg ResendVerificationMessage) (alreadyVerified bool, err error) {
	err = s.run(ctx, msg.Type(), func(ctx context.Context) error {
		msg.Email = NormalizeEmail(msg.Email)
		if err := msg.Validate(); err != nil {
			return validationError(err)
		}

		user, err := s.users.FindByEmail(ctx, msg.Email)
		if err != nil {
			if IsNotFound(err) {
				return ErrEmailNotRegistered
			}
			return serverError(err, "failed to look up email")
		}

		if user.Verified {
			alreadyVerified = true
			return nil
		}

		return s.sendVerification(ctx, user)
	})
	return alreadyVerified, err
}

func (s *SessionController) sendVerification(ctx context.Context, user *User) error {
	token, err := s.tokens.Issue(TokenVerification, TokenPayload{UserID: user.ID.String()})
	if err != nil {
		return serverError(err, "failed to issue verification token")
	}

	if err := s.mailer.SendVerificationEmail(ctx, user.Email, token); err != nil {
		s.logger.Error("verification email to %s failed: %v", user.Email, err)
		return wrapKind(err, ErrEmailDispatchFailed)
	}

	return nil
}
