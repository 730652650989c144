package storefront

import (
	"database/sql"
	stderrors "errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

const (
	TextCodeValidationFailed      = "VALIDATION_FAILED"
	TextCodeDuplicateEmail        = "DUPLICATE_EMAIL"
	TextCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	TextCodeNotVerified           = "NOT_VERIFIED"
	TextCodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	TextCodeInvalidRefreshToken   = "INVALID_REFRESH_TOKEN"
	TextCodeMissingInput          = "MISSING_INPUT"
	TextCodeMissingToken          = "MISSING_TOKEN"
	TextCodeEmailNotRegistered    = "EMAIL_NOT_REGISTERED"
	TextCodeForbidden             = "FORBIDDEN"
	TextCodeEmailDispatchFailed   = "EMAIL_DISPATCH_FAILED"
	TextCodeServerError           = "SERVER_ERROR"
	TextCodeNotFound              = "NOT_FOUND"
	TextCodeBadRequest            = "BAD_REQUEST"
	TextCodePaymentNotCompleted   = "PAYMENT_NOT_COMPLETED"
)

// ErrValidationFailed is returned when a request does not match its schema.
var ErrValidationFailed = errors.New("validation failed", errors.CategoryValidation).
	WithTextCode(TextCodeValidationFailed).
	WithCode(errors.CodeBadRequest)

// ErrDuplicateEmail is returned on signup when the email is already registered.
var ErrDuplicateEmail = errors.New("Email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeBadRequest)

// ErrInvalidCredentials covers both unknown email and wrong password.
var ErrInvalidCredentials = errors.New("Invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrNotVerified is returned when a user with a matching password has not verified the email.
var ErrNotVerified = errors.New("Please verify your email before logging in", errors.CategoryAuth).
	WithTextCode(TextCodeNotVerified).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidOrExpiredToken hides whether a token was forged, expired or of the wrong kind.
var ErrInvalidOrExpiredToken = errors.New("Invalid or expired token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidOrExpiredToken).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidRefreshToken is returned on logout when no user owns the token.
var ErrInvalidRefreshToken = errors.New("Invalid refresh token", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidRefreshToken).
	WithCode(errors.CodeBadRequest)

// ErrMissingInput is returned when a required body field is absent.
var ErrMissingInput = errors.New("Refresh token required", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingInput).
	WithCode(errors.CodeBadRequest)

// ErrMissingToken is returned by the access guard when no bearer token is present.
var ErrMissingToken = errors.New("No token provided", errors.CategoryAuth).
	WithTextCode(TextCodeMissingToken).
	WithCode(errors.CodeUnauthorized)

// ErrEmailNotRegistered is returned on password reset requests for unknown emails.
var ErrEmailNotRegistered = errors.New("Email not registered", errors.CategoryBadInput).
	WithTextCode(TextCodeEmailNotRegistered).
	WithCode(errors.CodeBadRequest)

// ErrForbidden is returned by the admin guard.
var ErrForbidden = errors.New("Access denied. Admins only.", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrEmailDispatchFailed is returned when the user was created but the verification email could not be sent.
var ErrEmailDispatchFailed = errors.New("User created, but failed to send verification email. Try again later.", errors.CategoryOperation).
	WithTextCode(TextCodeEmailDispatchFailed).
	WithCode(errors.CodeInternal)

// ErrServerError is the catch all for persistence and collaborator failures.
var ErrServerError = errors.New("Server error", errors.CategoryInternal).
	WithTextCode(TextCodeServerError).
	WithCode(errors.CodeInternal)

// ErrRecordNotFound is returned by stores when a lookup matches nothing.
var ErrRecordNotFound = errors.New("record not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrPaymentNotCompleted is returned when a checkout session is not paid.
var ErrPaymentNotCompleted = errors.New("Payment not completed", errors.CategoryBadInput).
	WithTextCode(TextCodePaymentNotCompleted).
	WithCode(errors.CodeBadRequest)

// NotFound builds a not found error with a caller facing message.
func NotFound(message string) *errors.Error {
	return errors.New(message, errors.CategoryNotFound).
		WithTextCode(TextCodeNotFound).
		WithCode(errors.CodeNotFound)
}

// BadRequest builds a bad input error with a caller facing message.
func BadRequest(message string) *errors.Error {
	return errors.New(message, errors.CategoryBadInput).
		WithTextCode(TextCodeBadRequest).
		WithCode(errors.CodeBadRequest)
}

// serverError wraps an unexpected failure. The cause is kept for logging
// while callers only ever see the generic message.
func serverError(err error, message string) *errors.Error {
	return errors.Wrap(err, errors.CategoryInternal, message).
		WithTextCode(TextCodeServerError).
		WithCode(errors.CodeInternal)
}

// validationError turns ozzo validation output into ErrValidationFailed,
// using the first field error as the message.
func validationError(err error) *errors.Error {
	msg := ErrValidationFailed.Message
	var fields validation.Errors
	if stderrors.As(err, &fields) {
		msg = firstFieldError(fields)
	} else if err != nil {
		msg = err.Error()
	}

	return errors.Wrap(err, errors.CategoryValidation, msg).
		WithTextCode(TextCodeValidationFailed).
		WithCode(errors.CodeBadRequest)
}

func firstFieldError(fields validation.Errors) string {
	first := ""
	for name := range fields {
		if first == "" || name < first {
			first = name
		}
	}
	if first == "" {
		return ErrValidationFailed.Message
	}
	return first + ": " + fields[first].Error()
}

// withCode returns a copy of a sentinel error reporting a different status.
func withCode(sentinel *errors.Error, code int) *errors.Error {
	return sentinel.Clone().WithCode(code)
}

// TextCodeOf returns the error kind carried by err. Errors that do not
// carry a kind are reported as server errors.
func TextCodeOf(err error) string {
	if err == nil {
		return ""
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode != "" {
		return richErr.TextCode
	}
	return TextCodeServerError
}

// IsNotFound reports whether err means a lookup matched nothing, regardless
// of which store produced it.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Category == errors.CategoryNotFound {
		return true
	}

	return stderrors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}

// wrapKind reports err as the kind of sentinel while keeping err as the cause.
func wrapKind(err error, sentinel *errors.Error) *errors.Error {
	wrapped := sentinel.Clone()
	wrapped.Source = err
	return wrapped
}

// recordNotFound is ErrRecordNotFound naming the entity that was missing.
func recordNotFound(entity string, metadata map[string]any) *errors.Error {
	err := ErrRecordNotFound.Clone()
	err.Message = entity + " not found"
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}
