package storefront

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultOperationTimeout bounds a single lifecycle operation, email
// dispatch included.
const DefaultOperationTimeout = 30 * time.Second

// SessionController runs the account lifecycle: signup, email
// verification, login, refresh, logout and password reset. Each operation
// reads and writes a single user record.
type SessionController struct {
	users       UserStore
	tokens      TokenIssuer
	mailer      EmailDispatcher
	frontendURL string
	useHashid   bool
	timeout     time.Duration
	logger      Logger
	activity    ActivitySink
}

// SessionOption configures the controller
type SessionOption func(*SessionController)

// WithFrontendURL sets the base URL used to compose email links
func WithFrontendURL(url string) SessionOption {
	return func(s *SessionController) {
		if url != "" {
			s.frontendURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHashidUserIDs derives user ids from the email instead of random UUIDs
func WithHashidUserIDs(enabled bool) SessionOption {
	return func(s *SessionController) {
		s.useHashid = enabled
	}
}

// WithOperationTimeout bounds each lifecycle operation
func WithOperationTimeout(d time.Duration) SessionOption {
	return func(s *SessionController) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSessionLogger sets the logger
func WithSessionLogger(logger Logger) SessionOption {
	return func(s *SessionController) {
		s.logger = normalizeLogger(logger)
	}
}

// WithSessionActivitySink sets the sink used to emit lifecycle events.
func WithSessionActivitySink(sink ActivitySink) SessionOption {
	return func(s *SessionController) {
		s.activity = normalizeActivitySink(sink)
	}
}

// NewSessionController creates a controller. Configuration is passed in
// explicitly; the controller never reads the environment.
func NewSessionController(users UserStore, tokens TokenIssuer, mailer EmailDispatcher, opts ...SessionOption) *SessionController {
	s := &SessionController{
		users:       users,
		tokens:      tokens,
		mailer:      mailer,
		frontendURL: "http://localhost:5173",
		timeout:     DefaultOperationTimeout,
		logger:      defLogger{},
		activity:    noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// run guards an operation against an already cancelled context and bounds
// it with the operation timeout.
func (s *SessionController) run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during "+operation,
		)
	default:
	}

	s.logger.Debug("running %s", operation)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return fn(ctx)
}

func (s *SessionController) record(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	recordActivity(ctx, s.activity, s.logger, eventType, userID, metadata)
}

// NormalizeEmail is the canonical form emails are stored and looked up in
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
