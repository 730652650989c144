package mailer

import (
	"context"
	"embed"
	"net/url"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront"
)

//go:embed templates
var templatesFS embed.FS

// DefaultTimeout bounds a single send
const DefaultTimeout = 30 * time.Second

// Message is a rendered email ready for a Sender
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a rendered message and returns the provider message id
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Config holds the mailer settings
type Config struct {
	From                string
	FrontendURL         string
	Timeout             time.Duration
	VerificationExpires string
	ResetExpires        string
}

// Mailer implements storefront.EmailDispatcher on top of a Sender
type Mailer struct {
	sender    Sender
	cfg       Config
	logger    storefront.Logger
	templates map[string]*pongo2.Template
}

var _ storefront.EmailDispatcher = (*Mailer)(nil)

// Option configures the mailer
type Option func(*Mailer)

// WithLogger sets the logger
func WithLogger(logger storefront.Logger) Option {
	return func(m *Mailer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New creates a mailer and compiles its templates
func New(sender Sender, cfg Config, opts ...Option) (*Mailer, error) {
	if sender == nil {
		return nil, errors.New("mailer requires a sender", errors.CategoryBadInput)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:5173"
	}
	if cfg.VerificationExpires == "" {
		cfg.VerificationExpires = "1 hour"
	}
	if cfg.ResetExpires == "" {
		cfg.ResetExpires = "15 minutes"
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")

	m := &Mailer{
		sender:    sender,
		cfg:       cfg,
		logger:    nopLogger{},
		templates: map[string]*pongo2.Template{},
	}

	for _, name := range []string{
		"verify_email.html", "verify_email.txt",
		"reset_password.html", "reset_password.txt",
	} {
		raw, err := templatesFS.ReadFile("templates/" + name)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read email template "+name)
		}
		tpl, err := pongo2.FromBytes(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to compile email template "+name)
		}
		m.templates[name] = tpl
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m, nil
}

// VerificationLink is the frontend link a verification token is delivered in
func (m *Mailer) VerificationLink(token string) string {
	return m.cfg.FrontendURL + "/verify-email/" + url.PathEscape(token)
}

func (m *Mailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	return m.send(ctx, to, "Verify your email", "verify_email", pongo2.Context{
		"link":       m.VerificationLink(token),
		"expires_in": m.cfg.VerificationExpires,
	})
}

func (m *Mailer) SendResetPasswordEmail(ctx context.Context, to, link string) error {
	return m.send(ctx, to, "Reset your password", "reset_password", pongo2.Context{
		"link":       link,
		"expires_in": m.cfg.ResetExpires,
	})
}

func (m *Mailer) send(ctx context.Context, to, subject, template string, data pongo2.Context) error {
	html, err := m.templates[template+".html"].Execute(data)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to render "+template)
	}

	text, err := m.templates[template+".txt"].Execute(data)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to render "+template)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	id, err := m.sender.Send(ctx, Message{
		From:    m.cfg.From,
		To:      to,
		Subject: subject,
		Text:    text,
		HTML:    html,
	})
	if err != nil {
		m.logger.Error("error sending %s email to %s: %v", template, to, err)
		return errors.Wrap(err, errors.CategoryExternal, "failed to send email")
	}

	m.logger.Info("%s email sent to %s id=%s", template, to, id)
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
