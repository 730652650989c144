package mailer

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront"
	"github.com/google/uuid"
	"github.com/mailgun/mailgun-go/v4"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// NewSender returns the Sender selected by the mail configuration
func NewSender(cfg storefront.MailConfig, logger storefront.Logger) (Sender, error) {
	switch cfg.Provider {
	case storefront.MailMailgun:
		return &MailgunSender{Domain: cfg.MailgunDomain, Key: cfg.MailgunKey}, nil
	case storefront.MailSendGrid:
		return &SendGridSender{Key: cfg.SendGridKey}, nil
	case storefront.MailSMTP:
		return &SMTPSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}, nil
	case storefront.MailLog, "":
		return &LogSender{Logger: logger}, nil
	default:
		return nil, errors.New("unknown mail provider "+cfg.Provider, errors.CategoryBadInput)
	}
}

// MailgunSender sends through the Mailgun API
type MailgunSender struct {
	Domain string
	Key    string
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) (string, error) {
	mg := mailgun.NewMailgun(s.Domain, s.Key)

	message := mg.NewMessage(msg.From, msg.Subject, msg.Text, msg.To)
	message.SetHtml(msg.HTML)

	_, id, err := mg.Send(ctx, message)
	if err != nil {
		return "", err
	}
	return id, nil
}

// SendGridSender sends through the SendGrid v3 API
type SendGridSender struct {
	Key string
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) (string, error) {
	fromName, fromAddr := splitAddress(msg.From)
	from := mail.NewEmail(fromName, fromAddr)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	client := sendgrid.NewSendClient(s.Key)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return "", err
	}

	if response.StatusCode != 202 {
		return "", fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

// SMTPSender sends through an SMTP relay with PLAIN auth
type SMTPSender struct {
	Host     string
	Port     string
	Username string
	Password string
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	_, fromAddr := splitAddress(msg.From)
	if fromAddr == "" {
		fromAddr = s.Username
	}

	id := uuid.NewString()
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	body := buildMIME(msg, id)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.Host+":"+s.Port, auth, fromAddr, []string{msg.To}, body)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			return "", err
		}
		return id, nil
	}
}

// LogSender writes messages to the logger instead of delivering them
type LogSender struct {
	Logger storefront.Logger
}

func (s *LogSender) Send(_ context.Context, msg Message) (string, error) {
	id := uuid.NewString()
	if s.Logger != nil {
		s.Logger.Info("mail to=%s subject=%q id=%s\n%s", msg.To, msg.Subject, id, msg.Text)
	}
	return id, nil
}

func splitAddress(addr string) (name, email string) {
	addr = strings.TrimSpace(addr)
	start := strings.LastIndex(addr, "<")
	end := strings.LastIndex(addr, ">")
	if start >= 0 && end > start {
		return strings.Trim(strings.TrimSpace(addr[:start]), `"`), strings.TrimSpace(addr[start+1 : end])
	}
	return "", addr
}

func buildMIME(msg Message, id string) []byte {
	boundary := "storefront-" + id

	var b strings.Builder
	b.WriteString("From: " + msg.From + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Message-ID: <" + id + "@storefront>\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=" + boundary + "\r\n\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Text + "\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(msg.HTML + "\r\n")

	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String())
}
