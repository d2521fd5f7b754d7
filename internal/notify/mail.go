package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// mailTimeout bounds both the connection and the send. A slow SMTP
// server must not stall the ingestion path.
const mailTimeout = 5 * time.Second

// Mailer sends HTML mail with credentials supplied per call. Credentials
// belong to the project being notified, not to the deployment, so the
// transport cannot hold a long-lived authenticated session.
type Mailer interface {
	Send(ctx context.Context, cfg MailConfig, subject, htmlBody string) error

	// Verify checks that the server accepts the credentials without
	// sending anything.
	Verify(ctx context.Context, cfg MailConfig) error
}

// SMTPMailer delivers mail over SMTP with STARTTLS, building a
// short-lived client for every call.
type SMTPMailer struct {
	Host string
	Port int
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(host string, port int) *SMTPMailer {
	return &SMTPMailer{Host: host, Port: port}
}

func (m *SMTPMailer) client(cfg MailConfig) (*mail.Client, error) {
	c, err := mail.NewClient(m.Host,
		mail.WithPort(m.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(mailTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: smtp client: %w", err)
	}
	return c, nil
}

// Send delivers one HTML message from the project's address to its
// configured recipient.
func (m *SMTPMailer) Send(ctx context.Context, cfg MailConfig, subject, htmlBody string) error {
	c, err := m.client(cfg)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat("Errsight Alerts", cfg.Username); err != nil {
		return fmt.Errorf("notify: from address: %w", err)
	}
	if err := msg.To(cfg.To); err != nil {
		return fmt.Errorf("notify: to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	ctx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("notify: send mail: %w", err)
	}
	return nil
}

// Verify dials and authenticates, then disconnects.
func (m *SMTPMailer) Verify(ctx context.Context, cfg MailConfig) error {
	c, err := m.client(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()
	if err := c.DialWithContext(ctx); err != nil {
		return fmt.Errorf("notify: smtp connect: %w", err)
	}
	return c.Close()
}

// friendlyMailError translates common SMTP failures into messages an
// operator can act on without reading server logs. The original error
// stays wrapped underneath.
func friendlyMailError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "535") || strings.Contains(strings.ToLower(msg), "authentication"):
		return fmt.Errorf("smtp authentication failed, check the username and app password: %w", err)
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return fmt.Errorf("smtp server did not respond in time: %w", err)
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host"):
		return fmt.Errorf("could not reach the smtp server: %w", err)
	default:
		return err
	}
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
