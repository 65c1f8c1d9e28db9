// Package email renders and delivers the outbound notification mail.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"chargehub/internal/config"
)

// Mailer delivers transactional mail over SMTP.
type Mailer struct {
	cfg    config.EmailConfig
	logger *zap.Logger
}

// NewMailer builds mailer.
func NewMailer(cfg config.EmailConfig, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

// SendInvitation mails a registration link.
func (m *Mailer) SendInvitation(ctx context.Context, to, link string) error {
	body, err := render(inviteTemplate, link)
	if err != nil {
		return err
	}
	return m.send(ctx, to, "[ChargeHub] Complete your registration", body)
}

// SendPasswordReset mails a password-reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, link string) error {
	body, err := render(resetTemplate, link)
	if err != nil {
		return err
	}
	return m.send(ctx, to, "[ChargeHub] Password reset", body)
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.FromAddress); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Password),
	}
	// Port 465 means implicit TLS, everything else negotiates STARTTLS.
	if m.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.Error("failed to send email",
			zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("email: send: %w", err)
	}
	return nil
}

func render(tmpl *template.Template, link string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Link string }{Link: link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
