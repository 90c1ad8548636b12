package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pusat-bantuan/helpcenter-auth/pkg/config"
)

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewSMTPMailer validates the SMTP configuration and returns a mailer.
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" {
		return nil, fmt.Errorf("smtp configuration incomplete: SMTP_HOST, SMTP_USER and SMTP_PASS are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPMailer{cfg: cfg, logger: logger}, nil
}

// SendPasswordReset mails the reset link containing the raw token.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, toEmail, fullName, resetToken string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(m.cfg.FrontendURL, "/"), url.QueryEscape(resetToken))
	body := passwordResetBody(fullName, resetURL)

	if err := m.send(toEmail, "Reset Password - Pusat Bantuan", body); err != nil {
		return fmt.Errorf("send password reset mail: %w", err)
	}
	m.logger.Info("password reset email sent", zap.String("to", toEmail))
	return nil
}

// SendPasswordChanged mails the post-reset security notification.
func (m *SMTPMailer) SendPasswordChanged(ctx context.Context, toEmail, fullName string) error {
	body := passwordChangedBody(fullName, time.Now())

	if err := m.send(toEmail, "Password Anda Telah Diubah - Pusat Bantuan", body); err != nil {
		return fmt.Errorf("send password changed mail: %w", err)
	}
	m.logger.Info("password changed notification sent", zap.String("to", toEmail))
	return nil
}

func (m *SMTPMailer) send(to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	return smtp.SendMail(addr, auth, m.cfg.User, []string{to}, []byte(msg.String()))
}
