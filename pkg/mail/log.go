package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer is the development mailer: it records that a mail would have
// been sent without dispatching anything. The raw reset token is not logged.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer returns a mailer that only logs.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, toEmail, fullName, resetToken string) error {
	m.logger.Info("password reset email suppressed (dev mailer)", zap.String("to", toEmail))
	return nil
}

func (m *LogMailer) SendPasswordChanged(ctx context.Context, toEmail, fullName string) error {
	m.logger.Info("password changed notification suppressed (dev mailer)", zap.String("to", toEmail))
	return nil
}
