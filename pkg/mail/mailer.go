package mail

import "context"

// Mailer dispatches transactional mail for the credential flows. The reset
// token passed to SendPasswordReset is the raw value; implementations must
// not log it.
type Mailer interface {
	SendPasswordReset(ctx context.Context, toEmail, fullName, resetToken string) error
	SendPasswordChanged(ctx context.Context, toEmail, fullName string) error
}
