package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pusat-bantuan/helpcenter-auth/internal/models"
	appErrors "github.com/pusat-bantuan/helpcenter-auth/pkg/errors"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/mail"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/token"
)

// GenericResetMessage is returned by ForgotPassword on every outcome, so
// the response never reveals whether an email is registered.
const GenericResetMessage = "If the email is registered, a reset link has been sent"

// ResetSuccessMessage confirms a completed password reset.
const ResetSuccessMessage = "Password has been reset. Please login with your new password"

type resetUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt, updatedAt time.Time) error
	UpdatePasswordAndClearReset(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

type resetTokenStore interface {
	RevokeAllForUser(ctx context.Context, userID string, revokedAt time.Time) (int64, error)
}

type passwordChangedNotifier interface {
	EnqueuePasswordChanged(email, fullName string)
}

// PasswordResetService drives the forgot/verify/reset state machine. Each
// user holds at most one outstanding reset ticket; issuing a new one
// silently supersedes the old.
type PasswordResetService struct {
	users     resetUserStore
	tokens    resetTokenStore
	audits    auditRecorder
	codec     *token.Codec
	mailer    mail.Mailer
	notifier  passwordChangedNotifier
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	resetTTL  time.Duration
}

// NewPasswordResetService constructs a PasswordResetService instance.
func NewPasswordResetService(users resetUserStore, tokens resetTokenStore, audits auditRecorder, codec *token.Codec, mailer mail.Mailer, notifier passwordChangedNotifier, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, resetTTL time.Duration) *PasswordResetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &PasswordResetService{
		users:     users,
		tokens:    tokens,
		audits:    audits,
		codec:     codec,
		mailer:    mailer,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		resetTTL:  resetTTL,
	}
}

// ForgotPassword issues a reset ticket and mails the raw token. The
// response is identical whether or not the email is registered, and a mail
// failure after the ticket is stored is swallowed for the same reason: the
// user can simply request another ticket.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) (*models.MessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid forgot password payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.ObserveResetRequest("unknown_email")
			return &models.MessageResponse{Message: GenericResetMessage}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	rawToken, err := s.codec.NewOpaqueToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reset token")
	}

	now := time.Now().UTC()
	if err := s.users.SetResetToken(ctx, user.ID, s.codec.Hash(rawToken), now.Add(s.resetTTL), now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reset ticket")
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.FullName, rawToken); err != nil {
		s.logger.Error("failed to send reset email", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.metrics.ObserveResetRequest("issued")
	return &models.MessageResponse{Message: GenericResetMessage}, nil
}

// VerifyResetToken is the read-only validity check used before rendering
// the new-password form. It never consumes the ticket.
func (s *PasswordResetService) VerifyResetToken(ctx context.Context, rawToken string) (*models.VerifyResetTokenResponse, error) {
	user, err := s.lookupTicket(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	return &models.VerifyResetTokenResponse{Valid: true, Email: user.Email}, nil
}

// ResetPassword consumes the ticket, overwrites the password hash and
// revokes every live session of the user. The session purge is a hard
// security invariant: its failure fails the request.
func (s *PasswordResetService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (*models.MessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reset password payload")
	}

	user, err := s.lookupTicket(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	newHash, err := s.codec.HashPassword(req.NewPassword)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	if err := s.users.UpdatePasswordAndClearReset(ctx, user.ID, newHash, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	if _, err := s.tokens.RevokeAllForUser(ctx, user.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke sessions")
	}

	s.recordAudit(ctx, user.ID, models.AuditActionPasswordReset)
	if s.notifier != nil {
		s.notifier.EnqueuePasswordChanged(user.Email, user.FullName)
	}
	s.metrics.ObserveResetRequest("completed")

	return &models.MessageResponse{Message: ResetSuccessMessage}, nil
}

func (s *PasswordResetService) lookupTicket(ctx context.Context, rawToken string) (*models.User, error) {
	if rawToken == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidResetToken, "")
	}
	user, err := s.users.FindByResetTokenHash(ctx, s.codec.Hash(rawToken), time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Unknown, superseded, consumed and expired tickets all
			// answer identically.
			return nil, appErrors.Clone(appErrors.ErrInvalidResetToken, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch reset ticket")
	}
	return user, nil
}

func (s *PasswordResetService) recordAudit(ctx context.Context, userID, action string) {
	if s.audits == nil {
		return
	}
	if err := s.audits.Create(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		Detail:     []byte(`{"status":"reset"}`),
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
