package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pusat-bantuan/helpcenter-auth/internal/models"
	appErrors "github.com/pusat-bantuan/helpcenter-auth/pkg/errors"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/token"
)

// LogoutSuccessMessage confirms a completed logout.
const LogoutSuccessMessage = "Logged out from all sessions"

type authUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type authTokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindActive(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error)
	Consume(ctx context.Context, id string, revokedAt time.Time) (int64, error)
	RevokeAllForUser(ctx context.Context, userID string, revokedAt time.Time) (int64, error)
}

type auditRecorder interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuthService orchestrates the session lifecycle: login, refresh rotation
// and logout. Durable state lives in the stores; the service itself is
// request-scoped and stateless.
type AuthService struct {
	users      authUserStore
	tokens     authTokenStore
	audits     auditRecorder
	codec      *token.Codec
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
	refreshTTL time.Duration
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserStore, tokens authTokenStore, audits auditRecorder, codec *token.Codec, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, refreshTTL time.Duration) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		audits:     audits,
		codec:      codec,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
		refreshTTL: refreshTTL,
	}
}

// Login authenticates a user and returns a fresh access/refresh pair.
// Exactly one refresh row is written per success; no row on any failure.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn a comparison so unknown emails cost as much as bad
			// passwords, then answer with the merged credential error.
			s.codec.DummyPasswordCheck(req.Password)
			s.metrics.ObserveLogin("invalid_credentials")
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !user.Active {
		s.metrics.ObserveLogin("inactive")
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	if !s.codec.CheckPassword(req.Password, user.PasswordHash) {
		s.metrics.ObserveLogin("invalid_credentials")
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	accessToken, _, err := s.codec.SignAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshValue, refreshRow, err := s.mintRefreshToken(user.ID, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, refreshRow); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	s.recordAudit(ctx, user.ID, models.AuditActionLogin, req.IP, req.UserAgent, `{"status":"success"}`)
	s.metrics.ObserveLogin("success")

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshValue,
		ExpiresIn:    int64(s.codec.AccessTokenTTL().Seconds()),
		IssuedAt:     time.Now().UTC(),
		User:         userInfo(user),
	}, nil
}

// Refresh exchanges a refresh token for a new pair, rotating the presented
// token. A token can be exchanged at most once: the conditional consume is
// the arbiter, so of two concurrent calls with the same raw value exactly
// one succeeds.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	now := time.Now().UTC()
	stored, err := s.tokens.FindActive(ctx, s.codec.Hash(req.RefreshToken), now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Forged, expired and already-rotated tokens are
			// indistinguishable to the caller.
			s.metrics.ObserveRefresh("invalid")
			return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch refresh token")
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.ObserveRefresh("invalid")
			return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if !user.Active {
		s.metrics.ObserveRefresh("inactive")
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	affected, err := s.tokens.Consume(ctx, stored.ID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate refresh token")
	}
	if affected == 0 {
		// A concurrent exchange won the row.
		s.metrics.ObserveRefresh("replayed")
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
	}

	accessToken, _, err := s.codec.SignAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshValue, refreshRow, err := s.mintRefreshToken(user.ID, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, refreshRow); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	s.recordAudit(ctx, user.ID, models.AuditActionRefresh, req.IP, req.UserAgent, `{"rotated":"`+stored.ID+`"}`)
	s.metrics.ObserveRefresh("success")

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshValue,
		ExpiresIn:    int64(s.codec.AccessTokenTTL().Seconds()),
		IssuedAt:     time.Now().UTC(),
		User:         userInfo(user),
	}, nil
}

// Logout revokes every non-revoked refresh token owned by the user.
// Idempotent: a caller with no live sessions still gets success.
func (s *AuthService) Logout(ctx context.Context, userID, ip, userAgent string) error {
	revoked, err := s.tokens.RevokeAllForUser(ctx, userID, time.Now().UTC())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh tokens")
	}

	s.recordAudit(ctx, userID, models.AuditActionLogout, ip, userAgent, `{"status":"logout"}`)
	s.logger.Info("user logged out", zap.String("user_id", userID), zap.Int64("sessions_revoked", revoked))
	return nil
}

// VerifyAccessToken validates a bearer token and returns its claims.
func (s *AuthService) VerifyAccessToken(raw string) (*models.AccessClaims, error) {
	return s.codec.VerifyAccessToken(raw)
}

func (s *AuthService) mintRefreshToken(userID, ip, userAgent string) (string, *models.RefreshToken, error) {
	raw, err := s.codec.NewOpaqueToken()
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}
	now := time.Now().UTC()
	row := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: s.codec.Hash(raw),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
		Revoked:   false,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	return raw, row, nil
}

func (s *AuthService) recordAudit(ctx context.Context, userID, action, ip, userAgent, detail string) {
	if s.audits == nil {
		return
	}
	if err := s.audits.Create(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		Detail:     []byte(detail),
		IPAddress:  ip,
		UserAgent:  userAgent,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func userInfo(user *models.User) models.UserInfo {
	return models.UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}
}
