package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pusat-bantuan/helpcenter-auth/internal/models"
	appErrors "github.com/pusat-bantuan/helpcenter-auth/pkg/errors"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/export"
)

type sessionTokenStore interface {
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]models.RefreshToken, error)
	RevokeAllForUser(ctx context.Context, userID string, revokedAt time.Time) (int64, error)
}

type auditReader interface {
	auditRecorder
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// SessionService backs the admin surface: per-user session listings, forced
// revocation and audit-trail export.
type SessionService struct {
	tokens sessionTokenStore
	audits auditReader
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(tokens sessionTokenStore, audits auditReader, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		tokens: tokens,
		audits: audits,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// ListSessions returns the user's live refresh sessions. Token digests are
// not exposed, only session metadata.
func (s *SessionService) ListSessions(ctx context.Context, userID string) ([]models.SessionInfo, error) {
	tokens, err := s.tokens.ListActiveByUser(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}

	sessions := make([]models.SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, models.SessionInfo{
			ID:        t.ID,
			UserID:    t.UserID,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
			IPAddress: t.IPAddress,
			UserAgent: t.UserAgent,
		})
	}
	return sessions, nil
}

// RevokeSessions force-revokes every live session of the target user and
// returns the number revoked.
func (s *SessionService) RevokeSessions(ctx context.Context, targetUserID, actorID, ip, userAgent string) (int64, error) {
	revoked, err := s.tokens.RevokeAllForUser(ctx, targetUserID, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke sessions")
	}

	if err := s.audits.Create(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionSessionRevoke,
		Resource:   "session",
		ResourceID: &targetUserID,
		Detail:     []byte(fmt.Sprintf(`{"revoked":%d}`, revoked)),
		IPAddress:  ip,
		UserAgent:  userAgent,
	}); err != nil {
		s.logger.Warn("failed to record session revoke audit log", zap.Error(err))
	}

	return revoked, nil
}

// ExportAuditLogs renders the audit trail as CSV or PDF.
func (s *SessionService) ExportAuditLogs(ctx context.Context, filter models.AuditFilter, format string) ([]byte, string, error) {
	logs, err := s.audits.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit logs")
	}

	dataset := auditDataset(logs)

	switch format {
	case "pdf":
		data, err := s.pdf.Render(dataset, "credential audit trail")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, "application/pdf", nil
	case "", "csv":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func auditDataset(logs []models.AuditLog) export.Dataset {
	headers := []string{"timestamp", "user_id", "action", "resource", "resource_id", "ip_address", "user_agent"}
	rows := make([]map[string]string, 0, len(logs))
	for _, l := range logs {
		row := map[string]string{
			"timestamp":  l.CreatedAt.UTC().Format(time.RFC3339),
			"action":     l.Action,
			"resource":   l.Resource,
			"ip_address": l.IPAddress,
			"user_agent": l.UserAgent,
		}
		if l.UserID != nil {
			row["user_id"] = *l.UserID
		}
		if l.ResourceID != nil {
			row["resource_id"] = *l.ResourceID
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
