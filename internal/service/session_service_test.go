package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pusat-bantuan/helpcenter-auth/internal/models"
	appErrors "github.com/pusat-bantuan/helpcenter-auth/pkg/errors"
)

func TestListSessionsHidesDigests(t *testing.T) {
	tokens := newMockTokenStore()
	now := time.Now().UTC()
	require.NoError(t, tokens.Create(context.Background(), &models.RefreshToken{
		ID:        "rt1",
		UserID:    "u1",
		TokenHash: "digest-1",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
		IPAddress: "10.0.0.1",
		UserAgent: "firefox",
	}))
	require.NoError(t, tokens.Create(context.Background(), &models.RefreshToken{
		ID:        "rt2",
		UserID:    "u1",
		TokenHash: "digest-2",
		ExpiresAt: now.Add(-time.Hour),
		CreatedAt: now,
	}))

	svc := NewSessionService(tokens, &mockAuditStore{}, zap.NewNop())

	sessions, err := svc.ListSessions(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "rt1", sessions[0].ID)
	assert.Equal(t, "10.0.0.1", sessions[0].IPAddress)
	assert.Equal(t, "firefox", sessions[0].UserAgent)
}

func TestRevokeSessionsAuditsActor(t *testing.T) {
	tokens := newMockTokenStore()
	now := time.Now().UTC()
	for _, id := range []string{"rt1", "rt2", "rt3"} {
		require.NoError(t, tokens.Create(context.Background(), &models.RefreshToken{
			ID:        id,
			UserID:    "u1",
			TokenHash: "digest-" + id,
			ExpiresAt: now.Add(time.Hour),
			CreatedAt: now,
		}))
	}
	audits := &mockAuditStore{}
	svc := NewSessionService(tokens, audits, zap.NewNop())

	revoked, err := svc.RevokeSessions(context.Background(), "u1", "admin-1", "10.0.0.9", "console")
	require.NoError(t, err)
	assert.Equal(t, int64(3), revoked)
	assert.Equal(t, 0, tokens.activeCount("u1"))

	require.Len(t, audits.logs, 1)
	entry := audits.logs[0]
	assert.Equal(t, models.AuditActionSessionRevoke, entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "admin-1", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "u1", *entry.ResourceID)

	// Repeat is a no-op, not an error.
	revoked, err = svc.RevokeSessions(context.Background(), "u1", "admin-1", "10.0.0.9", "console")
	require.NoError(t, err)
	assert.Equal(t, int64(0), revoked)
}

func TestExportAuditLogsCSV(t *testing.T) {
	audits := &mockAuditStore{}
	userID := "u1"
	require.NoError(t, audits.Create(context.Background(), &models.AuditLog{
		UserID:    &userID,
		Action:    models.AuditActionLogin,
		Resource:  "auth",
		IPAddress: "10.0.0.1",
		UserAgent: "firefox",
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}))
	svc := NewSessionService(newMockTokenStore(), audits, zap.NewNop())

	data, contentType, err := svc.ExportAuditLogs(context.Background(), models.AuditFilter{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(data)
	assert.True(t, strings.HasPrefix(body, "timestamp,user_id,action,resource,resource_id,ip_address,user_agent"))
	assert.Contains(t, body, models.AuditActionLogin)
	assert.Contains(t, body, "2026-03-01T09:00:00Z")
}

func TestExportAuditLogsPDF(t *testing.T) {
	audits := &mockAuditStore{}
	require.NoError(t, audits.Create(context.Background(), &models.AuditLog{
		Action:    models.AuditActionLogout,
		Resource:  "auth",
		CreatedAt: time.Now().UTC(),
	}))
	svc := NewSessionService(newMockTokenStore(), audits, zap.NewNop())

	data, contentType, err := svc.ExportAuditLogs(context.Background(), models.AuditFilter{}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestExportAuditLogsUnsupportedFormat(t *testing.T) {
	svc := NewSessionService(newMockTokenStore(), &mockAuditStore{}, zap.NewNop())

	_, _, err := svc.ExportAuditLogs(context.Background(), models.AuditFilter{}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
