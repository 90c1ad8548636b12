package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pusat-bantuan/helpcenter-auth/internal/middleware"
	"github.com/pusat-bantuan/helpcenter-auth/internal/models"
	"github.com/pusat-bantuan/helpcenter-auth/internal/service"
)

func newAdminEngine(t *testing.T, tokens *fakeTokenStore, audits *fakeAuditStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessionSvc := service.NewSessionService(tokens, audits, nil)
	h := NewSessionHandler(sessionSvc)

	adminClaims := &models.AccessClaims{UserID: "admin-1", Role: models.RoleAdmin, Email: "admin@example.com"}

	r := gin.New()
	admin := r.Group("/api/v1/admin", func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, adminClaims)
	})
	admin.GET("/users/:id/sessions", h.ListUserSessions)
	admin.DELETE("/users/:id/sessions", h.RevokeUserSessions)
	admin.GET("/audit-logs/export", h.ExportAuditLogs)
	return r
}

func TestListUserSessionsEndpoint(t *testing.T) {
	tokens := newFakeTokenStore()
	now := time.Now().UTC()
	require.NoError(t, tokens.Create(context.Background(), &models.RefreshToken{
		ID:        "rt1",
		UserID:    "u1",
		TokenHash: "digest",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
		IPAddress: "10.0.0.1",
	}))
	r := newAdminEngine(t, tokens, &fakeAuditStore{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users/u1/sessions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"id":"rt1"`)
	assert.Contains(t, body, `"ip_address":"10.0.0.1"`)
	// Token digests never leave the store.
	assert.NotContains(t, body, "digest")
}

func TestRevokeUserSessionsEndpoint(t *testing.T) {
	tokens := newFakeTokenStore()
	now := time.Now().UTC()
	require.NoError(t, tokens.Create(context.Background(), &models.RefreshToken{
		ID:        "rt1",
		UserID:    "u1",
		TokenHash: "digest",
		ExpiresAt: now.Add(time.Hour),
	}))
	audits := &fakeAuditStore{}
	r := newAdminEngine(t, tokens, audits)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/u1/sessions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"revoked":1`)
	require.Len(t, audits.logs, 1)
	assert.Equal(t, models.AuditActionSessionRevoke, audits.logs[0].Action)
}

func TestExportAuditLogsEndpoint(t *testing.T) {
	audits := &fakeAuditStore{}
	userID := "u1"
	require.NoError(t, audits.Create(context.Background(), &models.AuditLog{
		UserID:    &userID,
		Action:    models.AuditActionLogin,
		Resource:  "auth",
		CreatedAt: time.Now().UTC(),
	}))
	r := newAdminEngine(t, newFakeTokenStore(), audits)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs/export?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Header().Get("Content-Disposition"), "attachment"))
	assert.Contains(t, rec.Body.String(), models.AuditActionLogin)
}

func TestExportAuditLogsEndpointBadFilter(t *testing.T) {
	r := newAdminEngine(t, newFakeTokenStore(), &fakeAuditStore{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs/export?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs/export?format=xlsx", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
