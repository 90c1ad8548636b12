package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pusat-bantuan/helpcenter-auth/internal/models"
	"github.com/pusat-bantuan/helpcenter-auth/internal/service"
	appErrors "github.com/pusat-bantuan/helpcenter-auth/pkg/errors"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/response"
)

// SessionHandler exposes the admin session and audit surface.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new handler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// ListUserSessions godoc
// @Summary List user sessions
// @Description List the target user's active refresh sessions
// @Tags Admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/users/{id}/sessions [get]
func (h *SessionHandler) ListUserSessions(c *gin.Context) {
	sessions, err := h.sessions.ListSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, sessions, nil)
}

// RevokeUserSessions godoc
// @Summary Revoke user sessions
// @Description Force-revoke every active session of the target user
// @Tags Admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/users/{id}/sessions [delete]
func (h *SessionHandler) RevokeUserSessions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	revoked, err := h.sessions.RevokeSessions(c.Request.Context(), c.Param("id"), claims.UserID, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"revoked": revoked}, nil)
}

// ExportAuditLogs godoc
// @Summary Export audit logs
// @Description Export the credential audit trail as CSV or PDF
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format (csv or pdf)"
// @Param user_id query string false "Filter by user ID"
// @Param action query string false "Filter by action"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param limit query int false "Maximum rows"
// @Success 200 {file} byte
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/audit-logs/export [get]
func (h *SessionHandler) ExportAuditLogs(c *gin.Context) {
	filter, err := auditFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	format := c.DefaultQuery("format", "csv")
	data, contentType, err := h.sessions.ExportAuditLogs(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	ext := "csv"
	if format == "pdf" {
		ext = "pdf"
	}
	filename := fmt.Sprintf("audit-logs-%s.%s", time.Now().UTC().Format("20060102-150405"), ext)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, data)
}

func auditFilterFromQuery(c *gin.Context) (models.AuditFilter, error) {
	var filter models.AuditFilter

	if userID := c.Query("user_id"); userID != "" {
		filter.UserID = &userID
	}
	filter.Action = c.Query("action")
	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from timestamp")
		}
		filter.From = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to timestamp")
		}
		filter.To = &ts
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid limit")
		}
		filter.Limit = limit
	}

	return filter, nil
}
