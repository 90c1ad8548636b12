package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pusat-bantuan/helpcenter-auth/internal/models"
)

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	userID := "u1"
	entry := &models.AuditLog{
		UserID:   &userID,
		Action:   models.AuditActionLogin,
		Resource: "auth",
	}
	err := repo.Create(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func auditRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "action", "resource", "resource_id", "detail", "ip_address", "user_agent", "created_at"}).
		AddRow("a1", "u1", models.AuditActionLogin, "auth", "u1", []byte(`{}`), "10.0.0.1", "curl", now)
}

func TestListAuditLogsUnfiltered(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, action, resource, resource_id, detail, ip_address, user_agent, created_at FROM audit_logs WHERE 1=1 ORDER BY created_at DESC LIMIT 1000")).
		WillReturnRows(auditRows(now))

	logs, err := repo.List(context.Background(), models.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionLogin, logs[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAuditLogsFiltered(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	now := time.Now()
	userID := "u1"
	from := now.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE 1=1 AND user_id = $1 AND action = $2 AND created_at >= $3 ORDER BY created_at DESC LIMIT 50")).
		WithArgs(userID, models.AuditActionLogin, from).
		WillReturnRows(auditRows(now))

	logs, err := repo.List(context.Background(), models.AuditFilter{
		UserID: &userID,
		Action: models.AuditActionLogin,
		From:   &from,
		Limit:  50,
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
