package auditlogs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/paydesk/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertQ = `(?s)INSERT INTO audit_logs \(id, user_id, action, module, details, ip_address, user_agent, status, created_at\)`

func TestCreate_EncodesDetails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	uid := "u-1"
	now := time.Now()
	mock.ExpectExec(insertQ).
		WithArgs(sqlmock.AnyArg(), "u-1", models.AuditActionLogin, models.AuditModuleAuth,
			`{"reason":"invalid password"}`, "10.0.0.1", "curl", "FAILURE", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := &models.AuditEntry{
		UserID:    &uid,
		Action:    models.AuditActionLogin,
		Module:    models.AuditModuleAuth,
		Details:   map[string]any{"reason": "invalid password"},
		IPAddress: "10.0.0.1",
		UserAgent: "curl",
		Status:    models.AuditFailure,
		CreatedAt: now,
	}
	require.NoError(t, NewPostgresRepository(db).Create(context.Background(), e))
	assert.NotEmpty(t, e.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_NilUserAndDetails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WithArgs("a-1", nil, models.AuditActionRecoverPassword, models.AuditModuleAuth,
			`{}`, "", "", "SUCCESS", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := &models.AuditEntry{ID: "a-1", Action: models.AuditActionRecoverPassword, Module: models.AuditModuleAuth, Status: models.AuditSuccess}
	require.NoError(t, NewPostgresRepository(db).Create(context.Background(), e))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(errors.New("down"))

	err = NewPostgresRepository(db).Create(context.Background(), &models.AuditEntry{})
	assert.ErrorContains(t, err, "db error: down")
}

func TestCreate_UnencodableDetails(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = NewPostgresRepository(db).Create(context.Background(), &models.AuditEntry{Details: map[string]any{"ch": make(chan int)}})
	assert.ErrorContains(t, err, "encode audit details")
}
