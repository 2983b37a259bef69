package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/paydesk/internal/logging"
	"github.com/dmitrijs2005/paydesk/internal/server/models"
	"github.com/dmitrijs2005/paydesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/paydesk/internal/timex"
)

// auditor writes one audit entry per outcome. A failed write is logged and
// never changes the outcome of the audited operation.
type auditor struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       timex.Clock
	log         logging.Logger
	module      string
}

func (a auditor) record(ctx context.Context, userID, action string, status models.AuditStatus,
	client models.ClientContext, details map[string]any) {

	e := &models.AuditEntry{
		Action:    action,
		Module:    a.module,
		Details:   details,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Status:    status,
		CreatedAt: a.clock.Now(),
	}
	if userID != "" {
		e.UserID = &userID
	}

	if err := a.repomanager.AuditLogs(a.db).Create(ctx, e); err != nil {
		a.log.Error(ctx, "audit write failed", "action", action, "status", status, "error", err)
	}
}

func (a auditor) success(ctx context.Context, userID, action string, client models.ClientContext, details map[string]any) {
	a.record(ctx, userID, action, models.AuditSuccess, client, details)
}

func (a auditor) failure(ctx context.Context, userID, action string, client models.ClientContext, details map[string]any) {
	a.record(ctx, userID, action, models.AuditFailure, client, details)
}

func reason(r string) map[string]any {
	return map[string]any{"reason": r}
}
