package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/paydesk/internal/dbx"
	"github.com/dmitrijs2005/paydesk/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/paydesk/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/paydesk/internal/server/repositories/users"
	"github.com/dmitrijs2005/paydesk/internal/server/repositories/vouchers"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// path works against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	AuditLogs(db dbx.DBTX) auditlogs.Repository
	Vouchers(db dbx.DBTX) vouchers.Repository
}
