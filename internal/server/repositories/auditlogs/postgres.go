package auditlogs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/paydesk/internal/dbx"
	"github.com/dmitrijs2005/paydesk/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository writes audit entries to the audit_logs table.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts e. Details are stored as a JSON object.
func (r *PostgresRepository) Create(ctx context.Context, e *models.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action, module, details, ip_address, user_agent, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Action, e.Module, string(raw), e.IPAddress, e.UserAgent, e.Status, e.CreatedAt,
	); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
