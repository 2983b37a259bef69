// Package auditlogs stores the append-only trail of security events.
package auditlogs

import (
	"context"

	"github.com/dmitrijs2005/paydesk/internal/server/models"
)

// Repository appends audit entries. Entries are never updated or deleted.
type Repository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
}
