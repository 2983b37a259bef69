// Package refreshtokens declares the repository contract for persisted
// refresh tokens and its PostgreSQL implementation.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/paydesk/internal/server/models"
)

// Repository defines operations for issuing, retrieving and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token row.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find looks up a refresh token by its opaque token string.
	// It returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string. Deleting a
	// non-existent token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUserID revokes every refresh token of a user.
	DeleteByUserID(ctx context.Context, userID string) (int64, error)

	// DeleteExpired removes tokens whose expiry is not after now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
