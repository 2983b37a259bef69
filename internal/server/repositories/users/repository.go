package users

import (
	"context"

	"github.com/dmitrijs2005/paydesk/internal/server/models"
)

// Repository persists users. Lookups that match nothing return
// common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.User, error)
	FindAll(ctx context.Context) ([]*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByNationalID(ctx context.Context, nationalID string) (bool, error)
}
