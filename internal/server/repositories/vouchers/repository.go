// Package vouchers persists payment vouchers.
package vouchers

import (
	"context"

	"github.com/dmitrijs2005/paydesk/internal/server/models"
)

// Repository is the voucher store. Lookups that match nothing return
// common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, v *models.PaymentVoucher) error
	FindByID(ctx context.Context, id string) (*models.PaymentVoucher, error)
	FindByVoucherNumber(ctx context.Context, number string) (*models.PaymentVoucher, error)
	FindByImageFingerprint(ctx context.Context, fingerprint string) (*models.PaymentVoucher, error)
	FindPending(ctx context.Context) ([]*models.PaymentVoucher, error)
	// Update writes the review fields of v only while the stored status
	// equals expected; otherwise common.ErrVoucherAlreadyProcessed.
	Update(ctx context.Context, v *models.PaymentVoucher, expected models.VoucherStatus) error
	Delete(ctx context.Context, id string) error
}
