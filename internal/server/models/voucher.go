package models

import "time"

// VoucherStatus is the review state of a payment voucher. PENDING is the
// only non-terminal state.
type VoucherStatus string

const (
	VoucherPending   VoucherStatus = "PENDING"
	VoucherValidated VoucherStatus = "VALIDATED"
	VoucherRejected  VoucherStatus = "REJECTED"
	VoucherDuplicate VoucherStatus = "DUPLICATE"
)

// VoucherType is the payment channel stated on the voucher.
type VoucherType string

const (
	VoucherTransfer VoucherType = "transfer"
	VoucherDeposit  VoucherType = "deposit"
	VoucherCash     VoucherType = "cash"
	VoucherCheck    VoucherType = "check"
	VoucherOther    VoucherType = "other"
)

// Valid reports whether t is a known voucher type.
func (t VoucherType) Valid() bool {
	switch t {
	case VoucherTransfer, VoucherDeposit, VoucherCash, VoucherCheck, VoucherOther:
		return true
	}
	return false
}

// PaymentVoucher is a user-submitted proof of payment against a credit.
type PaymentVoucher struct {
	ID            string
	UserID        string
	CreditID      string
	VoucherNumber string
	Amount        float64
	PaymentDate   time.Time
	VoucherType   VoucherType

	BankName        *string
	AccountNumber   *string
	PayerName       *string
	BeneficiaryName *string

	ImageReference   string
	ImageFingerprint string

	Status          VoucherStatus
	ValidationNotes *string
	ValidatedBy     *string
	ValidatedAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
