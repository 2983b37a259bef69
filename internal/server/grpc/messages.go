package grpc

import (
	"time"

	"github.com/dmitrijs2005/paydesk/internal/server/models"
)

type Empty struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	NationalID string `json:"national_id,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the access token only; the refresh token is sent
// in the refresh_token response header.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	User        models.Summary `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

type RecoverPasswordRequest struct {
	Email string `json:"email"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type UnlockAccountRequest struct {
	UserID string `json:"user_id"`
}

// VoucherRequest is a voucher submission. Artifact is base64 in JSON.
type VoucherRequest struct {
	CreditID            string    `json:"credit_id"`
	VoucherNumber       string    `json:"voucher_number"`
	Amount              float64   `json:"amount"`
	PaymentDate         time.Time `json:"payment_date"`
	VoucherType         string    `json:"voucher_type"`
	BankName            *string   `json:"bank_name,omitempty"`
	AccountNumber       *string   `json:"account_number,omitempty"`
	PayerName           *string   `json:"payer_name,omitempty"`
	BeneficiaryName     *string   `json:"beneficiary_name,omitempty"`
	ArtifactContentType string    `json:"artifact_content_type"`
	Artifact            []byte    `json:"artifact"`
}

type ValidationResponse struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	IsDuplicate bool     `json:"is_duplicate"`
	DuplicateID string   `json:"duplicate_id,omitempty"`
}

type Voucher struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	CreditID        string     `json:"credit_id"`
	VoucherNumber   string     `json:"voucher_number"`
	Amount          float64    `json:"amount"`
	PaymentDate     time.Time  `json:"payment_date"`
	VoucherType     string     `json:"voucher_type"`
	Status          string     `json:"status"`
	ValidationNotes *string    `json:"validation_notes,omitempty"`
	ValidatedBy     *string    `json:"validated_by,omitempty"`
	ValidatedAt     *time.Time `json:"validated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type ReviewVoucherRequest struct {
	ID    string  `json:"id"`
	Notes *string `json:"notes,omitempty"`
}

type RejectVoucherRequest struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type VoucherListResponse struct {
	Vouchers []Voucher `json:"vouchers"`
}

type VoucherIDRequest struct {
	ID string `json:"id"`
}

type URLResponse struct {
	URL string `json:"url"`
}

func voucherFromModel(v *models.PaymentVoucher) Voucher {
	return Voucher{
		ID:              v.ID,
		UserID:          v.UserID,
		CreditID:        v.CreditID,
		VoucherNumber:   v.VoucherNumber,
		Amount:          v.Amount,
		PaymentDate:     v.PaymentDate,
		VoucherType:     string(v.VoucherType),
		Status:          string(v.Status),
		ValidationNotes: v.ValidationNotes,
		ValidatedBy:     v.ValidatedBy,
		ValidatedAt:     v.ValidatedAt,
		CreatedAt:       v.CreatedAt,
	}
}
