package models

import "time"

// AuditStatus is the outcome recorded for a security event.
type AuditStatus string

const (
	AuditSuccess AuditStatus = "SUCCESS"
	AuditFailure AuditStatus = "FAILURE"
)

// Audit modules.
const (
	AuditModuleAuth     = "AUTH"
	AuditModuleVouchers = "VOUCHERS"
)

// Audit actions.
const (
	AuditActionLogin           = "LOGIN"
	AuditActionLogout          = "LOGOUT"
	AuditActionRegister        = "REGISTER"
	AuditActionRefresh         = "REFRESH_TOKEN"
	AuditActionRecoverPassword = "RECOVER_PASSWORD"
	AuditActionResetPassword   = "RESET_PASSWORD"
	AuditActionVerifyEmail     = "VERIFY_EMAIL"
	AuditActionUnlockAccount   = "UNLOCK_ACCOUNT"
	AuditActionVoucherCreate   = "VOUCHER_CREATE"
	AuditActionVoucherApprove  = "VOUCHER_APPROVE"
	AuditActionVoucherReject   = "VOUCHER_REJECT"
)

// AuditEntry is one append-only audit record.
type AuditEntry struct {
	ID        string
	UserID    *string
	Action    string
	Module    string
	Details   map[string]any
	IPAddress string
	UserAgent string
	Status    AuditStatus
	CreatedAt time.Time
}

// ClientContext describes the caller of a request, for audit purposes.
type ClientContext struct {
	IPAddress string
	UserAgent string
}
