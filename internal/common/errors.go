// Package common defines shared constants and sentinel errors used across
// the server layers of PayDesk. Callers should use errors.Is / errors.As to
// match these values.
package common

import (
	"errors"
	"strings"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Account errors surfaced precisely to the boundary.
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrAccountLocked      = errors.New("account locked")
	ErrValidation         = errors.New("validation failed")

	// Token errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Voucher errors.
	ErrVoucherNotFound         = errors.New("voucher not found")
	ErrVoucherAlreadyProcessed = errors.New("voucher already processed")
	ErrVoucherDuplicate        = errors.New("duplicate voucher")
)

// AccountLockedError reports a login attempt against a blocked account.
// Until is nil when the block has no expiry.
type AccountLockedError struct {
	Until *time.Time
}

func (e *AccountLockedError) Error() string {
	if e.Until == nil {
		return "account is blocked"
	}
	return "account is blocked until " + e.Until.UTC().Format(time.RFC3339)
}

// Is makes errors.Is(err, ErrAccountLocked) hold.
func (e *AccountLockedError) Is(target error) bool { return target == ErrAccountLocked }

// ValidationError carries every reason a request was rejected.
type ValidationError struct {
	Reasons []string
}

// NewValidationError builds a ValidationError from reasons.
func NewValidationError(reasons ...string) *ValidationError {
	return &ValidationError{Reasons: reasons}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Reasons, "; ")
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
