// Package models defines server-side data models persisted in the database.
package models

import "time"

// UserStatus is the account-security state of a user.
type UserStatus string

const (
	UserStatusActive              UserStatus = "ACTIVE"
	UserStatusInactive            UserStatus = "INACTIVE"
	UserStatusPendingVerification UserStatus = "PENDING_VERIFICATION"
	UserStatusBlocked             UserStatus = "BLOCKED"
)

// Role is the authorization role carried in access tokens.
type Role string

const (
	RoleUser    Role = "USER"
	RoleOfficer Role = "OFFICER"
	RoleAdmin   Role = "ADMIN"
)

// Credential pairs a secret with a flag telling whether it is already hashed.
// Credentials loaded from storage are always hashed; IsHashed=false only
// appears between the caller supplying a plaintext and the hasher running.
type Credential struct {
	Secret   string
	IsHashed bool
}

// User holds the security-relevant part of a user record.
type User struct {
	ID         string
	Email      string
	Name       string
	Role       Role
	NationalID *string
	Phone      *string
	Credential Credential
	Status     UserStatus

	LoginAttempts    int
	LastLoginAttempt *time.Time
	BlockedUntil     *time.Time
	LastLogin        *time.Time

	EmailVerified     bool
	EmailVerifiedAt   *time.Time
	VerificationToken *string

	ResetToken       *string
	ResetTokenExpiry *time.Time

	// Version is bumped by every persisted update; writes carry the version
	// they read so lost updates are detected.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is the minimal user view returned to clients after login.
type Summary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Summary returns the public summary of u.
func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}
