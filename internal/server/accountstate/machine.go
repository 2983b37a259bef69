// Package accountstate owns the mutable security fields of a user record:
// the failed-attempt counter, the lockout window, and the verification and
// reset tokens. It performs no I/O; callers persist the mutated record.
package accountstate

import (
	"time"

	"github.com/dmitrijs2005/paydesk/internal/server/models"
	"github.com/dmitrijs2005/paydesk/internal/timex"
)

// Policy configures lockout and reset behaviour.
type Policy struct {
	// Threshold is the failed-attempt count that blocks the account.
	Threshold int
	// LockoutDuration is the length of the lockout window.
	LockoutDuration time.Duration
	// ResetTokenTTL is the default validity of a password-reset token.
	ResetTokenTTL time.Duration
	// BlockWithoutExpiryIsPermanent decides how a BLOCKED record with no
	// BlockedUntil is treated. False keeps the historical behaviour (not
	// blocked); true treats it as an open-ended administrative block.
	BlockWithoutExpiryIsPermanent bool
}

// DefaultPolicy is 5 attempts, a 30 minute lockout and a 60 minute reset token.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:       5,
		LockoutDuration: 30 * time.Minute,
		ResetTokenTTL:   60 * time.Minute,
	}
}

// Machine applies account-security transitions using a clock.
type Machine struct {
	clock  timex.Clock
	policy Policy
}

// New returns a Machine. Zero policy fields fall back to DefaultPolicy.
func New(clock timex.Clock, policy Policy) *Machine {
	def := DefaultPolicy()
	if policy.Threshold <= 0 {
		policy.Threshold = def.Threshold
	}
	if policy.LockoutDuration <= 0 {
		policy.LockoutDuration = def.LockoutDuration
	}
	if policy.ResetTokenTTL <= 0 {
		policy.ResetTokenTTL = def.ResetTokenTTL
	}
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &Machine{clock: clock, policy: policy}
}

// Policy returns the effective policy.
func (m *Machine) Policy() Policy { return m.policy }

// IsBlocked reports whether u is inside an active lockout window.
//
// A lapsed block is cleared on u as a side effect (status back to ACTIVE,
// counters reset) and false is returned; the caller must persist u. The
// second result reports whether such a clearing happened.
func (m *Machine) IsBlocked(u *models.User) (blocked bool, healed bool) {
	if u.Status != models.UserStatusBlocked {
		return false, false
	}
	if u.BlockedUntil == nil {
		return m.policy.BlockWithoutExpiryIsPermanent, false
	}

	now := m.clock.Now()
	if !now.After(*u.BlockedUntil) {
		return true, false
	}

	m.activate(u, now)
	return false, true
}

// IncrementLoginAttempts records a failed credential check. It returns true
// when this failure moved the account into BLOCKED.
func (m *Machine) IncrementLoginAttempts(u *models.User) bool {
	now := m.clock.Now()
	u.LoginAttempts++
	u.LastLoginAttempt = &now
	u.UpdatedAt = now

	windowOpen := u.BlockedUntil != nil && !now.After(*u.BlockedUntil)
	if u.LoginAttempts >= m.policy.Threshold && !windowOpen {
		m.BlockAccount(u, m.policy.LockoutDuration)
		return true
	}
	return false
}

// ResetLoginAttempts zeroes the counter and clears the last attempt time.
func (m *Machine) ResetLoginAttempts(u *models.User) {
	u.LoginAttempts = 0
	u.LastLoginAttempt = nil
	u.UpdatedAt = m.clock.Now()
}

// BlockAccount blocks u for d from now.
func (m *Machine) BlockAccount(u *models.User, d time.Duration) {
	now := m.clock.Now()
	until := now.Add(d)
	u.Status = models.UserStatusBlocked
	u.BlockedUntil = &until
	u.UpdatedAt = now
}

// Unblock is the administrative reset: ACTIVE, no window, no attempts.
func (m *Machine) Unblock(u *models.User) {
	m.activate(u, m.clock.Now())
}

// UpdateLastLogin stamps a successful login and resets the counter.
func (m *Machine) UpdateLastLogin(u *models.User) {
	now := m.clock.Now()
	u.LastLogin = &now
	m.ResetLoginAttempts(u)
}

// SetVerificationToken stores an email verification token on an unverified user.
func (m *Machine) SetVerificationToken(u *models.User, token string) {
	u.VerificationToken = &token
	u.EmailVerified = false
	u.EmailVerifiedAt = nil
	u.UpdatedAt = m.clock.Now()
}

// VerifyEmail marks the email verified, drops the token and activates a
// PENDING_VERIFICATION account.
func (m *Machine) VerifyEmail(u *models.User) {
	now := m.clock.Now()
	u.EmailVerified = true
	u.EmailVerifiedAt = &now
	u.VerificationToken = nil
	if u.Status == models.UserStatusPendingVerification {
		u.Status = models.UserStatusActive
	}
	u.UpdatedAt = now
}

// SetResetToken stores a reset token valid for ttl (policy default when ttl <= 0).
func (m *Machine) SetResetToken(u *models.User, token string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.policy.ResetTokenTTL
	}
	now := m.clock.Now()
	expiry := now.Add(ttl)
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	u.UpdatedAt = now
}

// IsResetTokenValid is false when either half of the pair is missing or the
// expiry has been reached.
func (m *Machine) IsResetTokenValid(u *models.User) bool {
	if u.ResetToken == nil || u.ResetTokenExpiry == nil {
		return false
	}
	return m.clock.Now().Before(*u.ResetTokenExpiry)
}

// ClearResetToken removes both halves of the reset pair.
func (m *Machine) ClearResetToken(u *models.User) {
	u.ResetToken = nil
	u.ResetTokenExpiry = nil
	u.UpdatedAt = m.clock.Now()
}

// activate re-enters ACTIVE, clearing the block window and counters together.
func (m *Machine) activate(u *models.User, now time.Time) {
	u.Status = models.UserStatusActive
	u.BlockedUntil = nil
	u.LoginAttempts = 0
	u.LastLoginAttempt = nil
	u.UpdatedAt = now
}
