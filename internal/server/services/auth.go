// Package services implements the server's use cases on top of the
// repositories: authentication and account recovery, and payment voucher
// intake and review.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/paydesk/internal/common"
	"github.com/dmitrijs2005/paydesk/internal/dbx"
	"github.com/dmitrijs2005/paydesk/internal/logging"
	"github.com/dmitrijs2005/paydesk/internal/server/accountstate"
	"github.com/dmitrijs2005/paydesk/internal/server/auth"
	"github.com/dmitrijs2005/paydesk/internal/server/locks"
	"github.com/dmitrijs2005/paydesk/internal/server/models"
	"github.com/dmitrijs2005/paydesk/internal/server/notify"
	"github.com/dmitrijs2005/paydesk/internal/server/password"
	"github.com/dmitrijs2005/paydesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/paydesk/internal/timex"
	"github.com/google/uuid"
)

// GenericRecoveryMessage is returned by RecoverPassword whatever happened.
const GenericRecoveryMessage = "If an account exists for this email, you will receive password recovery instructions."

var errInvalidResetCode = common.NewValidationError("invalid or expired reset code")

// LoginResult is returned by a successful Login. RefreshToken must be sent
// on a separate channel from the access token.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         models.Summary
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	NationalID string
	Phone      string
}

// ResetPasswordInput completes a password recovery.
type ResetPasswordInput struct {
	Email       string
	Code        string
	NewPassword string
}

// AuthDeps are the collaborators of AuthService. Locker, Clock and Log
// default to an in-process keyed mutex, the wall clock and a no-op logger.
type AuthDeps struct {
	Tokens  *auth.TokenService
	Hasher  password.Hasher
	Machine *accountstate.Machine
	Sender  notify.Sender
	Locker  locks.Locker
	Clock   timex.Clock
	Log     logging.Logger
}

// AuthService orchestrates login, registration, logout and recovery.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	hasher      password.Hasher
	machine     *accountstate.Machine
	sender      notify.Sender
	locker      locks.Locker
	clock       timex.Clock
	log         logging.Logger
	audit       auditor
}

// NewAuthService wires an AuthService.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, d AuthDeps) *AuthService {
	if d.Locker == nil {
		d.Locker = locks.NewKeyedMutex()
	}
	if d.Clock == nil {
		d.Clock = timex.SystemClock{}
	}
	if d.Log == nil {
		d.Log = logging.Nop{}
	}
	log := d.Log.With("module", models.AuditModuleAuth)

	return &AuthService{
		db:          db,
		repomanager: m,
		tokens:      d.Tokens,
		hasher:      d.Hasher,
		machine:     d.Machine,
		sender:      d.Sender,
		locker:      d.Locker,
		clock:       d.Clock,
		log:         log,
		audit:       auditor{db: db, repomanager: m, clock: d.Clock, log: log, module: models.AuditModuleAuth},
	}
}

func userLockKey(email string) string {
	return "user:" + email
}

// internal logs err and returns the generic internal error.
func (s *AuthService) internal(ctx context.Context, op string, err error) error {
	s.log.Error(ctx, op+" failed", "error", err)
	return common.ErrorInternal
}

// checkBlocked persists a lapsed block cleared by IsBlocked and reports
// whether the account is still blocked.
func (s *AuthService) checkBlocked(ctx context.Context, u *models.User) (bool, error) {
	blocked, healed := s.machine.IsBlocked(u)
	if healed {
		if err := s.repomanager.Users(s.db).Update(ctx, u); err != nil {
			return false, err
		}
		s.log.Info(ctx, "lockout expired", "user_id", u.ID)
	}
	return blocked, nil
}

// recordFailedAttempt counts a failed credential check, persists it and,
// when it blocked the account, queues the notification.
func (s *AuthService) recordFailedAttempt(ctx context.Context, u *models.User) (bool, error) {
	justBlocked := s.machine.IncrementLoginAttempts(u)
	if err := s.repomanager.Users(s.db).Update(ctx, u); err != nil {
		return false, err
	}
	if justBlocked && u.BlockedUntil != nil {
		if err := s.sender.SendAccountBlockedEmail(ctx, u.Email, u.Name, *u.BlockedUntil); err != nil {
			s.log.Warn(ctx, "account blocked email not sent", "user_id", u.ID, "error", err)
		}
	}
	return justBlocked, nil
}

// Login verifies credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, pw string, client models.ClientContext) (*LoginResult, error) {
	const action = models.AuditActionLogin
	email = common.NormalizeEmail(email)

	if email == "" || pw == "" {
		s.audit.failure(ctx, "", action, client, map[string]any{"reason": "missing credentials"})
		return nil, common.NewValidationError("email and password are required")
	}

	unlock, err := s.locker.Lock(ctx, userLockKey(email))
	if err != nil {
		s.audit.failure(ctx, "", action, client, map[string]any{"reason": "lock unavailable", "email": email})
		return nil, s.internal(ctx, "login lock", err)
	}
	defer unlock()

	users := s.repomanager.Users(s.db)
	u, err := users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.audit.failure(ctx, "", action, client, map[string]any{"reason": "user not found", "email": email})
			return nil, common.ErrUserNotFound
		}
		s.audit.failure(ctx, "", action, client, map[string]any{"reason": "lookup failed", "email": email})
		return nil, s.internal(ctx, "login lookup", err)
	}

	blocked, err := s.checkBlocked(ctx, u)
	if err != nil {
		s.audit.failure(ctx, u.ID, action, client, reason("unblock persist failed"))
		return nil, s.internal(ctx, "login unblock", err)
	}
	if blocked {
		s.audit.failure(ctx, u.ID, action, client, reason("account locked"))
		return nil, &common.AccountLockedError{Until: u.BlockedUntil}
	}

	if !s.hasher.Verify(u.Credential.Secret, pw) {
		justBlocked, err := s.recordFailedAttempt(ctx, u)
		if err != nil {
			s.audit.failure(ctx, u.ID, action, client, reason("attempt persist failed"))
			return nil, s.internal(ctx, "login attempt", err)
		}
		s.audit.failure(ctx, u.ID, action, client, map[string]any{
			"reason":   "invalid password",
			"attempts": u.LoginAttempts,
			"blocked":  justBlocked,
		})
		return nil, common.ErrInvalidCredentials
	}

	s.machine.UpdateLastLogin(u)
	if err := users.Update(ctx, u); err != nil {
		s.audit.failure(ctx, u.ID, action, client, reason("login persist failed"))
		return nil, s.internal(ctx, "login persist", err)
	}

	pair, err := s.issueTokens(ctx, s.db, u)
	if err != nil {
		s.audit.failure(ctx, u.ID, action, client, reason("token issue failed"))
		return nil, s.internal(ctx, "login tokens", err)
	}

	s.audit.success(ctx, u.ID, action, client, nil)
	return &LoginResult{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, User: u.Summary()}, nil
}

// issueTokens signs a pair for u and stores the refresh token through db.
func (s *AuthService) issueTokens(ctx context.Context, db dbx.DBTX, u *models.User) (*auth.TokenPair, error) {
	pair, err := s.tokens.GenerateTokens(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	err = s.repomanager.RefreshTokens(db).Create(ctx, &models.RefreshToken{
		UserID:    u.ID,
		Token:     pair.RefreshToken,
		ExpiresAt: now.Add(s.tokens.RefreshTTL()),
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}

// Register creates a PENDING_VERIFICATION user and queues the verification email.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, client models.ClientContext) (string, error) {
	const action = models.AuditActionRegister
	email := common.NormalizeEmail(in.Email)
	nationalID := strings.TrimSpace(in.NationalID)

	if email == "" || !strings.Contains(email, "@") {
		s.audit.failure(ctx, "", action, client, reason("invalid email"))
		return "", common.NewValidationError("a valid email is required")
	}

	users := s.repomanager.Users(s.db)

	exists, err := users.ExistsByEmail(ctx, email)
	if err != nil {
		s.audit.failure(ctx, "", action, client, reason("lookup failed"))
		return "", s.internal(ctx, "register lookup", err)
	}
	if exists {
		s.audit.failure(ctx, "", action, client, map[string]any{"reason": "email taken", "email": email})
		return "", common.ErrUserAlreadyExists
	}
	if nationalID != "" {
		exists, err = users.ExistsByNationalID(ctx, nationalID)
		if err != nil {
			s.audit.failure(ctx, "", action, client, reason("lookup failed"))
			return "", s.internal(ctx, "register lookup", err)
		}
		if exists {
			s.audit.failure(ctx, "", action, client, map[string]any{"reason": "national id taken", "email": email})
			return "", common.ErrUserAlreadyExists
		}
	}

	if r := password.Validate(in.Password); r != "" {
		s.audit.failure(ctx, "", action, client, map[string]any{"reason": "weak password", "email": email})
		return "", common.NewValidationError(r)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.audit.failure(ctx, "", action, client, reason("hash failed"))
		return "", s.internal(ctx, "register hash", err)
	}

	now := s.clock.Now()
	u := &models.User{
		ID:         uuid.NewString(),
		Email:      email,
		Name:       strings.TrimSpace(in.Name),
		Role:       models.RoleUser,
		Credential: models.Credential{Secret: hash, IsHashed: true},
		Status:     models.UserStatusPendingVerification,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if nationalID != "" {
		u.NationalID = &nationalID
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		u.Phone = &phone
	}

	token, err := common.MakeRandHexString(32)
	if err != nil {
		s.audit.failure(ctx, "", action, client, reason("token generation failed"))
		return "", s.internal(ctx, "register token", err)
	}
	s.machine.SetVerificationToken(u, token)

	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, common.ErrUserAlreadyExists) {
			s.audit.failure(ctx, "", action, client, map[string]any{"reason": "email taken", "email": email})
			return "", common.ErrUserAlreadyExists
		}
		s.audit.failure(ctx, "", action, client, reason("persist failed"))
		return "", s.internal(ctx, "register persist", err)
	}

	if err := s.sender.SendVerificationEmail(ctx, u.Email, u.Name, token); err != nil {
		s.log.Warn(ctx, "verification email not sent", "user_id", u.ID, "error", err)
	}

	s.audit.success(ctx, u.ID, action, client, nil)
	return u.ID, nil
}

// Logout revokes refreshToken when it belongs to userID. It never fails
// for an authenticated caller.
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string, client models.ClientContext) error {
	details := map[string]any{}

	if refreshToken != "" {
		repo := s.repomanager.RefreshTokens(s.db)
		stored, err := repo.Find(ctx, refreshToken)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			details["refresh_token"] = "not found"
		case err != nil:
			s.log.Warn(ctx, "refresh token lookup failed on logout", "user_id", userID, "error", err)
			details["refresh_token_error"] = err.Error()
		case stored.UserID != userID:
			details["refresh_token"] = "foreign"
		default:
			if err := repo.Delete(ctx, refreshToken); err != nil {
				s.log.Warn(ctx, "refresh token delete failed on logout", "user_id", userID, "error", err)
				details["refresh_token_error"] = err.Error()
			} else {
				details["refresh_token"] = "revoked"
			}
		}
	}

	s.audit.success(ctx, userID, models.AuditActionLogout, client, details)
	return nil
}

// RecoverPassword starts a recovery for email. The reply is always
// GenericRecoveryMessage; the real outcome goes to the audit trail only.
func (s *AuthService) RecoverPassword(ctx context.Context, email string, client models.ClientContext) string {
	email = common.NormalizeEmail(email)

	if err := s.recoverPassword(ctx, email, client); err != nil {
		s.log.Warn(ctx, "password recovery not completed", "error", err)
	}
	return GenericRecoveryMessage
}

func (s *AuthService) recoverPassword(ctx context.Context, email string, client models.ClientContext) error {
	const action = models.AuditActionRecoverPassword

	unlock, err := s.locker.Lock(ctx, userLockKey(email))
	if err != nil {
		s.audit.failure(ctx, "", action, client, map[string]any{"reason": "lock unavailable", "email": email})
		return err
	}
	defer unlock()

	users := s.repomanager.Users(s.db)
	u, err := users.FindByEmail(ctx, email)
	if err != nil {
		r := "lookup failed"
		if errors.Is(err, common.ErrorNotFound) {
			r = "unknown email"
		}
		s.audit.failure(ctx, "", action, client, map[string]any{"reason": r, "email": email})
		return err
	}

	code, err := auth.GenerateResetCode()
	if err != nil {
		s.audit.failure(ctx, u.ID, action, client, reason("code generation failed"))
		return err
	}
	sealed, err := auth.SealResetCode(code)
	if err != nil {
		s.audit.failure(ctx, u.ID, action, client, reason("token generation failed"))
		return err
	}

	s.machine.SetResetToken(u, sealed, 0)
	if err := users.Update(ctx, u); err != nil {
		s.audit.failure(ctx, u.ID, action, client, reason("persist failed"))
		return err
	}

	// Delivery is asynchronous; failures are logged by the dispatcher.
	if err := s.sender.SendPasswordResetEmail(ctx, u.Email, u.Name, code); err != nil {
		s.log.Warn(ctx, "password reset email not sent", "user_id", u.ID, "error", err)
	}

	s.audit.success(ctx, u.ID, action, client, nil)
	return nil
}

// ResetPassword completes a recovery with the emailed code. A wrong code
// counts as a failed credential check. On success every refresh token of
// the user is revoked.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput, client models.ClientContext) error {
	const action = models.AuditActionResetPassword
	email := common.NormalizeEmail(in.Email)

	unlock, err := s.locker.Lock(ctx, userLockKey(email))
	if err != nil {
		s.audit.failure(ctx, "", action, client, reason("lock unavailable"))
		return s.internal(ctx, "reset lock", err)
	}
	defer unlock()

	users := s.repomanager.Users(s.db)
	u, err := users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.audit.failure(ctx, "", action, client, map[string]any{"reason": "unknown email", "email": email})
			return errInvalidResetCode
		}
		s.audit.failure(ctx, "", action, client, reason("lookup failed"))
		return s.internal(ctx, "reset lookup", err)
	}

	blocked, err := s.checkBlocked(ctx, u)
	if err != nil {
		s.audit.failure(ctx, u.ID, action, client, reason("unblock persist failed"))
		return s.internal(ctx, "reset unblock", err)
	}
	if blocked {
		s.audit.failure(ctx, u.ID, action, client, reason("account locked"))
		return &common.AccountLockedError{Until: u.BlockedUntil}
	}

	if !s.machine.IsResetTokenValid(u) {
		s.audit.failure(ctx, u.ID, action, client, reason("no valid reset token"))
		return errInvalidResetCode
	}

	if !auth.MatchResetCode(*u.ResetToken, in.Code) {
		if _, err := s.recordFailedAttempt(ctx, u); err != nil {
			s.audit.failure(ctx, u.ID, action, client, reason("attempt persist failed"))
			return s.internal(ctx, "reset attempt", err)
		}
		s.audit.failure(ctx, u.ID, action, client, map[string]any{"reason": "wrong code", "attempts": u.LoginAttempts})
		return errInvalidResetCode
	}

	if r := password.Validate(in.NewPassword); r != "" {
		s.audit.failure(ctx, u.ID, action, client, reason("weak password"))
		return common.NewValidationError(r)
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		s.audit.failure(ctx, u.ID, action, client, reason("hash failed"))
		return s.internal(ctx, "reset hash", err)
	}

	u.Credential = models.Credential{Secret: hash, IsHashed: true}
	s.machine.ClearResetToken(u)
	s.machine.ResetLoginAttempts(u)

	var revoked int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Update(ctx, u); err != nil {
			return err
		}
		revoked, err = s.repomanager.RefreshTokens(tx).DeleteByUserID(ctx, u.ID)
		return err
	})
	if err != nil {
		s.audit.failure(ctx, u.ID, action, client, reason("persist failed"))
		return s.internal(ctx, "reset persist", err)
	}

	s.audit.success(ctx, u.ID, action, client, map[string]any{"revoked_refresh_tokens": revoked})
	return nil
}

// Refresh rotates a refresh token: the presented one is deleted and a new
// pair is issued in the same transaction.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client models.ClientContext) (*auth.TokenPair, error) {
	const action = models.AuditActionRefresh

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.audit.failure(ctx, "", action, client, map[string]any{"reason": err.Error()})
		return nil, err
	}

	repo := s.repomanager.RefreshTokens(s.db)
	stored, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.audit.failure(ctx, claims.UserID, action, client, reason("unknown refresh token"))
			return nil, common.ErrInvalidToken
		}
		s.audit.failure(ctx, claims.UserID, action, client, reason("lookup failed"))
		return nil, s.internal(ctx, "refresh lookup", err)
	}
	if stored.UserID != claims.UserID {
		s.audit.failure(ctx, claims.UserID, action, client, reason("owner mismatch"))
		return nil, common.ErrInvalidToken
	}
	if !s.clock.Now().Before(stored.ExpiresAt) {
		s.audit.failure(ctx, stored.UserID, action, client, reason("refresh token expired"))
		return nil, common.ErrRefreshTokenExpired
	}

	u, err := s.repomanager.Users(s.db).FindByID(ctx, stored.UserID)
	if err != nil {
		s.audit.failure(ctx, stored.UserID, action, client, reason("user lookup failed"))
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, s.internal(ctx, "refresh user", err)
	}
	blocked, err := s.checkBlocked(ctx, u)
	if err != nil {
		s.audit.failure(ctx, u.ID, action, client, reason("persist failed"))
		return nil, s.internal(ctx, "refresh unblock", err)
	}
	if blocked {
		s.audit.failure(ctx, u.ID, action, client, reason("account locked"))
		return nil, &common.AccountLockedError{Until: u.BlockedUntil}
	}

	var pair *auth.TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return err
		}
		pair, err = s.issueTokens(ctx, tx, u)
		return err
	})
	if err != nil {
		s.audit.failure(ctx, u.ID, action, client, reason("rotation failed"))
		return nil, s.internal(ctx, "refresh rotate", err)
	}

	s.audit.success(ctx, u.ID, action, client, nil)
	return pair, nil
}

// VerifyEmail activates the account holding token and queues the welcome email.
func (s *AuthService) VerifyEmail(ctx context.Context, token string, client models.ClientContext) error {
	const action = models.AuditActionVerifyEmail

	users := s.repomanager.Users(s.db)
	u, err := users.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.audit.failure(ctx, "", action, client, reason("unknown token"))
			return common.NewValidationError("invalid verification token")
		}
		s.audit.failure(ctx, "", action, client, reason("lookup failed"))
		return s.internal(ctx, "verify lookup", err)
	}

	s.machine.VerifyEmail(u)
	if err := users.Update(ctx, u); err != nil {
		s.audit.failure(ctx, u.ID, action, client, reason("persist failed"))
		return s.internal(ctx, "verify persist", err)
	}

	if err := s.sender.SendWelcomeEmail(ctx, u.Email, u.Name); err != nil {
		s.log.Warn(ctx, "welcome email not sent", "user_id", u.ID, "error", err)
	}

	s.audit.success(ctx, u.ID, action, client, nil)
	return nil
}

// UnlockAccount is the administrative unblock performed by actorID.
func (s *AuthService) UnlockAccount(ctx context.Context, actorID, userID string, client models.ClientContext) error {
	const action = models.AuditActionUnlockAccount
	details := map[string]any{"target_user_id": userID}

	if _, err := uuid.Parse(userID); err != nil {
		s.audit.failure(ctx, actorID, action, client, details)
		return common.ErrUserNotFound
	}

	users := s.repomanager.Users(s.db)
	u, err := users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.audit.failure(ctx, actorID, action, client, details)
			return common.ErrUserNotFound
		}
		s.audit.failure(ctx, actorID, action, client, details)
		return s.internal(ctx, "unlock lookup", err)
	}

	unlock, err := s.locker.Lock(ctx, userLockKey(u.Email))
	if err != nil {
		s.audit.failure(ctx, actorID, action, client, details)
		return s.internal(ctx, "unlock lock", err)
	}
	defer unlock()

	// Re-read under the lock.
	u, err = users.FindByID(ctx, userID)
	if err != nil {
		s.audit.failure(ctx, actorID, action, client, details)
		return s.internal(ctx, "unlock reread", err)
	}

	s.machine.Unblock(u)
	if err := users.Update(ctx, u); err != nil {
		s.audit.failure(ctx, actorID, action, client, details)
		return s.internal(ctx, "unlock persist", err)
	}

	s.audit.success(ctx, actorID, action, client, details)
	return nil
}

// PurgeExpiredRefreshTokens deletes refresh tokens past their expiry.
func (s *AuthService) PurgeExpiredRefreshTokens(ctx context.Context) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("purge expired refresh tokens: %w", err)
	}
	s.log.Info(ctx, "expired refresh tokens purged", "count", n)
	return n, nil
}
