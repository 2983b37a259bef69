// Package users provides the PostgreSQL-backed user repository.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/paydesk/internal/common"
	"github.com/dmitrijs2005/paydesk/internal/dbx"
	"github.com/dmitrijs2005/paydesk/internal/server/models"
)

const userColumns = `id, email, name, role, national_id, phone, password_hash, status,
		login_attempts, last_login_attempt, blocked_until, last_login,
		email_verified, email_verified_at, verification_token,
		reset_token, reset_token_expiry, version, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	u := &models.User{}
	err := s.Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.NationalID, &u.Phone, &u.Credential.Secret, &u.Status,
		&u.LoginAttempts, &u.LastLoginAttempt, &u.BlockedUntil, &u.LastLogin,
		&u.EmailVerified, &u.EmailVerifiedAt, &u.VerificationToken,
		&u.ResetToken, &u.ResetTokenExpiry, &u.Version, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Credential.IsHashed = true
	return u, nil
}

// Create inserts a new user. The credential must already be hashed.
// A duplicate email or national ID yields common.ErrUserAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, u *models.User) error {
	if !u.Credential.IsHashed {
		return errors.New("refusing to store a plaintext credential")
	}
	if u.Version == 0 {
		u.Version = 1
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Email, u.Name, u.Role, u.NationalID, u.Phone, u.Credential.Secret, u.Status,
		u.LoginAttempts, u.LastLoginAttempt, u.BlockedUntil, u.LastLogin,
		u.EmailVerified, u.EmailVerifiedAt, u.VerificationToken,
		u.ResetToken, u.ResetTokenExpiry, u.Version, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrUserAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Update writes every mutable field of u, provided the stored version still
// equals u.Version. On success u.Version is advanced; a stale version
// returns common.ErrVersionConflict.
func (r *PostgresRepository) Update(ctx context.Context, u *models.User) error {
	if !u.Credential.IsHashed {
		return errors.New("refusing to store a plaintext credential")
	}

	query := `
		UPDATE users SET
			email = $3, name = $4, role = $5, national_id = $6, phone = $7, password_hash = $8, status = $9,
			login_attempts = $10, last_login_attempt = $11, blocked_until = $12, last_login = $13,
			email_verified = $14, email_verified_at = $15, verification_token = $16,
			reset_token = $17, reset_token_expiry = $18, updated_at = $19,
			version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		u.ID, u.Version,
		u.Email, u.Name, u.Role, u.NationalID, u.Phone, u.Credential.Secret, u.Status,
		u.LoginAttempts, u.LastLoginAttempt, u.BlockedUntil, u.LastLogin,
		u.EmailVerified, u.EmailVerifiedAt, u.VerificationToken,
		u.ResetToken, u.ResetTokenExpiry, u.UpdatedAt,
	)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrUserAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	if err := dbx.AffectedOne(res); err != nil {
		if errors.Is(err, dbx.ErrNoRowAffected) {
			return common.ErrVersionConflict
		}
		return fmt.Errorf("rows affected error: %w", err)
	}

	u.Version++
	return nil
}

// Delete removes a user by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := dbx.AffectedOne(res); err != nil {
		if errors.Is(err, dbx.ErrNoRowAffected) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("rows affected error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// FindByID returns the user with the given ID.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, `id = $1`, id)
}

// FindByEmail looks a user up by normalized email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `email = $1`, common.NormalizeEmail(email))
}

// FindByVerificationToken returns the user holding the given email-verification token.
func (r *PostgresRepository) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	return r.findOne(ctx, `verification_token = $1`, token)
}

// FindAll returns every user ordered by creation time.
func (r *PostgresRepository) FindAll(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ExistsByEmail reports whether the normalized email is taken.
func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, common.NormalizeEmail(email))
}

// ExistsByNationalID reports whether the national ID is taken.
func (r *PostgresRepository) ExistsByNationalID(ctx context.Context, nationalID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE national_id = $1)`, nationalID)
}

func (r *PostgresRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
