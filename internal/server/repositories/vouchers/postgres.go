package vouchers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/paydesk/internal/common"
	"github.com/dmitrijs2005/paydesk/internal/dbx"
	"github.com/dmitrijs2005/paydesk/internal/server/models"
)

const voucherColumns = `id, user_id, credit_id, voucher_number, amount, payment_date, voucher_type,
		bank_name, account_number, payer_name, beneficiary_name,
		image_reference, image_fingerprint, status, validation_notes, validated_by, validated_at,
		created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX.
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

func scanVoucher(s scanner) (*models.PaymentVoucher, error) {
	v := &models.PaymentVoucher{}
	err := s.Scan(
		&v.ID, &v.UserID, &v.CreditID, &v.VoucherNumber, &v.Amount, &v.PaymentDate, &v.VoucherType,
		&v.BankName, &v.AccountNumber, &v.PayerName, &v.BeneficiaryName,
		&v.ImageReference, &v.ImageFingerprint, &v.Status, &v.ValidationNotes, &v.ValidatedBy, &v.ValidatedAt,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Create inserts v. A clash on voucher number or fingerprint yields
// common.ErrVoucherDuplicate.
func (r *PostgresRepository) Create(ctx context.Context, v *models.PaymentVoucher) error {
	query := `
		INSERT INTO payment_vouchers (` + voucherColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.UserID, v.CreditID, v.VoucherNumber, v.Amount, v.PaymentDate, v.VoucherType,
		v.BankName, v.AccountNumber, v.PayerName, v.BeneficiaryName,
		v.ImageReference, v.ImageFingerprint, v.Status, v.ValidationNotes, v.ValidatedBy, v.ValidatedAt,
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrVoucherDuplicate
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any) (*models.PaymentVoucher, error) {
	v, err := scanVoucher(r.db.QueryRowContext(ctx, `SELECT `+voucherColumns+` FROM payment_vouchers WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

// FindByID returns the voucher with the given ID.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.PaymentVoucher, error) {
	return r.findOne(ctx, `id = $1`, id)
}

// FindByVoucherNumber returns the voucher carrying the given number.
func (r *PostgresRepository) FindByVoucherNumber(ctx context.Context, number string) (*models.PaymentVoucher, error) {
	return r.findOne(ctx, `voucher_number = $1`, number)
}

// FindByImageFingerprint returns the voucher whose artifact has the given hash.
func (r *PostgresRepository) FindByImageFingerprint(ctx context.Context, fingerprint string) (*models.PaymentVoucher, error) {
	return r.findOne(ctx, `image_fingerprint = $1`, fingerprint)
}

// FindPending lists PENDING vouchers, oldest first.
func (r *PostgresRepository) FindPending(ctx context.Context) ([]*models.PaymentVoucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM payment_vouchers WHERE status = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, models.VoucherPending)
	if err != nil {
		return nil, fmt.Errorf("failed to select vouchers: %w", err)
	}
	defer rows.Close()

	var result []*models.PaymentVoucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update performs a status compare-and-set on the review fields.
func (r *PostgresRepository) Update(ctx context.Context, v *models.PaymentVoucher, expected models.VoucherStatus) error {
	query := `
		UPDATE payment_vouchers
		SET status = $3, validation_notes = $4, validated_by = $5, validated_at = $6, updated_at = $7
		WHERE id = $1 AND status = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		v.ID, expected, v.Status, v.ValidationNotes, v.ValidatedBy, v.ValidatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := dbx.AffectedOne(res); err != nil {
		if errors.Is(err, dbx.ErrNoRowAffected) {
			return common.ErrVoucherAlreadyProcessed
		}
		return fmt.Errorf("rows affected error: %w", err)
	}
	return nil
}

// Delete removes a voucher by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payment_vouchers WHERE id = $1`, id)
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
