package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/paydesk/internal/common"
	"github.com/dmitrijs2005/paydesk/internal/logging"
	"github.com/dmitrijs2005/paydesk/internal/server/models"
	"github.com/dmitrijs2005/paydesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/paydesk/internal/server/storage"
	"github.com/dmitrijs2005/paydesk/internal/timex"
	"github.com/google/uuid"
)

const (
	// MaxArtifactSize is the largest accepted voucher artifact, 5 MiB.
	MaxArtifactSize = 5 * 1024 * 1024
	// StaleVoucherAge is the payment age after which a warning is raised.
	StaleVoucherAge = 30 * 24 * time.Hour
	// ArtifactURLTTL is the lifetime of presigned artifact downloads.
	ArtifactURLTTL = 15 * time.Minute
)

var allowedArtifactTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// ArtifactStore keeps the uploaded voucher images and documents.
type ArtifactStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Artifact is an uploaded voucher file.
type Artifact struct {
	ContentType string
	Data        []byte
}

// VoucherCandidate is a voucher submission before it is accepted.
type VoucherCandidate struct {
	UserID          string
	CreditID        string
	VoucherNumber   string
	Amount          float64
	PaymentDate     time.Time
	VoucherType     models.VoucherType
	BankName        *string
	AccountNumber   *string
	PayerName       *string
	BeneficiaryName *string
	Artifact        *Artifact
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Valid       bool
	Errors      []string
	Warnings    []string
	IsDuplicate bool
	DuplicateID string
	Fingerprint string
}

// Fingerprint is the hex SHA-256 of an artifact's bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VoucherService validates, stores and reviews payment vouchers.
type VoucherService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ArtifactStore
	clock       timex.Clock
	log         logging.Logger
	audit       auditor
}

// NewVoucherService wires a VoucherService. A nil clock means the wall clock.
func NewVoucherService(db *sql.DB, m repomanager.RepositoryManager, store ArtifactStore, clock timex.Clock, log logging.Logger) *VoucherService {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	if log == nil {
		log = logging.Nop{}
	}
	log = log.With("module", models.AuditModuleVouchers)

	return &VoucherService{
		db:          db,
		repomanager: m,
		store:       store,
		clock:       clock,
		log:         log,
		audit:       auditor{db: db, repomanager: m, clock: clock, log: log, module: models.AuditModuleVouchers},
	}
}

func (s *VoucherService) internal(ctx context.Context, op string, err error) error {
	s.log.Error(ctx, op+" failed", "error", err)
	return common.ErrorInternal
}

// structural runs the checks that need no storage access.
func (s *VoucherService) structural(c *VoucherCandidate) (errs, warns []string) {
	if strings.TrimSpace(c.VoucherNumber) == "" {
		errs = append(errs, "voucher number is required")
	}
	if !(c.Amount > 0) {
		errs = append(errs, "amount must be greater than zero")
	}
	if !c.VoucherType.Valid() {
		errs = append(errs, "invalid voucher type")
	}

	now := s.clock.Now()
	switch {
	case c.PaymentDate.IsZero():
		errs = append(errs, "payment date is required")
	case c.PaymentDate.After(now):
		errs = append(errs, "payment date cannot be in the future")
	case c.PaymentDate.Before(now.Add(-StaleVoucherAge)):
		warns = append(warns, "payment date is more than 30 days old")
	}

	switch {
	case c.Artifact == nil || len(c.Artifact.Data) == 0:
		errs = append(errs, "voucher artifact is required")
	default:
		if !allowedArtifactTypes[strings.ToLower(c.Artifact.ContentType)] {
			errs = append(errs, "artifact type not allowed, use JPEG, PNG, WEBP or PDF")
		}
		if len(c.Artifact.Data) > MaxArtifactSize {
			errs = append(errs, "artifact exceeds 5 MB")
		}
	}
	return errs, warns
}

// Validate checks c. Duplicate lookups run only when the structural checks pass.
func (s *VoucherService) Validate(ctx context.Context, c *VoucherCandidate) (*ValidationResult, error) {
	errs, warns := s.structural(c)
	res := &ValidationResult{Errors: errs, Warnings: warns}
	if len(errs) > 0 {
		return res, nil
	}

	res.Fingerprint = Fingerprint(c.Artifact.Data)
	repo := s.repomanager.Vouchers(s.db)

	byNumber, err := repo.FindByVoucherNumber(ctx, strings.TrimSpace(c.VoucherNumber))
	switch {
	case err == nil:
		res.IsDuplicate = true
		res.DuplicateID = byNumber.ID
		res.Errors = append(res.Errors, "voucher number already registered")
	case !errors.Is(err, common.ErrorNotFound):
		return nil, err
	}

	byPrint, err := repo.FindByImageFingerprint(ctx, res.Fingerprint)
	switch {
	case err == nil:
		res.IsDuplicate = true
		if res.DuplicateID == "" {
			res.DuplicateID = byPrint.ID
		}
		res.Errors = append(res.Errors, "voucher artifact already submitted")
	case !errors.Is(err, common.ErrorNotFound):
		return nil, err
	}

	res.Valid = len(res.Errors) == 0
	return res, nil
}

// Create validates c, uploads its artifact and persists a PENDING voucher.
// The upload is removed again when persisting fails.
func (s *VoucherService) Create(ctx context.Context, c *VoucherCandidate, client models.ClientContext) (*models.PaymentVoucher, error) {
	const action = models.AuditActionVoucherCreate

	res, err := s.Validate(ctx, c)
	if err != nil {
		s.audit.failure(ctx, c.UserID, action, client, reason("validation lookup failed"))
		return nil, s.internal(ctx, "voucher validate", err)
	}
	if !res.Valid {
		s.audit.failure(ctx, c.UserID, action, client, map[string]any{
			"reason":       "invalid voucher",
			"errors":       res.Errors,
			"duplicate_id": res.DuplicateID,
		})
		return nil, common.NewValidationError(res.Errors...)
	}

	now := s.clock.Now()
	key := storage.NewKey(now)
	if err := s.store.Put(ctx, key, strings.ToLower(c.Artifact.ContentType), c.Artifact.Data); err != nil {
		s.audit.failure(ctx, c.UserID, action, client, reason("artifact upload failed"))
		return nil, s.internal(ctx, "voucher upload", err)
	}

	v := &models.PaymentVoucher{
		ID:               uuid.NewString(),
		UserID:           c.UserID,
		CreditID:         c.CreditID,
		VoucherNumber:    strings.TrimSpace(c.VoucherNumber),
		Amount:           c.Amount,
		PaymentDate:      c.PaymentDate,
		VoucherType:      c.VoucherType,
		BankName:         c.BankName,
		AccountNumber:    c.AccountNumber,
		PayerName:        c.PayerName,
		BeneficiaryName:  c.BeneficiaryName,
		ImageReference:   key,
		ImageFingerprint: res.Fingerprint,
		Status:           models.VoucherPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repomanager.Vouchers(s.db).Create(ctx, v); err != nil {
		if derr := s.store.Delete(ctx, key); derr != nil {
			s.log.Warn(ctx, "orphaned voucher artifact", "key", key, "error", derr)
		}
		if errors.Is(err, common.ErrVoucherDuplicate) {
			s.audit.failure(ctx, c.UserID, action, client, reason("duplicate voucher"))
			return nil, common.NewValidationError("duplicate voucher")
		}
		s.audit.failure(ctx, c.UserID, action, client, reason("persist failed"))
		return nil, s.internal(ctx, "voucher persist", err)
	}

	s.audit.success(ctx, c.UserID, action, client, map[string]any{"voucher_id": v.ID, "warnings": res.Warnings})
	return v, nil
}

// Approve moves a PENDING voucher to VALIDATED.
func (s *VoucherService) Approve(ctx context.Context, id, approverID string, notes *string, client models.ClientContext) (*models.PaymentVoucher, error) {
	return s.review(ctx, id, approverID, models.VoucherValidated, notes, models.AuditActionVoucherApprove, client)
}

// Reject moves a PENDING voucher to REJECTED. A reason is required.
func (s *VoucherService) Reject(ctx context.Context, id, approverID, reasonText string, client models.ClientContext) (*models.PaymentVoucher, error) {
	reasonText = strings.TrimSpace(reasonText)
	if reasonText == "" {
		s.audit.failure(ctx, approverID, models.AuditActionVoucherReject, client, map[string]any{"voucher_id": id, "reason": "missing reason"})
		return nil, common.NewValidationError("a rejection reason is required")
	}
	return s.review(ctx, id, approverID, models.VoucherRejected, &reasonText, models.AuditActionVoucherReject, client)
}

func (s *VoucherService) review(ctx context.Context, id, approverID string, to models.VoucherStatus, notes *string,
	action string, client models.ClientContext) (*models.PaymentVoucher, error) {

	details := map[string]any{"voucher_id": id}
	if _, err := uuid.Parse(id); err != nil {
		s.audit.failure(ctx, approverID, action, client, details)
		return nil, common.ErrVoucherNotFound
	}
	repo := s.repomanager.Vouchers(s.db)

	v, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.audit.failure(ctx, approverID, action, client, details)
			return nil, common.ErrVoucherNotFound
		}
		s.audit.failure(ctx, approverID, action, client, details)
		return nil, s.internal(ctx, "voucher lookup", err)
	}
	if v.Status != models.VoucherPending {
		details["status"] = string(v.Status)
		s.audit.failure(ctx, approverID, action, client, details)
		return nil, common.ErrVoucherAlreadyProcessed
	}

	now := s.clock.Now()
	v.Status = to
	v.ValidatedBy = &approverID
	v.ValidatedAt = &now
	v.UpdatedAt = now
	if notes != nil {
		v.ValidationNotes = notes
	}

	if err := repo.Update(ctx, v, models.VoucherPending); err != nil {
		s.audit.failure(ctx, approverID, action, client, details)
		if errors.Is(err, common.ErrVoucherAlreadyProcessed) {
			return nil, err
		}
		return nil, s.internal(ctx, "voucher review", err)
	}

	s.audit.success(ctx, approverID, action, client, details)
	return v, nil
}

// ListPending returns the vouchers awaiting review.
func (s *VoucherService) ListPending(ctx context.Context) ([]*models.PaymentVoucher, error) {
	out, err := s.repomanager.Vouchers(s.db).FindPending(ctx)
	if err != nil {
		return nil, s.internal(ctx, "voucher list", err)
	}
	return out, nil
}

// ArtifactURL returns a short-lived download URL for a voucher's artifact.
func (s *VoucherService) ArtifactURL(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", common.ErrVoucherNotFound
	}
	v, err := s.repomanager.Vouchers(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrVoucherNotFound
		}
		return "", s.internal(ctx, "voucher lookup", err)
	}
	url, err := s.store.PresignGet(ctx, v.ImageReference, ArtifactURLTTL)
	if err != nil {
		return "", s.internal(ctx, "voucher presign", err)
	}
	return url, nil
}
