package services

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/paydesk/internal/common"
	"github.com/dmitrijs2005/paydesk/internal/dbx"
	"github.com/dmitrijs2005/paydesk/internal/server/models"
	"github.com/dmitrijs2005/paydesk/internal/server/repositories/auditlogs"
	refreshtokensrepo "github.com/dmitrijs2005/paydesk/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/paydesk/internal/server/repositories/users"
	vouchersrepo "github.com/dmitrijs2005/paydesk/internal/server/repositories/vouchers"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func strPtr(s string) *string { return &s }

// plainHasher keeps tests fast; bcrypt is covered in the password package.
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "h:" + pw, nil }
func (plainHasher) Verify(hash, pw string) bool   { return hash == "h:"+pw }

// --- users ---

type fakeUsersRepo struct {
	mu        sync.Mutex
	byID      map[string]models.User
	findErr   error
	updateErr error
	createErr error
	updates   int
}

func newFakeUsers(users ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byID: map[string]models.User{}}
	for _, u := range users {
		if u.Version == 0 {
			u.Version = 1
		}
		r.byID[u.ID] = *u
	}
	return r
}

func (r *fakeUsersRepo) get(id string) models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id]
}

func (r *fakeUsersRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	u.Version = 1
	r.byID[u.ID] = *u
	return nil
}

func (r *fakeUsersRepo) Update(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	cur, ok := r.byID[u.ID]
	if !ok || cur.Version != u.Version {
		return common.ErrVersionConflict
	}
	u.Version++
	r.byID[u.ID] = *u
	r.updates++
	return nil
}

func (r *fakeUsersRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *fakeUsersRepo) findBy(match func(models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if match(u) {
			c := u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	return r.findBy(func(u models.User) bool { return u.ID == id })
}

func (r *fakeUsersRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = common.NormalizeEmail(email)
	return r.findBy(func(u models.User) bool { return u.Email == email })
}

func (r *fakeUsersRepo) FindByVerificationToken(_ context.Context, token string) (*models.User, error) {
	return r.findBy(func(u models.User) bool { return u.VerificationToken != nil && *u.VerificationToken == token })
}

func (r *fakeUsersRepo) FindAll(context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.byID {
		c := u
		out = append(out, &c)
	}
	return out, nil
}

func (r *fakeUsersRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(context.Background(), email)
	if err == common.ErrorNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *fakeUsersRepo) ExistsByNationalID(_ context.Context, id string) (bool, error) {
	_, err := r.findBy(func(u models.User) bool { return u.NationalID != nil && *u.NationalID == id })
	if err == common.ErrorNotFound {
		return false, nil
	}
	return err == nil, err
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	mu        sync.Mutex
	byToken   map[string]models.RefreshToken
	findErr   error
	deleteErr error
}

func newFakeRefresh() *fakeRefreshRepo {
	return &fakeRefreshRepo{byToken: map[string]models.RefreshToken{}}
}

func (r *fakeRefreshRepo) Create(_ context.Context, t *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byToken[t.Token] = *t
	return nil
}

func (r *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	t, ok := r.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.byToken, token)
	return nil
}

func (r *fakeRefreshRepo) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.byToken {
		if t.UserID == userID {
			delete(r.byToken, k)
			n++
		}
	}
	return n, nil
}

func (r *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.byToken {
		if !t.ExpiresAt.After(now) {
			delete(r.byToken, k)
			n++
		}
	}
	return n, nil
}

func (r *fakeRefreshRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byToken)
}

// --- audit ---

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	err     error
}

func (r *fakeAuditRepo) Create(_ context.Context, e *models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeAuditRepo) all() []models.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditEntry(nil), r.entries...)
}

func (r *fakeAuditRepo) last() models.AuditEntry {
	all := r.all()
	return all[len(all)-1]
}

// --- vouchers ---

type fakeVoucherRepo struct {
	mu        sync.Mutex
	byID      map[string]models.PaymentVoucher
	lookups   int
	createErr error
	findErr   error
}

func newFakeVouchers() *fakeVoucherRepo {
	return &fakeVoucherRepo{byID: map[string]models.PaymentVoucher{}}
}

func (r *fakeVoucherRepo) Create(_ context.Context, v *models.PaymentVoucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.byID[v.ID] = *v
	return nil
}

func (r *fakeVoucherRepo) find(match func(models.PaymentVoucher) bool) (*models.PaymentVoucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.byID {
		if match(v) {
			c := v
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeVoucherRepo) FindByID(_ context.Context, id string) (*models.PaymentVoucher, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.find(func(v models.PaymentVoucher) bool { return v.ID == id })
}

func (r *fakeVoucherRepo) FindByVoucherNumber(_ context.Context, n string) (*models.PaymentVoucher, error) {
	r.mu.Lock()
	r.lookups++
	r.mu.Unlock()
	return r.find(func(v models.PaymentVoucher) bool { return v.VoucherNumber == n })
}

func (r *fakeVoucherRepo) FindByImageFingerprint(_ context.Context, f string) (*models.PaymentVoucher, error) {
	r.mu.Lock()
	r.lookups++
	r.mu.Unlock()
	return r.find(func(v models.PaymentVoucher) bool { return v.ImageFingerprint == f })
}

func (r *fakeVoucherRepo) FindPending(context.Context) ([]*models.PaymentVoucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PaymentVoucher
	for _, v := range r.byID {
		if v.Status == models.VoucherPending {
			c := v
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeVoucherRepo) Update(_ context.Context, v *models.PaymentVoucher, expected models.VoucherStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[v.ID]
	if !ok || cur.Status != expected {
		return common.ErrVoucherAlreadyProcessed
	}
	r.byID[v.ID] = *v
	return nil
}

func (r *fakeVoucherRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	a *fakeAuditRepo
	v *fakeVoucherRepo
}

func newFakeManager(users ...*models.User) *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsers(users...), r: newFakeRefresh(), a: &fakeAuditRepo{}, v: newFakeVouchers()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) AuditLogs(dbx.DBTX) auditlogs.Repository { return m.a }
func (m *fakeRepoManager) Vouchers(dbx.DBTX) vouchersrepo.Repository { return m.v }

// --- email ---

type sentEmail struct {
	kind, to, payload string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeSender) record(kind, to, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{kind, to, payload})
	return f.err
}

func (f *fakeSender) SendVerificationEmail(_ context.Context, to, _, token string) error {
	return f.record("verification", to, token)
}

func (f *fakeSender) SendPasswordResetEmail(_ context.Context, to, _, code string) error {
	return f.record("reset", to, code)
}

func (f *fakeSender) SendWelcomeEmail(_ context.Context, to, _ string) error {
	return f.record("welcome", to, "")
}

func (f *fakeSender) SendAccountBlockedEmail(_ context.Context, to, _ string, until time.Time) error {
	return f.record("blocked", to, until.Format(time.RFC3339))
}

func (f *fakeSender) ofKind(kind string) []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEmail
	for _, e := range f.sent {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// --- artifacts ---

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (s *fakeStore) Put(_ context.Context, key, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://s3.local/" + key + "?ttl=" + strings.TrimSuffix(ttl.String(), "0s"), nil
}
