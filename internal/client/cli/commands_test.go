package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dmitrijs2005/paydesk/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/dmitrijs2005/paydesk/internal/server/grpc"
)

type fakeClient struct {
	registered *api.RegisterRequest
	loginEmail string
	loginPass  string
	loginErr   error
	loggedOut  bool
	logoutErr  error
	reset      [3]string
	submitted  *api.VoucherRequest
	validation *api.ValidationResponse
	approvedID string
	notes      *string
	rejected   [2]string
	unlocked   string
	pending    []api.Voucher
}

func (f *fakeClient) Close() error               { return nil }
func (f *fakeClient) Ping(context.Context) error { return nil }
func (f *fakeClient) VerifyEmail(context.Context, string) error {
	return nil
}
func (f *fakeClient) Register(_ context.Context, req *api.RegisterRequest) (string, error) {
	f.registered = req
	return "user-1", nil
}
func (f *fakeClient) Login(_ context.Context, email, password string) (*api.LoginResponse, error) {
	f.loginEmail, f.loginPass = email, password
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &api.LoginResponse{AccessToken: "acc", User: models.Summary{Email: email, Name: "Ann", Role: models.RoleOfficer}}, nil
}
func (f *fakeClient) Logout(context.Context) error {
	f.loggedOut = true
	return f.logoutErr
}
func (f *fakeClient) RecoverPassword(context.Context, string) (string, error) {
	return "If the email exists, a code has been sent", nil
}
func (f *fakeClient) ResetPassword(_ context.Context, email, code, pw string) error {
	f.reset = [3]string{email, code, pw}
	return nil
}
func (f *fakeClient) UnlockAccount(_ context.Context, id string) error {
	f.unlocked = id
	return nil
}
func (f *fakeClient) ValidateVoucher(_ context.Context, req *api.VoucherRequest) (*api.ValidationResponse, error) {
	f.submitted = req
	return f.validation, nil
}
func (f *fakeClient) SubmitVoucher(_ context.Context, req *api.VoucherRequest) (*api.Voucher, error) {
	f.submitted = req
	return &api.Voucher{ID: "v1", Status: "PENDING"}, nil
}
func (f *fakeClient) ListPending(context.Context) ([]api.Voucher, error) {
	return f.pending, nil
}
func (f *fakeClient) ApproveVoucher(_ context.Context, id string, notes *string) (*api.Voucher, error) {
	f.approvedID, f.notes = id, notes
	return &api.Voucher{ID: id, Status: "VALIDATED"}, nil
}
func (f *fakeClient) RejectVoucher(_ context.Context, id, reason string) (*api.Voucher, error) {
	f.rejected = [2]string{id, reason}
	return &api.Voucher{ID: id, Status: "REJECTED"}, nil
}
func (f *fakeClient) ArtifactURL(_ context.Context, id string) (string, error) {
	return "https://s3.local/" + id, nil
}

// stubInputs feeds answers to getSimpleText in order and returns password for
// every password prompt.
func stubInputs(t *testing.T, password string, answers ...string) {
	t.Helper()
	origST, origGP, origML := getSimpleText, getPassword, getMultiline
	next := func() string {
		require.NotEmpty(t, answers, "unexpected prompt")
		a := answers[0]
		answers = answers[1:]
		return a
	}
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return next(), nil }
	getMultiline = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return next(), nil }
	getPassword = func(_ io.Writer) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() {
		getSimpleText, getPassword, getMultiline = origST, origGP, origML
	})
}

func newTestApp(t *testing.T) (*App, *fakeClient) {
	captureOutput(t)
	f := &fakeClient{}
	return &App{api: f}, f
}

func TestRegister(t *testing.T) {
	a, f := newTestApp(t)
	stubInputs(t, "Abc123!@", "ann@example.org", "Ann Lee", "", "+1 555")

	require.NoError(t, a.Register(context.Background()))
	assert.Equal(t, &api.RegisterRequest{
		Email:    "ann@example.org",
		Password: "Abc123!@",
		Name:     "Ann Lee",
		Phone:    "+1 555",
	}, f.registered)
}

func TestLoginAndLogout(t *testing.T) {
	a, f := newTestApp(t)
	stubInputs(t, "secret", "ann@example.org")

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "secret", f.loginPass)
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, "(ann@example.org OFFICER)", a.getStatus())

	f.logoutErr = errors.New("unavailable")
	assert.Error(t, a.Logout(context.Background()))
	assert.True(t, f.loggedOut)
	assert.False(t, a.isLoggedIn())
}

func TestLogin_Failure(t *testing.T) {
	a, f := newTestApp(t)
	f.loginErr = errors.New("unauthorized: account is blocked")
	stubInputs(t, "secret", "ann@example.org")

	assert.Error(t, a.Login(context.Background()))
	assert.False(t, a.isLoggedIn())
}

func TestResetPassword(t *testing.T) {
	a, f := newTestApp(t)
	stubInputs(t, "NewPass1!", "ann@example.org", "123456")

	require.NoError(t, a.ResetPassword(context.Background()))
	assert.Equal(t, [3]string{"ann@example.org", "123456", "NewPass1!"}, f.reset)
}

func TestSubmit_WithArtifact(t *testing.T) {
	a, f := newTestApp(t)

	origRead := readFile
	readFile = func(string) ([]byte, error) { return []byte("%PDF-1.7\n..."), nil }
	t.Cleanup(func() { readFile = origRead })

	stubInputs(t, "", "credit-1", "V-100", "150.50", "2025-06-01", "transfer", "First Bank", "", "", "", "/tmp/v.pdf")

	require.NoError(t, a.Submit(context.Background()))
	req := f.submitted
	require.NotNil(t, req)
	assert.Equal(t, "credit-1", req.CreditID)
	assert.Equal(t, 150.50, req.Amount)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), req.PaymentDate)
	require.NotNil(t, req.BankName)
	assert.Equal(t, "First Bank", *req.BankName)
	assert.Nil(t, req.AccountNumber)
	assert.Equal(t, "application/pdf", req.ArtifactContentType)
}

func TestSubmit_BadAmount(t *testing.T) {
	a, f := newTestApp(t)
	stubInputs(t, "", "credit-1", "V-100", "lots")

	assert.EqualError(t, a.Submit(context.Background()), `invalid amount "lots"`)
	assert.Nil(t, f.submitted)
}

func TestSubmit_BadDate(t *testing.T) {
	a, _ := newTestApp(t)
	stubInputs(t, "", "credit-1", "V-100", "10", "01/06/2025")

	assert.EqualError(t, a.Submit(context.Background()), `invalid payment date "01/06/2025"`)
}

func TestValidate_PrintsFindings(t *testing.T) {
	out := captureOutput(t)
	f := &fakeClient{validation: &api.ValidationResponse{
		Valid:       false,
		Errors:      []string{"amount must be positive"},
		Warnings:    []string{"payment date is older than 90 days"},
		IsDuplicate: true,
		DuplicateID: "v0",
	}}
	a := &App{api: f}
	stubInputs(t, "", "credit-1", "V-100", "0", "2025-01-01", "cash", "", "", "", "", "")

	require.NoError(t, a.Validate(context.Background()))
	assert.Equal(t, []string{
		"Voucher is invalid",
		"error: amount must be positive",
		"warning: payment date is older than 90 days",
		"duplicate of v0",
	}, *out)
	assert.Empty(t, f.submitted.Artifact)
}

func TestApprove_EmptyNotesSendsNil(t *testing.T) {
	a, f := newTestApp(t)
	stubInputs(t, "", "v1", "")

	require.NoError(t, a.Approve(context.Background()))
	assert.Equal(t, "v1", f.approvedID)
	assert.Nil(t, f.notes)
}

func TestReject(t *testing.T) {
	a, f := newTestApp(t)
	stubInputs(t, "", "v1", "amount mismatch")

	require.NoError(t, a.Reject(context.Background()))
	assert.Equal(t, [2]string{"v1", "amount mismatch"}, f.rejected)
}

func TestPending_Empty(t *testing.T) {
	out := captureOutput(t)
	a := &App{api: &fakeClient{}}

	require.NoError(t, a.Pending(context.Background()))
	assert.Equal(t, []string{"No pending vouchers"}, *out)
}

func TestUnlock(t *testing.T) {
	a, f := newTestApp(t)
	stubInputs(t, "", " user-9 ")

	require.NoError(t, a.Unlock(context.Background()))
	assert.Equal(t, "user-9", f.unlocked)
}

func TestPending_Lists(t *testing.T) {
	out := captureOutput(t)
	a := &App{api: &fakeClient{pending: []api.Voucher{
		{ID: "v1", VoucherNumber: "V-1", Amount: 10, PaymentDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), VoucherType: "cash", Status: "PENDING"},
		{ID: "v2", VoucherNumber: "V-2", Amount: 20, VoucherType: "check", Status: "PENDING"},
	}}}

	require.NoError(t, a.Pending(context.Background()))
	require.Len(t, *out, 2)
	assert.Contains(t, (*out)[0], "v1")
	assert.Contains(t, (*out)[0], "2025-06-01")
}
