package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	api "github.com/dmitrijs2005/paydesk/internal/server/grpc"
)

// getSimpleText, getPassword, getMultiline and readFile are indirections used
// to facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getMultiline = GetMultiline
var readFile = os.ReadFile

const dateLayout = "2006-01-02"

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, os.Stdout)
}

// askOptional returns nil for an empty answer.
func (a *App) askOptional(prompt string) (*string, error) {
	s, err := a.ask(prompt + " (optional)")
	if err != nil || s == "" {
		return nil, err
	}
	return &s, nil
}

func (a *App) askPassword() (string, error) {
	pw, err := getPassword(os.Stdout)
	if err != nil {
		return "", err
	}
	defer clear(pw)
	return string(pw), nil
}

// Register prompts for the account details and creates a USER account.
func (a *App) Register(ctx context.Context) error {
	req := &api.RegisterRequest{}
	var err error

	if req.Email, err = a.ask("Enter email"); err != nil {
		return err
	}
	if req.Name, err = a.ask("Enter full name"); err != nil {
		return err
	}
	if req.NationalID, err = a.ask("Enter national ID (optional)"); err != nil {
		return err
	}
	if req.Phone, err = a.ask("Enter phone (optional)"); err != nil {
		return err
	}
	if req.Password, err = a.askPassword(); err != nil {
		return err
	}

	id, err := a.api.Register(ctx, req)
	if err != nil {
		return err
	}

	printlnFn("Registered, user id:", id)
	printlnFn("Check your inbox for the verification link")
	return nil
}

func (a *App) VerifyEmail(ctx context.Context) error {
	token, err := a.ask("Enter verification token")
	if err != nil {
		return err
	}
	if err := a.api.VerifyEmail(ctx, token); err != nil {
		return err
	}
	printlnFn("Email verified")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	password, err := a.askPassword()
	if err != nil {
		return err
	}

	resp, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	a.userName = resp.User.Email
	a.role = string(resp.User.Role)
	printlnFn("Welcome,", resp.User.Name)
	return nil
}

// Logout revokes the session on the server. Local state is cleared even when
// the server call fails.
func (a *App) Logout(ctx context.Context) error {
	err := a.api.Logout(ctx)
	a.userName, a.role = "", ""
	return err
}

func (a *App) RecoverPassword(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	msg, err := a.api.RecoverPassword(ctx, email)
	if err != nil {
		return err
	}
	printlnFn(msg)
	return nil
}

func (a *App) ResetPassword(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	code, err := a.ask("Enter the code from the email")
	if err != nil {
		return err
	}
	password, err := a.askPassword()
	if err != nil {
		return err
	}

	if err := a.api.ResetPassword(ctx, email, code, password); err != nil {
		return err
	}
	printlnFn("Password changed, please log in again")
	return nil
}

// readVoucher collects a voucher submission. An artifact path is optional;
// its content type is sniffed from the file contents.
func (a *App) readVoucher() (*api.VoucherRequest, error) {
	req := &api.VoucherRequest{}
	var err error

	if req.CreditID, err = a.ask("Enter credit ID"); err != nil {
		return nil, err
	}
	if req.VoucherNumber, err = a.ask("Enter voucher number"); err != nil {
		return nil, err
	}

	amount, err := a.ask("Enter amount")
	if err != nil {
		return nil, err
	}
	if req.Amount, err = strconv.ParseFloat(amount, 64); err != nil {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}

	date, err := a.ask("Enter payment date (YYYY-MM-DD)")
	if err != nil {
		return nil, err
	}
	if req.PaymentDate, err = time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid payment date %q", date)
	}

	if req.VoucherType, err = a.ask("Enter voucher type (transfer, deposit, cash, check, other)"); err != nil {
		return nil, err
	}
	if req.BankName, err = a.askOptional("Enter bank name"); err != nil {
		return nil, err
	}
	if req.AccountNumber, err = a.askOptional("Enter account number"); err != nil {
		return nil, err
	}
	if req.PayerName, err = a.askOptional("Enter payer name"); err != nil {
		return nil, err
	}
	if req.BeneficiaryName, err = a.askOptional("Enter beneficiary name"); err != nil {
		return nil, err
	}

	path, err := a.ask("Enter artifact file path (optional)")
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := readFile(path)
		if err != nil {
			return nil, err
		}
		req.Artifact = data
		req.ArtifactContentType = http.DetectContentType(data)
	}

	return req, nil
}

func printValidation(r *api.ValidationResponse) {
	if r.Valid {
		printlnFn("Voucher is valid")
	} else {
		printlnFn("Voucher is invalid")
	}
	for _, e := range r.Errors {
		printlnFn("  error:", e)
	}
	for _, w := range r.Warnings {
		printlnFn("  warning:", w)
	}
	if r.IsDuplicate {
		printlnFn("  duplicate of", r.DuplicateID)
	}
}

func (a *App) Validate(ctx context.Context) error {
	req, err := a.readVoucher()
	if err != nil {
		return err
	}
	resp, err := a.api.ValidateVoucher(ctx, req)
	if err != nil {
		return err
	}
	printValidation(resp)
	return nil
}

func (a *App) Submit(ctx context.Context) error {
	req, err := a.readVoucher()
	if err != nil {
		return err
	}
	v, err := a.api.SubmitVoucher(ctx, req)
	if err != nil {
		return err
	}
	printlnFn("Voucher submitted:", v.ID, v.Status)
	return nil
}

func formatVoucher(v api.Voucher) string {
	return fmt.Sprintf("%s  %-12s %12.2f  %s  %-8s %s",
		v.ID, v.VoucherNumber, v.Amount, v.PaymentDate.Format(dateLayout), v.VoucherType, v.Status)
}

func (a *App) Pending(ctx context.Context) error {
	items, err := a.api.ListPending(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		printlnFn("No pending vouchers")
		return nil
	}
	for _, v := range items {
		printlnFn(formatVoucher(v))
	}
	return nil
}

func (a *App) Approve(ctx context.Context) error {
	id, err := a.ask("Enter voucher ID")
	if err != nil {
		return err
	}
	notes, err := getMultiline(a.reader, "Enter notes (optional)", os.Stdout)
	if err != nil {
		return err
	}

	var np *string
	if notes != "" {
		np = &notes
	}
	v, err := a.api.ApproveVoucher(ctx, id, np)
	if err != nil {
		return err
	}
	printlnFn("Voucher", v.ID, "is now", v.Status)
	return nil
}

func (a *App) Reject(ctx context.Context) error {
	id, err := a.ask("Enter voucher ID")
	if err != nil {
		return err
	}
	reason, err := getMultiline(a.reader, "Enter rejection reason", os.Stdout)
	if err != nil {
		return err
	}

	v, err := a.api.RejectVoucher(ctx, id, reason)
	if err != nil {
		return err
	}
	printlnFn("Voucher", v.ID, "is now", v.Status)
	return nil
}

func (a *App) ArtifactURL(ctx context.Context) error {
	id, err := a.ask("Enter voucher ID")
	if err != nil {
		return err
	}
	url, err := a.api.ArtifactURL(ctx, id)
	if err != nil {
		return err
	}
	printlnFn(url)
	return nil
}

func (a *App) Unlock(ctx context.Context) error {
	id, err := a.ask("Enter user ID")
	if err != nil {
		return err
	}
	if err := a.api.UnlockAccount(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	printlnFn("Account unlocked")
	return nil
}
