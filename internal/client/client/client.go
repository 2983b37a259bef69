package client

import (
	"context"

	api "github.com/dmitrijs2005/paydesk/internal/server/grpc"
)

// Client is the backend API used by the CLI.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Register(ctx context.Context, req *api.RegisterRequest) (string, error)
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Logout(ctx context.Context) error
	RecoverPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	UnlockAccount(ctx context.Context, userID string) error
	ValidateVoucher(ctx context.Context, req *api.VoucherRequest) (*api.ValidationResponse, error)
	SubmitVoucher(ctx context.Context, req *api.VoucherRequest) (*api.Voucher, error)
	ListPending(ctx context.Context) ([]api.Voucher, error)
	ApproveVoucher(ctx context.Context, id string, notes *string) (*api.Voucher, error)
	RejectVoucher(ctx context.Context, id, reason string) (*api.Voucher, error)
	ArtifactURL(ctx context.Context, id string) (string, error)
}
