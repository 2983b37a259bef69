// Package grpc exposes the authentication and voucher services as the
// paydesk.PayDeskService gRPC service with JSON payloads.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/paydesk/internal/logging"
	"github.com/dmitrijs2005/paydesk/internal/server/auth"
	"github.com/dmitrijs2005/paydesk/internal/server/models"
	"github.com/dmitrijs2005/paydesk/internal/server/services"
	"google.golang.org/grpc"
)

// AuthAPI is the part of services.AuthService served over gRPC.
type AuthAPI interface {
	Login(ctx context.Context, email, pw string, client models.ClientContext) (*services.LoginResult, error)
	Register(ctx context.Context, in services.RegisterInput, client models.ClientContext) (string, error)
	Logout(ctx context.Context, userID, refreshToken string, client models.ClientContext) error
	RecoverPassword(ctx context.Context, email string, client models.ClientContext) string
	ResetPassword(ctx context.Context, in services.ResetPasswordInput, client models.ClientContext) error
	Refresh(ctx context.Context, refreshToken string, client models.ClientContext) (*auth.TokenPair, error)
	VerifyEmail(ctx context.Context, token string, client models.ClientContext) error
	UnlockAccount(ctx context.Context, actorID, userID string, client models.ClientContext) error
}

// VoucherAPI is the part of services.VoucherService served over gRPC.
type VoucherAPI interface {
	Validate(ctx context.Context, c *services.VoucherCandidate) (*services.ValidationResult, error)
	Create(ctx context.Context, c *services.VoucherCandidate, client models.ClientContext) (*models.PaymentVoucher, error)
	Approve(ctx context.Context, id, approverID string, notes *string, client models.ClientContext) (*models.PaymentVoucher, error)
	Reject(ctx context.Context, id, approverID, reason string, client models.ClientContext) (*models.PaymentVoucher, error)
	ListPending(ctx context.Context) ([]*models.PaymentVoucher, error)
	ArtifactURL(ctx context.Context, id string) (string, error)
}

// TokenVerifier checks access tokens for the interceptor.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

// MaxMessageSize bounds a single request or response. It fits a 5 MiB
// artifact after base64 expansion plus the JSON envelope.
const MaxMessageSize = 8 << 20

type GRPCServer struct {
	address  string
	auth     AuthAPI
	vouchers VoucherAPI
	tokens   TokenVerifier
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, as AuthAPI, vs VoucherAPI, tv TokenVerifier) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		auth:     as,
		vouchers: vs,
		tokens:   tv,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.MaxRecvMsgSize(MaxMessageSize),
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
	)
	srv.RegisterService(&ServiceDesc, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
