package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/paydesk/internal/common"
	api "github.com/dmitrijs2005/paydesk/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	api         *api.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func withMetadata(ctx context.Context, key, value string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(key, value)

	return metadata.NewOutgoingContext(ctx, md)
}

func firstValue(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

func (s *GRPCClient) tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken, s.refreshToken = access, refresh
}

// refreshable reports whether a rejected call may be retried after a token
// rotation.
func refreshable(method string) bool {
	switch method {
	case api.FullMethod(api.MethodLogin), api.FullMethod(api.MethodRefresh):
		return false
	}
	return true
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	access, refresh := s.tokens()
	if access != "" {
		ctx = withMetadata(ctx, common.AccessTokenHeaderName, access)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)
	if status.Code(err) != codes.Unauthenticated || refresh == "" || !refreshable(method) {
		return err
	}

	if rerr := s.rotate(ctx, refresh, cc, invoker, opts); rerr != nil {
		return err
	}

	// TOKENS REFRESHED, retrying with the new access token
	access, _ = s.tokens()
	ctx = withMetadata(ctx, common.AccessTokenHeaderName, access)
	return invoker(ctx, method, req, reply, cc, opts...)
}

// rotate exchanges refresh for a new token pair through invoker.
func (s *GRPCClient) rotate(ctx context.Context, refresh string, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts []grpc.CallOption) error {
	var (
		header metadata.MD
		out    api.RefreshResponse
	)
	callOpts := append(append([]grpc.CallOption(nil), opts...), grpc.Header(&header))
	ctx = withMetadata(ctx, common.RefreshTokenHeaderName, refresh)

	if err := invoker(ctx, api.FullMethod(api.MethodRefresh), &api.Empty{}, &out, cc, callOpts...); err != nil {
		return err
	}

	next := firstValue(header, common.RefreshTokenHeaderName)
	if out.AccessToken == "" || next == "" {
		return errors.New("incomplete token refresh response")
	}
	s.setTokens(out.AccessToken, next)
	return nil
}

func NewPayDeskClient(endpointURL string, timeout time.Duration) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {

	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(api.CodecName),
			grpc.MaxCallSendMsgSize(api.MaxMessageSize),
			grpc.MaxCallRecvMsgSize(api.MaxMessageSize),
		),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.api = api.NewClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) call(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.mapError(s.api.Call(ctx, method, in, out, opts...))
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	var resp api.PingResponse
	if err := s.call(ctx, api.MethodPing, &api.Empty{}, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, req *api.RegisterRequest) (string, error) {
	var resp api.RegisterResponse
	if err := s.call(ctx, api.MethodRegister, req, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

func (s *GRPCClient) VerifyEmail(ctx context.Context, token string) error {
	return s.call(ctx, api.MethodVerifyEmail, &api.VerifyEmailRequest{Token: token}, &api.Empty{})
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) (*api.LoginResponse, error) {
	var (
		header metadata.MD
		resp   api.LoginResponse
	)
	if err := s.call(ctx, api.MethodLogin, &api.LoginRequest{Email: email, Password: password}, &resp, grpc.Header(&header)); err != nil {
		return nil, err
	}

	s.setTokens(resp.AccessToken, firstValue(header, common.RefreshTokenHeaderName))
	return &resp, nil
}

// Logout revokes the refresh token on the server and forgets both tokens.
func (s *GRPCClient) Logout(ctx context.Context) error {
	_, refresh := s.tokens()
	if refresh != "" {
		ctx = withMetadata(ctx, common.RefreshTokenHeaderName, refresh)
	}
	err := s.call(ctx, api.MethodLogout, &api.Empty{}, &api.Empty{})
	s.setTokens("", "")
	return err
}

func (s *GRPCClient) RecoverPassword(ctx context.Context, email string) (string, error) {
	var resp api.MessageResponse
	if err := s.call(ctx, api.MethodRecoverPassword, &api.RecoverPasswordRequest{Email: email}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (s *GRPCClient) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	req := &api.ResetPasswordRequest{Email: email, Code: code, NewPassword: newPassword}
	return s.call(ctx, api.MethodResetPassword, req, &api.Empty{})
}

func (s *GRPCClient) UnlockAccount(ctx context.Context, userID string) error {
	return s.call(ctx, api.MethodUnlockAccount, &api.UnlockAccountRequest{UserID: userID}, &api.Empty{})
}

func (s *GRPCClient) ValidateVoucher(ctx context.Context, req *api.VoucherRequest) (*api.ValidationResponse, error) {
	var resp api.ValidationResponse
	if err := s.call(ctx, api.MethodValidateVoucher, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) SubmitVoucher(ctx context.Context, req *api.VoucherRequest) (*api.Voucher, error) {
	var resp api.Voucher
	if err := s.call(ctx, api.MethodCreateVoucher, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) ListPending(ctx context.Context) ([]api.Voucher, error) {
	var resp api.VoucherListResponse
	if err := s.call(ctx, api.MethodListPending, &api.Empty{}, &resp); err != nil {
		return nil, err
	}
	return resp.Vouchers, nil
}

func (s *GRPCClient) ApproveVoucher(ctx context.Context, id string, notes *string) (*api.Voucher, error) {
	var resp api.Voucher
	if err := s.call(ctx, api.MethodApproveVoucher, &api.ReviewVoucherRequest{ID: id, Notes: notes}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) RejectVoucher(ctx context.Context, id, reason string) (*api.Voucher, error) {
	var resp api.Voucher
	if err := s.call(ctx, api.MethodRejectVoucher, &api.RejectVoucherRequest{ID: id, Reason: reason}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) ArtifactURL(ctx context.Context, id string) (string, error) {
	var resp api.URLResponse
	if err := s.call(ctx, api.MethodVoucherArtifactURL, &api.VoucherIDRequest{ID: id}, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return ErrForbidden
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return errors.New(st.Message())
	}
}
