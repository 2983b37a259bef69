package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dmitrijs2005/paydesk/internal/common"
	api "github.com/dmitrijs2005/paydesk/internal/server/grpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type fakeConn struct {
	method string
	args   any
	md     metadata.MD
	reply  any
	header metadata.MD
	err    error
}

func (f *fakeConn) Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error {
	f.method = method
	f.args = args
	f.md, _ = metadata.FromOutgoingContext(ctx)
	if f.err != nil {
		return f.err
	}
	setHeader(opts, f.header)
	b, err := json.Marshal(f.reply)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, reply)
}

func (f *fakeConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("streams not supported")
}

func setHeader(opts []grpc.CallOption, md metadata.MD) {
	for _, o := range opts {
		if h, ok := o.(grpc.HeaderCallOption); ok {
			*h.HeaderAddr = md
		}
	}
}

func newTestClient(f *fakeConn) *GRPCClient {
	return &GRPCClient{api: api.NewClient(f)}
}

func outgoing(ctx context.Context, key string) string {
	md, _ := metadata.FromOutgoingContext(ctx)
	return firstValue(md, key)
}

func TestInterceptor_AttachesAccessToken(t *testing.T) {
	c := &GRPCClient{accessToken: "acc"}

	var seen string
	err := c.accessTokenInterceptor(context.Background(), api.FullMethod(api.MethodListPending), nil, nil, nil,
		func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			seen = outgoing(ctx, common.AccessTokenHeaderName)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, "acc", seen)
}

func TestInterceptor_RefreshesAndRetries(t *testing.T) {
	c := &GRPCClient{accessToken: "old", refreshToken: "r1"}

	var calls []string
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		calls = append(calls, method)
		if method == api.FullMethod(api.MethodRefresh) {
			assert.Equal(t, "r1", outgoing(ctx, common.RefreshTokenHeaderName))
			setHeader(opts, metadata.Pairs(common.RefreshTokenHeaderName, "r2"))
			reply.(*api.RefreshResponse).AccessToken = "new"
			return nil
		}
		if outgoing(ctx, common.AccessTokenHeaderName) != "new" {
			return status.Error(codes.Unauthenticated, "invalid token")
		}
		return nil
	}

	method := api.FullMethod(api.MethodCreateVoucher)
	err := c.accessTokenInterceptor(context.Background(), method, nil, nil, nil, invoker)
	require.NoError(t, err)
	assert.Equal(t, []string{method, api.FullMethod(api.MethodRefresh), method}, calls)

	access, refresh := c.tokens()
	assert.Equal(t, "new", access)
	assert.Equal(t, "r2", refresh)
}

func TestInterceptor_RefreshFailureReturnsOriginalError(t *testing.T) {
	c := &GRPCClient{accessToken: "old", refreshToken: "r1"}

	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		if method == api.FullMethod(api.MethodRefresh) {
			return status.Error(codes.Unauthenticated, "refresh token expired")
		}
		return status.Error(codes.Unauthenticated, "invalid token")
	}

	err := c.accessTokenInterceptor(context.Background(), api.FullMethod(api.MethodLogout), nil, nil, nil, invoker)
	assert.Equal(t, "invalid token", status.Convert(err).Message())

	access, refresh := c.tokens()
	assert.Equal(t, "old", access)
	assert.Equal(t, "r1", refresh)
}

func TestInterceptor_LoginIsNotRetried(t *testing.T) {
	c := &GRPCClient{refreshToken: "r1"}

	calls := 0
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		calls++
		return status.Error(codes.Unauthenticated, "invalid credentials")
	}

	err := c.accessTokenInterceptor(context.Background(), api.FullMethod(api.MethodLogin), nil, nil, nil, invoker)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestLogin_StoresTokens(t *testing.T) {
	f := &fakeConn{
		reply:  api.LoginResponse{AccessToken: "acc"},
		header: metadata.Pairs(common.RefreshTokenHeaderName, "ref"),
	}
	c := newTestClient(f)

	resp, err := c.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "acc", resp.AccessToken)
	assert.Equal(t, api.FullMethod(api.MethodLogin), f.method)

	access, refresh := c.tokens()
	assert.Equal(t, "acc", access)
	assert.Equal(t, "ref", refresh)
}

func TestLogout_SendsRefreshTokenAndForgets(t *testing.T) {
	f := &fakeConn{reply: api.Empty{}}
	c := newTestClient(f)
	c.setTokens("acc", "ref")

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, "ref", firstValue(f.md, common.RefreshTokenHeaderName))

	access, refresh := c.tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestLogout_ForgetsTokensOnError(t *testing.T) {
	f := &fakeConn{err: status.Error(codes.Internal, "internal error")}
	c := newTestClient(f)
	c.setTokens("acc", "ref")

	assert.Error(t, c.Logout(context.Background()))
	access, _ := c.tokens()
	assert.Empty(t, access)
}

func TestApproveVoucher(t *testing.T) {
	f := &fakeConn{reply: api.Voucher{ID: "v1", Status: "VALIDATED"}}
	c := newTestClient(f)

	notes := "ok"
	v, err := c.ApproveVoucher(context.Background(), "v1", &notes)
	require.NoError(t, err)
	assert.Equal(t, "VALIDATED", v.Status)
	assert.Equal(t, &api.ReviewVoucherRequest{ID: "v1", Notes: &notes}, f.args)
}

func TestListPending(t *testing.T) {
	f := &fakeConn{reply: api.VoucherListResponse{Vouchers: []api.Voucher{{ID: "v1"}, {ID: "v2"}}}}

	got, err := newTestClient(f).ListPending(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, api.FullMethod(api.MethodListPending), f.method)
}

func TestPing_NotOK(t *testing.T) {
	f := &fakeConn{reply: api.PingResponse{Status: "DEGRADED"}}
	assert.ErrorIs(t, newTestClient(f).Ping(context.Background()), ErrUnavailable)
}

func TestMapError(t *testing.T) {
	c := &GRPCClient{}

	assert.NoError(t, c.mapError(nil))

	err := c.mapError(status.Error(codes.Unauthenticated, "account is blocked"))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "account is blocked")

	assert.ErrorIs(t, c.mapError(status.Error(codes.PermissionDenied, "forbidden")), ErrForbidden)
	assert.ErrorIs(t, c.mapError(status.Error(codes.Unavailable, "down")), ErrUnavailable)
	assert.ErrorIs(t, c.mapError(status.Error(codes.DeadlineExceeded, "slow")), ErrUnavailable)
	assert.EqualError(t, c.mapError(status.Error(codes.FailedPrecondition, "voucher already processed")), "voucher already processed")

	plain := errors.New("boom")
	assert.ErrorIs(t, c.mapError(plain), plain)
}

func TestWithMetadata_KeepsExisting(t *testing.T) {
	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-trace", "1")
	ctx = withMetadata(ctx, common.AccessTokenHeaderName, "a")
	ctx = withMetadata(ctx, common.AccessTokenHeaderName, "b")

	md, _ := metadata.FromOutgoingContext(ctx)
	assert.Equal(t, []string{"1"}, md.Get("x-trace"))
	assert.Equal(t, []string{"b"}, md.Get(common.AccessTokenHeaderName))
}
