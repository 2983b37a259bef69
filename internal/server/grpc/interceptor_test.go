package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/paydesk/internal/common"
	"github.com/dmitrijs2005/paydesk/internal/logging"
	"github.com/dmitrijs2005/paydesk/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func newTestServer() *GRPCServer {
	return NewGRPCServer("", logging.Nop{}, nil, nil, auth.NewTokenService([]byte("secret"), time.Minute, time.Hour, nil))
}

func TestInterceptor_PublicMethodNeedsNoToken(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodLogin)}

	called := false
	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", resp)
}

func TestInterceptor_SetsClaims(t *testing.T) {
	s := newTestServer()
	pair, err := s.tokens.(*auth.TokenService).GenerateTokens("user-123", "a@b.c", "USER")
	require.NoError(t, err)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, pair.AccessToken))
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodCreateVoucher)}

	var got *auth.Claims
	_, err = s.accessTokenInterceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		got, _ = claimsFrom(ctx)
		return nil, nil
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "user-123", got.UserID)
}

func TestInterceptor_ProtectedWithoutToken(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodApproveVoucher)}

	_, err := s.accessTokenInterceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestClientContext_PeerAddress(t *testing.T) {
	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("192.0.2.4"), Port: 5555}})
	ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(common.UserAgentHeaderName, "cli/1.0"))

	cc := clientContext(ctx)
	assert.Equal(t, "192.0.2.4", cc.IPAddress)
	assert.Equal(t, "cli/1.0", cc.UserAgent)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{common.NewValidationError("bad"), codes.InvalidArgument},
		{&common.AccountLockedError{}, codes.Unauthenticated},
		{common.ErrUserNotFound, codes.Unauthenticated},
		{common.ErrInvalidCredentials, codes.Unauthenticated},
		{auth.ErrTokenExpired, codes.Unauthenticated},
		{common.ErrRefreshTokenExpired, codes.Unauthenticated},
		{common.ErrUserAlreadyExists, codes.AlreadyExists},
		{fmt.Errorf("wrap: %w", common.ErrVoucherNotFound), codes.NotFound},
		{common.ErrVoucherAlreadyProcessed, codes.FailedPrecondition},
		{common.ErrorInternal, codes.Internal},
		{errors.New("pq: connection refused"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(toStatus(tt.err)))
		})
	}

	assert.Equal(t, "internal error", status.Convert(toStatus(errors.New("secret detail"))).Message())
}
