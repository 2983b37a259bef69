package grpc

import (
	"context"
	"net"
	"strings"

	"github.com/dmitrijs2005/paydesk/internal/common"
	"github.com/dmitrijs2005/paydesk/internal/server/auth"
	"github.com/dmitrijs2005/paydesk/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

// ClaimsKey holds the verified *auth.Claims of the caller.
const ClaimsKey ctxKey = "claims"

var reviewerRoles = []models.Role{models.RoleOfficer, models.RoleAdmin}

// protected lists the methods that need an access token, with the roles
// allowed to call them. An empty list admits any authenticated user.
var protected = map[string][]models.Role{
	FullMethod(MethodLogout):             nil,
	FullMethod(MethodValidateVoucher):    nil,
	FullMethod(MethodCreateVoucher):      nil,
	FullMethod(MethodApproveVoucher):     reviewerRoles,
	FullMethod(MethodRejectVoucher):      reviewerRoles,
	FullMethod(MethodListPending):        reviewerRoles,
	FullMethod(MethodVoucherArtifactURL): reviewerRoles,
	FullMethod(MethodUnlockAccount):      reviewerRoles,
}

func metadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	roles, ok := protected[info.FullMethod]
	if !ok {
		return handler(ctx, req)
	}

	accessToken := metadataValue(ctx, common.AccessTokenHeaderName)
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	if len(roles) > 0 && !hasRole(claims.Role, roles) {
		s.logger.Warn(ctx, "role denied", "method", info.FullMethod, "user_id", claims.UserID, "role", claims.Role)
		return nil, status.Error(codes.PermissionDenied, "forbidden")
	}

	return handler(context.WithValue(ctx, ClaimsKey, claims), req)
}

func hasRole(role string, allowed []models.Role) bool {
	for _, r := range allowed {
		if string(r) == role {
			return true
		}
	}
	return false
}

func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return c, ok
}

// clientContext describes the caller for the audit trail. A forwarded-for
// header wins over the transport peer.
func clientContext(ctx context.Context) models.ClientContext {
	cc := models.ClientContext{UserAgent: metadataValue(ctx, common.UserAgentHeaderName)}

	if fwd := metadataValue(ctx, "x-forwarded-for"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		cc.IPAddress = strings.TrimSpace(first)
		return cc
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr := p.Addr.String()
		if host, _, err := net.SplitHostPort(addr); err == nil {
			addr = host
		}
		cc.IPAddress = addr
	}
	return cc
}
