package grpc

import (
	"errors"

	"github.com/dmitrijs2005/paydesk/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps a service error to a gRPC status. Unknown errors become a
// generic Internal so nothing leaks to the caller.
func toStatus(err error) error {
	var (
		verr   *common.ValidationError
		locked *common.AccountLockedError
	)
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.As(err, &locked):
		return status.Error(codes.Unauthenticated, locked.Error())
	case errors.Is(err, common.ErrUserNotFound):
		return status.Error(codes.Unauthenticated, "user not found")
	case errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, "refresh token expired")
	case errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, common.ErrUserAlreadyExists):
		return status.Error(codes.AlreadyExists, "user already exists")
	case errors.Is(err, common.ErrVoucherNotFound):
		return status.Error(codes.NotFound, "voucher not found")
	case errors.Is(err, common.ErrVoucherAlreadyProcessed):
		return status.Error(codes.FailedPrecondition, "voucher already processed")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
