package grpc

import (
	"context"

	"github.com/dmitrijs2005/paydesk/internal/common"
	"github.com/dmitrijs2005/paydesk/internal/server/models"
	"github.com/dmitrijs2005/paydesk/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var errUnauthenticated = status.Error(codes.Unauthenticated, "unauthenticated")

func (s *GRPCServer) Ping(ctx context.Context, _ *Empty) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	id, err := s.auth.Register(ctx, services.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		NationalID: req.NationalID,
		Phone:      req.Phone,
	}, clientContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Registered", "user_id", id)
	return &RegisterResponse{UserID: id}, nil
}

func (s *GRPCServer) VerifyEmail(ctx context.Context, req *VerifyEmailRequest) (*Empty, error) {
	if err := s.auth.VerifyEmail(ctx, req.Token, clientContext(ctx)); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	res, err := s.auth.Login(ctx, req.Email, req.Password, clientContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}

	if err := grpc.SetHeader(ctx, metadata.Pairs(common.RefreshTokenHeaderName, res.RefreshToken)); err != nil {
		s.logger.Error(ctx, "refresh token header not set", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &LoginResponse{AccessToken: res.AccessToken, User: res.User}, nil
}

func (s *GRPCServer) Refresh(ctx context.Context, _ *Empty) (*RefreshResponse, error) {
	token := metadataValue(ctx, common.RefreshTokenHeaderName)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing refresh token")
	}

	pair, err := s.auth.Refresh(ctx, token, clientContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}

	if err := grpc.SetHeader(ctx, metadata.Pairs(common.RefreshTokenHeaderName, pair.RefreshToken)); err != nil {
		s.logger.Error(ctx, "refresh token header not set", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &RefreshResponse{AccessToken: pair.AccessToken}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *Empty) (*Empty, error) {
	claims, ok := claimsFrom(ctx)
	if !ok {
		return nil, errUnauthenticated
	}

	token := metadataValue(ctx, common.RefreshTokenHeaderName)
	if err := s.auth.Logout(ctx, claims.UserID, token, clientContext(ctx)); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) RecoverPassword(ctx context.Context, req *RecoverPasswordRequest) (*MessageResponse, error) {
	return &MessageResponse{Message: s.auth.RecoverPassword(ctx, req.Email, clientContext(ctx))}, nil
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*Empty, error) {
	err := s.auth.ResetPassword(ctx, services.ResetPasswordInput{
		Email:       req.Email,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	}, clientContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) UnlockAccount(ctx context.Context, req *UnlockAccountRequest) (*Empty, error) {
	claims, ok := claimsFrom(ctx)
	if !ok {
		return nil, errUnauthenticated
	}
	if err := s.auth.UnlockAccount(ctx, claims.UserID, req.UserID, clientContext(ctx)); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func candidateFromRequest(userID string, req *VoucherRequest) *services.VoucherCandidate {
	c := &services.VoucherCandidate{
		UserID:          userID,
		CreditID:        req.CreditID,
		VoucherNumber:   req.VoucherNumber,
		Amount:          req.Amount,
		PaymentDate:     req.PaymentDate,
		VoucherType:     models.VoucherType(req.VoucherType),
		BankName:        req.BankName,
		AccountNumber:   req.AccountNumber,
		PayerName:       req.PayerName,
		BeneficiaryName: req.BeneficiaryName,
	}
	if len(req.Artifact) > 0 {
		c.Artifact = &services.Artifact{ContentType: req.ArtifactContentType, Data: req.Artifact}
	}
	return c
}

func (s *GRPCServer) ValidateVoucher(ctx context.Context, req *VoucherRequest) (*ValidationResponse, error) {
	claims, ok := claimsFrom(ctx)
	if !ok {
		return nil, errUnauthenticated
	}

	res, err := s.vouchers.Validate(ctx, candidateFromRequest(claims.UserID, req))
	if err != nil {
		s.logger.Error(ctx, "voucher validation failed", "error", err)
		return nil, toStatus(err)
	}
	return &ValidationResponse{
		Valid:       res.Valid,
		Errors:      res.Errors,
		Warnings:    res.Warnings,
		IsDuplicate: res.IsDuplicate,
		DuplicateID: res.DuplicateID,
	}, nil
}

func (s *GRPCServer) CreateVoucher(ctx context.Context, req *VoucherRequest) (*Voucher, error) {
	claims, ok := claimsFrom(ctx)
	if !ok {
		return nil, errUnauthenticated
	}

	v, err := s.vouchers.Create(ctx, candidateFromRequest(claims.UserID, req), clientContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	out := voucherFromModel(v)
	return &out, nil
}

func (s *GRPCServer) ApproveVoucher(ctx context.Context, req *ReviewVoucherRequest) (*Voucher, error) {
	claims, ok := claimsFrom(ctx)
	if !ok {
		return nil, errUnauthenticated
	}

	v, err := s.vouchers.Approve(ctx, req.ID, claims.UserID, req.Notes, clientContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	out := voucherFromModel(v)
	return &out, nil
}

func (s *GRPCServer) RejectVoucher(ctx context.Context, req *RejectVoucherRequest) (*Voucher, error) {
	claims, ok := claimsFrom(ctx)
	if !ok {
		return nil, errUnauthenticated
	}

	v, err := s.vouchers.Reject(ctx, req.ID, claims.UserID, req.Reason, clientContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	out := voucherFromModel(v)
	return &out, nil
}

func (s *GRPCServer) ListPendingVouchers(ctx context.Context, _ *Empty) (*VoucherListResponse, error) {
	list, err := s.vouchers.ListPending(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	out := &VoucherListResponse{Vouchers: make([]Voucher, 0, len(list))}
	for _, v := range list {
		out.Vouchers = append(out.Vouchers, voucherFromModel(v))
	}
	return out, nil
}

func (s *GRPCServer) VoucherArtifactURL(ctx context.Context, req *VoucherIDRequest) (*URLResponse, error) {
	url, err := s.vouchers.ArtifactURL(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &URLResponse{URL: url}, nil
}
