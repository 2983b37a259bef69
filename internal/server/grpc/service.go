package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "paydesk.PayDeskService"

// Method names of PayDeskService.
const (
	MethodPing               = "Ping"
	MethodRegister           = "Register"
	MethodVerifyEmail        = "VerifyEmail"
	MethodLogin              = "Login"
	MethodRefresh            = "Refresh"
	MethodLogout             = "Logout"
	MethodRecoverPassword    = "RecoverPassword"
	MethodResetPassword      = "ResetPassword"
	MethodUnlockAccount      = "UnlockAccount"
	MethodValidateVoucher    = "ValidateVoucher"
	MethodCreateVoucher      = "CreateVoucher"
	MethodApproveVoucher     = "ApproveVoucher"
	MethodRejectVoucher      = "RejectVoucher"
	MethodListPending        = "ListPendingVouchers"
	MethodVoucherArtifactURL = "VoucherArtifactURL"
)

// FullMethod returns the gRPC path of a PayDeskService method.
func FullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

// PayDeskServer is the server API of PayDeskService.
type PayDeskServer interface {
	Ping(context.Context, *Empty) (*PingResponse, error)
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	VerifyEmail(context.Context, *VerifyEmailRequest) (*Empty, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Refresh(context.Context, *Empty) (*RefreshResponse, error)
	Logout(context.Context, *Empty) (*Empty, error)
	RecoverPassword(context.Context, *RecoverPasswordRequest) (*MessageResponse, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*Empty, error)
	UnlockAccount(context.Context, *UnlockAccountRequest) (*Empty, error)
	ValidateVoucher(context.Context, *VoucherRequest) (*ValidationResponse, error)
	CreateVoucher(context.Context, *VoucherRequest) (*Voucher, error)
	ApproveVoucher(context.Context, *ReviewVoucherRequest) (*Voucher, error)
	RejectVoucher(context.Context, *RejectVoucherRequest) (*Voucher, error)
	ListPendingVouchers(context.Context, *Empty) (*VoucherListResponse, error)
	VoucherArtifactURL(context.Context, *VoucherIDRequest) (*URLResponse, error)
}

func unary[Req, Resp any](name string, call func(PayDeskServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PayDeskServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(PayDeskServer), ctx, req.(*Req))
			})
		},
	}
}

// ServiceDesc describes PayDeskService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*PayDeskServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, PayDeskServer.Ping),
		unary(MethodRegister, PayDeskServer.Register),
		unary(MethodVerifyEmail, PayDeskServer.VerifyEmail),
		unary(MethodLogin, PayDeskServer.Login),
		unary(MethodRefresh, PayDeskServer.Refresh),
		unary(MethodLogout, PayDeskServer.Logout),
		unary(MethodRecoverPassword, PayDeskServer.RecoverPassword),
		unary(MethodResetPassword, PayDeskServer.ResetPassword),
		unary(MethodUnlockAccount, PayDeskServer.UnlockAccount),
		unary(MethodValidateVoucher, PayDeskServer.ValidateVoucher),
		unary(MethodCreateVoucher, PayDeskServer.CreateVoucher),
		unary(MethodApproveVoucher, PayDeskServer.ApproveVoucher),
		unary(MethodRejectVoucher, PayDeskServer.RejectVoucher),
		unary(MethodListPending, PayDeskServer.ListPendingVouchers),
		unary(MethodVoucherArtifactURL, PayDeskServer.VoucherArtifactURL),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "paydesk",
}

// Client calls PayDeskService over a connection using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with in and decodes the reply into out.
func (c *Client) Call(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	return c.cc.Invoke(ctx, FullMethod(method), in, out, opts...)
}
