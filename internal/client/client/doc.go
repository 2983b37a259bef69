// Package client talks to the PayDesk gRPC endpoint.
//
// GRPCClient keeps the access and refresh tokens of the signed-in user,
// attaches the access token to every call and, when the server rejects it,
// rotates the pair once through Refresh and retries. Transport failures are
// reported as ErrUnavailable, rejected credentials as ErrUnauthorized and
// role denials as ErrForbidden; other server errors keep their message.
package client
