// Package cli provides the interactive PayDesk command-line client.
//
// It is an operator tool over the PayDesk gRPC API: account registration,
// email verification, login and password recovery for everybody; voucher
// validation and submission for logged-in users; and review commands
// (pending, approve, reject, url, unlock) for officers and admins. The server
// enforces roles; the CLI only hides session commands until a login succeeds.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
