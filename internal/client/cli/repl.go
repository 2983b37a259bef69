package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	VerifyEmail(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	RecoverPassword(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	Validate(ctx context.Context) error
	Submit(ctx context.Context) error
	Pending(ctx context.Context) error
	Approve(ctx context.Context) error
	Reject(ctx context.Context) error
	ArtifactURL(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// runREPL reads commands from scanner and dispatches them to a until EOF,
// "exit" or "quit".
//
//	Not logged in:
//	  register, verify, login, recover, reset, help, exit | quit
//
//	Logged in:
//	  validate, submit, logout, help, exit | quit
//	  pending, approve, reject, url, unlock (officers and admins)
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("pd %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: validate, submit, pending, approve, reject, url, unlock, logout, exit")
			} else {
				printlnFn("Available commands: register, verify, login, recover, reset, exit")
			}

		case "register":
			err = a.Register(ctx)
		case "verify":
			err = a.VerifyEmail(ctx)
		case "login":
			err = a.Login(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "recover":
			err = a.RecoverPassword(ctx)
		case "reset":
			err = a.ResetPassword(ctx)

		case "validate", "submit", "pending", "approve", "reject", "url", "unlock":
			if !a.isLoggedIn() {
				printlnFn("Please log in first")
				continue
			}
			err = dispatchSession(ctx, a, cmd)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}

func dispatchSession(ctx context.Context, a execIface, cmd string) error {
	switch cmd {
	case "validate":
		return a.Validate(ctx)
	case "submit":
		return a.Submit(ctx)
	case "pending":
		return a.Pending(ctx)
	case "approve":
		return a.Approve(ctx)
	case "reject":
		return a.Reject(ctx)
	case "url":
		return a.ArtifactURL(ctx)
	default:
		return a.Unlock(ctx)
	}
}
