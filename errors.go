// Package hostedgit provides sentinel and typed errors for provider operations.
// All errors can be checked using errors.Is() or errors.As() for programmatic handling.
package hostedgit

import (
	"context"
	"errors"
	"fmt"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/remote"
)

// ErrAuthRequired is returned when an operation requires a session
// but none was available or the user declined to create one.
var ErrAuthRequired = errors.New("authentication required")

// ErrAuthFailed is returned when the session provider itself failed.
var ErrAuthFailed = errors.New("authentication failed")

// ErrInvalidRef is returned when a reference name or revision expression
// is malformed or cannot be used for the requested operation.
var ErrInvalidRef = errors.New("invalid reference")

// ErrResolveFailed is returned when a revision cannot be resolved to a sha.
var ErrResolveFailed = errors.New("cannot resolve revision")

// ErrNotHostedRepository is returned for repository paths this provider does
// not serve.
var ErrNotHostedRepository = errors.New("not a hosted repository")

// ErrBridgeUnavailable is returned while the repository bridge has not
// registered yet.
var ErrBridgeUnavailable = errors.New("repository bridge unavailable")

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("invalid options")

// ErrCancelled is returned when the caller's context ended during a remote
// call. It is never retried.
var ErrCancelled = remote.ErrCancelled

// ErrorCode is a stable machine-readable error category.
type ErrorCode string

const (
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// AuthReason distinguishes why no session could be used.
type AuthReason int

const (
	// AuthDeclined means the user refused consent. The provider stops
	// prompting until Reconnect is called.
	AuthDeclined AuthReason = iota

	// AuthNotFound means no session exists and none was created.
	AuthNotFound
)

func (r AuthReason) String() string {
	switch r {
	case AuthDeclined:
		return "declined"
	case AuthNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// AuthenticationError reports a missing or refused session. It matches
// ErrAuthRequired.
type AuthenticationError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication required (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication required (%s)", e.Reason)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrAuthRequired.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthRequired
}

// Code returns FORBIDDEN for declined consent and UNAUTHORIZED otherwise.
func (e *AuthenticationError) Code() ErrorCode {
	if e.Reason == AuthDeclined {
		return CodeForbidden
	}
	return CodeUnauthorized
}

// OpenReason is why a repository could not be opened.
type OpenReason string

const (
	ReasonNotHostedRepository OpenReason = "not-hosted-repository"
	ReasonBridgeMissing       OpenReason = "bridge-missing"
	ReasonAuthDenied          OpenReason = "auth-denied"
	ReasonAuthNotFound        OpenReason = "auth-not-found"
)

// OpenRepositoryError is returned when a repository context cannot be
// resolved.
type OpenRepositoryError struct {
	RepoPath string
	Reason   OpenReason
	Err      error
}

func (e *OpenRepositoryError) Error() string {
	msg := fmt.Sprintf("cannot open repository %q: %s", e.RepoPath, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OpenRepositoryError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to Reason.
func (e *OpenRepositoryError) Is(target error) bool {
	switch e.Reason {
	case ReasonNotHostedRepository:
		return target == ErrNotHostedRepository
	case ReasonBridgeMissing:
		return target == ErrBridgeUnavailable
	case ReasonAuthDenied, ReasonAuthNotFound:
		return target == ErrAuthRequired
	}
	return false
}

// Code maps Reason to an ErrorCode.
func (e *OpenRepositoryError) Code() ErrorCode {
	switch e.Reason {
	case ReasonNotHostedRepository:
		return CodeInvalidInput
	case ReasonBridgeMissing:
		return CodeServiceUnavailable
	case ReasonAuthDenied:
		return CodeForbidden
	default:
		return CodeUnauthorized
	}
}

// IsCancelled reports whether err is a cancellation, either from a remote
// call or from the caller's context.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
