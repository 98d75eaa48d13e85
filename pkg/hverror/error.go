// Package hverror defines the error taxonomy shared by all HealthVault
// client packages: caller-input validation failures, protocol-contract
// violations, remote service status failures, and response parse failures.
package hverror

import (
	"errors"
	"fmt"
)

// Kind classifies an error by where it originated.
type Kind int

const (
	// KindValidation means the caller supplied null or malformed input.
	// Detected before any network call; never retried.
	KindValidation Kind = iota
	// KindProtocol means the server response violated an implicit
	// contract, e.g. more than one thing returned for a single-item fetch.
	KindProtocol
	// KindServer means the service returned a non-success status code.
	KindServer
	// KindParse means a response could not be deserialized.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindProtocol:
		return "protocol"
	case KindServer:
		return "server"
	case KindParse:
		return "parse"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the structured error returned by client operations. Kind is
// always set; Status and Code are meaningful only for KindServer.
type Error struct {
	Kind    Kind
	Status  Status
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindServer {
		return fmt.Sprintf("healthvault: %s (status %s, code %d)", e.Message, e.Status, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("healthvault: %s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("healthvault: %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a KindValidation error.
func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Protocolf builds a KindProtocol error.
func Protocolf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindProtocol, Message: fmt.Sprintf(format, args...)}
}

// Parsef builds a KindParse error wrapping cause, which may be nil.
func Parsef(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindParse, Message: fmt.Sprintf(format, args...), Err: cause}
}

// FromStatusCode builds a KindServer error from a wire status code and the
// server-supplied message. The original numeric code is retained even when
// it maps to StatusUnmapped.
func FromStatusCode(code int, message string) *Error {
	if message == "" {
		message = "the service reported a failure"
	}
	return &Error{Kind: KindServer, Status: statusFromCode(code), Code: code, Message: message}
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsValidation reports whether err is a caller-input validation error.
func IsValidation(err error) bool { return IsKind(err, KindValidation) }

// IsProtocol reports whether err is a protocol-contract violation.
func IsProtocol(err error) bool { return IsKind(err, KindProtocol) }

// IsParse reports whether err is a response parse failure.
func IsParse(err error) bool { return IsKind(err, KindParse) }

// IsServerStatus reports whether err is a server error with the given status.
func IsServerStatus(err error, status Status) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindServer && e.Status == status
	}
	return false
}
