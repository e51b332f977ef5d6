// Package apierr defines the error taxonomy shared by the command surface,
// the background sync tasks and the client tooling.
//
// Command failures carry a short wire code (e.g. "count_out_of_range") that
// is returned verbatim in the response envelope. Background failures are
// classified for logging and never reach a command caller.
package apierr

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// Kind is the category of an error.
type Kind int

const (
	// KindValidation is a malformed or out-of-range parameter.
	KindValidation Kind = iota
	// KindUnknownMethod is a method name with no handler.
	KindUnknownMethod
	// KindNotImplemented is a known method with no behaviour.
	KindNotImplemented
	// KindTransport is a network failure talking to a remote service.
	KindTransport
	// KindInternal is a failure inside the controller (persistence, panics).
	KindInternal
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation Error"
	case KindUnknownMethod:
		return "Unknown Method"
	case KindNotImplemented:
		return "Not Implemented"
	case KindTransport:
		return "Transport Error"
	case KindInternal:
		return "Internal Error"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Wire codes returned in the response envelope.
const (
	CodeUnknownMethod        = "unknown_method"
	CodeInvalidRequest       = "invalid_request"
	CodeInvalidName          = "invalid_name"
	CodeNameOutOfRange       = "name_out_of_range"
	CodeMissingSSID          = "missing_ssid"
	CodeMissingPass          = "missing_pass"
	CodeSSIDOutOfRange       = "ssid_out_of_range"
	CodePassOutOfRange       = "pass_out_of_range"
	CodeInvalidCount         = "invalid_count"
	CodeCountOutOfRange      = "count_out_of_range"
	CodeInvalidPin           = "invalid_pin"
	CodePinOutOfRange        = "pin_out_of_range"
	CodeInvalidType          = "invalid_type"
	CodeMissingOn            = "missing_on"
	CodeInvalidColor         = "invalid_color"
	CodeColorsOutOfRange     = "colors_out_of_range"
	CodeInvalidBrightness    = "invalid_brightness"
	CodeBrightnessOutOfRange = "brightness_out_of_range"
	CodeNotImplemented       = "not_implemented"
	CodeTestError            = "test_error"
	CodeInternal             = "internal_error"
	CodePersistFailed        = "persist_failed"
	CodeTimeout              = "timeout"
	CodeConnectionRefused    = "connection_refused"
	CodeDNS                  = "dns_error"
	CodeHostUnreachable      = "host_unreachable"
	CodeNetworkUnreachable   = "network_unreachable"
	CodeNetwork              = "network_error"
	CodeHTTPStatus           = "http_status"
)

// Error is a categorised failure.
type Error struct {
	Kind       Kind   // Category of error
	Code       string // Wire code
	Message    string // Human-readable detail
	StatusCode int    // HTTP status, for KindTransport with CodeHTTPStatus
	Err        error  // Underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a validation error with the given wire code.
func Validation(code string) *Error {
	return &Error{Kind: KindValidation, Code: code}
}

// Validationf returns a validation error with a formatted detail message.
func Validationf(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// UnknownMethod returns the error for a method with no handler.
func UnknownMethod(method string) *Error {
	return &Error{Kind: KindUnknownMethod, Code: CodeUnknownMethod, Message: method}
}

// NotImplemented returns the error for a method with no behaviour.
func NotImplemented(method string) *Error {
	return &Error{Kind: KindNotImplemented, Code: CodeNotImplemented, Message: method}
}

// Internal wraps a failure inside the controller.
func Internal(code string, err error) *Error {
	return &Error{Kind: KindInternal, Code: code, Err: err}
}

// HTTPStatus reports a remote service answering with an unexpected status.
func HTTPStatus(statusCode int, service string) *Error {
	return &Error{
		Kind:       KindTransport,
		Code:       CodeHTTPStatus,
		Message:    fmt.Sprintf("%s returned HTTP %d", service, statusCode),
		StatusCode: statusCode,
	}
}

// ClassifyTransportError analyses a network error and returns it wrapped in
// an Error with a specific code.
func ClassifyTransportError(err error) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	if os.IsTimeout(err) {
		return &Error{Kind: KindTransport, Code: CodeTimeout, Message: "request timed out", Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Kind:    KindTransport,
			Code:    CodeDNS,
			Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:     err,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &Error{Kind: KindTransport, Code: CodeConnectionRefused, Message: "connection refused", Err: err}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &Error{Kind: KindTransport, Code: CodeHostUnreachable, Message: "host unreachable", Err: err}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &Error{Kind: KindTransport, Code: CodeNetworkUnreachable, Message: "network unreachable", Err: err}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyTransportError(urlErr.Err)
	}

	return &Error{Kind: KindTransport, Code: CodeNetwork, Message: "network error occurred", Err: err}
}

// CodeOf returns the wire code of err. Errors that are not an *Error map to
// internal_error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return CodeInternal
}

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsValidation checks if err is a validation error.
func IsValidation(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindValidation
}

// IsUnknownMethod checks if err is an unknown method error.
func IsUnknownMethod(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindUnknownMethod
}

// IsTransport checks if err is a transport error.
func IsTransport(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTransport
}

// IsInternal checks if err is an internal error.
func IsInternal(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindInternal
}

// ShortMessage returns a concise, user-facing description of err, used by
// the command line tools.
func ShortMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	switch e.Code {
	case CodeTimeout:
		return "Device not responding (timeout)"
	case CodeConnectionRefused:
		return "Device refused connection - is the controller running?"
	case CodeDNS:
		return "Cannot resolve device hostname"
	case CodeHostUnreachable:
		return "Device unreachable - check network connection"
	case CodeNetworkUnreachable:
		return "Network unreachable - check Wi-Fi connection"
	case CodeNetwork:
		return "Network error - check connection"
	case CodeHTTPStatus:
		return fmt.Sprintf("Device error (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" && e.Kind != KindUnknownMethod {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}
