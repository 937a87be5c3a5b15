// Package fault defines the tagged error variants used across persona.
//
// Every failure that crosses a package boundary is classified into one of a
// small set of kinds, so retry and propagation logic can switch on an explicit
// discriminant instead of sniffing status codes and message substrings.
package fault

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind discriminates failure classes.
type Kind int

const (
	// KindInternal is an unclassified failure.
	KindInternal Kind = iota

	// KindConfiguration means a required credential or setting is absent.
	// Always soft: surfaced as tool-level text, never aborts a turn.
	KindConfiguration

	// KindOverloaded means the provider is saturated (429/503/5xx or an
	// explicit overloaded signal). Retryable; after retries are exhausted it
	// maps to a distinct "try again shortly" outcome.
	KindOverloaded

	// KindAuth means the provider rejected our credentials (401/403).
	// Never retried.
	KindAuth

	// KindTool means a tool handler failed. Caught per tool and converted to
	// descriptive text.
	KindTool

	// KindTransport means the inbound request was malformed or used an
	// unsupported method. Rejected before any model call.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindOverloaded:
		return "overloaded"
	case KindAuth:
		return "auth"
	case KindTool:
		return "tool"
	case KindTransport:
		return "transport"
	default:
		return "internal"
	}
}

// Error carries a kind, an optional HTTP status, and the underlying cause.
type Error struct {
	Kind   Kind
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a kind to an underlying error. Returns nil for a nil cause.
func Wrap(kind Kind, msg string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// FromStatus maps an HTTP status code to a fault. The message is kept verbatim
// so nothing is lost when the error is propagated after retries.
func FromStatus(status int, msg string) *Error {
	switch {
	case status == 401 || status == 403:
		return &Error{Kind: KindAuth, Status: status, Msg: msg}
	case status == 429 || status == 503 || status == 529 || status >= 500:
		return &Error{Kind: KindOverloaded, Status: status, Msg: msg}
	default:
		return &Error{Kind: KindInternal, Status: status, Msg: msg}
	}
}

// KindOf returns the kind of err, or KindInternal if it carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

// Retryable is the default retry classification: connection-reset, timeout and
// DNS failures, provider overload (429/503/5xx) and explicit overloaded
// signals retry; auth failures never do.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var fe *Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case KindAuth, KindConfiguration, KindTransport:
			return false
		case KindOverloaded:
			return true
		}
		// Internal faults fall through to the network checks below.
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "timeout")
}
