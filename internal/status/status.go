package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies a failure for retry/abort decisions.
type Kind int

const (
	KindNetwork Kind = iota
	KindRateLimited
	KindSessionExpired
	KindValidation
	KindUnavailable
	KindServer
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRateLimited:
		return "rate_limited"
	case KindSessionExpired:
		return "session_expired"
	case KindValidation:
		return "validation"
	case KindUnavailable:
		return "unavailable"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Every error crossing a service boundary is
// wrapped into one of these so callers branch on Kind, never on raw provider
// errors.
type Error struct {
	Kind    Kind
	Message string
	Code    string
	cause   error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether a retry may succeed. Unknown counts as retryable
// here; the retry controller caps it at a single extra attempt.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindRateLimited, KindServer, KindUnknown:
		return true
	default:
		return false
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

var (
	ErrUnavailable    = New(KindUnavailable, "tickets unavailable")
	ErrSessionExpired = New(KindSessionExpired, "payment session expired")
)

// Classify reclassifies an arbitrary error. Already-classified errors pass
// through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return se
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindNetwork, "request timed out", err)
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Wrap(KindNetwork, "request timed out", err)
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "timeout"),
		strings.Contains(lower, "no such host"):
		return Wrap(KindNetwork, msg, err)
	case strings.Contains(lower, "session expired"),
		strings.Contains(lower, "invalid session"):
		return Wrap(KindSessionExpired, msg, err)
	case strings.Contains(lower, "invalid"):
		return Wrap(KindValidation, msg, err)
	case strings.Contains(lower, "unavailable"):
		return Wrap(KindUnavailable, msg, err)
	}

	return Wrap(KindUnknown, msg, err)
}

// FromHTTPStatus maps a backend response status to a classified error. The
// body is kept in the message so operators see what the provider returned.
func FromHTTPStatus(code int, body string) *Error {
	msg := strings.TrimSpace(body)
	if msg == "" {
		msg = http.StatusText(code)
	}

	e := &Error{Message: msg, Code: fmt.Sprintf("HTTP_%d", code)}
	switch {
	case code == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case code == http.StatusRequestTimeout:
		e.Kind = KindNetwork
	case code == http.StatusNotFound:
		e.Kind = KindUnavailable
	case code == http.StatusConflict, code == http.StatusGone,
		strings.Contains(strings.ToLower(msg), "expired"):
		e.Kind = KindSessionExpired
	case code == http.StatusUnauthorized, code == http.StatusForbidden,
		code == http.StatusBadRequest:
		e.Kind = KindValidation
	case code >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindUnknown
	}
	return e
}
