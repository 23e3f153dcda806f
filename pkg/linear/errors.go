package linear

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorKind classifies failures for retry and exit-code decisions.
type ErrorKind int

const (
	// KindGeneral is anything not covered by a more specific kind.
	KindGeneral ErrorKind = iota
	// KindAuth means the credentials were rejected.
	KindAuth
	// KindNotFound means the resource or identifier does not exist.
	KindNotFound
	// KindRateLimited means the server asked us to slow down.
	KindRateLimited
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "general"
	}
}

// Static errors for err113 compliance.
var (
	ErrConflictingCursors = errors.New("--after and --before cannot be combined")
	ErrInvalidNodes       = errors.New("response nodes are not a list")
	ErrNilQuerier         = errors.New("querier is required")
	ErrInvalidRetryConfig = errors.New("invalid retry configuration")
	ErrTrailingJSON       = errors.New("unexpected data after JSON value")
)

// Retryable is implemented by errors that know whether re-issuing the same
// operation can succeed.
type Retryable interface {
	error
	IsRetryable() bool
	RetryAfter() (time.Duration, bool)
}

// transientPatterns are substrings of general error messages that indicate a
// transport hiccup rather than a permanent failure.
var transientPatterns = []string{
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"temporarily unavailable",
	"unexpected eof",
	"502",
	"503",
	"504",
}

// APIError represents a failure reported by the API or the transport under it.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Code       string
	Message    string
	// Transient is set by the transport for connection-level failures.
	Transient bool
	// RetryAfterHint is the server supplied delay, if any.
	RetryAfterHint *time.Duration
	Err            error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var builder strings.Builder

	builder.WriteString(e.Kind.String())

	if e.StatusCode != 0 {
		fmt.Fprintf(&builder, " (HTTP %d)", e.StatusCode)
	}

	if e.Code != "" {
		fmt.Fprintf(&builder, " [%s]", e.Code)
	}

	builder.WriteString(": ")

	switch {
	case e.Message != "":
		builder.WriteString(e.Message)
	case e.Err != nil:
		builder.WriteString(e.Err.Error())
	default:
		builder.WriteString(http.StatusText(e.StatusCode))
	}

	return builder.String()
}

// Unwrap returns the underlying transport error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure is transient.
func (e *APIError) IsRetryable() bool {
	switch e.Kind {
	case KindRateLimited:
		return true
	case KindAuth, KindNotFound:
		return false
	}

	if e.Transient {
		return true
	}

	switch e.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}

	msg := strings.ToLower(e.Message)
	if msg == "" && e.Err != nil {
		msg = strings.ToLower(e.Err.Error())
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// RetryAfter returns the server supplied retry delay.
func (e *APIError) RetryAfter() (time.Duration, bool) {
	if e.RetryAfterHint == nil {
		return 0, false
	}

	return *e.RetryAfterHint, true
}

// NotFoundError is returned by the resolver when no strategy matched.
type NotFoundError struct {
	Entity string
	Input  string
	Hint   string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %q not found", e.Entity, e.Input)
	if e.Hint != "" {
		msg += "; " + e.Hint
	}

	return msg
}

// IsRetryable always returns false; a missing identifier does not appear by retrying.
func (e *NotFoundError) IsRetryable() bool { return false }

// RetryAfter always reports no hint.
func (e *NotFoundError) RetryAfter() (time.Duration, bool) { return 0, false }

// KindOf returns the classification of err, or KindGeneral.
func KindOf(err error) ErrorKind {
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return KindNotFound
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	return KindGeneral
}

// IsRetryable checks whether err is a transient failure.
func IsRetryable(err error) bool {
	var retryable Retryable
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	return false
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsAuth checks if the error is an authentication error.
func IsAuth(err error) bool {
	return err != nil && KindOf(err) == KindAuth
}

// IsRateLimited checks if the error is a rate limit error.
func IsRateLimited(err error) bool {
	return err != nil && KindOf(err) == KindRateLimited
}
