package graphql

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/pkg/linear"
)

// Static errors for err113 compliance.
var (
	ErrEmptyEndpoint = errors.New("GraphQL endpoint is required")
	ErrMissingData   = errors.New("response has no data")
)

// ResponseError is one entry of a GraphQL "errors" array.
type ResponseError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Code returns extensions.code, if any.
func (e ResponseError) Code() string {
	code, _ := e.Extensions["code"].(string)

	return code
}

// kindForCode maps well-known extension codes to an error kind.
func kindForCode(code string) (linear.ErrorKind, bool) {
	switch strings.ToUpper(code) {
	case "AUTHENTICATION_ERROR", "UNAUTHENTICATED", "FORBIDDEN":
		return linear.KindAuth, true
	case "RATELIMITED", "RATE_LIMITED":
		return linear.KindRateLimited, true
	case "ENTITY_NOT_FOUND", "NOT_FOUND":
		return linear.KindNotFound, true
	default:
		return linear.KindGeneral, false
	}
}

// kindForStatus maps an HTTP status to an error kind.
func kindForStatus(status int) linear.ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return linear.KindAuth
	case http.StatusNotFound:
		return linear.KindNotFound
	case http.StatusTooManyRequests:
		return linear.KindRateLimited
	default:
		return linear.KindGeneral
	}
}

// fromGraphQLErrors builds an APIError from a non-empty errors array. The
// first error carrying a known code decides the kind.
func fromGraphQLErrors(status int, errs []ResponseError, header http.Header) *linear.APIError {
	apiErr := &linear.APIError{
		Kind:       kindForStatus(status),
		StatusCode: status,
	}

	messages := make([]string, 0, len(errs))

	for _, graphErr := range errs {
		messages = append(messages, graphErr.Message)

		if apiErr.Code != "" {
			continue
		}

		if kind, ok := kindForCode(graphErr.Code()); ok {
			apiErr.Kind = kind
			apiErr.Code = graphErr.Code()
		}
	}

	if apiErr.Code == "" && len(errs) > 0 {
		apiErr.Code = errs[0].Code()
	}

	apiErr.Message = strings.Join(messages, "; ")

	if apiErr.Kind == linear.KindRateLimited {
		apiErr.RetryAfterHint = parseRetryAfter(header, time.Now())
	}

	return apiErr
}

// parseRetryAfter reads Retry-After as delta seconds or an HTTP date. Hints
// above constants.MaxRetryAfter are clamped to it.
func parseRetryAfter(header http.Header, now time.Time) *time.Duration {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return nil
	}

	var delay time.Duration

	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds < 0 {
			return nil
		}

		delay = constants.MaxRetryAfter
		if seconds < int64(constants.MaxRetryAfter/time.Second) {
			delay = time.Duration(seconds) * time.Second
		}

		return &delay
	}

	when, err := http.ParseTime(value)
	if err != nil {
		return nil
	}

	delay = min(max(when.Sub(now), 0), constants.MaxRetryAfter)

	return &delay
}
