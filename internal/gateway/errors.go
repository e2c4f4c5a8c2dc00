package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// FallbackMessage is used when neither the server nor the transport explains a failure.
const FallbackMessage = "An unexpected error occurred"

// Kind classifies a normalized error for presentation.
type Kind int

const (
	KindServer Kind = iota
	KindUnauthorized
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "server"
	}
}

// Error is the single shape every failed call is reported in.
type Error struct {
	Status        int    `json:"status"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
	Timestamp     string `json:"timestamp"`
	Path          string `json:"path"`

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %d: %s (correlation id %s)", e.Path, e.Status, e.Message, e.CorrelationID)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Kind() Kind {
	switch {
	case e.Status == http.StatusUnauthorized:
		return KindUnauthorized
	case e.Status == http.StatusNotFound:
		return KindNotFound
	case e.Status >= 400 && e.Status < 500:
		return KindValidation
	default:
		return KindServer
	}
}

// AsError extracts the normalized error from an error chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether err carries a 401 from the API.
func IsUnauthorized(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind() == KindUnauthorized
}

// IsNotFound reports whether err carries a 404 from the API.
func IsNotFound(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind() == KindNotFound
}

// errorBody covers the error payload shapes the backend emits.
type errorBody struct {
	Status        int    `json:"status"`
	Message       string `json:"message"`
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId"`
	Timestamp     string `json:"timestamp"`
	Path          string `json:"path"`
}

// fromResponse builds the normalized error for a non-2xx response.
func fromResponse(status int, header http.Header, body []byte, requestID, path string, now time.Time) *Error {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	e := &Error{
		Status:        status,
		Message:       firstNonEmpty(parsed.Message, parsed.Error),
		CorrelationID: firstNonEmpty(header.Get(CorrelationIDHeader), parsed.CorrelationID, requestID),
		Timestamp:     firstNonEmpty(parsed.Timestamp, now.UTC().Format(time.RFC3339)),
		Path:          firstNonEmpty(parsed.Path, path),
	}
	if e.Status == 0 {
		e.Status = http.StatusInternalServerError
	}
	if e.Message == "" {
		e.Message = FallbackMessage
	}
	return e
}

// fromTransport builds the normalized error when no response was received.
func fromTransport(err error, requestID, path string, now time.Time) *Error {
	msg := "Network error: the server could not be reached"
	if errors.Is(err, errTimeout) || isTimeout(err) {
		msg = "The request timed out"
	}
	return &Error{
		Status:        http.StatusInternalServerError,
		Message:       msg,
		CorrelationID: requestID,
		Timestamp:     now.UTC().Format(time.RFC3339),
		Path:          path,
		cause:         err,
	}
}

var errTimeout = errors.New("request timeout")

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
