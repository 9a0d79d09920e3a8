package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"mydashboard/internal/jsonutil"
)

var (
	// ErrSessionExpired means the bearer token is past its exp claim or the
	// backend rejected it as expired. The caller must log in again.
	ErrSessionExpired = errors.New("session expired")
	// ErrMissingToken is returned for authenticated calls without a token.
	ErrMissingToken = errors.New("missing access token")
)

// AuthError is a signup/login rejection by the identity provider: bad
// credentials, unconfirmed email, weak password.
type AuthError struct {
	Status  int
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "rejected by identity provider"
	}
	if e.Code != "" {
		return fmt.Sprintf("auth: %s (%s, status %d)", msg, e.Code, e.Status)
	}
	return fmt.Sprintf("auth: %s (status %d)", msg, e.Status)
}

// RequestError is any non-success status from a REST call. Body is the
// decoded error body; PostgREST sends code, message, details and hint.
type RequestError struct {
	Op         string
	Collection string
	Status     int
	Body       map[string]any
	RequestID  string
}

func (e *RequestError) Error() string {
	target := e.Op
	if e.Collection != "" {
		target += " " + e.Collection
	}
	return fmt.Sprintf("backend: %s: status %d: %s", target, e.Status, e.Message())
}

// Message picks the most readable field of the error body.
func (e *RequestError) Message() string {
	if msg := jsonutil.FirstString(e.Body, "message", "msg", "error_description", "error", "raw"); msg != "" {
		return msg
	}
	return http.StatusText(e.Status)
}

// NotFound reports whether the request matched no rows.
func (e *RequestError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// TransportError wraps failures where no HTTP response was read: DNS,
// refused connections, timeouts, cancelled contexts.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend: %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// newRequestError decodes body and maps expired-JWT rejections onto
// ErrSessionExpired while keeping the RequestError reachable via errors.As.
func newRequestError(op, collection string, status int, body []byte, requestID string) error {
	rerr := &RequestError{
		Op:         op,
		Collection: collection,
		Status:     status,
		Body:       jsonutil.DecodeObject(body),
		RequestID:  requestID,
	}
	if status == http.StatusUnauthorized && strings.Contains(strings.ToLower(rerr.Message()), "expired") {
		return fmt.Errorf("%w: %w", ErrSessionExpired, rerr)
	}
	return rerr
}

// newAuthError decodes a GoTrue error body. Old servers send
// {error, error_description}; newer ones {code, error_code, msg}.
func newAuthError(status int, body []byte) *AuthError {
	m := jsonutil.DecodeObject(body)
	return &AuthError{
		Status:  status,
		Code:    jsonutil.FirstString(m, "error_code", "error"),
		Message: jsonutil.FirstString(m, "msg", "error_description", "message", "raw"),
	}
}
