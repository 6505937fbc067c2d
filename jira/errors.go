package jira

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Status classes a *StatusError unwraps to.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("authentication failed")
	ErrForbidden    = errors.New("permission denied")
	ErrNotFound     = errors.New("resource not found")
	ErrServerError  = errors.New("server error")
)

// ErrTransport is matched by every *TransportError.
var ErrTransport = errors.New("transport level error")

// DomainError reports a local invariant violation detected without a
// network round trip.
type DomainError struct {
	Reason string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return e.Reason
}

// Session errors.
var (
	ErrSessionAlreadyEstablished = &DomainError{Reason: "session was already established"}
	ErrEmptyCredential           = &DomainError{Reason: "credential carries neither cookies nor token"}
)

// Issue errors.
var (
	ErrIssueRefRequired      = &DomainError{Reason: "issue id or key is required"}
	ErrInvalidCustomFieldKey = &DomainError{Reason: "custom field key must start with " + CustomFieldPrefix}
	ErrTransitionIDRequired  = &DomainError{Reason: "transition id is required"}
)

// Link and attachment errors.
var (
	ErrAmbiguousIssueLink        = &DomainError{Reason: "ambiguous issue link"}
	ErrIssueLinkNotFound         = &DomainError{Reason: "issue link not found"}
	ErrRemoteLinkNotFound        = &DomainError{Reason: "remote link not found"}
	ErrUnexpectedAttachmentCount = &DomainError{Reason: "expected exactly one attachment in response"}
)

// TransportError means the request never produced a response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport level error on %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying transport failure.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// StatusError means JIRA answered with a status other than the expected one.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string

	// Parsed from the JIRA error body when present.
	ErrorMessages []string
	Errors        map[string]string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	msg := fmt.Sprintf("JIRA returned wrong status on %s %s: %s", e.Method, e.URL, e.Status)
	switch {
	case len(e.ErrorMessages) > 0:
		msg += ": " + strings.Join(e.ErrorMessages, "; ")
	case len(e.Errors) > 0:
		parts := make([]string, 0, len(e.Errors))
		for field, text := range e.Errors {
			parts = append(parts, field+": "+text)
		}
		msg += ": " + strings.Join(parts, "; ")
	}
	return msg
}

// Unwrap returns the sentinel for the status class.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		if e.StatusCode >= 500 {
			return ErrServerError
		}
		return nil
	}
}

// newStatusError builds a StatusError, parsing JIRA's error body if it has one.
func newStatusError(resp *Response) *StatusError {
	statusErr := &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(resp.Body),
	}
	if resp.Request != nil {
		statusErr.Method = resp.Request.Method
		statusErr.URL = resp.Request.URL.String()
	}
	if statusErr.Status == "" {
		statusErr.Status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var body struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if json.Unmarshal(resp.Body, &body) == nil {
		statusErr.ErrorMessages = body.ErrorMessages
		statusErr.Errors = body.Errors
	}
	return statusErr
}

// ClientError is returned by every resource operation. Op is a short
// summary of the operation that failed.
type ClientError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	return "could not " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the cause.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// wrapErr wraps err in a ClientError for op. nil stays nil.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ClientError{Op: op, Err: err}
}

// IsTransportError reports whether err is a transport failure.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsStatusError reports whether err is an unexpected-status failure.
func IsStatusError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr)
}

// IsDomainError reports whether err is a local invariant violation.
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// IsNotFound reports whether err is a 404 from JIRA.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized reports whether err is a 401 from JIRA.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
