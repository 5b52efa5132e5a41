package services

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is to classify an error returned by this package.
var (
	ErrTransport  = errors.New("transport error")
	ErrAuth       = errors.New("authentication error")
	ErrValidation = errors.New("validation error")
	ErrServer     = errors.New("server error")

	// ErrBusy is returned when a scan is already running for the tab.
	ErrBusy = errors.New("a scan is already in progress")
)

// APIError is the uniform shape of every failed backend call.
type APIError struct {
	Kind    error
	Message string
	// Status is the HTTP status code, 0 when no response was received.
	Status int
	Body   []byte
	Err    error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool { return target == e.Kind }

// ValidationError is a client-side form constraint violation, raised before
// any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Friendly reduces err to a message fit for display.
func Friendly(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Message
	}

	if errors.Is(err, ErrBusy) {
		return ErrBusy.Error()
	}

	if fallback != "" {
		return fallback
	}
	return err.Error()
}

// StatusOf returns the transport status code carried by err, if any.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
