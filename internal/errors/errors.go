// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrScheduleInPast = errors.New("scheduled time must be in the future")
	ErrNoTestEmails   = errors.New("at least one test email is required")
	ErrActionInFlight = errors.New("action already in progress")
	ErrUnknownStep    = errors.New("unknown wizard step")
	ErrWizardNotFound = errors.New("wizard session not found")
)

// ErrCampaignNotFound is returned when the backend has no campaign with the id.
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %s not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// APIError is a non-2xx answer from the newsletter backend. Message carries
// the server's error text when it sent one.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// ServerMessage returns the backend's own error text carried by err, if any.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// PersistError aborts a dispatch action when the draft could not be saved.
type PersistError struct {
	Cause error
}

func (e *PersistError) Error() string {
	return "persist draft: " + e.Cause.Error()
}

func (e *PersistError) Unwrap() error { return e.Cause }

func NewPersistError(cause error) error {
	return &PersistError{Cause: cause}
}

// ValidationErrors maps field names to messages for one wizard step.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
