package model

import (
	"errors"
	"fmt"
)

// Outcome sentinels. Every failure path in the ledger and command surface
// wraps one of these so callers can branch with errors.Is.
var (
	ErrSourceUnavailable  = errors.New("sync disrupted")
	ErrValidationRejected = errors.New("validation rejected")
	ErrStorageCorrupt     = errors.New("stored ledger unreadable")
	ErrAIGeneration       = errors.New("summary generation failed")
	ErrUnauthorized       = errors.New("access denied")
	ErrAlertNotFound      = errors.New("alert not found")
)

// ValidationError carries the user-facing reason a commit was refused.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationRejected
}

// SourceError reports a spreadsheet source that could not be fetched.
type SourceError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source %s: unexpected status %d", e.Source, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("source %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("source %s unavailable", e.Source)
}

func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSourceUnavailable}
	}
	return []error{ErrSourceUnavailable, e.Err}
}
