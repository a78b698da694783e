package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidTimeZone   = errors.New("unrecognized timezone")
	ErrInvalidTimeFormat = errors.New("time must be HH:MM in 24-hour format")

	ErrAvailabilityNotFound = errors.New("availability not found")
	ErrSlotNotFound         = errors.New("slot not found")
	ErrProviderNotFound     = errors.New("provider not found")

	ErrSlotBooked              = errors.New("slot is booked")
	ErrInvalidStatusTransition = errors.New("invalid slot status transition")
	ErrProviderBusy            = errors.New("provider schedule is being modified, please retry")
)

// ValidationError carries field-level messages for a request that never
// reached generation or conflict logic.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, field+": "+strings.Join(msgs, "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) any() bool { return len(e.Fields) > 0 }

// ConflictError reports which UTC interval collided and, for a recurring
// create, which occurrence dates carried the collision.
type ConflictError struct {
	ProviderID      string
	Start           time.Time
	End             time.Time
	ConflictingIDs  []string
	OccurrenceDates []string // YYYY-MM-DD, recurring creates only
}

func (e *ConflictError) Error() string {
	if len(e.OccurrenceDates) > 0 {
		return fmt.Sprintf("slot conflict on occurrence date(s) %s", strings.Join(e.OccurrenceDates, ", "))
	}
	return fmt.Sprintf("slot conflict between %s and %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}
