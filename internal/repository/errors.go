// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// submitter and the HTTP handlers to distinguish between different failure
// scenarios.  ErrEventFull signals that the store refused a registration
// because one of the selected events has no seats left, while ErrConflict
// signals conflicting state such as a missing seat row for an event.
package repository

import (
	"errors"
	"fmt"
)

// ErrEventFull is matched (via errors.Is) by every *EventFullError.
// Handlers should translate this into an HTTP 409 response.
var ErrEventFull = errors.New("event full")

// ErrConflict is returned when the store's state does not allow the
// operation, e.g. a registration names an event that has no seat row.
var ErrConflict = errors.New("conflict")

// EventFullError carries the catalog index of the event that ran out of
// seats.
type EventFullError struct {
	Index int
}

func (e *EventFullError) Error() string {
	return fmt.Sprintf("event %d is full", e.Index)
}

// Is makes errors.Is(err, ErrEventFull) true.
func (e *EventFullError) Is(target error) bool { return target == ErrEventFull }
