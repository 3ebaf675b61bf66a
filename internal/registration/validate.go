package registration

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iliyamo/event-registration/internal/availability"
	"github.com/iliyamo/event-registration/internal/catalog"
)

var (
	// \s in RE2 is ASCII only; the class also excludes vertical tab, the
	// Unicode separators and BOM so every whitespace code point is refused.
	emailPattern = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

// Validation messages shown to the attendee.
const (
	MsgInvalidEmail   = "Invalid email format"
	MsgInvalidPhone   = "Phone number must be exactly 10 digits"
	MsgNoEvents       = "Please select at least one event to RSVP"
	MsgNameRequired   = "Name is required"
	MsgCollege        = "Please select your college"
	MsgBranchRequired = "Branch is required"
	MsgYear           = "Please select your year of study"
	MsgUnknownEvent   = "Selected event does not exist"
)

// FullMessage is the rejection shown when the named event has no seats
// left.
func FullMessage(name string) string {
	return fmt.Sprintf(`Registration for "%s" is full. Please select another event.`, name)
}

// ValidationError is a rejected submission.  EventIndex is -1 unless the
// rejection concerns a specific event.
type ValidationError struct {
	Field      string
	EventIndex int
	Message    string
	Full       bool
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, EventIndex: -1, Message: msg}
}

// Validate checks f against the catalog and the current counts and returns
// the normalised selection.  Required fields are checked first, then the
// email and phone formats, then the selection, and finally seat
// availability for every selected event.
func Validate(f *Form, cat *catalog.Catalog, counts *availability.Counts) ([]int, error) {
	if strings.TrimSpace(f.Name) == "" {
		return nil, invalid("name", MsgNameRequired)
	}
	if strings.TrimSpace(f.College) == "" {
		return nil, invalid("college", MsgCollege)
	}
	if len(cat.Colleges) > 0 && !cat.HasCollege(f.College) {
		return nil, invalid("college", MsgCollege)
	}
	if strings.TrimSpace(f.Branch) == "" {
		return nil, invalid("branch", MsgBranchRequired)
	}
	if !catalog.ValidYear(f.Year) {
		return nil, invalid("year", MsgYear)
	}
	if !emailPattern.MatchString(f.Email) {
		return nil, invalid("email", MsgInvalidEmail)
	}
	if !phonePattern.MatchString(f.Phone) {
		return nil, invalid("phone", MsgInvalidPhone)
	}

	selected := f.selection()
	if len(selected) == 0 {
		return nil, invalid("events", MsgNoEvents)
	}
	for _, idx := range selected {
		if _, ok := cat.Lookup(idx); !ok {
			return nil, &ValidationError{Field: "events", EventIndex: idx, Message: MsgUnknownEvent}
		}
	}
	for _, idx := range selected {
		ev, _ := cat.Lookup(idx)
		if counts.Get(idx) >= ev.Seats {
			return nil, &ValidationError{Field: "events", EventIndex: idx, Message: FullMessage(ev.Name), Full: true}
		}
	}
	return selected, nil
}
