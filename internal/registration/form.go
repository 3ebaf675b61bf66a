// Package registration validates and submits registration forms.  A
// Submitter checks a Form against the catalog and the current event
// counts, writes it to the store exactly once and, on success, clears the
// form and bumps the local counts.
package registration

import (
	"sync/atomic"

	"github.com/iliyamo/event-registration/internal/model"
)

// Form holds the values an attendee entered plus the selected events.
type Form struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	College  string `json:"college"`
	Branch   string `json:"branch"`
	Year     string `json:"year"`
	Selected []int  `json:"events"`

	submitting atomic.Bool
}

// Reset clears every field and the selection.
func (f *Form) Reset() {
	f.Name, f.Email, f.Phone = "", "", ""
	f.College, f.Branch, f.Year = "", "", ""
	f.Selected = nil
}

// Submitting reports whether a submission of this form is in flight.
func (f *Form) Submitting() bool { return f.submitting.Load() }

// selection returns the selected indices in selection order with
// duplicates removed.
func (f *Form) selection() []int {
	seen := make(map[int]struct{}, len(f.Selected))
	out := make([]int, 0, len(f.Selected))
	for _, v := range f.Selected {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// record builds the stored registration for the validated selection.
// Field values are stored exactly as submitted.
func (f *Form) record(events []int) *model.Registration {
	return &model.Registration{
		Name:    f.Name,
		Email:   f.Email,
		Phone:   f.Phone,
		College: f.College,
		Branch:  f.Branch,
		Year:    f.Year,
		Events:  events,
	}
}
