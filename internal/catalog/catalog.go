// Package catalog holds the static configuration the registration form is
// built from: the ordered list of events with their seat capacities and the
// list of selectable colleges.  The catalog is loaded once at startup and is
// immutable afterwards.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/event-registration/internal/model"
)

// MinYear and MaxYear bound the year-of-study selector.
const (
	MinYear = 1
	MaxYear = 5
)

// Catalog is the ordered event list plus the college list.
type Catalog struct {
	Events   []model.EventDefinition `yaml:"events" json:"events"`
	Colleges []string                `yaml:"colleges" json:"colleges"`
}

// Len returns the number of known events.
func (c *Catalog) Len() int { return len(c.Events) }

// Lookup returns the event at index i.
func (c *Catalog) Lookup(i int) (model.EventDefinition, bool) {
	if i < 0 || i >= len(c.Events) {
		return model.EventDefinition{}, false
	}
	return c.Events[i], true
}

// Capacities returns the seat capacity of each event in catalog order.
func (c *Catalog) Capacities() []int {
	out := make([]int, len(c.Events))
	for i, ev := range c.Events {
		out[i] = ev.Seats
	}
	return out
}

// HasCollege reports whether name is one of the selectable colleges.
func (c *Catalog) HasCollege(name string) bool {
	for _, col := range c.Colleges {
		if col == name {
			return true
		}
	}
	return false
}

// Years returns the selectable years of study as strings, matching how the
// form submits them.
func Years() []string {
	out := make([]string, 0, MaxYear-MinYear+1)
	for y := MinYear; y <= MaxYear; y++ {
		out = append(out, fmt.Sprint(y))
	}
	return out
}

// ValidYear reports whether s is one of the values returned by Years.
func ValidYear(s string) bool {
	for _, y := range Years() {
		if y == s {
			return true
		}
	}
	return false
}

// Validate checks the catalog for the invariants the rest of the service
// relies on.
func (c *Catalog) Validate() error {
	if len(c.Events) == 0 {
		return errors.New("catalog: at least one event is required")
	}
	for i, ev := range c.Events {
		if strings.TrimSpace(ev.Name) == "" {
			return fmt.Errorf("catalog: event %d has no name", i)
		}
		if ev.Seats <= 0 {
			return fmt.Errorf("catalog: event %d (%q) must have a positive seat count", i, ev.Name)
		}
	}
	seen := make(map[string]struct{}, len(c.Colleges))
	for _, col := range c.Colleges {
		if strings.TrimSpace(col) == "" {
			return errors.New("catalog: empty college name")
		}
		if _, dup := seen[col]; dup {
			return fmt.Errorf("catalog: duplicate college %q", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}

// Load returns the catalog stored at path, or the built-in catalog when path
// is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates a YAML catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the built-in catalog used when no catalog file is
// configured.
func Default() *Catalog {
	return &Catalog{
		Events: []model.EventDefinition{
			{Name: "Building Scalable APIs", Type: "Workshop", Speaker: "Ananya Rao", Date: "14 March 2025", Time: "10:00 AM - 1:00 PM", Seats: 120},
			{Name: "Intro to Cloud Native", Type: "Talk", Speaker: "Rahul Menon", Date: "14 March 2025", Time: "2:00 PM - 3:30 PM", Seats: 200},
			{Name: "Hands-on Machine Learning", Type: "Workshop", Speaker: "Priya Shetty", Date: "15 March 2025", Time: "10:00 AM - 1:00 PM", Seats: 80},
			{Name: "Open Source Panel", Type: "Panel", Speaker: "Community Leads", Date: "15 March 2025", Time: "3:00 PM - 4:30 PM", Seats: 150},
		},
		Colleges: []string{
			"RV College of Engineering",
			"BMS College of Engineering",
			"PES University",
			"MS Ramaiah Institute of Technology",
			"Dayananda Sagar College of Engineering",
			"Other",
		},
	}
}
