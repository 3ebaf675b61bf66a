package availability

import (
	"fmt"

	"github.com/iliyamo/event-registration/internal/catalog"
	"github.com/iliyamo/event-registration/internal/model"
)

// HurryThreshold is the remaining-seat count below which an event is shown
// as almost full.
const HurryThreshold = 20

// Status values for EventAvailability.
const (
	StatusOpen  = "open"
	StatusHurry = "hurry"
	StatusFull  = "full"
)

// EventAvailability is the public view of one event together with its
// current registration count.
type EventAvailability struct {
	Index int `json:"index"`
	model.EventDefinition
	Registered int    `json:"registered"`
	Remaining  int    `json:"remaining"`
	Status     string `json:"status"`
	Label      string `json:"label"`
}

// Describe builds the availability view for every catalog event from a
// counts snapshot.
func Describe(cat *catalog.Catalog, snapshot []int) []EventAvailability {
	out := make([]EventAvailability, 0, cat.Len())
	for i, ev := range cat.Events {
		registered := 0
		if i < len(snapshot) {
			registered = snapshot[i]
		}
		remaining := ev.Seats - registered
		if remaining < 0 {
			remaining = 0
		}
		item := EventAvailability{
			Index:           i,
			EventDefinition: ev,
			Registered:      registered,
			Remaining:       remaining,
		}
		switch {
		case remaining == 0:
			item.Status = StatusFull
			item.Label = "Seats Full :("
		case remaining < HurryThreshold:
			item.Status = StatusHurry
			item.Label = fmt.Sprintf("Hurry Up! Only %d Seats Available", remaining)
		default:
			item.Status = StatusOpen
			item.Label = fmt.Sprintf("Available Seats: %d", remaining)
		}
		out = append(out, item)
	}
	return out
}
