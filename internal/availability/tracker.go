// Package availability tracks how many attendees each event has.  The
// Tracker reads every stored registration once at startup, aggregates the
// per-event counts and then only moves forward through local increments
// after successful submissions.  It is never re-synchronised with the
// store; the store itself enforces capacity on insert.
package availability

import (
	"context"
	"log/slog"
)

// Source fetches the raw events column of every stored registration.
type Source interface {
	ListEventSelections(ctx context.Context) ([][]byte, error)
}

// Tracker owns the EventCounts snapshot.
type Tracker struct {
	source Source
	counts *Counts
	logger *slog.Logger
}

// NewTracker returns a tracker for size events with all counts at zero.
func NewTracker(source Source, size int, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{source: source, counts: NewCounts(size), logger: logger}
}

// Counts returns the tracked snapshot.
func (t *Tracker) Counts() *Counts { return t.counts }

// Load fetches all registrations and replaces the snapshot with their
// tally.  On fetch failure the error is logged, the counts are left as they
// were (zero on first load) and the error is returned for the caller's
// information only.
func (t *Tracker) Load(ctx context.Context) error {
	rows, err := t.source.ListEventSelections(ctx)
	if err != nil {
		t.logger.Error("Error fetching event counts", slog.String("error", err.Error()))
		return err
	}
	res := Tally(rows, t.counts.Len())
	if res.Skipped > 0 {
		t.logger.Warn("skipped undecodable registrations",
			slog.Int("skipped", res.Skipped),
			slog.String("first_error", res.FirstErr.Error()))
	}
	if res.OutOfRange > 0 {
		t.logger.Warn("ignored event indices outside the catalog", slog.Int("count", res.OutOfRange))
	}
	t.counts.Replace(res.Counts)
	t.logger.Info("event counts loaded", slog.Int("registrations", len(rows)), slog.Any("counts", res.Counts))
	return nil
}
