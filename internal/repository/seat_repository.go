package repository // repository defines data access for event seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"fmt"          // error wrapping
	"sort"         // deterministic lock ordering

	"github.com/iliyamo/event-registration/internal/availability" // tally of stored selections
)

// EventSeat mirrors one row of the event_seats table.  Capacity is copied
// from the catalog at startup; Taken is the number of seats already
// granted and only moves through ReserveTx.
type EventSeat struct {
	EventIndex int // event_seats.event_index (catalog position)
	Capacity   int // event_seats.capacity
	Taken      int // event_seats.taken
}

// SeatRepo provides methods to work with the event_seats table.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// Sync makes event_seats match the catalog capacities.  Rows that do not
// exist yet are created with taken counted from the stored registrations,
// read inside the same transaction, so a store that predates the table
// starts from the real registration count.  Existing rows keep their taken
// value and only have their capacity updated.
func (r *SeatRepo) Sync(ctx context.Context, capacities []int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seat sync: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var tally []int
	for i, capacity := range capacities {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM event_seats WHERE event_index = ?`, i).Scan(&n); err != nil {
			return fmt.Errorf("check seat row %d: %w", i, err)
		}
		if n == 0 {
			if tally == nil {
				raw, err := selectEvents(ctx, tx)
				if err != nil {
					return err
				}
				tally = availability.Tally(raw, len(capacities)).Counts
			}
			taken := tally[i]
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO event_seats (event_index, capacity, taken) VALUES (?, ?, ?)`,
				i, capacity, taken); err != nil {
				return fmt.Errorf("insert seat row %d: %w", i, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE event_seats SET capacity = ? WHERE event_index = ?`, capacity, i); err != nil {
			return fmt.Errorf("update seat row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seat sync: %w", err)
	}
	committed = true
	return nil
}

// ReserveTx takes one seat for every listed event inside the caller's
// transaction.  Each seat is taken with a conditional increment, so two
// transactions racing for the last seat cannot both succeed.  Indices are
// processed in ascending order to keep lock acquisition consistent across
// transactions.  The first event without a free seat aborts with an
// *EventFullError; the caller must roll back.
func (r *SeatRepo) ReserveTx(ctx context.Context, tx *sql.Tx, indices []int) error {
	ordered := append([]int(nil), indices...)
	sort.Ints(ordered)
	for _, idx := range ordered {
		res, err := tx.ExecContext(ctx,
			`UPDATE event_seats SET taken = taken + 1 WHERE event_index = ? AND taken < capacity`, idx)
		if err != nil {
			return fmt.Errorf("reserve seat for event %d: %w", idx, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reserve seat for event %d: %w", idx, err)
		}
		if n > 0 {
			continue
		}
		// Distinguish a full event from one that was never synced.
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM event_seats WHERE event_index = ?`, idx).Scan(&exists); err != nil {
			return fmt.Errorf("check seat row %d: %w", idx, err)
		}
		if exists == 0 {
			return fmt.Errorf("no seat row for event %d: %w", idx, ErrConflict)
		}
		return &EventFullError{Index: idx}
	}
	return nil
}

// List returns every event_seats row ordered by event index.
func (r *SeatRepo) List(ctx context.Context) ([]EventSeat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_index, capacity, taken FROM event_seats ORDER BY event_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventSeat
	for rows.Next() {
		var s EventSeat
		if err := rows.Scan(&s.EventIndex, &s.Capacity, &s.Taken); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
