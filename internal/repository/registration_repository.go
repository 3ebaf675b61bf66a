package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/event-registration/internal/availability"
	"github.com/iliyamo/event-registration/internal/model"
)

// RegistrationRepo provides access to the registrations table.  Rows are
// only ever inserted; the events column stores the selected catalog
// indices as JSON text.  created_at is stored as Unix milliseconds (UTC)
// so both MySQL and SQLite scan it the same way.
type RegistrationRepo struct {
	db    *sql.DB
	seats *SeatRepo
}

// NewRegistrationRepo returns a RegistrationRepo bound to db.  Inserts go
// through seats so capacity is enforced in the same transaction.
func NewRegistrationRepo(db *sql.DB, seats *SeatRepo) *RegistrationRepo {
	if seats == nil {
		seats = NewSeatRepo(db)
	}
	return &RegistrationRepo{db: db, seats: seats}
}

// ListEventSelections returns the raw events column of every registration.
// Values are returned undecoded; legacy rows may hold a JSON object instead
// of an array.
func (r *RegistrationRepo) ListEventSelections(ctx context.Context) ([][]byte, error) {
	return selectEvents(ctx, r.db)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func selectEvents(ctx context.Context, q queryer) ([][]byte, error) {
	rows, err := q.QueryContext(ctx, `SELECT events FROM registrations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan events: %w", err)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// CreateTx inserts rec within the provided transaction and populates its
// ID.  A zero CreatedAt is set to the current time.  The caller must commit
// or roll back.
func (r *RegistrationRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec *model.Registration) error {
	events := rec.Events
	if events == nil {
		events = []int{}
	}
	encoded, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO registrations (name, email, phone, college, branch, year, events, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		rec.Name, rec.Email, rec.Phone, rec.College, rec.Branch, rec.Year,
		string(encoded), rec.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("registration id: %w", err)
	}
	rec.ID = uint64(id)
	return nil
}

// InsertRegistration performs the single insert of a new registration.  A
// seat is taken for every selected event and the row is written in one
// transaction; if any event is already at capacity nothing is written and
// an *EventFullError is returned.
func (r *RegistrationRepo) InsertRegistration(ctx context.Context, rec *model.Registration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := r.seats.ReserveTx(ctx, tx, rec.Events); err != nil {
		return err
	}
	if err := r.CreateTx(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration: %w", err)
	}
	committed = true
	return nil
}

// List returns up to limit registrations, newest first.  A non-positive
// limit defaults to 100.  Legacy object-encoded events columns are decoded
// the same way the availability tally reads them; undecodable ones are
// returned with a nil Events slice.
func (r *RegistrationRepo) List(ctx context.Context, limit int) ([]model.Registration, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT id, name, email, phone, college, branch, year, events, created_at
	           FROM registrations
	           ORDER BY id DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()
	out := []model.Registration{}
	for rows.Next() {
		var (
			rec       model.Registration
			raw       []byte
			createdMs int64
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Email, &rec.Phone, &rec.College,
			&rec.Branch, &rec.Year, &raw, &createdMs); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		if sel, err := availability.DecodeSelection(raw); err == nil {
			rec.Events = sel.Indices
		}
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, nil
}
