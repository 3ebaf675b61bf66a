package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/event-registration/internal/availability"
	"github.com/iliyamo/event-registration/internal/catalog"
	"github.com/iliyamo/event-registration/internal/metrics"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/queue"
	"github.com/iliyamo/event-registration/internal/repository"
)

// Inserter stores a registration.  Implementations must write the record
// at most once per call and may reject it with *repository.EventFullError.
type Inserter interface {
	InsertRegistration(ctx context.Context, rec *model.Registration) error
}

// Publisher announces stored registrations.
type Publisher interface {
	PublishRegistrationCreated(ctx context.Context, ev queue.RegistrationCreatedEvent) error
}

// Notice levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Notice is the user-facing outcome of a submission.
type Notice struct {
	Level       string `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

var (
	// ErrSubmitInFlight is returned when the same form, or another form for
	// the same email, is already being submitted.
	ErrSubmitInFlight = errors.New("submission already in progress")
	// ErrSubmitFailed wraps store failures other than a full event.
	ErrSubmitFailed = errors.New("registration failed")
)

var (
	successNotice = Notice{
		Level:       LevelSuccess,
		Title:       "Registration Successful!",
		Description: "We're excited to see you at the event!",
	}
	failedNotice = Notice{
		Level:       LevelError,
		Title:       "Registration Failed",
		Description: "Please try again later.",
	}
	inFlightNotice = Notice{
		Level:       LevelError,
		Title:       "Submission in progress",
		Description: "Please wait for the current submission to finish.",
	}
)

const publishTimeout = 5 * time.Second

// Submitter validates forms and writes them to the store.
type Submitter struct {
	catalog *catalog.Catalog
	counts  *availability.Counts
	store   Inserter
	logger  *slog.Logger

	// Publisher is optional; when set every stored registration is
	// announced on it.  Publish failures are logged only.
	Publisher Publisher
	// Metrics is optional.
	Metrics *metrics.Submissions

	inflight sync.Map // lower-cased email -> struct{}
}

// NewSubmitter returns a submitter checking against cat and counts and
// writing to store.
func NewSubmitter(cat *catalog.Catalog, counts *availability.Counts, store Inserter, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{catalog: cat, counts: counts, store: store, logger: logger}
}

// Submit validates f and, if it passes, inserts it exactly once.  On
// success the form is cleared and the local count of every selected event
// goes up by one.  A rejected or failed submission leaves both the form and
// the counts untouched, except that an event the store reports full is
// marked full locally.  The returned Notice is meant for the attendee; the
// error tells the caller which kind of failure occurred.
func (s *Submitter) Submit(ctx context.Context, f *Form) (Notice, error) {
	if !f.submitting.CompareAndSwap(false, true) {
		s.Metrics.Observe(metrics.ResultInFlight)
		return inFlightNotice, ErrSubmitInFlight
	}
	defer f.submitting.Store(false)

	selected, err := Validate(f, s.catalog, s.counts)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) && ve.Full {
			s.Metrics.Observe(metrics.ResultFull)
		} else {
			s.Metrics.Observe(metrics.ResultInvalid)
		}
		return Notice{Level: LevelError, Title: err.Error()}, err
	}

	key := strings.ToLower(f.Email)
	if _, busy := s.inflight.LoadOrStore(key, struct{}{}); busy {
		s.Metrics.Observe(metrics.ResultInFlight)
		return inFlightNotice, ErrSubmitInFlight
	}
	defer s.inflight.Delete(key)

	rec := f.record(selected)
	if err := s.store.InsertRegistration(ctx, rec); err != nil {
		var full *repository.EventFullError
		if errors.As(err, &full) {
			ev, _ := s.catalog.Lookup(full.Index)
			s.counts.Saturate(full.Index, ev.Seats)
			s.Metrics.Observe(metrics.ResultFull)
			ve := &ValidationError{Field: "events", EventIndex: full.Index, Message: FullMessage(ev.Name), Full: true}
			return Notice{Level: LevelError, Title: ve.Message}, ve
		}
		s.logger.Error("Error submitting registration", slog.String("error", err.Error()))
		s.Metrics.Observe(metrics.ResultFailed)
		return failedNotice, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	s.counts.Increment(selected)
	s.Metrics.Observe(metrics.ResultSuccess)
	s.Metrics.Registered(s.eventNames(selected)...)
	f.Reset()
	s.logger.Info("registration stored",
		slog.Uint64("registration_id", rec.ID),
		slog.Any("events", selected))

	s.publish(ctx, rec)
	return successNotice, nil
}

func (s *Submitter) publish(ctx context.Context, rec *model.Registration) {
	if s.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	ev := queue.RegistrationCreatedEvent{
		RegistrationID: rec.ID,
		Name:           rec.Name,
		Email:          rec.Email,
		College:        rec.College,
		Branch:         rec.Branch,
		Year:           rec.Year,
		Events:         rec.Events,
		EventNames:     s.eventNames(rec.Events),
		CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := s.Publisher.PublishRegistrationCreated(ctx, ev); err != nil {
		s.logger.Warn("publish registration.created failed",
			slog.Uint64("registration_id", rec.ID),
			slog.String("error", err.Error()))
	}
}

func (s *Submitter) eventNames(indices []int) []string {
	names := make([]string, 0, len(indices))
	for _, i := range indices {
		if ev, ok := s.catalog.Lookup(i); ok {
			names = append(names, ev.Name)
		}
	}
	return names
}
