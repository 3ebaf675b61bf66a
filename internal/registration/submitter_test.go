package registration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-registration/internal/availability"
	"github.com/iliyamo/event-registration/internal/metrics"
	"github.com/iliyamo/event-registration/internal/model"
	"github.com/iliyamo/event-registration/internal/queue"
	"github.com/iliyamo/event-registration/internal/repository"
)

type fakeStore struct {
	mu      sync.Mutex
	calls   int
	err     error
	records []model.Registration
	block   chan struct{}
}

func (s *fakeStore) InsertRegistration(ctx context.Context, rec *model.Registration) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	rec.ID = uint64(len(s.records) + 1)
	rec.CreatedAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.records = append(s.records, *rec)
	return nil
}

func (s *fakeStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []queue.RegistrationCreatedEvent
}

func (p *fakePublisher) PublishRegistrationCreated(ctx context.Context, ev queue.RegistrationCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func newTestSubmitter(store Inserter) (*Submitter, *availability.Counts) {
	cat := testCatalog()
	counts := availability.NewCounts(cat.Len())
	s := NewSubmitter(cat, counts, store, nil)
	s.Metrics = metrics.New(nil)
	return s, counts
}

func TestSubmitSuccess(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	s, counts := newTestSubmitter(store)
	s.Publisher = pub

	f := validForm(1, 2)
	notice, err := s.Submit(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, LevelSuccess, notice.Level)
	assert.Equal(t, "Registration Successful!", notice.Title)
	assert.Equal(t, "We're excited to see you at the event!", notice.Description)

	assert.Equal(t, []int{0, 1, 1}, counts.Snapshot())
	assert.Equal(t, 1, store.Calls())
	assert.Equal(t, []int{1, 2}, store.records[0].Events)
	assert.Equal(t, "asha@example.com", store.records[0].Email)

	assert.Empty(t, f.Name)
	assert.Empty(t, f.Selected)
	assert.False(t, f.Submitting())

	require.Len(t, pub.events, 1)
	assert.Equal(t, uint64(1), pub.events[0].RegistrationID)
	assert.Equal(t, []string{"Keynote", "Panel"}, pub.events[0].EventNames)
	assert.Equal(t, "2025-03-01T10:00:00Z", pub.events[0].CreatedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.Total.WithLabelValues(metrics.ResultSuccess)))
}

func TestSubmitValidationMakesNoInsert(t *testing.T) {
	store := &fakeStore{}
	s, counts := newTestSubmitter(store)

	for _, mutate := range []func(*Form){
		func(f *Form) { f.Email = "nope" },
		func(f *Form) { f.Phone = "12345" },
		func(f *Form) { f.Selected = nil },
	} {
		f := validForm(1)
		mutate(f)
		email, phone := f.Email, f.Phone
		notice, err := s.Submit(context.Background(), f)
		requireValidation(t, err)
		assert.Equal(t, LevelError, notice.Level)
		assert.Equal(t, err.Error(), notice.Title)
		assert.Equal(t, email, f.Email)
		assert.Equal(t, phone, f.Phone)
	}
	assert.Equal(t, 0, store.Calls())
	assert.Equal(t, []int{0, 0, 0}, counts.Snapshot())
}

func TestSubmitFullEventMakesNoInsert(t *testing.T) {
	store := &fakeStore{}
	s, counts := newTestSubmitter(store)
	counts.Replace([]int{1, 0, 0})

	notice, err := s.Submit(context.Background(), validForm(1, 0))
	ve := requireValidation(t, err)
	assert.True(t, ve.Full)
	assert.Equal(t, `Registration for "Go Workshop" is full. Please select another event.`, notice.Title)
	assert.Equal(t, 0, store.Calls())
	assert.Equal(t, []int{1, 0, 0}, counts.Snapshot())
}

func TestSubmitLastSeatThenFull(t *testing.T) {
	store := &fakeStore{}
	s, counts := newTestSubmitter(store)

	_, err := s.Submit(context.Background(), validForm(0))
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Get(0))

	second := validForm(0)
	second.Email = "ravi@example.com"
	_, err = s.Submit(context.Background(), second)
	ve := requireValidation(t, err)
	assert.True(t, ve.Full)
	assert.Equal(t, 0, ve.EventIndex)
	assert.Equal(t, 1, store.Calls())
	assert.Equal(t, "ravi@example.com", second.Email)
}

func TestSubmitStoreFailureKeepsFormAndCounts(t *testing.T) {
	store := &fakeStore{err: errors.New("connection reset")}
	pub := &fakePublisher{}
	s, counts := newTestSubmitter(store)
	s.Publisher = pub

	f := validForm(1)
	notice, err := s.Submit(context.Background(), f)
	assert.ErrorIs(t, err, ErrSubmitFailed)
	assert.Equal(t, "Registration Failed", notice.Title)
	assert.Equal(t, "Please try again later.", notice.Description)
	assert.Equal(t, []int{0, 0, 0}, counts.Snapshot())
	assert.Equal(t, "Asha K", f.Name)
	assert.Equal(t, []int{1}, f.Selected)
	assert.Empty(t, pub.events)

	// resubmission is allowed and is a fresh single attempt
	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	_, err = s.Submit(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Calls())
	assert.Equal(t, []int{0, 1, 0}, counts.Snapshot())
}

func TestSubmitStoreFullSaturatesLocalCount(t *testing.T) {
	store := &fakeStore{err: &repository.EventFullError{Index: 2}}
	s, counts := newTestSubmitter(store)

	notice, err := s.Submit(context.Background(), validForm(1, 2))
	ve := requireValidation(t, err)
	assert.True(t, ve.Full)
	assert.Equal(t, `Registration for "Panel" is full. Please select another event.`, notice.Title)
	assert.Equal(t, []int{0, 0, 2}, counts.Snapshot())

	// the next attempt is rejected locally
	_, err = s.Submit(context.Background(), validForm(2))
	requireValidation(t, err)
	assert.Equal(t, 1, store.Calls())
}

func TestSubmitPublishFailureIsIgnored(t *testing.T) {
	store := &fakeStore{}
	s, _ := newTestSubmitter(store)
	s.Publisher = &fakePublisher{err: errors.New("broker down")}

	notice, err := s.Submit(context.Background(), validForm(1))
	require.NoError(t, err)
	assert.Equal(t, LevelSuccess, notice.Level)
}

func TestSubmitRejectsFormAlreadyInFlight(t *testing.T) {
	s, _ := newTestSubmitter(&fakeStore{})
	f := validForm(1)
	f.submitting.Store(true)

	_, err := s.Submit(context.Background(), f)
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	assert.Equal(t, "Asha K", f.Name)
}

func TestSubmitRejectsConcurrentSameEmail(t *testing.T) {
	store := &fakeStore{block: make(chan struct{})}
	s, counts := newTestSubmitter(store)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), validForm(1))
		done <- err
	}()

	// wait until the first submission holds the email
	require.Eventually(t, func() bool {
		_, busy := s.inflight.Load("asha@example.com")
		return busy
	}, time.Second, 5*time.Millisecond)

	dup := validForm(1)
	dup.Email = "ASHA@example.com"
	_, err := s.Submit(context.Background(), dup)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(store.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, store.Calls())
	assert.Equal(t, 1, counts.Get(1))
}

func TestSubmitStoresFieldsAsEntered(t *testing.T) {
	store := &fakeStore{}
	s, _ := newTestSubmitter(store)

	f := validForm(1)
	f.Name = "  Asha K "
	f.Branch = " CS"
	_, err := s.Submit(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, store.records, 1)
	assert.Equal(t, "  Asha K ", store.records[0].Name)
	assert.Equal(t, " CS", store.records[0].Branch)
}
