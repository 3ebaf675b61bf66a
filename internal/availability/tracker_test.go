package availability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-registration/internal/catalog"
	"github.com/iliyamo/event-registration/internal/model"
)

type stubSource struct {
	rows [][]byte
	err  error
}

func (s stubSource) ListEventSelections(context.Context) ([][]byte, error) {
	return s.rows, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTrackerLoad(t *testing.T) {
	src := stubSource{rows: [][]byte{[]byte(`[0]`), []byte(`{"a":0,"b":1}`)}}
	tr := NewTracker(src, 2, quietLogger())

	require.NoError(t, tr.Load(context.Background()))
	assert.Equal(t, []int{2, 1}, tr.Counts().Snapshot())
}

func TestTrackerLoadFailsOpen(t *testing.T) {
	boom := errors.New("network down")
	tr := NewTracker(stubSource{err: boom}, 3, quietLogger())

	err := tr.Load(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{0, 0, 0}, tr.Counts().Snapshot())
}

func TestCountsIncrementAndSaturate(t *testing.T) {
	c := NewCounts(3)
	c.Increment([]int{0, 2, 2, 9, -1})
	assert.Equal(t, []int{1, 0, 2}, c.Snapshot())

	c.Saturate(1, 5)
	assert.Equal(t, 5, c.Get(1))
	c.Saturate(2, 1)
	assert.Equal(t, 2, c.Get(2), "saturate never lowers a count")
	assert.Equal(t, 0, c.Get(42))

	c.Replace([]int{7})
	assert.Equal(t, []int{7, 0, 0}, c.Snapshot())
}

func TestCountsConcurrentIncrements(t *testing.T) {
	c := NewCounts(1)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Increment([]int{0})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Get(0))
}

func TestDescribe(t *testing.T) {
	cat := &catalog.Catalog{Events: []model.EventDefinition{
		{Name: "Big", Seats: 100},
		{Name: "Small", Seats: 25},
		{Name: "Tiny", Seats: 1},
		{Name: "Over", Seats: 2},
	}}
	got := Describe(cat, []int{10, 10, 1, 3})
	require.Len(t, got, 4)

	assert.Equal(t, StatusOpen, got[0].Status)
	assert.Equal(t, "Available Seats: 90", got[0].Label)

	assert.Equal(t, StatusHurry, got[1].Status)
	assert.Equal(t, "Hurry Up! Only 15 Seats Available", got[1].Label)

	assert.Equal(t, StatusFull, got[2].Status)
	assert.Equal(t, "Seats Full :(", got[2].Label)

	assert.Equal(t, StatusFull, got[3].Status)
	assert.Equal(t, 0, got[3].Remaining)
	assert.Equal(t, "Over", got[3].Name)
}
