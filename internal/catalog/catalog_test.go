package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Greater(t, c.Len(), 0)
	assert.True(t, c.HasCollege("Other"))
	assert.False(t, c.HasCollege("Hogwarts"))
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Events, c.Events)
}

func TestLoadFile(t *testing.T) {
	doc := `
events:
  - name: Go Workshop
    type: Workshop
    speaker: Gopher
    date: 1 May
    time: 10 AM
    seats: 1
  - name: Keynote
    seats: 50
colleges: [A, B]
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, []int{1, 50}, c.Capacities())

	ev, ok := c.Lookup(0)
	require.True(t, ok)
	assert.Equal(t, "Go Workshop", ev.Name)
	assert.Equal(t, "Gopher", ev.Speaker)

	_, ok = c.Lookup(2)
	assert.False(t, ok)
	_, ok = c.Lookup(-1)
	assert.False(t, ok)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := map[string]string{
		"no events":      "colleges: [A]",
		"zero seats":     "events: [{name: X, seats: 0}]",
		"missing name":   "events: [{seats: 3}]",
		"dup college":    "events: [{name: X, seats: 3}]\ncolleges: [A, A]",
		"malformed yaml": "events: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestYears(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, Years())
	assert.True(t, ValidYear("5"))
	assert.False(t, ValidYear("0"))
	assert.False(t, ValidYear("6"))
	assert.False(t, ValidYear(""))
}
