package availability

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSelectionList(t *testing.T) {
	sel, err := DecodeSelection([]byte(`[0,2]`))
	require.NoError(t, err)
	assert.Equal(t, SelectionList, sel.Kind)
	assert.Equal(t, []int{0, 2}, sel.Indices)
}

func TestDecodeSelectionMapOrdersByKey(t *testing.T) {
	sel, err := DecodeSelection([]byte(`{"b":2,"a":0}`))
	require.NoError(t, err)
	assert.Equal(t, SelectionMap, sel.Kind)
	assert.Equal(t, []int{0, 2}, sel.Indices)
}

func TestDecodeSelectionDoubleEncoded(t *testing.T) {
	sel, err := DecodeSelection([]byte(`"[1,3]"`))
	require.NoError(t, err)
	assert.Equal(t, SelectionList, sel.Kind)
	assert.Equal(t, []int{1, 3}, sel.Indices)

	_, err = DecodeSelection([]byte(`"\"[1]\""`))
	assert.ErrorIs(t, err, ErrUnsupportedShape)
}

func TestDecodeSelectionRejectsOtherShapes(t *testing.T) {
	for _, raw := range []string{``, `   `, `3`, `null`, `true`} {
		_, err := DecodeSelection([]byte(raw))
		assert.ErrorIs(t, err, ErrUnsupportedShape, "input %q", raw)
	}
	_, err := DecodeSelection([]byte(`["x"]`))
	assert.Error(t, err)
	_, err = DecodeSelection([]byte(`{"a":"x"}`))
	assert.Error(t, err)
}

func TestSelectionAsJSONField(t *testing.T) {
	var row struct {
		Events Selection `json:"events"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"events":{"first":4}}`), &row))
	assert.Equal(t, SelectionMap, row.Events.Kind)
	assert.Equal(t, []int{4}, row.Events.Indices)
	assert.Equal(t, "map", row.Events.Kind.String())
}
