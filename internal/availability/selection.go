package availability

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// SelectionKind identifies which encoding a stored events column used.
type SelectionKind int

const (
	// SelectionList is the current encoding: a JSON array of indices.
	SelectionList SelectionKind = iota + 1
	// SelectionMap is the legacy encoding: a JSON object whose values are
	// indices.  Keys carry no meaning.
	SelectionMap
)

func (k SelectionKind) String() string {
	switch k {
	case SelectionList:
		return "list"
	case SelectionMap:
		return "map"
	default:
		return "unknown"
	}
}

// ErrUnsupportedShape is returned when an events column is neither a JSON
// array nor a JSON object.
var ErrUnsupportedShape = errors.New("unsupported events shape")

// Selection is the decoded events column of one registration.
type Selection struct {
	Kind    SelectionKind
	Indices []int
}

// DecodeSelection decodes a raw events column.
func DecodeSelection(raw []byte) (Selection, error) {
	var s Selection
	err := s.UnmarshalJSON(raw)
	return s, err
}

// UnmarshalJSON implements json.Unmarshaler.  Object values are returned in
// key order so decoding is deterministic.  A JSON string is unwrapped once,
// which covers rows where the array was stored double encoded.
func (s *Selection) UnmarshalJSON(data []byte) error {
	return s.decode(data, true)
}

func (s *Selection) decode(data []byte, allowString bool) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("%w: empty", ErrUnsupportedShape)
	}
	switch trimmed[0] {
	case '[':
		var list []int
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("decode event list: %w", err)
		}
		s.Kind, s.Indices = SelectionList, list
		return nil
	case '{':
		var m map[string]int
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return fmt.Errorf("decode event map: %w", err)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		indices := make([]int, 0, len(keys))
		for _, k := range keys {
			indices = append(indices, m[k])
		}
		s.Kind, s.Indices = SelectionMap, indices
		return nil
	case '"':
		if !allowString {
			break
		}
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return fmt.Errorf("decode event string: %w", err)
		}
		return s.decode([]byte(inner), false)
	}
	return fmt.Errorf("%w: %.20q", ErrUnsupportedShape, trimmed)
}
