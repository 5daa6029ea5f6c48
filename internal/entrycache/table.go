package entrycache

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/LavishGent/nekocache/internal/types"
)

// Entry is one cached entity: named provider payloads under a stable id.
type Entry struct {
	Fields map[string]json.RawMessage
	Key    int
}

// Has reports whether the provider's payload is present.
func (e Entry) Has(provider string) bool {
	_, ok := e.Fields[provider]
	return ok
}

// Decode unmarshals the provider's payload into dest.
func (e Entry) Decode(provider string, dest any) error {
	raw, ok := e.Fields[provider]
	if !ok {
		return fmt.Errorf("entry %d has no %s payload: %w", e.Key, provider, types.ErrNoResult)
	}
	return json.Unmarshal(raw, dest)
}

func (e Entry) clone() Entry {
	return Entry{Key: e.Key, Fields: maps.Clone(e.Fields)}
}

// table is the persisted entry list, least recently touched first.
type table []Entry

func (t table) index(key int) int {
	for i, e := range t {
		if e.Key == key {
			return i
		}
	}
	return -1
}

// touch moves the entry at i to the end.
func (t table) touch(i int) table {
	e := t[i]
	t = append(t[:i], t[i+1:]...)
	return append(t, e)
}

// rows is the on-disk shape: [[key, {provider: payload}], ...].
func (t table) rows() [][2]any {
	out := make([][2]any, len(t))
	for i, e := range t {
		fields := e.Fields
		if fields == nil {
			fields = map[string]json.RawMessage{}
		}
		out[i] = [2]any{e.Key, fields}
	}
	return out
}

// decodeTable parses a persisted blob. Rows that are not [key, object] pairs
// make the whole blob invalid. Non-positive keys are dropped and a repeated
// key keeps its later occurrence.
func decodeTable(s types.Serializer, data []byte) (table, error) {
	var raw []json.RawMessage
	if err := s.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	t := make(table, 0, len(raw))
	for i, r := range raw {
		var pair []json.RawMessage
		if err := s.Unmarshal(r, &pair); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if len(pair) != 2 {
			return nil, fmt.Errorf("row %d: want [key, fields], got %d elements", i, len(pair))
		}

		var key int
		if err := s.Unmarshal(pair[0], &key); err != nil {
			return nil, fmt.Errorf("row %d key: %w", i, err)
		}

		var fields map[string]json.RawMessage
		if err := s.Unmarshal(pair[1], &fields); err != nil {
			return nil, fmt.Errorf("row %d fields: %w", i, err)
		}
		if fields == nil {
			return nil, fmt.Errorf("row %d: fields must be an object", i)
		}

		if key <= 0 {
			continue
		}
		if j := t.index(key); j >= 0 {
			t = append(t[:j], t[j+1:]...)
		}
		t = append(t, Entry{Key: key, Fields: fields})
	}
	return t, nil
}
