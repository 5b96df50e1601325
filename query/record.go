package query

import "fmt"

// Record is a single item tested against a predicate.
// The evaluators never modify it.
type Record map[string]Value

// Get returns the value stored under name.
func (r Record) Get(name string) (Value, bool) {
	v, ok := r[name]
	return v, ok
}

// Map returns the record as plain Go values, suitable for JSON encoding.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for k, v := range r {
		m[k] = v.Any()
	}
	return m
}

// RecordFromMap builds a Record from decoded JSON.
// Nested objects and arrays are rejected.
func RecordFromMap(m map[string]any) (Record, error) {
	rec := make(Record, len(m))
	for k, x := range m {
		v, err := FromAny(x)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		rec[k] = v
	}
	return rec, nil
}
