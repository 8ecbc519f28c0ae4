package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Identifiable is implemented by every concrete record type.
type Identifiable interface {
	RecordID() string
}

// Synchronizable is a concrete record type that can be stored and synced.
// Serialization is the type's own encoding/json schema.
type Synchronizable interface {
	Identifiable
	RecordType() string
}

// Encode wraps a concrete value into a new pending Record.
func Encode[T Synchronizable](v T, now time.Time) (*Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", v.RecordType(), err)
	}
	return NewRecord(v.RecordID(), v.RecordType(), data, now)
}

// Decode unpacks the record payload into its concrete type.
func Decode[T Synchronizable](r *Record) (T, error) {
	var v T
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return v, fmt.Errorf("%w: %s %s: %v", ErrDeserialization, r.Type, r.ID, err)
	}
	if v.RecordType() != r.Type {
		return v, fmt.Errorf("%w: record %s has type %q, want %q", ErrConfiguration, r.ID, r.Type, v.RecordType())
	}
	return v, nil
}

// Mutate applies fn to the decoded value and writes the result back into r.
// fn returns the names of the fields it changed; they become dirty and
// UpdatedAt is bumped. When fn reports no changes the record is left as is.
func Mutate[T Synchronizable](r *Record, now time.Time, fn func(v *T) []string) (T, error) {
	v, err := Decode[T](r)
	if err != nil {
		return v, err
	}

	changed := fn(&v)
	if len(changed) == 0 {
		return v, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("failed to marshal %s: %w", r.Type, err)
	}
	r.Data = data
	r.Touch(now, changed...)

	return v, nil
}
