package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SyncState describes where a local record stands relative to the server copy.
type SyncState int

const (
	// StatePending means the record was never synced, or was synced and then edited locally.
	StatePending SyncState = iota
	// StateSynced means the server acknowledged the current local version.
	StateSynced
	// StateFailed means the last sync attempt for this record failed.
	StateFailed
)

func (s SyncState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSynced:
		return "synced"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("SyncState(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler so the state is stored by name.
func (s SyncState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SyncState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*s = StatePending
	case "synced":
		*s = StateSynced
	case "failed":
		*s = StateFailed
	default:
		return fmt.Errorf("unknown sync state %q", string(text))
	}
	return nil
}

// Record is a versioned, identifiable unit of synchronizable state.
//
// Data holds the JSON object serialization of the concrete record type
// (see Encode / Decode). Invariants:
//   - State == StateSynced implies DirtyFields is empty
//   - State == StateFailed implies Attempts >= 1
type Record struct {
	CreatedAt     time.Time       `json:"created_at"`      // CreatedAt время создания записи на клиенте
	UpdatedAt     time.Time       `json:"updated_at"`      // UpdatedAt меняется при каждой логической мутации
	SyncedAt      time.Time       `json:"synced_at"`       // SyncedAt последнее подтверждение сервера (zero = никогда)
	LastAttemptAt time.Time       `json:"last_attempt_at"` // LastAttemptAt время последней неудачной попытки
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	SyncError     string          `json:"sync_error,omitempty"`
	Data          json.RawMessage `json:"data"`
	DirtyFields   FieldSet        `json:"dirty_fields,omitempty"`
	Attempts      int             `json:"attempts"`
	State         SyncState       `json:"state"`
}

// NewID returns a new client-generated record identifier.
func NewID() string {
	return uuid.New().String()
}

// NewRecord creates a pending record. Every top-level field of data is marked dirty.
func NewRecord(id, recordType string, data json.RawMessage, now time.Time) (*Record, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	if recordType == "" {
		return nil, ErrEmptyType
	}

	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	dirty := make(FieldSet, len(fields))
	for name := range fields {
		dirty.Add(name)
	}

	return &Record{
		ID:          id,
		Type:        recordType,
		Data:        data,
		DirtyFields: dirty,
		State:       StatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Touch registers a local mutation of the given fields.
// A synced record becomes pending again.
func (r *Record) Touch(now time.Time, fields ...string) {
	if r.DirtyFields == nil {
		r.DirtyFields = make(FieldSet, len(fields))
	}
	r.DirtyFields.Add(fields...)
	r.UpdatedAt = now
	if r.State == StateSynced {
		r.State = StatePending
	}
}

// MarkSynced records a successful server acknowledgment.
func (r *Record) MarkSynced(now time.Time) {
	r.State = StateSynced
	r.DirtyFields = nil
	r.SyncError = ""
	r.Attempts = 0
	r.SyncedAt = now
}

// MarkFailed records a failed sync attempt. DirtyFields are kept.
func (r *Record) MarkFailed(cause error, now time.Time) {
	r.State = StateFailed
	r.Attempts++
	r.LastAttemptAt = now
	if cause != nil {
		r.SyncError = cause.Error()
	}
}

// IsPending reports whether the record has local changes not acknowledged by the server.
func (r *Record) IsPending() bool {
	return r.State != StateSynced
}

// Acknowledged reports whether the server has accepted some version of the record.
func (r *Record) Acknowledged() bool {
	return !r.SyncedAt.IsZero()
}

// Fields decodes Data into a map of top-level fields.
func (r *Record) Fields() (map[string]json.RawMessage, error) {
	return decodeObject(r.Data)
}

// Payload returns the full wire body: the record serialization plus id and timestamps.
func (r *Record) Payload() (map[string]json.RawMessage, error) {
	fields, err := r.Fields()
	if err != nil {
		return nil, err
	}

	id, _ := json.Marshal(r.ID)
	createdAt, _ := json.Marshal(r.CreatedAt.UTC())
	updatedAt, _ := json.Marshal(r.UpdatedAt.UTC())

	fields[FieldID] = id
	fields[FieldCreatedAt] = createdAt
	fields[FieldUpdatedAt] = updatedAt

	return fields, nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.Data != nil {
		c.Data = append(json.RawMessage(nil), r.Data...)
	}
	if r.DirtyFields != nil {
		c.DirtyFields = make(FieldSet, len(r.DirtyFields))
		for name := range r.DirtyFields {
			c.DirtyFields[name] = struct{}{}
		}
	}
	return &c
}

// Key returns the composite store key of the record.
func (r *Record) Key() string {
	return r.Type + "/" + r.ID
}

// Wire field names shared by every record payload.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// FieldSet is a set of field names.
type FieldSet map[string]struct{}

// NewFieldSet builds a set from names.
func NewFieldSet(names ...string) FieldSet {
	s := make(FieldSet, len(names))
	s.Add(names...)
	return s
}

// Add inserts names into the set.
func (s FieldSet) Add(names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		s[name] = struct{}{}
	}
}

// Contains reports whether name is in the set.
func (s FieldSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the set members in sorted order.
func (s FieldSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON encodes the set as a sorted array.
func (s FieldSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON decodes the set from an array of names.
func (s *FieldSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = NewFieldSet(names...)
	return nil
}

func decodeObject(data json.RawMessage) (map[string]json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: record data is not a JSON object: %v", ErrDeserialization, err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}
