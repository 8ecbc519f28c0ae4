package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTodo(t *testing.T, id, title string, now time.Time) *Record {
	t.Helper()
	rec, err := Encode(Todo{ID: id, Title: title}, now)
	require.NoError(t, err)
	return rec
}

func TestNewRecord(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		wantErr error
		name    string
		id      string
		typ     string
		data    string
	}{
		{name: "valid", id: "a", typ: TypeTodo, data: `{"id":"a","title":"x"}`},
		{name: "empty id", id: "", typ: TypeTodo, data: `{}`, wantErr: ErrEmptyID},
		{name: "empty type", id: "a", typ: "", data: `{}`, wantErr: ErrEmptyType},
		{name: "not an object", id: "a", typ: TypeTodo, data: `[1,2]`, wantErr: ErrDeserialization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := NewRecord(tt.id, tt.typ, json.RawMessage(tt.data), now)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatePending, rec.State)
			assert.Equal(t, []string{"id", "title"}, rec.DirtyFields.Names())
			assert.Equal(t, now, rec.CreatedAt)
			assert.Equal(t, now, rec.UpdatedAt)
			assert.False(t, rec.Acknowledged())
		})
	}
}

func TestRecord_MarkSynced(t *testing.T) {
	now := time.Now()
	rec := newTestTodo(t, "a", "x", now)
	rec.MarkFailed(errors.New("boom"), now)
	require.Equal(t, 1, rec.Attempts)

	rec.MarkSynced(now.Add(time.Second))

	assert.Equal(t, StateSynced, rec.State)
	assert.Empty(t, rec.DirtyFields)
	assert.Empty(t, rec.SyncError)
	assert.Equal(t, 0, rec.Attempts)
	assert.True(t, rec.Acknowledged())
	assert.False(t, rec.IsPending())
}

func TestRecord_MarkFailed_PreservesDirtyFields(t *testing.T) {
	now := time.Now()
	rec := newTestTodo(t, "a", "x", now)
	before := rec.DirtyFields.Names()

	for i := 1; i <= 3; i++ {
		rec.MarkFailed(errors.New("server error (500)"), now)
		assert.Equal(t, StateFailed, rec.State)
		assert.Equal(t, i, rec.Attempts)
		assert.Equal(t, before, rec.DirtyFields.Names())
		assert.Equal(t, "server error (500)", rec.SyncError)
	}
}

func TestRecord_Touch(t *testing.T) {
	now := time.Now()
	rec := newTestTodo(t, "a", "x", now)
	rec.MarkSynced(now)

	later := now.Add(time.Minute)
	rec.Touch(later, "title")

	// Синхронизированная запись снова становится pending
	assert.Equal(t, StatePending, rec.State)
	assert.Equal(t, []string{"title"}, rec.DirtyFields.Names())
	assert.Equal(t, later, rec.UpdatedAt)
}

func TestRecord_Payload(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := newTestTodo(t, "a", "x", created)

	payload, err := rec.Payload()
	require.NoError(t, err)

	assert.JSONEq(t, `"a"`, string(payload[FieldID]))
	assert.JSONEq(t, `"x"`, string(payload["title"]))
	assert.JSONEq(t, `"2025-03-01T10:00:00Z"`, string(payload[FieldUpdatedAt]))
	assert.Contains(t, payload, FieldCreatedAt)
}

func TestRecord_Clone(t *testing.T) {
	rec := newTestTodo(t, "a", "x", time.Now())
	clone := rec.Clone()

	clone.DirtyFields.Add("extra")
	clone.Data[0] = ' '

	assert.False(t, rec.DirtyFields.Contains("extra"))
	assert.NotEqual(t, clone.Data[0], rec.Data[0])
}

func TestRecord_JSONRoundTripKeepsState(t *testing.T) {
	rec := newTestTodo(t, "a", "x", time.Now().UTC())
	rec.MarkFailed(errors.New("timeout"), time.Now().UTC())

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"failed"`)

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, StateFailed, back.State)
	assert.Equal(t, 1, back.Attempts)
	assert.Equal(t, rec.DirtyFields.Names(), back.DirtyFields.Names())
}
