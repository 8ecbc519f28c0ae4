package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/models"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// setupTestStorage создает хранилище во временной директории
func setupTestStorage(t *testing.T, opts ...Option) *Storage {
	t.Helper()

	s, err := New(context.Background(), filepath.Join(t.TempDir(), "records.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func newTestRecord(t *testing.T, id, recordType, data string) *models.Record {
	t.Helper()
	rec, err := models.NewRecord(id, recordType, json.RawMessage(data), testNow)
	require.NoError(t, err)
	return rec
}

func TestNew_Migrations(t *testing.T) {
	s := setupTestStorage(t)

	var name string
	err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'records'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "records", name)

	// повторное открытие той же базы не падает на миграциях
	path := filepath.Join(t.TempDir(), "twice.db")
	s1, err := New(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())
	s2, err := New(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestStorage_SaveGetUpsert(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	rec := newTestRecord(t, "a", "todo", `{"title":"x","done":false}`)
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Get(ctx, "a", "todo")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, models.StatePending, got.State)
	assert.JSONEq(t, `{"title":"x","done":false}`, string(got.Data))
	assert.Equal(t, []string{"done", "title"}, got.DirtyFields.Names())
	assert.True(t, testNow.Equal(got.CreatedAt))
	assert.True(t, got.SyncedAt.IsZero())

	rec.Data = json.RawMessage(`{"title":"y","done":true}`)
	rec.MarkSynced(testNow.Add(time.Second))
	require.NoError(t, s.Save(ctx, rec))

	got, err = s.Get(ctx, "a", "todo")
	require.NoError(t, err)
	assert.Equal(t, models.StateSynced, got.State)
	assert.Nil(t, got.DirtyFields)
	assert.JSONEq(t, `{"title":"y","done":true}`, string(got.Data))
	assert.True(t, testNow.Add(time.Second).Equal(got.SyncedAt))

	_, err = s.Get(ctx, "a", "note")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	assert.ErrorIs(t, s.Save(ctx, &models.Record{ID: "x"}), storage.ErrInvalidRecord)
}

func TestStorage_PendingQueries(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	pending := newTestRecord(t, "p", "todo", `{}`)
	synced := newTestRecord(t, "s", "todo", `{}`)
	synced.MarkSynced(testNow)
	failed := newTestRecord(t, "f", "todo", `{}`)
	failed.MarkFailed(errors.New("boom"), testNow)
	note := newTestRecord(t, "n", "note", `{}`)

	require.NoError(t, s.SaveAll(ctx, []*models.Record{pending, synced, failed, note}))

	all, err := s.GetAll(ctx, "todo")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := s.GetPending(ctx, "todo")
	require.NoError(t, err)
	ids := []string{}
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"p", "f"}, ids)

	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestStorage_MarkSyncedAndFailed(t *testing.T) {
	ctx := context.Background()
	at := testNow.Add(time.Minute)
	s := setupTestStorage(t, WithClock(func() time.Time { return at }))

	rec := newTestRecord(t, "a", "todo", `{"title":"x"}`)
	require.NoError(t, s.Save(ctx, rec))

	require.NoError(t, s.MarkFailed(ctx, rec, rec.UpdatedAt, errors.New("first")))
	require.NoError(t, s.MarkFailed(ctx, rec, rec.UpdatedAt, nil))

	got, err := s.Get(ctx, "a", "todo")
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, got.State)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, "first", got.SyncError)
	assert.Equal(t, []string{"title"}, got.DirtyFields.Names())
	assert.True(t, at.Equal(got.LastAttemptAt))

	require.NoError(t, s.MarkSynced(ctx, got, got.UpdatedAt))
	got, err = s.Get(ctx, "a", "todo")
	require.NoError(t, err)
	assert.Equal(t, models.StateSynced, got.State)
	assert.Equal(t, 0, got.Attempts)
	assert.Empty(t, got.SyncError)
	assert.Nil(t, got.DirtyFields)

	// отсутствующая запись сохраняется как есть
	require.NoError(t, s.MarkSynced(ctx, newTestRecord(t, "missing", "todo", `{}`), time.Time{}))
	got, err = s.Get(ctx, "missing", "todo")
	require.NoError(t, err)
	assert.Equal(t, models.StateSynced, got.State)
}

func TestStorage_VersionChanged(t *testing.T) {
	ctx := context.Background()
	at := testNow.Add(time.Minute)
	s := setupTestStorage(t, WithClock(func() time.Time { return at }))

	sent := newTestRecord(t, "a", "todo", `{"title":"v1"}`)
	require.NoError(t, s.Save(ctx, sent))

	edited := sent.Clone()
	edited.Data = json.RawMessage(`{"title":"v2"}`)
	edited.Touch(testNow.Add(time.Second), "title")
	require.NoError(t, s.Save(ctx, edited))

	assert.ErrorIs(t, s.MarkFailed(ctx, sent.Clone(), sent.UpdatedAt, errors.New("boom")), storage.ErrVersionChanged)
	assert.ErrorIs(t, s.SaveIfUnchanged(ctx, sent.Clone(), sent.UpdatedAt), storage.ErrVersionChanged)

	got, err := s.Get(ctx, "a", "todo")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Attempts)
	assert.True(t, got.SyncedAt.IsZero())

	assert.ErrorIs(t, s.MarkSynced(ctx, sent.Clone(), sent.UpdatedAt), storage.ErrVersionChanged)

	got, err = s.Get(ctx, "a", "todo")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"v2"}`, string(got.Data))
	assert.Equal(t, models.StatePending, got.State)
	assert.True(t, got.DirtyFields.Contains("title"))
	assert.True(t, at.Equal(got.SyncedAt))

	// совпадающая база принимает запись
	remote := newTestRecord(t, "a", "todo", `{"title":"remote"}`)
	remote.UpdatedAt = testNow.Add(time.Hour)
	require.NoError(t, s.SaveIfUnchanged(ctx, remote, got.UpdatedAt))
	got, err = s.Get(ctx, "a", "todo")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"remote"}`, string(got.Data))
}

func TestStorage_LastSyncTimeDeleteClear(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	ts, err := s.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	want := time.Date(2024, 3, 4, 5, 6, 7, 891, time.UTC)
	require.NoError(t, s.SetLastSyncTime(ctx, want))
	require.NoError(t, s.SetLastSyncTime(ctx, want))
	ts, err = s.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, want.Equal(ts))

	require.NoError(t, s.SaveAll(ctx, []*models.Record{
		newTestRecord(t, "a", "todo", `{}`),
		newTestRecord(t, "b", "todo", `{}`),
	}))
	require.NoError(t, s.Delete(ctx, "a", "todo"))
	require.NoError(t, s.Delete(ctx, "a", "todo"))

	all, err := s.GetAll(ctx, "todo")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].ID)

	require.NoError(t, s.Clear(ctx))
	all, err = s.GetAll(ctx, "todo")
	require.NoError(t, err)
	assert.Empty(t, all)

	ts, err = s.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, ts.IsZero())
}

func TestStorage_Closed(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.GetAll(ctx, "todo")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	_, err = s.PendingCount(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
