package sync

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/client/storage/boltdb"
	"github.com/iudanet/gophsync/internal/client/transport"
	"github.com/iudanet/gophsync/internal/conflict"
	"github.com/iudanet/gophsync/internal/models"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClock() time.Time {
	return testNow
}

func newTestStore(t *testing.T) *boltdb.Storage {
	t.Helper()
	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "sync.db"), boltdb.WithClock(testClock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestRepository(t *testing.T, tr transport.Transport, store *boltdb.Storage, cfg Config) *Repository {
	t.Helper()
	resolver, err := cfg.NewResolver()
	require.NoError(t, err)
	return NewRepository(tr, store, models.DefaultRegistry(), resolver, cfg, testLogger(), WithRepositoryClock(testClock))
}

func newTodo(t *testing.T, id, title string, updatedAt time.Time) *models.Record {
	t.Helper()
	rec, err := models.Encode(models.Todo{ID: id, Title: title}, updatedAt)
	require.NoError(t, err)
	return rec
}

// syncedTodo returns a todo the server already acknowledged.
func syncedTodo(t *testing.T, id, title string, updatedAt time.Time) *models.Record {
	t.Helper()
	rec := newTodo(t, id, title, updatedAt)
	rec.MarkSynced(updatedAt)
	return rec
}

func remoteTodo(id, title string, updatedAt time.Time) map[string]any {
	return map[string]any{
		"id":        id,
		"title":     title,
		"tags":      []string{},
		"createdAt": updatedAt.Add(-time.Hour),
		"updatedAt": updatedAt,
	}
}

func jsonResponse(t *testing.T, status int, body any) *transport.Response {
	t.Helper()
	var raw json.RawMessage
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		raw = b
	}
	return &transport.Response{StatusCode: status, Body: raw}
}

func okResponse(status int) *transport.Response {
	return &transport.Response{StatusCode: status}
}

func defaultTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Bidirectional = false
	cfg.AutoSync = false
	cfg.SyncInterval = 0
	cfg.ConflictStrategy = conflict.StrategyLastUpdateWins
	return cfg
}

func bodyFields(t *testing.T, body any) map[string]json.RawMessage {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &fields))
	return fields
}
