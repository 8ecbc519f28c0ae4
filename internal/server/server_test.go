package server_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/client/api"
	"github.com/iudanet/gophsync/internal/client/connectivity"
	"github.com/iudanet/gophsync/internal/client/storage/boltdb"
	clientsync "github.com/iudanet/gophsync/internal/client/sync"
	"github.com/iudanet/gophsync/internal/client/transport"
	"github.com/iudanet/gophsync/internal/client/ws"
	"github.com/iudanet/gophsync/internal/models"
	"github.com/iudanet/gophsync/internal/server"
	"github.com/iudanet/gophsync/internal/server/handlers"
	"github.com/iudanet/gophsync/internal/server/storage"
	"github.com/iudanet/gophsync/internal/server/storage/sqlite"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	store *sqlite.Storage
	url   string
}

func startServer(t *testing.T, cfg server.Config) *testServer {
	t.Helper()

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)

	srv := server.New(cfg, store, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		_ = store.Close()
	})

	return &testServer{store: store, url: ts.URL}
}

// device - клиент синхронизации со своим локальным хранилищем
type device struct {
	store  *boltdb.Storage
	engine *clientsync.Engine
}

func newDevice(t *testing.T, tr transport.Transport, tune func(*clientsync.Config)) *device {
	t.Helper()
	ctx := context.Background()

	store, err := boltdb.New(ctx, filepath.Join(t.TempDir(), "device.db"))
	require.NoError(t, err)

	cfg := clientsync.DefaultConfig()
	cfg.AutoSync = false
	cfg.SyncInterval = 0
	cfg.Bidirectional = false
	if tune != nil {
		tune(&cfg)
	}

	resolver, err := cfg.NewResolver()
	require.NoError(t, err)

	registry := models.DefaultRegistry()
	repo := clientsync.NewRepository(tr, store, registry, resolver, cfg, testLogger())
	monitor := connectivity.NewManual(connectivity.Online(connectivity.KindWifi))
	engine := clientsync.NewEngine(repo, store, registry, monitor, cfg, testLogger())
	require.NoError(t, engine.Start(ctx))

	t.Cleanup(func() {
		engine.Stop()
		monitor.Close()
		_ = store.Close()
	})
	return &device{store: store, engine: engine}
}

func (d *device) todo(t *testing.T, id string) models.Todo {
	t.Helper()
	rec, err := d.store.Get(context.Background(), id, models.TypeTodo)
	require.NoError(t, err)
	todo, err := models.Decode[models.Todo](rec)
	require.NoError(t, err)
	return todo
}

func (d *device) edit(t *testing.T, id string, at time.Time, fn func(v *models.Todo) []string) {
	t.Helper()
	ctx := context.Background()
	rec, err := d.store.Get(ctx, id, models.TypeTodo)
	require.NoError(t, err)
	_, err = models.Mutate(rec, at, fn)
	require.NoError(t, err)
	require.NoError(t, d.engine.Save(ctx, rec))
}

func serverTitle(t *testing.T, ts *testServer, owner, id string) string {
	t.Helper()
	rec, err := ts.store.Get(context.Background(), owner, models.TypeTodo, id)
	require.NoError(t, err)
	return strings.Trim(string(rec.Fields["title"]), `"`)
}

func TestEndToEnd_TwoDevices(t *testing.T) {
	ctx := context.Background()
	ts := startServer(t, server.Config{})

	laptop := newDevice(t, api.NewClient(ts.url), nil)
	phone := newDevice(t, api.NewClient(ts.url), func(cfg *clientsync.Config) {
		cfg.DeltaSync = true
	})

	base := time.Now().UTC()

	// создание на ноутбуке
	rec, err := models.Encode(models.Todo{ID: "1", Title: "buy milk", Tags: []string{"home"}}, base)
	require.NoError(t, err)
	require.NoError(t, laptop.engine.Save(ctx, rec))

	res, err := laptop.engine.SyncAllPending(ctx)
	require.NoError(t, err)
	require.Equal(t, clientsync.ResultSuccess, res.Kind, res.Err())
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, "buy milk", serverTitle(t, ts, handlers.DefaultOwner, "1"))
	assert.Zero(t, laptop.engine.Status().PendingCount)

	// телефон забирает запись
	res, err = phone.engine.PullFromServer(ctx, models.TypeTodo, nil)
	require.NoError(t, err)
	require.Equal(t, clientsync.ResultSuccess, res.Kind, res.Err())
	assert.Equal(t, "buy milk", phone.todo(t, "1").Title)

	// телефон отправляет только измененное поле
	phone.edit(t, "1", base.Add(time.Second), func(v *models.Todo) []string {
		v.Done = true
		return []string{"done"}
	})
	res, err = phone.engine.SyncAllPending(ctx)
	require.NoError(t, err)
	require.Equal(t, clientsync.ResultSuccess, res.Kind, res.Err())

	stored, err := ts.store.Get(ctx, handlers.DefaultOwner, models.TypeTodo, "1")
	require.NoError(t, err)
	assert.JSONEq(t, "true", string(stored.Fields["done"]))
	assert.JSONEq(t, `"buy milk"`, string(stored.Fields["title"]))
	assert.JSONEq(t, `["home"]`, string(stored.Fields["tags"]))

	res, err = laptop.engine.PullFromServer(ctx, models.TypeTodo, nil)
	require.NoError(t, err)
	require.Equal(t, clientsync.ResultSuccess, res.Kind, res.Err())
	assert.True(t, laptop.todo(t, "1").Done)

	// конкурирующие правки: побеждает более поздняя
	phone.edit(t, "1", base.Add(3*time.Second), func(v *models.Todo) []string {
		v.Title = "buy oat milk"
		return []string{"title"}
	})
	laptop.edit(t, "1", base.Add(2*time.Second), func(v *models.Todo) []string {
		v.Title = "buy soy milk"
		return []string{"title"}
	})

	res, err = phone.engine.SyncAllPending(ctx)
	require.NoError(t, err)
	require.Equal(t, clientsync.ResultSuccess, res.Kind, res.Err())

	res, err = laptop.engine.SyncAllPending(ctx)
	require.NoError(t, err)
	require.Equal(t, clientsync.ResultSuccess, res.Kind, res.Err())

	assert.Equal(t, "buy oat milk", serverTitle(t, ts, handlers.DefaultOwner, "1"))
	assert.Equal(t, "buy oat milk", laptop.todo(t, "1").Title, "stale local edit is replaced by the server copy")

	// удаление
	res, err = laptop.engine.Delete(ctx, "1", models.TypeTodo)
	require.NoError(t, err)
	require.Equal(t, clientsync.ResultSuccess, res.Kind, res.Err())

	_, err = ts.store.Get(ctx, handlers.DefaultOwner, models.TypeTodo, "1")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestEndToEnd_Authentication(t *testing.T) {
	ctx := context.Background()
	jwtConfig := handlers.JWTConfig{Secret: []byte("e2e-secret"), AccessTokenTTL: time.Hour}
	ts := startServer(t, server.Config{JWT: jwtConfig})

	token, _, err := handlers.GenerateAccessToken(jwtConfig, "alice")
	require.NoError(t, err)

	anonymous := newDevice(t, api.NewClient(ts.url), nil)
	alice := newDevice(t, api.NewClient(ts.url, api.WithToken(token)), nil)

	for _, d := range []*device{anonymous, alice} {
		rec, err := models.Encode(models.Note{ID: "n1", Title: "secret"}, time.Now())
		require.NoError(t, err)
		require.NoError(t, d.engine.Save(ctx, rec))
	}

	res, err := anonymous.engine.SyncAllPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, clientsync.ResultFailed, res.Kind)
	assert.Equal(t, http.StatusUnauthorized, transport.StatusCode(res.Err()))
	assert.Equal(t, 1, anonymous.engine.Status().PendingCount)

	res, err = alice.engine.SyncAllPending(ctx)
	require.NoError(t, err)
	require.Equal(t, clientsync.ResultSuccess, res.Kind, res.Err())

	_, err = ts.store.Get(ctx, "alice", models.TypeNote, "n1")
	assert.NoError(t, err)
	_, err = ts.store.Get(ctx, handlers.DefaultOwner, models.TypeNote, "n1")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func newManager(t *testing.T, ts *testServer) *ws.Manager {
	t.Helper()
	m := ws.NewManager(ws.Config{
		URL:            "ws" + strings.TrimPrefix(ts.url, "http") + server.WebSocketPath,
		RequestTimeout: 3 * time.Second,
	}, ws.CoderDialer{}, testLogger())
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Connect(context.Background()))
	return m
}

func TestEndToEnd_RealtimePull(t *testing.T) {
	ctx := context.Background()
	ts := startServer(t, server.Config{})

	writer := newDevice(t, api.NewClient(ts.url), nil)
	reader := newDevice(t, api.NewClient(ts.url), nil)

	m := newManager(t, ts)
	events, unsubscribe := m.Events()
	t.Cleanup(unsubscribe)
	require.NoError(t, m.Subscribe(ctx, models.TypeTodo, nil))
	reader.engine.AttachRealtime(ctx, events)

	rec, err := models.Encode(models.Todo{ID: "rt", Title: "pushed over websocket"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, writer.engine.Save(ctx, rec))
	res, err := writer.engine.SyncAllPending(ctx)
	require.NoError(t, err)
	require.Equal(t, clientsync.ResultSuccess, res.Kind, res.Err())

	require.Eventually(t, func() bool {
		_, err := reader.store.Get(ctx, "rt", models.TypeTodo)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "pushed over websocket", reader.todo(t, "rt").Title)

	// удаление на сервере убирает синхронизированную копию
	res, err = writer.engine.Delete(ctx, "rt", models.TypeTodo)
	require.NoError(t, err)
	require.Equal(t, clientsync.ResultSuccess, res.Kind, res.Err())

	require.Eventually(t, func() bool {
		_, err := reader.store.Get(ctx, "rt", models.TypeTodo)
		return err != nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestEndToEnd_WebSocketTransport(t *testing.T) {
	ctx := context.Background()
	ts := startServer(t, server.Config{})

	m := newManager(t, ts)
	d := newDevice(t, ws.NewTransport(m, nil), func(cfg *clientsync.Config) {
		cfg.Bidirectional = true
	})

	for _, id := range []string{"a", "b", "c"} {
		rec, err := models.Encode(models.Todo{ID: id, Title: "todo " + id}, time.Now())
		require.NoError(t, err)
		require.NoError(t, d.engine.Save(ctx, rec))
	}

	res, err := d.engine.SyncAllPending(ctx)
	require.NoError(t, err)
	require.Equal(t, clientsync.ResultSuccess, res.Kind, res.Err())
	assert.Equal(t, 3, res.Processed)

	records, err := ts.store.List(ctx, storage.ListQuery{Owner: handlers.DefaultOwner, Type: models.TypeTodo})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.False(t, d.engine.Status().LastSyncTime.IsZero())
}

func TestServer_Health(t *testing.T) {
	ts := startServer(t, server.Config{Version: "test", JWT: handlers.JWTConfig{Secret: []byte("x")}})

	resp, err := http.Get(ts.url + server.HealthPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	// health доступен без токена
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}

func TestServer_RunShutsDown(t *testing.T) {
	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv := server.New(server.Config{Addr: "127.0.0.1:0"}, store, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
