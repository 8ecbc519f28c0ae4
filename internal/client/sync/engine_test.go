package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/client/connectivity"
	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/client/storage/boltdb"
	"github.com/iudanet/gophsync/internal/client/transport"
	"github.com/iudanet/gophsync/internal/client/ws"
	"github.com/iudanet/gophsync/internal/models"
)

func newTestEngine(t *testing.T, tr transport.Transport, store *boltdb.Storage, monitor connectivity.Monitor, cfg Config) *Engine {
	t.Helper()
	repo := newTestRepository(t, tr, store, cfg)
	e := NewEngine(repo, store, models.DefaultRegistry(), monitor, cfg, testLogger(), WithEngineClock(testClock))
	t.Cleanup(e.Stop)
	return e
}

func createOK() func(ctx context.Context, endpoint string, body any) (*transport.Response, error) {
	return func(ctx context.Context, endpoint string, body any) (*transport.Response, error) {
		return okResponse(http.StatusCreated), nil
	}
}

func TestEngine_SyncOneOffline(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tr := &transport.TransportMock{}
	monitor := connectivity.NewManual(connectivity.Offline())
	e := newTestEngine(t, tr, store, monitor, defaultTestConfig())

	rec := newTodo(t, "a", "milk", testNow)
	res, err := e.SyncOne(ctx, rec)
	require.NoError(t, err)

	assert.Equal(t, ResultConnectionUnavailable, res.Kind)
	assert.ErrorIs(t, res.Err(), ErrConnectionUnavailable)
	assert.Empty(t, tr.CreateCalls())

	stored, err := store.Get(ctx, "a", models.TypeTodo)
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, stored.State)
	assert.Equal(t, 1, e.Status().PendingCount)
	assert.False(t, e.Status().Connected)
}

func TestEngine_ConnectivityRequirement(t *testing.T) {
	tests := []struct {
		name        string
		state       connectivity.State
		requirement connectivity.Requirement
		wantKind    ResultKind
	}{
		{name: "any on cellular", state: connectivity.Online(connectivity.KindCellular), requirement: connectivity.RequireAny, wantKind: ResultSuccess},
		{name: "wifi on cellular", state: connectivity.Online(connectivity.KindCellular), requirement: connectivity.RequireWifi, wantKind: ResultConnectionUnavailable},
		{name: "wifi on wifi", state: connectivity.Online(connectivity.KindWifi), requirement: connectivity.RequireWifi, wantKind: ResultSuccess},
		{name: "unmetered on cellular", state: connectivity.Online(connectivity.KindCellular), requirement: connectivity.RequireUnmetered, wantKind: ResultConnectionUnavailable},
		{name: "any offline", state: connectivity.Offline(), requirement: connectivity.RequireAny, wantKind: ResultConnectionUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			tr := &transport.TransportMock{CreateFunc: createOK()}
			cfg := defaultTestConfig()
			cfg.Connectivity = tt.requirement
			e := newTestEngine(t, tr, store, connectivity.NewManual(tt.state), cfg)

			res, err := e.SyncOne(context.Background(), newTodo(t, "a", "milk", testNow))
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, res.Kind)
		})
	}
}

func TestEngine_SyncAllPendingSinglePass(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SaveAll(ctx, []*models.Record{
		newTodo(t, "a", "first", testNow),
	}))

	entered := make(chan struct{})
	release := make(chan struct{})
	tr := &transport.TransportMock{
		CreateFunc: func(ctx context.Context, endpoint string, body any) (*transport.Response, error) {
			fields := bodyFields(t, body)
			if string(fields["id"]) == `"a"` {
				close(entered)
				<-release
			}
			return okResponse(http.StatusCreated), nil
		},
	}
	e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Online(connectivity.KindWifi)), defaultTestConfig())

	done := make(chan *Result, 1)
	go func() {
		res, err := e.SyncAllPending(ctx)
		assert.NoError(t, err)
		done <- res
	}()
	<-entered

	assert.True(t, e.Status().InProgress)

	// второй полный проход отклоняется без сетевых вызовов
	second, err := e.SyncAllPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, ResultFailed, second.Kind)
	assert.ErrorIs(t, second.Err(), ErrSyncInProgress)
	assert.Len(t, tr.CreateCalls(), 1)

	// SyncOne не ждет полного прохода
	one, err := e.SyncOne(ctx, newTodo(t, "b", "second", testNow))
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, one.Kind)
	assert.Len(t, tr.CreateCalls(), 2)

	close(release)
	first := <-done
	assert.Equal(t, ResultSuccess, first.Kind)
	assert.Equal(t, 1, first.Processed)
	assert.False(t, e.Status().InProgress)
	assert.Zero(t, e.Status().PendingCount)
}

func TestEngine_RetryLimitAndBackoff(t *testing.T) {
	ctx := context.Background()

	exhausted := newTodo(t, "exhausted", "x", testNow)
	for range 3 {
		exhausted.MarkFailed(errors.New("boom"), testNow.Add(-time.Hour))
	}

	inBackoff := newTodo(t, "backoff", "x", testNow)
	inBackoff.MarkFailed(errors.New("boom"), testNow.Add(-500*time.Millisecond))

	// вторая попытка ждет 2s после последней
	secondWait := newTodo(t, "second", "x", testNow)
	secondWait.MarkFailed(errors.New("boom"), testNow.Add(-3*time.Second))
	secondWait.MarkFailed(errors.New("boom"), testNow.Add(-1500*time.Millisecond))

	ready := newTodo(t, "ready", "x", testNow)
	ready.MarkFailed(errors.New("boom"), testNow.Add(-2*time.Second))

	fresh := newTodo(t, "fresh", "x", testNow)

	store := newTestStore(t)
	require.NoError(t, store.SaveAll(ctx, []*models.Record{exhausted, inBackoff, secondWait, ready, fresh}))

	tr := &transport.TransportMock{
		CreateFunc: createOK(),
		UpdateFunc: func(ctx context.Context, endpoint, id string, body any) (*transport.Response, error) {
			return okResponse(http.StatusOK), nil
		},
	}
	e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Online(connectivity.KindWifi)), defaultTestConfig())

	res, err := e.SyncAllPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, res.Kind)
	assert.Equal(t, 2, res.Processed)

	var pushed []string
	for _, call := range tr.UpdateCalls() {
		pushed = append(pushed, call.ID)
	}
	assert.ElementsMatch(t, []string{"ready"}, pushed)
	assert.Len(t, tr.CreateCalls(), 1)
	assert.Equal(t, 3, e.Status().PendingCount)

	// явный SyncOne игнорирует лимит попыток
	res, err = e.SyncOne(ctx, exhausted)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, res.Kind)
	assert.Equal(t, 2, e.Status().PendingCount)
}

func TestConfig_RetryDelay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialRetryDelay = time.Second
	cfg.RetryBackoffMultiplier = 2
	cfg.MaxRetryDelay = 5 * time.Second

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{attempts: 0, want: 0},
		{attempts: 1, want: time.Second},
		{attempts: 2, want: 2 * time.Second},
		{attempts: 3, want: 4 * time.Second},
		{attempts: 4, want: 5 * time.Second},
		{attempts: 10, want: 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempts=%d", tt.attempts), func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.RetryDelay(tt.attempts))
		})
	}
}

func TestEngine_Batching(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for i := range 5 {
		require.NoError(t, store.Save(ctx, newTodo(t, fmt.Sprintf("r%d", i), "x", testNow)))
	}

	tr := &transport.TransportMock{
		CreateFunc: createOK(),
		ListFunc: func(ctx context.Context, endpoint string, query transport.ListQuery) (*transport.Response, error) {
			return jsonResponse(t, http.StatusOK, []any{}), nil
		},
	}
	cfg := defaultTestConfig()
	cfg.BatchSize = 2
	cfg.Bidirectional = true
	e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Online(connectivity.KindWifi)), cfg)

	res, err := e.SyncByType(ctx, models.TypeTodo)
	require.NoError(t, err)

	assert.Equal(t, ResultSuccess, res.Kind)
	assert.Equal(t, 5, res.Processed)
	assert.Len(t, tr.CreateCalls(), 5)
	// pull выполняется один раз, после последней пачки
	assert.Len(t, tr.ListCalls(), 1)

	last, err := store.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, testNow.Equal(last))
	assert.True(t, testNow.Equal(e.Status().LastSyncTime))
}

func TestEngine_SyncAllPendingPartial(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	note, err := models.Encode(models.Note{ID: "n", Title: "note"}, testNow)
	require.NoError(t, err)
	require.NoError(t, store.SaveAll(ctx, []*models.Record{newTodo(t, "a", "x", testNow), note}))

	tr := &transport.TransportMock{
		CreateFunc: func(ctx context.Context, endpoint string, body any) (*transport.Response, error) {
			if endpoint == "/api/v1/note" {
				return jsonResponse(t, http.StatusBadRequest, map[string]string{"error": "bad note"}), nil
			}
			return okResponse(http.StatusCreated), nil
		},
	}
	e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Online(connectivity.KindWifi)), defaultTestConfig())

	res, err := e.SyncAllPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, ResultPartial, res.Kind)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Failed)

	st := e.Status()
	assert.True(t, st.HasErrors())
	assert.Contains(t, st.LastError, "bad note")
	assert.Equal(t, 1, st.PendingCount)
}

func TestEngine_UnregisteredType(t *testing.T) {
	store := newTestStore(t)
	e := newTestEngine(t, &transport.TransportMock{}, store, connectivity.NewManual(connectivity.Offline()), defaultTestConfig())

	rec, err := models.NewRecord("a", "ghost", json.RawMessage(`{}`), testNow)
	require.NoError(t, err)

	_, err = e.SyncOne(context.Background(), rec)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	err = e.Save(context.Background(), rec)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestEngine_StatusStream(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, newTodo(t, "a", "x", testNow)))

	tr := &transport.TransportMock{CreateFunc: createOK()}
	e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Online(connectivity.KindWifi)), defaultTestConfig())
	require.NoError(t, e.Start(ctx))

	updates, cancel := e.Subscribe()
	defer cancel()

	_, err := e.SyncAllPending(ctx)
	require.NoError(t, err)

	var seen []Status
	timeout := time.After(time.Second)
	for {
		select {
		case st := <-updates:
			seen = append(seen, st)
		case <-timeout:
			t.Fatal("status stream did not settle")
		}
		if n := len(seen); n > 1 && !seen[n-1].InProgress && seen[n-1].PendingCount == 0 {
			break
		}
	}

	assert.True(t, seen[0].InProgress)
	assert.Equal(t, 1, seen[0].PendingCount)
	last := seen[len(seen)-1]
	assert.True(t, last.Connected)
	assert.False(t, last.HasErrors())
}

func TestEngine_SaveSyncsInBackground(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tr := &transport.TransportMock{CreateFunc: createOK()}
	cfg := defaultTestConfig()
	cfg.AutoSync = true
	e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Online(connectivity.KindWifi)), cfg)

	require.NoError(t, e.Save(ctx, newTodo(t, "a", "milk", testNow)))
	e.Wait()

	assert.Len(t, tr.CreateCalls(), 1)
	stored, err := store.Get(ctx, "a", models.TypeTodo)
	require.NoError(t, err)
	assert.Equal(t, models.StateSynced, stored.State)
	assert.Zero(t, e.Status().PendingCount)
}

func TestEngine_SaveWithoutAutoSync(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tr := &transport.TransportMock{}
	e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Online(connectivity.KindWifi)), defaultTestConfig())

	require.NoError(t, e.Save(ctx, newTodo(t, "a", "milk", testNow)))
	e.Wait()

	assert.Empty(t, tr.CreateCalls())
	assert.Equal(t, 1, e.Status().PendingCount)
}

func TestEngine_SaveAfterStop(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tr := &transport.TransportMock{CreateFunc: createOK()}
	cfg := defaultTestConfig()
	cfg.AutoSync = true
	e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Online(connectivity.KindWifi)), cfg)

	require.NoError(t, e.Start(ctx))
	e.Stop()

	require.NoError(t, e.Save(ctx, newTodo(t, "a", "milk", testNow)))
	e.Wait()

	assert.Empty(t, tr.CreateCalls())
	stored, err := store.Get(ctx, "a", models.TypeTodo)
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, stored.State)
	assert.Zero(t, stored.Attempts)
	assert.Empty(t, stored.SyncError)
}

func TestEngine_SyncByTypeStoreError(t *testing.T) {
	store := newTestStore(t)
	tr := &transport.TransportMock{}
	e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Online(connectivity.KindWifi)), defaultTestConfig())
	require.NoError(t, store.Close())

	res, err := e.SyncByType(context.Background(), models.TypeTodo)
	require.NoError(t, err)
	assert.Equal(t, ResultFailed, res.Kind)
	assert.Zero(t, res.Processed)
	assert.Zero(t, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], storage.ErrStorageClosed)
	assert.True(t, e.Status().HasErrors())
}

func TestEngine_SyncOnReconnect(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, newTodo(t, "a", "milk", testNow)))

	tr := &transport.TransportMock{CreateFunc: createOK()}
	monitor := connectivity.NewManual(connectivity.Offline())
	cfg := defaultTestConfig()
	cfg.AutoSync = true
	e := newTestEngine(t, tr, store, monitor, cfg)
	require.NoError(t, e.Start(ctx))
	assert.False(t, e.Status().Connected)

	monitor.Set(connectivity.Online(connectivity.KindEthernet))

	assert.Eventually(t, func() bool {
		return len(tr.CreateCalls()) == 1 && e.Status().PendingCount == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, e.Status().Connected)
}

func TestEngine_PeriodicSync(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, newTodo(t, "a", "milk", testNow)))

	tr := &transport.TransportMock{CreateFunc: createOK()}
	e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Online(connectivity.KindWifi)), defaultTestConfig())
	require.NoError(t, e.Start(ctx))

	e.StartPeriodicSync(20 * time.Millisecond)
	// повторный запуск заменяет расписание
	e.StartPeriodicSync(20 * time.Millisecond)

	assert.Eventually(t, func() bool {
		return e.Status().PendingCount == 0
	}, 2*time.Second, 10*time.Millisecond)

	e.StopPeriodicSync()
	e.StopPeriodicSync()
	assert.Len(t, tr.CreateCalls(), 1)
}

func TestEngine_PullFromServer(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SetLastSyncTime(ctx, testNow.Add(-time.Hour)))

	var queries []transport.ListQuery
	tr := &transport.TransportMock{
		ListFunc: func(ctx context.Context, endpoint string, query transport.ListQuery) (*transport.Response, error) {
			queries = append(queries, query)
			return jsonResponse(t, http.StatusOK, []any{remoteTodo("x", "remote", testNow)}), nil
		},
	}
	e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Online(connectivity.KindWifi)), defaultTestConfig())
	require.NoError(t, e.Start(ctx))

	res, err := e.PullFromServer(ctx, models.TypeTodo, nil)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, res.Kind)

	explicit := time.Time{}
	_, err = e.PullFromServer(ctx, models.TypeTodo, &explicit)
	require.NoError(t, err)

	require.Len(t, queries, 2)
	assert.True(t, testNow.Add(-time.Hour).Equal(queries[0].Since))
	assert.True(t, queries[1].Since.IsZero())

	_, err = e.PullFromServer(ctx, "ghost", nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestEngine_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("offline keeps record", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Save(ctx, syncedTodo(t, "a", "milk", testNow)))
		tr := &transport.TransportMock{}
		e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Offline()), defaultTestConfig())

		res, err := e.Delete(ctx, "a", models.TypeTodo)
		require.NoError(t, err)
		assert.Equal(t, ResultConnectionUnavailable, res.Kind)
		assert.Empty(t, tr.DeleteCalls())

		_, err = store.Get(ctx, "a", models.TypeTodo)
		assert.NoError(t, err)
	})

	t.Run("online deletes remotely then locally", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Save(ctx, syncedTodo(t, "a", "milk", testNow)))
		tr := &transport.TransportMock{
			DeleteFunc: func(ctx context.Context, endpoint, id string) (*transport.Response, error) {
				return okResponse(http.StatusNoContent), nil
			},
		}
		e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Online(connectivity.KindWifi)), defaultTestConfig())

		res, err := e.Delete(ctx, "a", models.TypeTodo)
		require.NoError(t, err)
		assert.Equal(t, ResultSuccess, res.Kind)

		_, err = store.Get(ctx, "a", models.TypeTodo)
		assert.ErrorIs(t, err, storage.ErrRecordNotFound)
	})
}

func TestEngine_Realtime(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, syncedTodo(t, "gone", "deleted elsewhere", testNow)))
	require.NoError(t, store.Save(ctx, newTodo(t, "kept", "edited here", testNow)))

	tr := &transport.TransportMock{
		ListFunc: func(ctx context.Context, endpoint string, query transport.ListQuery) (*transport.Response, error) {
			return jsonResponse(t, http.StatusOK, []any{remoteTodo("new", "from another device", testNow)}), nil
		},
	}
	e := newTestEngine(t, tr, store, connectivity.NewManual(connectivity.Online(connectivity.KindWifi)), defaultTestConfig())

	events := make(chan ws.Event, 4)
	e.AttachRealtime(ctx, events)

	events <- ws.Event{Kind: ws.EventDataCreated, Data: json.RawMessage(`{"type":"todo","id":"new"}`)}
	events <- ws.Event{Kind: ws.EventDataDeleted, Data: json.RawMessage(`{"type":"todo","id":"gone"}`)}
	events <- ws.Event{Kind: ws.EventDataDeleted, Data: json.RawMessage(`{"type":"todo","id":"kept"}`)}
	events <- ws.Event{Kind: ws.EventDataUpdated, Data: json.RawMessage(`{"type":"ghost","id":"x"}`)}
	close(events)

	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, "gone", models.TypeTodo)
		return errors.Is(err, storage.ErrRecordNotFound)
	}, 2*time.Second, 10*time.Millisecond)

	_, err := store.Get(ctx, "new", models.TypeTodo)
	assert.NoError(t, err)
	_, err = store.Get(ctx, "kept", models.TypeTodo)
	assert.NoError(t, err, "locally modified record must survive a remote delete")
	assert.Len(t, tr.ListCalls(), 1)
}
