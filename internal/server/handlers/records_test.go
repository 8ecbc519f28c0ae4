package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/server/storage"
)

var recordTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// setupTestLogger создает logger для тестов
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordingNotifier запоминает опубликованные изменения
type recordingNotifier struct {
	changes []Change
	mu      sync.Mutex
}

func (n *recordingNotifier) Notify(_ context.Context, change Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
}

func (n *recordingNotifier) Changes() []Change {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Change(nil), n.changes...)
}

func setupRouter(h *RecordsHandler, owner string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if owner != "" {
				r = r.WithContext(WithOwner(r.Context(), owner))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Route("/api/v1", h.Routes)
	return r
}

func storedTodo(id string) *storage.Record {
	return &storage.Record{
		Owner:     "alice",
		Type:      "todo",
		ID:        id,
		CreatedAt: recordTime,
		UpdatedAt: recordTime,
		Fields: map[string]json.RawMessage{
			"title": json.RawMessage(`"buy milk"`),
			"done":  json.RawMessage(`false`),
		},
	}
}

func serve(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRecordsHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createFunc func(ctx context.Context, rec *storage.Record) (*storage.Record, bool, error)
		wantStatus int
		wantChange string
	}{
		{
			name: "new record",
			body: `{"id":"1","title":"buy milk","done":false,"createdAt":"2026-03-01T10:00:00Z","updatedAt":"2026-03-01T10:00:00Z"}`,
			createFunc: func(ctx context.Context, rec *storage.Record) (*storage.Record, bool, error) {
				return rec, true, nil
			},
			wantStatus: http.StatusCreated,
			wantChange: ChangeCreated,
		},
		{
			name: "existing record accepted",
			body: `{"id":"1","title":"buy milk","updatedAt":"2026-03-01T10:00:00Z"}`,
			createFunc: func(ctx context.Context, rec *storage.Record) (*storage.Record, bool, error) {
				return rec, false, nil
			},
			wantStatus: http.StatusOK,
			wantChange: ChangeUpdated,
		},
		{
			name: "stale record",
			body: `{"id":"1","title":"old","updatedAt":"2026-03-01T09:00:00Z"}`,
			createFunc: func(ctx context.Context, rec *storage.Record) (*storage.Record, bool, error) {
				return nil, false, &storage.ConflictError{Current: storedTodo("1")}
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "malformed body",
			body:       `{"id":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "array body",
			body:       `[1,2]`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad timestamp",
			body:       `{"id":"1","updatedAt":"yesterday"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "storage failure",
			body: `{"id":"1","title":"x"}`,
			createFunc: func(ctx context.Context, rec *storage.Record) (*storage.Record, bool, error) {
				return nil, false, errors.New("database is locked")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &storage.RecordStorageMock{CreateFunc: tt.createFunc}
			notifier := &recordingNotifier{}
			router := setupRouter(NewRecordsHandler(setupTestLogger(), mock, notifier, 0), "alice")

			w := serve(t, router, http.MethodPost, "/api/v1/todo", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			if tt.createFunc == nil {
				assert.Empty(t, mock.CreateCalls())
				return
			}
			require.Len(t, mock.CreateCalls(), 1)
			rec := mock.CreateCalls()[0].Rec
			assert.Equal(t, "alice", rec.Owner)
			assert.Equal(t, "todo", rec.Type)
			assert.Equal(t, "1", rec.ID)
			assert.NotContains(t, rec.Fields, "id")
			assert.NotContains(t, rec.Fields, "updatedAt")

			if tt.wantStatus == http.StatusConflict {
				var body map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, "buy milk", body["title"])
				assert.Equal(t, "1", body["id"])
				assert.Equal(t, "2026-03-01T10:00:00Z", body["updatedAt"])
			}

			changes := notifier.Changes()
			if tt.wantChange == "" {
				assert.Empty(t, changes)
				return
			}
			require.Len(t, changes, 1)
			assert.Equal(t, tt.wantChange, changes[0].Kind)
			assert.Equal(t, "alice", changes[0].Owner)
			assert.Equal(t, "1", changes[0].ID)
		})
	}
}

func TestRecordsHandler_CreateAssignsID(t *testing.T) {
	mock := &storage.RecordStorageMock{
		CreateFunc: func(ctx context.Context, rec *storage.Record) (*storage.Record, bool, error) {
			return rec, true, nil
		},
	}
	router := setupRouter(NewRecordsHandler(setupTestLogger(), mock, nil, 0), "alice")

	w := serve(t, router, http.MethodPost, "/api/v1/note", `{"title":"no id"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, mock.CreateCalls()[0].Rec.ID, body["id"])
}

func TestRecordsHandler_Update(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		updateErr  error
		wantStatus int
	}{
		{
			name:       "partial update",
			target:     "/api/v1/todo/1",
			body:       `{"id":"1","done":true}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing record",
			target:     "/api/v1/todo/1",
			body:       `{"done":true}`,
			updateErr:  storage.ErrRecordNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "stale update",
			target:     "/api/v1/todo/1",
			body:       `{"done":true,"updatedAt":"2026-01-01T00:00:00Z"}`,
			updateErr:  &storage.ConflictError{Current: storedTodo("1")},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "id mismatch",
			target:     "/api/v1/todo/1",
			body:       `{"id":"2","done":true}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid type",
			target:     "/api/v1/Todo/1",
			body:       `{"done":true}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &storage.RecordStorageMock{
				UpdateFunc: func(ctx context.Context, rec *storage.Record) (*storage.Record, error) {
					if tt.updateErr != nil {
						return nil, tt.updateErr
					}
					merged := storedTodo(rec.ID)
					for name, value := range rec.Fields {
						merged.Fields[name] = value
					}
					return merged, nil
				},
			}
			notifier := &recordingNotifier{}
			router := setupRouter(NewRecordsHandler(setupTestLogger(), mock, notifier, 0), "alice")

			w := serve(t, router, http.MethodPut, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus != http.StatusOK {
				assert.Empty(t, notifier.Changes())
				return
			}

			require.Len(t, mock.UpdateCalls(), 1)
			rec := mock.UpdateCalls()[0].Rec
			assert.True(t, rec.UpdatedAt.IsZero(), "delta without updatedAt")
			assert.Equal(t, map[string]json.RawMessage{"done": json.RawMessage("true")}, rec.Fields)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, true, body["done"])
			assert.Equal(t, "buy milk", body["title"])

			require.Len(t, notifier.Changes(), 1)
			assert.Equal(t, ChangeUpdated, notifier.Changes()[0].Kind)
		})
	}
}

func TestRecordsHandler_Delete(t *testing.T) {
	tests := []struct {
		name       string
		deleteErr  error
		wantStatus int
	}{
		{name: "deleted", wantStatus: http.StatusNoContent},
		{name: "missing", deleteErr: storage.ErrRecordNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &storage.RecordStorageMock{
				DeleteFunc: func(ctx context.Context, owner, recordType, id string) error {
					return tt.deleteErr
				},
			}
			notifier := &recordingNotifier{}
			router := setupRouter(NewRecordsHandler(setupTestLogger(), mock, notifier, 0), "alice")

			w := serve(t, router, http.MethodDelete, "/api/v1/todo/1", "")
			assert.Equal(t, tt.wantStatus, w.Code)

			require.Len(t, mock.DeleteCalls(), 1)
			call := mock.DeleteCalls()[0]
			assert.Equal(t, "alice", call.Owner)
			assert.Equal(t, "todo", call.RecordType)
			assert.Equal(t, "1", call.ID)

			if tt.deleteErr == nil {
				require.Len(t, notifier.Changes(), 1)
				assert.Equal(t, ChangeDeleted, notifier.Changes()[0].Kind)
				assert.Nil(t, notifier.Changes()[0].Record)
			} else {
				assert.Empty(t, notifier.Changes())
			}
		})
	}
}

func TestRecordsHandler_List(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		maxLimit   int
		wantStatus int
		wantQuery  storage.ListQuery
	}{
		{
			name:       "defaults",
			target:     "/api/v1/todo",
			maxLimit:   100,
			wantStatus: http.StatusOK,
			wantQuery:  storage.ListQuery{Owner: "alice", Type: "todo", Limit: 100},
		},
		{
			name:       "since limit offset",
			target:     "/api/v1/todo?since=2026-03-01T10:00:00.5Z&limit=10&offset=20",
			maxLimit:   100,
			wantStatus: http.StatusOK,
			wantQuery: storage.ListQuery{
				Owner: "alice", Type: "todo", Limit: 10, Offset: 20,
				Since: recordTime.Add(500 * time.Millisecond),
			},
		},
		{
			name:       "limit capped",
			target:     "/api/v1/todo?limit=1000",
			maxLimit:   100,
			wantStatus: http.StatusOK,
			wantQuery:  storage.ListQuery{Owner: "alice", Type: "todo", Limit: 100},
		},
		{name: "bad since", target: "/api/v1/todo?since=12345", wantStatus: http.StatusBadRequest},
		{name: "bad limit", target: "/api/v1/todo?limit=0", wantStatus: http.StatusBadRequest},
		{name: "bad offset", target: "/api/v1/todo?offset=-1", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &storage.RecordStorageMock{
				ListFunc: func(ctx context.Context, q storage.ListQuery) ([]*storage.Record, error) {
					return []*storage.Record{storedTodo("1"), storedTodo("2")}, nil
				},
			}
			router := setupRouter(NewRecordsHandler(setupTestLogger(), mock, nil, tt.maxLimit), "alice")

			w := serve(t, router, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Empty(t, mock.ListCalls())
				return
			}

			require.Len(t, mock.ListCalls(), 1)
			got := mock.ListCalls()[0].Q
			assert.True(t, tt.wantQuery.Since.Equal(got.Since))
			got.Since = tt.wantQuery.Since
			assert.Equal(t, tt.wantQuery, got)

			var body struct {
				Data []map[string]any `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Len(t, body.Data, 2)
			assert.Equal(t, "1", body.Data[0]["id"])
			assert.Equal(t, "buy milk", body.Data[0]["title"])
		})
	}
}

func TestRecordsHandler_Get(t *testing.T) {
	mock := &storage.RecordStorageMock{
		GetFunc: func(ctx context.Context, owner, recordType, id string) (*storage.Record, error) {
			if id == "1" {
				return storedTodo("1"), nil
			}
			return nil, storage.ErrRecordNotFound
		},
	}
	router := setupRouter(NewRecordsHandler(setupTestLogger(), mock, nil, 0), "alice")

	w := serve(t, router, http.MethodGet, "/api/v1/todo/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"id":"1","title":"buy milk","done":false,"createdAt":"2026-03-01T10:00:00Z","updatedAt":"2026-03-01T10:00:00Z"}`,
		w.Body.String())

	w = serve(t, router, http.MethodGet, "/api/v1/todo/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordsHandler_NoOwner(t *testing.T) {
	mock := &storage.RecordStorageMock{}
	router := setupRouter(NewRecordsHandler(setupTestLogger(), mock, nil, 0), "")

	w := serve(t, router, http.MethodGet, "/api/v1/todo", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
