package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/iudanet/gophsync/internal/server/storage"
	"github.com/iudanet/gophsync/internal/validation"
)

const (
	// DefaultMaxLimit - верхняя граница limit для GET коллекции
	DefaultMaxLimit = 500

	// maxBodyBytes ограничивает размер тела запроса
	maxBodyBytes = 1 << 20
)

// Wire envelope fields of a record.
const (
	fieldID        = "id"
	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"
)

// Change kinds published to realtime subscribers.
const (
	ChangeCreated = "data_created"
	ChangeUpdated = "data_updated"
	ChangeDeleted = "data_deleted"
)

// Change describes a committed record mutation.
type Change struct {
	// Record is the wire form of the record; nil for deletions.
	Record map[string]json.RawMessage
	Owner  string
	Kind   string
	Type   string
	ID     string
}

// Notifier receives committed changes, e.g. to fan them out over WebSocket.
type Notifier interface {
	Notify(ctx context.Context, change Change)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, change Change)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, change Change) {
	f(ctx, change)
}

// RecordsHandler serves the record collections /api/v1/{type}.
type RecordsHandler struct {
	logger   *slog.Logger
	storage  storage.RecordStorage
	notifier Notifier
	maxLimit int
}

// NewRecordsHandler creates a records handler. A nil notifier disables change notifications.
func NewRecordsHandler(logger *slog.Logger, store storage.RecordStorage, notifier Notifier, maxLimit int) *RecordsHandler {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &RecordsHandler{
		logger:   logger,
		storage:  store,
		notifier: notifier,
		maxLimit: maxLimit,
	}
}

// Routes mounts the collection routes on r.
func (h *RecordsHandler) Routes(r chi.Router) {
	r.Get("/{type}", h.List)
	r.Post("/{type}", h.Create)
	r.Get("/{type}/{id}", h.Get)
	r.Put("/{type}/{id}", h.Update)
	r.Delete("/{type}/{id}", h.Delete)
}

// ListResponse - тело ответа GET /api/v1/{type}
type ListResponse struct {
	Data []map[string]json.RawMessage `json:"data"`
}

// List обрабатывает GET /api/v1/{type}?since=RFC3339&limit=N&offset=M
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, recordType, ok := h.scope(w, r)
	if !ok {
		return
	}

	query := storage.ListQuery{Owner: owner, Type: recordType, Limit: h.maxLimit}
	params := r.URL.Query()

	if raw := params.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "invalid since parameter, expected RFC3339 timestamp")
			return
		}
		query.Since = since
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, h.logger, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		query.Limit = min(limit, h.maxLimit)
	}
	if raw := params.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeError(w, h.logger, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		query.Offset = offset
	}

	records, err := h.storage.List(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to list records", "owner", owner, "type", recordType, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := ListResponse{Data: make([]map[string]json.RawMessage, 0, len(records))}
	for _, rec := range records {
		resp.Data = append(resp.Data, toWire(rec))
	}

	h.logger.Debug("Records listed", "owner", owner, "type", recordType, "count", len(records),
		"since", query.Since, "offset", query.Offset)
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// Get обрабатывает GET /api/v1/{type}/{id}
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, recordType, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	rec, err := h.storage.Get(r.Context(), owner, recordType, id)
	if err != nil {
		h.storageError(w, err, recordType, id)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toWire(rec))
}

// Create обрабатывает POST /api/v1/{type}
// Новая запись - 201, повторная отправка существующей - 200, устаревшая - 409 с серверной копией
func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, recordType, ok := h.scope(w, r)
	if !ok {
		return
	}

	rec, err := decodeRecord(r.Body)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := validation.ValidateRecordID(rec.ID); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	rec.Owner = owner
	rec.Type = recordType

	saved, created, err := h.storage.Create(r.Context(), rec)
	if err != nil {
		h.storageError(w, err, recordType, rec.ID)
		return
	}

	kind, status := ChangeUpdated, http.StatusOK
	if created {
		kind, status = ChangeCreated, http.StatusCreated
	}
	h.logger.Info("Record stored", "owner", owner, "type", recordType, "id", saved.ID, "created", created)

	wire := toWire(saved)
	h.notify(r.Context(), Change{Owner: owner, Kind: kind, Type: recordType, ID: saved.ID, Record: wire})
	writeJSON(w, h.logger, status, wire)
}

// Update обрабатывает PUT /api/v1/{type}/{id}
// Тело может быть частичным: присланные поля сливаются с серверной копией
func (h *RecordsHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, recordType, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	rec, err := decodeRecord(r.Body)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if rec.ID != "" && rec.ID != id {
		writeError(w, h.logger, http.StatusBadRequest, fmt.Sprintf("body id %q does not match path id %q", rec.ID, id))
		return
	}
	rec.ID = id
	rec.Owner = owner
	rec.Type = recordType

	saved, err := h.storage.Update(r.Context(), rec)
	if err != nil {
		h.storageError(w, err, recordType, id)
		return
	}

	h.logger.Info("Record updated", "owner", owner, "type", recordType, "id", id, "fields", len(rec.Fields))

	wire := toWire(saved)
	h.notify(r.Context(), Change{Owner: owner, Kind: ChangeUpdated, Type: recordType, ID: id, Record: wire})
	writeJSON(w, h.logger, http.StatusOK, wire)
}

// Delete обрабатывает DELETE /api/v1/{type}/{id}
func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, recordType, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	if err := h.storage.Delete(r.Context(), owner, recordType, id); err != nil {
		h.storageError(w, err, recordType, id)
		return
	}

	h.logger.Info("Record deleted", "owner", owner, "type", recordType, "id", id)
	h.notify(r.Context(), Change{Owner: owner, Kind: ChangeDeleted, Type: recordType, ID: id})
	w.WriteHeader(http.StatusNoContent)
}

// scope извлекает владельца из контекста и тип записи из пути
func (h *RecordsHandler) scope(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	owner, ok := GetOwner(r.Context())
	if !ok {
		h.logger.Error("Owner not found in context")
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return "", "", false
	}

	recordType := chi.URLParam(r, "type")
	if err := validation.ValidateRecordType(recordType); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return "", "", false
	}
	return owner, recordType, true
}

func (h *RecordsHandler) recordID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := validation.ValidateRecordID(id); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

func (h *RecordsHandler) storageError(w http.ResponseWriter, err error, recordType, id string) {
	var conflict *storage.ConflictError
	switch {
	case errors.As(err, &conflict):
		h.logger.Info("Stale write rejected", "type", recordType, "id", id,
			"stored_updated_at", conflict.Current.UpdatedAt)
		writeJSON(w, h.logger, http.StatusConflict, toWire(conflict.Current))
	case errors.Is(err, storage.ErrRecordNotFound):
		writeError(w, h.logger, http.StatusNotFound, fmt.Sprintf("%s %s not found", recordType, id))
	case errors.Is(err, storage.ErrInvalidRecord):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Storage operation failed", "type", recordType, "id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
	}
}

func (h *RecordsHandler) notify(ctx context.Context, change Change) {
	if h.notifier != nil {
		h.notifier.Notify(ctx, change)
	}
}

// decodeRecord разбирает тело запроса: объект записи с полями id, createdAt, updatedAt
func decodeRecord(body io.Reader) (*storage.Record, error) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(&fields); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if fields == nil {
		return nil, errors.New("invalid request body: expected JSON object")
	}

	rec := &storage.Record{Fields: fields}

	if raw, ok := fields[fieldID]; ok {
		if err := json.Unmarshal(raw, &rec.ID); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fieldID, err)
		}
		delete(fields, fieldID)
	}
	if raw, ok := fields[fieldCreatedAt]; ok {
		if err := json.Unmarshal(raw, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fieldCreatedAt, err)
		}
		delete(fields, fieldCreatedAt)
	}
	if raw, ok := fields[fieldUpdatedAt]; ok {
		if err := json.Unmarshal(raw, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fieldUpdatedAt, err)
		}
		delete(fields, fieldUpdatedAt)
	}

	return rec, nil
}

// toWire собирает JSON объект записи: поля плюс id и метки времени
func toWire(rec *storage.Record) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(rec.Fields)+3)
	for name, value := range rec.Fields {
		out[name] = value
	}
	out[fieldID], _ = json.Marshal(rec.ID)
	out[fieldCreatedAt], _ = json.Marshal(rec.CreatedAt.UTC())
	out[fieldUpdatedAt], _ = json.Marshal(rec.UpdatedAt.UTC())
	return out
}

// ErrorResponse - тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
