package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/iudanet/gophsync/internal/broadcast"
	"github.com/iudanet/gophsync/internal/client/connectivity"
	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/client/ws"
	"github.com/iudanet/gophsync/internal/models"
)

// Engine orchestrates synchronization: connectivity gating, the single
// full-pass guard, retry limits and backoff, batching, periodic sync and the
// status stream.
//
// Record-level operations (SyncOne, Save) may overlap with a running full pass.
type Engine struct {
	monitor  connectivity.Monitor
	repo     *Repository
	store    storage.RecordStore
	registry *models.Registry
	logger   *slog.Logger
	status   *broadcast.Broadcaster[Status]
	now      func() time.Time

	// lifecycle фоновых горутин
	ctx    context.Context
	cancel context.CancelFunc

	stopPeriodic context.CancelFunc
	lastSyncTime time.Time
	lastError    string

	wg           gosync.WaitGroup // долгоживущие горутины
	tasks        gosync.WaitGroup // фоновые синхронизации
	periodicWG   gosync.WaitGroup
	cfg          Config
	pendingCount int
	mu           gosync.Mutex
	syncing      atomic.Bool
	connected    bool
	started      bool
	stopped      bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineClock overrides the time source.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a sync engine. Call Start to load persisted state and
// react to connectivity changes, and Stop to release background goroutines.
func NewEngine(
	repo *Repository,
	store storage.RecordStore,
	registry *models.Registry,
	monitor connectivity.Monitor,
	cfg Config,
	logger *slog.Logger,
	opts ...EngineOption,
) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		repo:     repo,
		store:    store,
		registry: registry,
		monitor:  monitor,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		status:   broadcast.New[Status](16),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start loads the last sync time and pending count, subscribes to
// connectivity changes and, with auto sync enabled, starts periodic sync.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	last, err := e.store.GetLastSyncTime(ctx)
	if err != nil {
		return fmt.Errorf("failed to load last sync time: %w", err)
	}
	pending, err := e.store.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending count: %w", err)
	}
	st := e.monitor.Current(ctx)

	e.mu.Lock()
	e.lastSyncTime = last
	e.pendingCount = pending
	e.connected = e.cfg.Connectivity.Satisfied(st)
	e.mu.Unlock()

	changes, unsubscribe := e.monitor.Subscribe()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer unsubscribe()
		e.watchConnectivity(changes)
	}()

	if e.cfg.AutoSync && e.cfg.SyncInterval > 0 {
		e.StartPeriodicSync(e.cfg.SyncInterval)
	}

	e.logger.Info("Sync engine started",
		"pending", pending,
		"last_sync", last,
		"connected", e.Status().Connected,
	)
	e.publish()
	return nil
}

// Stop stops periodic sync and waits for background work to finish.
// The status stream is closed.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()

	e.StopPeriodicSync()
	e.cancel()
	e.wg.Wait()
	e.tasks.Wait()
	e.status.Close()
}

// Wait blocks until background syncs started by Save and connectivity
// changes have finished.
func (e *Engine) Wait() {
	e.tasks.Wait()
}

// Status returns the current status snapshot.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Subscribe returns a stream of status snapshots. Snapshots published before
// the call are not replayed.
func (e *Engine) Subscribe() (<-chan Status, func()) {
	return e.status.Subscribe()
}

// Save stores a record locally and, with auto sync enabled and connectivity
// available, pushes it in the background. It returns once the record is
// durably stored.
func (e *Engine) Save(ctx context.Context, rec *models.Record) error {
	if _, err := e.registry.Lookup(rec.Type); err != nil {
		return err
	}
	if err := e.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	e.refresh(ctx)
	e.publish()

	if e.cfg.AutoSync && e.isOnline(ctx) && rec.IsPending() {
		snapshot := rec.Clone()
		e.background(func(ctx context.Context) {
			if _, err := e.push(ctx, snapshot); err != nil {
				e.logger.Error("Background sync failed", "type", snapshot.Type, "id", snapshot.ID, "error", err)
			}
		})
	}
	return nil
}

// SyncOne stores rec as the current local version and pushes it, ignoring
// the retry cap and backoff. Without connectivity the record stays pending.
func (e *Engine) SyncOne(ctx context.Context, rec *models.Record) (*Result, error) {
	if _, err := e.registry.Lookup(rec.Type); err != nil {
		return nil, err
	}
	if err := e.store.Save(ctx, rec); err != nil {
		return failed(fmt.Errorf("failed to save record: %w", err)), nil
	}

	if !e.isOnline(ctx) {
		e.refresh(ctx)
		e.publish()
		return connectionUnavailable(), nil
	}
	return e.push(ctx, rec)
}

// push sends one already stored record. The store keeps any newer local
// version that appears while the request is in flight.
func (e *Engine) push(ctx context.Context, rec *models.Record) (*Result, error) {
	var (
		res *Result
		err error
	)
	if e.cfg.DeltaSync {
		res, err = e.repo.PushDelta(ctx, rec)
	} else {
		res, err = e.repo.Push(ctx, rec)
	}
	if err != nil {
		return nil, err
	}

	e.finish(ctx, res)
	return res, nil
}

// SyncMany stores the given records as the current local versions and
// pushes them as one batch.
func (e *Engine) SyncMany(ctx context.Context, records []*models.Record) (*Result, error) {
	for _, rec := range records {
		if _, err := e.registry.Lookup(rec.Type); err != nil {
			return nil, err
		}
	}
	if err := e.store.SaveAll(ctx, records); err != nil {
		return errored(fmt.Errorf("failed to save records: %w", err)), nil
	}

	if !e.isOnline(ctx) {
		e.refresh(ctx)
		e.publish()
		return connectionUnavailable(), nil
	}

	if !e.begin() {
		return &Result{Kind: ResultFailed, Errors: []error{ErrSyncInProgress}}, nil
	}
	defer e.end()

	res, err := e.repo.PushAll(ctx, records, e.cfg.Bidirectional)
	if err != nil {
		return nil, err
	}
	e.finish(ctx, res)
	return res, nil
}

// SyncAllPending pushes every eligible pending record of every registered
// type. Only one full pass runs at a time; a concurrent call returns a Failed
// result wrapping ErrSyncInProgress without touching the network.
func (e *Engine) SyncAllPending(ctx context.Context) (*Result, error) {
	if !e.begin() {
		e.logger.Debug("Sync already in progress")
		return &Result{Kind: ResultFailed, Errors: []error{ErrSyncInProgress}}, nil
	}
	defer e.end()

	if !e.isOnline(ctx) {
		res := connectionUnavailable()
		e.finish(ctx, res)
		return res, nil
	}

	start := e.now()
	e.logger.Info("Starting synchronization", "pending", e.Status().PendingCount)

	types := e.registry.Types()
	results := make([]*Result, 0, len(types))
	for _, typ := range types {
		res, err := e.syncByType(ctx, typ)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	res := combine(results...)
	res.Duration = e.now().Sub(start)

	e.logger.Info("Synchronization completed",
		"result", res.Kind.String(),
		"processed", res.Processed,
		"failed", res.Failed,
		"pulled", res.Pulled,
		"duration", res.Duration,
	)

	e.finish(ctx, res)
	return res, nil
}

// SyncByType pushes every eligible pending record of one type.
func (e *Engine) SyncByType(ctx context.Context, typ string) (*Result, error) {
	if _, err := e.registry.Lookup(typ); err != nil {
		return nil, err
	}
	if !e.begin() {
		return &Result{Kind: ResultFailed, Errors: []error{ErrSyncInProgress}}, nil
	}
	defer e.end()

	if !e.isOnline(ctx) {
		res := connectionUnavailable()
		e.finish(ctx, res)
		return res, nil
	}

	res, err := e.syncByType(ctx, typ)
	if err != nil {
		return nil, err
	}
	e.finish(ctx, res)
	return res, nil
}

// syncByType selects eligible records and pushes them in batches of
// BatchSize. Only the last batch triggers the bidirectional pull.
func (e *Engine) syncByType(ctx context.Context, typ string) (*Result, error) {
	pending, err := e.store.GetPending(ctx, typ)
	if err != nil {
		return errored(fmt.Errorf("failed to load pending %s records: %w", typ, err)), nil
	}

	eligible := e.eligible(pending)
	if len(eligible) == 0 {
		return noChanges(), nil
	}

	results := make([]*Result, 0, len(eligible)/e.cfg.BatchSize+1)
	for start := 0; start < len(eligible); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(eligible))
		last := end == len(eligible)

		res, err := e.repo.PushAll(ctx, eligible[start:end], e.cfg.Bidirectional && last)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	return combine(results...), nil
}

// eligible drops records that exhausted their retries or are still inside
// their backoff window.
func (e *Engine) eligible(pending []*models.Record) []*models.Record {
	now := e.now()
	out := make([]*models.Record, 0, len(pending))

	for _, rec := range pending {
		if rec.Attempts >= e.cfg.MaxRetryAttempts {
			e.logger.Debug("Retry limit reached, skipping",
				"type", rec.Type, "id", rec.ID, "attempts", rec.Attempts)
			continue
		}
		if rec.State == models.StateFailed && rec.Attempts > 0 {
			next := rec.LastAttemptAt.Add(e.cfg.RetryDelay(rec.Attempts))
			if now.Before(next) {
				e.logger.Debug("Record in backoff, skipping",
					"type", rec.Type, "id", rec.ID, "retry_at", next)
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

// PullFromServer pulls one type. A nil since uses the last sync time.
func (e *Engine) PullFromServer(ctx context.Context, typ string, since *time.Time) (*Result, error) {
	if _, err := e.registry.Lookup(typ); err != nil {
		return nil, err
	}
	if !e.isOnline(ctx) {
		return connectionUnavailable(), nil
	}

	from := e.Status().LastSyncTime
	if since != nil {
		from = *since
	}

	res, err := e.repo.Pull(ctx, typ, from)
	if err != nil {
		return nil, err
	}
	e.finish(ctx, res)
	return res, nil
}

// Delete removes a record on the server and then locally.
// Without connectivity nothing is deleted.
func (e *Engine) Delete(ctx context.Context, id, typ string) (*Result, error) {
	if _, err := e.registry.Lookup(typ); err != nil {
		return nil, err
	}
	if !e.isOnline(ctx) {
		return connectionUnavailable(), nil
	}

	res, err := e.repo.DeleteRemote(ctx, id, typ)
	if err != nil {
		return nil, err
	}
	e.finish(ctx, res)
	return res, nil
}

// StartPeriodicSync runs SyncAllPending every interval while records are
// pending and connectivity is available. A running schedule is replaced.
func (e *Engine) StartPeriodicSync(interval time.Duration) {
	if interval <= 0 {
		return
	}
	e.StopPeriodicSync()

	ctx, cancel := context.WithCancel(e.ctx)
	e.mu.Lock()
	e.stopPeriodic = cancel
	e.mu.Unlock()

	e.periodicWG.Add(1)
	go func() {
		defer e.periodicWG.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.tick(ctx)
			}
		}
	}()

	e.logger.Info("Periodic sync started", "interval", interval)
}

// StopPeriodicSync stops the periodic schedule, if any.
func (e *Engine) StopPeriodicSync() {
	e.mu.Lock()
	cancel := e.stopPeriodic
	e.stopPeriodic = nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	e.periodicWG.Wait()
	e.logger.Info("Periodic sync stopped")
}

func (e *Engine) tick(ctx context.Context) {
	if e.Status().PendingCount == 0 || !e.isOnline(ctx) {
		return
	}
	if _, err := e.SyncAllPending(ctx); err != nil {
		e.logger.Error("Periodic sync failed", "error", err)
	}
}

// AttachRealtime consumes WebSocket events until ctx is done or events is
// closed: a new connection flushes pending records, data events pull the
// affected type.
func (e *Engine) AttachRealtime(ctx context.Context, events <-chan ws.Event) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				e.handleEvent(ctx, ev)
			}
		}
	}()
}

func (e *Engine) handleEvent(ctx context.Context, ev ws.Event) {
	switch ev.Kind {
	case ws.EventConnectionEstablished:
		if e.cfg.AutoSync && e.Status().PendingCount > 0 {
			if _, err := e.SyncAllPending(ctx); err != nil {
				e.logger.Error("Sync after reconnect failed", "error", err)
			}
		}

	case ws.EventDataCreated, ws.EventDataUpdated:
		e.pullEventType(ctx, ev.RecordType())

	case ws.EventDataDeleted:
		e.applyRemoteDelete(ctx, ev)

	case ws.EventSyncRequired:
		typ := ev.RecordType()
		if typ != "" {
			e.pullEventType(ctx, typ)
			return
		}
		for _, t := range e.registry.Types() {
			e.pullEventType(ctx, t)
		}
	}
}

func (e *Engine) pullEventType(ctx context.Context, typ string) {
	if typ == "" {
		return
	}
	if _, err := e.registry.Lookup(typ); err != nil {
		e.logger.Debug("Ignoring event for unregistered type", "type", typ)
		return
	}
	if _, err := e.PullFromServer(ctx, typ, nil); err != nil {
		e.logger.Error("Pull after server event failed", "type", typ, "error", err)
	}
}

// applyRemoteDelete removes the local copy of a record deleted on the server,
// unless it has local changes.
func (e *Engine) applyRemoteDelete(ctx context.Context, ev ws.Event) {
	typ := ev.RecordType()
	if _, err := e.registry.Lookup(typ); err != nil {
		return
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(ev.Data, &payload); err != nil || payload.ID == "" {
		return
	}

	local, err := e.store.Get(ctx, payload.ID, typ)
	if err != nil {
		if !errors.Is(err, storage.ErrRecordNotFound) {
			e.logger.Warn("Failed to read record deleted on server", "type", typ, "id", payload.ID, "error", err)
		}
		return
	}
	if local.IsPending() {
		e.logger.Info("Keeping locally modified record deleted on server", "type", typ, "id", payload.ID)
		return
	}

	if err := e.store.Delete(ctx, payload.ID, typ); err != nil {
		e.logger.Warn("Failed to delete record deleted on server", "type", typ, "id", payload.ID, "error", err)
		return
	}
	e.refresh(ctx)
	e.publish()
}

// watchConnectivity tracks connectivity and flushes pending records when the
// requirement becomes satisfied.
func (e *Engine) watchConnectivity(changes <-chan connectivity.State) {
	for {
		select {
		case <-e.ctx.Done():
			return
		case st, ok := <-changes:
			if !ok {
				return
			}
			online := e.cfg.Connectivity.Satisfied(st)

			e.mu.Lock()
			wasOnline := e.connected
			e.connected = online
			pending := e.pendingCount
			e.mu.Unlock()

			e.logger.Info("Connectivity changed", "kind", st.Kind.String(), "online", online)
			e.publish()

			if online && !wasOnline && e.cfg.AutoSync && pending > 0 && !e.syncing.Load() {
				e.background(func(ctx context.Context) {
					if _, err := e.SyncAllPending(ctx); err != nil {
						e.logger.Error("Sync after reconnect failed", "error", err)
					}
				})
			}
		}
	}
}

func (e *Engine) isOnline(ctx context.Context) bool {
	online := e.cfg.Connectivity.Satisfied(e.monitor.Current(ctx))
	e.mu.Lock()
	e.connected = online
	e.mu.Unlock()
	return online
}

// begin acquires the full-pass flag.
func (e *Engine) begin() bool {
	if !e.syncing.CompareAndSwap(false, true) {
		return false
	}
	e.publish()
	return true
}

func (e *Engine) end() {
	e.syncing.Store(false)
	e.publish()
}

// finish refreshes cached counters and the last error after a sync unit.
func (e *Engine) finish(ctx context.Context, res *Result) {
	e.refresh(ctx)

	e.mu.Lock()
	if err := res.Err(); err != nil && !res.IsSuccess() {
		e.lastError = err.Error()
	} else {
		e.lastError = ""
	}
	e.mu.Unlock()

	e.publish()
}

func (e *Engine) refresh(ctx context.Context) {
	pending, err := e.store.PendingCount(ctx)
	if err != nil {
		e.logger.Warn("Failed to count pending records", "error", err)
	}
	last, lerr := e.store.GetLastSyncTime(ctx)
	if lerr != nil {
		e.logger.Warn("Failed to get last sync time", "error", lerr)
	}

	e.mu.Lock()
	if err == nil {
		e.pendingCount = pending
	}
	if lerr == nil {
		e.lastSyncTime = last
	}
	e.mu.Unlock()
}

func (e *Engine) publish() {
	e.mu.Lock()
	st := e.snapshot()
	e.mu.Unlock()
	e.status.Publish(st)
}

// snapshot must be called with mu held.
func (e *Engine) snapshot() Status {
	return Status{
		Connected:    e.connected,
		InProgress:   e.syncing.Load(),
		PendingCount: e.pendingCount,
		LastSyncTime: e.lastSyncTime,
		LastError:    e.lastError,
	}
}

// background runs fn on the engine context. After Stop nothing is started.
func (e *Engine) background(fn func(ctx context.Context)) {
	e.mu.Lock()
	if e.stopped || e.ctx.Err() != nil {
		e.mu.Unlock()
		e.logger.Debug("Engine stopped, background sync skipped")
		return
	}
	e.tasks.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.tasks.Done()
		fn(e.ctx)
	}()
}
