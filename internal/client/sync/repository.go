package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/client/transport"
	"github.com/iudanet/gophsync/internal/conflict"
	"github.com/iudanet/gophsync/internal/delta"
	"github.com/iudanet/gophsync/internal/models"
)

// Repository executes sync units for individual records and record types:
// push, delta push, batch push and pull.
//
// Record-level failures are reported through Result. A non-nil error is
// returned only for configuration mistakes, which must not be retried.
type Repository struct {
	transport transport.Transport
	store     storage.RecordStore
	registry  *models.Registry
	resolver  *conflict.Resolver
	logger    *slog.Logger
	now       func() time.Time
	cfg       Config
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithRepositoryClock overrides the time source.
func WithRepositoryClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		r.now = now
	}
}

// NewRepository creates a sync repository.
func NewRepository(
	t transport.Transport,
	store storage.RecordStore,
	registry *models.Registry,
	resolver *conflict.Resolver,
	cfg Config,
	logger *slog.Logger,
	opts ...RepositoryOption,
) *Repository {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Repository{
		transport: t,
		store:     store,
		registry:  registry,
		resolver:  resolver,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Push sends the full record. Records the server has seen before (or that
// already failed once) are updated, others are created.
func (r *Repository) Push(ctx context.Context, rec *models.Record) (*Result, error) {
	if rec.State == models.StateSynced {
		return noChanges(), nil
	}

	endpoint, err := r.registry.Endpoint(rec.Type)
	if err != nil {
		return nil, err
	}

	// base: версия, от которой отталкивается push; запись в хранилище идет только поверх нее
	local := rec.Clone()
	base := local.UpdatedAt
	payload, err := local.Payload()
	if err != nil {
		return r.fail(ctx, local, base, err), nil
	}

	update := local.Attempts > 0 || local.Acknowledged()
	resp, err := r.send(ctx, endpoint, local.ID, payload, update)
	if err != nil {
		r.logger.Warn("Push failed", "type", local.Type, "id", local.ID, "error", err)
		return r.fail(ctx, local, base, err), nil
	}

	return r.handleResponse(ctx, endpoint, local, base, resp, update)
}

// PushDelta sends only the dirty fields of an already acknowledged record.
// A record the server has never seen falls back to Push.
func (r *Repository) PushDelta(ctx context.Context, rec *models.Record) (*Result, error) {
	if rec.State == models.StateSynced {
		return noChanges(), nil
	}
	if !rec.Acknowledged() {
		return r.Push(ctx, rec)
	}

	endpoint, err := r.registry.Endpoint(rec.Type)
	if err != nil {
		return nil, err
	}

	local := rec.Clone()
	base := local.UpdatedAt
	payload, err := delta.Build(local)
	if err != nil {
		return r.fail(ctx, local, base, err), nil
	}

	// нечего отправлять: изменения уже на сервере
	if payload.IsEmpty() {
		return r.markSynced(ctx, local, base), nil
	}

	resp, err := r.transport.Update(ctx, endpoint, local.ID, payload)
	if err != nil {
		r.logger.Warn("Delta push failed", "type", local.Type, "id", local.ID, "error", err)
		return r.fail(ctx, local, base, err), nil
	}

	return r.handleResponse(ctx, endpoint, local, base, resp, true)
}

// PushAll pushes records concurrently, bounded by MaxConcurrency.
// With bidirectional set, every record type in the batch is pulled after all
// pushes complete, and the last sync time advances only if every pull succeeded.
func (r *Repository) PushAll(ctx context.Context, records []*models.Record, bidirectional bool) (*Result, error) {
	start := r.now()

	for _, rec := range records {
		if _, err := r.registry.Lookup(rec.Type); err != nil {
			return nil, err
		}
	}

	results := make([]*Result, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrency)

	for i, rec := range records {
		g.Go(func() error {
			var (
				res *Result
				err error
			)
			if r.cfg.DeltaSync {
				res, err = r.PushDelta(gctx, rec)
			} else {
				res, err = r.Push(gctx, rec)
			}
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := combine(results...)

	if bidirectional && len(records) > 0 {
		if err := r.pullTypes(ctx, typesOf(records), out); err != nil {
			return nil, err
		}
	}

	out.Duration = r.now().Sub(start)

	r.logger.Info("Batch push finished",
		"records", len(records),
		"processed", out.Processed,
		"failed", out.Failed,
		"pulled", out.Pulled,
		"result", out.Kind.String(),
	)

	return out, nil
}

// pullTypes pulls each type since the stored last sync time and folds the
// outcome into out.
func (r *Repository) pullTypes(ctx context.Context, types []string, out *Result) error {
	since, err := r.store.GetLastSyncTime(ctx)
	if err != nil {
		r.logger.Warn("Failed to get last sync time, pulling everything", "error", err)
		since = time.Time{}
	}

	pullStart := r.now()
	pullFailed := false

	for _, typ := range types {
		res, err := r.Pull(ctx, typ, since)
		if err != nil {
			return err
		}
		out.Pulled += res.Processed
		out.Skipped += res.Skipped
		if res.Kind == ResultFailed {
			pullFailed = true
			out.Errors = append(out.Errors, res.Errors...)
		}
	}

	if pullFailed {
		switch out.Kind {
		case ResultSuccess:
			out.Kind = ResultPartial
		case ResultNoChanges:
			out.Kind = ResultFailed
		}
		return nil
	}

	if err := r.store.SetLastSyncTime(ctx, pullStart); err != nil {
		r.logger.Warn("Failed to save last sync time", "error", err)
		out.Errors = append(out.Errors, err)
	}
	return nil
}

// Pull fetches remote records of typ changed since the given time (zero means
// everything) and applies them locally. Items that fail to decode are skipped.
// A remote record never overwrites a pending local copy without going through
// the conflict resolver.
func (r *Repository) Pull(ctx context.Context, typ string, since time.Time) (*Result, error) {
	start := r.now()

	info, err := r.registry.Lookup(typ)
	if err != nil {
		return nil, err
	}

	remote, skipped, err := r.fetch(ctx, info, since)
	if err != nil {
		r.logger.Warn("Pull failed", "type", typ, "error", err)
		return r.pullFailure(err, start), nil
	}

	if len(remote) == 0 {
		res := noChanges()
		res.Skipped = skipped
		return res, nil
	}

	applied, conflicts := 0, 0

	for _, rec := range remote {
		winner, base, isConflict, err := r.reconcile(ctx, rec)
		if err != nil {
			return r.pullFailure(err, start), nil
		}
		if isConflict {
			conflicts++
		}
		if winner == nil {
			continue
		}

		if winner == rec {
			err = r.store.MarkSynced(ctx, winner, base)
		} else {
			err = r.store.SaveIfUnchanged(ctx, winner, base)
		}
		if errors.Is(err, storage.ErrVersionChanged) {
			// локальная копия изменилась во время pull и уйдет на сервер сама
			r.logger.Info("Local record changed during pull, keeping it", "type", rec.Type, "id", rec.ID)
			continue
		}
		if err != nil {
			return r.pullFailure(fmt.Errorf("failed to save pulled %s: %w", rec.Key(), err), start), nil
		}
		applied++
	}

	r.logger.Info("Pulled records",
		"type", typ,
		"fetched", len(remote),
		"applied", applied,
		"conflicts", conflicts,
		"skipped", skipped,
	)

	return &Result{
		Kind:      ResultSuccess,
		Processed: len(remote),
		Skipped:   skipped,
		Duration:  r.now().Sub(start),
	}, nil
}

// fetch reads every page of typ. Pagination stops on a short page or on a
// page that brings no unseen ids.
func (r *Repository) fetch(ctx context.Context, info models.TypeInfo, since time.Time) ([]*models.Record, int, error) {
	var (
		records []*models.Record
		skipped int
		offset  int
	)
	seen := make(map[string]struct{})

	for {
		resp, err := r.transport.List(ctx, info.Endpoint, transport.ListQuery{
			Since:  since,
			Limit:  r.cfg.PageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, 0, err
		}
		if !resp.IsSuccess() {
			return nil, 0, resp.Err()
		}

		items, err := resp.Records()
		if err != nil {
			return nil, 0, err
		}

		fresh := 0
		for _, raw := range items {
			rec, err := info.Decode(raw)
			if err != nil {
				r.logger.Warn("Skipping remote item", "type", info.Type, "error", err)
				skipped++
				continue
			}
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			fresh++
			records = append(records, rec)
		}

		if len(items) < r.cfg.PageSize || fresh == 0 {
			return records, skipped, nil
		}
		offset += len(items)
	}
}

// reconcile decides what to store for a pulled record. A nil winner means the
// local copy stays untouched. base is the UpdatedAt of the local copy the
// decision was made against, zero if there was none.
func (r *Repository) reconcile(ctx context.Context, remote *models.Record) (*models.Record, time.Time, bool, error) {
	local, err := r.store.Get(ctx, remote.ID, remote.Type)
	if errors.Is(err, storage.ErrRecordNotFound) {
		return remote, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("failed to read local %s: %w", remote.Key(), err)
	}
	base := local.UpdatedAt
	if !local.IsPending() {
		return remote, base, false, nil
	}

	winner := r.resolver.Resolve(conflict.Conflict{Local: local, Remote: remote})
	switch winner {
	case remote:
		r.logger.Debug("Conflict resolved to remote", "type", remote.Type, "id", remote.ID)
		return remote, base, true, nil
	case local, nil:
		r.logger.Debug("Conflict resolved to local", "type", remote.Type, "id", remote.ID)
		return nil, base, true, nil
	default:
		// объединенная версия должна уйти на сервер при следующей синхронизации
		merged := winner.Clone()
		merged.State = models.StatePending
		return merged, base, true, nil
	}
}

// DeleteRemote deletes a record on the server and then locally. A record the
// server no longer has counts as deleted.
func (r *Repository) DeleteRemote(ctx context.Context, id, typ string) (*Result, error) {
	endpoint, err := r.registry.Endpoint(typ)
	if err != nil {
		return nil, err
	}

	resp, err := r.transport.Delete(ctx, endpoint, id)
	if err != nil {
		return failed(err), nil
	}
	if !resp.IsSuccess() && resp.StatusCode != http.StatusNotFound {
		return failed(resp.Err()), nil
	}

	if err := r.store.Delete(ctx, id, typ); err != nil {
		return failed(fmt.Errorf("failed to delete local %s/%s: %w", typ, id, err)), nil
	}
	return succeeded(1), nil
}

func (r *Repository) send(ctx context.Context, endpoint, id string, body any, update bool) (*transport.Response, error) {
	if update {
		return r.transport.Update(ctx, endpoint, id, body)
	}
	return r.transport.Create(ctx, endpoint, body)
}

// handleResponse applies a push response to the local record.
func (r *Repository) handleResponse(
	ctx context.Context,
	endpoint string,
	local *models.Record,
	base time.Time,
	resp *transport.Response,
	update bool,
) (*Result, error) {
	switch {
	case resp.IsSuccess():
		return r.markSynced(ctx, local, base), nil

	case resp.StatusCode == http.StatusConflict:
		return r.resolveConflict(ctx, endpoint, local, base, resp)

	case update && resp.StatusCode == http.StatusNotFound:
		// обновление записи, которой нет на сервере, превращается в создание
		payload, err := local.Payload()
		if err != nil {
			return r.fail(ctx, local, base, err), nil
		}
		created, err := r.transport.Create(ctx, endpoint, payload)
		if err != nil {
			return r.fail(ctx, local, base, err), nil
		}
		if !created.IsSuccess() {
			return r.fail(ctx, local, base, created.Err()), nil
		}
		return r.markSynced(ctx, local, base), nil

	default:
		return r.fail(ctx, local, base, resp.Err()), nil
	}
}

// resolveConflict handles a 409 whose body is the server copy of the record.
func (r *Repository) resolveConflict(
	ctx context.Context,
	endpoint string,
	local *models.Record,
	base time.Time,
	resp *transport.Response,
) (*Result, error) {
	info, err := r.registry.Lookup(local.Type)
	if err != nil {
		return nil, err
	}

	remote, err := info.Decode(resp.Body)
	if err != nil {
		r.logger.Warn("Conflict without usable server copy", "type", local.Type, "id", local.ID, "error", err)
		return r.fail(ctx, local, base, resp.Err()), nil
	}

	winner := r.resolver.Resolve(conflict.Conflict{Local: local, Remote: remote})
	if winner == nil || winner == remote {
		r.logger.Info("Conflict resolved to server copy", "type", local.Type, "id", local.ID)
		return r.markSynced(ctx, remote, base), nil
	}

	// локальная версия победила: перезаписываем серверную, сдвинув метку времени
	out := winner.Clone()
	if !out.UpdatedAt.After(remote.UpdatedAt) {
		out.UpdatedAt = remote.UpdatedAt.Add(time.Millisecond)
	}

	payload, err := out.Payload()
	if err != nil {
		return r.fail(ctx, out, base, err), nil
	}

	retry, err := r.transport.Update(ctx, endpoint, out.ID, payload)
	if err != nil {
		return r.fail(ctx, out, base, err), nil
	}
	if !retry.IsSuccess() {
		return r.fail(ctx, out, base, retry.Err()), nil
	}

	r.logger.Info("Conflict resolved to local copy", "type", local.Type, "id", local.ID)
	return r.markSynced(ctx, out, base), nil
}

// pullFailure reports a failed pull. No record changed state, so Failed stays zero.
func (r *Repository) pullFailure(err error, start time.Time) *Result {
	res := errored(err)
	res.Duration = r.now().Sub(start)
	return res
}

// markSynced stores rec as acknowledged unless the stored copy moved past
// base; a newer local edit then stays pending for the next pass.
func (r *Repository) markSynced(ctx context.Context, rec *models.Record, base time.Time) *Result {
	err := r.store.MarkSynced(ctx, rec, base)
	switch {
	case errors.Is(err, storage.ErrVersionChanged):
		r.logger.Info("Record changed during sync, keeping newer local copy pending", "type", rec.Type, "id", rec.ID)
	case err != nil:
		r.logger.Error("Failed to persist synced record", "type", rec.Type, "id", rec.ID, "error", err)
		return &Result{Kind: ResultPartial, Processed: 1, Errors: []error{err}}
	}
	return succeeded(1)
}

// fail records a failed attempt unless the stored copy moved past base.
func (r *Repository) fail(ctx context.Context, rec *models.Record, base time.Time, cause error) *Result {
	res := failed(cause)
	err := r.store.MarkFailed(ctx, rec, base, cause)
	switch {
	case errors.Is(err, storage.ErrVersionChanged):
		r.logger.Info("Record changed during sync, attempt not recorded", "type", rec.Type, "id", rec.ID)
	case err != nil:
		r.logger.Error("Failed to persist failed record", "type", rec.Type, "id", rec.ID, "error", err)
		res.Errors = append(res.Errors, err)
	}
	return res
}

func typesOf(records []*models.Record) []string {
	set := make(map[string]struct{})
	for _, rec := range records {
		set[rec.Type] = struct{}{}
	}
	types := make([]string, 0, len(set))
	for typ := range set {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}
