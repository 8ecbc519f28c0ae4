package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophsync/internal/client/iocli"
	clientsync "github.com/iudanet/gophsync/internal/client/sync"
	"github.com/iudanet/gophsync/internal/config"
)

// NewWatchCommand keeps syncing in the foreground until interrupted.
func NewWatchCommand(opts *RootOptions, console iocli.IO) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Sync continuously and print status changes",
		Long: `Run the sync engine in the foreground: periodic sync, sync on reconnect and,
with realtime.enabled, server change events over WebSocket.

Editing sync.interval in the config file takes effect without restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), opts, console, true)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.runWatch(cmd.Context())
		},
	}
}

func (a *App) runWatch(ctx context.Context) error {
	statuses, unsubscribe := a.engine.Subscribe()
	defer unsubscribe()

	manager, err := a.realtime()
	if err != nil {
		return err
	}
	if manager != nil {
		defer func() { _ = manager.Close() }()

		events, unsubscribeEvents := manager.Events()
		defer unsubscribeEvents()
		a.engine.AttachRealtime(ctx, events)

		// менеджер сам переподключается, ошибка первого подключения не фатальна
		if err := manager.Connect(ctx); err != nil {
			a.logger.Warn("Realtime connection failed", "error", err)
		}
	}

	a.loader.Watch(func(cfg *config.Config, err error) {
		if err != nil {
			a.logger.Error("Ignoring invalid config change", "error", err)
			return
		}
		a.applyInterval(cfg.Sync.Interval)
	})

	a.io.Printf("Watching %s, press Ctrl+C to stop\n", a.cfg.Server.URL)
	a.printStatus(a.engine.Status())

	if a.engine.Status().PendingCount > 0 {
		if _, err := a.engine.SyncAllPending(ctx); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			a.io.Println("Stopped")
			return nil
		case st, ok := <-statuses:
			if !ok {
				return nil
			}
			a.printStatus(st)
		}
	}
}

func (a *App) applyInterval(interval time.Duration) {
	if interval <= 0 {
		a.engine.StopPeriodicSync()
		return
	}
	a.engine.StartPeriodicSync(interval)
}

func (a *App) printStatus(st clientsync.Status) {
	last := "never"
	if !st.LastSyncTime.IsZero() {
		last = st.LastSyncTime.Local().Format(time.TimeOnly)
	}
	a.io.Printf("[%s] connected=%t syncing=%t pending=%d last_sync=%s",
		time.Now().Format(time.TimeOnly), st.Connected, st.InProgress, st.PendingCount, last)
	if st.HasErrors() {
		a.io.Printf(" error=%q", st.LastError)
	}
	a.io.Println()
}
