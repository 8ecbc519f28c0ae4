package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophsync/internal/client/iocli"
	"github.com/iudanet/gophsync/internal/models"
)

type statusView struct {
	LastSync  time.Time
	Server    string
	LastError string
	Types     []typeCounts
	Pending   int
	Connected bool
}

type typeCounts struct {
	Type    string
	Total   int
	Pending int
	Failed  int
}

// NewStatusCommand shows connectivity, pending records and the last sync time.
func NewStatusCommand(opts *RootOptions, console iocli.IO) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show synchronization status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), opts, console, false)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.runStatus(cmd.Context())
		},
	}
}

func (a *App) runStatus(ctx context.Context) error {
	st := a.engine.Status()
	view := statusView{
		Server:    a.cfg.Server.URL,
		Connected: st.Connected,
		Pending:   st.PendingCount,
		LastSync:  st.LastSyncTime,
		LastError: st.LastError,
	}

	for _, typ := range a.registry.Types() {
		records, err := a.store.GetAll(ctx, typ)
		if err != nil {
			return fmt.Errorf("failed to read %s records: %w", typ, err)
		}
		counts := typeCounts{Type: typ, Total: len(records)}
		for _, rec := range records {
			switch rec.State {
			case models.StatePending:
				counts.Pending++
			case models.StateFailed:
				counts.Failed++
			}
		}
		view.Types = append(view.Types, counts)
	}

	if err := templates.ExecuteTemplate(a.io, "status", view); err != nil {
		return fmt.Errorf("failed to render status: %w", err)
	}

	if view.Pending > 0 {
		a.io.Printf("\n%d record(s) waiting to be synchronized. Run 'gophsync sync'.\n", view.Pending)
	} else {
		a.io.Println("\nAll records synchronized with server")
	}
	return nil
}
