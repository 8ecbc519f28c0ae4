package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophsync/internal/client/iocli"
	clientsync "github.com/iudanet/gophsync/internal/client/sync"
)

// NewSyncCommand pushes pending records.
func NewSyncCommand(opts *RootOptions, console iocli.IO) *cobra.Command {
	var recordType string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push pending records to the server",
		Long: `Push every pending record, or only one record type with --type.

Records that exhausted their retries are skipped; edit them or use 'sync --type'
after fixing the cause. With sync.bidirectional the pushed types are pulled afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), opts, console, false)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.runSync(cmd.Context(), recordType)
		},
	}

	cmd.Flags().StringVarP(&recordType, "type", "t", "", "sync only this record type")
	return cmd
}

func (a *App) runSync(ctx context.Context, recordType string) error {
	var (
		res *clientsync.Result
		err error
	)
	if recordType != "" {
		res, err = a.engine.SyncByType(ctx, recordType)
	} else {
		res, err = a.engine.SyncAllPending(ctx)
	}
	if err != nil {
		return err
	}
	return a.report("Sync", res)
}

// NewPullCommand fetches remote changes of one record type.
func NewPullCommand(opts *RootOptions, console iocli.IO) *cobra.Command {
	var (
		since string
		full  bool
	)

	cmd := &cobra.Command{
		Use:   "pull <type>",
		Short: "Fetch server changes of a record type",
		Long: `Fetch records of a type changed on the server since the last sync.

Use --since to pick the starting point (RFC3339) or --full to fetch everything.
Locally modified records go through the conflict strategy.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := pullSince(since, full)
			if err != nil {
				return err
			}
			app, err := openApp(cmd.Context(), opts, console, false)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.runPull(cmd.Context(), args[0], from)
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "fetch changes after this time (RFC3339)")
	cmd.Flags().BoolVar(&full, "full", false, "fetch every record")
	cmd.MarkFlagsMutuallyExclusive("since", "full")
	return cmd
}

func pullSince(since string, full bool) (*time.Time, error) {
	switch {
	case full:
		return &time.Time{}, nil
	case since != "":
		t, err := time.Parse(time.RFC3339Nano, since)
		if err != nil {
			return nil, fmt.Errorf("invalid --since: %w", err)
		}
		return &t, nil
	default:
		return nil, nil
	}
}

func (a *App) runPull(ctx context.Context, recordType string, since *time.Time) error {
	res, err := a.engine.PullFromServer(ctx, recordType, since)
	if err != nil {
		return err
	}
	return a.report("Pull", res)
}

// report prints a sync result and turns failures into an error.
func (a *App) report(operation string, res *clientsync.Result) error {
	switch res.Kind {
	case clientsync.ResultConnectionUnavailable:
		return ErrOffline
	case clientsync.ResultNoChanges:
		a.io.Printf("%s: nothing to do\n", operation)
		return nil
	}

	a.io.Printf("%s: %s, processed %d, failed %d", operation, res.Kind, res.Processed, res.Failed)
	if res.Pulled > 0 {
		a.io.Printf(", pulled %d", res.Pulled)
	}
	if res.Skipped > 0 {
		a.io.Printf(", skipped %d", res.Skipped)
	}
	a.io.Printf(" (%s)\n", res.Duration.Round(time.Millisecond))

	for _, err := range res.Errors {
		a.io.Printf("  error: %v\n", err)
	}

	if !res.IsSuccess() {
		return fmt.Errorf("%s %s", operation, res.Kind)
	}
	return nil
}
