package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophsync/internal/client/iocli"
	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/models"
)

// NewListCommand lists local records of a type.
func NewListCommand(opts *RootOptions, console iocli.IO) *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "List local records of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), opts, console, false)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.runList(cmd.Context(), args[0], pending)
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "only records not yet acknowledged by the server")
	return cmd
}

func (a *App) runList(ctx context.Context, recordType string, pending bool) error {
	if _, err := a.registry.Lookup(recordType); err != nil {
		return err
	}

	var (
		records []*models.Record
		err     error
	)
	if pending {
		records, err = a.store.GetPending(ctx, recordType)
	} else {
		records, err = a.store.GetAll(ctx, recordType)
	}
	if err != nil {
		return fmt.Errorf("failed to list %s records: %w", recordType, err)
	}

	if len(records) == 0 {
		a.io.Printf("No %s records\n", recordType)
		return nil
	}

	// свежие изменения сверху
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})

	tw := tabwriter.NewWriter(a.io, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tUPDATED\tTITLE")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ID, rec.State, rec.UpdatedAt.Local().Format(time.DateTime), recordTitle(rec))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	a.io.Printf("\nTotal: %d\n", len(records))
	return nil
}

// recordTitle returns the title field of the payload, if the type has one.
func recordTitle(rec *models.Record) string {
	var payload struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(rec.Data, &payload); err != nil {
		return ""
	}
	return payload.Title
}

// NewGetCommand shows one local record.
func NewGetCommand(opts *RootOptions, console iocli.IO) *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Show record details",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), opts, console, false)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.runGet(cmd.Context(), args[0], args[1])
		},
	}
}

func (a *App) runGet(ctx context.Context, recordType, id string) error {
	if _, err := a.registry.Lookup(recordType); err != nil {
		return err
	}

	rec, err := a.store.Get(ctx, id, recordType)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return fmt.Errorf("%s not found with ID: %s", recordType, id)
		}
		return fmt.Errorf("failed to get %s: %w", recordType, err)
	}

	switch recordType {
	case models.TypeTodo:
		todo, err := models.Decode[models.Todo](rec)
		if err != nil {
			return err
		}
		return templates.ExecuteTemplate(a.io, "todo", struct {
			Record *models.Record
			Todo   models.Todo
		}{rec, todo})

	case models.TypeNote:
		note, err := models.Decode[models.Note](rec)
		if err != nil {
			return err
		}
		return templates.ExecuteTemplate(a.io, "note", struct {
			Record *models.Record
			Note   models.Note
		}{rec, note})

	default:
		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		a.io.Println(string(out))
		return nil
	}
}

// NewDeleteCommand deletes a record on the server and locally.
func NewDeleteCommand(opts *RootOptions, console iocli.IO) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete a record on the server and locally",
		Long:  "Delete a record. The server must be reachable; offline nothing is deleted.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), opts, console, false)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.runDelete(cmd.Context(), args[0], args[1])
		},
	}
}

func (a *App) runDelete(ctx context.Context, recordType, id string) error {
	res, err := a.engine.Delete(ctx, id, recordType)
	if err != nil {
		return err
	}
	if err := a.report("Delete", res); err != nil {
		return err
	}
	a.io.Printf("Deleted %s %s\n", recordType, id)
	return nil
}
