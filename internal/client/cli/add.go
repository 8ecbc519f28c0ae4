package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophsync/internal/client/iocli"
	"github.com/iudanet/gophsync/internal/models"
)

// NewAddCommand creates records locally.
func NewAddCommand(opts *RootOptions, console iocli.IO) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a record",
		Long: `Create a record in the local store.

The record is saved immediately and pushed in the background when the
server is reachable and sync.auto_sync is on. Otherwise it stays pending.`,
	}

	cmd.AddCommand(newAddTodoCommand(opts, console))
	cmd.AddCommand(newAddNoteCommand(opts, console))
	return cmd
}

func newAddTodoCommand(opts *RootOptions, console iocli.IO) *cobra.Command {
	var (
		tags     []string
		priority int
	)

	cmd := &cobra.Command{
		Use:   "todo <title>",
		Short: "Create a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			todo := models.Todo{
				ID:       models.NewID(),
				Title:    strings.Join(args, " "),
				Tags:     tags,
				Priority: priority,
			}
			app, err := openApp(cmd.Context(), opts, console, false)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.create(cmd.Context(), todo)
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag, repeatable")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "priority, 0 means none")
	return cmd
}

func newAddNoteCommand(opts *RootOptions, console iocli.IO) *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "note <title> [body]",
		Short: "Create a note",
		Long:  "Create a note. Without a body argument the body is read from the console.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			note := models.Note{ID: models.NewID(), Title: args[0], Tags: tags}
			if len(args) == 2 {
				note.Body = args[1]
			} else {
				body, err := console.ReadInput("Body: ")
				if err != nil {
					return fmt.Errorf("failed to read body: %w", err)
				}
				note.Body = body
			}

			app, err := openApp(cmd.Context(), opts, console, false)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.create(cmd.Context(), note)
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag, repeatable")
	return cmd
}

func (a *App) create(ctx context.Context, v models.Synchronizable) error {
	rec, err := models.Encode(v, time.Now())
	if err != nil {
		return err
	}
	if err := a.engine.Save(ctx, rec); err != nil {
		return err
	}
	return a.printSaved(ctx, rec.ID, rec.Type)
}

// printSaved waits for the background push started by Save and prints the
// resulting state.
func (a *App) printSaved(ctx context.Context, id, recordType string) error {
	a.engine.Wait()

	rec, err := a.store.Get(ctx, id, recordType)
	if err != nil {
		return fmt.Errorf("failed to read saved record: %w", err)
	}
	a.io.Printf("Saved %s %s (%s)\n", rec.Type, rec.ID, rec.State)
	if rec.SyncError != "" {
		a.io.Printf("  sync error: %s\n", rec.SyncError)
	}
	return nil
}

// NewEditCommand changes fields of an existing record.
func NewEditCommand(opts *RootOptions, console iocli.IO) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Change a record",
		Long: `Change fields of a record. Only the given flags are changed and marked dirty,
so with sync.delta_sync only those fields are sent to the server.`,
	}

	cmd.AddCommand(newEditTodoCommand(opts, console))
	cmd.AddCommand(newEditNoteCommand(opts, console))
	return cmd
}

var errNothingToChange = errors.New("nothing to change: pass at least one field flag")

func newEditTodoCommand(opts *RootOptions, console iocli.IO) *cobra.Command {
	var (
		title    string
		tags     []string
		priority int
		done     bool
	)

	cmd := &cobra.Command{
		Use:   "todo <id>",
		Short: "Change a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			mutate := func(v *models.Todo) []string {
				var changed []string
				if flags.Changed("title") {
					v.Title = title
					changed = append(changed, "title")
				}
				if flags.Changed("done") {
					v.Done = done
					changed = append(changed, "done")
				}
				if flags.Changed("priority") {
					v.Priority = priority
					changed = append(changed, "priority")
				}
				if flags.Changed("tag") {
					v.Tags = tags
					changed = append(changed, "tags")
				}
				return changed
			}
			if !flags.Changed("title") && !flags.Changed("done") && !flags.Changed("priority") && !flags.Changed("tag") {
				return errNothingToChange
			}

			app, err := openApp(cmd.Context(), opts, console, false)
			if err != nil {
				return err
			}
			defer app.Close()
			return editRecord(cmd.Context(), app, args[0], models.TypeTodo, mutate)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().BoolVar(&done, "done", false, "mark done (--done=false to reopen)")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "new priority")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "replace tags, repeatable")
	return cmd
}

func newEditNoteCommand(opts *RootOptions, console iocli.IO) *cobra.Command {
	var (
		title string
		body  string
		tags  []string
	)

	cmd := &cobra.Command{
		Use:   "note <id>",
		Short: "Change a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("title") && !flags.Changed("body") && !flags.Changed("tag") {
				return errNothingToChange
			}
			mutate := func(v *models.Note) []string {
				var changed []string
				if flags.Changed("title") {
					v.Title = title
					changed = append(changed, "title")
				}
				if flags.Changed("body") {
					v.Body = body
					changed = append(changed, "body")
				}
				if flags.Changed("tag") {
					v.Tags = tags
					changed = append(changed, "tags")
				}
				return changed
			}

			app, err := openApp(cmd.Context(), opts, console, false)
			if err != nil {
				return err
			}
			defer app.Close()
			return editRecord(cmd.Context(), app, args[0], models.TypeNote, mutate)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&body, "body", "", "new body")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "replace tags, repeatable")
	return cmd
}

func editRecord[T models.Synchronizable](ctx context.Context, a *App, id, recordType string, fn func(v *T) []string) error {
	rec, err := a.store.Get(ctx, id, recordType)
	if err != nil {
		return fmt.Errorf("failed to load %s %s: %w", recordType, id, err)
	}
	if _, err := models.Mutate(rec, time.Now(), fn); err != nil {
		return err
	}
	if err := a.engine.Save(ctx, rec); err != nil {
		return err
	}
	return a.printSaved(ctx, rec.ID, rec.Type)
}
