// Package cli implements the gophsync command tree on top of the sync engine.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/iudanet/gophsync/internal/client/iocli"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath     string
	ServerURL      string
	DBPath         string
	Passphrase     string
	PassphraseFile string
	Verbose        bool
}

// VersionInfo is set via ldflags during build.
type VersionInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// NewRootCommand creates the root command of the client.
func NewRootCommand(info VersionInfo, console iocli.IO) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gophsync",
		Short: "Offline-first record sync client",
		Long: `Keeps typed records in a local store and synchronizes them with a sync server.

Changes are accepted locally first and pushed when the server is reachable.

Passphrase priority for an encrypted store (highest to lowest):
  1. GOPHSYNC_PASSPHRASE environment variable
  2. --passphrase-file (or storage.passphrase_file)
  3. --passphrase (not recommended)
  4. Interactive prompt`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(console)
	cmd.SetErr(console)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ./gophsync.yaml)")
	flags.StringVar(&opts.ServerURL, "server", "", "sync server URL, overrides server.url")
	flags.StringVar(&opts.DBPath, "db", "", "local database path, overrides storage.path")
	flags.StringVar(&opts.Passphrase, "passphrase", "", "store passphrase (not recommended, use env var or file)")
	flags.StringVar(&opts.PassphraseFile, "passphrase-file", "", "file containing the store passphrase")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewStatusCommand(opts, console))
	cmd.AddCommand(NewSyncCommand(opts, console))
	cmd.AddCommand(NewPullCommand(opts, console))
	cmd.AddCommand(NewAddCommand(opts, console))
	cmd.AddCommand(NewEditCommand(opts, console))
	cmd.AddCommand(NewListCommand(opts, console))
	cmd.AddCommand(NewGetCommand(opts, console))
	cmd.AddCommand(NewDeleteCommand(opts, console))
	cmd.AddCommand(NewWatchCommand(opts, console))
	cmd.AddCommand(NewVersionCommand(info, console))

	return cmd
}

// NewVersionCommand prints build information.
func NewVersionCommand(info VersionInfo, console iocli.IO) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			console.Println("GophSync Client")
			console.Printf("Version:    %s\n", info.Version)
			console.Printf("Build Date: %s\n", info.BuildDate)
			console.Printf("Git Commit: %s\n", info.GitCommit)
		},
	}
}
