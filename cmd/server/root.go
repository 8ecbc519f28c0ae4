package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophsync/internal/config"
	"github.com/iudanet/gophsync/internal/logging"
	"github.com/iudanet/gophsync/internal/server"
	"github.com/iudanet/gophsync/internal/server/handlers"
	"github.com/iudanet/gophsync/internal/server/storage/sqlite"
	"github.com/iudanet/gophsync/internal/validation"
)

type rootOptions struct {
	configPath string
	addr       string
	dbPath     string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "gophsync-server",
		Short: "Reference sync server",
		Long: `Stores records per owner and type with last-update-wins acceptance,
serves them over REST and WebSocket and broadcasts changes to connected clients.

Without serve.jwt_secret every request belongs to the "default" owner.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default ./gophsync.yaml)")
	flags.StringVar(&opts.addr, "addr", "", "listen address, overrides serve.addr")
	flags.StringVar(&opts.dbPath, "db", "", "database path, overrides serve.db_path")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the server (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	})
	cmd.AddCommand(newTokenCommand(opts))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "GophSync Server\n")
			fmt.Fprintf(out, "Version:    %s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	})

	return cmd
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.addr != "" {
		cfg.Serve.Addr = opts.addr
	}
	if opts.dbPath != "" {
		cfg.Serve.DBPath = opts.dbPath
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, logClose, err := logging.New(cfg.Log.Options())
	if err != nil {
		return err
	}
	defer func() { _ = logClose.Close() }()

	logger.Info("GophSync server starting", "version", Version, "commit", GitCommit, "db", cfg.Serve.DBPath)

	store, err := sqlite.New(ctx, cfg.Serve.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	if !cfg.Serve.JWT().Enabled() {
		logger.Warn("Authentication disabled, all requests use the default owner", "owner", handlers.DefaultOwner)
	}

	srv := server.New(cfg.Serve.Server(Version), store, logger)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue an access token for a subject",
		Long: `Issue an HS256 access token signed with serve.jwt_secret.
The subject becomes the owner of every record written with the token.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := args[0]
			if err := validation.ValidateSubject(subject); err != nil {
				return err
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			jwtConfig := cfg.Serve.JWT()
			if !jwtConfig.Enabled() {
				return errors.New("serve.jwt_secret is not set")
			}
			if cmd.Flags().Changed("ttl") {
				jwtConfig.AccessTokenTTL = ttl
			}

			token, expiresAt, err := handlers.GenerateAccessToken(jwtConfig, subject)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			if expiresAt.IsZero() {
				fmt.Fprintln(cmd.ErrOrStderr(), "Token does not expire")
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "Token expires: %s\n", expiresAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, overrides serve.token_ttl (0 = no expiry)")
	return cmd
}
