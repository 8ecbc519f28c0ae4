package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/iudanet/gophsync/internal/client/api"
	"github.com/iudanet/gophsync/internal/client/connectivity"
	"github.com/iudanet/gophsync/internal/client/iocli"
	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/client/storage/boltdb"
	clientsqlite "github.com/iudanet/gophsync/internal/client/storage/sqlite"
	clientsync "github.com/iudanet/gophsync/internal/client/sync"
	"github.com/iudanet/gophsync/internal/client/ws"
	"github.com/iudanet/gophsync/internal/config"
	"github.com/iudanet/gophsync/internal/logging"
	"github.com/iudanet/gophsync/internal/models"
)

// ErrOffline is returned when a command needs the server and it is unreachable.
var ErrOffline = errors.New("sync server is unreachable, local changes stay pending")

// Store is the local record store opened by the CLI.
type Store interface {
	storage.RecordStore
	io.Closer
}

// App is the wiring shared by all commands.
type App struct {
	io       iocli.IO
	store    Store
	engine   *clientsync.Engine
	registry *models.Registry
	probe    *connectivity.Probe
	loader   *config.Loader
	cfg      *config.Config
	logger   *slog.Logger
	logClose io.Closer
}

// openApp loads configuration, opens the store and starts the engine.
// Periodic sync runs only when periodic is set.
func openApp(ctx context.Context, opts *RootOptions, console iocli.IO, periodic bool) (*App, error) {
	loader := config.NewLoader(opts.ConfigPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if opts.ServerURL != "" {
		cfg.Server.URL = opts.ServerURL
	}
	if opts.DBPath != "" {
		cfg.Storage.Path = opts.DBPath
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	logger, logClose, err := logging.New(cfg.Log.Options())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{
		io:       console,
		registry: models.DefaultRegistry(),
		loader:   loader,
		cfg:      cfg,
		logger:   logger,
		logClose: logClose,
	}

	app.store, err = openStore(ctx, cfg, opts, console)
	if err != nil {
		_ = logClose.Close()
		return nil, err
	}

	if err := app.startEngine(ctx, periodic); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) startEngine(ctx context.Context, periodic bool) error {
	syncCfg, err := a.cfg.Sync.Engine()
	if err != nil {
		return err
	}
	if !periodic {
		syncCfg.SyncInterval = 0
	}

	resolver, err := syncCfg.NewResolver()
	if err != nil {
		return err
	}

	address, err := probeAddress(a.cfg.Server.URL)
	if err != nil {
		return err
	}
	a.probe = connectivity.NewProbe(address, a.logger)
	a.probe.Start(ctx)

	client := api.NewClient(a.cfg.Server.URL,
		api.WithToken(a.cfg.Server.Token),
		api.WithTimeout(a.cfg.Server.Timeout),
		api.WithLogger(a.logger),
	)

	repo := clientsync.NewRepository(client, a.store, a.registry, resolver, syncCfg, a.logger)
	a.engine = clientsync.NewEngine(repo, a.store, a.registry, a.probe, syncCfg, a.logger)
	return a.engine.Start(ctx)
}

// realtime builds the WebSocket manager, nil when realtime is disabled.
func (a *App) realtime() (*ws.Manager, error) {
	if !a.cfg.Realtime.Enabled {
		return nil, nil
	}
	rtCfg, err := a.cfg.Realtime.Manager()
	if err != nil {
		return nil, err
	}
	if a.cfg.Server.Token != "" {
		if rtCfg.Header == nil {
			rtCfg.Header = http.Header{}
		}
		rtCfg.Header.Set("Authorization", "Bearer "+a.cfg.Server.Token)
	}
	return ws.NewManager(rtCfg, ws.CoderDialer{}, a.logger), nil
}

// Close stops the engine, waiting for background pushes, and closes the store.
func (a *App) Close() {
	if a.engine != nil {
		a.engine.Stop()
	}
	if a.probe != nil {
		a.probe.Stop()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("Failed to close store", "error", err)
		}
	}
	if a.logClose != nil {
		_ = a.logClose.Close()
	}
}

func openStore(ctx context.Context, cfg *config.Config, opts *RootOptions, console iocli.IO) (Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err := clientsqlite.New(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return store, nil

	default:
		var boltOpts []boltdb.Option
		if cfg.Storage.Encrypt {
			file := opts.PassphraseFile
			if file == "" {
				file = cfg.Storage.PassphraseFile
			}
			passphrase, err := readPassphrase(console, PassphraseSources{FromFile: file, FromArgs: opts.Passphrase})
			if err != nil {
				return nil, fmt.Errorf("failed to get passphrase: %w", err)
			}
			boltOpts = append(boltOpts, boltdb.WithPassphrase(passphrase))
		}
		store, err := boltdb.New(ctx, cfg.Storage.Path, boltOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return store, nil
	}
}

// probeAddress turns the server URL into the host:port the connectivity probe dials.
func probeAddress(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("invalid server url %q", serverURL)
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
