package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/1broseidon/vdmctl/internal/audit"
	"github.com/1broseidon/vdmctl/internal/config"
	"github.com/1broseidon/vdmctl/internal/hoststore"
	"github.com/1broseidon/vdmctl/internal/ipc"
	"github.com/1broseidon/vdmctl/internal/x11"
)

func newHostCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Run or inspect the reference driver host",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newHostServeCmd(a), newHostStatusCmd(a))
	return cmd
}

func newHostServeCmd(a *app) *cobra.Command {
	var socket, httpListen, store, database string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a monitor registry on a unix socket",
		Long: `Serve a monitor registry that vdmctl can drive, on a unix socket and
optionally over HTTP (/ws websocket sessions, /healthz, /api/monitors).
Settings default to the server section of the config file.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("socket") {
				a.cfg.Server.Socket = socket
			}
			if flags.Changed("http") {
				a.cfg.Server.HTTPListen = httpListen
			}
			if flags.Changed("store") {
				a.cfg.Server.Store = store
			}
			if flags.Changed("db") {
				a.cfg.Server.Database = database
			}
			if err := a.cfg.Validate(); err != nil {
				return &usageError{command: cmd.CommandPath(), err: err}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serveHost(ctx)
		},
	}
	cmd.Flags().StringVar(&socket, "socket", "", "Unix socket path (default: $XDG_RUNTIME_DIR/vdmctl.sock)")
	cmd.Flags().StringVar(&httpListen, "http", "", "Also listen for HTTP and websocket sessions on this address, e.g. 127.0.0.1:7878")
	cmd.Flags().StringVar(&store, "store", "", "Registry store: memory or sqlite")
	cmd.Flags().StringVar(&database, "db", "", "SQLite database path (default: ~/.local/share/vdmctl/registry.db)")
	return cmd
}

// serveHost runs the reference host until ctx is cancelled.
func (a *app) serveHost(ctx context.Context) error {
	cfg := a.cfg

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	auditCfg, err := cfg.GetAuditConfig()
	if err != nil {
		return err
	}
	auditLog, err := audit.New(auditCfg)
	if err != nil {
		return err
	}
	defer auditLog.Close()

	socketPath, err := cfg.SocketPath()
	if err != nil {
		return fmt.Errorf("failed to resolve socket path: %w", err)
	}

	handler := ipc.NewHandler(store, a.logger, auditLog)
	server := ipc.NewServer(socketPath, handler, a.logger)
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()
	a.logger.Info("driver host started", "socket", socketPath, "store", store.Kind())
	fmt.Fprintf(a.stdout, "Driver host listening on %s (store: %s)\n", socketPath, store.Kind())

	httpErr := make(chan error, 1)
	if cfg.Server.HTTPListen != "" {
		httpServer := &http.Server{
			Addr:              cfg.Server.HTTPListen,
			Handler:           ipc.NewHTTPHandler(handler, a.logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				httpErr <- err
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("http shutdown failed", "err", err)
			}
		}()
		fmt.Fprintf(a.stdout, "HTTP listener on http://%s (websocket: ws://%s/ws)\n", cfg.Server.HTTPListen, cfg.Server.HTTPListen)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("driver host stopping")
		return nil
	case err := <-httpErr:
		return fmt.Errorf("http listener: %w", err)
	}
}

func openStore(cfg *config.Config) (ipc.Store, error) {
	switch cfg.Server.Store {
	case config.StoreSQLite:
		path, err := cfg.DatabasePath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		store, err := hoststore.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return hoststore.NewMemory(), nil
	}
}

// statusReporter is implemented by sessions that can describe the host.
type statusReporter interface {
	Status(ctx context.Context) (*ipc.StatusData, error)
}

func newHostStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the driver host is reachable",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			transport, err := a.dialer()(ctx)
			if err != nil {
				return err
			}
			defer transport.Close()

			reporter, ok := transport.(statusReporter)
			if !ok {
				return fmt.Errorf("host connection does not report status")
			}
			status, err := reporter.Status(ctx)
			if err != nil {
				return err
			}

			address := a.cfg.Host.Address
			if address == "" {
				if address, err = ipc.DefaultAddress(); err != nil {
					return err
				}
			}
			return a.printer().Status(address, status)
		},
	}
}

func newDisplaysCmd(a *app) *cobra.Command {
	var display string
	cmd := &cobra.Command{
		Use:   "displays",
		Short: "Show the displays and modes the X server reports",
		Long: `Show every output the X server knows about, with the modes it advertises.
Virtual monitors appear here once the driver has created them.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := x11.NewConnection(display)
			if err != nil {
				return err
			}
			defer conn.Close()

			displays, err := conn.Displays()
			if err != nil {
				return err
			}
			return a.printer().Displays(displays)
		},
	}
	cmd.Flags().StringVar(&display, "display", "", "X display to query (default: $DISPLAY)")
	return cmd
}
