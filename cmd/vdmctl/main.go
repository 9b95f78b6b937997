package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/1broseidon/vdmctl/internal/config"
	"github.com/1broseidon/vdmctl/internal/ipc"
	"github.com/1broseidon/vdmctl/internal/mode"
	"github.com/1broseidon/vdmctl/internal/registry"
	"github.com/1broseidon/vdmctl/internal/render"
)

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	root := newRootCmd(a)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var usage *usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", usage.command)
		}
		os.Exit(exitCode(err))
	}
}

// app carries the state shared by every subcommand once flags and the config
// file have been resolved.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath  string
	hostAddress string
	jsonOutput  bool
	verbose     bool

	cfg        *config.Config
	configFile string
	logger     *slog.Logger

	// dial replaces the configured host connection when set.
	dial registry.Dialer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		cfg:    config.DefaultConfig(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "vdmctl",
		Short: "Manage the virtual monitors of a virtual display driver",
		Long: `vdmctl reconciles the virtual monitor registry held by the driver host.
Monitors are identified by a number and carry a list of modes written as
WIDTHxHEIGHT[@RATE[/RATE...]], for example 1920x1080@60/120.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              usageArgs(cobra.NoArgs),
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{command: cmd.CommandPath(), err: err}
	})

	flags := root.PersistentFlags()
	flags.BoolVar(&a.jsonOutput, "json", false, "Print results as JSON")
	flags.StringVar(&a.configPath, "config", "", "Config file path (default: ~/.config/vdmctl/config.yaml)")
	flags.StringVar(&a.hostAddress, "host", "", "Driver host address: socket path, unix://, ws:// or wss:// URL")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log every request to stderr")

	root.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newAddModeCmd(a),
		newRemoveModeCmd(a),
		newEnableCmd(a),
		newDisableCmd(a),
		newRemoveCmd(a),
		newRemoveAllCmd(a),
		newDisplaysCmd(a),
		newHostCmd(a),
		newMCPCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads the config file and applies the global flags on top of it.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path := a.configPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return err
		}
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return err
	}
	a.cfg = res.Config
	a.configFile = res.File

	if cmd.Flags().Changed("host") {
		a.cfg.Host.Address = a.hostAddress
		if err := a.cfg.Validate(); err != nil {
			return &usageError{command: cmd.CommandPath(), err: err}
		}
	}

	level := a.cfg.SlogLevel()
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// dialer returns the connection factory for the configured driver host.
func (a *app) dialer() registry.Dialer {
	if a.dial != nil {
		return a.dial
	}
	address, timeout := a.cfg.Host.Address, a.cfg.Host.Timeout
	return func(ctx context.Context) (registry.Transport, error) {
		session, err := ipc.Dial(ctx, address, timeout)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}

func (a *app) printer() *render.Printer {
	return render.NewPrinter(a.stdout, render.Options{
		JSON:  a.jsonOutput,
		Color: a.cfg.Output.Color,
	})
}

// usageError marks invalid invocations: bad flags, wrong arity or
// malformed arguments.
type usageError struct {
	command string
	err     error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// usageArgs tags positional argument failures as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &usageError{command: cmd.CommandPath(), err: err}
		}
		return nil
	}
}

// exitCode maps an error to the process exit status: 2 for invalid
// invocations, 1 for everything else.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var usage *usageError
	var parse *mode.ParseError
	if errors.As(err, &usage) || errors.As(err, &parse) {
		return 2
	}
	return 1
}

func parseID(cmd *cobra.Command, s string) (ipc.ID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, &usageError{
			command: cmd.CommandPath(),
			err:     fmt.Errorf("invalid monitor ID %q: must be a number between 0 and %d", s, uint32(1<<32-1)),
		}
	}
	return ipc.ID(n), nil
}

func parseIDs(cmd *cobra.Command, args []string) ([]ipc.ID, error) {
	ids := make([]ipc.ID, 0, len(args))
	for _, arg := range args {
		id, err := parseID(cmd, arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
