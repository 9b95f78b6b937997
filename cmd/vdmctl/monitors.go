package main

import (
	"errors"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/1broseidon/vdmctl/internal/commands"
	"github.com/1broseidon/vdmctl/internal/ipc"
	"github.com/1broseidon/vdmctl/internal/mode"
	"github.com/1broseidon/vdmctl/internal/registry"
	"github.com/1broseidon/vdmctl/internal/render"
)

var errRemoveAllDeclined = errors.New("remove-all cancelled")

// execute runs one command over a fresh session and prints its result.
func (a *app) execute(cmd *cobra.Command, c commands.Command) error {
	ctx := cmd.Context()
	client, err := registry.Connect(ctx, a.dialer(), registry.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer client.Close()

	res, err := commands.Execute(ctx, client, c)
	if err != nil {
		return err
	}
	return a.printer().Result(res)
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List virtual monitors and their modes",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.execute(cmd, commands.List{})
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var (
		id       uint32
		name     string
		disabled bool
	)
	cmd := &cobra.Command{
		Use:   "add [--id ID] [--name NAME] [--disabled] [MODE...]",
		Short: "Add a virtual monitor",
		Long: `Add a virtual monitor. Without --id the smallest unused ID is chosen.
Modes are stored exactly as given.`,
		Example: "  vdmctl add --name capture 1920x1080@60/120 1280x720@60",
		RunE: func(cmd *cobra.Command, args []string) error {
			modes, err := mode.ParseList(args)
			if err != nil {
				return err
			}
			var sel registry.IDSelection = registry.Auto{}
			if cmd.Flags().Changed("id") {
				sel = registry.Explicit{ID: ipc.ID(id)}
			}
			return a.execute(cmd, commands.Add{
				ID:       sel,
				Name:     name,
				Disabled: disabled,
				Modes:    modes,
			})
		},
	}
	cmd.Flags().Uint32Var(&id, "id", 0, "Use this monitor ID instead of the smallest free one")
	cmd.Flags().StringVar(&name, "name", "", "Label shown next to the monitor")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the monitor disabled")
	return cmd
}

func newAddModeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "add-mode ID MODE...",
		Short:   "Merge modes into an existing virtual monitor",
		Example: "  vdmctl add-mode 0 1920x1080@144 2560x1440@60",
		Args:    usageArgs(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd, args[0])
			if err != nil {
				return err
			}
			modes, err := mode.ParseList(args[1:])
			if err != nil {
				return err
			}
			return a.execute(cmd, commands.AddMode{ID: id, Modes: modes})
		},
	}
}

func newRemoveModeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-mode ID MODE",
		Short: "Remove a resolution or some of its refresh rates",
		Long: `Remove a mode from a virtual monitor. Without @RATE the whole resolution is
removed; with rates only those rates are removed.`,
		Example: "  vdmctl remove-mode 0 1920x1080@120",
		Args:    usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd, args[0])
			if err != nil {
				return err
			}
			target, err := mode.Parse(args[1])
			if err != nil {
				return err
			}
			return a.execute(cmd, commands.RemoveMode{ID: id, Mode: target})
		},
	}
}

func newEnableCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "enable ID",
		Short: "Enable a virtual monitor",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd, args[0])
			if err != nil {
				return err
			}
			return a.execute(cmd, commands.Enable{ID: id})
		},
	}
}

func newDisableCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disable ID",
		Short: "Disable a virtual monitor",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd, args[0])
			if err != nil {
				return err
			}
			return a.execute(cmd, commands.Disable{ID: id})
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID...",
		Short: "Remove virtual monitors",
		Long: `Remove virtual monitors as one batch. If any ID is unknown nothing is
removed and every unknown ID is reported.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(cmd, args)
			if err != nil {
				return err
			}
			return a.execute(cmd, commands.Remove{IDs: ids})
		},
	}
}

func newRemoveAllCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "remove-all",
		Short: "Remove every virtual monitor",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes && render.IsTerminal(a.stdin) {
				confirmed, err := confirmRemoveAll()
				if err != nil {
					return err
				}
				if !confirmed {
					return errRemoveAllDeclined
				}
			}
			return a.execute(cmd, commands.RemoveAll{})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func confirmRemoveAll() (bool, error) {
	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Remove all virtual monitors?").
				Affirmative("Remove").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	err := form.Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return confirmed, nil
}
