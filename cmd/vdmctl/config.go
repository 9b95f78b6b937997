package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/1broseidon/vdmctl/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var defaults bool
	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration as YAML",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if defaults {
				cfg = config.DefaultConfig()
			} else if a.configFile != "" {
				fmt.Fprintf(a.stdout, "# file: %s\n", a.configFile)
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}
	printCmd.Flags().BoolVar(&defaults, "defaults", false, "Print built-in defaults (no files)")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Loading already validated the file.
			fmt.Fprintln(a.stdout, "config: ok")
			return nil
		},
	}

	cmd.AddCommand(printCmd, validateCmd)
	return cmd
}
