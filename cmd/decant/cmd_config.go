package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ochairo/decant/internal/external-adapters/inifile"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the settings file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), a.repo.Path())
				return err
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the settings file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				// Load in setup already wrote defaults for a missing file
				//nolint:gosec // G304: settings path is chosen by the user
				data, err := os.ReadFile(a.repo.Path())
				if err != nil {
					return fmt.Errorf("failed to read settings: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:       "set <section.key> <value>",
			Short:     "Change one setting",
			Example:   "  decant config set Extraction.timeout_seconds 600",
			Args:      cobra.ExactArgs(2),
			ValidArgs: inifile.Keys(),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.repo.Set(args[0], args[1]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
				return err
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List known settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				for _, key := range inifile.Keys() {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), key); err != nil {
						return err
					}
				}
				return nil
			},
		},
	)
	return cmd
}
