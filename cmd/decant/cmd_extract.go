package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ochairo/decant/internal/domain-adapters/gateways"
	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/external-adapters/terminal"
	"github.com/ochairo/decant/internal/external-adapters/yaml"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		output string
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "extract <installer>",
		Short: "Unpack an installer with the first strategy that yields a usable tree",
		Long: `Run the extraction chain (archive tool, installer framework tool, package
database tool, generic container) against an installer and copy the first
validated tree to the output directory.

Exits with status 2 when every strategy fails.`,
		Example: `  # Extract into <default_output_dir>/<Name>_extracted
  decant extract vlc-setup.exe

  # Extract into a chosen directory and print the attempt report as YAML
  decant extract tool.msi --output ./tool --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "yaml" {
				return fmt.Errorf("unsupported format %q (want text or yaml)", format)
			}
			ctx := cmd.Context()
			input := args[0]
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("cannot read input: %w", err)
			}
			if output == "" {
				output = filepath.Join(expandHome(a.settings.General.DefaultOutputDir), gateways.DeriveAppName(input)+"_extracted")
			}
			if err := checkOutputFree(output, force); err != nil {
				return err
			}

			// Step 1: Classify, for the report
			analysis := gateways.NewBinaryInspector(a.logger.Component("inspect")).Inspect(ctx, input)

			// Step 2: Run the chain inside a session
			orch := a.extractionOrchestrator()
			session, err := orch.OpenSession(a.settings)
			if err != nil {
				return err
			}
			defer session.Close()

			presenter := terminal.NewPresenter(cmd.ErrOrStderr())
			result, extractErr := orch.ExtractInstaller(ctx, session, input, presenter)
			presenter.Close()

			// Step 3: Report the attempts
			if format == "yaml" {
				if err := yaml.NewReportEncoder(cmd.OutOrStdout()).Encode(analysis, result); err != nil {
					return err
				}
			} else if err := printAttempts(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if extractErr != nil {
				presenter.Failure("No strategy produced a usable tree for %s", filepath.Base(input))
				return extractErr
			}

			// Step 4: Copy the validated tree out of the session root
			if err := os.MkdirAll(output, 0o750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			if err := gateways.CopyTree(ctx, result.Dir, output, a.logger.Component("extract")); err != nil {
				return fmt.Errorf("failed to copy extracted files: %w", err)
			}
			presenter.Success("Extracted with %s to %s", result.Strategy, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination directory")
	cmd.Flags().StringVar(&format, "format", "text", "Report format (text or yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Write into an existing non-empty output directory")
	return cmd
}

// checkOutputFree refuses a non-empty destination unless forced
func checkOutputFree(dir string, force bool) error {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("cannot read output directory: %w", err)
	case len(entries) > 0 && !force:
		return fmt.Errorf("%w: %s (use --force)", gateways.ErrOutputExists, dir)
	default:
		return nil
	}
}

func printAttempts(out io.Writer, result *entities.ExtractionResult) error {
	if result == nil || len(result.Attempts) == 0 {
		_, err := fmt.Fprintln(out, "No extraction strategies ran")
		return err
	}

	data := pterm.TableData{{"#", "Strategy", "Outcome", "Duration", "Reason"}}
	for i, attempt := range result.Attempts {
		data = append(data, []string{
			fmt.Sprint(i + 1),
			string(attempt.Strategy),
			string(attempt.Outcome),
			attempt.Duration.Round(time.Millisecond).String(),
			orDash(attempt.Reason),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, table)
	return err
}
