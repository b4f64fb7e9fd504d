package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ochairo/decant/internal/domain-adapters/gateways"
	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/external-adapters/yaml"
)

func newInspectCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show PE structure and installer classification",
		Example: `  # Human-readable summary
  decant inspect setup.exe

  # Machine-readable report
  decant inspect setup.exe --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "yaml" {
				return fmt.Errorf("unsupported format %q (want text or yaml)", format)
			}

			inspector := gateways.NewBinaryInspector(a.logger.Component("inspect"))
			analysis := inspector.Inspect(cmd.Context(), args[0])

			if format == "yaml" {
				return yaml.NewReportEncoder(cmd.OutOrStdout()).Encode(analysis, nil)
			}
			return printAnalysis(cmd.OutOrStdout(), analysis)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format (text or yaml)")
	return cmd
}

func printAnalysis(out io.Writer, analysis *entities.BinaryAnalysis) error {
	sections := "-"
	if len(analysis.SectionNames) > 0 {
		sections = strings.Join(analysis.SectionNames, " ")
	}

	table, err := pterm.DefaultTable.WithData(pterm.TableData{
		{"File", analysis.FileName},
		{"Size", fmt.Sprintf("%d bytes", analysis.SizeBytes)},
		{"SHA256", orDash(analysis.SHA256)},
		{"Valid PE", fmt.Sprint(analysis.ValidExecutable)},
		{"Architecture", string(analysis.Architecture)},
		{"Subsystem", string(analysis.Subsystem)},
		{"Sections", sections},
		{"Installer", fmt.Sprint(analysis.IsInstaller)},
		{"Type", analysis.InstallerFamily},
	}).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, table)
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
