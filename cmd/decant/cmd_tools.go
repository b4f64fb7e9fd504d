package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ochairo/decant/internal/domain-adapters/gateways"
	"github.com/ochairo/decant/internal/domain/interfaces"
)

func newToolsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Show which extraction tools are available on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			locator := gateways.NewToolLocator()

			data := pterm.TableData{{"Tool", "Status", "Path"}}
			for _, tool := range locator.Tools() {
				path, err := locator.Locate(tool)
				if err != nil {
					data = append(data, []string{tool, "missing", "-"})
					continue
				}
				data = append(data, []string{tool, "found", path})
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, table)

			checker := gateways.NewDiskSpaceChecker(a.logger.Component("disk"))
			if host, err := checker.Host(ctx); err != nil {
				a.logger.Warn("failed to read host info", interfaces.F("error", err))
			} else {
				fmt.Fprintf(out, "Host: %s (%s %s, %s)\n", host.Hostname, host.Platform, host.PlatformVersion, host.KernelArch)
			}

			report, err := checker.Check(ctx, os.TempDir(), 0, a.settings.Advanced.MaxTempSizeGB)
			if err != nil {
				a.logger.Warn("failed to read temp volume usage", interfaces.F("error", err))
				return nil
			}
			status := "ok"
			if !report.Sufficient() {
				status = "low"
			}
			fmt.Fprintf(out, "Temp: %s, %.1f GB free of %d GB budget (%s)\n",
				report.Path, float64(report.FreeBytes)/(1<<30), a.settings.Advanced.MaxTempSizeGB, status)
			return nil
		},
	}
}
