package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ochairo/decant/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/decant/internal/domain-orchestrators"
	"github.com/ochairo/decant/internal/external-adapters/terminal"
)

func newBuildCmd(a *app) *cobra.Command {
	var req orchestrators.BuildRequest

	cmd := &cobra.Command{
		Use:   "build <file>",
		Short: "Create a portable application from an installer or executable",
		Long: `Build a <Name>_Portable directory with App, Data and Documentation folders,
a RUN.bat launcher and a manifest.

Installers are unpacked with the extraction chain first. When every strategy
fails the original file is packaged as a standalone executable instead.`,
		Example: `  # Build into the default output directory
  decant build vlc-3.0.20-win64.exe

  # Choose a name, replace an earlier build and produce a zip
  decant build setup.exe --name Editor --force --bundle

  # Check the publisher signature before touching the installer
  decant build setup.exe --signature setup.exe.asc --keyring vendor.asc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.InputPath = args[0]
			if _, err := os.Stat(req.InputPath); err != nil {
				return fmt.Errorf("cannot read input: %w", err)
			}
			if req.Name == "" {
				req.Name = gateways.DeriveAppName(req.InputPath)
			}
			if req.OutputDir == "" {
				req.OutputDir = a.settings.General.DefaultOutputDir
			}
			req.OutputDir = expandHome(req.OutputDir)
			if req.SignaturePath != "" && len(req.KeyringPaths) == 0 {
				return fmt.Errorf("--signature requires at least one --keyring")
			}

			presenter := terminal.NewPresenter(cmd.ErrOrStderr())
			result, err := a.portableOrchestrator().Build(cmd.Context(), req, presenter)
			presenter.Close()
			if err != nil {
				presenter.Failure("Build failed: %v", err)
				return err
			}

			if a.settings.General.AutoAnalyze && result.Analysis != nil {
				if err := printAnalysis(cmd.OutOrStdout(), result.Analysis); err != nil {
					return err
				}
			}
			if result.Extraction != nil {
				if err := printAttempts(cmd.OutOrStdout(), result.Extraction); err != nil {
					return err
				}
			}

			if result.Signer != "" {
				presenter.Success("Signature verified, signer %s", result.Signer)
			}
			if result.FellBack {
				presenter.Warning("Extraction failed, packaged %s as a standalone executable", filepath.Base(req.InputPath))
			}
			presenter.Success("Portable app created at %s (%s)", result.App.Root, result.Duration.Round(time.Millisecond))
			if result.App.MainExecutable != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Main executable: %s\n", result.App.MainExecutable)
			}
			if result.App.BundlePath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Bundle: %s\n", result.App.BundlePath)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&req.Name, "name", "n", "", "Application name (default derived from the file name)")
	flags.StringVarP(&req.OutputDir, "output", "o", "", "Parent directory for the portable app (default from settings)")
	flags.BoolVar(&req.Bundle, "bundle", false, "Also write a zip archive of the portable app")
	flags.BoolVar(&req.ForceExtract, "force-extract", false, "Run the extraction chain even if the file does not look like an installer")
	flags.BoolVarP(&req.Overwrite, "force", "f", false, "Replace an existing portable app directory")
	flags.StringVar(&req.SignaturePath, "signature", "", "Detached OpenPGP signature of the input")
	flags.StringSliceVar(&req.KeyringPaths, "keyring", nil, "Public key file trusted to sign the input (repeatable)")
	return cmd
}
