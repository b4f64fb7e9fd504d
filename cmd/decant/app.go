package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ochairo/decant/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/decant/internal/domain-orchestrators"
	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/domain/interfaces"
	ifgateways "github.com/ochairo/decant/internal/domain/interfaces/gateways"
	"github.com/ochairo/decant/internal/domain/interfaces/repositories"
	"github.com/ochairo/decant/internal/external-adapters/inifile"
	"github.com/ochairo/decant/internal/external-adapters/logging"
)

// app carries global flags and the dependencies built from them
type app struct {
	configPath string
	verbosity  int
	logFile    string
	noColor    bool

	logger   *logging.Logger
	closer   io.Closer
	repo     repositories.SettingsRepository
	settings entities.Settings
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.noColor {
		pterm.DisableColor()
	}

	a.logger, a.closer = logging.Setup(logging.Config{
		Verbosity: a.verbosity,
		Console:   cmd.ErrOrStderr(),
		LogFile:   a.logFile,
		NoColor:   a.noColor,
	})
	a.logger.Debug("command started", interfaces.F("command", cmd.Name()))

	path := a.configPath
	if path == "" {
		var err error
		if path, err = inifile.DefaultPath(); err != nil {
			return err
		}
	}
	a.repo = inifile.NewSettingsRepository(path, a.logger.Component("settings"))

	settings, err := a.repo.Load()
	if err != nil {
		a.logger.Warn("failed to load settings, using defaults", interfaces.F("path", path), interfaces.F("error", err))
	}
	a.settings = settings
	return nil
}

func (a *app) close() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

// strategies builds the extraction chain in its fixed order
func (a *app) strategies() []ifgateways.ExtractionStrategy {
	runner := gateways.NewCommandRunner(a.logger.Component("runner"))
	locator := gateways.NewToolLocator()
	logger := a.logger.Component("extract")
	return []ifgateways.ExtractionStrategy{
		gateways.NewArchiveToolStrategy(runner, locator, logger),
		gateways.NewInstallerFrameworkStrategy(runner, locator, logger),
		gateways.NewPackageDatabaseStrategy(runner, locator, logger),
		gateways.NewGenericContainerStrategy(logger),
	}
}

func (a *app) extractionOrchestrator() *orchestrators.ExtractionOrchestrator {
	return orchestrators.NewExtractionOrchestrator(
		a.strategies(),
		a.logger.Component("extraction"),
		orchestrators.ExtractionOrchestratorConfig{},
	)
}

func (a *app) portableOrchestrator() *orchestrators.PortableOrchestrator {
	return orchestrators.NewPortableOrchestrator(
		gateways.NewBinaryInspector(a.logger.Component("inspect")),
		a.extractionOrchestrator(),
		gateways.NewTreeAssembler(a.logger.Component("assemble")),
		gateways.NewBundler(a.logger.Component("bundle")),
		gateways.NewSignatureVerifier(a.logger.Component("signature")),
		gateways.NewDiskSpaceChecker(a.logger.Component("disk")),
		a.logger.Component("build"),
		orchestrators.PortableOrchestratorConfig{Settings: a.settings},
	)
}

// expandHome resolves a leading "~" against the user's home directory
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
