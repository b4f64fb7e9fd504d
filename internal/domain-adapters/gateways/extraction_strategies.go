package gateways

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/domain/interfaces"
	ifgateways "github.com/ochairo/decant/internal/domain/interfaces/gateways"
)

// maxStderrInError caps how much tool output is carried in an error message
const maxStderrInError = 512

// toolStrategy runs an external unpacker and treats exit code 0 plus a
// non-empty target directory as success
type toolStrategy struct {
	id      entities.StrategyID
	name    string
	tool    string
	args    func(inputPath, targetDir string) []string
	applies func(inputPath string) bool
	runner  ifgateways.CommandRunner
	locator ifgateways.ToolLocator
	logger  interfaces.Logger
}

// NewArchiveToolStrategy extracts with 7-Zip, which understands most
// self-extracting and NSIS payloads
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewArchiveToolStrategy(runner ifgateways.CommandRunner, locator ifgateways.ToolLocator, logger interfaces.Logger) *toolStrategy {
	return &toolStrategy{
		id:   entities.StrategyArchiveTool,
		name: "7-Zip",
		tool: ToolSevenZip,
		args: func(inputPath, targetDir string) []string {
			return []string{"x", inputPath, "-o" + targetDir, "-y", "-bb1"}
		},
		runner:  runner,
		locator: locator,
		logger:  interfaces.OrNoOp(logger),
	}
}

// NewInstallerFrameworkStrategy extracts Inno Setup installers with innoextract
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewInstallerFrameworkStrategy(runner ifgateways.CommandRunner, locator ifgateways.ToolLocator, logger interfaces.Logger) *toolStrategy {
	return &toolStrategy{
		id:   entities.StrategyInstallerFrameworkTool,
		name: "innoextract",
		tool: ToolInnoextract,
		args: func(inputPath, targetDir string) []string {
			return []string{inputPath, "-d", targetDir, "-s"}
		},
		runner:  runner,
		locator: locator,
		logger:  interfaces.OrNoOp(logger),
	}
}

// NewPackageDatabaseStrategy performs an administrative install of an MSI
// package into the target directory
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewPackageDatabaseStrategy(runner ifgateways.CommandRunner, locator ifgateways.ToolLocator, logger interfaces.Logger) *toolStrategy {
	return &toolStrategy{
		id:   entities.StrategyPackageDatabaseTool,
		name: "MSI administrative install",
		tool: ToolMsiexec,
		args: func(inputPath, targetDir string) []string {
			return []string{"/a", inputPath, "/qb", "TARGETDIR=" + targetDir}
		},
		applies: func(inputPath string) bool {
			return strings.EqualFold(filepath.Ext(inputPath), ".msi")
		},
		runner:  runner,
		locator: locator,
		logger:  interfaces.OrNoOp(logger),
	}
}

// ID returns the strategy identifier
func (s *toolStrategy) ID() entities.StrategyID { return s.id }

// Name returns a human-readable strategy name
func (s *toolStrategy) Name() string { return s.name }

// Attempt runs the tool against inputPath, writing into targetDir
func (s *toolStrategy) Attempt(ctx context.Context, inputPath, targetDir string, timeout time.Duration) error {
	if s.applies != nil && !s.applies(inputPath) {
		return fmt.Errorf("%s: %w", s.name, ifgateways.ErrNotApplicable)
	}

	toolPath, err := s.locator.Locate(s.tool)
	if err != nil {
		s.logger.Warn("extraction tool not available",
			interfaces.F("strategy", s.id),
			interfaces.F("tool", s.tool),
		)
		return fmt.Errorf("%s: %w", s.name, err)
	}

	// Tools resolve relative paths against their own working directory
	absInput, err := filepath.Abs(inputPath)
	if err != nil {
		return fmt.Errorf("%s: resolve input path: %w", s.name, err)
	}
	absTarget, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("%s: resolve target path: %w", s.name, err)
	}

	result := s.runner.RunWithTimeout(ctx, toolPath, s.args(absInput, absTarget), timeout)
	if result.TimedOut {
		return fmt.Errorf("%s: %w after %v", s.name, ifgateways.ErrTimedOut, timeout)
	}
	if !result.Success {
		return fmt.Errorf("%s: %w: exit code %d: %s",
			s.name, ifgateways.ErrToolFailed, result.ExitCode, truncate(strings.TrimSpace(result.Stderr), maxStderrInError))
	}

	nonEmpty, err := dirHasEntries(targetDir)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", s.name, ifgateways.ErrToolFailed, err)
	}
	if !nonEmpty {
		return fmt.Errorf("%s: %w: no files produced", s.name, ifgateways.ErrToolFailed)
	}

	s.logger.Debug("tool extraction finished",
		interfaces.F("strategy", s.id),
		interfaces.F("duration", result.Duration),
	)
	return nil
}

// dirHasEntries reports whether dir contains at least one entry
func dirHasEntries(dir string) (bool, error) {
	//nolint:gosec // G304: dir is a session-owned extraction directory
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	//nolint:errcheck // Defer close on read-only directory
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
