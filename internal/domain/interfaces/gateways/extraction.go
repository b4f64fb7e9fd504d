// Package gateways defines contracts for external tools used during extraction.
package gateways

import (
	"context"
	"errors"
	"time"

	"github.com/ochairo/decant/internal/domain/entities"
)

// Strategy failure kinds. Implementations wrap these with context.
var (
	ErrToolMissing   = errors.New("extraction tool not found")
	ErrTimedOut      = errors.New("extraction tool timed out")
	ErrNotApplicable = errors.New("strategy not applicable to input")
	ErrToolFailed    = errors.New("extraction tool reported failure")
)

// ExtractionStrategy is one independent way of unpacking an installer.
//
// Attempt returns nil only when the tool reported success and targetDir holds
// at least one entry. It must not touch anything outside targetDir.
type ExtractionStrategy interface {
	ID() entities.StrategyID
	Name() string
	Attempt(ctx context.Context, inputPath, targetDir string, timeout time.Duration) error
}

// CommandRunner runs an external program and kills it when the timeout expires
type CommandRunner interface {
	RunWithTimeout(ctx context.Context, program string, args []string, timeout time.Duration) *entities.CommandResult
}

// ToolLocator resolves a tool name to an executable path.
// It returns an error wrapping ErrToolMissing when the tool cannot be found.
type ToolLocator interface {
	Locate(tool string) (string, error)
}
