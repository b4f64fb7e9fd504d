package gateways

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/domain/interfaces"
	ifgateways "github.com/ochairo/decant/internal/domain/interfaces/gateways"
)

// genericContainerStrategy opens the input as a zip container in-process.
// Many self-extracting installers are a stub followed by a zip payload.
type genericContainerStrategy struct {
	logger interfaces.Logger
}

// NewGenericContainerStrategy creates the in-process zip extraction strategy
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewGenericContainerStrategy(logger interfaces.Logger) *genericContainerStrategy {
	return &genericContainerStrategy{logger: interfaces.OrNoOp(logger)}
}

// ID returns the strategy identifier
func (s *genericContainerStrategy) ID() entities.StrategyID {
	return entities.StrategyGenericContainer
}

// Name returns a human-readable strategy name
func (s *genericContainerStrategy) Name() string { return "zip container" }

// Attempt extracts every entry of the container into targetDir.
// The timeout is checked between entries.
func (s *genericContainerStrategy) Attempt(ctx context.Context, inputPath, targetDir string, timeout time.Duration) error {
	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r, err := zip.OpenReader(inputPath)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", s.Name(), ifgateways.ErrToolFailed, err)
	}
	//nolint:errcheck // Defer close on read-only archive
	defer r.Close()

	if len(r.File) == 0 {
		return fmt.Errorf("%s: %w: container has no entries", s.Name(), ifgateways.ErrToolFailed)
	}

	root := filepath.Clean(targetDir)
	for _, f := range r.File {
		if ctx.Err() != nil {
			// Cancellation by the caller is not a timeout
			if err := parent.Err(); err != nil {
				return fmt.Errorf("%s: %w", s.Name(), err)
			}
			return fmt.Errorf("%s: %w after %v", s.Name(), ifgateways.ErrTimedOut, timeout)
		}
		if err := extractZipEntry(f, root); err != nil {
			return fmt.Errorf("%s: %w: %v", s.Name(), ifgateways.ErrToolFailed, err)
		}
	}

	s.logger.Debug("zip container extracted",
		interfaces.F("entries", len(r.File)),
		interfaces.F("target", targetDir),
	)
	return nil
}

// extractZipEntry writes one entry below root, refusing names that escape it
func extractZipEntry(f *zip.File, root string) error {
	//nolint:gosec // G305: target is checked against root below
	target := filepath.Join(root, filepath.FromSlash(f.Name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return fmt.Errorf("illegal entry path: %s", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o750)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	//nolint:errcheck // Defer close on read-only entry
	defer rc.Close()

	//nolint:gosec // G304: target is checked against root above
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	//nolint:gosec // G110: output lands in a session-owned temporary directory
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	return out.Close()
}
