// Package orchestrators coordinates the inspection, extraction and assembly workflows.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/domain/interfaces"
)

// Inspector reads PE structure and installer markers from a file
type Inspector interface {
	Inspect(ctx context.Context, path string) *entities.BinaryAnalysis
}

// Extractor runs the strategy chain inside a session
type Extractor interface {
	OpenSession(settings entities.Settings) (*Session, error)
	ExtractInstaller(ctx context.Context, session *Session, inputPath string, progress interfaces.ProgressReporter) (*entities.ExtractionResult, error)
}

// Assembler lays out the portable directory
type Assembler interface {
	Assemble(ctx context.Context, req entities.AssemblyRequest, progress interfaces.ProgressReporter) (*entities.PortableApp, error)
}

// Bundler packs a portable directory into an archive
type Bundler interface {
	Bundle(ctx context.Context, root string, level int) (string, error)
}

// SignatureVerifier checks a detached publisher signature
type SignatureVerifier interface {
	Verify(ctx context.Context, filePath, sigPath string, keyringPaths []string) (string, error)
}

// SpaceChecker reports free space before extraction
type SpaceChecker interface {
	Check(ctx context.Context, path string, inputSize int64, maxTempSizeGB int) (entities.SpaceReport, error)
}

// PortableOrchestrator coordinates the complete installer-to-portable workflow
type PortableOrchestrator struct {
	inspector Inspector
	extractor Extractor
	assembler Assembler
	bundler   Bundler
	verifier  SignatureVerifier
	space     SpaceChecker
	settings  entities.Settings
	logger    interfaces.Logger
}

// PortableOrchestratorConfig holds configuration for the orchestrator
type PortableOrchestratorConfig struct {
	Settings entities.Settings
}

// NewPortableOrchestrator creates a new portable orchestrator.
// verifier and space may be nil to disable those checks.
func NewPortableOrchestrator(
	inspector Inspector,
	extractor Extractor,
	assembler Assembler,
	bundler Bundler,
	verifier SignatureVerifier,
	space SpaceChecker,
	logger interfaces.Logger,
	config PortableOrchestratorConfig,
) *PortableOrchestrator {
	return &PortableOrchestrator{
		inspector: inspector,
		extractor: extractor,
		assembler: assembler,
		bundler:   bundler,
		verifier:  verifier,
		space:     space,
		settings:  config.Settings,
		logger:    interfaces.OrNoOp(logger),
	}
}

// BuildRequest describes one build invocation
type BuildRequest struct {
	InputPath     string
	Name          string
	OutputDir     string
	Bundle        bool
	ForceExtract  bool
	Overwrite     bool
	SignaturePath string
	KeyringPaths  []string
}

// BuildResult contains the result of a build operation
type BuildResult struct {
	Analysis   *entities.BinaryAnalysis
	Extraction *entities.ExtractionResult
	App        *entities.PortableApp
	Signer     string
	FellBack   bool
	Duration   time.Duration
}

// Build turns the input into a portable application. Installers go through
// the extraction chain; when every strategy fails the original file is
// treated as a standalone executable.
func (o *PortableOrchestrator) Build(ctx context.Context, req BuildRequest, progress interfaces.ProgressReporter) (*BuildResult, error) {
	startTime := time.Now()
	if progress == nil {
		progress = interfaces.NoOpProgress{}
	}
	result := &BuildResult{}

	// Step 1: Inspect the input
	progress.Report("Analyzing input", 0)
	analysis := o.inspector.Inspect(ctx, req.InputPath)
	result.Analysis = analysis
	o.logger.Info("input analyzed",
		interfaces.F("file", analysis.FileName),
		interfaces.F("valid_pe", analysis.ValidExecutable),
		interfaces.F("installer", analysis.IsInstaller),
		interfaces.F("family", analysis.InstallerFamily),
	)

	// Step 2: Publisher signature
	if req.SignaturePath != "" {
		if o.verifier == nil {
			return result, errors.New("signature verification requested but no verifier configured")
		}
		signer, err := o.verifier.Verify(ctx, req.InputPath, req.SignaturePath, req.KeyringPaths)
		if err != nil {
			return result, err
		}
		result.Signer = signer
	}

	// Step 3: Extract installers
	assembleReq := entities.AssemblyRequest{
		Name:         req.Name,
		OutputDir:    req.OutputDir,
		SourceFile:   req.InputPath,
		SourceSHA256: analysis.SHA256,
		Advanced:     o.settings.Advanced,
		Overwrite:    req.Overwrite,
	}

	if analysis.IsInstaller || req.ForceExtract {
		session, err := o.extractor.OpenSession(o.settings)
		if err != nil {
			return result, fmt.Errorf("failed to open extraction session: %w", err)
		}
		defer session.Close()

		o.preflight(ctx, session.Root, analysis.SizeBytes)

		extraction, err := o.extractor.ExtractInstaller(ctx, session, req.InputPath,
			interfaces.ScaledProgress{Parent: progress, Start: 0, End: 0.5})
		result.Extraction = extraction
		switch {
		case err == nil:
			assembleReq.ExtractedDir = extraction.Dir
			assembleReq.Strategy = extraction.Strategy
		case errors.Is(err, ErrAllStrategiesFailed):
			o.logger.Warn("extraction failed, falling back to standalone mode", interfaces.F("error", err))
			result.FellBack = true
		default:
			return result, fmt.Errorf("extraction failed: %w", err)
		}

		// The assembler copies out of the session root, so it runs before the deferred Close
		return o.finish(ctx, req, assembleReq, result, progress, startTime)
	}

	progress.Report("Standalone executable, skipping extraction", 0.5)
	return o.finish(ctx, req, assembleReq, result, progress, startTime)
}

func (o *PortableOrchestrator) finish(
	ctx context.Context,
	req BuildRequest,
	assembleReq entities.AssemblyRequest,
	result *BuildResult,
	progress interfaces.ProgressReporter,
	startTime time.Time,
) (*BuildResult, error) {
	// Step 4: Assemble the portable tree
	app, err := o.assembler.Assemble(ctx, assembleReq, interfaces.ScaledProgress{Parent: progress, Start: 0.5, End: 1.0})
	if err != nil {
		return result, fmt.Errorf("failed to assemble portable app: %w", err)
	}
	result.App = app

	// Step 5: Optional bundle
	if req.Bundle {
		bundlePath, err := o.bundler.Bundle(ctx, app.Root, o.settings.Advanced.CompressionLevel)
		if err != nil {
			return result, fmt.Errorf("failed to bundle portable app: %w", err)
		}
		app.BundlePath = bundlePath
	}

	result.Duration = time.Since(startTime)
	progress.Report("Done", 1.0)
	return result, nil
}

// preflight warns about a short temp volume; it never stops the build
func (o *PortableOrchestrator) preflight(ctx context.Context, root string, inputSize int64) {
	if o.space == nil {
		return
	}
	if _, err := o.space.Check(ctx, root, inputSize, o.settings.Advanced.MaxTempSizeGB); err != nil {
		o.logger.Warn("disk space preflight failed", interfaces.F("error", err))
	}
}
