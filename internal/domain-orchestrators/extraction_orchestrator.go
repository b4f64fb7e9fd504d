package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/domain/interfaces"
	"github.com/ochairo/decant/internal/domain/interfaces/gateways"
	"github.com/ochairo/decant/internal/domain/services"
)

// ErrAllStrategiesFailed is returned when no strategy produced an accepted tree
var ErrAllStrategiesFailed = errors.New("all extraction strategies failed")

// Validator decides whether an extraction directory holds a usable application
type Validator interface {
	Validate(dir string) (bool, string)
}

// ExtractionOrchestrator runs the strategy chain against one input inside a session
type ExtractionOrchestrator struct {
	strategies   []gateways.ExtractionStrategy
	logger       interfaces.Logger
	tempDir      string
	newValidator func(entities.ValidationSettings) Validator
}

// ExtractionOrchestratorConfig holds configuration for the orchestrator
type ExtractionOrchestratorConfig struct {
	// TempDir is the parent of session roots; empty uses the system temp dir
	TempDir string
}

// NewExtractionOrchestrator creates an orchestrator that tries strategies in
// the given order
func NewExtractionOrchestrator(
	strategies []gateways.ExtractionStrategy,
	logger interfaces.Logger,
	config ExtractionOrchestratorConfig,
) *ExtractionOrchestrator {
	fs := afero.NewOsFs()
	return &ExtractionOrchestrator{
		strategies: strategies,
		logger:     interfaces.OrNoOp(logger),
		tempDir:    config.TempDir,
		newValidator: func(v entities.ValidationSettings) Validator {
			return services.NewExtractionValidator(fs, v)
		},
	}
}

// OpenSession starts a session with a snapshot of settings
func (o *ExtractionOrchestrator) OpenSession(settings entities.Settings) (*Session, error) {
	return OpenSession(settings, o.tempDir, o.logger)
}

// ExtractInstaller tries each strategy in order against a fresh subdirectory of
// the session root until the validator accepts one. On exhaustion it returns
// the attempts together with ErrAllStrategiesFailed and leaves the session
// root in place for the caller to inspect and Close.
func (o *ExtractionOrchestrator) ExtractInstaller(
	ctx context.Context,
	session *Session,
	inputPath string,
	progress interfaces.ProgressReporter,
) (*entities.ExtractionResult, error) {
	if progress == nil {
		progress = interfaces.NoOpProgress{}
	}

	settings := session.Settings
	validator := o.newValidator(settings.Validation)
	timeout := settings.Extraction.Timeout()
	result := &entities.ExtractionResult{}
	n := len(o.strategies)

	for i, strategy := range o.strategies {
		session.transition(StateTryingStrategy)

		targetDir := filepath.Join(session.Root, fmt.Sprintf("%02d-%s", i+1, strategy.ID()))
		progress.Report(strategy.Name(), float64(i+1)/float64(n+1))
		if err := os.MkdirAll(targetDir, 0o750); err != nil {
			o.logger.Warn("cannot create strategy directory",
				interfaces.F("strategy", strategy.ID()),
				interfaces.F("dir", targetDir),
				interfaces.F("error", err),
			)
			result.Attempts = append(result.Attempts, entities.ExtractionAttempt{
				Strategy:  strategy.ID(),
				TargetDir: targetDir,
				Outcome:   entities.OutcomeNotAttempted,
				Reason:    fmt.Sprintf("cannot create strategy directory: %v", err),
			})
			continue
		}

		attempt := o.runStrategy(ctx, strategy, validator, settings.Extraction, inputPath, targetDir, timeout)
		result.Attempts = append(result.Attempts, attempt)

		if attempt.Outcome == entities.OutcomeValidated {
			session.transition(StateSuccess)
			result.Dir = targetDir
			result.Strategy = strategy.ID()
			progress.Report("Extraction completed", 1.0)
			o.logger.Info("extraction succeeded",
				interfaces.F("strategy", strategy.ID()),
				interfaces.F("dir", targetDir),
				interfaces.F("duration", attempt.Duration),
			)
			return result, nil
		}

		o.resetDir(targetDir)
	}

	session.transition(StateAllFailed)
	progress.Report("Extraction completed", 1.0)
	o.logger.Warn("all extraction strategies failed", interfaces.F("attempts", len(result.Attempts)))
	return result, fmt.Errorf("%w after %d attempts", ErrAllStrategiesFailed, len(result.Attempts))
}

func (o *ExtractionOrchestrator) runStrategy(
	ctx context.Context,
	strategy gateways.ExtractionStrategy,
	validator Validator,
	extraction entities.ExtractionSettings,
	inputPath, targetDir string,
	timeout time.Duration,
) entities.ExtractionAttempt {
	attempt := entities.ExtractionAttempt{
		Strategy:  strategy.ID(),
		TargetDir: targetDir,
		Outcome:   entities.OutcomeNotAttempted,
	}

	if !extraction.StrategyEnabled(strategy.ID()) {
		attempt.Reason = "disabled in settings"
		o.logger.Debug("strategy disabled", interfaces.F("strategy", strategy.ID()))
		return attempt
	}

	start := time.Now()
	err := strategy.Attempt(ctx, inputPath, targetDir, timeout)
	attempt.Duration = time.Since(start)

	if err != nil {
		attempt.Outcome = outcomeFor(err)
		attempt.Reason = err.Error()
		o.logger.Info("strategy failed",
			interfaces.F("strategy", strategy.ID()),
			interfaces.F("outcome", attempt.Outcome),
			interfaces.F("error", err),
		)
		return attempt
	}

	accepted, reason := validator.Validate(targetDir)
	attempt.Reason = reason
	if !accepted {
		attempt.Outcome = entities.OutcomeRejectedByValidator
		o.logger.Warn("extraction rejected by validator",
			interfaces.F("strategy", strategy.ID()),
			interfaces.F("reason", reason),
		)
		return attempt
	}

	attempt.Outcome = entities.OutcomeValidated
	return attempt
}

func outcomeFor(err error) entities.Outcome {
	switch {
	case errors.Is(err, gateways.ErrToolMissing):
		return entities.OutcomeToolMissing
	case errors.Is(err, gateways.ErrTimedOut):
		return entities.OutcomeTimedOut
	case errors.Is(err, gateways.ErrNotApplicable):
		return entities.OutcomeNotAttempted
	default:
		return entities.OutcomeToolReportedFailure
	}
}

// resetDir wipes a failed attempt's directory and recreates it empty.
// Failures are logged and never propagated.
func (o *ExtractionOrchestrator) resetDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		o.logger.Warn("failed to clear strategy directory", interfaces.F("dir", dir), interfaces.F("error", err))
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		o.logger.Warn("failed to recreate strategy directory", interfaces.F("dir", dir), interfaces.F("error", err))
	}
}
