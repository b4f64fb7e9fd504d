package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/decant/internal/domain-adapters/gateways"
	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/domain/interfaces"
	ifgateways "github.com/ochairo/decant/internal/domain/interfaces/gateways"
)

// fakeStrategy writes files into the target directory and returns err
type fakeStrategy struct {
	id        entities.StrategyID
	files     []string
	err       error
	calls     int
	onAttempt func(targetDir string)
}

func (f *fakeStrategy) ID() entities.StrategyID { return f.id }
func (f *fakeStrategy) Name() string            { return "fake " + string(f.id) }

func (f *fakeStrategy) Attempt(_ context.Context, _, targetDir string, _ time.Duration) error {
	f.calls++
	if f.onAttempt != nil {
		f.onAttempt(targetDir)
	}
	for _, name := range f.files {
		path := filepath.Join(targetDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
			return err
		}
	}
	return f.err
}

type progressEvent struct {
	message  string
	fraction float64
}

type recordingProgress struct {
	mu     sync.Mutex
	events []progressEvent
}

func (r *recordingProgress) Report(message string, fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, progressEvent{message, fraction})
}

func (r *recordingProgress) fractions() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.events))
	for i, e := range r.events {
		out[i] = e.fraction
	}
	return out
}

func chain(strategies ...*fakeStrategy) []ifgateways.ExtractionStrategy {
	out := make([]ifgateways.ExtractionStrategy, len(strategies))
	for i, s := range strategies {
		out[i] = s
	}
	return out
}

func standardFakes() (archive, inno, msi, container *fakeStrategy) {
	return &fakeStrategy{id: entities.StrategyArchiveTool},
		&fakeStrategy{id: entities.StrategyInstallerFrameworkTool},
		&fakeStrategy{id: entities.StrategyPackageDatabaseTool},
		&fakeStrategy{id: entities.StrategyGenericContainer}
}

func runExtraction(t *testing.T, strategies []ifgateways.ExtractionStrategy, settings entities.Settings, input string) (*Session, *entities.ExtractionResult, *recordingProgress, error) {
	t.Helper()
	o := NewExtractionOrchestrator(strategies, &interfaces.NoOpLogger{}, ExtractionOrchestratorConfig{TempDir: t.TempDir()})
	session, err := o.OpenSession(settings)
	require.NoError(t, err)
	t.Cleanup(session.Close)

	progress := &recordingProgress{}
	result, err := o.ExtractInstaller(context.Background(), session, input, progress)
	return session, result, progress, err
}

func outcomes(result *entities.ExtractionResult) []entities.Outcome {
	out := make([]entities.Outcome, len(result.Attempts))
	for i, a := range result.Attempts {
		out[i] = a.Outcome
	}
	return out
}

func TestExtractInstaller_FirstStrategySucceeds(t *testing.T) {
	archive, inno, msi, container := standardFakes()
	archive.files = []string{"app.exe", "lib/core.dll"}

	session, result, progress, err := runExtraction(t, chain(archive, inno, msi, container), entities.DefaultSettings(), "setup.exe")

	require.NoError(t, err)
	assert.Equal(t, StateSuccess, session.State())
	assert.Equal(t, entities.StrategyArchiveTool, result.Strategy)
	assert.Equal(t, filepath.Join(session.Root, "01-archive-tool"), result.Dir)
	assert.FileExists(t, filepath.Join(result.Dir, "app.exe"))
	assert.Equal(t, []entities.Outcome{entities.OutcomeValidated}, outcomes(result))
	assert.Equal(t, 0, inno.calls)
	assert.Equal(t, []progressEvent{
		{"fake archive-tool", 0.2},
		{"Extraction completed", 1.0},
	}, progress.events)
}

func TestExtractInstaller_SectionDissectionRejected(t *testing.T) {
	archive, inno, msi, container := standardFakes()
	archive.files = []string{".text", ".data", ".rdata", ".rsrc"}
	inno.files = []string{"app.exe"}

	session, result, _, err := runExtraction(t, chain(archive, inno, msi, container), entities.DefaultSettings(), "setup.exe")

	require.NoError(t, err)
	assert.Equal(t, []entities.Outcome{
		entities.OutcomeRejectedByValidator,
		entities.OutcomeValidated,
	}, outcomes(result))
	assert.Contains(t, result.Attempts[0].Reason, "section")
	assert.Equal(t, entities.StrategyInstallerFrameworkTool, result.Strategy)

	rejected, err := os.ReadDir(filepath.Join(session.Root, "01-archive-tool"))
	require.NoError(t, err)
	assert.Empty(t, rejected)
}

func TestExtractInstaller_FailedAttemptsAreClearedBeforeNextStart(t *testing.T) {
	archive, inno, msi, container := standardFakes()
	strategies := []*fakeStrategy{archive, inno, msi, container}
	for _, s := range strategies {
		s.files = []string{"partial.bin"}
		s.err = fmt.Errorf("boom: %w", ifgateways.ErrToolFailed)
		s.onAttempt = func(targetDir string) {
			root := filepath.Dir(targetDir)
			entries, err := os.ReadDir(root)
			require.NoError(t, err)
			for _, e := range entries {
				sub, err := os.ReadDir(filepath.Join(root, e.Name()))
				require.NoError(t, err)
				assert.Empty(t, sub, "directory %s still live when %s started", e.Name(), filepath.Base(targetDir))
			}
		}
	}

	_, result, _, err := runExtraction(t, chain(strategies...), entities.DefaultSettings(), "setup.exe")

	require.ErrorIs(t, err, ErrAllStrategiesFailed)
	assert.Len(t, result.Attempts, 4)
	for _, s := range strategies {
		assert.Equal(t, 1, s.calls)
	}
}

func TestExtractInstaller_AllFailedKeepsSessionRoot(t *testing.T) {
	archive, inno, msi, container := standardFakes()
	archive.err = ifgateways.ErrToolMissing
	inno.err = ifgateways.ErrTimedOut
	msi.err = ifgateways.ErrNotApplicable
	container.err = ifgateways.ErrToolFailed

	session, result, progress, err := runExtraction(t, chain(archive, inno, msi, container), entities.DefaultSettings(), "setup.exe")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllStrategiesFailed))
	assert.False(t, result.Succeeded())
	assert.Equal(t, StateAllFailed, session.State())
	assert.DirExists(t, session.Root)
	assert.Equal(t, []entities.Outcome{
		entities.OutcomeToolMissing,
		entities.OutcomeTimedOut,
		entities.OutcomeNotAttempted,
		entities.OutcomeToolReportedFailure,
	}, outcomes(result))

	assert.Equal(t, []float64{0.2, 0.4, 0.6, 0.8, 1.0}, progress.fractions())
	assert.Equal(t, "Extraction completed", progress.events[len(progress.events)-1].message)
}

func TestExtractInstaller_DisabledStrategiesAreSkipped(t *testing.T) {
	archive, inno, msi, container := standardFakes()
	archive.files = []string{"app.exe"}
	container.files = []string{"app.exe"}
	settings := entities.DefaultSettings()
	settings.Extraction.Use7Zip = false
	settings.Extraction.UseInnoextract = false
	settings.Extraction.UseMSIExtract = false

	_, result, _, err := runExtraction(t, chain(archive, inno, msi, container), settings, "setup.exe")

	require.NoError(t, err)
	assert.Equal(t, 0, archive.calls)
	assert.Equal(t, 0, inno.calls)
	assert.Equal(t, 0, msi.calls)
	assert.Equal(t, entities.StrategyGenericContainer, result.Strategy)
	assert.Equal(t, "disabled in settings", result.Attempts[0].Reason)
}

func TestExtractInstaller_ValidatorThresholdsFromSettings(t *testing.T) {
	archive, _, _, container := standardFakes()
	archive.files = []string{".text", ".data", "payload.exe"}
	settings := entities.DefaultSettings()
	settings.Validation.MaxSectionEntries = 1

	_, result, _, err := runExtraction(t, chain(archive, container), settings, "setup.exe")

	require.ErrorIs(t, err, ErrAllStrategiesFailed)
	assert.Equal(t, entities.OutcomeRejectedByValidator, result.Attempts[0].Outcome)
}

func TestExtractInstaller_NoStrategies(t *testing.T) {
	session, result, progress, err := runExtraction(t, nil, entities.DefaultSettings(), "setup.exe")

	require.ErrorIs(t, err, ErrAllStrategiesFailed)
	assert.Empty(t, result.Attempts)
	assert.Equal(t, StateAllFailed, session.State())
	assert.Equal(t, []float64{1.0}, progress.fractions())
}

func TestExtractInstaller_SessionIsSingleUse(t *testing.T) {
	_, _, _, container := standardFakes()
	container.files = []string{"app.exe"}
	o := NewExtractionOrchestrator(chain(container), nil, ExtractionOrchestratorConfig{TempDir: t.TempDir()})
	session, err := o.OpenSession(entities.DefaultSettings())
	require.NoError(t, err)
	defer session.Close()

	_, err = o.ExtractInstaller(context.Background(), session, "setup.exe", nil)
	require.NoError(t, err)

	assert.Panics(t, func() {
		_, _ = o.ExtractInstaller(context.Background(), session, "setup.exe", nil)
	})
}

func TestExtractInstaller_Idempotent(t *testing.T) {
	build := func() []ifgateways.ExtractionStrategy {
		archive, inno, msi, container := standardFakes()
		archive.files = []string{".text", ".data", ".rdata", ".rsrc"}
		inno.err = ifgateways.ErrToolMissing
		container.files = []string{"bin/app.exe", "readme.txt"}
		return chain(archive, inno, msi, container)
	}
	listing := func(dir string) []string {
		var names []string
		require.NoError(t, filepath.Walk(dir, func(path string, _ os.FileInfo, err error) error {
			require.NoError(t, err)
			rel, _ := filepath.Rel(dir, path)
			names = append(names, rel)
			return nil
		}))
		sort.Strings(names)
		return names
	}

	_, first, _, err1 := runExtraction(t, build(), entities.DefaultSettings(), "setup.exe")
	_, second, _, err2 := runExtraction(t, build(), entities.DefaultSettings(), "setup.exe")

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, outcomes(first), outcomes(second))
	assert.Equal(t, first.Strategy, second.Strategy)
	assert.Equal(t, listing(first.Dir), listing(second.Dir))
}

// missingLocator reports every tool as absent
type missingLocator struct{}

func (missingLocator) Locate(tool string) (string, error) {
	return "", fmt.Errorf("%s: %w", tool, ifgateways.ErrToolMissing)
}

// panicRunner fails the test if any tool is run
type panicRunner struct{ t *testing.T }

func (r panicRunner) RunWithTimeout(_ context.Context, program string, _ []string, _ time.Duration) *entities.CommandResult {
	r.t.Fatalf("unexpected tool run: %s", program)
	return nil
}

func TestExtractInstaller_NoToolsAndNotAContainer(t *testing.T) {
	input := filepath.Join(t.TempDir(), "package.msi")
	require.NoError(t, os.WriteFile(input, []byte("definitely not a zip container"), 0o600))

	runner := panicRunner{t}
	locator := missingLocator{}
	strategies := []ifgateways.ExtractionStrategy{
		gateways.NewArchiveToolStrategy(runner, locator, nil),
		gateways.NewInstallerFrameworkStrategy(runner, locator, nil),
		gateways.NewPackageDatabaseStrategy(runner, locator, nil),
		gateways.NewGenericContainerStrategy(nil),
	}

	_, result, _, err := runExtraction(t, strategies, entities.DefaultSettings(), input)

	require.ErrorIs(t, err, ErrAllStrategiesFailed)
	assert.Equal(t, []entities.Outcome{
		entities.OutcomeToolMissing,
		entities.OutcomeToolMissing,
		entities.OutcomeToolMissing,
		entities.OutcomeToolReportedFailure,
	}, outcomes(result))
}

func TestExtractInstaller_UnusableStrategyDirIsSkipped(t *testing.T) {
	archive, inno, msi, container := standardFakes()
	archive.onAttempt = func(targetDir string) {
		// A file where the next strategy's directory belongs
		blocker := filepath.Join(filepath.Dir(targetDir), "02-installer-framework-tool")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	}
	msi.files = []string{"app.exe"}

	session, result, _, err := runExtraction(t, chain(archive, inno, msi, container), entities.DefaultSettings(), "setup.msi")

	require.NoError(t, err)
	assert.Equal(t, StateSuccess, session.State())
	assert.Equal(t, []entities.Outcome{
		entities.OutcomeRejectedByValidator,
		entities.OutcomeNotAttempted,
		entities.OutcomeValidated,
	}, outcomes(result))
	assert.Contains(t, result.Attempts[1].Reason, "cannot create strategy directory")
	assert.Equal(t, 0, inno.calls)
	assert.Equal(t, entities.StrategyPackageDatabaseTool, result.Strategy)
}

func TestExtractInstaller_NoUsableStrategyDirIsAllFailed(t *testing.T) {
	archive, inno, msi, container := standardFakes()
	strategies := chain(archive, inno, msi, container)
	o := NewExtractionOrchestrator(strategies, nil, ExtractionOrchestratorConfig{TempDir: t.TempDir()})
	session, err := o.OpenSession(entities.DefaultSettings())
	require.NoError(t, err)
	t.Cleanup(session.Close)
	for i, s := range strategies {
		blocker := filepath.Join(session.Root, fmt.Sprintf("%02d-%s", i+1, s.ID()))
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	}

	result, err := o.ExtractInstaller(context.Background(), session, "setup.exe", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllStrategiesFailed))
	assert.Equal(t, StateAllFailed, session.State())
	assert.Len(t, result.Attempts, 4)
	assert.Equal(t, 0, archive.calls+inno.calls+msi.calls+container.calls)
}
