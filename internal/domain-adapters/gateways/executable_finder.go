package gateways

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxMainExecutableBytes excludes bundled payloads and runtimes from main executable detection
const maxMainExecutableBytes = 100 * 1024 * 1024

// Names that mark helper executables rather than the application itself
var helperExecutableHints = []string{
	"unins", "setup", "install", "update", "crash", "error", "report", "vcredist", "directx",
}

// ExecutableFinder locates the main program inside an assembled App directory
type ExecutableFinder struct{}

// NewExecutableFinder creates a new executable finder
func NewExecutableFinder() *ExecutableFinder {
	return &ExecutableFinder{}
}

// FindMain returns the path of the main executable relative to appDir, or ""
// when none qualifies. Preferred names at the top level win; otherwise the
// first non-helper executable in walk order is chosen.
func (f *ExecutableFinder) FindMain(appDir, appName string) (string, error) {
	if _, err := os.Stat(appDir); os.IsNotExist(err) {
		return "", fmt.Errorf("app directory does not exist: %s", appDir)
	}

	preferred := []string{
		strings.ToLower(appName) + ".exe",
		"main.exe",
		"app.exe",
		"start.exe",
	}

	entries, err := os.ReadDir(appDir)
	if err != nil {
		return "", fmt.Errorf("failed to read app directory: %w", err)
	}
	for _, want := range preferred {
		for _, e := range entries {
			if !e.IsDir() && strings.ToLower(e.Name()) == want {
				return e.Name(), nil
			}
		}
	}

	var found string
	err = filepath.WalkDir(appDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".exe") {
			return nil
		}
		if isHelperExecutable(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() >= maxMainExecutableBytes {
			return nil
		}
		rel, err := filepath.Rel(appDir, path)
		if err != nil {
			return nil
		}
		found = rel
		return filepath.SkipAll
	})
	if err != nil {
		return "", err
	}

	return found, nil
}

// FindAll returns every executable below appDir, relative to it
func (f *ExecutableFinder) FindAll(appDir string) ([]string, error) {
	var executables []string
	err := filepath.WalkDir(appDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".exe") {
			rel, relErr := filepath.Rel(appDir, path)
			if relErr != nil {
				return relErr
			}
			executables = append(executables, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return executables, nil
}

func isHelperExecutable(name string) bool {
	lower := strings.ToLower(name)
	for _, hint := range helperExecutableHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
