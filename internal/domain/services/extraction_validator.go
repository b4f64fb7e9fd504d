package services

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ochairo/decant/internal/domain/entities"
)

// Name prefixes of raw PE sections. A directory dominated by these is a
// dissection of the binary rather than an application tree.
var sectionPrefixes = []string{".text", ".data", ".rdata", ".bss", ".idata", ".edata", ".rsrc"}

var executableExtensions = map[string]bool{
	".exe": true,
	".dll": true,
	".sys": true,
}

var meaningfulExtensions = map[string]bool{
	".exe": true,
	".dll": true,
	".txt": true,
	".ini": true,
	".cfg": true,
	".dat": true,
}

// ExtractionValidator judges whether an extracted directory looks like a usable application
type ExtractionValidator struct {
	fs                      afero.Fs
	maxSectionEntries       int
	meaningfulFileThreshold int
}

// NewExtractionValidator creates a validator over the given filesystem.
// Non-positive thresholds fall back to the defaults.
func NewExtractionValidator(fsys afero.Fs, cfg entities.ValidationSettings) *ExtractionValidator {
	defaults := entities.DefaultSettings().Validation
	if cfg.MaxSectionEntries <= 0 {
		cfg.MaxSectionEntries = defaults.MaxSectionEntries
	}
	if cfg.MeaningfulFileThreshold <= 0 {
		cfg.MeaningfulFileThreshold = defaults.MeaningfulFileThreshold
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &ExtractionValidator{
		fs:                      fsys,
		maxSectionEntries:       cfg.MaxSectionEntries,
		meaningfulFileThreshold: cfg.MeaningfulFileThreshold,
	}
}

// Validate reports whether dir holds a plausible application tree, with a reason for logs
func (v *ExtractionValidator) Validate(dir string) (bool, string) {
	entries, err := afero.ReadDir(v.fs, dir)
	if err != nil {
		return false, fmt.Sprintf("cannot read directory: %v", err)
	}
	if len(entries) == 0 {
		return false, "directory is empty"
	}

	// Step 1: reject PE section dumps
	sections := 0
	for _, e := range entries {
		if hasSectionPrefix(e.Name()) {
			sections++
		}
	}
	if sections > v.maxSectionEntries {
		return false, fmt.Sprintf("%d entries look like raw PE sections", sections)
	}

	// Step 2: look for executables or enough meaningful files anywhere below dir
	meaningful := 0
	foundExecutable := false
	walkErr := afero.Walk(v.fs, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			// unreadable subtrees are skipped
			return nil
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(info.Name()))
		if executableExtensions[ext] {
			foundExecutable = true
			return filepath.SkipAll
		}
		if meaningfulExtensions[ext] {
			meaningful++
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, filepath.SkipAll) {
		return false, fmt.Sprintf("walk failed: %v", walkErr)
	}

	if foundExecutable {
		return true, "contains executable files"
	}
	if meaningful > v.meaningfulFileThreshold {
		return true, fmt.Sprintf("contains %d meaningful files", meaningful)
	}
	return false, fmt.Sprintf("only %d meaningful files and no executables", meaningful)
}

func hasSectionPrefix(name string) bool {
	for _, p := range sectionPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
