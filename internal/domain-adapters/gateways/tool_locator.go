package gateways

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	ifgateways "github.com/ochairo/decant/internal/domain/interfaces/gateways"
)

// Tool names understood by the locator
const (
	ToolSevenZip    = "7z"
	ToolInnoextract = "innoextract"
	ToolMsiexec     = "msiexec"
)

// ToolSpec describes where a tool is normally installed and which
// executable names to search for on PATH
type ToolSpec struct {
	KnownPaths []string
	PathNames  []string
}

// ToolLocator finds extraction tools, preferring well-known install
// locations over PATH lookup
type ToolLocator struct {
	specs    map[string]ToolSpec
	lookPath func(string) (string, error)
}

// NewToolLocator creates a locator for the standard extraction tools
func NewToolLocator() *ToolLocator {
	return NewToolLocatorWithSpecs(DefaultToolSpecs())
}

// NewToolLocatorWithSpecs creates a locator with custom tool definitions
func NewToolLocatorWithSpecs(specs map[string]ToolSpec) *ToolLocator {
	return &ToolLocator{
		specs:    specs,
		lookPath: exec.LookPath,
	}
}

// DefaultToolSpecs returns the install locations of 7-Zip, innoextract and msiexec
func DefaultToolSpecs() map[string]ToolSpec {
	programFiles := []string{os.Getenv("ProgramFiles"), os.Getenv("ProgramFiles(x86)")}
	windir := os.Getenv("WINDIR")

	return map[string]ToolSpec{
		ToolSevenZip: {
			KnownPaths: underRoots(programFiles, "7-Zip", "7z.exe"),
			PathNames:  []string{"7z", "7za", "7zz"},
		},
		ToolInnoextract: {
			KnownPaths: underRoots(programFiles, "innoextract", "innoextract.exe"),
			PathNames:  []string{"innoextract"},
		},
		ToolMsiexec: {
			KnownPaths: underRoots([]string{windir}, "System32", "msiexec.exe"),
			PathNames:  []string{"msiexec"},
		},
	}
}

// underRoots joins elem onto every non-empty root
func underRoots(roots []string, elem ...string) []string {
	var paths []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		paths = append(paths, filepath.Join(append([]string{root}, elem...)...))
	}
	return paths
}

// Locate returns the executable path for tool
func (l *ToolLocator) Locate(tool string) (string, error) {
	spec, ok := l.specs[tool]
	if !ok {
		return "", fmt.Errorf("%w: unknown tool %q", ifgateways.ErrToolMissing, tool)
	}

	for _, knownPath := range spec.KnownPaths {
		knownPath = filepath.Clean(knownPath)
		if info, err := os.Stat(knownPath); err == nil && !info.IsDir() {
			return knownPath, nil
		}
	}

	for _, name := range spec.PathNames {
		if found, err := l.lookPath(name); err == nil {
			return found, nil
		}
	}

	return "", fmt.Errorf("%w: %s not found at known locations or on PATH", ifgateways.ErrToolMissing, tool)
}

// Tools returns the names of all known tools in sorted order
func (l *ToolLocator) Tools() []string {
	names := make([]string, 0, len(l.specs))
	for name := range l.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
