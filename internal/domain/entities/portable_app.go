package entities

import "time"

// PortableKind describes how the application tree was obtained
type PortableKind string

// Portable application kinds
const (
	PortableStandalone PortableKind = "standalone"
	PortableExtracted  PortableKind = "extracted"
)

// PortableApp describes an assembled portable application directory
type PortableApp struct {
	Name           string
	Kind           PortableKind
	CreatedAt      time.Time
	Root           string
	MainExecutable string
	SourceFile     string
	SourceSHA256   string
	Strategy       StrategyID
	Dependencies   []string
	BundlePath     string
}

// AssemblyRequest describes one portable application build.
// ExtractedDir is empty for standalone executables.
type AssemblyRequest struct {
	Name         string
	OutputDir    string
	SourceFile   string
	ExtractedDir string
	SourceSHA256 string
	Strategy     StrategyID
	Advanced     AdvancedSettings
	Overwrite    bool
}
