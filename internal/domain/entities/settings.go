package entities

import "time"

// Settings is the user configuration. It is passed around by value so each
// extraction session works on its own snapshot.
type Settings struct {
	General    GeneralSettings
	Advanced   AdvancedSettings
	Extraction ExtractionSettings
	Validation ValidationSettings
}

// GeneralSettings holds the [General] section
type GeneralSettings struct {
	DefaultOutputDir string
	AutoAnalyze      bool
}

// AdvancedSettings holds the [Advanced] section
type AdvancedSettings struct {
	IncludeDependencies bool
	CreateLauncher      bool
	CompressionLevel    int
	MaxTempSizeGB       int
}

// ExtractionSettings holds the [Extraction] section
type ExtractionSettings struct {
	TimeoutSeconds int
	Use7Zip        bool
	UseInnoextract bool
	UseMSIExtract  bool
}

// ValidationSettings holds the [Validation] section
type ValidationSettings struct {
	MaxSectionEntries       int
	MeaningfulFileThreshold int
}

// DefaultSettings returns the built-in configuration
func DefaultSettings() Settings {
	return Settings{
		General: GeneralSettings{
			DefaultOutputDir: "~/PortableApps",
			AutoAnalyze:      true,
		},
		Advanced: AdvancedSettings{
			IncludeDependencies: true,
			CreateLauncher:      true,
			CompressionLevel:    6,
			MaxTempSizeGB:       10,
		},
		Extraction: ExtractionSettings{
			TimeoutSeconds: 300,
			Use7Zip:        true,
			UseInnoextract: true,
			UseMSIExtract:  true,
		},
		Validation: ValidationSettings{
			MaxSectionEntries:       3,
			MeaningfulFileThreshold: 5,
		},
	}
}

// Timeout returns the per-tool timeout, falling back to the default when unset
func (s ExtractionSettings) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// StrategyEnabled reports whether the given strategy may run.
// The generic container strategy has no switch and is always enabled.
func (s ExtractionSettings) StrategyEnabled(id StrategyID) bool {
	switch id {
	case StrategyArchiveTool:
		return s.Use7Zip
	case StrategyInstallerFrameworkTool:
		return s.UseInnoextract
	case StrategyPackageDatabaseTool:
		return s.UseMSIExtract
	default:
		return true
	}
}
