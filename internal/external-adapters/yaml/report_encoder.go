package yaml

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/decant/internal/domain/entities"
)

type yamlReport struct {
	File       yamlFileInfo       `yaml:"file"`
	Executable yamlExecutableInfo `yaml:"executable"`
	Installer  yamlInstallerInfo  `yaml:"installer"`
	Extraction *yamlExtraction    `yaml:"extraction,omitempty"`
}

type yamlFileInfo struct {
	Name   string `yaml:"name"`
	Size   int64  `yaml:"size_bytes"`
	SHA256 string `yaml:"sha256,omitempty"`
}

type yamlExecutableInfo struct {
	Valid        bool     `yaml:"valid_pe"`
	Architecture string   `yaml:"architecture"`
	Subsystem    string   `yaml:"subsystem"`
	Sections     []string `yaml:"sections,omitempty"`
}

type yamlInstallerInfo struct {
	IsInstaller bool   `yaml:"is_installer"`
	Family      string `yaml:"family"`
}

type yamlExtraction struct {
	Dir      string        `yaml:"dir,omitempty"`
	Strategy string        `yaml:"strategy,omitempty"`
	Attempts []yamlAttempt `yaml:"attempts"`
}

type yamlAttempt struct {
	Strategy string `yaml:"strategy"`
	Outcome  string `yaml:"outcome"`
	Reason   string `yaml:"reason,omitempty"`
	Duration string `yaml:"duration"`
}

// ReportEncoder writes inspection and extraction results as YAML
type ReportEncoder struct {
	w io.Writer
}

// NewReportEncoder creates an encoder writing to w
func NewReportEncoder(w io.Writer) *ReportEncoder {
	return &ReportEncoder{w: w}
}

// Encode writes the analysis and, if non-nil, the extraction attempts
func (e *ReportEncoder) Encode(analysis *entities.BinaryAnalysis, extraction *entities.ExtractionResult) error {
	report := yamlReport{
		File: yamlFileInfo{
			Name:   analysis.FileName,
			Size:   analysis.SizeBytes,
			SHA256: analysis.SHA256,
		},
		Executable: yamlExecutableInfo{
			Valid:        analysis.ValidExecutable,
			Architecture: string(analysis.Architecture),
			Subsystem:    string(analysis.Subsystem),
			Sections:     analysis.SectionNames,
		},
		Installer: yamlInstallerInfo{
			IsInstaller: analysis.IsInstaller,
			Family:      analysis.InstallerFamily,
		},
	}

	if extraction != nil {
		ye := &yamlExtraction{
			Dir:      extraction.Dir,
			Strategy: string(extraction.Strategy),
			Attempts: make([]yamlAttempt, 0, len(extraction.Attempts)),
		}
		for _, a := range extraction.Attempts {
			ye.Attempts = append(ye.Attempts, yamlAttempt{
				Strategy: string(a.Strategy),
				Outcome:  string(a.Outcome),
				Reason:   a.Reason,
				Duration: a.Duration.String(),
			})
		}
		report.Extraction = ye
	}

	enc := yaml.NewEncoder(e.w)
	enc.SetIndent(2)
	if err := enc.Encode(&report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}
