// Package yaml provides YAML encoding for portable application manifests and inspection reports.
package yaml

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/decant/internal/domain/entities"
)

// yamlManifest represents the raw YAML structure of portable.yaml
type yamlManifest struct {
	Name           string   `yaml:"name"`
	Type           string   `yaml:"type"`
	Created        string   `yaml:"created"`
	MainExecutable string   `yaml:"main_executable,omitempty"`
	Source         yamlSrc  `yaml:"source"`
	Dependencies   []string `yaml:"dependencies,omitempty"`
}

type yamlSrc struct {
	File          string `yaml:"file"`
	SHA256        string `yaml:"sha256,omitempty"`
	ExtractedWith string `yaml:"extracted_with,omitempty"`
}

// ManifestParser converts between PortableApp entities and YAML
type ManifestParser struct{}

// NewManifestParser creates a new YAML manifest parser
func NewManifestParser() *ManifestParser {
	return &ManifestParser{}
}

// ParseFile parses a manifest file into a PortableApp entity
func (p *ManifestParser) ParseFile(filePath string) (*entities.PortableApp, error) {
	//nolint:gosec // G304: filePath points into a portable application directory
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a PortableApp entity
func (p *ManifestParser) Parse(data []byte) (*entities.PortableApp, error) {
	var ym yamlManifest
	if err := yaml.Unmarshal(data, &ym); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate required fields
	if ym.Name == "" {
		return nil, fmt.Errorf("manifest must have a name")
	}

	kind := entities.PortableKind(ym.Type)
	if kind != entities.PortableStandalone && kind != entities.PortableExtracted {
		return nil, fmt.Errorf("unknown portable type %q", ym.Type)
	}

	var created time.Time
	if ym.Created != "" {
		t, err := time.Parse(time.RFC3339, ym.Created)
		if err != nil {
			return nil, fmt.Errorf("invalid created timestamp: %w", err)
		}
		created = t
	}

	return &entities.PortableApp{
		Name:           ym.Name,
		Kind:           kind,
		CreatedAt:      created,
		MainExecutable: ym.MainExecutable,
		SourceFile:     ym.Source.File,
		SourceSHA256:   ym.Source.SHA256,
		Strategy:       entities.StrategyID(ym.Source.ExtractedWith),
		Dependencies:   ym.Dependencies,
	}, nil
}

// Marshal renders a PortableApp as YAML
func (p *ManifestParser) Marshal(app *entities.PortableApp) ([]byte, error) {
	ym := yamlManifest{
		Name:           app.Name,
		Type:           string(app.Kind),
		Created:        app.CreatedAt.UTC().Format(time.RFC3339),
		MainExecutable: app.MainExecutable,
		Source: yamlSrc{
			File:          app.SourceFile,
			SHA256:        app.SourceSHA256,
			ExtractedWith: string(app.Strategy),
		},
		Dependencies: app.Dependencies,
	}

	data, err := yaml.Marshal(&ym)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return data, nil
}
