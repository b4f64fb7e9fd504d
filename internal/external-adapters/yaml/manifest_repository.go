package yaml

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ochairo/decant/internal/domain/entities"
)

// ManifestFileName is the manifest stored at the root of every portable directory
const ManifestFileName = "portable.yaml"

// ManifestRepository stores manifests inside portable application directories
type ManifestRepository struct {
	parser *ManifestParser
}

// NewManifestRepository creates a new YAML-based manifest repository
func NewManifestRepository() *ManifestRepository {
	return &ManifestRepository{parser: NewManifestParser()}
}

// Save writes the manifest for app into its root directory
func (r *ManifestRepository) Save(app *entities.PortableApp) error {
	data, err := r.parser.Marshal(app)
	if err != nil {
		return err
	}

	path := filepath.Join(app.Root, ManifestFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Load reads the manifest of the portable directory at root
func (r *ManifestRepository) Load(root string) (*entities.PortableApp, error) {
	path := filepath.Join(root, ManifestFileName)

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no manifest found in %s", root)
	}

	app, err := r.parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	app.Root = root
	return app, nil
}
