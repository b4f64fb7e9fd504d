// Package repositories defines interfaces for data access layers.
package repositories

import (
	"github.com/ochairo/decant/internal/domain/entities"
)

// SettingsRepository defines the interface for loading and storing user settings
type SettingsRepository interface {
	// Load returns the stored settings, writing defaults first if none exist
	Load() (entities.Settings, error)

	// Save persists the given settings
	Save(settings entities.Settings) error

	// Set updates a single "section.key" value and persists it
	Set(key, value string) error

	// Path returns the location of the settings file
	Path() string
}
