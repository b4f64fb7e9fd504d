// Package inifile stores user settings in an INI file.
package inifile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-ini/ini"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/domain/interfaces"
)

// ConfigRelPath is the settings location relative to the XDG config home
const ConfigRelPath = "decant/config.ini"

// ErrUnknownSetting is returned by Set for keys outside the known schema
var ErrUnknownSetting = errors.New("unknown setting")

type valueKind int

const (
	kindString valueKind = iota
	kindBool
	kindInt
)

// settingDef binds one INI key to its field in entities.Settings
type settingDef struct {
	section string
	key     string
	kind    valueKind
	str     func(*entities.Settings) *string
	boolean func(*entities.Settings) *bool
	integer func(*entities.Settings) *int
}

var schema = []settingDef{
	{section: "General", key: "default_output_dir", kind: kindString, str: func(s *entities.Settings) *string { return &s.General.DefaultOutputDir }},
	{section: "General", key: "auto_analyze", kind: kindBool, boolean: func(s *entities.Settings) *bool { return &s.General.AutoAnalyze }},
	{section: "Advanced", key: "include_dependencies", kind: kindBool, boolean: func(s *entities.Settings) *bool { return &s.Advanced.IncludeDependencies }},
	{section: "Advanced", key: "create_launcher", kind: kindBool, boolean: func(s *entities.Settings) *bool { return &s.Advanced.CreateLauncher }},
	{section: "Advanced", key: "compression_level", kind: kindInt, integer: func(s *entities.Settings) *int { return &s.Advanced.CompressionLevel }},
	{section: "Advanced", key: "max_temp_size_gb", kind: kindInt, integer: func(s *entities.Settings) *int { return &s.Advanced.MaxTempSizeGB }},
	{section: "Extraction", key: "timeout_seconds", kind: kindInt, integer: func(s *entities.Settings) *int { return &s.Extraction.TimeoutSeconds }},
	{section: "Extraction", key: "use_7zip", kind: kindBool, boolean: func(s *entities.Settings) *bool { return &s.Extraction.Use7Zip }},
	{section: "Extraction", key: "use_innoextract", kind: kindBool, boolean: func(s *entities.Settings) *bool { return &s.Extraction.UseInnoextract }},
	{section: "Extraction", key: "use_msi_extract", kind: kindBool, boolean: func(s *entities.Settings) *bool { return &s.Extraction.UseMSIExtract }},
	{section: "Validation", key: "max_section_entries", kind: kindInt, integer: func(s *entities.Settings) *int { return &s.Validation.MaxSectionEntries }},
	{section: "Validation", key: "meaningful_file_threshold", kind: kindInt, integer: func(s *entities.Settings) *int { return &s.Validation.MeaningfulFileThreshold }},
}

// SettingsRepository reads and writes entities.Settings as INI
type SettingsRepository struct {
	path   string
	logger interfaces.Logger
}

// DefaultPath returns the settings file location, creating its directory
func DefaultPath() (string, error) {
	return xdg.ConfigFile(ConfigRelPath)
}

// NewSettingsRepository creates a repository for the file at path
func NewSettingsRepository(path string, logger interfaces.Logger) *SettingsRepository {
	return &SettingsRepository{path: path, logger: interfaces.OrNoOp(logger)}
}

// Path returns the location of the settings file
func (r *SettingsRepository) Path() string {
	return r.path
}

// Load reads the settings file. A missing file is replaced by the defaults,
// which are also written to disk. Missing or malformed keys keep their defaults.
func (r *SettingsRepository) Load() (entities.Settings, error) {
	f, err := r.loadFile()
	if errors.Is(err, os.ErrNotExist) {
		defaults := entities.DefaultSettings()
		if saveErr := r.Save(defaults); saveErr != nil {
			r.logger.Warn("failed to write default settings", interfaces.F("path", r.path), interfaces.F("error", saveErr))
		}
		return defaults, nil
	}
	if err != nil {
		return entities.DefaultSettings(), err
	}

	settings := entities.DefaultSettings()
	for _, def := range schema {
		key := f.Section(def.section).Key(def.key)
		switch def.kind {
		case kindString:
			p := def.str(&settings)
			*p = key.MustString(*p)
		case kindBool:
			p := def.boolean(&settings)
			*p = key.MustBool(*p)
		case kindInt:
			p := def.integer(&settings)
			*p = key.MustInt(*p)
		}
	}
	return settings, nil
}

// Save writes settings, replacing the file
func (r *SettingsRepository) Save(settings entities.Settings) error {
	f := ini.Empty()
	for _, def := range schema {
		var value string
		switch def.kind {
		case kindString:
			value = *def.str(&settings)
		case kindBool:
			value = strconv.FormatBool(*def.boolean(&settings))
		case kindInt:
			value = strconv.Itoa(*def.integer(&settings))
		}
		f.Section(def.section).Key(def.key).SetValue(value)
	}
	return r.write(f)
}

// Set validates and stores one "section.key" value
func (r *SettingsRepository) Set(name, value string) error {
	def, err := lookup(name)
	if err != nil {
		return err
	}
	switch def.kind {
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s expects true or false: %w", name, err)
		}
		value = strconv.FormatBool(b)
	case kindInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("%s expects an integer: %w", name, err)
		}
	}

	// Keep unrelated keys and comments the user may have added
	f, err := r.loadFile()
	if errors.Is(err, os.ErrNotExist) {
		if err := r.Save(entities.DefaultSettings()); err != nil {
			return err
		}
		f, err = r.loadFile()
	}
	if err != nil {
		return err
	}

	f.Section(def.section).Key(def.key).SetValue(value)
	return r.write(f)
}

// Keys lists every known "section.key" name in file order
func Keys() []string {
	keys := make([]string, 0, len(schema))
	for _, def := range schema {
		keys = append(keys, def.section+"."+def.key)
	}
	return keys
}

func lookup(name string) (settingDef, error) {
	section, key, ok := strings.Cut(name, ".")
	if ok {
		for _, def := range schema {
			if strings.EqualFold(def.section, section) && strings.EqualFold(def.key, key) {
				return def, nil
			}
		}
	}
	known := Keys()
	sort.Strings(known)
	return settingDef{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownSetting, name, strings.Join(known, ", "))
}

func (r *SettingsRepository) loadFile() (*ini.File, error) {
	//nolint:gosec // G304: settings path is chosen by the user
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, err
	}
	data, err = decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", r.path, err)
	}
	f, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", r.path, err)
	}
	return f, nil
}

func (r *SettingsRepository) write(f *ini.File) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := f.SaveTo(r.path); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// decodeText converts UTF-16 files (as saved by some Windows editors) to UTF-8
func decodeText(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte{0xFF, 0xFE}) && !bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		return data, nil
	}
	rd := transform.NewReader(bytes.NewReader(data), unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
	return io.ReadAll(rd)
}
