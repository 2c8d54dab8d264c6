// Package settings loads the root xtask.project document.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/mapstructure"

	"github.com/Nikerino/xtask/internal/taskerr"
)

// RootMarkerName is the root-marker file used by root discovery.
const RootMarkerName = "xtask.project"

// TasksFileExtension is the suffix recognized as a task file.
const TasksFileExtension = ".tasks"

// Settings is the recognized option set of the root document. Unknown
// fields in the document are a ConfigurationError.
type Settings struct {
	CacheLocation     string `mapstructure:"cache_location"`
	ExtensionLocation string `mapstructure:"extension_location"`
	LogLevel          string `mapstructure:"log_level"`
}

// Default returns the zero-value settings used when no root document is
// present: caching disabled, no extension location, "info" logging.
func Default() *Settings {
	return &Settings{LogLevel: "info"}
}

// Load reads and decodes the settings document at path. The file must
// exist: a missing or unreadable file is a ConfigurationError here.
// LoadOrDefault is the entry point that falls back to Default() when the
// document is absent.
func Load(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &taskerr.ConfigurationError{Msg: "reading settings file", Err: err}
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &taskerr.ConfigurationError{Msg: "parsing settings file as JSON", Err: err}
	}

	result := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      result,
	})
	if err != nil {
		return nil, &taskerr.ConfigurationError{Msg: "constructing settings decoder", Err: err}
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, &taskerr.ConfigurationError{Msg: "decoding settings document (unknown field?)", Err: err}
	}

	if result.CacheLocation != "" {
		expanded, err := homedir.Expand(result.CacheLocation)
		if err != nil {
			return nil, &taskerr.ConfigurationError{Msg: "expanding cache_location", Err: err}
		}
		result.CacheLocation = expanded
	}
	if result.ExtensionLocation != "" {
		expanded, err := homedir.Expand(result.ExtensionLocation)
		if err != nil {
			return nil, &taskerr.ConfigurationError{Msg: "expanding extension_location", Err: err}
		}
		result.ExtensionLocation = expanded
	}
	if result.LogLevel == "" {
		result.LogLevel = "info"
	}
	if hclog.LevelFromString(result.LogLevel) == hclog.NoLevel {
		return nil, &taskerr.ConfigurationError{Msg: "unrecognized log_level " + result.LogLevel}
	}

	return result, nil
}

// LoadOrDefault loads the settings document at root/xtask.project,
// returning Default() if it does not exist.
func LoadOrDefault(root string) (*Settings, error) {
	path := filepath.Join(root, RootMarkerName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Default(), nil
	}
	return Load(path)
}

// CacheEnabled reports whether CacheLocation names an existing directory.
func (s *Settings) CacheEnabled() bool {
	if s.CacheLocation == "" {
		return false
	}
	info, err := os.Stat(s.CacheLocation)
	return err == nil && info.IsDir()
}

// ExtensionEnabled reports whether ExtensionLocation names an existing directory.
func (s *Settings) ExtensionEnabled() bool {
	if s.ExtensionLocation == "" {
		return false
	}
	info, err := os.Stat(s.ExtensionLocation)
	return err == nil && info.IsDir()
}

// FindProjectRoot ascends from start looking for the first ancestor
// containing RootMarkerName. If none is found, start is returned.
func FindProjectRoot(start string) (string, error) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		marker := filepath.Join(current, RootMarkerName)
		if info, err := os.Stat(marker); err == nil && !info.IsDir() {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	return abs, nil
}
