// Package config loads and validates the YAML file configuration. Flag
// values override loaded fields one by one in the CLI layer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	htex "github.com/htexlab/go-htex"
	"github.com/htexlab/go-htex/internal/fileutil"
	"github.com/htexlab/go-htex/internal/hints"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
)

// maxConfigSize bounds config input to keep parsing cheap.
const maxConfigSize = 1 << 20

// Field length limits.
const (
	MaxFontNameLength = 200  // family or full font name
	MaxPathLength     = 4096 // output dir, font dirs, style path
)

// Config holds all file-backed settings.
type Config struct {
	Output OutputConfig `yaml:"output"`
	Render RenderConfig `yaml:"render"`
	Fonts  FontsConfig  `yaml:"fonts"`
	Style  StyleConfig  `yaml:"style"`
}

// OutputConfig defines where converted documents land.
type OutputConfig struct {
	Dir    string `yaml:"dir"`    // empty = alongside each input
	Minify bool   `yaml:"minify"` // minify converted HTML
}

// RenderConfig defines formula rendering parameters.
type RenderConfig struct {
	Format  string  `yaml:"format"`  // "svg" or "png" (default: svg)
	PPI     float64 `yaml:"ppi"`     // PNG pixel density (default: 1200)
	Workers int     `yaml:"workers"` // render workers, 0 = automatic
}

// FontsConfig defines the font configuration.
type FontsConfig struct {
	Body string   `yaml:"body"` // family name or font file path
	Math string   `yaml:"math"` // family name or font file path
	Dirs []string `yaml:"dirs"` // extra font search directories
}

// StyleConfig defines stylesheet injection.
type StyleConfig struct {
	Name     string `yaml:"name"`     // embedded style name or CSS file path
	Disabled bool   `yaml:"disabled"` // suppress stylesheet injection
}

// DefaultConfig returns the neutral configuration: every consumer applies
// its own defaults to zero values downstream.
func DefaultConfig() *Config {
	return &Config{}
}

// Validate checks enum membership, numeric ranges and field lengths.
// Called automatically by LoadConfig, but available for consumers who
// construct Config manually.
func (c *Config) Validate() error {
	if c.Render.Format != "" {
		if err := htex.Format(c.Render.Format).Validate(); err != nil {
			return fmt.Errorf("render.format: %w", err)
		}
	}
	if c.Render.PPI != 0 {
		if c.Render.PPI < htex.MinPPI || c.Render.PPI > htex.MaxPPI {
			return fmt.Errorf("render.ppi: must be between %g and %g, got %g",
				htex.MinPPI, htex.MaxPPI, c.Render.PPI)
		}
	}
	if c.Render.Workers < 0 || c.Render.Workers > htex.MaxWorkers {
		return fmt.Errorf("render.workers: must be between 0 and %d, got %d",
			htex.MaxWorkers, c.Render.Workers)
	}

	if err := validateFieldLength("output.dir", c.Output.Dir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("fonts.body", c.Fonts.Body, MaxFontNameLength); err != nil {
		return err
	}
	if err := validateFieldLength("fonts.math", c.Fonts.Math, MaxFontNameLength); err != nil {
		return err
	}
	for i, dir := range c.Fonts.Dirs {
		if err := validateFieldLength(fmt.Sprintf("fonts.dirs[%d]", i), dir, MaxPathLength); err != nil {
			return err
		}
	}
	if err := validateFieldLength("style.name", c.Style.Name, MaxPathLength); err != nil {
		return err
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name. A value
// containing a path separator is treated as a file path; otherwise it is
// searched as a name in standard locations. Missing files are an error, not
// a silent fallback.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		resolved, err := resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
		configPath = resolved
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if len(data) > maxConfigSize {
		return nil, fmt.Errorf("%w: %s: %d bytes (max %d)", ErrConfigParse, configPath, len(data), maxConfigSize)
	}

	var cfg Config
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveConfigPath searches for a config file by name, trying .yaml then
// .yml, first in the current directory and then under the user config
// directory.
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "htex", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s%s", ErrConfigNotFound,
		strings.Join(triedPaths, ", "), hints.ForConfigNotFound(triedPaths))
}
