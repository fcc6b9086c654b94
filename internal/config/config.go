// Package config loads marp.yaml project files.
//
// A file only overrides the keys it sets; everything else keeps the value
// from DefaultConfig. Range checks on numeric settings happen when the
// pipeline is built; this package rejects unknown keys, bad strategy names
// and oversized strings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-marp/internal/diagram"
	"github.com/alnah/go-marp/internal/fileutil"
	"github.com/alnah/go-marp/internal/hints"
	"github.com/alnah/go-marp/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// DefaultName is the config name looked up when none is given.
const DefaultName = "marp"

// appDir is the directory under os.UserConfigDir searched for configs.
const appDir = "go-marp"

// Field length limits.
const (
	MaxThemeLength = 255
	MaxPathLength  = 4096
	MaxArgLength   = 1024
	MaxArgs        = 64
	MaxAddrLength  = 255
)

// Config mirrors marp.yaml.
type Config struct {
	DefaultTheme string        `yaml:"defaultTheme"`
	Debug        bool          `yaml:"debug"`
	MaxSlides    int           `yaml:"maxSlides"`
	Mermaid      MermaidConfig `yaml:"mermaid"`
	MarpCLIArgs  []string      `yaml:"marpCliArgs"`
	ThemesDir    string        `yaml:"themesDir"`
	ProjectRoot  string        `yaml:"projectRoot"`
	RendererBin  string        `yaml:"rendererBin"`
	Timeout      time.Duration `yaml:"timeout"`
	Workers      int           `yaml:"workers"`
	Input        InputConfig   `yaml:"input"`
	Output       OutputConfig  `yaml:"output"`
	Cache        CacheConfig   `yaml:"cache"`
	Server       ServerConfig  `yaml:"server"`
}

// MermaidConfig controls diagram support.
type MermaidConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Strategy string `yaml:"strategy"` // "script", "pre", "inline-svg"
}

// InputConfig defines where decks are discovered.
type InputConfig struct {
	Dir string `yaml:"dir"`
}

// OutputConfig defines where the build writes.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// CacheConfig enables the render cache. Empty path disables it.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the configuration used when no file is loaded.
func DefaultConfig() *Config {
	return &Config{
		DefaultTheme: "am_blue",
		MaxSlides:    100,
		Mermaid:      MermaidConfig{Enabled: true, Strategy: string(diagram.StrategyScript)},
		MarpCLIArgs:  []string{},
		Timeout:      60 * time.Second,
		Input:        InputConfig{Dir: "."},
		Output:       OutputConfig{Dir: "dist"},
		Server:       ServerConfig{Addr: "127.0.0.1:4321"},
	}
}

// Validate checks string lengths and enumerations.
func (c *Config) Validate() error {
	if err := validateFieldLength("defaultTheme", c.DefaultTheme, MaxThemeLength); err != nil {
		return err
	}
	for _, f := range []struct{ name, value string }{
		{"themesDir", c.ThemesDir},
		{"projectRoot", c.ProjectRoot},
		{"rendererBin", c.RendererBin},
		{"input.dir", c.Input.Dir},
		{"output.dir", c.Output.Dir},
		{"cache.path", c.Cache.Path},
	} {
		if err := validateFieldLength(f.name, f.value, MaxPathLength); err != nil {
			return err
		}
	}
	if err := validateFieldLength("server.addr", c.Server.Addr, MaxAddrLength); err != nil {
		return err
	}

	if len(c.MarpCLIArgs) > MaxArgs {
		return fmt.Errorf("%w: marpCliArgs has %d entries (max %d)", ErrInvalidValue, len(c.MarpCLIArgs), MaxArgs)
	}
	for i, arg := range c.MarpCLIArgs {
		if err := validateFieldLength(fmt.Sprintf("marpCliArgs[%d]", i), arg, MaxArgLength); err != nil {
			return err
		}
	}

	if _, err := diagram.ParseStrategy(c.Mermaid.Strategy); err != nil {
		return fmt.Errorf("mermaid.strategy: %w", err)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative, got %s", ErrInvalidValue, c.Timeout)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidValue, c.Workers)
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

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise it's a config name searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := yamlutil.DecodeFile(configPath, cfg, yamlutil.Strict()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		if errors.Is(err, yamlutil.ErrNilData) {
			// An empty file is a valid "all defaults" config.
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-marp/
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

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, appDir, name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s%s", ErrConfigNotFound, strings.Join(triedPaths, ", "), hints.ForConfigNotFound(triedPaths))
}

// Exists reports whether a config named name can be found without loading it.
func Exists(name string) bool {
	if isFilePath(name) {
		return fileutil.FileExists(name)
	}
	_, err := resolveConfigPath(name)
	return err == nil
}
