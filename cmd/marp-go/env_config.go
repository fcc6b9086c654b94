package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-marp/internal/config"
	"github.com/alnah/go-marp/internal/render"
)

// envPrefix is the prefix of every recognised environment variable.
const envPrefix = "MARP_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath  string        // MARP_CONFIG: config file name or path
	RendererBin string        // MARP_CLI_BIN: marp executable
	Theme       string        // MARP_THEME: default theme
	ThemesDir   string        // MARP_THEMES_DIR: themes directory
	Timeout     time.Duration // MARP_TIMEOUT: render timeout
	OutputDir   string        // MARP_OUTPUT_DIR: build output directory
	Workers     int           // MARP_WORKERS: parallel renders
}

// knownEnvVars lists valid MARP_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"MARP_CONFIG":     true,
	render.BinaryEnv:  true,
	"MARP_THEME":      true,
	"MARP_THEMES_DIR": true,
	"MARP_TIMEOUT":    true,
	"MARP_OUTPUT_DIR": true,
	"MARP_WORKERS":    true,
}

// loadEnvConfig reads configuration from environment variables.
// Unparsable numbers and durations are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath:  os.Getenv("MARP_CONFIG"),
		RendererBin: os.Getenv(render.BinaryEnv),
		Theme:       os.Getenv("MARP_THEME"),
		ThemesDir:   os.Getenv("MARP_THEMES_DIR"),
		OutputDir:   os.Getenv("MARP_OUTPUT_DIR"),
	}

	if timeout := os.Getenv("MARP_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if workers := os.Getenv("MARP_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars prints warnings for unrecognized MARP_* variables.
// Helps catch typos like MARP_THEME_DIR instead of MARP_THEMES_DIR.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to cfg.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.RendererBin != "" {
		cfg.RendererBin = env.RendererBin
	}
	if env.Theme != "" {
		cfg.DefaultTheme = env.Theme
	}
	if env.ThemesDir != "" {
		cfg.ThemesDir = env.ThemesDir
	}
	if env.Timeout > 0 {
		cfg.Timeout = env.Timeout
	}
	if env.OutputDir != "" {
		cfg.Output.Dir = env.OutputDir
	}
	if env.Workers > 0 {
		cfg.Workers = env.Workers
	}
}
