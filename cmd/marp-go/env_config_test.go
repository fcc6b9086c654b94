package main

// Notes:
// - loadEnvConfig: we test every variable, plus invalid and negative values
//   for timeout and workers (ignored, not errors).
// - warnUnknownEnvVars: we test typo detection and that known vars don't warn.
// - applyEnvConfig: we test that set values override the config and unset
//   ones leave it alone.
// - Tests use t.Setenv() which prevents t.Parallel() at parent level.

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-marp/internal/config"
)

// ---------------------------------------------------------------------------
// TestLoadEnvConfig - Environment variable loading
// ---------------------------------------------------------------------------

func TestLoadEnvConfig(t *testing.T) {
	t.Run("all variables", func(t *testing.T) {
		t.Setenv("MARP_CONFIG", "/path/to/marp.yaml")
		t.Setenv("MARP_CLI_BIN", "/opt/marp")
		t.Setenv("MARP_THEME", "am_red")
		t.Setenv("MARP_THEMES_DIR", "/themes")
		t.Setenv("MARP_TIMEOUT", "2m")
		t.Setenv("MARP_OUTPUT_DIR", "/out")
		t.Setenv("MARP_WORKERS", "4")

		cfg := loadEnvConfig()

		want := envConfig{
			ConfigPath:  "/path/to/marp.yaml",
			RendererBin: "/opt/marp",
			Theme:       "am_red",
			ThemesDir:   "/themes",
			Timeout:     2 * time.Minute,
			OutputDir:   "/out",
			Workers:     4,
		}
		if *cfg != want {
			t.Errorf("loadEnvConfig() = %+v, want %+v", *cfg, want)
		}
	})

	t.Run("invalid numbers are ignored", func(t *testing.T) {
		tests := []struct {
			name    string
			timeout string
			workers string
		}{
			{"garbage", "soon", "many"},
			{"negative", "-5s", "-2"},
			{"zero", "0s", "0"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Setenv("MARP_TIMEOUT", tt.timeout)
				t.Setenv("MARP_WORKERS", tt.workers)

				cfg := loadEnvConfig()
				if cfg.Timeout != 0 {
					t.Errorf("Timeout = %v, want 0", cfg.Timeout)
				}
				if cfg.Workers != 0 {
					t.Errorf("Workers = %d, want 0", cfg.Workers)
				}
			})
		}
	})
}

// ---------------------------------------------------------------------------
// TestWarnUnknownEnvVars - Typo detection
// ---------------------------------------------------------------------------

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Setenv("MARP_THEME_DIR", "/typo")
	t.Setenv("MARP_THEMES_DIR", "/themes")

	var buf bytes.Buffer
	warnUnknownEnvVars(&buf)

	out := buf.String()
	if !strings.Contains(out, "MARP_THEME_DIR") {
		t.Errorf("output = %q, want warning for MARP_THEME_DIR", out)
	}
	if strings.Contains(out, "MARP_THEMES_DIR ") {
		t.Errorf("output = %q, known variable should not warn", out)
	}
}

// ---------------------------------------------------------------------------
// TestApplyEnvConfig - Env overrides
// ---------------------------------------------------------------------------

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	t.Run("set values override", func(t *testing.T) {
		t.Parallel()
		cfg := config.DefaultConfig()
		applyEnvConfig(&envConfig{
			RendererBin: "/opt/marp",
			Theme:       "am_red",
			ThemesDir:   "/themes",
			Timeout:     time.Minute,
			OutputDir:   "/out",
			Workers:     2,
		}, cfg)

		if cfg.RendererBin != "/opt/marp" || cfg.DefaultTheme != "am_red" || cfg.ThemesDir != "/themes" {
			t.Errorf("strings not applied: %+v", cfg)
		}
		if cfg.Timeout != time.Minute || cfg.Output.Dir != "/out" || cfg.Workers != 2 {
			t.Errorf("values not applied: %+v", cfg)
		}
	})

	t.Run("empty env keeps config", func(t *testing.T) {
		t.Parallel()
		cfg := config.DefaultConfig()
		cfg.DefaultTheme = "custom"
		applyEnvConfig(&envConfig{}, cfg)

		if cfg.DefaultTheme != "custom" {
			t.Errorf("DefaultTheme = %q, want custom", cfg.DefaultTheme)
		}
		if cfg.Output.Dir != "dist" {
			t.Errorf("Output.Dir = %q, want dist", cfg.Output.Dir)
		}
	})
}
