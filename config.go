package marp

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/alnah/go-marp/internal/diagram"
	"github.com/alnah/go-marp/internal/render"
)

// Configuration defaults.
const (
	DefaultThemeName = "am_blue"
	DefaultMaxSlides = 100
	MaxSlidesLimit   = 1000
	DefaultTimeout   = render.DefaultTimeout
)

// Mermaid strategies accepted by Config.MermaidStrategy.
const (
	MermaidScript    = string(diagram.StrategyScript)
	MermaidPre       = string(diagram.StrategyPre)
	MermaidInlineSVG = string(diagram.StrategyInlineSVG)
)

// Config holds pipeline settings. The zero value is not valid; start from
// DefaultConfig.
type Config struct {
	// DefaultTheme applies when a deck's frontmatter names none.
	DefaultTheme string `json:"defaultTheme"`
	// Debug promotes per-deck progress logs from debug to info level.
	Debug bool `json:"debug"`
	// MaxSlides rejects decks with more separators than this (1-1000).
	MaxSlides int `json:"maxSlides"`
	// EnableMermaid turns on diagram support for fenced mermaid blocks.
	EnableMermaid bool `json:"enableMermaid"`
	// MermaidStrategy is "script" (default), "pre" or "inline-svg".
	MermaidStrategy string `json:"mermaidStrategy"`
	// MarpCLIArgs are appended to every renderer invocation.
	MarpCLIArgs []string `json:"marpCliArgs"`
	// ThemesDir overrides theme directory discovery.
	ThemesDir string `json:"themesDir"`
	// ProjectRoot anchors "/" and "@/" image paths. Empty means cwd.
	ProjectRoot string `json:"projectRoot"`
	// RendererBin is an explicit marp executable. Empty means discover.
	RendererBin string `json:"rendererBin"`
	// Timeout bounds one renderer invocation. Zero disables the watchdog.
	Timeout time.Duration `json:"timeout"`
	// Workers caps concurrent renders in ProcessAll. Zero means auto.
	Workers int `json:"workers"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		DefaultTheme:    DefaultThemeName,
		MaxSlides:       DefaultMaxSlides,
		EnableMermaid:   true,
		MermaidStrategy: MermaidScript,
		MarpCLIArgs:     []string{},
		Timeout:         DefaultTimeout,
	}
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.DefaultTheme, validation.Required, validation.Length(1, 255)),
		validation.Field(&c.MaxSlides, validation.Required, validation.Min(1), validation.Max(MaxSlidesLimit)),
		validation.Field(&c.MermaidStrategy, validation.In(MermaidScript, MermaidPre, MermaidInlineSVG)),
		validation.Field(&c.MarpCLIArgs, validation.Each(validation.Required, validation.Length(1, 1024))),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Workers, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// strategy returns the parsed mermaid strategy; Validate has run.
func (c Config) strategy() diagram.Strategy {
	s, err := diagram.ParseStrategy(c.MermaidStrategy)
	if err != nil {
		return diagram.StrategyScript
	}
	return s
}
