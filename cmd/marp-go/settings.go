package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alnah/go-marp"
	"github.com/alnah/go-marp/internal/cache"
	"github.com/alnah/go-marp/internal/config"
)

// Sentinel errors for settings resolution.
var (
	ErrInvalidTimeout     = errors.New("invalid timeout")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// loadSettings resolves the effective configuration:
// CLI flags > env vars > config file > defaults.
// Without --config or MARP_CONFIG, ./marp.yaml is used when present.
func loadSettings(common commonFlags, pf pipelineFlags, stderr io.Writer) (*config.Config, error) {
	warnUnknownEnvVars(stderr)
	env := loadEnvConfig()

	name := common.config
	if name == "" {
		name = env.ConfigPath
	}

	cfg := config.DefaultConfig()
	switch {
	case name != "":
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	case config.Exists(config.DefaultName):
		loaded, err := config.LoadConfig(config.DefaultName)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyEnvConfig(env, cfg)
	if err := mergeFlags(pf, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFlags applies explicitly set flags onto cfg.
func mergeFlags(pf pipelineFlags, cfg *config.Config) error {
	if pf.theme != "" {
		cfg.DefaultTheme = pf.theme
	}
	if pf.themesDir != "" {
		cfg.ThemesDir = pf.themesDir
	}
	if pf.renderer != "" {
		cfg.RendererBin = pf.renderer
	}
	if pf.projectRoot != "" {
		cfg.ProjectRoot = pf.projectRoot
	}
	if pf.timeout != "" {
		d, err := time.ParseDuration(pf.timeout)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidTimeout, pf.timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: %s (must be positive)", ErrInvalidTimeout, d)
		}
		cfg.Timeout = d
	}
	if pf.workers != 0 {
		if err := validateWorkers(pf.workers); err != nil {
			return err
		}
		cfg.Workers = pf.workers
	}
	if pf.maxSlides != 0 {
		cfg.MaxSlides = pf.maxSlides
	}
	if pf.mermaidStrategy != "" {
		cfg.Mermaid.Strategy = pf.mermaidStrategy
	}
	if pf.noMermaid {
		cfg.Mermaid.Enabled = false
	}
	if pf.cache != "" {
		cfg.Cache.Path = pf.cache
	}
	if len(pf.marpArgs) > 0 {
		cfg.MarpCLIArgs = append(append([]string{}, cfg.MarpCLIArgs...), pf.marpArgs...)
	}
	return nil
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > marp.MaxConcurrency {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, marp.MaxConcurrency)
	}
	return nil
}

// pipelineConfig maps the file configuration onto the library's.
func pipelineConfig(cfg *config.Config) marp.Config {
	return marp.Config{
		DefaultTheme:    cfg.DefaultTheme,
		Debug:           cfg.Debug,
		MaxSlides:       cfg.MaxSlides,
		EnableMermaid:   cfg.Mermaid.Enabled,
		MermaidStrategy: cfg.Mermaid.Strategy,
		MarpCLIArgs:     cfg.MarpCLIArgs,
		ThemesDir:       cfg.ThemesDir,
		ProjectRoot:     cfg.ProjectRoot,
		RendererBin:     cfg.RendererBin,
		Timeout:         cfg.Timeout,
		Workers:         cfg.Workers,
	}
}

// newLogger builds the CLI logger: debug with --verbose or debug: true,
// errors only with --quiet, info otherwise.
func newLogger(w io.Writer, common commonFlags, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case common.verbose || cfg.Debug:
		level = slog.LevelDebug
	case common.quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openPipeline builds a pipeline from cfg, with the render cache when
// configured. The returned closer releases both.
func openPipeline(cfg *config.Config, logger *slog.Logger, env *Environment, extra ...marp.Option) (*marp.Pipeline, *cache.Store, func(), error) {
	opts := []marp.Option{marp.WithLogger(logger)}
	opts = append(opts, extra...)

	var store *cache.Store
	if cfg.Cache.Path != "" {
		s, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		store = s
		opts = append(opts, marp.WithCache(store))
	}
	opts = append(opts, env.Options...)

	p, err := marp.New(pipelineConfig(cfg), opts...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, nil, err
	}

	closer := func() {
		if err := p.Close(); err != nil {
			logger.Warn("closing pipeline", slog.String("error", err.Error()))
		}
		if store != nil {
			_ = store.Close()
		}
	}
	return p, store, closer, nil
}
