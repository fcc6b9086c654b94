package marp

import (
	"log/slog"
	"time"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for every stage.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRunner replaces the subprocess runner (tests, sandboxes).
func WithRunner(r Runner) Option {
	return func(p *Pipeline) {
		p.runner = r
	}
}

// WithEmitter sets how local images become URLs. The default emits
// absolute file:// URLs.
func WithEmitter(e AssetEmitter) Option {
	return func(p *Pipeline) {
		p.emitter = e
	}
}

// WithSVGRenderer sets the diagram renderer for the inline-svg strategy.
func WithSVGRenderer(r SVGRenderer) Option {
	return func(p *Pipeline) {
		p.svg = r
	}
}

// WithCache enables the render cache.
func WithCache(c Cache) Option {
	return func(p *Pipeline) {
		p.cache = c
	}
}

// WithBinaryCandidates replaces the locations probed for the marp
// executable before PATH.
func WithBinaryCandidates(paths ...string) Option {
	return func(p *Pipeline) {
		p.binCandidates = append([]string{}, paths...)
	}
}

// WithThemeCandidates replaces the directories probed for themes when
// Config.ThemesDir is empty.
func WithThemeCandidates(dirs ...string) Option {
	return func(p *Pipeline) {
		p.themeCandidates = append([]string{}, dirs...)
	}
}

// WithClock sets the time source used when a source has no mtime.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}
