// Package theme maps theme names from deck headers to stylesheet paths.
//
// A Resolver discovers stylesheets in the first existing themes directory,
// evaluates an ordered rule list for each requested name and caches every
// answer, fallbacks included. The cache lives on the Resolver, so tests and
// file watchers reset it with Invalidate instead of touching globals.
package theme

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FallbackTheme is used when a requested theme cannot be resolved.
const FallbackTheme = "default"

// BuiltinThemes ship with the renderer and need no stylesheet.
var BuiltinThemes = []string{"default", "gaia", "uncover"}

// DefaultExtensions lists stylesheet extensions in lookup priority order.
var DefaultExtensions = []string{".scss", ".css"}

// Resolution is the cached answer for one requested theme name.
type Resolution struct {
	Requested    string `json:"requested"`
	Resolved     string `json:"resolved"`
	UsedFallback bool   `json:"usedFallback"`
}

// Resolver resolves theme names. Safe for concurrent use.
type Resolver struct {
	candidates []string
	extensions []string
	fallback   string
	logger     *slog.Logger
	stat       func(string) (os.FileInfo, error)
	readDir    func(string) ([]os.DirEntry, error)
	rules      []rule

	mu        sync.Mutex
	loaded    bool
	dir       string
	available map[string]string // name -> stylesheet path
	names     []string
	scans     int

	cache sync.Map // requested name -> Resolution
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCandidates sets the directories searched for stylesheets, in order.
func WithCandidates(dirs ...string) Option {
	return func(r *Resolver) {
		r.candidates = append([]string{}, dirs...)
	}
}

// WithExtensions sets recognised stylesheet extensions, including the dot.
func WithExtensions(exts ...string) Option {
	return func(r *Resolver) {
		r.extensions = exts
	}
}

// WithFallback overrides the theme used when nothing else matches.
func WithFallback(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.fallback = name
		}
	}
}

// WithLogger sets the logger used for discovery and fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithStat replaces os.Stat, mostly for counting filesystem access in tests.
func WithStat(fn func(string) (os.FileInfo, error)) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.stat = fn
		}
	}
}

// New creates a Resolver. Without WithCandidates, DefaultCandidates is used.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		extensions: DefaultExtensions,
		fallback:   FallbackTheme,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		stat:       os.Stat,
		readDir:    os.ReadDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.candidates == nil {
		r.candidates = DefaultCandidates()
	}
	r.rules = r.defaultRules()
	return r
}

// DefaultCandidates returns the directories probed for themes, in order:
// next to the executable, its parent, the shared data dir, then the
// working directory.
func DefaultCandidates() []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		dirs = append(dirs,
			filepath.Join(exeDir, "themes"),
			filepath.Join(exeDir, "..", "themes"),
			filepath.Join(exeDir, "..", "share", "go-marp", "themes"),
		)
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs,
			filepath.Join(cwd, "themes"),
			filepath.Join(cwd, "src", "themes"),
		)
	}
	return dirs
}

// Resolve returns the resolution for name, computing it at most once.
func (r *Resolver) Resolve(name string) Resolution {
	if cached, ok := r.cache.Load(name); ok {
		return cached.(Resolution)
	}

	res := r.evaluate(name)
	actual, _ := r.cache.LoadOrStore(name, res)
	return actual.(Resolution)
}

// evaluate runs the rule list. The last rule always matches.
func (r *Resolver) evaluate(name string) Resolution {
	for _, rl := range r.rules {
		if !rl.match(name) {
			continue
		}
		res := Resolution{Requested: name, Resolved: rl.resolve(name)}
		if rl.fallback {
			res.UsedFallback = true
			r.logger.Warn("theme not found, using fallback",
				"theme", name, "fallback", res.Resolved, "available", r.Available())
		} else {
			r.logger.Debug("theme resolved", "theme", name, "path", res.Resolved, "rule", rl.name)
		}
		return res
	}
	return Resolution{Requested: name, Resolved: r.fallback, UsedFallback: true}
}

// Validate reports whether name resolves without falling back.
func (r *Resolver) Validate(name string) bool {
	for _, rl := range r.rules {
		if rl.fallback {
			continue
		}
		if rl.match(name) {
			return true
		}
	}
	return false
}

// Available returns the discovered theme names, sorted.
func (r *Resolver) Available() []string {
	r.discover()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Dir returns the themes directory in use, or "" when none was found.
func (r *Resolver) Dir() string {
	r.discover()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dir
}

// Invalidate drops discovered themes and cached resolutions.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.loaded = false
	r.dir = ""
	r.available = nil
	r.names = nil
	r.mu.Unlock()

	r.cache.Range(func(key, _ any) bool {
		r.cache.Delete(key)
		return true
	})
}

// lookup returns the stylesheet path of a discovered theme.
func (r *Resolver) lookup(name string) (string, bool) {
	r.discover()
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.available[name]
	return p, ok
}

// discover scans the first existing candidate directory once.
func (r *Resolver) discover() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return
	}
	r.loaded = true
	r.scans++
	r.available = map[string]string{}

	for _, dir := range r.candidates {
		info, err := r.stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		r.dir = dir
		break
	}
	if r.dir == "" {
		r.logger.Warn("no themes directory found", "tried", strings.Join(r.candidates, ", "))
		return
	}

	entries, err := r.readDir(r.dir)
	if err != nil {
		r.logger.Warn("reading themes directory", "dir", r.dir, "error", err)
		return
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		rank := r.extRank(ext)
		if rank < 0 {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if prev, ok := r.available[name]; ok && r.extRank(filepath.Ext(prev)) <= rank {
			continue
		}
		r.available[name] = filepath.Join(r.dir, e.Name())
	}

	r.names = make([]string, 0, len(r.available))
	for name := range r.available {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	r.logger.Debug("themes discovered", "dir", r.dir, "count", len(r.names))
}

// extRank returns the priority of ext, or -1 when it is not a stylesheet.
func (r *Resolver) extRank(ext string) int {
	for i, e := range r.extensions {
		if strings.EqualFold(e, ext) {
			return i
		}
	}
	return -1
}

// IsBuiltin reports whether name ships with the renderer.
func IsBuiltin(name string) bool {
	for _, b := range BuiltinThemes {
		if b == name {
			return true
		}
	}
	return false
}
