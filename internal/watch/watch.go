// Package watch reports deck and theme changes on disk.
//
// Events are debounced: editors often write a file several times in a row,
// and one save should trigger one rebuild.
package watch

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alnah/go-marp/internal/fileutil"
)

// DefaultDebounce is the quiet period before pending events are delivered.
const DefaultDebounce = 150 * time.Millisecond

// ErrNoRoots is returned when there is nothing to watch.
var ErrNoRoots = errors.New("watch: no directories to watch")

// Handler receives debounced events. Nil callbacks are skipped.
// Within one flush OnTheme runs first, then sources in path order.
type Handler struct {
	OnSource func(path string)
	OnRemove func(path string)
	OnTheme  func(path string)
}

// Options configures Run.
type Options struct {
	// Roots are searched recursively for deck sources.
	Roots []string
	// ThemesDir holds stylesheets; changes there call OnTheme. Optional.
	ThemesDir string
	// Ext is the source extension. Default ".marp".
	Ext      string
	Debounce time.Duration
	Logger   *slog.Logger
}

type change int

const (
	changed change = iota
	removed
)

// Run watches until ctx is cancelled. New directories are picked up as they
// appear.
func Run(ctx context.Context, opts Options, h Handler) error {
	if len(opts.Roots) == 0 && opts.ThemesDir == "" {
		return ErrNoRoots
	}
	if opts.Ext == "" {
		opts.Ext = ".marp"
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range opts.Roots {
		if err := addDirsRecursive(w, root); err != nil {
			return err
		}
	}
	themesDir := ""
	if opts.ThemesDir != "" && fileutil.DirExists(opts.ThemesDir) {
		themesDir, _ = filepath.Abs(opts.ThemesDir)
		if err := w.Add(opts.ThemesDir); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.Any("roots", opts.Roots), slog.String("themes", opts.ThemesDir))

	pending := make(map[string]change)
	themePath := ""

	timer := time.NewTimer(opts.Debounce)
	timer.Stop()

	flush := func() {
		if themePath != "" && h.OnTheme != nil {
			h.OnTheme(themePath)
		}
		themePath = ""

		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			switch pending[p] {
			case changed:
				if h.OnSource != nil {
					h.OnSource(p)
				}
			case removed:
				if h.OnRemove != nil {
					h.OnRemove(p)
				}
			}
		}
		clear(pending)
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("watcher: stopped")
			return nil

		case <-timer.C:
			flush()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					// Sources copied in with the directory.
					_ = filepath.WalkDir(ev.Name, func(p string, d fs.DirEntry, err error) error {
						if err == nil && !d.IsDir() && strings.EqualFold(filepath.Ext(p), opts.Ext) {
							pending[p] = changed
						}
						return nil
					})
					timer.Reset(opts.Debounce)
					continue
				}
			}

			if themesDir != "" && isStylesheet(ev.Name) && inDir(themesDir, ev.Name) {
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					themePath = ev.Name
					timer.Reset(opts.Debounce)
				}
				continue
			}

			if !strings.EqualFold(filepath.Ext(ev.Name), opts.Ext) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[ev.Name] = changed
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path; the new one arrives as Create.
				pending[ev.Name] = removed
			default:
				continue
			}
			logger.Debug("watcher: event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			timer.Reset(opts.Debounce)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func isStylesheet(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".css", ".scss":
		return true
	}
	return false
}

func inDir(dir, p string) bool {
	abs, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	return filepath.Dir(abs) == dir
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
// node_modules and dot directories are skipped.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (name == "node_modules" || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
