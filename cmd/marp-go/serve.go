package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-marp"
	"github.com/alnah/go-marp/internal/cache"
	"github.com/alnah/go-marp/internal/images"
	"github.com/alnah/go-marp/internal/server"
	"github.com/alnah/go-marp/internal/watch"
)

// Server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// runServe renders decks, serves them with live reload and rebuilds on
// change until ctx ends.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}

	cfg, err := loadSettings(flags.common, flags.pipeline, env.Stderr)
	if err != nil {
		return err
	}
	logger := newLogger(env.Stderr, flags.common, cfg)

	inputs := positional
	if len(inputs) == 0 && cfg.Input.Dir != "" {
		inputs = []string{cfg.Input.Dir}
	}
	roots, err := watchRoots(inputs)
	if err != nil {
		return err
	}
	paths, err := discoverDecks(roots)
	if err != nil && !errors.Is(err, ErrNoDecks) {
		return fmt.Errorf("discovering decks: %w", err)
	}

	assetsDir := flags.output
	if assetsDir == "" {
		tmp, err := os.MkdirTemp("", "marp-go-assets-*")
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}
		defer os.RemoveAll(tmp)
		assetsDir = tmp
	}

	p, store, closePipeline, err := openPipeline(cfg, logger, env,
		marp.WithEmitter(&images.CopyEmitter{Dir: assetsDir, URLPrefix: "/_assets"}))
	if err != nil {
		return err
	}
	defer closePipeline()

	broker := server.NewBroker()
	defer broker.Close()

	ds := &deckServer{
		pipeline: p,
		cache:    store,
		decks:    server.NewStore(broker),
		logger:   logger,
	}
	ds.rebuild(ctx, paths)

	addr := flags.addr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           server.New(ds.decks, broker, server.Options{AssetsDir: assetsDir, Logger: logger}),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving decks", slog.String("url", "http://"+addr), slog.Int("decks", len(paths)))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return watch.Run(gctx, watch.Options{
			Roots:     roots,
			ThemesDir: p.ThemesDir(),
			Ext:       marp.Extension,
			Logger:    logger,
		}, watch.Handler{
			OnSource: func(path string) { ds.rebuild(gctx, []string{path}) },
			OnRemove: ds.remove,
			OnTheme:  func(path string) { ds.themesChanged(gctx, path) },
		})
	})

	return g.Wait()
}

// watchRoots returns the absolute directories to watch for inputs. A file
// input contributes its directory.
func watchRoots(inputs []string) ([]string, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInput
	}
	roots := make([]string, 0, len(inputs))
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			abs = filepath.Dir(abs)
		}
		roots = append(roots, abs)
	}
	return roots, nil
}

// deckServer keeps the preview store in step with the files on disk.
type deckServer struct {
	pipeline *marp.Pipeline
	cache    *cache.Store
	decks    *server.Store
	logger   *slog.Logger
}

// rebuild renders paths and publishes them.
func (s *deckServer) rebuild(ctx context.Context, paths []string) {
	srcs := make([]marp.Source, 0, len(paths))
	for _, path := range paths {
		src, err := marp.ReadSource(path)
		if err != nil {
			s.logger.Warn("reading deck", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		srcs = append(srcs, src)
	}

	for _, doc := range s.pipeline.ProcessAll(ctx, srcs) {
		if slug := s.decks.UniqueSlug(doc.Meta.Slug, doc.Meta.FilePath); slug != doc.Meta.Slug {
			s.logger.Warn("duplicate slug", slog.String("path", doc.Meta.FilePath),
				slog.String("slug", doc.Meta.Slug), slog.String("using", slug))
			doc.Meta.Slug = slug
			doc.Meta.ID = slug
		}
		s.decks.Put(server.Deck{
			Slug:   doc.Meta.Slug,
			Title:  doc.Meta.Title,
			Path:   doc.Meta.FilePath,
			HTML:   doc.HTML,
			Meta:   doc.Meta,
			Failed: doc.Failed(),
		})
		if doc.Failed() {
			s.logger.Error("deck failed", slog.String("path", doc.Meta.FilePath), slog.String("error", doc.Err))
		} else {
			s.logger.Info("deck rendered", slog.String("slug", doc.Meta.Slug), slog.Int("slides", doc.Meta.SlidesCount))
		}
	}
}

// remove drops the deck built from path.
func (s *deckServer) remove(path string) {
	if s.decks.RemovePath(path) {
		s.logger.Info("deck removed", slog.String("path", path))
	}
}

// themesChanged forgets theme lookups and cached renders, then rebuilds
// every deck.
func (s *deckServer) themesChanged(ctx context.Context, path string) {
	s.logger.Info("themes changed", slog.String("path", path))
	s.pipeline.InvalidateThemes()
	if s.cache != nil {
		if _, err := s.cache.Purge(ctx, 0); err != nil {
			s.logger.Warn("purging render cache", slog.String("error", err.Error()))
		}
	}

	list := s.decks.List()
	paths := make([]string, 0, len(list))
	for _, d := range list {
		paths = append(paths, d.Path)
	}
	s.rebuild(ctx, paths)
}
