package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alnah/go-marp"
	"github.com/alnah/go-marp/internal/fileutil"
	"github.com/alnah/go-marp/internal/hints"
	"github.com/alnah/go-marp/internal/images"
)

// Sentinel errors for the build command.
var (
	ErrWriteOutput = errors.New("failed to write output")
	ErrBuildFailed = errors.New("some decks failed to render")
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// Output layout under the build directory.
const (
	assetsDirName = "_assets"
	manifestName  = "manifest.json"
)

// BuildResult holds the outcome of one deck.
type BuildResult struct {
	InputPath string
	HTMLPath  string
	Doc       *marp.Document
}

// runBuild renders decks into <out>/<slug>.html with <slug>.json metadata
// and a manifest. Decks that fail still get their error page.
func runBuild(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseBuildFlags(args, env.Stderr)
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
	paths, err := discoverDecks(inputs)
	if err != nil {
		return fmt.Errorf("discovering decks: %w", err)
	}

	outDir := flags.output
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	if err := os.MkdirAll(outDir, dirPermissions); err != nil {
		return fmt.Errorf("%w: %w%s", ErrWriteOutput, err, hints.ForOutputDirectory())
	}

	var extra []marp.Option
	if !flags.noCopy {
		extra = append(extra, marp.WithEmitter(&images.CopyEmitter{
			Dir:       filepath.Join(outDir, assetsDirName),
			URLPrefix: assetsDirName,
		}))
	}
	p, _, closePipeline, err := openPipeline(cfg, logger, env, extra...)
	if err != nil {
		return err
	}
	defer closePipeline()

	srcs, err := readSources(paths)
	if err != nil {
		return err
	}

	start := env.Now()
	docs := p.ProcessAll(ctx, srcs)
	assignUniqueSlugs(docs, logger)

	results := make([]BuildResult, 0, len(docs))
	manifest := make([]marp.Metadata, 0, len(docs))
	for i, doc := range docs {
		htmlPath, err := writeDeck(outDir, doc)
		if err != nil {
			return err
		}
		results = append(results, BuildResult{InputPath: paths[i], HTMLPath: htmlPath, Doc: doc})
		manifest = append(manifest, doc.Meta)
	}
	if err := writeJSON(filepath.Join(outDir, manifestName), manifest); err != nil {
		return err
	}

	failed := printResults(results, flags.common.quiet, flags.common.verbose, env)
	logger.Debug("build finished",
		slog.Int("decks", len(results)),
		slog.Int("failed", failed),
		slog.Duration("duration", env.Now().Sub(start)))

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrBuildFailed, failed, len(results))
	}
	return nil
}

// assignUniqueSlugs suffixes repeated slugs with -2, -3, ... in input order.
func assignUniqueSlugs(docs []*marp.Document, logger *slog.Logger) {
	used := map[string]bool{}
	for _, doc := range docs {
		slug := doc.Meta.Slug
		for n := 2; used[slug]; n++ {
			slug = doc.Meta.Slug + "-" + strconv.Itoa(n)
		}
		if slug != doc.Meta.Slug {
			logger.Warn("duplicate slug", slog.String("path", doc.Meta.FilePath),
				slog.String("slug", doc.Meta.Slug), slog.String("using", slug))
			doc.Meta.Slug = slug
			doc.Meta.ID = slug
		}
		used[slug] = true
	}
}

// writeDeck writes <slug>.html and <slug>.json and returns the HTML path.
func writeDeck(outDir string, doc *marp.Document) (string, error) {
	htmlPath := filepath.Join(outDir, doc.Meta.Slug+".html")
	if err := fileutil.WriteFileAtomic(htmlPath, []byte(doc.HTML), filePermissions); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrWriteOutput, htmlPath, err)
	}
	if err := writeJSON(filepath.Join(outDir, doc.Meta.Slug+".json"), doc.Meta); err != nil {
		return "", err
	}
	return htmlPath, nil
}

// writeJSON writes v as indented JSON.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", ErrWriteOutput, path, err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data, filePermissions); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteOutput, path, err)
	}
	return nil
}

// printResults outputs build results and returns the number of failures.
func printResults(results []BuildResult, quiet, verbose bool, env *Environment) int {
	failed := 0
	for _, r := range results {
		if r.Doc.Failed() {
			failed++
			fmt.Fprintf(env.Stderr, "FAILED %s: %s\n", r.InputPath, r.Doc.Err)
			continue
		}

		if quiet {
			continue
		}

		for _, w := range r.Doc.Warnings {
			fmt.Fprintf(env.Stderr, "warning: %s: %s\n", r.InputPath, w)
		}
		if verbose {
			cached := ""
			if r.Doc.Cached {
				cached = ", cached"
			}
			fmt.Fprintf(env.Stdout, "%s -> %s (%d slides%s)\n", r.InputPath, r.HTMLPath, r.Doc.Meta.SlidesCount, cached)
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.HTMLPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", len(results)-failed, failed)
	}
	return failed
}
