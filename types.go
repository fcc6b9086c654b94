package marp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alnah/go-marp/internal/cache"
	"github.com/alnah/go-marp/internal/diagram"
	"github.com/alnah/go-marp/internal/images"
	"github.com/alnah/go-marp/internal/mdscan"
	"github.com/alnah/go-marp/internal/render"
)

// Extension is the file extension of deck sources.
const Extension = ".marp"

// Collaborator types, re-exported so callers can supply their own.
type (
	// Runner spawns the renderer process.
	Runner = render.Runner
	// RunResult is what a Runner captured.
	RunResult = render.RunResult
	// AssetEmitter turns a local image path into its final URL.
	AssetEmitter = images.AssetEmitter
	// SVGRenderer pre-renders diagrams for the inline-svg strategy.
	SVGRenderer = diagram.SVGRenderer
	// CacheEntry is one cached render.
	CacheEntry = cache.Entry
	// Heading is one entry of a deck's outline.
	Heading = mdscan.Heading
)

// Cache stores successful renders keyed by a digest of the renderer input.
// *cache.Store implements it.
type Cache interface {
	Get(ctx context.Context, key string) (CacheEntry, bool, error)
	Put(ctx context.Context, e CacheEntry) error
}

// Source is one deck to process.
type Source struct {
	// Path is the deck file. It anchors relative images and the slug.
	Path string
	// Content is the raw file text.
	Content string
	// ModTime feeds Metadata.UpdatedAt. Zero means stat Path, then now.
	ModTime time.Time
}

// ReadSource reads the deck at path.
func ReadSource(path string) (Source, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided path
	if err != nil {
		return Source{}, fmt.Errorf("reading %s: %w", path, err)
	}
	src := Source{Path: path, Content: string(data)}
	if info, err := os.Stat(path); err == nil {
		src.ModTime = info.ModTime()
	}
	return src, nil
}

// ImageMeta describes one image reference of a deck.
type ImageMeta struct {
	Original     string `json:"original"`
	OptimizedSrc string `json:"optimizedSrc"`
	Alt          string `json:"alt,omitempty"`
	Title        string `json:"title,omitempty"`
	Kind         string `json:"kind"`
}

// Metadata is the externally visible summary of one processed deck.
type Metadata struct {
	ID          string         `json:"id"`
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	Theme       string         `json:"theme"`
	SlidesCount int            `json:"slidesCount"`
	FilePath    string         `json:"filePath"`
	UpdatedAt   string         `json:"updatedAt"`
	SourceHash  string         `json:"sourceHash"`
	Images      []ImageMeta    `json:"images"`
	Frontmatter map[string]any `json:"frontmatter"`
	Headings    []Heading      `json:"headings,omitempty"`
}

// Document is the result of processing one deck. HTML is always
// renderable: on failure it holds an error panel and Err says why.
type Document struct {
	HTML     string
	Meta     Metadata
	Raw      string
	Err      string
	Warnings []string
	// Cached is true when the renderer was skipped.
	Cached bool
	// ThemeFallback is true when the requested theme was not found.
	ThemeFallback bool
}

// Failed reports whether HTML is an error panel.
func (d *Document) Failed() bool {
	return d.Err != ""
}
