package marp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/alnah/go-marp/internal/frontmatter"
)

// RendererName identifies the deck renderer registered with a host.
const RendererName = "marp"

var (
	// ErrInvalidEntryURL is returned by EntryInfo for an unparsable file URL.
	ErrInvalidEntryURL = errors.New("invalid entry URL")
	// ErrNotSetUp is returned when the integration is used before Setup.
	ErrNotSetUp = errors.New("integration not set up")
)

// EntryData is what a content collection stores for one deck. Body and
// RawData hold the untouched source; image handling happens at transform
// time.
type EntryData struct {
	Data    map[string]any `json:"data"`
	Body    string         `json:"body"`
	Slug    string         `json:"slug,omitempty"`
	RawData string         `json:"rawData"`
}

// EntryInfo extracts the collection entry for the deck at fileURL.
func EntryInfo(fileURL, contents string) (EntryData, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return EntryData{}, fmt.Errorf("%w: %w", ErrInvalidEntryURL, err)
	}

	fm, _ := frontmatter.Extract(contents)
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	return EntryData{
		Data:    fm,
		Body:    contents,
		Slug:    slugFor(fm.String("slug"), path),
		RawData: contents,
	}, nil
}

// ContentEntryType registers a file extension with a host's content
// collections.
type ContentEntryType struct {
	Extensions []string
	EntryInfo  func(fileURL, contents string) (EntryData, error)
}

// Renderer registers a named renderer with a host.
type Renderer struct {
	Name string
}

// Transformer turns a module's source into a Document. It returns nil for
// ids it does not handle.
type Transformer interface {
	Transform(ctx context.Context, id, code string) *Document
}

// Host is the build tool embedding the integration.
type Host interface {
	AddRenderer(Renderer)
	AddContentEntryType(ContentEntryType)
	AddTransformer(Transformer)
	// WatchDir asks the host to rebuild when files under dir change.
	WatchDir(dir string)
	Logger() *slog.Logger
}

// Integration plugs the pipeline into a Host.
type Integration struct {
	cfg      Config
	opts     []Option
	pipeline *Pipeline
}

// NewIntegration prepares an integration. Nothing is checked until Setup.
func NewIntegration(cfg Config, opts ...Option) *Integration {
	return &Integration{cfg: cfg, opts: opts}
}

// Setup builds the pipeline and registers the renderer, the .marp entry
// type and the transformer. Configuration errors and a missing renderer
// are returned here, before any deck is processed.
func (in *Integration) Setup(host Host) error {
	logger := host.Logger()
	// Caller options come last so an explicit WithLogger still wins.
	opts := append([]Option{WithLogger(logger)}, in.opts...)

	p, err := New(in.cfg, opts...)
	if err != nil {
		return err
	}
	in.pipeline = p

	host.AddRenderer(Renderer{Name: RendererName})
	host.AddContentEntryType(ContentEntryType{
		Extensions: []string{Extension},
		EntryInfo:  EntryInfo,
	})
	host.AddTransformer(in)
	if dir := p.ThemesDir(); dir != "" {
		host.WatchDir(dir)
	}

	if in.cfg.Debug && logger != nil {
		logger.Info("marp integration ready",
			slog.String("renderer", p.Renderer()),
			slog.String("theme", p.Config().DefaultTheme))
	}
	return nil
}

// Pipeline returns the pipeline built by Setup, or nil.
func (in *Integration) Pipeline() *Pipeline {
	return in.pipeline
}

// Transform processes a .marp module. Other ids, and any call before
// Setup, return nil.
func (in *Integration) Transform(ctx context.Context, id, code string) *Document {
	if !IsMarpFile(id) || in.pipeline == nil {
		return nil
	}
	return in.pipeline.Process(ctx, Source{Path: stripQuery(id), Content: code})
}

// ThemesChanged drops cached theme lookups after the watched directory
// changed.
func (in *Integration) ThemesChanged() error {
	if in.pipeline == nil {
		return ErrNotSetUp
	}
	in.pipeline.InvalidateThemes()
	return nil
}

// Close releases pipeline resources.
func (in *Integration) Close() error {
	if in.pipeline == nil {
		return nil
	}
	return in.pipeline.Close()
}

// IsMarpFile reports whether id names a deck source. Query strings, as
// appended by bundlers, are ignored.
func IsMarpFile(id string) bool {
	return strings.HasSuffix(stripQuery(id), Extension)
}

func stripQuery(id string) string {
	if i := strings.IndexByte(id, '?'); i >= 0 {
		return id[:i]
	}
	return id
}
