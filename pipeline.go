package marp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-marp/internal/diagram"
	"github.com/alnah/go-marp/internal/frontmatter"
	"github.com/alnah/go-marp/internal/images"
	"github.com/alnah/go-marp/internal/mdscan"
	"github.com/alnah/go-marp/internal/render"
	"github.com/alnah/go-marp/internal/theme"
)

// Pipeline turns deck sources into HTML and metadata. Create with New; a
// Pipeline is safe for concurrent use.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	// Set by options, consumed by New.
	runner          Runner
	emitter         AssetEmitter
	svg             SVGRenderer
	binCandidates   []string
	themeCandidates []string

	cache    Cache
	resolver *theme.Resolver
	rewriter *images.Rewriter
	invoker  *render.Invoker
	diagrams *diagram.Preparer
}

// New validates cfg, locates the marp executable and wires the stages.
// It fails with ErrInvalidConfig or ErrBinaryNotFound; nothing else is
// fatal.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	candidates := p.binCandidates
	if candidates == nil {
		candidates = render.DefaultCandidates()
	}
	bin, err := render.FindBinary(cfg.RendererBin, candidates)
	if err != nil {
		return nil, err
	}

	themeOpts := []theme.Option{theme.WithLogger(p.logger)}
	switch {
	case cfg.ThemesDir != "":
		themeOpts = append(themeOpts, theme.WithCandidates(cfg.ThemesDir))
	case p.themeCandidates != nil:
		themeOpts = append(themeOpts, theme.WithCandidates(p.themeCandidates...))
	}
	p.resolver = theme.New(themeOpts...)

	imageOpts := []images.Option{images.WithLogger(p.logger)}
	if cfg.ProjectRoot != "" {
		imageOpts = append(imageOpts, images.WithRoot(cfg.ProjectRoot))
	}
	if p.emitter != nil {
		imageOpts = append(imageOpts, images.WithEmitter(p.emitter))
	}
	p.rewriter = images.NewRewriter(imageOpts...)

	invokerOpts := []render.Option{
		render.WithLogger(p.logger),
		render.WithTimeout(cfg.Timeout),
		render.WithArgs(cfg.MarpCLIArgs...),
	}
	if p.runner != nil {
		invokerOpts = append(invokerOpts, render.WithRunner(p.runner))
	}
	p.invoker = render.NewInvoker(bin, invokerOpts...)

	if cfg.EnableMermaid {
		diagramOpts := []diagram.Option{diagram.WithLogger(p.logger)}
		if p.svg != nil {
			diagramOpts = append(diagramOpts, diagram.WithSVGRenderer(p.svg))
		}
		p.diagrams = diagram.NewPreparer(cfg.strategy(), diagramOpts...)
	}

	p.checkDefaultTheme()

	p.logger.Debug("pipeline ready",
		slog.String("renderer", bin),
		slog.String("themes", p.resolver.Dir()),
		slog.String("default_theme", p.cfg.DefaultTheme))
	return p, nil
}

// checkDefaultTheme swaps an unusable default theme for a usable one.
func (p *Pipeline) checkDefaultTheme() {
	if p.resolver.Validate(p.cfg.DefaultTheme) {
		return
	}
	replacement := theme.FallbackTheme
	if p.resolver.Validate(DefaultThemeName) {
		replacement = DefaultThemeName
	}
	p.logger.Warn("default theme not found",
		slog.String("theme", p.cfg.DefaultTheme),
		slog.String("using", replacement),
		slog.Any("available", p.resolver.Available()))
	p.cfg.DefaultTheme = replacement
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Renderer returns the marp executable in use.
func (p *Pipeline) Renderer() string {
	return p.invoker.Binary()
}

// Themes returns the discovered theme names.
func (p *Pipeline) Themes() []string {
	return p.resolver.Available()
}

// ThemesDir returns the discovered themes directory, or "".
func (p *Pipeline) ThemesDir() string {
	return p.resolver.Dir()
}

// InvalidateThemes forgets discovered themes and cached resolutions.
func (p *Pipeline) InvalidateThemes() {
	p.resolver.Invalidate()
}

// Version asks the renderer for its version.
func (p *Pipeline) Version(ctx context.Context) (string, error) {
	return p.invoker.Version(ctx)
}

// Close releases the diagram browser, if one was started.
func (p *Pipeline) Close() error {
	if p.diagrams != nil {
		return p.diagrams.Close()
	}
	return nil
}

// Process runs one deck through every stage. It never fails: problems end
// up in Document.Err with an error panel as HTML.
func (p *Pipeline) Process(ctx context.Context, src Source) (doc *Document) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("%v: %v", ErrInternal, r)
			p.logger.Error("deck processing panicked", slog.String("path", src.Path), slog.String("error", msg))
			doc = p.failure(src, "Marp Processing Error", msg)
		}
	}()

	fm, body := frontmatter.Extract(src.Content)
	header := strings.TrimSuffix(src.Content, body)
	scan := mdscan.Scan([]byte(body))

	requested := fm.String("theme")
	if requested == "" {
		requested = p.cfg.DefaultTheme
	}

	doc = &Document{
		Raw: src.Content,
		Meta: Metadata{
			Slug:        slugFor(fm.String("slug"), src.Path),
			Title:       frontmatter.Title(fm, body, scan.InCode),
			Theme:       requested,
			FilePath:    src.Path,
			UpdatedAt:   p.updatedAt(src).UTC().Format(time.RFC3339),
			SourceHash:  SourceHash(body, requested, p.cfg),
			Images:      []ImageMeta{},
			Frontmatter: fm,
			Headings:    scan.Headings,
		},
	}
	doc.Meta.ID = doc.Meta.Slug

	if n := frontmatter.CountSlides(body, scan.InCode); n > p.cfg.MaxSlides {
		msg := fmt.Sprintf("%v: %d slides (max %d)", ErrTooManySlides, n, p.cfg.MaxSlides)
		p.logger.Warn("deck too large", slog.String("path", src.Path), slog.Int("slides", n))
		doc.HTML = render.ErrorFragment("Too Many Slides", msg, "")
		doc.Err = msg
		doc.Meta.SlidesCount = 1
		return doc
	}

	rw := p.rewriter.Rewrite(body, src.Path)
	doc.Warnings = rw.Warnings
	doc.Meta.Images = imageMeta(rw.Refs)

	res := p.resolver.Resolve(requested)
	doc.ThemeFallback = res.UsedFallback

	prepared := diagram.Prepared{Body: rw.Body}
	if p.diagrams != nil {
		prepared = p.diagrams.Prepare(ctx, rw.Body)
	}

	// Directives in the header reach the renderer; only the body changed.
	input := header + prepared.Body
	result, cached := p.render(ctx, render.Request{Body: input, Theme: res.Resolved, Head: prepared.Head})

	doc.HTML = images.Substitute(result.HTML, rw.Refs)
	doc.Meta.SlidesCount = result.SlideCount
	doc.Err = result.Err
	doc.Cached = cached

	level := slog.LevelDebug
	if p.cfg.Debug {
		level = slog.LevelInfo
	}
	p.logger.Log(ctx, level, "deck processed",
		slog.String("path", src.Path),
		slog.String("slug", doc.Meta.Slug),
		slog.String("theme", res.Resolved),
		slog.Int("slides", doc.Meta.SlidesCount),
		slog.Int("images", len(rw.Refs)),
		slog.Int("diagrams", prepared.Diagrams),
		slog.Bool("cached", cached),
		slog.Bool("failed", doc.Failed()),
		slog.Duration("duration", time.Since(start)))
	return doc
}

// render consults the cache around the invoker. Failed renders are never
// stored.
func (p *Pipeline) render(ctx context.Context, req render.Request) (render.Result, bool) {
	if p.cache == nil {
		return p.invoker.Render(ctx, req), false
	}

	key := renderKey(req.Body, req.Theme, req.Head, p.cfg.MarpCLIArgs)
	if e, ok, err := p.cache.Get(ctx, key); err != nil {
		p.logger.Warn("cache read failed", slog.String("error", err.Error()))
	} else if ok {
		return render.Result{HTML: e.HTML, SlideCount: e.Slides}, true
	}

	result := p.invoker.Render(ctx, req)
	if !result.Failed() {
		if err := p.cache.Put(ctx, CacheEntry{Hash: key, HTML: result.HTML, Slides: result.SlideCount}); err != nil {
			p.logger.Warn("cache write failed", slog.String("error", err.Error()))
		}
	}
	return result, false
}

// ProcessAll processes srcs concurrently, at most ResolveConcurrency
// renders at a time. Results keep the order of srcs.
func (p *Pipeline) ProcessAll(ctx context.Context, srcs []Source) []*Document {
	docs := make([]*Document, len(srcs))

	var g errgroup.Group
	g.SetLimit(ResolveConcurrency(p.cfg.Workers))
	for i, src := range srcs {
		g.Go(func() error {
			docs[i] = p.Process(ctx, src)
			return nil
		})
	}
	_ = g.Wait()
	return docs
}

// failure builds the catch-all error document.
func (p *Pipeline) failure(src Source, heading, msg string) *Document {
	slug := slugFor("", src.Path)
	return &Document{
		HTML: render.ErrorFragment(heading, msg, ""),
		Raw:  src.Content,
		Err:  msg,
		Meta: Metadata{
			ID:          slug,
			Slug:        slug,
			Title:       frontmatter.DefaultTitle,
			Theme:       p.cfg.DefaultTheme,
			SlidesCount: 1,
			FilePath:    src.Path,
			UpdatedAt:   p.now().UTC().Format(time.RFC3339),
			Images:      []ImageMeta{},
			Frontmatter: map[string]any{},
		},
	}
}

func (p *Pipeline) updatedAt(src Source) time.Time {
	if !src.ModTime.IsZero() {
		return src.ModTime
	}
	if src.Path != "" {
		if info, err := os.Stat(src.Path); err == nil {
			return info.ModTime()
		}
	}
	return p.now()
}

func imageMeta(refs []images.Reference) []ImageMeta {
	out := make([]ImageMeta, 0, len(refs))
	for _, r := range refs {
		src := r.URL
		if src == "" {
			src = r.Target
		}
		out = append(out, ImageMeta{
			Original:     r.Target,
			OptimizedSrc: src,
			Alt:          r.Alt,
			Title:        r.Title,
			Kind:         r.Kind.String(),
		})
	}
	return out
}
