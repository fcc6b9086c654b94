package marp

// Notes:
// - fakeMarp stands in for the marp executable: it splits stdin on slide
//   separators and emits one <section> per slide with the raw text inside,
//   so placeholder tokens survive into the HTML like they do with marp.
// - Every pipeline gets a temporary "marp" file through
//   WithBinaryCandidates and a temporary themes dir through
//   WithThemeCandidates; nothing depends on the host machine.
// - TestNew_BinaryNotFound replaces PATH and does not run in parallel.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-marp/internal/diagram"
	"github.com/alnah/go-marp/internal/fileutil"
	"github.com/alnah/go-marp/internal/frontmatter"
	"github.com/alnah/go-marp/internal/images"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

var fakeSeparator = regexp.MustCompile(`(?m)^---[ \t]*$`)

type fakeMarp struct {
	mu     sync.Mutex
	calls  int
	args   [][]string
	stdin  []string
	result *RunResult
	err    error
	panics bool
}

func (f *fakeMarp) Run(_ context.Context, _ string, args []string, stdin io.Reader) (RunResult, error) {
	data, _ := io.ReadAll(stdin)

	f.mu.Lock()
	f.calls++
	f.args = append(f.args, args)
	f.stdin = append(f.stdin, string(data))
	f.mu.Unlock()

	if f.panics {
		panic("renderer exploded")
	}
	if f.err != nil {
		return RunResult{}, f.err
	}
	if f.result != nil {
		return *f.result, nil
	}

	_, body := frontmatter.Extract(string(data))
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html><html><head><title>deck</title></head><body><div class=\"marpit\">")
	for _, slide := range fakeSeparator.Split(body, -1) {
		sb.WriteString("<section>" + strings.TrimSpace(slide) + "</section>")
	}
	sb.WriteString("</div></body></html>")
	return RunResult{Stdout: []byte(sb.String())}, nil
}

func (f *fakeMarp) lastArgs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.args) == 0 {
		return nil
	}
	return f.args[len(f.args)-1]
}

func (f *fakeMarp) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
}

func (c *fakeCache) Get(_ context.Context, key string) (CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok, nil
}

func (c *fakeCache) Put(_ context.Context, e CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string]CacheEntry{}
	}
	c.entries[e.Hash] = e
	return nil
}

type fixture struct {
	dir     string
	themes  string
	bin     string
	runner  *fakeMarp
	options []Option
}

// newFixture creates a project dir with am_blue and am_red themes and a
// fake marp executable.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	themes := filepath.Join(dir, "themes")
	if err := os.MkdirAll(themes, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"am_blue.scss", "am_red.scss"} {
		writeFile(t, filepath.Join(themes, name), "/* @theme x */")
	}
	bin := filepath.Join(dir, "marp")
	writeFile(t, bin, "#!/bin/sh\n")

	f := &fixture{dir: dir, themes: themes, bin: bin, runner: &fakeMarp{}}
	f.options = []Option{
		WithRunner(f.runner),
		WithBinaryCandidates(bin),
		WithThemeCandidates(themes),
	}
	return f
}

func (f *fixture) pipeline(t *testing.T, cfg Config, extra ...Option) *Pipeline {
	t.Helper()
	p, err := New(cfg, append(append([]Option{}, f.options...), extra...)...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ---------------------------------------------------------------------------
// End-to-end scenarios
// ---------------------------------------------------------------------------

func TestProcess_TitleAndSlides(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.pipeline(t, DefaultConfig())

	doc := p.Process(context.Background(), Source{
		Path:    filepath.Join(f.dir, "intro.marp"),
		Content: "# Title\n\n---\n\nSlide 2",
	})

	if doc.Failed() {
		t.Fatalf("unexpected failure: %s", doc.Err)
	}
	if doc.Meta.Title != "Title" {
		t.Errorf("Title = %q, want %q", doc.Meta.Title, "Title")
	}
	if doc.Meta.SlidesCount != 2 {
		t.Errorf("SlidesCount = %d, want 2", doc.Meta.SlidesCount)
	}
	if len(doc.Meta.Frontmatter) != 0 {
		t.Errorf("Frontmatter = %v, want empty", doc.Meta.Frontmatter)
	}
}

func TestProcess_ThemeAndLocalImage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pic := filepath.Join(f.dir, "pic.png")
	writeFile(t, pic, "png")
	p := f.pipeline(t, DefaultConfig())

	doc := p.Process(context.Background(), Source{
		Path:    filepath.Join(f.dir, "deck.marp"),
		Content: "---\ntheme: am_red\n---\n# Deck\n\n![x](./pic.png)\n",
	})

	if doc.Failed() {
		t.Fatalf("unexpected failure: %s", doc.Err)
	}

	args := strings.Join(f.runner.lastArgs(), " ")
	if !strings.Contains(args, "--theme "+filepath.Join(f.themes, "am_red.scss")) {
		t.Errorf("args = %q, want am_red.scss theme", args)
	}

	want := fileutil.PathToFileURL(pic)
	if !strings.Contains(doc.HTML, want) {
		t.Errorf("HTML missing asset URL %q:\n%s", want, doc.HTML)
	}
	if strings.Contains(doc.HTML, "__MARP_IMAGE_") {
		t.Error("HTML still contains a placeholder token")
	}
	if doc.Meta.Theme != "am_red" {
		t.Errorf("Meta.Theme = %q, want am_red", doc.Meta.Theme)
	}
	if len(doc.Meta.Images) != 1 || doc.Meta.Images[0].OptimizedSrc != want || doc.Meta.Images[0].Kind != "local" {
		t.Errorf("Meta.Images = %+v", doc.Meta.Images)
	}
}

func TestProcess_MissingImage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.pipeline(t, DefaultConfig())

	body := "# Deck\n\n![gone](./missing.png)\n"
	doc := p.Process(context.Background(), Source{Path: filepath.Join(f.dir, "deck.marp"), Content: body})

	if doc.Failed() {
		t.Fatalf("unexpected failure: %s", doc.Err)
	}
	if len(doc.Warnings) != 1 || !strings.Contains(doc.Warnings[0], "missing.png") {
		t.Errorf("Warnings = %v, want one naming missing.png", doc.Warnings)
	}
	if got := f.runner.stdin[0]; got != body {
		t.Errorf("renderer input = %q, want unchanged %q", got, body)
	}
	if !strings.Contains(doc.HTML, "![gone](./missing.png)") {
		t.Errorf("HTML lost the original markup:\n%s", doc.HTML)
	}
}

func TestNew_BinaryNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := New(DefaultConfig(), WithBinaryCandidates(filepath.Join(t.TempDir(), "nope", "marp")))

	if !errors.Is(err, ErrBinaryNotFound) {
		t.Fatalf("error = %v, want ErrBinaryNotFound", err)
	}
	if !strings.Contains(err.Error(), "marp") {
		t.Errorf("error %q does not name the marp binary", err)
	}
}

// ---------------------------------------------------------------------------
// TestNew - Setup
// ---------------------------------------------------------------------------

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"maxSlides zero", func(c *Config) { c.MaxSlides = 0 }},
		{"maxSlides too large", func(c *Config) { c.MaxSlides = MaxSlidesLimit + 1 }},
		{"empty default theme", func(c *Config) { c.DefaultTheme = "" }},
		{"unknown strategy", func(c *Config) { c.MermaidStrategy = "canvas" }},
		{"empty cli arg", func(c *Config) { c.MarpCLIArgs = []string{""} }},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			_, err := New(cfg, f.options...)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
			if f.runner.callCount() != 0 {
				t.Error("renderer ran before configuration was validated")
			}
		})
	}
}

func TestNew_DefaultThemeFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		hasThemes bool
		want      string
	}{
		{"falls back to am_blue", true, DefaultThemeName},
		{"falls back to builtin default without themes", false, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			if !tt.hasThemes {
				f.options[2] = WithThemeCandidates(filepath.Join(f.dir, "none"))
			}
			cfg := DefaultConfig()
			cfg.DefaultTheme = "no_such_theme"

			p := f.pipeline(t, cfg)
			if got := p.Config().DefaultTheme; got != tt.want {
				t.Errorf("DefaultTheme = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_Accessors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.runner.result = &RunResult{Stdout: []byte("@marp-team/marp-cli v4.1.2\n")}
	p := f.pipeline(t, DefaultConfig())

	if p.Renderer() != f.bin {
		t.Errorf("Renderer() = %q, want %q", p.Renderer(), f.bin)
	}
	if p.ThemesDir() != f.themes {
		t.Errorf("ThemesDir() = %q, want %q", p.ThemesDir(), f.themes)
	}
	if got := strings.Join(p.Themes(), ","); got != "am_blue,am_red" {
		t.Errorf("Themes() = %q", got)
	}
	v, err := p.Version(context.Background())
	if err != nil || v != "@marp-team/marp-cli v4.1.2" {
		t.Errorf("Version() = %q, %v", v, err)
	}
}

// ---------------------------------------------------------------------------
// TestProcess - Metadata
// ---------------------------------------------------------------------------

func TestProcess_Metadata(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.pipeline(t, DefaultConfig())
	mod := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	doc := p.Process(context.Background(), Source{
		Path:    filepath.Join(f.dir, "My Talk.marp"),
		Content: "---\ntitle: \"Hello\"\npaginate: true\n---\n# Heading One\n\n## Sub\n",
		ModTime: mod,
	})

	m := doc.Meta
	if m.Slug != "my-talk" || m.ID != m.Slug {
		t.Errorf("Slug/ID = %q/%q, want my-talk", m.Slug, m.ID)
	}
	if m.Title != "Hello" {
		t.Errorf("Title = %q, want Hello", m.Title)
	}
	if m.Theme != DefaultThemeName {
		t.Errorf("Theme = %q, want %q", m.Theme, DefaultThemeName)
	}
	if m.UpdatedAt != "2025-03-04T05:06:07Z" {
		t.Errorf("UpdatedAt = %q", m.UpdatedAt)
	}
	if len(m.SourceHash) != 8 {
		t.Errorf("SourceHash = %q, want 8 hex chars", m.SourceHash)
	}
	if m.Frontmatter["paginate"] != true {
		t.Errorf("Frontmatter = %v", m.Frontmatter)
	}
	if len(m.Headings) != 2 || m.Headings[0].Text != "Heading One" || m.Headings[1].Level != 2 {
		t.Errorf("Headings = %+v", m.Headings)
	}
	if m.Images == nil {
		t.Error("Images is nil, want empty slice")
	}
	if doc.Raw == "" {
		t.Error("Raw is empty")
	}
}

func TestProcess_FrontmatterSlug(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.pipeline(t, DefaultConfig())

	doc := p.Process(context.Background(), Source{
		Path:    filepath.Join(f.dir, "deck.marp"),
		Content: "---\nslug: custom-slug\n---\n# A\n",
	})
	if doc.Meta.Slug != "custom-slug" {
		t.Errorf("Slug = %q, want custom-slug", doc.Meta.Slug)
	}
}

func TestProcess_HeaderReachesRenderer(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.pipeline(t, DefaultConfig())

	content := "---\nheadingDivider: 2\n---\n# A\n"
	p.Process(context.Background(), Source{Path: filepath.Join(f.dir, "deck.marp"), Content: content})

	if got := f.runner.stdin[0]; got != content {
		t.Errorf("renderer input = %q, want %q", got, content)
	}
}

func TestProcess_UnknownThemeFallsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.pipeline(t, DefaultConfig())

	doc := p.Process(context.Background(), Source{
		Path:    filepath.Join(f.dir, "deck.marp"),
		Content: "---\ntheme: neon\n---\n# A\n",
	})

	if !doc.ThemeFallback {
		t.Error("ThemeFallback = false, want true")
	}
	if args := strings.Join(f.runner.lastArgs(), " "); !strings.Contains(args, "--theme default") {
		t.Errorf("args = %q, want fallback theme", args)
	}
}

// ---------------------------------------------------------------------------
// TestProcess - Failures
// ---------------------------------------------------------------------------

func TestProcess_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		runner  func(*fakeMarp)
		wantErr string
		wantIn  string
	}{
		{
			name: "non-zero exit",
			runner: func(f *fakeMarp) {
				f.result = &RunResult{ExitCode: 2, Stderr: []byte("bad theme")}
			},
			wantErr: "bad theme",
			wantIn:  "Exit code: 2",
		},
		{
			name:    "spawn error",
			runner:  func(f *fakeMarp) { f.err = errors.New("exec format error") },
			wantErr: "exec format error",
			wantIn:  "Marp CLI Process Error",
		},
		{
			name:    "panic",
			runner:  func(f *fakeMarp) { f.panics = true },
			wantErr: ErrInternal.Error(),
			wantIn:  "renderer exploded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			tt.runner(f.runner)
			p := f.pipeline(t, DefaultConfig())

			doc := p.Process(context.Background(), Source{Path: filepath.Join(f.dir, "deck.marp"), Content: "# A\n"})

			if !doc.Failed() {
				t.Fatal("Failed() = false, want true")
			}
			if !strings.Contains(doc.Err, tt.wantErr) {
				t.Errorf("Err = %q, want it to contain %q", doc.Err, tt.wantErr)
			}
			if !strings.Contains(doc.HTML, `class="marp-error"`) || !strings.Contains(doc.HTML, tt.wantIn) {
				t.Errorf("HTML = %q, want error panel with %q", doc.HTML, tt.wantIn)
			}
			if doc.Meta.SlidesCount != 1 {
				t.Errorf("SlidesCount = %d, want 1", doc.Meta.SlidesCount)
			}
		})
	}
}

func TestProcess_TooManySlides(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.MaxSlides = 2
	p := f.pipeline(t, cfg)

	doc := p.Process(context.Background(), Source{
		Path:    filepath.Join(f.dir, "deck.marp"),
		Content: "# A\n---\nB\n---\nC\n",
	})

	if !doc.Failed() || !strings.Contains(doc.Err, ErrTooManySlides.Error()) {
		t.Errorf("Err = %q, want too many slides", doc.Err)
	}
	if f.runner.callCount() != 0 {
		t.Error("renderer ran for an oversized deck")
	}
}

func TestProcess_SeparatorsInCodeDoNotCount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.MaxSlides = 1
	p := f.pipeline(t, cfg)

	doc := p.Process(context.Background(), Source{
		Path:    filepath.Join(f.dir, "deck.marp"),
		Content: "# One slide\n\n```yaml\n---\na: 1\n---\nb: 2\n```\n",
	})

	if doc.Failed() {
		t.Fatalf("unexpected failure: %s", doc.Err)
	}
	if f.runner.callCount() != 1 {
		t.Errorf("renderer calls = %d, want 1", f.runner.callCount())
	}
}

func TestProcess_TitleSkipsCodeComments(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	p := f.pipeline(t, DefaultConfig())

	doc := p.Process(context.Background(), Source{
		Path:    filepath.Join(f.dir, "deck.marp"),
		Content: "```bash\n# install deps\nnpm i\n```\n\n# Real Title\n",
	})

	if doc.Meta.Title != "Real Title" {
		t.Errorf("Title = %q, want %q", doc.Meta.Title, "Real Title")
	}
	if len(doc.Meta.Headings) != 1 || doc.Meta.Headings[0].Text != doc.Meta.Title {
		t.Errorf("Headings = %+v, want one matching the title", doc.Meta.Headings)
	}
}

func TestProcess_CopiedImageURLIsEscaped(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	writeFile(t, filepath.Join(f.dir, "a#b.png"), "png")
	p := f.pipeline(t, DefaultConfig(),
		WithEmitter(&images.CopyEmitter{Dir: filepath.Join(f.dir, "dist", "_assets"), URLPrefix: "_assets"}))

	doc := p.Process(context.Background(), Source{
		Path:    filepath.Join(f.dir, "deck.marp"),
		Content: "# Deck\n\n![x](./a%23b.png)\n",
	})

	if doc.Failed() {
		t.Fatalf("unexpected failure: %s", doc.Err)
	}
	if len(doc.Meta.Images) != 1 {
		t.Fatalf("Meta.Images = %+v, want one", doc.Meta.Images)
	}
	src := doc.Meta.Images[0].OptimizedSrc
	if !strings.HasPrefix(src, "_assets/a%23b.") {
		t.Errorf("OptimizedSrc = %q, want escaped _assets/a%%23b.*", src)
	}
	if !strings.Contains(doc.HTML, src) || strings.Contains(doc.HTML, "_assets/a#b") {
		t.Errorf("HTML does not carry the escaped URL:\n%s", doc.HTML)
	}
}

// ---------------------------------------------------------------------------
// TestProcess - Diagrams
// ---------------------------------------------------------------------------

func TestProcess_Mermaid(t *testing.T) {
	t.Parallel()

	deck := "# Flow\n\n```mermaid\ngraph TD; A-->B\n```\n"

	tests := []struct {
		name       string
		mutate     func(*Config)
		wantScript bool
		wantInput  string
	}{
		{
			name:       "script strategy injects bootstrap",
			mutate:     func(*Config) {},
			wantScript: true,
			wantInput:  "```mermaid",
		},
		{
			name:      "pre strategy rewrites fences",
			mutate:    func(c *Config) { c.MermaidStrategy = MermaidPre },
			wantInput: `<pre class="mermaid">`,
		},
		{
			name:      "disabled leaves deck alone",
			mutate:    func(c *Config) { c.EnableMermaid = false },
			wantInput: "```mermaid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			p := f.pipeline(t, cfg)

			doc := p.Process(context.Background(), Source{Path: filepath.Join(f.dir, "deck.marp"), Content: deck})

			if got := strings.Contains(doc.HTML, diagram.Bootstrap); got != tt.wantScript {
				t.Errorf("bootstrap present = %v, want %v", got, tt.wantScript)
			}
			if !strings.Contains(f.runner.stdin[0], tt.wantInput) {
				t.Errorf("renderer input = %q, want it to contain %q", f.runner.stdin[0], tt.wantInput)
			}
		})
	}
}

type fakeSVG struct{}

func (fakeSVG) RenderSVG(context.Context, string) (string, error) {
	return `<svg xmlns="http://www.w3.org/2000/svg"><g></g></svg>`, nil
}

func (fakeSVG) Close() error { return nil }

func TestProcess_MermaidInlineSVG(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.MermaidStrategy = MermaidInlineSVG
	p := f.pipeline(t, cfg, WithSVGRenderer(fakeSVG{}))

	doc := p.Process(context.Background(), Source{
		Path:    filepath.Join(f.dir, "deck.marp"),
		Content: "```mermaid\ngraph TD; A-->B\n```\n",
	})

	if !strings.Contains(doc.HTML, `<div class="mermaid-svg">`) {
		t.Errorf("HTML = %q, want inline svg", doc.HTML)
	}
	if strings.Contains(doc.HTML, diagram.Bootstrap) {
		t.Error("bootstrap injected despite pre-rendered diagrams")
	}
}

// ---------------------------------------------------------------------------
// TestProcess - Cache
// ---------------------------------------------------------------------------

func TestProcess_Cache(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := &fakeCache{}
	p := f.pipeline(t, DefaultConfig(), WithCache(c))
	src := Source{Path: filepath.Join(f.dir, "deck.marp"), Content: "# A\n---\nB\n"}

	first := p.Process(context.Background(), src)
	second := p.Process(context.Background(), src)

	if f.runner.callCount() != 1 {
		t.Errorf("renderer calls = %d, want 1", f.runner.callCount())
	}
	if first.Cached || !second.Cached {
		t.Errorf("Cached = %v/%v, want false/true", first.Cached, second.Cached)
	}
	if first.HTML != second.HTML || second.Meta.SlidesCount != 2 {
		t.Errorf("cached document differs: slides=%d", second.Meta.SlidesCount)
	}

	changed := src
	changed.Content += "---\nC\n"
	p.Process(context.Background(), changed)
	if f.runner.callCount() != 2 {
		t.Errorf("renderer calls = %d, want 2 after edit", f.runner.callCount())
	}
}

func TestProcess_CacheSkipsFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.runner.result = &RunResult{ExitCode: 1}
	c := &fakeCache{}
	p := f.pipeline(t, DefaultConfig(), WithCache(c))

	p.Process(context.Background(), Source{Path: filepath.Join(f.dir, "deck.marp"), Content: "# A\n"})

	if len(c.entries) != 0 {
		t.Errorf("cache holds %d entries, want 0", len(c.entries))
	}
}

// ---------------------------------------------------------------------------
// TestProcessAll
// ---------------------------------------------------------------------------

func TestProcessAll_KeepsOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.Workers = 3
	p := f.pipeline(t, cfg)

	var srcs []Source
	for i := range 10 {
		srcs = append(srcs, Source{
			Path:    filepath.Join(f.dir, fmt.Sprintf("deck-%02d.marp", i)),
			Content: fmt.Sprintf("# Deck %d\n", i),
		})
	}

	docs := p.ProcessAll(context.Background(), srcs)

	if len(docs) != len(srcs) {
		t.Fatalf("got %d documents, want %d", len(docs), len(srcs))
	}
	for i, doc := range docs {
		if want := fmt.Sprintf("Deck %d", i); doc.Meta.Title != want {
			t.Errorf("docs[%d].Title = %q, want %q", i, doc.Meta.Title, want)
		}
	}
	if f.runner.callCount() != len(srcs) {
		t.Errorf("renderer calls = %d, want %d", f.runner.callCount(), len(srcs))
	}
}

// ---------------------------------------------------------------------------
// TestReadSource
// ---------------------------------------------------------------------------

func TestReadSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.marp")
	writeFile(t, path, "# A\n")

	src, err := ReadSource(path)
	if err != nil {
		t.Fatal(err)
	}
	if src.Content != "# A\n" || src.Path != path || src.ModTime.IsZero() {
		t.Errorf("ReadSource() = %+v", src)
	}

	if _, err := ReadSource(filepath.Join(dir, "missing.marp")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}
