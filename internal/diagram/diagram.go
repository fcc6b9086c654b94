// Package diagram prepares fenced mermaid blocks for the three supported
// delivery strategies: a client-side bootstrap script, plain <pre> blocks for
// custom client rendering, and SVG pre-rendered in headless Chrome.
package diagram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-marp/internal/mdscan"
)

// Bootstrap loads mermaid from the CDN and renders every .mermaid element.
const Bootstrap = `<script type="module">import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.esm.min.mjs"; mermaid.initialize({ startOnLoad: true });</script>`

// Strategy selects how diagrams reach the browser.
type Strategy string

// Supported strategies.
const (
	StrategyScript    Strategy = "script"
	StrategyPre       Strategy = "pre"
	StrategyInlineSVG Strategy = "inline-svg"
)

// Strategies lists every accepted strategy name.
var Strategies = []Strategy{StrategyScript, StrategyPre, StrategyInlineSVG}

// Sentinel errors for diagram operations.
var (
	ErrUnknownStrategy = errors.New("unknown mermaid strategy")
	ErrBrowserConnect  = errors.New("failed to connect to browser")
	ErrPageCreate      = errors.New("failed to create browser page")
	ErrSVGRender       = errors.New("diagram SVG rendering failed")
	ErrInvalidSVG      = errors.New("renderer returned invalid SVG")
)

// ParseStrategy validates s. Empty means StrategyScript.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return StrategyScript, nil
	}
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid: script, pre, inline-svg)", ErrUnknownStrategy, s)
}

// SVGRenderer turns mermaid source into an SVG document.
type SVGRenderer interface {
	RenderSVG(ctx context.Context, code string) (string, error)
	Close() error
}

// Prepared is the outcome of Prepare. Strategy is the one actually applied,
// which differs from the configured one after an inline-svg fallback.
type Prepared struct {
	Body     string
	Head     string
	Diagrams int
	Strategy Strategy
}

// Preparer rewrites deck bodies according to a strategy.
type Preparer struct {
	strategy Strategy
	svg      SVGRenderer
	logger   *slog.Logger
}

// Option configures a Preparer.
type Option func(*Preparer)

// WithSVGRenderer sets the renderer used by StrategyInlineSVG.
func WithSVGRenderer(r SVGRenderer) Option {
	return func(p *Preparer) {
		p.svg = r
	}
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Preparer) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPreparer creates a Preparer. StrategyInlineSVG without a renderer gets
// a RodRenderer.
func NewPreparer(strategy Strategy, opts ...Option) *Preparer {
	if strategy == "" {
		strategy = StrategyScript
	}
	p := &Preparer{
		strategy: strategy,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.strategy == StrategyInlineSVG && p.svg == nil {
		p.svg = NewRodRenderer(0)
	}
	return p
}

// Strategy returns the configured strategy.
func (p *Preparer) Strategy() Strategy {
	return p.strategy
}

// Close releases the SVG renderer, if any.
func (p *Preparer) Close() error {
	if p.svg != nil {
		return p.svg.Close()
	}
	return nil
}

// Prepare rewrites the diagram fences of body. A body without fences comes
// back unchanged with no head snippet.
func (p *Preparer) Prepare(ctx context.Context, body string) Prepared {
	src := []byte(body)
	if !mdscan.HasMermaid(src) {
		return Prepared{Body: body, Strategy: p.strategy}
	}
	fences := mdscan.Scan(src).Mermaid()

	switch p.strategy {
	case StrategyPre:
		return Prepared{
			Body:     splice(body, fences, preBlock),
			Diagrams: len(fences),
			Strategy: StrategyPre,
		}
	case StrategyInlineSVG:
		out, err := p.inlineSVG(ctx, body, fences)
		if err == nil {
			return Prepared{Body: out, Diagrams: len(fences), Strategy: StrategyInlineSVG}
		}
		p.logger.Warn("diagram pre-render failed, falling back to script", "error", err)
	}

	return Prepared{Body: body, Head: Bootstrap, Diagrams: len(fences), Strategy: StrategyScript}
}

func (p *Preparer) inlineSVG(ctx context.Context, body string, fences []mdscan.Fence) (string, error) {
	svgs := make([]string, len(fences))
	for i, f := range fences {
		svg, err := p.svg.RenderSVG(ctx, f.Code)
		if err != nil {
			return "", err
		}
		if err := checkSVG(svg); err != nil {
			return "", err
		}
		svgs[i] = svg
	}

	i := 0
	return splice(body, fences, func(mdscan.Fence) string {
		s := svgBlock(svgs[i])
		i++
		return s
	}), nil
}

// splice replaces each fence block with repl(fence). Fences are in document
// order and never overlap.
func splice(body string, fences []mdscan.Fence, repl func(mdscan.Fence) string) string {
	var sb strings.Builder
	last := 0
	for _, f := range fences {
		if f.Block.Start < last || f.Block.End > len(body) || f.Block.End <= f.Block.Start {
			continue
		}
		sb.WriteString(body[last:f.Block.Start])
		sb.WriteString(repl(f))
		last = f.Block.End
	}
	sb.WriteString(body[last:])
	return sb.String()
}

func preBlock(f mdscan.Fence) string {
	return `<pre class="mermaid">` + "\n" + html.EscapeString(f.Code) + "</pre>\n"
}

// svgBlock keeps the markup on one line so the Markdown HTML block does not
// end early at a blank line.
func svgBlock(svg string) string {
	flat := strings.Join(strings.Fields(svg), " ")
	return `<div class="mermaid-svg">` + flat + "</div>\n"
}

// checkSVG parses s and requires an <svg> element.
func checkSVG(s string) error {
	if !strings.Contains(s, "<svg") {
		return ErrInvalidSVG
	}
	nodes, err := xhtml.ParseFragment(strings.NewReader(s), &xhtml.Node{
		Type:     xhtml.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSVG, err)
	}
	for _, n := range nodes {
		if n.Type == xhtml.ElementNode && n.DataAtom == atom.Svg {
			return nil
		}
	}
	return ErrInvalidSVG
}
