package diagram

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-marp/internal/hints"
)

// DefaultSVGTimeout bounds the rendering of one diagram.
const DefaultSVGTimeout = 30 * time.Second

// Compile-time interface check.
var _ SVGRenderer = (*RodRenderer)(nil)

// renderJS imports mermaid into a blank page and renders one diagram.
const renderJS = `async (code) => {
	const { default: mermaid } = await import("https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.esm.min.mjs");
	mermaid.initialize({ startOnLoad: false });
	const { svg } = await mermaid.render("marp-diagram-" + Date.now(), code);
	return svg;
}`

// RodRenderer renders diagrams to SVG in headless Chrome via go-rod.
// Rod downloads Chromium on first use when no browser is configured.
// The browser is started lazily and shared by all calls.
type RodRenderer struct {
	mu      sync.Mutex
	browser *rod.Browser
	timeout time.Duration
}

// NewRodRenderer creates a RodRenderer. Zero timeout means DefaultSVGTimeout.
func NewRodRenderer(timeout time.Duration) *RodRenderer {
	if timeout <= 0 {
		timeout = DefaultSVGTimeout
	}
	return &RodRenderer{timeout: timeout}
}

// ensureBrowser lazily connects to the browser. Callers hold r.mu.
func (r *RodRenderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Pre-installed browser for containers.
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v%s", ErrBrowserConnect, err, hints.ForBrowserConnect())
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("%w: %v%s", ErrBrowserConnect, err, hints.ForBrowserConnect())
	}
	r.browser = browser
	return nil
}

// RenderSVG renders one mermaid diagram and returns its SVG markup.
func (r *RodRenderer) RenderSVG(ctx context.Context, code string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureBrowser(); err != nil {
		return "", err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return "", context.DeadlineExceeded
		}
	}

	obj, err := page.Context(ctx).Timeout(timeout).Eval(renderJS, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSVGRender, err)
	}

	svg := obj.Value.Str()
	if svg == "" {
		return "", fmt.Errorf("%w: empty result", ErrSVGRender)
	}
	return svg, nil
}

// Close releases browser resources.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		err := r.browser.Close()
		r.browser = nil
		return err
	}
	return nil
}
