// Package render drives the external Marp CLI.
//
// The Invoker pipes a deck body into the renderer, captures the HTML it
// writes to stdout and post-processes it. Render never returns an error:
// every failure becomes an inline error fragment so one broken deck cannot
// stop a build.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-marp/internal/hints"
)

// DefaultTimeout bounds a single renderer invocation.
const DefaultTimeout = 60 * time.Second

// Sentinel errors for renderer operations.
var (
	ErrBinaryNotFound = errors.New("marp CLI binary not found")
	ErrSpawn          = errors.New("failed to start marp CLI")
	ErrTimeout        = errors.New("marp CLI timed out")
)

// Result is the outcome of one render. Err is empty on success.
type Result struct {
	HTML       string
	SlideCount int
	Err        string
	ExitCode   int
	Duration   time.Duration
}

// Failed reports whether the render produced an error fragment.
func (r Result) Failed() bool {
	return r.Err != ""
}

// Request describes one render.
type Request struct {
	Body  string
	Theme string
	// Head is inserted before </head> on success. Empty means nothing.
	Head string
}

// Invoker renders decks with the Marp CLI. Safe for concurrent use: each
// call spawns its own process.
type Invoker struct {
	bin     string
	args    []string
	timeout time.Duration
	runner  Runner
	logger  *slog.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithArgs appends extra CLI arguments after the required ones.
func WithArgs(args ...string) Option {
	return func(i *Invoker) {
		i.args = append([]string{}, args...)
	}
}

// WithTimeout sets the per-invocation watchdog. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		i.timeout = d
	}
}

// WithRunner replaces the subprocess runner.
func WithRunner(r Runner) Option {
	return func(i *Invoker) {
		if r != nil {
			i.runner = r
		}
	}
}

// WithLogger sets the logger used for render failures.
func WithLogger(l *slog.Logger) Option {
	return func(i *Invoker) {
		if l != nil {
			i.logger = l
		}
	}
}

// NewInvoker creates an Invoker for the executable at bin.
func NewInvoker(bin string, opts ...Option) *Invoker {
	i := &Invoker{
		bin:     bin,
		timeout: DefaultTimeout,
		runner:  &ExecRunner{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Binary returns the renderer executable path.
func (i *Invoker) Binary() string {
	return i.bin
}

// Args returns the full argument list for theme.
func (i *Invoker) Args(theme string) []string {
	args := []string{"--stdin", "--html", "-o", "-"}
	if theme != "" {
		args = append(args, "--theme", theme)
	}
	return append(args, i.args...)
}

// Render runs the renderer on req.Body.
func (i *Invoker) Render(ctx context.Context, req Request) Result {
	start := time.Now()
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	out, err := i.runner.Run(ctx, i.bin, i.Args(req.Theme), strings.NewReader(req.Body))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s%s", ErrTimeout, i.timeout, hints.ForTimeout())
		}
		i.logger.Error("marp CLI failed to run", "theme", req.Theme, "error", err)
		res := failure("Marp CLI Process Error", err.Error(), "", err.Error())
		res.Duration = time.Since(start)
		return res
	}

	if out.ExitCode != 0 {
		stderr := strings.TrimSpace(string(out.Stderr))
		i.logger.Error("marp CLI exited with error",
			"theme", req.Theme, "exit_code", out.ExitCode, "stderr", stderr)
		res := failure("Marp CLI Error", "Exit code: "+strconv.Itoa(out.ExitCode), stderr, stderr)
		if res.Err == "" {
			res.Err = "exit code " + strconv.Itoa(out.ExitCode)
		}
		res.ExitCode = out.ExitCode
		res.Duration = time.Since(start)
		return res
	}

	html := string(out.Stdout)
	res := Result{
		HTML:       html,
		SlideCount: CountSlides(html),
		Duration:   time.Since(start),
	}
	if req.Head != "" {
		res.HTML = InjectHead(res.HTML, req.Head)
	}
	i.logger.Debug("deck rendered", "theme", req.Theme, "slides", res.SlideCount, "duration", res.Duration)
	return res
}

// Version runs "<bin> --version" and returns its trimmed output.
func (i *Invoker) Version(ctx context.Context) (string, error) {
	out, err := i.runner.Run(ctx, i.bin, []string{"--version"}, strings.NewReader(""))
	if err != nil {
		return "", err
	}
	if out.ExitCode != 0 {
		return "", fmt.Errorf("%s --version: exit code %d", i.bin, out.ExitCode)
	}
	return strings.TrimSpace(string(out.Stdout)), nil
}

func failure(heading, message, detail, errText string) Result {
	return Result{
		HTML:       ErrorFragment(heading, message, detail),
		SlideCount: 1,
		Err:        errText,
	}
}
