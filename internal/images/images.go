// Package images rewrites Markdown image references before rendering.
//
// Local images are swapped for placeholder tokens so the renderer never sees
// filesystem paths; after rendering, Substitute maps every token to the URL
// produced by an AssetEmitter. Remote images are recorded but left alone and
// missing files keep their original markup.
package images

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/alnah/go-marp/internal/fileutil"
	"github.com/alnah/go-marp/internal/hints"
	"github.com/alnah/go-marp/internal/mdscan"
)

// Kind classifies an image reference.
type Kind int

const (
	KindRemote Kind = iota
	KindLocal
	KindMissing
)

func (k Kind) String() string {
	switch k {
	case KindRemote:
		return "remote"
	case KindLocal:
		return "local"
	case KindMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name in JSON metadata.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// placeholderPrefix starts every token. Tokens end with "__" so that token 1
// is never a prefix of token 10.
const placeholderPrefix = "__MARP_IMAGE_"

// imagePattern matches ![alt](target "title").
var imagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)(?:\s+"([^"]*)")?\)`)

// Reference is one image found in a document body.
type Reference struct {
	Original    string `json:"original"`
	Alt         string `json:"alt"`
	Target      string `json:"target"`
	Title       string `json:"title,omitempty"`
	Kind        Kind   `json:"kind"`
	Resolved    string `json:"resolved,omitempty"`
	URL         string `json:"url"`
	Placeholder string `json:"-"`
}

// Result is the outcome of rewriting one body.
type Result struct {
	Body     string
	Refs     []Reference
	Warnings []string
}

// Placeholders returns the references that were replaced by tokens.
func (r *Result) Placeholders() []Reference {
	var out []Reference
	for _, ref := range r.Refs {
		if ref.Placeholder != "" {
			out = append(out, ref)
		}
	}
	return out
}

// Rewriter resolves and replaces image references. Safe for concurrent use
// when the emitter is.
type Rewriter struct {
	root    string
	emitter AssetEmitter
	logger  *slog.Logger
	exists  func(string) bool
	rules   []baseRule
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithRoot sets the project root used by "/" and "@/" targets.
func WithRoot(dir string) Option {
	return func(r *Rewriter) {
		if dir != "" {
			r.root = dir
		}
	}
}

// WithEmitter sets how resolved files become URLs.
func WithEmitter(e AssetEmitter) Option {
	return func(r *Rewriter) {
		if e != nil {
			r.emitter = e
		}
	}
}

// WithLogger sets the logger used for missing-image warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Rewriter) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithExists replaces the file existence check.
func WithExists(fn func(string) bool) Option {
	return func(r *Rewriter) {
		if fn != nil {
			r.exists = fn
		}
	}
}

// NewRewriter creates a Rewriter rooted at the working directory that emits file:// URLs.
func NewRewriter(opts ...Option) *Rewriter {
	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	r := &Rewriter{
		root:    root,
		emitter: FileURLEmitter{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		exists:  fileutil.FileExists,
	}
	for _, opt := range opts {
		opt(r)
	}
	if abs, err := filepath.Abs(r.root); err == nil {
		r.root = abs
	}
	r.rules = r.defaultRules()
	return r
}

// Root returns the absolute project root.
func (r *Rewriter) Root() string {
	return r.root
}

// Rewrite scans body left to right and replaces resolvable local targets
// with placeholder tokens. sourcePath is the deck file; relative targets
// resolve against its directory. Images inside code are ignored.
func (r *Rewriter) Rewrite(body, sourcePath string) Result {
	res := Result{Body: body}

	matches := imagePattern.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return res
	}

	scan := mdscan.Scan([]byte(body))
	prefix := uniquePrefix(body)
	baseDir := r.root
	if sourcePath != "" {
		if abs, err := filepath.Abs(sourcePath); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}

	var sb strings.Builder
	sb.Grow(len(body))
	last := 0
	n := 0

	for _, m := range matches {
		if scan.InCode(m[0]) {
			continue
		}

		ref := Reference{
			Original: body[m[0]:m[1]],
			Alt:      body[m[2]:m[3]],
			Target:   body[m[4]:m[5]],
		}
		if m[6] >= 0 {
			ref.Title = body[m[6]:m[7]]
		}

		r.classify(&ref, baseDir)
		if ref.Kind == KindMissing {
			msg := fmt.Sprintf("image not found: %s (resolved to %s)%s", ref.Target, ref.Resolved, hints.ForImageNotFound(ref.Target))
			res.Warnings = append(res.Warnings, msg)
			r.logger.Warn("image not found", "target", ref.Target, "resolved", ref.Resolved, "source", sourcePath)
		}

		if ref.Kind == KindLocal {
			ref.Placeholder = prefix + strconv.Itoa(n) + "__"
			n++
			// Replace only the target span; alt text and title stay byte-identical.
			sb.WriteString(body[last:m[4]])
			sb.WriteString(ref.Placeholder)
			last = m[5]
		}

		res.Refs = append(res.Refs, ref)
	}

	sb.WriteString(body[last:])
	res.Body = sb.String()
	return res
}

// classify fills Kind, Resolved and URL.
func (r *Rewriter) classify(ref *Reference, baseDir string) {
	if fileutil.IsRemote(ref.Target) {
		ref.Kind = KindRemote
		ref.URL = ref.Target
		return
	}

	ref.Resolved = r.resolve(ref.Target, baseDir)
	if !r.exists(ref.Resolved) {
		ref.Kind = KindMissing
		ref.URL = ref.Target
		return
	}

	u, err := r.emitter.Emit(ref.Resolved)
	if err != nil {
		r.logger.Warn("emitting image", "path", ref.Resolved, "error", err)
		ref.Kind = KindMissing
		ref.URL = ref.Target
		return
	}
	ref.Kind = KindLocal
	ref.URL = u
}

// resolve maps a local target to an absolute path using the first matching rule.
func (r *Rewriter) resolve(target, baseDir string) string {
	p := cleanTarget(target)
	for _, rule := range r.rules {
		if rule.match(p) {
			return rule.resolve(p, baseDir)
		}
	}
	return filepath.Join(baseDir, filepath.FromSlash(p))
}

// cleanTarget strips query and fragment and decodes percent escapes.
func cleanTarget(target string) string {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	if decoded, err := url.PathUnescape(target); err == nil {
		return decoded
	}
	return target
}

// uniquePrefix returns a token prefix that does not occur in body.
func uniquePrefix(body string) string {
	prefix := placeholderPrefix
	for i := 1; strings.Contains(body, prefix); i++ {
		prefix = placeholderPrefix + strconv.Itoa(i) + "_"
	}
	return prefix
}

// Substitute replaces every placeholder token in html with its final URL.
func Substitute(html string, refs []Reference) string {
	return replaceTokens(html, refs, func(ref Reference) string { return ref.URL })
}

// Restore maps placeholder tokens back to their original targets.
func Restore(body string, refs []Reference) string {
	return replaceTokens(body, refs, func(ref Reference) string { return ref.Target })
}

func replaceTokens(s string, refs []Reference, value func(Reference) string) string {
	pairs := make([]string, 0, len(refs)*2)
	for _, ref := range refs {
		if ref.Placeholder == "" {
			continue
		}
		pairs = append(pairs, ref.Placeholder, value(ref))
	}
	if len(pairs) == 0 {
		return s
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
