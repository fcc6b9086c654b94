package images

import (
	"path/filepath"
	"strings"
)

// baseRule maps one family of local targets to an absolute path.
// Rules are evaluated in order and the first match wins.
type baseRule struct {
	name    string
	match   func(target string) bool
	resolve func(target, baseDir string) string
}

// defaultRules returns the resolution order:
//
//	./x, ../x  -> relative to the deck
//	@/x        -> <root>/src/x
//	/x         -> <root>/public/x when present, else <root>/x
//	x          -> relative to the deck
func (r *Rewriter) defaultRules() []baseRule {
	return []baseRule{
		{
			name: "relative",
			match: func(t string) bool {
				return strings.HasPrefix(t, "./") || strings.HasPrefix(t, "../")
			},
			resolve: func(t, baseDir string) string {
				return filepath.Join(baseDir, filepath.FromSlash(t))
			},
		},
		{
			name:  "source-alias",
			match: func(t string) bool { return strings.HasPrefix(t, "@/") },
			resolve: func(t, _ string) string {
				return filepath.Join(r.root, "src", filepath.FromSlash(t[2:]))
			},
		},
		{
			name:  "root",
			match: func(t string) bool { return strings.HasPrefix(t, "/") },
			resolve: func(t, _ string) string {
				rel := filepath.FromSlash(strings.TrimPrefix(t, "/"))
				public := filepath.Join(r.root, "public", rel)
				if r.exists(public) {
					return public
				}
				return filepath.Join(r.root, rel)
			},
		},
		{
			name:  "bare",
			match: func(string) bool { return true },
			resolve: func(t, baseDir string) string {
				return filepath.Join(baseDir, filepath.FromSlash(t))
			},
		},
	}
}
