package theme

import "path/filepath"

// rule is one step of theme resolution. Rules are evaluated in order and
// the first match wins.
type rule struct {
	name     string
	match    func(name string) bool
	resolve  func(name string) string
	fallback bool
}

// defaultRules returns the resolution order:
// builtin, discovered stylesheet, existing absolute path, fallback.
func (r *Resolver) defaultRules() []rule {
	return []rule{
		{
			name:    "builtin",
			match:   IsBuiltin,
			resolve: func(name string) string { return name },
		},
		{
			name: "discovered",
			match: func(name string) bool {
				_, ok := r.lookup(name)
				return ok
			},
			resolve: func(name string) string {
				p, _ := r.lookup(name)
				return p
			},
		},
		{
			name:    "absolute",
			match:   r.isExistingAbsolute,
			resolve: func(name string) string { return name },
		},
		{
			name:     "fallback",
			match:    func(string) bool { return true },
			resolve:  func(string) string { return r.fallback },
			fallback: true,
		},
	}
}

func (r *Resolver) isExistingAbsolute(name string) bool {
	if !filepath.IsAbs(name) {
		return false
	}
	info, err := r.stat(name)
	return err == nil && !info.IsDir()
}
