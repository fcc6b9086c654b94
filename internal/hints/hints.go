// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-marp/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForRendererNotFound returns hints for a missing marp executable.
func ForRendererNotFound() string {
	hints := []string{"npm install --save-dev @marp-team/marp-cli"}
	if os.Getenv("MARP_CLI_BIN") == "" {
		hints = append(hints, "or set MARP_CLI_BIN to the marp executable")
	}
	return formatHints(hints)
}

// ciVars are set by common CI providers.
var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// InCI reports whether a CI provider variable is set.
func InCI() bool {
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// ForBrowserConnect returns hints for a headless Chrome that would not start.
// inline-svg diagrams are the only user, so the script strategy is offered.
func ForBrowserConnect() string {
	var hints []string

	if (InCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use an installed Chrome")
	}

	hints = append(hints, "or use --mermaid script")
	return formatHints(hints)
}

// ForImageNotFound explains where a missing image target was looked up.
// Root-relative and @/ targets depend on the project root.
func ForImageNotFound(target string) string {
	switch {
	case strings.HasPrefix(target, "@/"):
		return format("@/ paths resolve under <root>/src; set --root or projectRoot")
	case strings.HasPrefix(target, "/"):
		return format("/ paths resolve under <root>/public, then <root>; set --root or projectRoot")
	default:
		return format("relative paths resolve from the deck's directory")
	}
}

// ForTimeout suggests a longer render timeout.
func ForTimeout() string {
	return format("large decks may need a longer --timeout or MARP_TIMEOUT")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-marp/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-marp") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForThemeNotFound lists discovered themes next to the builtin ones.
func ForThemeNotFound(available []string) string {
	names := append([]string{"default", "gaia", "uncover"}, available...)
	return format("available: " + strings.Join(names, ", "))
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
