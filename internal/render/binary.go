package render

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alnah/go-marp/internal/fileutil"
	"github.com/alnah/go-marp/internal/hints"
)

// BinaryName is the renderer executable looked up on PATH.
const BinaryName = "marp"

// BinaryEnv overrides binary discovery.
const BinaryEnv = "MARP_CLI_BIN"

// lookPath is replaced in tests so a marp on the developer's PATH does not leak in.
var lookPath = exec.LookPath

// DefaultCandidates returns install locations probed before PATH:
// $MARP_CLI_BIN, node_modules next to the executable and its parent, then
// node_modules in the working directory.
func DefaultCandidates() []string {
	bin := filepath.Join("node_modules", ".bin", binaryFile())

	var dirs []string
	if env := os.Getenv(BinaryEnv); env != "" {
		dirs = append(dirs, env)
	}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		dirs = append(dirs,
			filepath.Join(exeDir, bin),
			filepath.Join(exeDir, "..", bin),
		)
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, filepath.Join(cwd, bin))
	}
	return dirs
}

// FindBinary returns the renderer executable. An explicit path must exist.
// Otherwise the first existing candidate wins, then PATH. Failure wraps
// ErrBinaryNotFound and lists every location tried.
func FindBinary(explicit string, candidates []string) (string, error) {
	if explicit != "" {
		if fileutil.FileExists(explicit) {
			return explicit, nil
		}
		if p, err := lookPath(explicit); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("%w: %s does not exist%s", ErrBinaryNotFound, explicit, hints.ForRendererNotFound())
	}

	for _, c := range candidates {
		if fileutil.FileExists(c) {
			return c, nil
		}
	}

	if p, err := lookPath(BinaryName); err == nil {
		return p, nil
	}

	tried := append(append([]string{}, candidates...), "$PATH/"+BinaryName)
	return "", fmt.Errorf("%w: tried %s%s", ErrBinaryNotFound, strings.Join(tried, ", "), hints.ForRendererNotFound())
}

func binaryFile() string {
	if runtime.GOOS == "windows" {
		return BinaryName + ".cmd"
	}
	return BinaryName
}
