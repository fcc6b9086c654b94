package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/alnah/go-marp/internal/process"
)

// defaultWaitDelay bounds how long Wait blocks on pipes after the process
// was killed.
const defaultWaitDelay = 5 * time.Second

// RunResult is the captured outcome of one subprocess run.
type RunResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes a command with stdin and captures its output.
// A non-zero exit is reported through ExitCode, not as an error; errors are
// reserved for spawn failures and cancellation.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader) (RunResult, error)
}

// ExecRunner runs commands with os/exec in their own process group.
type ExecRunner struct {
	// WaitDelay overrides defaultWaitDelay when positive.
	WaitDelay time.Duration
}

// Compile-time interface implementation check.
var _ Runner = (*ExecRunner)(nil)

// Run starts name with args, streams stdin in and waits for exit. When ctx
// ends, the whole process group is killed.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) (RunResult, error) {
	var res RunResult
	if err := ctx.Err(); err != nil {
		return res, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- binary located by FindBinary
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	process.Configure(cmd)
	cmd.Cancel = func() error {
		process.KillProcessGroup(cmd.Process.Pid)
		return cmd.Process.Kill()
	}
	cmd.WaitDelay = defaultWaitDelay
	if r != nil && r.WaitDelay > 0 {
		cmd.WaitDelay = r.WaitDelay
	}

	err := cmd.Run()
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		return res, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
}
