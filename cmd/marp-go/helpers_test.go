package main

// Notes:
// - stubMarp replaces the marp executable through Environment.Options: it
//   wraps each "---" separated chunk of the body in a <section>, which is
//   all the commands need to count slides and write files.
// - newProject lays out decks, a themes dir and a placeholder marp file in
//   a temp dir; flags point the commands at it so nothing depends on the
//   host machine.

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-marp"
	"github.com/alnah/go-marp/internal/frontmatter"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

var stubSeparator = regexp.MustCompile(`(?m)^---[ \t]*$`)

type stubMarp struct {
	mu       sync.Mutex
	calls    int
	exitCode int
}

func (s *stubMarp) Run(_ context.Context, _ string, args []string, stdin io.Reader) (marp.RunResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if len(args) == 1 && args[0] == "--version" {
		return marp.RunResult{Stdout: []byte("@marp-team/marp-cli v4.0.0\n")}, nil
	}
	if s.exitCode != 0 {
		return marp.RunResult{Stderr: []byte("boom"), ExitCode: s.exitCode}, nil
	}

	data, _ := io.ReadAll(stdin)
	_, body := frontmatter.Extract(string(data))
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html><html><head></head><body>")
	for _, slide := range stubSeparator.Split(body, -1) {
		sb.WriteString("<section>" + strings.TrimSpace(slide) + "</section>")
	}
	sb.WriteString("</body></html>")
	return marp.RunResult{Stdout: []byte(sb.String())}, nil
}

func (s *stubMarp) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type project struct {
	dir    string
	decks  string
	themes string
	bin    string
	out    string
}

// flags returns the flags that point a command at the project.
func (p project) flags() []string {
	return []string{"--marp", p.bin, "--themes-dir", p.themes, "-o", p.out}
}

func newProject(t *testing.T) project {
	t.Helper()
	dir := t.TempDir()
	p := project{
		dir:    dir,
		decks:  filepath.Join(dir, "decks"),
		themes: filepath.Join(dir, "themes"),
		bin:    filepath.Join(dir, "marp"),
		out:    filepath.Join(dir, "dist"),
	}
	for _, d := range []string{p.decks, p.themes} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}
	writeFile(t, filepath.Join(p.themes, "am_blue.scss"), "/* @theme am_blue */")
	writeFile(t, p.bin, "#!/bin/sh\n")
	return p
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	return string(data)
}

// testEnv returns an environment capturing output and using stub.
func testEnv(stub *stubMarp) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	env := &Environment{
		Now:    func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
		Stdout: stdout,
		Stderr: stderr,
	}
	if stub != nil {
		env.Options = []marp.Option{marp.WithRunner(stub)}
	}
	return env, stdout, stderr
}
