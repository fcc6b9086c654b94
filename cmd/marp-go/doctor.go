package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-marp/internal/config"
	"github.com/alnah/go-marp/internal/diagram"
	"github.com/alnah/go-marp/internal/hints"
	"github.com/alnah/go-marp/internal/render"
	"github.com/alnah/go-marp/internal/theme"
)

// versionTimeout bounds "marp --version".
const versionTimeout = 15 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string      `json:"status"` // "ready", "warnings", "errors"
	Marp     marpInfo    `json:"marp"`
	Themes   themesInfo  `json:"themes"`
	Browser  browserInfo `json:"browser"`
	Env      envInfo     `json:"environment"`
	System   systemInfo  `json:"system"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

// marpInfo holds marp executable detection results.
type marpInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// themesInfo holds theme discovery results.
type themesInfo struct {
	Dir          string   `json:"dir,omitempty"`
	Available    []string `json:"available"`
	DefaultTheme string   `json:"default_theme"`
	DefaultValid bool     `json:"default_valid"`
}

// browserInfo holds Chrome detection results, used by inline-svg diagrams.
type browserInfo struct {
	Needed bool   `json:"needed"`
	Found  bool   `json:"found"`
	Path   string `json:"path,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CI        bool   `json:"ci"`
	MarpBin   string `json:"marp_cli_bin,omitempty"`
	NoSandbox string `json:"rod_no_sandbox,omitempty"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// doctorChecks holds the probes doctor runs, replaceable in tests.
type doctorChecks struct {
	findBinary func(explicit string) (string, error)
	version    func(ctx context.Context, bin string) (string, error)
	findChrome func() (string, bool)
}

// defaultChecks probes the real system.
func defaultChecks() doctorChecks {
	return doctorChecks{
		findBinary: func(explicit string) (string, error) {
			return render.FindBinary(explicit, render.DefaultCandidates())
		},
		version: func(ctx context.Context, bin string) (string, error) {
			return render.NewInvoker(bin).Version(ctx)
		},
		findChrome: launcher.LookPath,
	}
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = bad flags.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	f, err := parseDoctorFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitUsage
	}

	result := runDoctor(ctx, f.config, defaultChecks(), env.Stderr)

	if f.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, configName string, checks doctorChecks, stderr io.Writer) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			MarpBin:   os.Getenv(render.BinaryEnv),
			NoSandbox: os.Getenv("ROD_NO_SANDBOX"),
		},
	}

	cfg, err := loadSettings(commonFlags{config: configName}, pipelineFlags{}, stderr)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		cfg = config.DefaultConfig()
	}

	checkMarp(ctx, result, cfg, checks)
	checkThemes(result, cfg)
	checkBrowser(result, cfg, checks)
	checkEnvironment(result)
	checkSystem(result)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkMarp locates the marp executable and asks for its version.
func checkMarp(ctx context.Context, result *doctorResult, cfg *config.Config, checks doctorChecks) {
	bin, err := checks.findBinary(cfg.RendererBin)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return
	}
	result.Marp.Found = true
	result.Marp.Path = bin

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	v, err := checks.version(ctx, bin)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get marp version: %v", err))
		return
	}
	result.Marp.Version = v
}

// checkThemes reports the themes directory and whether the default theme
// resolves.
func checkThemes(result *doctorResult, cfg *config.Config) {
	var opts []theme.Option
	if cfg.ThemesDir != "" {
		opts = append(opts, theme.WithCandidates(cfg.ThemesDir))
	}
	r := theme.New(opts...)

	result.Themes.Dir = r.Dir()
	result.Themes.Available = r.Available()
	result.Themes.DefaultTheme = cfg.DefaultTheme
	result.Themes.DefaultValid = r.Validate(cfg.DefaultTheme)

	if result.Themes.Dir == "" {
		result.Warnings = append(result.Warnings, "No themes directory found. Create ./themes or set MARP_THEMES_DIR")
	}
	if !result.Themes.DefaultValid {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Default theme %q not found%s", cfg.DefaultTheme, hints.ForThemeNotFound(result.Themes.Available)))
	}
}

// checkBrowser looks for Chrome when diagrams are pre-rendered.
func checkBrowser(result *doctorResult, cfg *config.Config, checks doctorChecks) {
	result.Browser.Needed = cfg.Mermaid.Enabled && cfg.Mermaid.Strategy == string(diagram.StrategyInlineSVG)

	path := os.Getenv("ROD_BROWSER_BIN")
	found := path != ""
	if !found {
		path, found = checks.findChrome()
	}
	result.Browser.Found = found
	if found {
		result.Browser.Path = path
	}

	if result.Browser.Needed && !found {
		result.Warnings = append(result.Warnings,
			"Chrome not found; inline-svg diagrams will download a managed browser on first use")
	}
}

// checkEnvironment detects CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.CI = hints.InCI()

	if result.Env.CI && result.Browser.Needed && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// checkSystem verifies system requirements.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	testFile := filepath.Join(tmpDir, "marp-go-doctor-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	} else {
		_ = os.Remove(testFile)
		result.System.TempWritable = true
	}
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "marp-go doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Marp CLI")
	if r.Marp.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Marp.Path)
		if r.Marp.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Marp.Version)
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Themes")
	if r.Themes.Dir != "" {
		fmt.Fprintf(w, "  [OK] Directory: %s\n", r.Themes.Dir)
		fmt.Fprintf(w, "  [OK] Available: %s\n", strings.Join(r.Themes.Available, ", "))
	} else {
		fmt.Fprintln(w, "  [WARN] Directory: none")
	}
	if r.Themes.DefaultValid {
		fmt.Fprintf(w, "  [OK] Default: %s\n", r.Themes.DefaultTheme)
	} else {
		fmt.Fprintf(w, "  [WARN] Default: %s (falls back)\n", r.Themes.DefaultTheme)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Browser")
	switch {
	case r.Browser.Found:
		fmt.Fprintf(w, "  [OK] Chrome: %s\n", r.Browser.Path)
	case r.Browser.Needed:
		fmt.Fprintln(w, "  [WARN] Chrome: not found")
	default:
		fmt.Fprintln(w, "  [OK] Chrome: not needed")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to build")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
