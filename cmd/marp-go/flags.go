package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// errUsage marks flag and argument errors.
var errUsage = errors.New("usage error")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// pipelineFlags holds flags that override pipeline settings.
type pipelineFlags struct {
	theme           string
	themesDir       string
	renderer        string
	projectRoot     string
	timeout         string
	workers         int
	maxSlides       int
	mermaidStrategy string
	noMermaid       bool
	cache           string
	marpArgs        []string
}

// buildFlags holds all flags for the build command.
type buildFlags struct {
	common   commonFlags
	pipeline pipelineFlags
	output   string
	noCopy   bool
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common   commonFlags
	pipeline pipelineFlags
	addr     string
	output   string
}

// doctorFlags holds all flags for the doctor command.
type doctorFlags struct {
	json   bool
	config string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
}

// addPipelineFlags adds pipeline override flags to a FlagSet.
func addPipelineFlags(fs *flag.FlagSet, f *pipelineFlags) {
	fs.StringVar(&f.theme, "theme", "", "default theme name or stylesheet path")
	fs.StringVar(&f.themesDir, "themes-dir", "", "directory of .scss/.css themes")
	fs.StringVar(&f.renderer, "marp", "", "marp executable")
	fs.StringVar(&f.projectRoot, "root", "", "project root for / and @/ image paths")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "render timeout per deck (e.g., 30s, 2m)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel renders (0 = auto)")
	fs.IntVar(&f.maxSlides, "max-slides", 0, "reject decks with more slides (1-1000)")
	fs.StringVar(&f.mermaidStrategy, "mermaid", "", "diagram strategy: script, pre, inline-svg")
	fs.BoolVar(&f.noMermaid, "no-mermaid", false, "disable diagram support")
	fs.StringVar(&f.cache, "cache", "", "render cache database path")
	fs.StringArrayVar(&f.marpArgs, "marp-arg", nil, "extra marp argument (repeatable)")
}

// newBuildFlagSet registers the build flags into f.
func newBuildFlagSet(f *buildFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	fs.BoolVar(&f.noCopy, "no-copy", false, "reference images in place instead of copying")
	addCommonFlags(fs, &f.common)
	addPipelineFlags(fs, &f.pipeline)
	return fs
}

// newServeFlagSet registers the serve flags into f.
func newServeFlagSet(f *serveFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default 127.0.0.1:4321)")
	fs.StringVarP(&f.output, "output", "o", "", "directory for copied images")
	addCommonFlags(fs, &f.common)
	addPipelineFlags(fs, &f.pipeline)
	return fs
}

// newDoctorFlagSet registers the doctor flags into f.
func newDoctorFlagSet(f *doctorFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.BoolVar(&f.json, "json", false, "print results as JSON")
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	return fs
}

// parseBuildFlags parses build command flags and returns positional args.
func parseBuildFlags(args []string, stderr io.Writer) (*buildFlags, []string, error) {
	f := &buildFlags{}
	fs := newBuildFlagSet(f)
	fs.SetOutput(stderr)
	fs.Usage = func() { printBuildUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, wrapParseError(err)
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags and returns positional args.
func parseServeFlags(args []string, stderr io.Writer) (*serveFlags, []string, error) {
	f := &serveFlags{}
	fs := newServeFlagSet(f)
	fs.SetOutput(stderr)
	fs.Usage = func() { printServeUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, wrapParseError(err)
	}
	return f, fs.Args(), nil
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string, stderr io.Writer) (*doctorFlags, error) {
	f := &doctorFlags{}
	fs := newDoctorFlagSet(f)
	fs.SetOutput(stderr)
	fs.Usage = func() { printDoctorUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, wrapParseError(err)
	}
	return f, nil
}

// wrapParseError tags flag errors for exitCodeFor, leaving ErrHelp alone.
func wrapParseError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %w", errUsage, err)
}
