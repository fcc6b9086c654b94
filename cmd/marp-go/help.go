package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: marp-go <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  build      Render .marp decks to HTML and metadata")
	fmt.Fprintln(w, "  serve      Preview decks with live reload")
	fmt.Fprintln(w, "  doctor     Check marp, themes and browser setup")
	fmt.Fprintln(w, "  completion Generate shell completion script")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'marp-go help <command>' for details on a specific command.")
}

// printPipelineFlags prints the flags shared by build and serve.
func printPipelineFlags(w io.Writer) {
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "      --theme <name>        Default theme name or stylesheet path")
	fmt.Fprintln(w, "      --themes-dir <dir>    Directory of .scss/.css themes")
	fmt.Fprintln(w, "      --marp <path>         marp executable")
	fmt.Fprintln(w, "      --marp-arg <arg>      Extra marp argument (repeatable)")
	fmt.Fprintln(w, "      --root <dir>          Project root for / and @/ image paths")
	fmt.Fprintln(w, "  -t, --timeout <dur>       Render timeout per deck (e.g., 30s, 2m)")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel renders (0 = auto)")
	fmt.Fprintln(w, "      --max-slides <n>      Reject decks with more slides (1-1000)")
	fmt.Fprintln(w, "      --cache <path>        Render cache database")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Diagrams:")
	fmt.Fprintln(w, "      --mermaid <strategy>  script, pre or inline-svg (default: script)")
	fmt.Fprintln(w, "      --no-mermaid          Disable diagram support")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path (default: ./marp.yaml)")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  MARP_CONFIG, MARP_CLI_BIN, MARP_THEME, MARP_THEMES_DIR, MARP_TIMEOUT,")
	fmt.Fprintln(w, "  MARP_OUTPUT_DIR, MARP_WORKERS. A .env file in the working directory is loaded.")
}

// printBuildUsage prints usage for the build command.
func printBuildUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: marp-go build [input...] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render decks to <out>/<slug>.html with <slug>.json metadata and")
	fmt.Fprintln(w, "a manifest.json. Local images are copied to <out>/_assets.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    .marp file or directory (default: input.dir from config, or .)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory (default: dist)")
	fmt.Fprintln(w, "      --no-copy             Reference images in place instead of copying")
	fmt.Fprintln(w)
	printPipelineFlags(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: marp-go serve [input...] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render decks, serve them and reload open pages when a deck or theme")
	fmt.Fprintln(w, "changes.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "  -a, --addr <host:port>    Listen address (default: 127.0.0.1:4321)")
	fmt.Fprintln(w, "  -o, --output <dir>        Directory for copied images (default: temporary)")
	fmt.Fprintln(w)
	printPipelineFlags(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: marp-go doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check the marp executable, themes, browser and environment.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --json                Print results as JSON")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "build":
		printBuildUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "completion":
		printCompletionUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: marp-go version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: marp-go help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
