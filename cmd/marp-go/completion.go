package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash Shell = "bash"
	ShellZsh  Shell = "zsh"
	ShellFish Shell = "fish"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagType represents the completion type for a flag.
type flagType int

const (
	flagString flagType = iota // default
	flagBool
	flagInt
	flagEnum // has predefined values
	flagFile // file with glob pattern
	flagDir  // directory
)

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long       string   // --output
	Short      string   // -o (empty if none)
	Type       flagType // completion type
	Desc       string   // help text
	Values     []string // for enum flags
	FileGlob   string   // for file flags
	Repeatable bool     // may be given more than once
}

// commandDef describes a command for completion.
type commandDef struct {
	Name       string
	Desc       string
	Flags      []flagDef
	TakesDecks bool     // accepts .marp files and directories
	Args       []string // fixed positional values
}

// completionMeta holds completion-specific metadata for flags.
// Flag names, types, and descriptions come from the FlagSet.
type completionMeta struct {
	Values   []string // enum values
	FileGlob string   // file glob pattern
	IsDir    bool     // directory completion
}

// flagCompletionMeta maps flag names to their completion metadata.
var flagCompletionMeta = map[string]completionMeta{
	"mermaid": {Values: []string{"script", "pre", "inline-svg"}},

	"config": {FileGlob: "*.yaml,*.yml"},
	"cache":  {FileGlob: "*.db,*.sqlite"},
	"marp":   {FileGlob: "*"},

	"output":     {IsDir: true},
	"themes-dir": {IsDir: true},
	"root":       {IsDir: true},
}

// extractFlagsFromFlagSet extracts flag definitions from a pflag.FlagSet.
// Enriches with completion metadata from flagCompletionMeta.
func extractFlagsFromFlagSet(fs *flag.FlagSet) []flagDef {
	var flags []flagDef

	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{
			Long:  f.Name,
			Short: f.Shorthand,
			Desc:  f.Usage,
		}

		switch f.Value.Type() {
		case "bool":
			fd.Type = flagBool
		case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
			fd.Type = flagInt
		case "stringArray", "stringSlice":
			fd.Repeatable = true
		}

		if meta, ok := flagCompletionMeta[f.Name]; ok {
			switch {
			case len(meta.Values) > 0:
				fd.Type = flagEnum
				fd.Values = meta.Values
			case meta.FileGlob != "":
				fd.Type = flagFile
				fd.FileGlob = meta.FileGlob
			case meta.IsDir:
				fd.Type = flagDir
			}
		}

		flags = append(flags, fd)
	})

	return flags
}

// getCommands returns the command registry for completion.
// Flags are extracted from the actual FlagSets.
func getCommands() []commandDef {
	commandNames := []string{"build", "serve", "doctor", "version", "help", "completion"}
	return []commandDef{
		{
			Name:       "build",
			Desc:       "Render .marp decks to HTML and metadata",
			Flags:      extractFlagsFromFlagSet(newBuildFlagSet(&buildFlags{})),
			TakesDecks: true,
		},
		{
			Name:       "serve",
			Desc:       "Preview decks with live reload",
			Flags:      extractFlagsFromFlagSet(newServeFlagSet(&serveFlags{})),
			TakesDecks: true,
		},
		{
			Name:  "doctor",
			Desc:  "Check marp, themes and browser setup",
			Flags: extractFlagsFromFlagSet(newDoctorFlagSet(&doctorFlags{})),
		},
		{Name: "version", Desc: "Show version information"},
		{Name: "help", Desc: "Show help for a command", Args: commandNames},
		{Name: "completion", Desc: "Generate shell completion script", Args: []string{string(ShellBash), string(ShellZsh), string(ShellFish)}},
	}
}

// GenerateCompletion writes shell completion script to w.
// Returns error if shell is unsupported or write fails.
func GenerateCompletion(w io.Writer, shell Shell) error {
	var script string
	switch shell {
	case ShellBash:
		script = bashScript(getCommands())
	case ShellZsh:
		script = zshScript(getCommands())
	case ShellFish:
		script = fishScript(getCommands())
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish)", ErrUnsupportedShell, shell)
	}
	_, err := io.WriteString(w, script)
	return err
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}
	return GenerateCompletion(env.Stdout, Shell(args[0]))
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: marp-go completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Bash:")
	fmt.Fprintln(w, "    # Add to ~/.bashrc:")
	fmt.Fprintln(w, "    eval \"$(marp-go completion bash)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Zsh:")
	fmt.Fprintln(w, "    # Add to ~/.zshrc (after compinit):")
	fmt.Fprintln(w, "    eval \"$(marp-go completion zsh)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Fish:")
	fmt.Fprintln(w, "    marp-go completion fish > ~/.config/fish/completions/marp-go.fish")
}

// ---------------------------------------------------------------------------
// Bash
// ---------------------------------------------------------------------------

func bashScript(cmds []commandDef) string {
	var sb strings.Builder
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.Name)
	}

	sb.WriteString("# bash completion for marp-go\n")
	sb.WriteString("_marp_go() {\n")
	sb.WriteString("    local cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	sb.WriteString("    local prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n")
	sb.WriteString("    COMPREPLY=()\n\n")
	sb.WriteString("    if [[ $COMP_CWORD -eq 1 ]]; then\n")
	fmt.Fprintf(&sb, "        COMPREPLY=($(compgen -W \"%s\" -- \"$cur\"))\n", strings.Join(names, " "))
	sb.WriteString("        return\n")
	sb.WriteString("    fi\n\n")
	sb.WriteString("    case \"${COMP_WORDS[1]}\" in\n")

	for _, c := range cmds {
		fmt.Fprintf(&sb, "    %s)\n", c.Name)

		var opts []string
		var valueCases []string
		for _, f := range c.Flags {
			opts = append(opts, "--"+f.Long)
			pattern := "--" + f.Long
			if f.Short != "" {
				opts = append(opts, "-"+f.Short)
				pattern += "|-" + f.Short
			}
			switch f.Type {
			case flagEnum:
				valueCases = append(valueCases, fmt.Sprintf("%s) COMPREPLY=($(compgen -W \"%s\" -- \"$cur\")); return ;;", pattern, strings.Join(f.Values, " ")))
			case flagDir:
				valueCases = append(valueCases, fmt.Sprintf("%s) COMPREPLY=($(compgen -d -- \"$cur\")); return ;;", pattern))
			case flagFile:
				valueCases = append(valueCases, fmt.Sprintf("%s) COMPREPLY=($(compgen -f -- \"$cur\")); return ;;", pattern))
			case flagString, flagInt:
				valueCases = append(valueCases, fmt.Sprintf("%s) return ;;", pattern))
			}
		}

		if len(valueCases) > 0 {
			sb.WriteString("        case \"$prev\" in\n")
			for _, vc := range valueCases {
				fmt.Fprintf(&sb, "            %s\n", vc)
			}
			sb.WriteString("        esac\n")
		}
		if len(opts) > 0 {
			sb.WriteString("        if [[ $cur == -* ]]; then\n")
			fmt.Fprintf(&sb, "            COMPREPLY=($(compgen -W \"%s\" -- \"$cur\"))\n", strings.Join(opts, " "))
			sb.WriteString("            return\n")
			sb.WriteString("        fi\n")
		}
		switch {
		case c.TakesDecks:
			sb.WriteString("        COMPREPLY=($(compgen -f -X '!*.marp' -- \"$cur\") $(compgen -d -- \"$cur\"))\n")
		case len(c.Args) > 0:
			fmt.Fprintf(&sb, "        COMPREPLY=($(compgen -W \"%s\" -- \"$cur\"))\n", strings.Join(c.Args, " "))
		}
		sb.WriteString("        ;;\n")
	}

	sb.WriteString("    esac\n")
	sb.WriteString("}\n")
	sb.WriteString("complete -o filenames -F _marp_go marp-go\n")
	return sb.String()
}

// ---------------------------------------------------------------------------
// Zsh
// ---------------------------------------------------------------------------

func zshScript(cmds []commandDef) string {
	var sb strings.Builder
	sb.WriteString("#compdef marp-go\n\n")
	sb.WriteString("_marp_go() {\n")
	sb.WriteString("    local -a commands\n")
	sb.WriteString("    commands=(\n")
	for _, c := range cmds {
		fmt.Fprintf(&sb, "        '%s:%s'\n", c.Name, zshEscape(c.Desc))
	}
	sb.WriteString("    )\n\n")
	sb.WriteString("    if (( CURRENT == 2 )); then\n")
	sb.WriteString("        _describe 'command' commands\n")
	sb.WriteString("        return\n")
	sb.WriteString("    fi\n\n")
	sb.WriteString("    local cmd=$words[2]\n")
	sb.WriteString("    shift words\n")
	sb.WriteString("    (( CURRENT-- ))\n\n")
	sb.WriteString("    case $cmd in\n")

	for _, c := range cmds {
		fmt.Fprintf(&sb, "    %s)\n", c.Name)
		sb.WriteString("        _arguments")
		for _, f := range c.Flags {
			fmt.Fprintf(&sb, " \\\n            %s", zshFlagSpec(f))
		}
		switch {
		case c.TakesDecks:
			sb.WriteString(" \\\n            '*:deck:_files -g \"*.marp\"'")
		case len(c.Args) > 0:
			fmt.Fprintf(&sb, " \\\n            '1:argument:(%s)'", strings.Join(c.Args, " "))
		}
		sb.WriteString("\n        ;;\n")
	}

	sb.WriteString("    esac\n")
	sb.WriteString("}\n\n")
	sb.WriteString("compdef _marp_go marp-go\n")
	return sb.String()
}

// zshFlagSpec returns the _arguments entry for one flag.
func zshFlagSpec(f flagDef) string {
	desc := "[" + zshEscape(f.Desc) + "]"

	var value string
	switch f.Type {
	case flagBool:
	case flagEnum:
		value = fmt.Sprintf(":%s:(%s)", f.Long, strings.Join(f.Values, " "))
	case flagDir:
		value = fmt.Sprintf(":%s:_files -/", f.Long)
	case flagFile:
		value = fmt.Sprintf(":%s:_files -g \"%s\"", f.Long, strings.ReplaceAll(f.FileGlob, ",", " "))
	default:
		value = fmt.Sprintf(":%s: ", f.Long)
	}

	repeat := ""
	if f.Repeatable {
		repeat = "*"
	}
	if f.Short == "" {
		return fmt.Sprintf("'%s--%s%s%s'", repeat, f.Long, desc, value)
	}
	return fmt.Sprintf("'(-%s --%s)'%s{-%s,--%s}'%s%s'", f.Short, f.Long, repeat, f.Short, f.Long, desc, value)
}

// zshEscape escapes text for a single-quoted _arguments description.
func zshEscape(s string) string {
	r := strings.NewReplacer(
		"'", `'\''`,
		"[", `\[`,
		"]", `\]`,
		":", `\:`,
	)
	return r.Replace(s)
}

// ---------------------------------------------------------------------------
// Fish
// ---------------------------------------------------------------------------

func fishScript(cmds []commandDef) string {
	var sb strings.Builder
	sb.WriteString("# fish completion for marp-go\n")
	sb.WriteString("complete -c marp-go -f\n\n")

	for _, c := range cmds {
		fmt.Fprintf(&sb, "complete -c marp-go -n __fish_use_subcommand -a %s -d '%s'\n", c.Name, fishEscape(c.Desc))
	}

	for _, c := range cmds {
		cond := fmt.Sprintf("'__fish_seen_subcommand_from %s'", c.Name)
		sb.WriteString("\n")
		for _, f := range c.Flags {
			fmt.Fprintf(&sb, "complete -c marp-go -n %s", cond)
			if f.Short != "" {
				fmt.Fprintf(&sb, " -s %s", f.Short)
			}
			fmt.Fprintf(&sb, " -l %s", f.Long)
			switch f.Type {
			case flagBool:
			case flagEnum:
				fmt.Fprintf(&sb, " -x -a '%s'", strings.Join(f.Values, " "))
			case flagDir:
				sb.WriteString(" -x -a '(__fish_complete_directories)'")
			case flagFile:
				sb.WriteString(" -r -F")
			default:
				sb.WriteString(" -x")
			}
			fmt.Fprintf(&sb, " -d '%s'\n", fishEscape(f.Desc))
		}
		switch {
		case c.TakesDecks:
			fmt.Fprintf(&sb, "complete -c marp-go -n %s -k -a '(__fish_complete_suffix .marp)'\n", cond)
		case len(c.Args) > 0:
			fmt.Fprintf(&sb, "complete -c marp-go -n %s -a '%s'\n", cond, strings.Join(c.Args, " "))
		}
	}
	return sb.String()
}

// fishEscape escapes text for a single-quoted fish string.
func fishEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, "'", `\'`).Replace(s)
}
