package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/htexlab/go-htex/internal/assets"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: htex <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Render formulas in HTML or Markdown documents")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'htex help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: htex convert <input...> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render each <eq> formula element to a self-contained image.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    Files, directories, or glob patterns")
	fmt.Fprintln(w, "           ("+strings.Join(supportedExtensionList(), ", ")+")")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory (default: alongside each input)")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --minify              Minify output HTML")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "  -f, --format <s>          Image format: svg, png (default: svg)")
	fmt.Fprintln(w, "      --ppi <f>             PNG pixel density (default: 1200)")
	fmt.Fprintln(w, "  -w, --workers <n>         Render workers per file (0 = auto)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Fonts:")
	fmt.Fprintln(w, "      --body-font <s>       Body font: family name or font file path")
	fmt.Fprintln(w, "      --math-font <s>       Math font: family name or font file path")
	fmt.Fprintln(w, "      --font-dir <dir>      Extra font search directory (repeatable)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Styling:")
	fmt.Fprintln(w, "      --style <s>           Stylesheet: embedded name or CSS file path")
	fmt.Fprintln(w, "                            (embedded: "+strings.Join(assets.StyleNames(), ", ")+")")
	fmt.Fprintln(w, "      --no-style            Disable stylesheet injection")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show per-formula detail and timing")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: htex version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: htex help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
