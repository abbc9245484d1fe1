package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across concerns.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// renderFlags holds formula rendering flags.
type renderFlags struct {
	format  string
	ppi     float64
	workers int
}

// fontFlags holds font selection flags.
type fontFlags struct {
	body string
	math string
	dirs []string
}

// styleFlags holds stylesheet injection flags.
type styleFlags struct {
	name     string
	disabled bool
}

// outputFlags holds output placement flags.
type outputFlags struct {
	dir    string
	minify bool
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common commonFlags
	render renderFlags
	fonts  fontFlags
	style  styleFlags
	output outputFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show per-formula detail and timing")
}

// addRenderFlags adds rendering flags to a FlagSet.
func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.StringVarP(&f.format, "format", "f", "", "image format: svg, png")
	fs.Float64Var(&f.ppi, "ppi", 0, "PNG pixel density (default 1200)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "render workers per file (0 = auto)")
}

// addFontFlags adds font selection flags to a FlagSet.
func addFontFlags(fs *flag.FlagSet, f *fontFlags) {
	fs.StringVar(&f.body, "body-font", "", "body font: family name or font file path")
	fs.StringVar(&f.math, "math-font", "", "math font: family name or font file path")
	fs.StringArrayVar(&f.dirs, "font-dir", nil, "extra font search directory (repeatable)")
}

// addStyleFlags adds stylesheet flags to a FlagSet.
func addStyleFlags(fs *flag.FlagSet, f *styleFlags) {
	fs.StringVar(&f.name, "style", "", "stylesheet: embedded name or CSS file path")
	fs.BoolVar(&f.disabled, "no-style", false, "disable stylesheet injection")
}

// addOutputFlags adds output placement flags to a FlagSet.
func addOutputFlags(fs *flag.FlagSet, f *outputFlags) {
	fs.StringVarP(&f.dir, "output", "o", "", "output directory (default: alongside each input)")
	fs.BoolVar(&f.minify, "minify", false, "minify output HTML")
}

// parseConvertFlags parses convert command flags and returns positional
// arguments (the inputs).
func parseConvertFlags(args []string, errW io.Writer) (*convertFlags, []string, error) {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(errW)
	f := &convertFlags{}

	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)
	addFontFlags(fs, &f.fonts)
	addStyleFlags(fs, &f.style)
	addOutputFlags(fs, &f.output)

	fs.Usage = func() { printConvertUsage(errW) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
