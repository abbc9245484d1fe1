package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	htex "github.com/htexlab/go-htex"
	"github.com/htexlab/go-htex/internal/assets"
	"github.com/htexlab/go-htex/internal/config"
	"github.com/htexlab/go-htex/internal/fileutil"
)

// Sentinel errors for convert orchestration.
var (
	ErrRenderFailed = errors.New("formulas failed to render")
	ErrFilesFailed  = errors.New("files failed to convert")
)

// Renderer is the interface the CLI needs from the rendering service.
type Renderer interface {
	Render(ctx context.Context, input htex.Input) (*htex.Result, error)
}

// Compile-time interface implementation check.
var _ Renderer = (*htex.Service)(nil)

// convertParams groups the per-file render parameters shared across the
// batch.
type convertParams struct {
	css     string
	style   htex.Style
	format  htex.Format
	ppi     float64
	minify  bool
	quiet   bool
	verbose bool
}

// runConvert orchestrates one convert invocation: configuration, input
// discovery, the sequential file batch, and result reporting.
func runConvert(ctx context.Context, inputs []string, flags *convertFlags, env *Environment) error {
	cfg, err := loadConfiguration(flags, env)
	if err != nil {
		return err
	}

	warnUnknownEnvVars(os.Environ(), env)

	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	jobs, err := discoverInputs(inputs, cfg.Output.Dir)
	if err != nil {
		return err
	}

	css, err := resolveCSS(cfg)
	if err != nil {
		return err
	}

	params := &convertParams{
		css:     css,
		style:   htex.Style{BodyFont: fontSource(cfg.Fonts.Body), MathFont: fontSource(cfg.Fonts.Math)},
		format:  htex.Format(cfg.Render.Format),
		ppi:     cfg.Render.PPI,
		minify:  cfg.Output.Minify,
		quiet:   flags.common.quiet,
		verbose: flags.common.verbose,
	}

	opts := []htex.Option{
		htex.WithLogger(env.Logger),
		htex.WithWorkers(cfg.Render.Workers),
	}
	if len(cfg.Fonts.Dirs) > 0 {
		opts = append(opts, htex.WithFontDirs(cfg.Fonts.Dirs...))
	}
	if flags.common.verbose {
		logger := env.Logger
		opts = append(opts, htex.WithProgress(func(completed, total int) {
			logger.Debug("render progress", "completed", completed, "total", total)
		}))
	}
	renderer := env.NewRenderer(opts...)

	results := convertBatch(ctx, renderer, jobs, params)
	summary := printResults(results, params, env)

	switch {
	case summary.FailedFiles > 0:
		// Both errors join the chain: exit-code classification follows
		// the first file failure, not the batch wrapper.
		return fmt.Errorf("%w: %d of %d: %w",
			ErrFilesFailed, summary.FailedFiles, len(results), summary.FirstErr)
	case summary.FailedFormulas > 0:
		return fmt.Errorf("%w: %d across %d file(s)",
			ErrRenderFailed, summary.FailedFormulas, len(results))
	}
	return nil
}

// loadConfiguration resolves the config file: the --config flag wins, then
// HTEX_CONFIG, then the default "htex" name searched in standard locations
// (whose absence is not an error). Environment overrides apply on top.
func loadConfiguration(flags *convertFlags, env *Environment) (*config.Config, error) {
	name := flags.common.config
	explicit := name != ""
	if !explicit {
		if v, ok := env.LookupEnv("HTEX_CONFIG"); ok && v != "" {
			name, explicit = v, true
		}
	}

	cfg := config.DefaultConfig()
	if explicit {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	} else {
		loaded, err := config.LoadConfig("htex")
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, config.ErrConfigNotFound):
			// no config file is fine
		default:
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if err := applyEnvConfig(cfg, env); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFlags merges CLI flags into config. CLI values override config and
// environment values.
func mergeFlags(flags *convertFlags, cfg *config.Config) {
	if flags.output.dir != "" {
		cfg.Output.Dir = flags.output.dir
	}
	if flags.output.minify {
		cfg.Output.Minify = true
	}
	if flags.render.format != "" {
		cfg.Render.Format = flags.render.format
	}
	if flags.render.ppi != 0 {
		cfg.Render.PPI = flags.render.ppi
	}
	if flags.render.workers != 0 {
		cfg.Render.Workers = flags.render.workers
	}
	if flags.fonts.body != "" {
		cfg.Fonts.Body = flags.fonts.body
	}
	if flags.fonts.math != "" {
		cfg.Fonts.Math = flags.fonts.math
	}
	if len(flags.fonts.dirs) > 0 {
		cfg.Fonts.Dirs = append(cfg.Fonts.Dirs, flags.fonts.dirs...)
	}
	if flags.style.name != "" {
		cfg.Style.Name = flags.style.name
	}
	if flags.style.disabled {
		cfg.Style.Disabled = true
	}
}

// resolveCSS loads the stylesheet to inject: nothing when disabled, the
// embedded default when unset, otherwise the named style or CSS file.
func resolveCSS(cfg *config.Config) (string, error) {
	if cfg.Style.Disabled {
		return "", nil
	}
	name := cfg.Style.Name
	if name == "" {
		name = assets.DefaultStyleName
	}
	return assets.LoadStyle(name)
}

// fontSource maps a flag or config value to a font source: values that
// look like paths select a file, everything else an installed family. An
// empty value keeps the library default.
func fontSource(v string) htex.FontSource {
	switch {
	case v == "":
		return htex.FontSource{}
	case fileutil.IsFontPath(v):
		return htex.FontFile(v)
	default:
		return htex.SystemFont(v)
	}
}
