package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/htexlab/go-htex/internal/config"
)

// envPrefix namespaces the environment variables the CLI reads.
const envPrefix = "HTEX_"

// knownEnvVars lists valid HTEX_* environment variables, used to warn
// about likely typos in CI setups.
var knownEnvVars = map[string]bool{
	"HTEX_CONFIG":     true,
	"HTEX_OUTPUT_DIR": true,
	"HTEX_FORMAT":     true,
	"HTEX_WORKERS":    true,
	"HTEX_STYLE":      true,
	"HTEX_BODY_FONT":  true,
	"HTEX_MATH_FONT":  true,
}

// applyEnvConfig overlays HTEX_* environment variables onto cfg. Variables
// sit between the config file and CLI flags: they override file values and
// are themselves overridden by explicit flags.
func applyEnvConfig(cfg *config.Config, env *Environment) error {
	if v, ok := env.LookupEnv("HTEX_OUTPUT_DIR"); ok && v != "" {
		cfg.Output.Dir = v
	}
	if v, ok := env.LookupEnv("HTEX_FORMAT"); ok && v != "" {
		cfg.Render.Format = v
	}
	if v, ok := env.LookupEnv("HTEX_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTEX_WORKERS: %w", err)
		}
		cfg.Render.Workers = n
	}
	if v, ok := env.LookupEnv("HTEX_STYLE"); ok && v != "" {
		cfg.Style.Name = v
	}
	if v, ok := env.LookupEnv("HTEX_BODY_FONT"); ok && v != "" {
		cfg.Fonts.Body = v
	}
	if v, ok := env.LookupEnv("HTEX_MATH_FONT"); ok && v != "" {
		cfg.Fonts.Math = v
	}
	return cfg.Validate()
}

// warnUnknownEnvVars logs HTEX_* variables the CLI does not understand.
func warnUnknownEnvVars(environ []string, env *Environment) {
	for _, kv := range environ {
		key, _, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, envPrefix) {
			continue
		}
		if !knownEnvVars[key] {
			env.Logger.Warn("unknown environment variable", "name", key)
		}
	}
}
