package main

import (
	"errors"
	"os"

	htex "github.com/htexlab/go-htex"
	"github.com/htexlab/go-htex/internal/assets"
	"github.com/htexlab/go-htex/internal/config"
)

// Exit codes for the htex CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // all files converted, all formulas rendered
	ExitGeneral = 1 // general/unexpected error
	ExitUsage   = 2 // invalid flags, config, or validation
	ExitIO      = 3 // unreadable input, unwritable output
	ExitRender  = 4 // engine build failure or failed formulas
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Render errors (exit 4)
	if errors.Is(err, htex.ErrEngineBuild) ||
		errors.Is(err, ErrRenderFailed) {
		return ExitRender
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, assets.ErrStyleRead) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, htex.ErrEmptyInput) ||
		errors.Is(err, htex.ErrAmbiguousInput) ||
		errors.Is(err, htex.ErrInvalidFormat) ||
		errors.Is(err, htex.ErrInvalidPPI) ||
		errors.Is(err, htex.ErrInvalidWorkers) ||
		errors.Is(err, htex.ErrFontSource) ||
		errors.Is(err, htex.ErrFontFileMissing) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrInvalidStyleName) ||
		errors.Is(err, ErrUnsupportedExtension) {
		return ExitUsage
	}

	// Mixed batch failures inherit the first file's classification.
	if errors.Is(err, ErrFilesFailed) {
		return ExitGeneral
	}

	return ExitGeneral
}
