package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"

	htex "github.com/htexlab/go-htex"
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// Sentinel errors for batch operations.
var (
	ErrReadInput   = errors.New("failed to read input file")
	ErrWriteOutput = errors.New("failed to write output file")
)

// FileResult holds the outcome of converting one file.
type FileResult struct {
	InputPath  string
	OutputPath string
	Render     *htex.Result // nil when Err is set before rendering
	Err        error
	Duration   time.Duration
}

// convertBatch processes files sequentially: output order stays
// deterministic and formulas within each file already render in parallel.
// One file's failure never aborts the rest.
func convertBatch(ctx context.Context, renderer Renderer, jobs []FileJob, params *convertParams) []FileResult {
	results := make([]FileResult, len(jobs))
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			results[i] = FileResult{InputPath: job.InputPath, OutputPath: job.OutputPath, Err: err}
			continue
		}
		results[i] = convertFile(ctx, renderer, job, params)
	}
	return results
}

// convertFile converts a single file and writes the result.
func convertFile(ctx context.Context, renderer Renderer, job FileJob, params *convertParams) FileResult {
	start := time.Now()
	result := FileResult{InputPath: job.InputPath, OutputPath: job.OutputPath}

	content, err := os.ReadFile(job.InputPath) // #nosec G304 -- discovered path
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrReadInput, err)
		result.Duration = time.Since(start)
		return result
	}

	input := htex.Input{
		Style:  params.style,
		Format: params.format,
		PPI:    params.ppi,
		CSS:    params.css,
	}
	if isMarkdown(job.InputPath) {
		input.Markdown = string(content)
	} else {
		input.HTML = string(content)
	}

	render, err := renderer.Render(ctx, input)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}
	result.Render = render

	doc := render.HTML
	if params.minify {
		doc, err = minifyHTML(doc)
		if err != nil {
			result.Err = fmt.Errorf("minifying output: %w", err)
			result.Duration = time.Since(start)
			return result
		}
	}

	if dir := filepath.Dir(job.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			result.Err = fmt.Errorf("%w: %v", ErrWriteOutput, err)
			result.Duration = time.Since(start)
			return result
		}
	}
	// #nosec G306 -- converted documents are meant to be readable
	if err := os.WriteFile(job.OutputPath, []byte(doc), filePermissions); err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	result.Duration = time.Since(start)
	return result
}

// minifyHTML compacts the converted document.
func minifyHTML(doc string) (string, error) {
	m := minify.New()
	m.AddFunc("text/html", mhtml.Minify)
	return m.String("text/html", doc)
}

// BatchSummary tallies one convert run.
type BatchSummary struct {
	SucceededFiles int
	FailedFiles    int
	FailedFormulas int
	FirstErr       error
}

// printResults reports each file's outcome and returns the tally. File
// errors and per-formula diagnostics go to stderr; success lines go to
// stdout unless quiet.
func printResults(results []FileResult, params *convertParams, env *Environment) BatchSummary {
	var summary BatchSummary

	for _, r := range results {
		if r.Err != nil {
			summary.FailedFiles++
			if summary.FirstErr == nil {
				summary.FirstErr = r.Err
			}
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.InputPath, r.Err)
			continue
		}
		summary.SucceededFiles++

		if r.Render != nil {
			summary.FailedFormulas += len(r.Render.Failures)
			for _, f := range r.Render.Failures {
				fmt.Fprintf(env.Stderr, "%s: %s\n", r.InputPath, htex.FormatFailure(f, params.verbose))
			}
			for _, w := range r.Render.Warnings {
				env.Logger.Warn("render warning", "file", r.InputPath, "index", w.Index, "message", w.Message)
			}
		}

		if params.quiet {
			continue
		}
		if params.verbose && r.Render != nil {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d formulas, %v)\n",
				r.InputPath, r.OutputPath, r.Render.Stats.Formulas, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !params.quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.SucceededFiles, summary.FailedFiles)
	}
	return summary
}
