package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/htexlab/go-htex/internal/hints"
)

// Sentinel errors for input discovery.
var (
	ErrNoInput              = errors.New("no input files found")
	ErrUnsupportedExtension = errors.New("unsupported input extension")
)

// Input extensions, grouped by how the file enters the pipeline.
var (
	markdownExtensions  = map[string]bool{".md": true, ".markdown": true}
	hypertextExtensions = map[string]bool{".html": true, ".htm": true}
	formulaExtensions   = map[string]bool{".htex": true}
)

// FileJob is one input file paired with its output destination.
type FileJob struct {
	InputPath  string
	OutputPath string
}

// supportedExtension reports whether the pipeline accepts the file.
func supportedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return markdownExtensions[ext] || hypertextExtensions[ext] || formulaExtensions[ext]
}

// isMarkdown reports whether the file enters through the Markdown front-end.
func isMarkdown(path string) bool {
	return markdownExtensions[strings.ToLower(filepath.Ext(path))]
}

// discoverInputs expands each argument into file jobs. An argument is a
// file, a directory (walked recursively), or a glob pattern. Duplicates
// from overlapping arguments collapse to one job.
func discoverInputs(args []string, outputDir string) ([]FileJob, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no inputs given", ErrNoInput)
	}

	var jobs []FileJob
	seen := make(map[string]bool)
	add := func(path, baseDir string) {
		if seen[path] {
			return
		}
		seen[path] = true
		jobs = append(jobs, FileJob{
			InputPath:  path,
			OutputPath: resolveOutputPath(path, outputDir, baseDir),
		})
	}

	for _, arg := range args {
		if strings.ContainsAny(arg, "*?[") {
			matches, err := filepath.Glob(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid glob pattern %q: %w", arg, err)
			}
			for _, m := range matches {
				if supportedExtension(m) {
					add(m, "")
				}
			}
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !supportedExtension(arg) {
				return nil, fmt.Errorf("%w: %q%s", ErrUnsupportedExtension, filepath.Ext(arg),
					hints.ForUnsupportedInput(supportedExtensionList()))
			}
			add(arg, "")
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("scanning %s: %w", path, err)
			}
			if !d.IsDir() && supportedExtension(path) {
				add(path, arg)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: nothing matched %s", ErrNoInput, strings.Join(args, ", "))
	}
	return jobs, nil
}

// resolveOutputPath determines where the converted document lands. With no
// output directory, hypertext inputs are rewritten in place and everything
// else writes a sibling .html file. With an output directory, every input
// mirrors into it (relative to baseDir when the input came from a
// directory walk).
func resolveOutputPath(inputPath, outputDir, baseDir string) string {
	ext := filepath.Ext(inputPath)
	lower := strings.ToLower(ext)
	base := strings.TrimSuffix(filepath.Base(inputPath), ext)

	if outputDir == "" {
		if hypertextExtensions[lower] {
			return inputPath
		}
		return filepath.Join(filepath.Dir(inputPath), base+".html")
	}

	if baseDir != "" {
		if rel, err := filepath.Rel(baseDir, inputPath); err == nil {
			return filepath.Join(outputDir, filepath.Dir(rel), base+".html")
		}
	}
	return filepath.Join(outputDir, base+".html")
}

// supportedExtensionList returns the accepted extensions for hint text.
func supportedExtensionList() []string {
	return []string{".htex", ".html", ".htm", ".md", ".markdown"}
}
