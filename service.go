package htex

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/htexlab/go-htex/internal/fontindex"
	"github.com/htexlab/go-htex/internal/pipeline"
)

// Worker pool bounds. Formula rendering is CPU-bound, so the automatic
// size stays conservative.
const (
	MinWorkers    = 1
	MaxWorkers    = 64
	autoWorkerCap = 8
	cpuDivisor    = 2
)

// ResolveWorkers maps a requested worker count to the effective pool size.
// Zero selects an automatic size derived from available CPUs; explicit
// values are clamped to [MinWorkers, MaxWorkers].
func ResolveWorkers(n int) int {
	if n == 0 {
		auto := runtime.NumCPU() / cpuDivisor
		if auto < MinWorkers {
			return MinWorkers
		}
		if auto > autoWorkerCap {
			return autoWorkerCap
		}
		return auto
	}
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// Option configures a Service.
type Option func(*Service)

// WithWorkers sets the formula worker count. Zero selects automatic
// sizing. Panics on negative or out-of-range values; validate user input
// before calling.
func WithWorkers(n int) Option {
	if n < 0 || n > MaxWorkers {
		panic(fmt.Sprintf("htex: invalid worker count %d", n))
	}
	return func(s *Service) { s.workers = ResolveWorkers(n) }
}

// WithLogger routes library diagnostics through l instead of slog.Default.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic("htex: nil logger")
	}
	return func(s *Service) { s.logger = l }
}

// WithProgress registers a callback invoked after each formula completes,
// successfully or not. Called concurrently from worker goroutines.
func WithProgress(fn func(completed, total int)) Option {
	return func(s *Service) { s.onProgress = fn }
}

// WithFontDirs adds directories to the front of the system font search
// path.
func WithFontDirs(dirs ...string) Option {
	return func(s *Service) { s.fontDirs = append(s.fontDirs, dirs...) }
}

// withBuildFunc swaps engine construction. Test seam.
func withBuildFunc(build buildFunc) Option {
	return func(s *Service) { s.cache = newEngineCache(build) }
}

// Service renders formula documents. Safe for concurrent use: engines are
// cached per font configuration and shared across calls.
type Service struct {
	workers    int
	logger     *slog.Logger
	onProgress func(completed, total int)
	fontDirs   []string
	index      *fontindex.Index
	cache      *EngineCache
	md         pipeline.HTMLConverter
}

// New creates a Service.
// Use options to customize behavior (e.g., WithWorkers, WithFontDirs).
func New(opts ...Option) *Service {
	s := &Service{
		workers: ResolveWorkers(0),
		logger:  slog.Default(),
		md:      pipeline.NewGoldmarkConverter(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.index = fontindex.New(s.fontDirs...)

	// Create the engine cache if not injected (e.g., by tests)
	if s.cache == nil {
		s.cache = newEngineCache(s.buildEngine)
	}

	return s
}

// Cache exposes the engine cache, mainly so callers can observe reuse.
func (s *Service) Cache() *EngineCache {
	return s.cache
}

// Render runs the full pipeline on one document: every formula element is
// rendered with the configured fonts and replaced by a self-contained
// image. Individual formula failures are contained in the result; a
// non-nil error means the document as a whole could not be processed.
func (s *Service) Render(ctx context.Context, input Input) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	start := time.Now()

	input = input.withDefaults()
	if err := input.validate(); err != nil {
		return nil, err
	}

	// Convert Markdown input to HTML
	doc := input.HTML
	if input.Markdown != "" {
		doc, err = s.md.ToHTML(ctx, input.Markdown)
		if err != nil {
			return nil, fmt.Errorf("converting markdown: %w", err)
		}
	}

	// Extract formulas and substitute placeholder tokens
	scanned, err := pipeline.ScanDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScanDocument, err)
	}

	tasks, warnings := classifyTasks(scanned.Formulas)

	// Formula-free documents skip engine construction entirely
	if len(tasks) == 0 {
		return &Result{
			HTML:     pipeline.InjectStyle(scanned.HTML, input.CSS),
			Warnings: warnings,
			Stats:    Stats{Duration: time.Since(start)},
		}, nil
	}

	engine, err := s.cache.get(ctx, input.Style)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("rendering document",
		"formulas", len(tasks),
		"workers", s.workers,
		"format", string(input.Format),
		"body_font", engine.BodyFontName(),
		"math_font", engine.MathFontName(),
	)

	// Render formulas concurrently and merge results into the document
	buf := newDocumentBuffer(scanned.HTML)
	failures, renderWarnings, skipped := s.renderAll(ctx, buf, tasks, engine, input.Format, input.PPI)
	warnings = append(warnings, renderWarnings...)

	return &Result{
		HTML:     pipeline.InjectStyle(buf.String(), input.CSS),
		Failures: failures,
		Warnings: warnings,
		Stats: Stats{
			Formulas: len(tasks),
			Failed:   len(failures),
			Skipped:  skipped,
			Duration: time.Since(start),
		},
	}, nil
}

// classifyTasks maps scanned formulas to render tasks. Unrecognized env
// attribute values fall back to inline with a warning; a missing attribute
// is the unspecified mode and resolves to inline silently.
func classifyTasks(formulas []pipeline.Formula) ([]Task, []Warning) {
	tasks := make([]Task, 0, len(formulas))
	var warnings []Warning
	for _, f := range formulas {
		mode := ModeUnspecified
		switch {
		case !f.EnvSet:
			mode = ModeUnspecified
		case f.Env == string(ModeDisplay):
			mode = ModeDisplay
		case f.Env == string(ModeInline) || f.Env == "":
			mode = ModeInline
		default:
			mode = ModeInline
			warnings = append(warnings, Warning{
				Index:   f.Index,
				Message: fmt.Sprintf("unknown env attribute %q, treating formula as inline", f.Env),
			})
		}
		tasks = append(tasks, Task{Index: f.Index, Source: f.Source, Mode: mode, Token: f.Token})
	}
	return tasks, warnings
}
