package htex

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/htexlab/go-htex/internal/pipeline"
)

// documentBuffer is the shared output document. Each worker substitutes its
// own placeholder token under the lock; the lock is held only for the
// replacement itself, never across compilation or encoding.
type documentBuffer struct {
	mu  sync.Mutex
	doc string
}

func newDocumentBuffer(doc string) *documentBuffer {
	return &documentBuffer{doc: doc}
}

// replace substitutes the first occurrence of token with repl and reports
// whether the token was present. Tokens are unique per task, so replacements
// commute and the final document does not depend on worker scheduling. A
// missing token means the task's element was consumed by an enclosing
// formula during scanning.
func (b *documentBuffer) replace(token, repl string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !strings.Contains(b.doc, token) {
		return false
	}
	b.doc = strings.Replace(b.doc, token, repl, 1)
	return true
}

func (b *documentBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doc
}

// renderAll fans tasks out across the worker pool and merges every outcome
// back into buf: an image fragment on success, an inline error marker on
// failure, nothing for formulas that rendered to a zero-size page. Returned
// failures are sorted by task index. Cancelled tasks are drained as
// failures so no placeholder survives in the document.
func (s *Service) renderAll(ctx context.Context, buf *documentBuffer, tasks []Task, engine Engine, format Format, ppi float64) ([]Failure, []Warning, int) {
	if len(tasks) == 0 {
		return nil, nil, 0
	}

	workers := s.workers
	if workers > len(tasks) {
		workers = len(tasks)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex // guards failures, warnings, skipped
		failures  []Failure
		warnings  []Warning
		skipped   int
		completed atomic.Int64
	)
	total := len(tasks)
	jobs := make(chan int, total)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				task := tasks[i]
				substituted := true

				if err := ctx.Err(); err != nil {
					substituted = buf.replace(task.Token, pipeline.ErrorFragment(task.Source, err.Error()))
					mu.Lock()
					failures = append(failures, Failure{Index: task.Index, Source: task.Source, Mode: task.Mode, Err: err})
					mu.Unlock()
				} else {
					frag, taskErr, zero := s.renderTask(engine, task, format, ppi)
					switch {
					case taskErr != nil:
						substituted = buf.replace(task.Token, pipeline.ErrorFragment(task.Source, summaryLine(taskErr)))
						mu.Lock()
						failures = append(failures, Failure{Index: task.Index, Source: task.Source, Mode: task.Mode, Err: taskErr})
						mu.Unlock()
						s.logger.Warn("formula failed", "index", task.Index, "error", summaryLine(taskErr))
					case zero:
						substituted = buf.replace(task.Token, "")
						mu.Lock()
						warnings = append(warnings, Warning{Index: task.Index, Message: "rendered size is zero, nothing to embed"})
						skipped++
						mu.Unlock()
						s.logger.Warn("formula skipped", "index", task.Index, "reason", "zero-size page")
					default:
						substituted = buf.replace(task.Token, frag)
					}
				}
				if !substituted {
					mu.Lock()
					warnings = append(warnings, Warning{Index: task.Index, Message: "formula element was consumed by an enclosing formula, output dropped"})
					mu.Unlock()
					s.logger.Warn("formula dropped", "index", task.Index, "reason", "placeholder not present in document")
				}
				s.step(&completed, total)
			}
		}()
	}

	for i := range tasks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].Index < failures[j].Index })
	return failures, warnings, skipped
}

// renderTask compiles and encodes one formula. It never panics: internal
// failures surface as task errors so one bad formula cannot take down the
// whole render.
func (s *Service) renderTask(engine Engine, task Task, format Format, ppi float64) (frag string, err error, zero bool) {
	defer func() {
		if r := recover(); r != nil {
			frag, zero = "", false
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	page, err := engine.Compile(task.Source, task.Mode)
	if err != nil {
		return "", err, false
	}

	var data []byte
	switch format {
	case FormatPNG:
		data, err = page.PNG(ppi)
	default:
		data, err = page.SVG()
	}
	if err != nil {
		return "", fmt.Errorf("encoding formula: %w", err), false
	}
	if len(data) == 0 {
		return "", nil, true
	}

	widthPt, heightPt := page.Size()
	return pipeline.ImageFragment(pipeline.Image{
		ModeClass: string(task.Mode.Resolve()),
		MIME:      format.MIME(),
		Data:      data,
		WidthEm:   widthPt / BaseFontSizePt,
		HeightEm:  heightPt / BaseFontSizePt,
		Alt:       task.Source,
	}), nil, false
}

// step advances the completion counter and reports progress.
func (s *Service) step(completed *atomic.Int64, total int) {
	done := int(completed.Add(1))
	if s.onProgress != nil {
		s.onProgress(done, total)
	}
}
