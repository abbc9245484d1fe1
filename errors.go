package htex

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for library operations.
var (
	ErrEmptyInput     = errors.New("input document cannot be empty")
	ErrAmbiguousInput = errors.New("HTML and Markdown input are mutually exclusive")
	ErrScanDocument   = errors.New("document scan failed")
	ErrInternal       = errors.New("internal error")

	// Render parameter validation errors.
	ErrInvalidFormat  = errors.New("invalid output format")
	ErrInvalidPPI     = errors.New("invalid pixel density")
	ErrInvalidWorkers = errors.New("invalid worker count")

	// Font configuration errors.
	ErrFontSource      = errors.New("invalid font source")
	ErrFontFileMissing = errors.New("font file not found")
	ErrFontNotFound    = errors.New("font not found")
	ErrFontParse       = errors.New("font parsing failed")

	// Engine errors.
	ErrEngineBuild = errors.New("engine build failed")
	ErrCompile     = errors.New("formula compilation failed")
)

// Span marks a half-open rune range [Start, End) in formula source text.
type Span struct {
	Start int
	End   int
}

// CompileError is a structured formula diagnostic: a message, an optional
// source location, contextual frames (outermost first) and remediation
// hints. It matches ErrCompile under errors.Is.
type CompileError struct {
	Message string
	Source  string   // formula source the span refers to
	Span    *Span    // optional location within Source
	Trace   []string // contextual frames, outermost first
	Hints   []string
}

// Error formats the diagnostic as a single multi-line string: the message,
// then the offending source excerpt, then trace frames and hints.
func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Span != nil {
		fmt.Fprintf(&b, "\n  at chars %d..%d", e.Span.Start, e.Span.End)
		if excerpt := e.excerpt(); excerpt != "" {
			fmt.Fprintf(&b, ": %s", excerpt)
		}
	}
	for _, frame := range e.Trace {
		fmt.Fprintf(&b, "\n  %s", frame)
	}
	for _, hint := range e.Hints {
		fmt.Fprintf(&b, "\n  hint: %s", hint)
	}
	return b.String()
}

// Is matches the ErrCompile sentinel so callers can classify compile
// failures without depending on the concrete type.
func (e *CompileError) Is(target error) bool {
	return target == ErrCompile
}

// excerpt slices Source by the span's rune offsets, clamped to bounds.
func (e *CompileError) excerpt() string {
	if e.Span == nil || e.Source == "" {
		return ""
	}
	runes := []rune(e.Source)
	start, end := e.Span.Start, e.Span.End
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

// FormatErrorChain renders err and every wrapped cause, one per line, each
// cause indented one level deeper under a "caused by:" prefix. Text a
// wrapper shares with its cause is printed only once.
func FormatErrorChain(err error) string {
	var b strings.Builder
	depth := 0
	for err != nil {
		cause := errors.Unwrap(err)
		own := err.Error()
		if cause != nil {
			cs := cause.Error()
			switch {
			case own == cs:
				own = ""
			case strings.HasSuffix(own, ": "+cs):
				own = strings.TrimSuffix(own, ": "+cs)
			case strings.HasPrefix(own, cs+": "):
				own = strings.TrimPrefix(own, cs+": ")
			}
		}
		if own == "" {
			err = cause
			continue
		}
		indent := strings.Repeat("  ", depth)
		for i, line := range strings.Split(own, "\n") {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			if i == 0 && depth > 0 {
				b.WriteString(indent + "caused by: " + line)
			} else {
				b.WriteString(indent + line)
			}
		}
		depth++
		err = cause
	}
	return b.String()
}

// summaryLine returns the first line of an error message, for contexts
// that need a single-line rendering of a multi-line diagnostic.
func summaryLine(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
