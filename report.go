package htex

import (
	"fmt"
	"strings"
)

// maxSourcePreview caps the formula source runes shown in report lines.
const maxSourcePreview = 40

// FormatFailure renders one failure report entry. The normal form is a
// single line; verbose output includes the full cause chain, one cause per
// indented line.
func FormatFailure(f Failure, verbose bool) string {
	head := fmt.Sprintf("formula #%d (%s)", f.Index, previewSource(f.Source))
	if f.Err == nil {
		return head
	}
	if !verbose {
		return head + ": " + summaryLine(f.Err)
	}
	return head + ":\n" + indentLines(FormatErrorChain(f.Err), "  ")
}

// previewSource compacts formula source for report lines: whitespace runs
// collapse to single spaces and long sources are truncated.
func previewSource(source string) string {
	s := strings.Join(strings.Fields(source), " ")
	runes := []rune(s)
	if len(runes) <= maxSourcePreview {
		return s
	}
	return string(runes[:maxSourcePreview]) + "..."
}

func indentLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
