// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to
// error messages. Functions prefixed Raw return bare text for structured
// diagnostics that format hints themselves.
package hints

import (
	"strconv"
	"strings"
)

// ForFontNotFound returns hints for fonts the system index cannot locate.
func ForFontNotFound() string {
	return format("use --font-dir to add search directories, or pass a font file path")
}

// RawMissingGlyph returns bare hint text for characters the selected font
// cannot display.
func RawMissingGlyph(font string) string {
	return "font " + strconv.Quote(font) + " does not cover this character; pick a math font with wider coverage, e.g. STIX Two Math"
}

// RawUnknownCommand returns bare hint text for unrecognized formula
// commands, with an optional closest-match suggestion.
func RawUnknownCommand(suggestion string) string {
	if suggestion != "" {
		return "did you mean \\" + suggestion + "?"
	}
	return "only a small TeX command subset is supported"
}

// RawScriptChar returns bare hint text for characters without a Unicode
// superscript or subscript form.
func RawScriptChar(r rune, superscript bool) string {
	kind := "subscript"
	if superscript {
		kind = "superscript"
	}
	return "no Unicode " + kind + " form exists for " + strconv.QuoteRune(r)
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/htex/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	// Find a user config path (contains .config/htex) to suggest
	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/htex") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForStyleNotFound returns hints for style not found errors.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForUnsupportedInput returns hints for input files the converter does not
// accept.
func ForUnsupportedInput(supported []string) string {
	if len(supported) == 0 {
		return ""
	}
	return format("supported extensions: " + strings.Join(supported, ", "))
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}
