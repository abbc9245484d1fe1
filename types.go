package htex

import (
	"fmt"
	"time"

	"github.com/htexlab/go-htex/internal/fileutil"
)

// Output format constants.
const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// Pixel density bounds for PNG output, in pixels per inch.
const (
	MinPPI     = 18.0
	MaxPPI     = 12000.0
	DefaultPPI = 1200.0
)

// BaseFontSizePt is the size formulas are typeset at. Dividing a measured
// dimension by it yields the em value used for CSS sizing, so images scale
// with the surrounding text.
const BaseFontSizePt = 10.0

// Format selects the image encoding for rendered formulas.
type Format string

// Validate checks that the format is a known encoding.
func (f Format) Validate() error {
	switch f {
	case FormatSVG, FormatPNG:
		return nil
	}
	return fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidFormat, string(f), FormatSVG, FormatPNG)
}

// MIME returns the media type used in data URIs for this format.
func (f Format) MIME() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Formula layout mode constants. The values match the env attribute of
// formula elements in scanned documents.
const (
	ModeUnspecified Mode = ""
	ModeInline      Mode = "math"
	ModeDisplay     Mode = "displaymath"
)

// Mode selects inline or display layout for one formula.
type Mode string

// Resolve maps the unspecified mode to inline, the default layout.
func (m Mode) Resolve() Mode {
	if m == ModeDisplay {
		return ModeDisplay
	}
	return ModeInline
}

// Display reports whether the formula renders as a display block.
func (m Mode) Display() bool {
	return m == ModeDisplay
}

// FontSource selects a font by installed name, file path, or raw bytes.
// Exactly one field must be set. The zero value is invalid; Style fills
// unset roles with generic aliases before validation.
type FontSource struct {
	Name string // installed family or full name, or an alias like "serif"
	Path string // font file path, a leading ~ expands to the home directory
	Data []byte // raw TTF/OTF/TTC/OTC bytes
}

// SystemFont selects an installed font by name.
func SystemFont(name string) FontSource {
	return FontSource{Name: name}
}

// FontFile selects a font file on disk.
func FontFile(path string) FontSource {
	return FontSource{Path: path}
}

// FontBytes selects a font from raw container bytes.
func FontBytes(data []byte) FontSource {
	return FontSource{Data: data}
}

// IsZero reports whether no variant is set.
func (s FontSource) IsZero() bool {
	return s.Name == "" && s.Path == "" && len(s.Data) == 0
}

// Validate checks the exactly-one-variant invariant. File sources must
// point at an existing file after tilde expansion.
func (s FontSource) Validate() error {
	set := 0
	if s.Name != "" {
		set++
	}
	if s.Path != "" {
		set++
	}
	if len(s.Data) > 0 {
		set++
	}
	if set == 0 {
		return fmt.Errorf("%w: no font specified", ErrFontSource)
	}
	if set > 1 {
		return fmt.Errorf("%w: name, path and data are mutually exclusive", ErrFontSource)
	}
	if s.Path != "" {
		path, err := fileutil.ExpandTilde(s.Path)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFontSource, err)
		}
		if !fileutil.FileExists(path) {
			return fmt.Errorf("%w: %s", ErrFontFileMissing, path)
		}
	}
	return nil
}

// Style is the font configuration formulas are typeset with. It is the
// engine cache key: two styles select the same engine exactly when both
// fields compare equal, including raw font bytes.
type Style struct {
	BodyFont FontSource // prose inside \text{...}
	MathFont FontSource // everything else
}

// withDefaults fills unset font roles with the generic system aliases.
func (s Style) withDefaults() Style {
	if s.BodyFont.IsZero() {
		s.BodyFont = SystemFont("serif")
	}
	if s.MathFont.IsZero() {
		s.MathFont = SystemFont("math")
	}
	return s
}

// Validate checks both font sources.
func (s Style) Validate() error {
	if err := s.BodyFont.Validate(); err != nil {
		return fmt.Errorf("body font: %w", err)
	}
	if err := s.MathFont.Validate(); err != nil {
		return fmt.Errorf("math font: %w", err)
	}
	return nil
}

// Input contains the parameters for one document render.
type Input struct {
	HTML     string  // HTML document with <eq> formula elements
	Markdown string  // Markdown document; mutually exclusive with HTML
	Style    Style   // font configuration; zero value selects defaults
	Format   Format  // image encoding; zero value selects SVG
	PPI      float64 // PNG pixel density; zero value selects DefaultPPI
	CSS      string  // stylesheet injected into the output head (optional)
}

// withDefaults fills zero-valued parameters.
func (in Input) withDefaults() Input {
	in.Style = in.Style.withDefaults()
	if in.Format == "" {
		in.Format = FormatSVG
	}
	if in.PPI == 0 {
		in.PPI = DefaultPPI
	}
	return in
}

// validate checks the input after defaults are applied.
func (in Input) validate() error {
	if in.HTML == "" && in.Markdown == "" {
		return ErrEmptyInput
	}
	if in.HTML != "" && in.Markdown != "" {
		return ErrAmbiguousInput
	}
	if err := in.Format.Validate(); err != nil {
		return err
	}
	if in.PPI < MinPPI || in.PPI > MaxPPI {
		return fmt.Errorf("%w: %.1f (must be between %.1f and %.1f)", ErrInvalidPPI, in.PPI, MinPPI, MaxPPI)
	}
	return in.Style.Validate()
}

// Task is one formula extracted from a document, scheduled for rendering.
type Task struct {
	Index  int    // document-order position, 0-based
	Source string // formula source text
	Mode   Mode
	Token  string // placeholder occupying the formula's spot in the document
}

// Failure records one formula that could not be rendered. The document
// still carries an inline error marker at the formula's position.
type Failure struct {
	Index  int
	Source string
	Mode   Mode
	Err    error
}

// Warning is a non-fatal condition noticed during a render. Index is the
// task it concerns, or -1 when it applies to the document as a whole.
type Warning struct {
	Index   int
	Message string
}

// Stats summarizes one document render.
type Stats struct {
	Formulas int // formulas found in the document
	Failed   int // formulas replaced by error markers
	Skipped  int // formulas that rendered to nothing and were dropped
	Duration time.Duration
}

// Result is the outcome of one document render. Failures lists render
// errors sorted by task index; HTML is complete regardless, with failed
// formulas replaced by inline error markers.
type Result struct {
	HTML     string
	Failures []Failure
	Warnings []Warning
	Stats    Stats
}
