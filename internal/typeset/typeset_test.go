package typeset_test

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/htexlab/go-htex/internal/fontindex"
	"github.com/htexlab/go-htex/internal/texmap"
	"github.com/htexlab/go-htex/internal/typeset"
)

// testFace loads a font installed on the host, skipping the test when none
// is available. Test formulas stay ASCII so any regular text font works.
func testFace(t *testing.T) *fontindex.Face {
	t.Helper()

	candidates := []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/TTF/DejaVuSans.ttf",
		"/usr/share/fonts/truetype/liberation/LiberationSerif-Regular.ttf",
		"/System/Library/Fonts/Supplemental/Arial.ttf",
		`C:\Windows\Fonts\arial.ttf`,
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if face, err := fontindex.LoadFace(path, 0); err == nil {
			return face
		}
	}

	// Fall back to the first parseable font under the system directory.
	var face *fontindex.Face
	_ = filepath.WalkDir("/usr/share/fonts", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".ttf" && ext != ".otf" {
			return nil
		}
		if f, err := fontindex.LoadFace(path, 0); err == nil {
			face = f
			return fs.SkipAll
		}
		return nil
	})
	if face == nil {
		t.Skip("no usable system font installed")
	}
	return face
}

func newTypesetter(t *testing.T) *typeset.Typesetter {
	t.Helper()

	face := testFace(t)
	ts, err := typeset.New(face, face)
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	return ts
}

func mathRun(text string) []texmap.Run {
	return []texmap.Run{{Text: text, Font: texmap.FontMath, Start: 0, End: len(text)}}
}

// ---------------------------------------------------------------------------
// TestTypeset_EmptyRuns - the zero-size page
// ---------------------------------------------------------------------------

func TestTypeset_EmptyRuns(t *testing.T) {
	t.Parallel()

	ts := newTypesetter(t)
	page, err := ts.Typeset(nil, false)
	if err != nil {
		t.Fatalf("Typeset(nil) error = %v, want nil", err)
	}
	if page.WidthPt != 0 || page.HeightPt != 0 {
		t.Errorf("empty page size = %gx%g pt, want 0x0", page.WidthPt, page.HeightPt)
	}

	svgData, err := page.SVG()
	if err != nil || svgData != nil {
		t.Errorf("SVG() = (%v, %v), want (nil, nil)", svgData, err)
	}
	pngData, err := page.PNG(1200)
	if err != nil || pngData != nil {
		t.Errorf("PNG() = (%v, %v), want (nil, nil)", pngData, err)
	}
}

// ---------------------------------------------------------------------------
// TestTypeset_Dimensions - inline and display geometry
// ---------------------------------------------------------------------------

func TestTypeset_Dimensions(t *testing.T) {
	t.Parallel()

	ts := newTypesetter(t)

	inline, err := ts.Typeset(mathRun("x+y"), false)
	if err != nil {
		t.Fatalf("Typeset(inline) error = %v, want nil", err)
	}
	if inline.WidthPt <= 0 || inline.HeightPt <= 0 {
		t.Fatalf("inline page size = %gx%g pt, want positive", inline.WidthPt, inline.HeightPt)
	}

	display, err := ts.Typeset(mathRun("x+y"), true)
	if err != nil {
		t.Fatalf("Typeset(display) error = %v, want nil", err)
	}
	if display.WidthPt != inline.WidthPt {
		t.Errorf("display width = %g pt, want %g", display.WidthPt, inline.WidthPt)
	}
	if display.HeightPt < inline.HeightPt {
		t.Errorf("display height = %g pt, want at least inline height %g", display.HeightPt, inline.HeightPt)
	}
}

// ---------------------------------------------------------------------------
// TestTypeset_GapWhitespace - space runes advance without shaping
// ---------------------------------------------------------------------------

func TestTypeset_GapWhitespace(t *testing.T) {
	t.Parallel()

	ts := newTypesetter(t)

	plain, err := ts.Typeset(mathRun("ab"), false)
	if err != nil {
		t.Fatalf("Typeset(ab) error = %v, want nil", err)
	}
	spaced, err := ts.Typeset(mathRun("a\u2003b"), false)
	if err != nil {
		t.Fatalf("Typeset(a<em>b) error = %v, want nil", err)
	}

	// An em space at the ten point layout size adds ten points of width.
	if got := spaced.WidthPt - plain.WidthPt; got < 9 || got > 11 {
		t.Errorf("em space advance = %g pt, want about 10", got)
	}
}

// ---------------------------------------------------------------------------
// TestTypeset_GlyphError - uncovered runes fail with the run span
// ---------------------------------------------------------------------------

func TestTypeset_GlyphError(t *testing.T) {
	t.Parallel()

	ts := newTypesetter(t)

	runs := []texmap.Run{{Text: "x\u0378", Font: texmap.FontMath, Start: 3, End: 7}}
	_, err := ts.Typeset(runs, false)
	if err == nil {
		t.Fatal("Typeset() = nil error, want glyph error")
	}

	var gerr *typeset.GlyphError
	if !errors.As(err, &gerr) {
		t.Fatalf("error type = %T, want *typeset.GlyphError", err)
	}
	if gerr.Rune != '\u0378' {
		t.Errorf("Rune = %q, want %q", gerr.Rune, '\u0378')
	}
	if gerr.Start != 3 || gerr.End != 7 {
		t.Errorf("span = %d..%d, want 3..7", gerr.Start, gerr.End)
	}
	if gerr.Font == "" {
		t.Error("Font = empty, want a font name")
	}
	if !strings.Contains(gerr.Error(), "no glyph") {
		t.Errorf("Error() = %q, want mention of the missing glyph", gerr.Error())
	}
}

// ---------------------------------------------------------------------------
// TestPage_SVG - vector encoding
// ---------------------------------------------------------------------------

func TestPage_SVG(t *testing.T) {
	t.Parallel()

	ts := newTypesetter(t)

	page, err := ts.Typeset(mathRun("x+y"), false)
	if err != nil {
		t.Fatalf("Typeset() error = %v, want nil", err)
	}
	data, err := page.SVG()
	if err != nil {
		t.Fatalf("SVG() error = %v, want nil", err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Errorf("SVG() output does not contain an <svg> element")
	}

	// Identical input must encode to identical bytes.
	again, err := ts.Typeset(mathRun("x+y"), false)
	if err != nil {
		t.Fatalf("Typeset() error = %v, want nil", err)
	}
	againData, err := again.SVG()
	if err != nil {
		t.Fatalf("SVG() error = %v, want nil", err)
	}
	if !bytes.Equal(data, againData) {
		t.Error("SVG() output differs between identical pages")
	}
}

// ---------------------------------------------------------------------------
// TestPage_PNG - raster encoding and the zero-pixel rule
// ---------------------------------------------------------------------------

func TestPage_PNG(t *testing.T) {
	t.Parallel()

	ts := newTypesetter(t)

	page, err := ts.Typeset(mathRun("x+y"), false)
	if err != nil {
		t.Fatalf("Typeset() error = %v, want nil", err)
	}

	data, err := page.PNG(96)
	if err != nil {
		t.Fatalf("PNG(96) error = %v, want nil", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("PNG(96) output lacks the PNG signature")
	}

	// At one pixel per inch a ten point formula rounds to zero pixels.
	zero, err := page.PNG(1)
	if err != nil {
		t.Fatalf("PNG(1) error = %v, want nil", err)
	}
	if zero != nil {
		t.Errorf("PNG(1) = %d bytes, want nil for a zero-pixel page", len(zero))
	}
}
