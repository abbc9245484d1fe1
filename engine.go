package htex

import (
	"context"
	"errors"
	"fmt"

	"github.com/htexlab/go-htex/internal/fileutil"
	"github.com/htexlab/go-htex/internal/fontindex"
	"github.com/htexlab/go-htex/internal/hints"
	"github.com/htexlab/go-htex/internal/texmap"
	"github.com/htexlab/go-htex/internal/typeset"
)

// Engine compiles formula source text into measured pages. Implementations
// must be safe for concurrent use: one engine is shared read-only across
// all rendering workers.
type Engine interface {
	// Compile translates and lays out one formula.
	Compile(source string, mode Mode) (Page, error)
	// BodyFontName returns the resolved display name of the body font.
	BodyFontName() string
	// MathFontName returns the resolved display name of the math font.
	MathFontName() string
}

// Page is one compiled formula, ready for encoding.
type Page interface {
	// Size returns the page geometry in points.
	Size() (widthPt, heightPt float64)
	// SVG serializes the page as deterministic vector bytes.
	SVG() ([]byte, error)
	// PNG rasterizes the page at ppi pixels per inch. A page whose pixel
	// width or height rounds to zero yields empty bytes and no error.
	PNG(ppi float64) ([]byte, error)
}

// Compile-time interface checks.
var (
	_ Engine = (*typesetEngine)(nil)
	_ Page   = (*typesetPage)(nil)
)

// typesetEngine is the built-in engine: TeX-subset translation to Unicode
// runs, laid out and encoded with the configured fonts.
type typesetEngine struct {
	ts   *typeset.Typesetter
	body string
	math string
}

func (e *typesetEngine) BodyFontName() string { return e.body }
func (e *typesetEngine) MathFontName() string { return e.math }

func (e *typesetEngine) Compile(source string, mode Mode) (Page, error) {
	runs, err := texmap.Translate(source)
	if err != nil {
		return nil, asCompileError(source, err)
	}
	page, err := e.ts.Typeset(runs, mode.Display())
	if err != nil {
		return nil, asCompileError(source, err)
	}
	return &typesetPage{page: page}, nil
}

type typesetPage struct {
	page *typeset.Page
}

func (p *typesetPage) Size() (float64, float64) {
	return p.page.WidthPt, p.page.HeightPt
}

func (p *typesetPage) SVG() ([]byte, error) {
	return p.page.SVG()
}

func (p *typesetPage) PNG(ppi float64) ([]byte, error) {
	return p.page.PNG(ppi)
}

// asCompileError converts engine-native diagnostics into a *CompileError,
// preserving span, trace and hints when the underlying error carries them.
func asCompileError(source string, err error) error {
	ce := &CompileError{Message: err.Error(), Source: source}

	var terr *texmap.Error
	if errors.As(err, &terr) {
		ce.Message = terr.Msg
		ce.Span = &Span{Start: terr.Start, End: terr.End}
		for _, frame := range terr.Frames {
			ce.Trace = append(ce.Trace, fmt.Sprintf("in %s (chars %d..%d)", frame.Label, frame.Start, frame.End))
		}
		ce.Hints = append(ce.Hints, terr.Hints...)
		return ce
	}

	var gerr *typeset.GlyphError
	if errors.As(err, &gerr) {
		ce.Message = gerr.Error()
		ce.Span = &Span{Start: gerr.Start, End: gerr.End}
		ce.Hints = append(ce.Hints, hints.RawMissingGlyph(gerr.Font))
		return ce
	}

	return ce
}

// buildEngine resolves both font roles and constructs the typesetting
// engine. Called through the engine cache, once per font configuration.
func (s *Service) buildEngine(_ context.Context, style Style) (Engine, error) {
	body, err := s.resolveFont(style.BodyFont)
	if err != nil {
		return nil, fmt.Errorf("body font: %w", err)
	}
	math, err := s.resolveFont(style.MathFont)
	if err != nil {
		return nil, fmt.Errorf("math font: %w", err)
	}

	ts, err := typeset.New(body, math)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontParse, err)
	}

	s.logger.Debug("engine built",
		"body_font", body.Names.Family,
		"math_font", math.Names.Family,
	)
	return &typesetEngine{
		ts:   ts,
		body: displayName(body, style.BodyFont),
		math: displayName(math, style.MathFont),
	}, nil
}

// resolveFont turns a font source into a parsed face. Name sources go
// through the system font index; path and byte sources load directly.
func (s *Service) resolveFont(src FontSource) (*fontindex.Face, error) {
	switch {
	case len(src.Data) > 0:
		face, err := fontindex.FaceFromBytes(src.Data, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFontParse, err)
		}
		return face, nil

	case src.Path != "":
		path, err := fileutil.ExpandTilde(src.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFontSource, err)
		}
		if !fileutil.FileExists(path) {
			return nil, fmt.Errorf("%w: %s", ErrFontFileMissing, path)
		}
		face, err := fontindex.LoadFace(path, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFontParse, err)
		}
		return face, nil

	default:
		path, faceIndex, err := s.index.Locate(src.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v%s", ErrFontNotFound, src.Name, err,
				hints.ForFontNotFound())
		}
		face, err := fontindex.LoadFace(path, faceIndex)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFontParse, path, err)
		}
		return face, nil
	}
}

// displayName picks a human-readable name for log and report output.
func displayName(face *fontindex.Face, src FontSource) string {
	if face.Names.Family != "" {
		return face.Names.Family
	}
	if src.Name != "" {
		return src.Name
	}
	if src.Path != "" {
		return src.Path
	}
	return "embedded font"
}
