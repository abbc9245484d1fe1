// Package typeset lays out translated formula runs and encodes the result
// as SVG or PNG.
//
// Runs are shaped at a fixed reference size of ten points and placed on a
// shared baseline; pages report their geometry in points. Glyphs become
// outline paths at layout time, so encoded pages carry no font data and
// identical input produces identical bytes. Shaping goes through font
// family caches that are not safe for concurrent use: layout is serialized
// on the typesetter, encoding of finished pages is not.
package typeset

import (
	"bytes"
	"fmt"
	"image/png"
	"math"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/htexlab/go-htex/internal/fontindex"
	"github.com/htexlab/go-htex/internal/texmap"
)

// sizePt is the reference layout size: one em equals ten points.
const sizePt = 10.0

// wordSpaceEm is the advance for whitespace that is laid out as a gap
// rather than shaped through the font.
const wordSpaceEm = 1.0 / 3.0

// spaceWidths gives em advances for space characters with a fixed width.
// Other space runes fall back to wordSpaceEm.
var spaceWidths = map[rune]float64{
	' ': 1.0,       // em space
	' ': 1.0 / 3.0, // three-per-em space
	' ': 1.0 / 4.0, // four-per-em space
	' ': 1.0 / 6.0, // thin space
}

// GlyphError reports a character the selected font cannot display. Start
// and End are rune offsets into the formula source.
type GlyphError struct {
	Font  string
	Rune  rune
	Start int
	End   int
}

func (e *GlyphError) Error() string {
	return fmt.Sprintf("font %q has no glyph for %q", e.Font, e.Rune)
}

// Typesetter shapes formula runs with a body and a math face. It is safe
// for concurrent use.
type Typesetter struct {
	mu   sync.Mutex
	body roleFace
	math roleFace
}

// roleFace bundles one configured font with its canvas face and cached
// metrics in millimeters.
type roleFace struct {
	src     *fontindex.Face
	face    *canvas.FontFace
	metrics canvas.FontMetrics
	name    string
}

// New builds a typesetter from parsed body and math faces.
func New(body, math *fontindex.Face) (*Typesetter, error) {
	t := &Typesetter{}
	var err error
	if t.body, err = newRoleFace(body, "body"); err != nil {
		return nil, err
	}
	if t.math, err = newRoleFace(math, "math"); err != nil {
		return nil, err
	}
	return t, nil
}

func newRoleFace(src *fontindex.Face, role string) (roleFace, error) {
	family := canvas.NewFontFamily(role)
	if err := family.LoadFont(src.Data, src.Index, canvas.FontRegular); err != nil {
		return roleFace{}, fmt.Errorf("loading %s font: %w", role, err)
	}
	face := family.Face(sizePt, canvas.Black, canvas.FontRegular, canvas.FontNormal)

	name := src.Names.Family
	if name == "" {
		name = role + " font"
	}
	return roleFace{src: src, face: face, metrics: face.Metrics(), name: name}, nil
}

// Typeset lays out runs on one line. Display pages get the full line height
// of the fonts involved with the content centered in it; inline pages are
// exactly ascent plus descent. An empty run list yields a zero-size page.
func (t *Typesetter) Typeset(runs []texmap.Run, display bool) (*Page, error) {
	if len(runs) == 0 {
		return &Page{}, nil
	}
	if err := t.checkCoverage(runs); err != nil {
		return nil, err
	}

	lay, err := t.shape(runs)
	if err != nil {
		return nil, err
	}

	heightMM := lay.ascent + lay.descent
	baseline := lay.descent
	if display && lay.lineHeight > heightMM {
		baseline += (lay.lineHeight - heightMM) / 2
		heightMM = lay.lineHeight
	}

	c := canvas.New(lay.widthMM, heightMM)
	ctx := canvas.NewContext(c)
	ctx.SetFillColor(canvas.Black)
	for _, pc := range lay.pieces {
		ctx.DrawPath(pc.x, baseline, pc.path)
	}

	return &Page{
		WidthPt:  mmToPt(lay.widthMM),
		HeightPt: mmToPt(heightMM),
		widthMM:  lay.widthMM,
		heightMM: heightMM,
		c:        c,
	}, nil
}

// checkCoverage rejects runs whose font lacks a glyph for any shaped rune.
// Gap whitespace never reaches the font and is exempt.
func (t *Typesetter) checkCoverage(runs []texmap.Run) error {
	for _, run := range runs {
		rf := t.roleFor(run.Font)
		for _, r := range run.Text {
			if _, gap := gapWidth(r); gap {
				continue
			}
			if !rf.src.Covers(r) {
				return &GlyphError{Font: rf.name, Rune: r, Start: run.Start, End: run.End}
			}
		}
	}
	return nil
}

// piece is one shaped text segment positioned on the baseline.
type piece struct {
	path *canvas.Path
	x    float64
}

// layout is the measured result of shaping all runs.
type layout struct {
	pieces     []piece
	widthMM    float64
	ascent     float64
	descent    float64
	lineHeight float64
}

// shape converts run text into positioned outline paths under the font
// lock. Gap whitespace advances the cursor without shaping.
func (t *Typesetter) shape(runs []texmap.Run) (layout, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	emMM := ptToMM(sizePt)
	var lay layout

	for _, run := range runs {
		rf := t.roleFor(run.Font)
		lay.ascent = math.Max(lay.ascent, rf.metrics.Ascent)
		lay.descent = math.Max(lay.descent, rf.metrics.Descent)
		lay.lineHeight = math.Max(lay.lineHeight, rf.metrics.LineHeight)

		start := 0
		for i, r := range run.Text {
			w, gap := gapWidth(r)
			if !gap {
				continue
			}
			if start < i {
				if err := lay.shapeSegment(rf.face, run.Text[start:i]); err != nil {
					return layout{}, err
				}
			}
			lay.widthMM += w * emMM
			start = i + utf8.RuneLen(r)
		}
		if start < len(run.Text) {
			if err := lay.shapeSegment(rf.face, run.Text[start:]); err != nil {
				return layout{}, err
			}
		}
	}
	return lay, nil
}

func (l *layout) shapeSegment(face *canvas.FontFace, seg string) error {
	p, adv, err := face.ToPath(seg)
	if err != nil {
		return fmt.Errorf("shaping %q: %w", seg, err)
	}
	l.pieces = append(l.pieces, piece{path: p, x: l.widthMM})
	l.widthMM += adv
	return nil
}

func (t *Typesetter) roleFor(f texmap.RunFont) *roleFace {
	if f == texmap.FontBody {
		return &t.body
	}
	return &t.math
}

// gapWidth returns the em advance for runes laid out as plain gaps. ASCII
// space is shaped through the font and is not a gap.
func gapWidth(r rune) (float64, bool) {
	if w, ok := spaceWidths[r]; ok {
		return w, true
	}
	if r != ' ' && unicode.IsSpace(r) {
		return wordSpaceEm, true
	}
	return 0, false
}

// Page is one laid-out formula. The zero value is the empty page: zero
// size, and both encoders return nil bytes.
type Page struct {
	WidthPt  float64
	HeightPt float64

	widthMM  float64
	heightMM float64
	c        *canvas.Canvas
}

// SVG encodes the page as a self-contained vector image.
func (p *Page) SVG() ([]byte, error) {
	if p.c == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	r := svg.New(&buf, p.widthMM, p.heightMM, nil)
	p.c.RenderTo(r)
	if err := r.Close(); err != nil {
		return nil, fmt.Errorf("encoding svg: %w", err)
	}
	return buf.Bytes(), nil
}

// PNG rasterizes the page at ppi pixels per inch. A page whose pixel width
// or height rounds to zero yields nil bytes and no error.
func (p *Page) PNG(ppi float64) ([]byte, error) {
	if p.c == nil {
		return nil, nil
	}
	px := int(math.Round(p.WidthPt * ppi / 72.0))
	py := int(math.Round(p.HeightPt * ppi / 72.0))
	if px == 0 || py == 0 {
		return nil, nil
	}

	img := rasterizer.Draw(p.c, canvas.DPI(ppi), canvas.DefaultColorSpace)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

func ptToMM(pt float64) float64 { return pt * 25.4 / 72.0 }

func mmToPt(mm float64) float64 { return mm * 72.0 / 25.4 }
