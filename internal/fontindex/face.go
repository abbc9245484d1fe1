package fontindex

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font/sfnt"
)

// Face is one parsed font face. Data and Index address the face inside its
// source file; Names carries its resolved name-table entries.
type Face struct {
	Data  []byte
	Index int
	Names Names

	mu  sync.Mutex
	buf sfnt.Buffer
	fnt *sfnt.Font
}

// LoadFace reads and parses one face from a font file.
func LoadFace(path string, index int) (*Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading font file: %w", err)
	}
	face, err := FaceFromBytes(data, index)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return face, nil
}

// FaceFromBytes parses one face from raw font bytes. Plain font files parse
// as single-face collections, so index 0 always addresses them.
func FaceFromBytes(data []byte, index int) (*Face, error) {
	coll, err := sfnt.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	if index < 0 || index >= coll.NumFonts() {
		return nil, fmt.Errorf("font has %d faces, face %d does not exist", coll.NumFonts(), index)
	}
	fnt, err := coll.Font(index)
	if err != nil {
		return nil, fmt.Errorf("parsing face %d: %w", index, err)
	}

	face := &Face{Data: data, Index: index, fnt: fnt}
	face.Names = selectNames(fnt, &face.buf)
	return face, nil
}

// Covers reports whether the face has a real glyph for r. Safe for
// concurrent use.
func (f *Face) Covers(r rune) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	gi, err := f.fnt.GlyphIndex(&f.buf, r)
	return err == nil && gi != 0
}
