package htex

import (
	"bytes"
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// styleDigest returns a stable cache key for a style's font configuration.
// Every field is length-prefixed so adjacent fields cannot collide, and raw
// font bytes participate fully: two styles digest equal exactly when they
// compare equal.
func styleDigest(s Style) [32]byte {
	var buf bytes.Buffer
	for _, src := range []FontSource{s.BodyFont, s.MathFont} {
		writeField(&buf, []byte(src.Name))
		writeField(&buf, []byte(src.Path))
		writeField(&buf, src.Data)
	}
	return blake3.Sum256(buf.Bytes())
}

func writeField(buf *bytes.Buffer, field []byte) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(field)))
	buf.Write(n[:])
	buf.Write(field)
}
