package fontindex

import "golang.org/x/image/font/sfnt"

// Names holds the resolved name-table entries of one face.
type Names struct {
	Family     string
	Subfamily  string
	Full       string
	PostScript string
}

// nameSource is the subset of sfnt.Font used for name resolution.
type nameSource interface {
	Name(b *sfnt.Buffer, id sfnt.NameID) (string, error)
}

// selectNames reads display names from a face. Typographic family and
// subfamily entries are preferred; legacy entries fold style qualifiers
// into the family name and serve only as a fallback.
func selectNames(src nameSource, buf *sfnt.Buffer) Names {
	return Names{
		Family:     firstName(src, buf, sfnt.NameIDTypographicFamily, sfnt.NameIDFamily),
		Subfamily:  firstName(src, buf, sfnt.NameIDTypographicSubfamily, sfnt.NameIDSubfamily),
		Full:       firstName(src, buf, sfnt.NameIDFull),
		PostScript: firstName(src, buf, sfnt.NameIDPostScript),
	}
}

// firstName returns the first non-empty name among ids.
func firstName(src nameSource, buf *sfnt.Buffer, ids ...sfnt.NameID) string {
	for _, id := range ids {
		if s, err := src.Name(buf, id); err == nil && s != "" {
			return s
		}
	}
	return ""
}
