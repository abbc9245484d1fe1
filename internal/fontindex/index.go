// Package fontindex locates and parses fonts for the rendering engine.
//
// The index scans the platform font directories, plus any user-supplied
// ones, and resolves family, full and PostScript names to file paths. The
// scan is lazy and runs once; generic aliases like "serif" and "math" map
// to preference lists of commonly installed families.
package fontindex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/image/font/sfnt"

	"github.com/htexlab/go-htex/internal/fileutil"
)

// aliases maps generic font names to concrete families in preference
// order. Lookup falls through to the first installed candidate.
var aliases = map[string][]string{
	"serif": {
		"Liberation Serif", "DejaVu Serif", "Noto Serif", "Times New Roman",
		"FreeSerif", "Georgia",
	},
	"sans": {
		"Liberation Sans", "DejaVu Sans", "Noto Sans", "Arial", "Helvetica",
		"FreeSans",
	},
	"sans-serif": {
		"Liberation Sans", "DejaVu Sans", "Noto Sans", "Arial", "Helvetica",
		"FreeSans",
	},
	"mono": {
		"Liberation Mono", "DejaVu Sans Mono", "Noto Sans Mono", "Consolas",
		"Courier New", "FreeMono",
	},
	"monospace": {
		"Liberation Mono", "DejaVu Sans Mono", "Noto Sans Mono", "Consolas",
		"Courier New", "FreeMono",
	},
	"math": {
		"STIX Two Math", "Latin Modern Math", "XITS Math", "Asana Math",
		"TeX Gyre Termes Math", "DejaVu Math TeX Gyre", "Cambria Math",
		"DejaVu Serif", "Liberation Serif",
	},
}

// Index resolves font names to file paths. The directory scan runs once on
// first lookup; afterwards the index is read-only and safe for concurrent
// use.
type Index struct {
	dirs []string

	once   sync.Once
	byName map[string]location
}

type location struct {
	path  string
	index int
}

// New builds an index over the platform font directories plus any extra
// ones. Extra directories are scanned first, so their fonts win name
// collisions.
func New(extra ...string) *Index {
	dirs := make([]string, 0, len(extra)+4)
	dirs = append(dirs, extra...)
	dirs = append(dirs, platformFontDirs()...)
	return &Index{dirs: dirs}
}

// Locate resolves a family, full, PostScript or alias name to a font file
// path and face index. Matching is case-insensitive.
func (ix *Index) Locate(name string) (string, int, error) {
	if name == "" {
		return "", 0, errors.New("empty font name")
	}
	ix.once.Do(ix.scan)

	key := strings.ToLower(name)
	if loc, ok := ix.byName[key]; ok {
		return loc.path, loc.index, nil
	}
	if candidates, ok := aliases[key]; ok {
		for _, cand := range candidates {
			if loc, ok := ix.byName[strings.ToLower(cand)]; ok {
				return loc.path, loc.index, nil
			}
		}
		return "", 0, fmt.Errorf("no installed font matches alias %q", name)
	}
	return "", 0, errors.New("not found in any font directory")
}

// scan walks the font directories and registers every readable face.
// Unreadable files and non-font data are skipped.
func (ix *Index) scan() {
	ix.byName = make(map[string]location)
	for _, dir := range ix.dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !fileutil.IsFontFile(path) {
				return nil
			}
			ix.indexFile(path)
			return nil
		})
	}
}

func (ix *Index) indexFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	coll, err := sfnt.ParseCollection(data)
	if err != nil {
		return
	}
	var buf sfnt.Buffer
	for i := 0; i < coll.NumFonts(); i++ {
		fnt, err := coll.Font(i)
		if err != nil {
			continue
		}
		names := selectNames(fnt, &buf)
		ix.register(names.Family, path, i)
		ix.register(names.Full, path, i)
		ix.register(names.PostScript, path, i)
		if names.Family != "" && names.Subfamily != "" {
			ix.register(names.Family+" "+names.Subfamily, path, i)
		}
	}
}

// register records a name the first time it is seen; earlier directories
// keep precedence.
func (ix *Index) register(name, path string, faceIndex int) {
	if name == "" {
		return
	}
	key := strings.ToLower(name)
	if _, ok := ix.byName[key]; ok {
		return
	}
	ix.byName[key] = location{path: path, index: faceIndex}
}

// platformFontDirs lists the standard font locations for the current OS.
func platformFontDirs() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		dirs := []string{"/System/Library/Fonts", "/Library/Fonts"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Library", "Fonts"))
		}
		return dirs
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		dirs := []string{filepath.Join(windir, "Fonts")}
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			dirs = append(dirs, filepath.Join(local, "Microsoft", "Windows", "Fonts"))
		}
		return dirs
	default:
		dirs := []string{"/usr/share/fonts", "/usr/local/share/fonts"}
		if home != "" {
			dirs = append(dirs,
				filepath.Join(home, ".local", "share", "fonts"),
				filepath.Join(home, ".fonts"),
			)
		}
		return dirs
	}
}
