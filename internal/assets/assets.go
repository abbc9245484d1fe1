// Package assets provides the embedded stylesheets injected into converted
// documents. A stylesheet is selected by embedded name or loaded from a
// user-supplied CSS file path.
package assets

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/htexlab/go-htex/internal/fileutil"
	"github.com/htexlab/go-htex/internal/hints"
)

// Sentinel errors for stylesheet loading.
var (
	// ErrStyleNotFound indicates the requested embedded style does not exist.
	ErrStyleNotFound = errors.New("style not found")

	// ErrInvalidStyleName indicates the style name contains path separators
	// or other characters that could escape the embedded style directory.
	ErrInvalidStyleName = errors.New("invalid style name")

	// ErrStyleRead indicates an I/O error while reading a stylesheet file.
	ErrStyleRead = errors.New("failed to read style file")
)

// DefaultStyleName is the embedded stylesheet used when none is selected.
const DefaultStyleName = "htex"

//go:embed styles/*.css
var styles embed.FS

// LoadStyle returns CSS content by embedded style name or file path. A
// value containing a path separator is read from disk; anything else is
// looked up among the embedded styles, without the .css extension.
func LoadStyle(nameOrPath string) (string, error) {
	if fileutil.IsFilePath(nameOrPath) {
		content, err := os.ReadFile(nameOrPath) // #nosec G304 -- user-provided path
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStyleRead, err)
		}
		return string(content), nil
	}

	if err := validateStyleName(nameOrPath); err != nil {
		return "", err
	}
	content, err := styles.ReadFile("styles/" + nameOrPath + ".css")
	if err != nil {
		return "", fmt.Errorf("%w: %q%s", ErrStyleNotFound, nameOrPath,
			hints.ForStyleNotFound(StyleNames()))
	}
	return string(content), nil
}

// StyleNames lists the embedded style names, sorted.
func StyleNames() []string {
	entries, err := fs.ReadDir(styles, "styles")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".css"))
	}
	sort.Strings(names)
	return names
}

// validateStyleName rejects names that could address files outside the
// embedded style directory.
func validateStyleName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidStyleName)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidStyleName, name)
	}
	return nil
}
