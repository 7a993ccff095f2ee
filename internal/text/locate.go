package text

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-text/typesetting/fontscan"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
)

// Locator finds the font file data for a description. Index selects a face
// inside a font collection.
type Locator interface {
	Locate(d Description) (data []byte, index int, err error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(d Description) ([]byte, int, error)

func (f LocatorFunc) Locate(d Description) ([]byte, int, error) { return f(d) }

var embeddedFamilies = []string{"go mono", "monospace", ""}

// EmbeddedLocator serves the Go Mono family compiled into the binary. It
// also answers the generic "monospace" family and the empty family.
var EmbeddedLocator Locator = LocatorFunc(locateEmbedded)

func locateEmbedded(d Description) ([]byte, int, error) {
	family := strings.ToLower(strings.TrimSpace(d.Family))
	if !slices.Contains(embeddedFamilies, family) {
		return nil, 0, fmt.Errorf("%w: %q", ErrFontNotFound, d.Family)
	}

	switch normalizeStyle(d.Style) {
	case "bold":
		return gomonobold.TTF, 0, nil
	case "italic":
		return gomonoitalic.TTF, 0, nil
	case "bold italic":
		return gomonobolditalic.TTF, 0, nil
	}
	return gomono.TTF, 0, nil
}

func normalizeStyle(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	switch s {
	case "", "regular", "normal", "book", "roman":
		return "regular"
	case "oblique":
		return "italic"
	case "bold oblique", "italic bold":
		return "bold italic"
	}
	return s
}

// SystemLocator finds installed fonts through a fontscan index. The index
// is built on first use and cached under the user's cache directory.
type SystemLocator struct {
	logger *slog.Logger

	once sync.Once
	fm   *fontscan.FontMap
	err  error
}

// NewSystemLocator returns a locator over the fonts installed on this machine.
func NewSystemLocator(logger *slog.Logger) *SystemLocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemLocator{logger: logger}
}

func (s *SystemLocator) init() {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	dir = filepath.Join(dir, "celltext")

	s.fm = fontscan.NewFontMap(slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug))
	if err := s.fm.UseSystemFonts(dir); err != nil {
		s.err = fmt.Errorf("index system fonts: %w", err)
	}
}

func (s *SystemLocator) Locate(d Description) ([]byte, int, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return nil, 0, s.err
	}
	if d.Family == "" {
		return nil, 0, fmt.Errorf("%w: empty family", ErrFontNotFound)
	}

	loc, ok := s.fm.FindSystemFont(d.Family)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrFontNotFound, d.Family)
	}
	if style := normalizeStyle(d.Style); style != "regular" {
		s.logger.Debug("system font lookup ignores style", "family", d.Family, "style", d.Style, "file", loc.File)
	}

	data, err := os.ReadFile(loc.File)
	if err != nil {
		return nil, 0, fmt.Errorf("read font %s: %w", loc.File, err)
	}
	return data, int(loc.Index), nil
}
