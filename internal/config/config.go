// Package config holds the program settings read from a TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the complete program configuration.
type Config struct {
	Font    Font    `toml:"font"`
	Window  Window  `toml:"window"`
	Shaders Shaders `toml:"shaders"`
	Log     Log     `toml:"log"`
}

type Font struct {
	Family string  `toml:"family"`
	Style  string  `toml:"style"`
	Size   float64 `toml:"size"` // points
}

// Window sets the initial window, sized to hold Columns x Lines cells.
type Window struct {
	Title   string `toml:"title"`
	Columns int    `toml:"columns"`
	Lines   int    `toml:"lines"`
}

type Shaders struct {
	// Dir holds text.v.glsl and text.f.glsl overrides. Empty uses the
	// built-in shaders only.
	Dir   string `toml:"dir"`
	Watch bool   `toml:"watch"`
}

type Log struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Font:   Font{Family: "Go Mono", Style: "Regular", Size: 14},
		Window: Window{Title: "celltext", Columns: 10, Lines: 2},
		Log:    Log{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults;
// unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, parseError(path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseError is a malformed configuration file.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("parse error in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseError(path string, err error) error {
	perr := &ParseError{Path: path, Err: err}
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		perr.Line, perr.Column = derr.Position()
	}
	return perr
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Font.Size <= 0:
		return fmt.Errorf("font.size must be positive, got %v", c.Font.Size)
	case c.Window.Columns <= 0 || c.Window.Lines <= 0:
		return fmt.Errorf("window must have at least one column and line, got %dx%d", c.Window.Columns, c.Window.Lines)
	case c.Shaders.Watch && c.Shaders.Dir == "":
		return errors.New("shaders.watch needs shaders.dir")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps "debug", "info", "warn" or "error" to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
