// Package graphics connects a native window to the cell renderer: it
// forwards window events, keeps the displayed lines across reflows and runs
// the frame loop.
package graphics

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"time"
	"unsafe"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"

	"github.com/tinyrange/celltext/internal/config"
	glpkg "github.com/tinyrange/celltext/internal/gl"
	"github.com/tinyrange/celltext/internal/gpu"
	"github.com/tinyrange/celltext/internal/render"
	"github.com/tinyrange/celltext/internal/text"
	"github.com/tinyrange/celltext/internal/window"
)

// FrameRate is the frame loop's target rate.
const FrameRate = 120

// Screen is a window showing a grid of text lines.
type Screen struct {
	win        window.Window
	gl         glpkg.OpenGL // nil without a real GL context
	renderer   *render.Renderer
	rasterizer text.Rasterizer
	logger     *slog.Logger

	lines   []string
	watcher *shaderWatcher
	reload  <-chan struct{}
	closing bool
}

// New opens the window described by cfg, sized to hold
// cfg.Window.Columns x cfg.Window.Lines cells of the configured font.
func New(cfg config.Config, logger *slog.Logger) (*Screen, error) {
	if logger == nil {
		logger = slog.Default()
	}

	win, err := window.New(cfg.Window.Title, 640, 480)
	if err != nil {
		return nil, fmt.Errorf("open window: %w", err)
	}
	gl, err := win.GL()
	if err != nil {
		win.Close()
		return nil, fmt.Errorf("load OpenGL: %w", err)
	}
	logger.Info("opened window",
		"gl_vendor", gl.GetString(glpkg.Vendor),
		"gl_renderer", gl.GetString(glpkg.Renderer),
		"gl_version", gl.GetString(glpkg.Version),
		"glsl_version", gl.GetString(glpkg.ShadingLanguageVersion),
		"dpr", win.Scale(),
	)
	gl.ClearColor(0, 0, 0, 1)

	ras := text.NewRasterizer(float64(win.Scale()), text.WithLogger(logger))
	s, err := newScreen(win, gl, gpu.NewGL(gl), ras, cfg, logger)
	if err != nil {
		ras.Close()
		win.Close()
		return nil, err
	}
	return s, nil
}

func newScreen(win window.Window, gl glpkg.OpenGL, backend gpu.Backend, ras text.Rasterizer, cfg config.Config, logger *slog.Logger) (*Screen, error) {
	r, err := render.New(backend, ras, render.Options{
		DPR:       float64(win.Scale()),
		Font:      text.Description{Family: cfg.Font.Family, Style: cfg.Font.Style},
		FontSize:  text.Points(cfg.Font.Size),
		ShaderDir: cfg.Shaders.Dir,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	s := &Screen{
		win:        win,
		gl:         gl,
		renderer:   r,
		rasterizer: ras,
		logger:     logger,
	}

	if cfg.Shaders.Watch && cfg.Shaders.Dir != "" {
		w, err := watchShaders(cfg.Shaders.Dir, logger)
		if err != nil {
			r.Close()
			return nil, err
		}
		s.watcher = w
		s.reload = w.C
	}

	cw, ch := r.CellSize()
	width := int(math.Ceil(cw * float64(cfg.Window.Columns)))
	height := int(math.Ceil(ch * float64(cfg.Window.Lines)))
	win.SetSize(width, height)
	s.Resize(width, height)
	return s, nil
}

// Renderer returns the underlying cell renderer.
func (s *Screen) Renderer() *render.Renderer { return s.renderer }

// SetTitle sets the window title.
func (s *Screen) SetTitle(title string) {
	s.win.SetTitle(title)
}

// SetLine shows str on row. The text is kept and laid out again after every
// reflow. Wide runes take two cells and zero-width runes are dropped.
func (s *Screen) SetLine(row int, str string) {
	if row < 0 {
		return
	}
	for len(s.lines) <= row {
		s.lines = append(s.lines, "")
	}
	s.lines[row] = norm.NFC.String(str)
	s.applyLine(row)
}

// Line returns the text last set on row.
func (s *Screen) Line(row int) string {
	if row < 0 || row >= len(s.lines) {
		return ""
	}
	return s.lines[row]
}

func (s *Screen) applyLine(row int) {
	if row >= s.renderer.Lines() {
		return
	}
	columns := s.renderer.Columns()
	col := 0
	for _, r := range s.lines[row] {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col+w > columns {
			break
		}
		s.renderer.SetText(row, col, r)
		if w == 2 {
			s.renderer.SetText(row, col+1, ' ')
		}
		col += w
	}
	for ; col < columns; col++ {
		if ch, _ := s.renderer.CharAt(row, col); ch != 0 && ch != ' ' {
			s.renderer.SetText(row, col, ' ')
		}
	}
}

// Resize reflows the grid to a width x height pixel window and lays the
// remembered lines out again.
func (s *Screen) Resize(width, height int) {
	s.renderer.Resize(width, height)
	for row := range s.lines {
		s.applyLine(row)
	}
}

func (s *Screen) handle(ev window.Event) {
	switch ev.Type {
	case window.EventResize:
		s.Resize(ev.Width, ev.Height)
	case window.EventKey:
		switch ev.Key {
		case window.KeyEscape, window.KeyQ:
			s.closing = true
		case window.KeyF5:
			s.reloadShaders()
		}
	case window.EventClose:
		s.closing = true
	}
}

func (s *Screen) reloadShaders() {
	if err := s.renderer.ReloadShaders(); err != nil {
		s.logger.Error("shader reload failed, keeping previous program", "err", err)
	}
}

// Frame processes pending events and draws one frame. It reports false once
// the window is closing.
func (s *Screen) Frame() bool {
	if !s.win.Poll(s.handle) || s.closing {
		return false
	}
	select {
	case <-s.reload:
		s.reloadShaders()
	default:
	}
	s.renderer.DrawFrame()
	s.win.Swap()
	return true
}

// Run draws frames at FrameRate until the window closes or ctx is done.
func (s *Screen) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / FrameRate)
	defer ticker.Stop()

	for ctx.Err() == nil && s.Frame() {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// Screenshot draws a frame and reads it back.
func (s *Screen) Screenshot() (image.Image, error) {
	if s.gl == nil {
		return nil, errors.New("screenshot needs an OpenGL context")
	}
	s.renderer.DrawFrame()

	bw, bh := s.win.BackingSize()
	if bw <= 0 || bh <= 0 {
		return nil, fmt.Errorf("window has no backing store (%dx%d)", bw, bh)
	}
	rgba := image.NewRGBA(image.Rect(0, 0, bw, bh))
	s.gl.ReadPixels(0, 0, int32(bw), int32(bh), glpkg.RGBA, glpkg.UnsignedByte, unsafe.Pointer(&rgba.Pix[0]))
	return flipRows(rgba), nil
}

// flipRows turns a bottom-up GL read into a top-down image.
func flipRows(src *image.RGBA) *image.RGBA {
	h := src.Rect.Dy()
	dst := image.NewRGBA(src.Rect)
	for y := 0; y < h; y++ {
		copy(dst.Pix[(h-1-y)*dst.Stride:(h-y)*dst.Stride], src.Pix[y*src.Stride:(y+1)*src.Stride])
	}
	return dst
}

// Close releases GPU resources and closes the window.
func (s *Screen) Close() error {
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Close())
		s.watcher = nil
	}
	s.renderer.Close()
	if c, ok := s.rasterizer.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	s.win.Close()
	return errors.Join(errs...)
}
