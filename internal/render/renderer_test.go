package render_test

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/tinyrange/celltext/internal/gpu"
	"github.com/tinyrange/celltext/internal/gpu/gputest"
	"github.com/tinyrange/celltext/internal/render"
	"github.com/tinyrange/celltext/internal/text"
	"github.com/tinyrange/celltext/internal/text/texttest"
)

// newRenderer builds a renderer over a fake font with 10x8 pixel cells and
// a descent of 2.
func newRenderer(t *testing.T, opts render.Options) (*render.Renderer, *gputest.Backend, *texttest.Rasterizer) {
	t.Helper()
	b := gputest.New()
	ras := texttest.New(10, 8, 2)
	r, err := render.New(b, ras, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, b, ras
}

func TestNew(t *testing.T) {
	r, b, _ := newRenderer(t, render.Options{})

	if got := b.LivePrograms(); got != 1 {
		t.Errorf("LivePrograms = %d, want 1", got)
	}
	if got := b.LiveShaders(); got != 0 {
		t.Errorf("LiveShaders = %d, want 0", got)
	}
	srcs := b.Compiled()
	if len(srcs) != 2 {
		t.Fatalf("compiled %d shaders, want 2", len(srcs))
	}
	for _, want := range []string{"gridCoords", "uvAttr", "baseline", "cellSize", "windowSize"} {
		if !strings.Contains(srcs[0], want) {
			t.Errorf("vertex shader does not declare %s", want)
		}
	}
	for _, want := range []string{"drawFlag", "colored"} {
		if !strings.Contains(srcs[1], want) {
			t.Errorf("fragment shader does not declare %s", want)
		}
	}

	w, h := r.CellSize()
	if w != 10 || h != 8 {
		t.Errorf("CellSize = %vx%v, want 10x8", w, h)
	}
	if r.Lines() != 0 || r.Columns() != 0 {
		t.Errorf("new renderer has a %dx%d grid, want empty", r.Lines(), r.Columns())
	}
}

func TestResizeReflow(t *testing.T) {
	tests := []struct {
		width, height  int
		lines, columns int
	}{
		{800, 600, 75, 80},
		{809, 607, 75, 80},
		{10, 8, 1, 1},
		{1920, 1080, 135, 192},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d", tt.width, tt.height), func(t *testing.T) {
			r, b, _ := newRenderer(t, render.Options{})
			r.Resize(tt.width, tt.height)

			if r.Lines() != tt.lines || r.Columns() != tt.columns {
				t.Errorf("grid = %dx%d, want %dx%d", r.Lines(), r.Columns(), tt.lines, tt.columns)
			}
			if got, want := b.ViewportRect(), [4]int{0, 0, tt.width, tt.height}; got != want {
				t.Errorf("viewport = %v, want %v", got, want)
			}
			if got, _ := b.Vec2("windowSize"); got != [2]float32{float32(tt.width), float32(tt.height)} {
				t.Errorf("windowSize = %v", got)
			}
			want := [2]float32{2 / float32(tt.columns), 2 / float32(tt.lines)}
			if got, _ := b.Vec2("cellSize"); got != want {
				t.Errorf("cellSize = %v, want %v", got, want)
			}
		})
	}
}

func TestResizeTooSmallKeepsGrid(t *testing.T) {
	r, b, _ := newRenderer(t, render.Options{})
	r.Resize(800, 600)
	live := b.LiveBuffers()

	r.Resize(9, 600)
	if r.Lines() != 75 || r.Columns() != 80 {
		t.Errorf("grid = %dx%d after too-narrow resize, want 75x80", r.Lines(), r.Columns())
	}
	if got := b.LiveBuffers(); got != live {
		t.Errorf("LiveBuffers = %d, want %d", got, live)
	}
}

func TestSetSize(t *testing.T) {
	r, b, _ := newRenderer(t, render.Options{})

	r.SetSize(2, 2)
	r.SetSize(3, 5)
	if got := b.LiveBuffers(); got != 15 {
		t.Errorf("LiveBuffers = %d, want 15", got)
	}
	if got := b.DeletedBuffers(); got != 4 {
		t.Errorf("DeletedBuffers = %d, want 4", got)
	}
	for row := 0; row < 3; row++ {
		for col := 0; col < 5; col++ {
			c := r.Cell(row, col)
			if c == nil {
				t.Fatalf("Cell(%d, %d) = nil", row, col)
			}
			if gr, gc := c.Position(); gr != row || gc != col {
				t.Errorf("Cell(%d, %d).Position() = %d, %d", row, col, gr, gc)
			}
		}
	}
	if r.Cell(3, 0) != nil || r.Cell(0, 5) != nil {
		t.Errorf("Cell outside the grid is not nil")
	}
}

func TestSetSizeRejectsZero(t *testing.T) {
	r, b, _ := newRenderer(t, render.Options{})
	r.SetSize(3, 4)
	b.ResetOps()

	r.SetSize(0, 4)
	r.SetSize(3, 0)

	if r.Lines() != 3 || r.Columns() != 4 {
		t.Errorf("grid = %dx%d, want 3x4", r.Lines(), r.Columns())
	}
	if got := b.LiveBuffers(); got != 12 {
		t.Errorf("LiveBuffers = %d, want 12", got)
	}
	if ops := b.Ops(); len(ops) != 0 {
		t.Errorf("rejected sizes issued GPU calls: %v", ops)
	}
}

func TestSetTextOutOfBounds(t *testing.T) {
	r, b, _ := newRenderer(t, render.Options{})
	r.SetSize(2, 3)

	for _, p := range [][2]int{{2, 0}, {0, 3}, {-1, 0}, {0, -1}, {100, 100}} {
		r.SetText(p[0], p[1], 'x')
	}

	if got := r.GlyphCache().Len(); got != 0 {
		t.Errorf("GlyphCache().Len() = %d, want 0", got)
	}
	if got := b.LiveTextures(); got != 0 {
		t.Errorf("LiveTextures = %d, want 0", got)
	}
	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			if ch, _ := r.CharAt(row, col); ch != 0 {
				t.Errorf("CharAt(%d, %d) = %q, want empty", row, col, ch)
			}
		}
	}
}

func TestSetTextReplaces(t *testing.T) {
	r, _, _ := newRenderer(t, render.Options{})
	r.SetSize(1, 1)

	r.SetText(0, 0, 'A')
	r.SetText(0, 0, 'B')

	if ch, ok := r.CharAt(0, 0); !ok || ch != 'B' {
		t.Errorf("CharAt(0, 0) = %q, %v, want 'B', true", ch, ok)
	}
	cache := r.GlyphCache()
	for _, ch := range "AB" {
		if !cache.Contains(r.Font().GlyphKey(ch)) {
			t.Errorf("glyph cache is missing %q", ch)
		}
	}
	if got := cache.Len(); got != 2 {
		t.Errorf("GlyphCache().Len() = %d, want 2", got)
	}
}

func TestDrawFrameOrder(t *testing.T) {
	r, b, _ := newRenderer(t, render.Options{})
	r.SetSize(1, 2)
	r.SetText(0, 0, 'A')
	r.DrawFrame()

	glyph := r.GlyphCache().Get(r.Font().GlyphKey('A')).Texture
	first, second := r.Cell(0, 0).Buffers(), r.Cell(0, 1).Buffers()

	var got []string
	for _, d := range b.Draws() {
		cell := "?"
		switch d.Buffers {
		case first:
			cell = "0,0"
		case second:
			cell = "0,1"
		}
		got = append(got, fmt.Sprintf("%s flag=%d %s/%d wire=%v tex=%v",
			cell, d.DrawFlag, d.Draw.Primitive, d.Draw.Count, d.Draw.Wireframe, d.Texture == glyph))
	}
	want := []string{
		"0,0 flag=0 triangles/6 wire=false tex=true",
		"0,0 flag=1 line-loop/4 wire=true tex=true",
		"0,0 flag=2 line-loop/4 wire=true tex=true",
		"0,0 flag=3 line-loop/4 wire=true tex=true",
		"0,1 flag=0 triangles/6 wire=false tex=false",
		"0,1 flag=1 line-loop/4 wire=true tex=false",
		"0,1 flag=2 line-loop/4 wire=true tex=false",
		"0,1 flag=3 line-loop/4 wire=true tex=false",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("draw calls mismatch (-want +got):\n%s", diff)
	}
	if got := b.Clears(); got != 1 {
		t.Errorf("Clears = %d, want 1", got)
	}
	for _, d := range b.Draws() {
		if d.Program != b.Current() {
			t.Errorf("draw used program %d, want %d", d.Program, b.Current())
		}
	}
}

func TestDrawFrameColoredGlyphs(t *testing.T) {
	r, b, _ := newRenderer(t, render.Options{})
	r.SetSize(1, 3)
	r.SetText(0, 0, '\U0001F600')
	r.SetText(0, 1, 'A')
	r.DrawFrame()

	want := map[gpu.Buffers]int32{
		r.Cell(0, 0).Buffers(): 1,
		r.Cell(0, 1).Buffers(): 0,
		r.Cell(0, 2).Buffers(): 0,
	}
	if got := len(b.Draws()); got != 12 {
		t.Fatalf("draws = %d, want 12", got)
	}
	for _, d := range b.Draws() {
		if d.Colored != want[d.Buffers] {
			t.Errorf("draw of buffers %v pass %d: colored = %d, want %d", d.Buffers, d.DrawFlag, d.Colored, want[d.Buffers])
		}
	}
	if !r.Cell(0, 0).Colored() || r.Cell(0, 1).Colored() {
		t.Errorf("Cell.Colored = %v, %v, want true, false", r.Cell(0, 0).Colored(), r.Cell(0, 1).Colored())
	}
}

func TestInstanceRecord(t *testing.T) {
	// The fake glyph is 8x6 device pixels with a left bearing of 1 and its
	// top 6 pixels above a baseline that sits 2 pixels above the cell bottom.
	// The record is in device pixels, so the ratio must not change it.
	for _, dpr := range []float64{1, 2} {
		t.Run(fmt.Sprint("dpr=", dpr), func(t *testing.T) {
			r, b, _ := newRenderer(t, render.Options{DPR: dpr})
			r.SetSize(3, 4)
			r.SetText(2, 3, 'A')
			r.DrawFrame()

			cell := r.Cell(2, 3)
			var got []float32
			for _, d := range b.Draws() {
				if d.Buffers == cell.Buffers() && d.DrawFlag == int32(render.PassGlyph) {
					got = d.Instance
				}
			}
			want := []float32{3, 2, 8, 6, 1, 8, 2}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("instance record mismatch (-want +got):\n%s", diff)
			}

			layout, ok := b.Layout(cell.Buffers())
			if !ok {
				t.Fatalf("cell buffers are not live")
			}
			if diff := cmp.Diff(render.InstanceLayout, layout); diff != "" {
				t.Errorf("layout mismatch (-want +got):\n%s", diff)
			}
			if layout.Floats() != len(got) {
				t.Errorf("record has %d floats, layout declares %d", len(got), layout.Floats())
			}
			if diff := cmp.Diff([]uint32{0, 1, 2, 3, 0, 2}, b.Indices(cell.Buffers())); diff != "" {
				t.Errorf("indices mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRasterizerPixelRatio(t *testing.T) {
	tests := []struct {
		name        string
		scale, opts float64
		want        float64
	}{
		{"rasterizer only", 2, 0, 2},
		{"rasterizer wins", 2, 1, 2},
		{"options only", 0, 1.5, 1.5},
		{"neither", 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ras := texttest.New(10, 8, 2)
			ras.Scale = tt.scale
			r, err := render.New(gputest.New(), ras, render.Options{DPR: tt.opts})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := r.Font().DPR(); got != tt.want {
				t.Errorf("Font().DPR() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFontFallback(t *testing.T) {
	b := gputest.New()
	ras := texttest.New(10, 8, 2)
	ras.Missing = []string{"No Such Font"}

	r, err := render.New(b, ras, render.Options{Font: text.Description{Family: "No Such Font"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := r.Font().Description(); got != text.DefaultDescription {
		t.Errorf("font = %v, want %v", got, text.DefaultDescription)
	}
}

func TestFontUnavailable(t *testing.T) {
	b := gputest.New()
	ras := texttest.New(10, 8, 2)
	ras.Missing = []string{"No Such Font", text.DefaultDescription.Family}

	_, err := render.New(b, ras, render.Options{Font: text.Description{Family: "No Such Font"}})
	var cerr *render.CreationError
	if !errors.As(err, &cerr) || cerr.Kind != render.KindFont {
		t.Fatalf("New error = %v, want font CreationError", err)
	}
	if !errors.Is(err, text.ErrFontNotFound) {
		t.Errorf("errors.Is(%v, ErrFontNotFound) = false", err)
	}
	if got := b.LivePrograms(); got != 0 {
		t.Errorf("LivePrograms = %d, want 0", got)
	}
}

func TestCreationErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *gputest.Backend)
		opts  render.Options
		kind  render.ErrorKind
		path  string
		log   string
	}{
		{
			name:  "vertex compile",
			setup: func(b *gputest.Backend) { b.FailCompile[gpu.StageVertex] = "0:3: syntax error" },
			kind:  render.KindCompile,
			path:  render.VertexShaderFile,
			log:   "0:3: syntax error",
		},
		{
			name:  "fragment compile",
			setup: func(b *gputest.Backend) { b.FailCompile[gpu.StageFragment] = "0:9: undeclared identifier" },
			kind:  render.KindCompile,
			path:  render.FragmentShaderFile,
			log:   "0:9: undeclared identifier",
		},
		{
			name:  "link",
			setup: func(b *gputest.Backend) { b.FailLink = "varying mismatch" },
			kind:  render.KindLink,
			log:   "varying mismatch",
		},
		{
			name:  "unreadable override",
			setup: func(b *gputest.Backend) {},
			opts: render.Options{
				ShaderDir: "shaders",
				ShaderFS:  fstest.MapFS{render.VertexShaderFile: {Mode: fs.ModeDir}},
			},
			kind: render.KindIO,
			path: render.VertexShaderFile,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := gputest.New()
			tt.setup(b)

			_, err := render.New(b, texttest.New(10, 8, 2), tt.opts)
			var cerr *render.CreationError
			if !errors.As(err, &cerr) {
				t.Fatalf("New error = %v, want *CreationError", err)
			}
			if cerr.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", cerr.Kind, tt.kind)
			}
			if !strings.HasSuffix(cerr.Path, tt.path) {
				t.Errorf("Path = %q, want suffix %q", cerr.Path, tt.path)
			}
			if cerr.Log != tt.log {
				t.Errorf("Log = %q, want %q", cerr.Log, tt.log)
			}
			if b.LiveShaders() != 0 || b.LivePrograms() != 0 {
				t.Errorf("failed New leaked %d shaders and %d programs", b.LiveShaders(), b.LivePrograms())
			}
		})
	}
}

func TestShaderOverride(t *testing.T) {
	_, b, _ := newRenderer(t, render.Options{
		ShaderDir: "/etc/celltext/shaders",
		ShaderFS: fstest.MapFS{
			render.VertexShaderFile: {Data: []byte("#version 330 core\n// override\n")},
		},
	})

	srcs := b.Compiled()
	if len(srcs) != 2 {
		t.Fatalf("compiled %d shaders, want 2", len(srcs))
	}
	if !strings.Contains(srcs[0], "// override") {
		t.Errorf("vertex source is not the override: %q", srcs[0])
	}
	if !strings.Contains(srcs[1], "drawFlag") {
		t.Errorf("fragment source did not fall back to the embedded copy")
	}
}

func TestReloadShaders(t *testing.T) {
	r, b, _ := newRenderer(t, render.Options{})
	r.Resize(800, 600)
	before := b.Current()

	b.FailLink = "bad"
	err := r.ReloadShaders()
	var cerr *render.CreationError
	if !errors.As(err, &cerr) || cerr.Kind != render.KindLink {
		t.Fatalf("ReloadShaders error = %v, want link CreationError", err)
	}
	if got := b.Current(); got != before {
		t.Errorf("program after failed reload = %d, want %d", got, before)
	}

	b.FailLink = ""
	b.ResetOps()
	if err := r.ReloadShaders(); err != nil {
		t.Fatalf("ReloadShaders: %v", err)
	}
	if got := b.Current(); got == before || got == 0 {
		t.Errorf("program after reload = %d, want a new program", got)
	}
	if got := b.LivePrograms(); got != 1 {
		t.Errorf("LivePrograms = %d, want 1", got)
	}
	ops := strings.Join(b.Ops(), "\n")
	for _, want := range []string{"uniform cellSize ", "uniform windowSize 800 600"} {
		if !strings.Contains(ops, want) {
			t.Errorf("reload did not push %q; ops:\n%s", want, ops)
		}
	}
}

func TestClose(t *testing.T) {
	r, b, _ := newRenderer(t, render.Options{})
	r.SetSize(2, 2)
	r.SetText(0, 0, 'a')
	r.SetText(1, 1, 'b')

	r.Close()
	r.Close()

	if b.LiveBuffers() != 0 || b.LiveTextures() != 0 || b.LivePrograms() != 0 {
		t.Errorf("after Close: %d buffers, %d textures, %d programs live",
			b.LiveBuffers(), b.LiveTextures(), b.LivePrograms())
	}
	if got := b.DeletedTextures(); got != 2 {
		t.Errorf("DeletedTextures = %d, want 2", got)
	}
}

func TestGoMonoGrid(t *testing.T) {
	b := gputest.New()
	ras := text.NewRasterizer(1, text.WithLocators(text.EmbeddedLocator))
	defer ras.Close()

	r, err := render.New(b, ras, render.Options{FontSize: text.Points(14)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w, h := r.CellSize()
	if w < 1 || h <= w {
		t.Fatalf("CellSize = %vx%v, want a tall monospace cell", w, h)
	}

	r.Resize(800, 600)
	if got, want := r.Columns(), int(800/w); got != want {
		t.Errorf("Columns = %d, want %d", got, want)
	}
	if got, want := r.Lines(), int(600/h); got != want {
		t.Errorf("Lines = %d, want %d", got, want)
	}

	r.SetText(0, 0, 'g')
	g := r.GlyphCache().Get(r.Font().GlyphKey('g'))
	if g.Texture == 0 || g.Top-g.Height >= 0 {
		t.Errorf("'g' = %+v, want a textured glyph descending below the baseline", g)
	}
}
