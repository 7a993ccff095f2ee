// Package gputest provides a recording gpu.Backend for tests. It performs
// no rendering: it hands out unique handles, keeps track of which objects
// are alive and records every call as a readable op string.
package gputest

import (
	"fmt"
	"slices"

	"github.com/tinyrange/celltext/internal/gpu"
)

var _ = gpu.Backend((*Backend)(nil))

// DrawCall is one recorded DrawInstanced call.
type DrawCall struct {
	Buffers  gpu.Buffers
	Texture  gpu.Texture
	Instance []float32
	Draw     gpu.Draw
	Program  gpu.Program
	DrawFlag int32 // value of the "drawFlag" uniform at draw time
	Colored  int32 // value of the "colored" uniform at draw time
}

// Backend is a fake gpu.Backend. The zero value is not usable; call New.
type Backend struct {
	// FailCompile maps a stage to the compiler log returned for it.
	FailCompile map[gpu.Stage]string
	// FailLink, when non-empty, is the linker log returned by LinkProgram.
	FailLink string
	// MissingUniforms lists uniform names resolved to -1.
	MissingUniforms []string

	next uint32
	ops  []string

	textures map[gpu.Texture]gpu.Bitmap
	buffers  map[gpu.Buffers]gpu.Layout
	indices  map[gpu.Buffers][]uint32
	programs map[gpu.Program]bool
	shaders  map[gpu.Shader]string
	compiled []string

	uniformNames map[gpu.Uniform]string
	uniformLocs  map[string]gpu.Uniform
	ints         map[string]int32
	vec2s        map[string][2]float32

	current  gpu.Program
	viewport [4]int
	clears   int
	draws    []DrawCall

	deletedTextures int
	deletedBuffers  int
}

// New returns an empty recording backend.
func New() *Backend {
	return &Backend{
		FailCompile:  make(map[gpu.Stage]string),
		textures:     make(map[gpu.Texture]gpu.Bitmap),
		buffers:      make(map[gpu.Buffers]gpu.Layout),
		indices:      make(map[gpu.Buffers][]uint32),
		programs:     make(map[gpu.Program]bool),
		shaders:      make(map[gpu.Shader]string),
		uniformNames: make(map[gpu.Uniform]string),
		uniformLocs:  make(map[string]gpu.Uniform),
		ints:         make(map[string]int32),
		vec2s:        make(map[string][2]float32),
	}
}

func (b *Backend) id() uint32 {
	b.next++
	return b.next
}

func (b *Backend) record(format string, args ...any) {
	b.ops = append(b.ops, fmt.Sprintf(format, args...))
}

func (b *Backend) Viewport(x, y, width, height int) {
	b.viewport = [4]int{x, y, width, height}
	b.record("viewport %d %d %d %d", x, y, width, height)
}

func (b *Backend) Clear() {
	b.clears++
	b.draws = b.draws[:0]
	b.record("clear")
}

func (b *Backend) CompileShader(stage gpu.Stage, source string) (gpu.Shader, error) {
	b.record("compile %s", stage)
	b.compiled = append(b.compiled, source)
	if log, ok := b.FailCompile[stage]; ok {
		return 0, &gpu.LogError{Stage: stage.String(), Log: log}
	}
	s := gpu.Shader(b.id())
	b.shaders[s] = source
	return s, nil
}

func (b *Backend) DeleteShader(s gpu.Shader) {
	b.record("delete-shader %d", s)
	delete(b.shaders, s)
}

func (b *Backend) LinkProgram(vs, fs gpu.Shader) (gpu.Program, error) {
	b.record("link %d %d", vs, fs)
	delete(b.shaders, vs)
	delete(b.shaders, fs)
	if b.FailLink != "" {
		return 0, &gpu.LogError{Stage: "link", Log: b.FailLink}
	}
	p := gpu.Program(b.id())
	b.programs[p] = true
	return p, nil
}

func (b *Backend) DeleteProgram(p gpu.Program) {
	b.record("delete-program %d", p)
	delete(b.programs, p)
	if b.current == p {
		b.current = 0
	}
}

func (b *Backend) UseProgram(p gpu.Program) {
	b.current = p
	b.record("use %d", p)
}

func (b *Backend) UniformLocation(p gpu.Program, name string) gpu.Uniform {
	if slices.Contains(b.MissingUniforms, name) {
		return -1
	}
	if u, ok := b.uniformLocs[name]; ok {
		return u
	}
	u := gpu.Uniform(len(b.uniformLocs))
	b.uniformLocs[name] = u
	b.uniformNames[u] = name
	return u
}

func (b *Backend) Uniform1i(u gpu.Uniform, v int32) {
	if name, ok := b.uniformNames[u]; ok {
		b.ints[name] = v
		b.record("uniform %s %d", name, v)
	}
}

func (b *Backend) Uniform2f(u gpu.Uniform, x, y float32) {
	if name, ok := b.uniformNames[u]; ok {
		b.vec2s[name] = [2]float32{x, y}
		b.record("uniform %s %g %g", name, x, y)
	}
}

func (b *Backend) CreateTexture(bmp gpu.Bitmap) gpu.Texture {
	t := gpu.Texture(b.id())
	b.textures[t] = bmp
	b.record("texture %d %dx%d %s", t, bmp.Width, bmp.Height, bmp.Format)
	return t
}

func (b *Backend) DeleteTexture(t gpu.Texture) {
	if t == 0 {
		return
	}
	if _, ok := b.textures[t]; ok {
		b.deletedTextures++
	}
	delete(b.textures, t)
	b.record("delete-texture %d", t)
}

func (b *Backend) CreateBuffers(layout gpu.Layout, indices []uint32) gpu.Buffers {
	bufs := gpu.Buffers{VAO: b.id(), VBO: b.id(), EBO: b.id()}
	b.buffers[bufs] = slices.Clone(layout)
	b.indices[bufs] = slices.Clone(indices)
	b.record("buffers %d", bufs.VAO)
	return bufs
}

func (b *Backend) DeleteBuffers(bufs gpu.Buffers) {
	if _, ok := b.buffers[bufs]; ok {
		b.deletedBuffers++
	}
	delete(b.buffers, bufs)
	delete(b.indices, bufs)
	b.record("delete-buffers %d", bufs.VAO)
}

func (b *Backend) DrawInstanced(bufs gpu.Buffers, t gpu.Texture, instance []float32, d gpu.Draw) {
	b.draws = append(b.draws, DrawCall{
		Buffers:  bufs,
		Texture:  t,
		Instance: slices.Clone(instance),
		Draw:     d,
		Program:  b.current,
		DrawFlag: b.ints["drawFlag"],
		Colored:  b.ints["colored"],
	})
	b.record("draw %d %s %d", bufs.VAO, d.Primitive, d.Count)
}

// Ops returns the recorded op log.
func (b *Backend) Ops() []string { return slices.Clone(b.ops) }

// ResetOps forgets the recorded op log.
func (b *Backend) ResetOps() { b.ops = nil }

// Draws returns the draw calls issued since the last Clear.
func (b *Backend) Draws() []DrawCall { return slices.Clone(b.draws) }

// Clears returns how many times Clear was called.
func (b *Backend) Clears() int { return b.clears }

// ViewportRect returns the last viewport rectangle as x, y, width, height.
func (b *Backend) ViewportRect() [4]int { return b.viewport }

// Current returns the program in use.
func (b *Backend) Current() gpu.Program { return b.current }

// Int returns the last value set for the named int uniform.
func (b *Backend) Int(name string) (int32, bool) {
	v, ok := b.ints[name]
	return v, ok
}

// Vec2 returns the last value set for the named vec2 uniform.
func (b *Backend) Vec2(name string) ([2]float32, bool) {
	v, ok := b.vec2s[name]
	return v, ok
}

// Texture returns the bitmap uploaded for a live texture.
func (b *Backend) Texture(t gpu.Texture) (gpu.Bitmap, bool) {
	bmp, ok := b.textures[t]
	return bmp, ok
}

// Layout returns the layout a live buffer set was created with.
func (b *Backend) Layout(bufs gpu.Buffers) (gpu.Layout, bool) {
	l, ok := b.buffers[bufs]
	return l, ok
}

// Indices returns the index list a live buffer set was created with.
func (b *Backend) Indices(bufs gpu.Buffers) []uint32 {
	return slices.Clone(b.indices[bufs])
}

// LiveTextures returns the number of textures not yet deleted.
func (b *Backend) LiveTextures() int { return len(b.textures) }

// LiveBuffers returns the number of buffer sets not yet deleted.
func (b *Backend) LiveBuffers() int { return len(b.buffers) }

// LivePrograms returns the number of programs not yet deleted.
func (b *Backend) LivePrograms() int { return len(b.programs) }

// LiveShaders returns the number of compiled shaders not yet linked.
func (b *Backend) LiveShaders() int { return len(b.shaders) }

// DeletedTextures returns how many live textures were deleted.
func (b *Backend) DeletedTextures() int { return b.deletedTextures }

// DeletedBuffers returns how many live buffer sets were deleted.
func (b *Backend) DeletedBuffers() int { return b.deletedBuffers }

// Compiled returns every source passed to CompileShader, in call order.
func (b *Backend) Compiled() []string { return slices.Clone(b.compiled) }
