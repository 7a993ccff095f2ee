package render

import (
	"embed"
	"errors"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/tinyrange/celltext/internal/gpu"
)

// Shader file names, looked up in the override directory first.
const (
	VertexShaderFile   = "text.v.glsl"
	FragmentShaderFile = "text.f.glsl"
)

//go:embed shaders/*.glsl
var embeddedShaders embed.FS

type shaderSource struct {
	path string
	src  string
}

// shaderLoader reads shader sources from an optional override file system,
// falling back to the embedded copies for files it does not have.
type shaderLoader struct {
	fsys fs.FS
	dir  string // for error messages only
}

func (l shaderLoader) load(name string) (shaderSource, error) {
	if l.fsys != nil {
		p := filepath.Join(l.dir, name)
		data, err := fs.ReadFile(l.fsys, name)
		switch {
		case err == nil:
			return shaderSource{path: p, src: string(data)}, nil
		case !errors.Is(err, fs.ErrNotExist):
			return shaderSource{}, &CreationError{Kind: KindIO, Path: p, Err: err}
		}
	}

	p := path.Join("shaders", name)
	data, err := embeddedShaders.ReadFile(p)
	if err != nil {
		return shaderSource{}, &CreationError{Kind: KindIO, Path: "embedded:" + p, Err: err}
	}
	return shaderSource{path: "embedded:" + p, src: string(data)}, nil
}

// buildProgram compiles and links the text program. Nothing is left
// allocated when it fails.
func buildProgram(backend gpu.Backend, l shaderLoader) (gpu.Program, error) {
	vsrc, err := l.load(VertexShaderFile)
	if err != nil {
		return 0, err
	}
	fsrc, err := l.load(FragmentShaderFile)
	if err != nil {
		return 0, err
	}

	vert, err := compile(backend, gpu.StageVertex, vsrc)
	if err != nil {
		return 0, err
	}
	frag, err := compile(backend, gpu.StageFragment, fsrc)
	if err != nil {
		backend.DeleteShader(vert)
		return 0, err
	}

	program, err := backend.LinkProgram(vert, frag)
	if err != nil {
		return 0, &CreationError{Kind: KindLink, Log: logOf(err), Err: err}
	}
	return program, nil
}

func compile(backend gpu.Backend, stage gpu.Stage, s shaderSource) (gpu.Shader, error) {
	sh, err := backend.CompileShader(stage, s.src)
	if err != nil {
		return 0, &CreationError{Kind: KindCompile, Path: s.path, Log: logOf(err), Err: err}
	}
	return sh, nil
}

func logOf(err error) string {
	var lerr *gpu.LogError
	if errors.As(err, &lerr) {
		return lerr.Log
	}
	return err.Error()
}
