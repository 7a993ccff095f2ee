package render

import "fmt"

// ErrorKind classifies a CreationError.
type ErrorKind int

const (
	KindIO ErrorKind = iota + 1
	KindCompile
	KindLink
	KindFont
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindCompile:
		return "compile"
	case KindLink:
		return "link"
	case KindFont:
		return "font"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// CreationError is returned when a Renderer cannot be built or its shaders
// cannot be rebuilt. Path names the shader source for KindIO and
// KindCompile; Log carries the compiler or linker output.
type CreationError struct {
	Kind ErrorKind
	Path string
	Log  string
	Err  error
}

func (e *CreationError) Error() string {
	switch e.Kind {
	case KindIO:
		return fmt.Sprintf("render: read shader %s: %v", e.Path, e.Err)
	case KindCompile:
		return fmt.Sprintf("render: compile %s: %s", e.Path, e.Log)
	case KindLink:
		return fmt.Sprintf("render: link program: %s", e.Log)
	case KindFont:
		return fmt.Sprintf("render: font: %v", e.Err)
	}
	return fmt.Sprintf("render: %v", e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}
