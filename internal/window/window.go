// Package window opens a native window with an OpenGL 3.3 core context
// current on the calling thread, and reports its events.
package window

import (
	"errors"

	"github.com/tinyrange/celltext/internal/gl"
)

// ErrUnsupportedPlatform is returned by New where no window backend exists.
var ErrUnsupportedPlatform = errors.New("window: unsupported platform")

// EventType says which fields of an Event are set.
type EventType int

const (
	EventResize EventType = iota + 1 // Width, Height
	EventKey                         // Key
	EventClose
	EventExpose
)

// Key is a keyboard key. Only keys the program reacts to are named.
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyQ
	KeyF5
)

// Event is one window event.
type Event struct {
	Type   EventType
	Width  int // backing pixels
	Height int
	Key    Key
}

// Window is a native window owning a GL context. All methods must be
// called from the thread that created it.
type Window interface {
	GL() (gl.OpenGL, error)
	Close()
	// Poll drains pending events into handle and reports whether the
	// window is still open.
	Poll(handle func(Event)) bool
	Swap()
	BackingSize() (width, height int)
	Scale() float32
	SetTitle(title string)
	SetSize(width, height int)
}
