//go:build !linux

package gl

import "errors"

// Load reports that no GL loader exists for this platform.
func Load() (OpenGL, error) {
	return nil, errors.New("gl: no loader for this platform")
}
