//go:build !linux

package window

// New reports ErrUnsupportedPlatform.
func New(title string, width, height int) (Window, error) {
	return nil, ErrUnsupportedPlatform
}
