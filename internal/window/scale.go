package window

import (
	"os"
	"strconv"
	"strings"
)

var commonScales = []float32{0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 2.5, 3.0, 4.0}

// envScale returns the first positive scale set by GTK_SCALE, GDK_SCALE or
// QT_SCALE_FACTOR, or 0.
func envScale(getenv func(string) string) float32 {
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, name := range []string{"GTK_SCALE", "GDK_SCALE", "QT_SCALE_FACTOR"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(getenv(name)), 32)
		if err == nil && v > 0 {
			return float32(v)
		}
	}
	return 0
}

// parseXftDPI extracts Xft.dpi from an X resource manager string such as
// "Xft.antialias:\t1\nXft.dpi:\t144\n". It returns 0 when absent.
func parseXftDPI(resources string) float32 {
	for _, line := range strings.Split(resources, "\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) != "Xft.dpi" {
			continue
		}
		dpi, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
		if err != nil || dpi <= 0 {
			return 0
		}
		return float32(dpi)
	}
	return 0
}

// dpiScale converts a physical width in pixels and millimetres to a scale.
// Implausible densities give 0.
func dpiScale(px, mm int32) float32 {
	if px <= 0 || mm <= 0 {
		return 0
	}
	dpi := float32(px) / float32(mm) * 25.4
	if dpi < 72 || dpi > 300 {
		return 0
	}
	return dpi / 96
}

// roundScale snaps scale to a common factor within 0.1, otherwise clamps
// it to [0.5, 4].
func roundScale(scale float32) float32 {
	best, bestDiff := float32(1), float32(1000)
	for _, s := range commonScales {
		d := scale - s
		if d < 0 {
			d = -d
		}
		if d < bestDiff {
			best, bestDiff = s, d
		}
	}
	if bestDiff < 0.1 {
		return best
	}
	return min(max(scale, 0.5), 4)
}
