package window

import "testing"

func TestParseXftDPI(t *testing.T) {
	tests := []struct {
		in   string
		want float32
	}{
		{"Xft.antialias:\t1\nXft.dpi:\t144\nXft.hinting:\t1\n", 144},
		{"Xft.dpi: 96.5", 96.5},
		{"Xcursor.size:\t24\n", 0},
		{"Xft.dpi:\tlarge\n", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseXftDPI(tt.in); got != tt.want {
			t.Errorf("parseXftDPI(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRoundScale(t *testing.T) {
	tests := []struct {
		in, want float32
	}{
		{1.5, 1.5},
		{1.52, 1.5},
		{2.04, 2},
		{0.2, 0.5},
		{9, 4},
		{3.4, 3.4},
	}
	for _, tt := range tests {
		if got := roundScale(tt.in); got != tt.want {
			t.Errorf("roundScale(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEnvScale(t *testing.T) {
	env := map[string]string{"GDK_SCALE": "2", "QT_SCALE_FACTOR": "1.5"}
	if got := envScale(func(k string) string { return env[k] }); got != 2 {
		t.Errorf("envScale = %v, want 2", got)
	}
	if got := envScale(func(string) string { return "" }); got != 0 {
		t.Errorf("envScale with nothing set = %v, want 0", got)
	}
}

func TestDPIScale(t *testing.T) {
	if got := dpiScale(1920, 508); got < 0.999 || got > 1.001 {
		t.Errorf("dpiScale(1920, 508) = %v, want 1", got)
	}
	if got := dpiScale(1920, 0); got != 0 {
		t.Errorf("dpiScale without a physical size = %v, want 0", got)
	}
}
