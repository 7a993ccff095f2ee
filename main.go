// Command celltext shows lines of text in a window, one glyph per grid cell.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tinyrange/celltext/internal/config"
	"github.com/tinyrange/celltext/internal/graphics"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := fs.String("config", "", "TOML configuration file")
	family := fs.String("font", "", "font family (overrides config)")
	size := fs.Float64("size", 0, "font size in points (overrides config)")
	shaderDir := fs.String("shaders", "", "directory with text.v.glsl and text.f.glsl overrides")
	watch := fs.Bool("watch", false, "reload shaders when files in -shaders change")
	screenshot := fs.String("screenshot", "", "write one frame to this PNG file and exit")
	verbose := fs.Bool("v", false, "log at debug level")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s [flags] [line...]\n", fs.Name())
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *family != "" {
		cfg.Font.Family = *family
	}
	if *size > 0 {
		cfg.Font.Size = *size
	}
	if *shaderDir != "" {
		cfg.Shaders.Dir = *shaderDir
	}
	if *watch {
		cfg.Shaders.Watch = true
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	lines := fs.Args()
	if len(lines) == 0 {
		lines = []string{"Hello"}
	}
	if len(lines) > cfg.Window.Lines {
		cfg.Window.Lines = len(lines)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	screen, err := graphics.New(cfg, logger)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer screen.Close()

	for i, line := range lines {
		screen.SetLine(i, line)
	}

	if *screenshot != "" {
		if err := saveScreenshot(screen, *screenshot); err != nil {
			log.Fatalf("screenshot: %v", err)
		}
		slog.Info("saved screenshot", "path", *screenshot)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := screen.Run(ctx); err != nil {
		log.Fatalf("run loop: %v", err)
	}
}

func saveScreenshot(screen *graphics.Screen, path string) error {
	// Let the window map and report its real size first.
	screen.Frame()

	img, err := screen.Screenshot()
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create screenshot file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode screenshot: %w", err)
	}
	return file.Close()
}
