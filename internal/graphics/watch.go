package graphics

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/tinyrange/celltext/internal/render"
)

// shaderWatcher signals on C whenever a shader source in dir changes.
// Bursts of events collapse into one pending signal.
type shaderWatcher struct {
	C <-chan struct{}

	watcher *fsnotify.Watcher
	logger  *slog.Logger
	signal  chan struct{}
	done    sync.WaitGroup
}

func watchShaders(dir string, logger *slog.Logger) (*shaderWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch shaders: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch shaders in %s: %w", dir, err)
	}

	signal := make(chan struct{}, 1)
	w := &shaderWatcher{
		C:       signal,
		watcher: fsw,
		logger:  logger,
		signal:  signal,
	}
	w.done.Add(1)
	go w.loop()
	return w, nil
}

func (w *shaderWatcher) loop() {
	defer w.done.Done()
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if isShaderChange(ev) {
				w.logger.Debug("shader changed", "file", ev.Name, "op", ev.Op.String())
				select {
				case w.signal <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("shader watcher", "err", err)
		}
	}
}

func isShaderChange(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	switch filepath.Base(ev.Name) {
	case render.VertexShaderFile, render.FragmentShaderFile:
		return true
	}
	return false
}

func (w *shaderWatcher) Close() error {
	err := w.watcher.Close()
	w.done.Wait()
	return err
}
