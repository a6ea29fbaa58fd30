package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/tlxgo/internal/ctxlog"
)

// debounce is how long the watcher waits for writes to settle.
const debounce = 100 * time.Millisecond

// watcher reloads the model or template when their files change.
type watcher struct {
	app     *App
	fs      *fsnotify.Watcher
	files   map[string]bool
	mu      sync.Mutex
	pending map[string]*time.Timer
}

func (a *App) watch(ctx context.Context) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &watcher{app: a, fs: fsw, files: map[string]bool{}, pending: map[string]*time.Timer{}}

	dirs := map[string]bool{}
	for _, p := range []string{a.config.TemplatePath, a.config.ModelPath} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	// Watching directories survives editors that replace files on save.
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		ctxlog.FromContext(ctx).Info("Watching for changes.", "dir", dir)
	}

	go w.loop(ctx)
	return w, nil
}

func (w *watcher) loop(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path, err := filepath.Abs(event.Name)
			if err != nil || !w.files[path] {
				continue
			}
			w.schedule(path)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Error("Watcher error.", "error", err)
		}
	}
}

// schedule handles path once no further events arrive for it within debounce.
func (w *watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(debounce)
		return
	}
	w.pending[path] = time.AfterFunc(debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.app.reload(path)
	})
}

func (w *watcher) Close() error {
	w.mu.Lock()
	for _, t := range w.pending {
		t.Stop()
	}
	w.mu.Unlock()
	return w.fs.Close()
}

// reload applies a changed file. Model changes are merged key by key so only
// dependents of changed keys re-render; template changes rebuild the document.
func (a *App) reload(path string) {
	logger := a.logger.With("path", path)
	err := func() error {
		a.mu.Lock()
		defer a.mu.Unlock()

		if a.config.ModelPath != "" && sameFile(path, a.config.ModelPath) {
			data, err := readModel(a.config.ModelPath)
			if err != nil {
				return err
			}
			if err := merge(a.model, data); err != nil {
				return err
			}
			logger.Info("Model reloaded.")
			return a.applySets()
		}
		if err := a.load(); err != nil {
			return err
		}
		logger.Info("Template reloaded.")
		return nil
	}()
	if err != nil {
		logger.Error("Reload failed.", "error", err)
		return
	}
	if err := a.flush(); err != nil {
		logger.Error("Flush failed.", "error", err)
	}
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
