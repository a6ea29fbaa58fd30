package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/tlxgo/internal/ctxlog"
	"github.com/vk/tlxgo/internal/dom"
	"github.com/vk/tlxgo/internal/livereload"
	"github.com/vk/tlxgo/internal/reactor"
	"github.com/vk/tlxgo/internal/template"
)

// App owns one template document and its reactive model.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	ctx    context.Context
	engine *template.Engine

	// mu serialises every access to doc and model: initial resolution, model
	// writes from the watcher and rendering.
	mu    sync.Mutex
	doc   *dom.Node
	model *reactor.Store

	preview    *livereload.Server
	httpServer *http.Server
}

// NewApp returns an App that writes rendered output to outW and logs to logW.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		ctx:    ctxlog.WithLogger(context.Background(), logger),
		engine: template.New(template.WithLogger(logger)),
	}
}

// Document returns the rendered document.
func (a *App) Document() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.doc == nil {
		return ""
	}
	return dom.String(a.doc)
}

// Set writes value at the dotted path of the model and publishes the result.
func (a *App) Set(path string, value any) error {
	a.mu.Lock()
	err := setPath(a.model, path, value)
	a.mu.Unlock()
	if err != nil {
		return err
	}
	return a.flush()
}
