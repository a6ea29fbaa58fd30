package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vk/tlxgo/internal/ctxlog"
	"github.com/vk/tlxgo/internal/livereload"
)

// previewClient replaces the page body with every document the server pushes.
const previewClient = `<script src="https://cdn.socket.io/4.7.5/socket.io.min.js"></script>
<script>io().on("render", function (doc) { document.open(); document.write(doc); document.close(); });</script>`

// healthHandler reports that the preview server is up.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(a.ctx).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// pageHandler serves the latest document with the live preview client.
func (a *App) pageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, withPreviewClient(a.Document()))
}

func withPreviewClient(doc string) string {
	if i := strings.LastIndex(strings.ToLower(doc), "</body>"); i >= 0 {
		return doc[:i] + previewClient + doc[i:]
	}
	return doc + "\n" + previewClient
}

// previewMux routes the preview endpoints.
func (a *App) previewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.Handle(livereload.Path, a.preview.Handler())
	mux.HandleFunc("/", a.pageHandler)
	return mux
}

// startPreviewServer runs the preview server in the background.
func (a *App) startPreviewServer() {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Configuring preview server.")

	addr := fmt.Sprintf(":%d", a.config.ServePort)
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           a.previewMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Preview server starting", "address", fmt.Sprintf("http://localhost%s/", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Preview server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closePreviewServer() error {
	logger := ctxlog.FromContext(a.ctx)
	if a.preview != nil {
		a.preview.Close()
	}
	if a.httpServer == nil {
		logger.Debug("Preview server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("Shutting down preview server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Preview server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Preview server shut down gracefully.")
	return nil
}
