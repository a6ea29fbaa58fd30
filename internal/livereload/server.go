// Package livereload pushes rendered documents to preview clients over
// socket.io and follows a remote preview server.
package livereload

import (
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/zishang520/socket.io/v2/socket"
)

const (
	// Path is the mount point of the socket.io endpoint.
	Path = "/socket.io/"
	// EventRender carries a complete rendered document.
	EventRender = "render"
)

// Server broadcasts every published document to connected clients. A client
// that connects late receives the latest document immediately.
type Server struct {
	io     *socket.Server
	logger *slog.Logger

	mu     sync.Mutex
	latest string
	seq    uint64
}

// NewServer returns a server with no clients.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{io: socket.NewServer(nil, nil), logger: logger}

	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.logger.Debug("Preview client connected.", "sid", client.Id())

		s.mu.Lock()
		latest := s.latest
		s.mu.Unlock()
		if latest != "" {
			if err := client.Emit(EventRender, latest); err != nil {
				s.logger.Warn("Failed to send document to new client.", "sid", client.Id(), "error", err)
			}
		}
	})
	return s
}

// Handler serves the socket.io endpoint. Mount it at Path.
func (s *Server) Handler() http.Handler {
	return s.io.ServeHandler(nil)
}

// Publish records doc as the latest document and broadcasts it.
func (s *Server) Publish(doc string) {
	s.mu.Lock()
	s.latest = doc
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.logger.Debug("Publishing document.", "seq", seq, "bytes", len(doc))
	s.io.Emit(EventRender, doc)
}

// Latest returns the most recently published document.
func (s *Server) Latest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Close disconnects every client.
func (s *Server) Close() {
	s.io.Close(nil)
}
