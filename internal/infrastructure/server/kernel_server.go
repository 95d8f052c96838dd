package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/deepkalilabs/marimo-cosmic/internal/domain"
	"github.com/deepkalilabs/marimo-cosmic/internal/infrastructure/logging"
)

// Default endpoint paths, relative to the base path.
const (
	DefaultSocketEndpoint = "/ws"
	DefaultRenameEndpoint = "/api/kernel/rename"
)

// KernelServer is the local kernel endpoint the editor connects to in
// development mode. It accepts session channels and serves the rename API.
type KernelServer struct {
	basePath       string
	socketEndpoint string
	renameEndpoint string
	sessions       sync.Map
	upgrader       websocket.Upgrader
	srv            *http.Server
	logger         *logging.Logger
}

// Option configures a KernelServer
type Option func(*KernelServer)

// WithBasePath mounts the endpoints under basePath
func WithBasePath(basePath string) Option {
	return func(s *KernelServer) {
		if basePath == "" {
			return
		}
		if !strings.HasPrefix(basePath, "/") {
			basePath = "/" + basePath
		}
		s.basePath = strings.TrimSuffix(basePath, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) Option {
	return func(s *KernelServer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCheckOrigin sets the origin check used when upgrading connections
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *KernelServer) {
		s.upgrader.CheckOrigin = fn
	}
}

// WithHTTPServer sets the HTTP server instance
func WithHTTPServer(srv *http.Server) Option {
	return func(s *KernelServer) {
		s.srv = srv
	}
}

// NewKernelServer creates a kernel server.
func NewKernelServer(opts ...Option) *KernelServer {
	s := &KernelServer{
		socketEndpoint: DefaultSocketEndpoint,
		renameEndpoint: DefaultRenameEndpoint,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger: logging.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewTestServer starts a KernelServer behind an httptest server.
func NewTestServer(opts ...Option) (*KernelServer, *httptest.Server) {
	ks := NewKernelServer(opts...)
	return ks, httptest.NewServer(ks)
}

// SocketPath returns the full path of the session channel endpoint.
func (s *KernelServer) SocketPath() string {
	return s.basePath + s.socketEndpoint
}

// RenamePath returns the full path of the rename endpoint.
func (s *KernelServer) RenamePath() string {
	return s.basePath + s.renameEndpoint
}

// Start serves on addr until Shutdown is called.
func (s *KernelServer) Start(addr string) error {
	if s.srv == nil {
		s.srv = &http.Server{}
	}
	s.srv.Addr = addr
	s.srv.Handler = s

	s.logger.Info("kernel server listening", logging.Fields{
		"addr":   addr,
		"socket": s.SocketPath(),
		"rename": s.RenamePath(),
	})
	return s.srv.ListenAndServe()
}

// Shutdown closes every session and stops the HTTP server.
func (s *KernelServer) Shutdown(ctx context.Context) error {
	s.sessions.Range(func(key, value interface{}) bool {
		if session, ok := value.(*kernelSession); ok {
			session.close()
		}
		s.sessions.Delete(key)
		return true
	})

	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// Filename returns the notebook filename recorded for a session.
func (s *KernelServer) Filename(id domain.SessionID) (string, bool) {
	session, ok := s.session(id)
	if !ok {
		return "", false
	}
	return session.Filename(), true
}

// SessionCount returns the number of connected sessions.
func (s *KernelServer) SessionCount() int {
	n := 0
	s.sessions.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

func (s *KernelServer) session(id domain.SessionID) (*kernelSession, bool) {
	v, ok := s.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*kernelSession), true
}

// handleSocket upgrades a session channel and keeps it registered until
// the peer goes away.
func (s *KernelServer) handleSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := domain.SessionID(r.URL.Query().Get(domain.QueryParamSessionID))
	if id == "" {
		s.writeError(w, http.StatusBadRequest, ErrMissingSessionID.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Fields{"error": err.Error()})
		return
	}

	session := &kernelSession{
		id:        id,
		userAgent: r.UserAgent(),
		conn:      conn,
		filename:  r.URL.Query().Get(domain.QueryParamFilePath),
	}

	if previous, loaded := s.sessions.Swap(id, session); loaded {
		s.logger.Warn("session reconnected, dropping previous channel", logging.Fields{"session_id": string(id)})
		previous.(*kernelSession).close()
	}
	defer func() {
		s.sessions.CompareAndDelete(id, session)
		session.close()
	}()

	log := s.logger.With(logging.Fields{"session_id": string(id)})
	log.Info("session connected", logging.Fields{"user_agent": session.userAgent})

	if err := session.send(domain.KernelReady{Op: domain.OpKernelReady, SessionID: id}); err != nil {
		log.Warn("failed to send kernel-ready", logging.Fields{"error": err.Error()})
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Info("session disconnected", logging.Fields{"reason": err.Error()})
			return
		}
	}
}

// handleRename renames the notebook attached to the calling session.
func (s *KernelServer) handleRename(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := domain.SessionID(r.Header.Get(domain.SessionIDHeader))
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "Missing "+domain.SessionIDHeader+" header")
		return
	}

	session, ok := s.session(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "session with ID "+string(id)+" not found")
		return
	}

	var req domain.RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Parse error")
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		s.writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	previous := session.Filename()
	session.setFilename(req.Filename)

	s.logger.Info("notebook renamed", logging.Fields{
		"session_id":  string(id),
		"from":        previous,
		"to":          req.Filename,
		"user_id":     req.UserID,
		"notebook_id": req.NotebookID,
	})

	if err := session.send(domain.FilenameChanged{Op: domain.OpFilenameChanged, Filename: req.Filename}); err != nil {
		s.logger.Warn("failed to notify session of rename", logging.Fields{"session_id": string(id), "error": err.Error()})
	}

	s.writeJSON(w, http.StatusOK, domain.SuccessResponse{Success: true})
}

func (s *KernelServer) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, domain.ErrorResponse{Detail: detail})
}

func (s *KernelServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", logging.Fields{"status": status, "error": err.Error()})
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *KernelServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case s.SocketPath():
		s.handleSocket(w, r)
	case s.RenamePath():
		s.handleRename(w, r)
	default:
		http.NotFound(w, r)
	}
}
