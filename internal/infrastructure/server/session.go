package server

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/deepkalilabs/marimo-cosmic/internal/domain"
)

// kernelSession is a connected session channel.
type kernelSession struct {
	id        domain.SessionID
	userAgent string
	conn      *websocket.Conn

	mu       sync.RWMutex
	filename string
	closed   bool

	writeMu sync.Mutex
}

func (s *kernelSession) Filename() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filename
}

func (s *kernelSession) setFilename(name string) {
	s.mu.Lock()
	s.filename = name
	s.mu.Unlock()
}

func (s *kernelSession) send(v interface{}) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrSessionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *kernelSession) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	_ = s.conn.Close()
}
