// Package rename sends notebook rename requests to the kernel session the
// editor is attached to.
package rename

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/deepkalilabs/marimo-cosmic/internal/domain"
	cerrors "github.com/deepkalilabs/marimo-cosmic/internal/domain/shared/errors"
	"github.com/deepkalilabs/marimo-cosmic/internal/infrastructure/logging"
)

// APIPath is the rename endpoint, relative to the application base.
const APIPath = "api/kernel/rename"

// NotConnectedMessage is reported when no session channel is open.
const NotConnectedMessage = "Failed to save notebook: not connected to a kernel."

// Connection is the session channel state the rename flow depends on.
type Connection interface {
	State() domain.ConnectionState
	SessionID() domain.SessionID
}

// URLResolver resolves API paths against the application base.
type URLResolver interface {
	ResolveHTTP(path string) (*url.URL, error)
}

// Service renames the notebook of one session.
type Service struct {
	conn       Connection
	resolver   URLResolver
	client     *http.Client
	userID     string
	notebookID string
	logger     *logging.Logger

	mu       sync.RWMutex
	filename string
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.client = client
		}
	}
}

// WithOwner sets the user and notebook identifiers sent with each rename.
func WithOwner(userID, notebookID string) Option {
	return func(s *Service) {
		s.userID = userID
		s.notebookID = notebookID
	}
}

// WithFilename sets the filename known before any rename.
func WithFilename(name string) Option {
	return func(s *Service) {
		s.filename = name
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a rename service bound to a session channel.
func NewService(conn Connection, resolver URLResolver, opts ...Option) *Service {
	s := &Service{
		conn:     conn,
		resolver: resolver,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Filename returns the last filename the backend accepted.
func (s *Service) Filename() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filename
}

// Rename asks the backend to rename the notebook to name and returns the
// accepted name. It fails without any request when the channel is not open.
func (s *Service) Rename(ctx context.Context, name string) (string, error) {
	if s.conn == nil || s.conn.State() != domain.StateOpen {
		return "", cerrors.NewNotConnectedError(NotConnectedMessage)
	}

	target, err := s.resolver.ResolveHTTP(APIPath)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(domain.RenameRequest{
		Filename:   name,
		UserID:     s.userID,
		NotebookID: s.notebookID,
	})
	if err != nil {
		return "", errors.Wrap(err, "encode rename request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build rename request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(domain.SessionIDHeader, string(s.conn.SessionID()))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", cerrors.NewRenameFailedError("rename request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := readDetail(resp.Body)
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		s.logger.Warn("rename rejected", logging.Fields{
			"session_id": string(s.conn.SessionID()),
			"status":     resp.StatusCode,
			"detail":     detail,
		})
		return "", cerrors.NewRenameFailedError(detail, fmt.Errorf("status %d", resp.StatusCode))
	}

	s.mu.Lock()
	s.filename = name
	s.mu.Unlock()

	s.logger.Info("notebook renamed", logging.Fields{
		"session_id": string(s.conn.SessionID()),
		"filename":   name,
	})
	return name, nil
}

func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var body domain.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return string(bytes.TrimSpace(raw))
}
