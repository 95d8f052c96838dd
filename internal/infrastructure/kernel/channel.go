// Package kernel implements the client side of the session channel: a
// WebSocket opened against the URL produced by the endpoint resolver.
package kernel

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/deepkalilabs/marimo-cosmic/internal/domain"
	cerrors "github.com/deepkalilabs/marimo-cosmic/internal/domain/shared/errors"
	"github.com/deepkalilabs/marimo-cosmic/internal/infrastructure/logging"
)

const closeGracePeriod = time.Second

// Channel is an open session channel.
type Channel struct {
	conn      *websocket.Conn
	sessionID domain.SessionID
	logger    *logging.Logger

	stateMu sync.RWMutex
	state   domain.ConnectionState

	writeMu   sync.Mutex
	ready     chan struct{}
	readyOnce sync.Once
	messages  chan []byte
	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

type dialConfig struct {
	dialer     *websocket.Dialer
	header     http.Header
	logger     *logging.Logger
	bufferSize int
}

// DialOption configures Dial.
type DialOption func(*dialConfig)

// WithDialer replaces the default gorilla dialer.
func WithDialer(d *websocket.Dialer) DialOption {
	return func(c *dialConfig) {
		c.dialer = d
	}
}

// WithHeader adds request headers to the opening handshake.
func WithHeader(h http.Header) DialOption {
	return func(c *dialConfig) {
		c.header = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) DialOption {
	return func(c *dialConfig) {
		c.logger = logger
	}
}

// WithMessageBuffer sets how many inbound messages are queued before the
// read loop blocks.
func WithMessageBuffer(n int) DialOption {
	return func(c *dialConfig) {
		if n >= 0 {
			c.bufferSize = n
		}
	}
}

// Dial opens the session channel at rawURL, which must use the ws or wss
// scheme. The session identifier is taken from its session_id parameter.
//
// The channel starts in the connecting state and becomes open when the
// kernel announces itself with a kernel-ready message.
func Dial(ctx context.Context, rawURL string, opts ...DialOption) (*Channel, error) {
	cfg := &dialConfig{
		dialer:     websocket.DefaultDialer,
		logger:     logging.Default(),
		bufferSize: 100,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, cerrors.NewInvalidInputError("invalid session URL", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, cerrors.NewInvalidInputError("session URL must use ws or wss, got "+u.Scheme, nil)
	}

	conn, resp, err := cfg.dialer.DialContext(ctx, rawURL, cfg.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "failed to connect to session channel (status %d)", resp.StatusCode)
		}
		return nil, errors.Wrap(err, "failed to connect to session channel")
	}

	ch := &Channel{
		conn:      conn,
		sessionID: domain.SessionID(u.Query().Get(domain.QueryParamSessionID)),
		logger:    cfg.logger.With(logging.Fields{"session_id": u.Query().Get(domain.QueryParamSessionID)}),
		state:     domain.StateConnecting,
		ready:     make(chan struct{}),
		messages:  make(chan []byte, cfg.bufferSize),
		done:      make(chan struct{}),
	}
	ch.logger.Debug("session channel connected", logging.Fields{"url": rawURL})

	go ch.readLoop()

	return ch, nil
}

// SessionID returns the session the channel is attached to.
func (c *Channel) SessionID() domain.SessionID {
	return c.sessionID
}

// State returns the current connection state.
func (c *Channel) State() domain.ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Ready is closed once the kernel has announced itself.
func (c *Channel) Ready() <-chan struct{} {
	return c.ready
}

// WaitReady blocks until the channel is open, the channel closes or ctx is
// done.
func (c *Channel) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.done:
		return cerrors.NewNotConnectedError("session channel closed before the kernel was ready")
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for kernel")
	}
}

// Messages delivers inbound text and binary frames. It is closed once the
// channel is closed.
func (c *Channel) Messages() <-chan []byte {
	return c.messages
}

// Done is closed when the channel reaches the closed state.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// SendJSON writes v as a single JSON message.
func (c *Channel) SendJSON(v interface{}) error {
	if c.State() != domain.StateOpen {
		return cerrors.NewNotConnectedError("session channel is " + string(c.State()))
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return errors.Wrap(c.conn.WriteJSON(v), "write to session channel")
}

// Close performs the closing handshake and releases the connection. It is
// safe to call more than once.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.stateMu.Lock()
		if c.state != domain.StateClosed {
			c.state = domain.StateClosing
		}
		c.stateMu.Unlock()

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))

		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.closeErr = err
		}
		c.finish()
	})
	return c.closeErr
}

func (c *Channel) readLoop() {
	defer close(c.messages)
	defer c.conn.Close()
	defer c.finish()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("session channel closed unexpectedly", logging.Fields{"error": err.Error()})
			} else {
				c.logger.Debug("session channel closed", logging.Fields{"reason": err.Error()})
			}
			return
		}

		c.markReady(data)

		select {
		case c.messages <- data:
		case <-c.done:
			return
		}
	}
}

func (c *Channel) markReady(data []byte) {
	select {
	case <-c.ready:
		return
	default:
	}

	var msg struct {
		Op string `json:"op"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.Op != domain.OpKernelReady {
		return
	}

	c.stateMu.Lock()
	if c.state == domain.StateConnecting {
		c.state = domain.StateOpen
	}
	c.stateMu.Unlock()

	c.readyOnce.Do(func() {
		close(c.ready)
	})
	c.logger.Debug("session channel open")
}

func (c *Channel) finish() {
	c.stateMu.Lock()
	c.state = domain.StateClosed
	c.stateMu.Unlock()

	c.doneOnce.Do(func() {
		close(c.done)
	})
}
