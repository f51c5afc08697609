// Package wsconn provides a WebSocket client with automatic
// reconnection, built on github.com/coder/websocket.
package wsconn

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/flasharb/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// MessageHandler is called for every inbound message. It runs on the
// read loop goroutine, so it must not block for long.
type MessageHandler func(ctx context.Context, msg []byte)

// StateChangeHandler is called on every state transition. err is
// non-nil when the transition was caused by a failure.
type StateChangeHandler func(state State, err error)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string // for logging and error context
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = unlimited
	PingInterval   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns sensible defaults for a feed connection.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1 << 20, // 1MB
	}
}

// Client is a reconnecting WebSocket client.
type Client struct {
	config Config

	mu    sync.RWMutex
	conn  *websocket.Conn
	state State

	onMessage     MessageHandler
	onStateChange StateChangeHandler

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a new WebSocket client.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, apperror.New(apperror.CodeRequiredField,
			apperror.WithContext("URL is required"))
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}
	return &Client{
		config: config,
		state:  StateDisconnected,
		done:   make(chan struct{}),
	}, nil
}

// OnMessage registers the inbound message handler. Must be called
// before Connect.
func (c *Client) OnMessage(h MessageHandler) {
	c.mu.Lock()
	c.onMessage = h
	c.mu.Unlock()
}

// OnStateChange registers the state transition handler. Must be called
// before Connect.
func (c *Client) OnStateChange(h StateChangeHandler) {
	c.mu.Lock()
	c.onStateChange = h
	c.mu.Unlock()
}

// Connect dials the server and starts the read and ping loops. On
// failure the client stays disconnected and does not retry; retries
// only happen after an established connection drops.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting, nil)

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected, err)
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name+" failed to connect to "+c.config.URL))
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected, nil)

	c.wg.Add(1)
	go c.readLoop()

	if c.config.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop()
	}

	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		return nil, err
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}
	return conn, nil
}

// Send writes a raw message. Safe for concurrent use; coder/websocket
// serializes concurrent writers internally.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != StateConnected || conn == nil {
		return apperror.New(apperror.CodeWebSocketClosed,
			apperror.WithContext(c.config.Name+" is "+string(state)))
	}

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name),
		)
	}
	return nil
}

// SendJSON marshals v and sends it as a text message.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperror.New(apperror.CodeInvalidInput,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name),
		)
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the connection is established.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close shuts the client down. Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()
		if conn != nil {
			conn.Close(websocket.StatusNormalClosure, "client closing")
		}
		c.wg.Wait()
		c.setState(StateClosed, nil)
	})
	return nil
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		handler := c.onMessage
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.reconnect(err)
			return
		}

		if handler != nil {
			handler(ctx, data)
		}
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()
			if conn == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				return // read loop will observe the dead connection
			}
		}
	}
}

// reconnect redials with jittered exponential backoff until it
// succeeds, the retry budget is exhausted, or the client is closed.
func (c *Client) reconnect(cause error) {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close(websocket.StatusGoingAway, "reconnecting")
		c.conn = nil
	}
	c.mu.Unlock()
	c.setState(StateReconnecting, cause)

	backoff := c.config.InitialBackoff
	attempt := 0
	for {
		if c.config.MaxReconnects > 0 && attempt >= c.config.MaxReconnects {
			c.setState(StateDisconnected, cause)
			return
		}
		attempt++

		jitter := time.Duration(rand.Int63n(int64(backoff) / 4))
		select {
		case <-c.done:
			return
		case <-time.After(backoff + jitter):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		conn, err := c.dial(ctx)
		cancel()
		if err != nil {
			backoff *= 2
			if backoff > c.config.MaxBackoff {
				backoff = c.config.MaxBackoff
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.setState(StateConnected, nil)

		c.wg.Add(1)
		go c.readLoop()
		return
	}
}

func (c *Client) setState(state State, err error) {
	c.mu.Lock()
	c.state = state
	handler := c.onStateChange
	c.mu.Unlock()
	if handler != nil {
		handler(state, err)
	}
}
