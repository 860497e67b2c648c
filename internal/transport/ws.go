// Package transport provides the network primitives used by source connectors:
// a WebSocket dialer for push feeds and an HTTP client for polled APIs.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a message-oriented push connection.
type Conn interface {
	// ReadMessage blocks until the next data message arrives.
	ReadMessage() ([]byte, error)

	// WriteJSON sends v as a JSON text message.
	WriteJSON(v any) error

	// Close tears down the connection. Safe to call more than once and from
	// a goroutine other than the reader.
	Close() error
}

// Dialer opens push connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WSConfig configures WebSocket connections.
type WSConfig struct {
	// HandshakeTimeout bounds connection establishment.
	HandshakeTimeout time.Duration
	// PingInterval is the keepalive period. Zero disables pings.
	PingInterval time.Duration
	// WriteTimeout bounds every write.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// WSDialer implements Dialer using gorilla/websocket.
type WSDialer struct {
	config WSConfig
	header http.Header
}

// NewWSDialer creates a dialer. A nil config selects DefaultWSConfig.
func NewWSDialer(config *WSConfig, header http.Header) *WSDialer {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	return &WSDialer{config: cfg, header: header}
}

// Dial establishes a WebSocket connection and starts its keepalive loop.
func (d *WSDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.config.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}

	c := &WSConn{
		conn:   conn,
		config: d.config,
		done:   make(chan struct{}),
	}
	if d.config.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop()
	}
	return c, nil
}

// WSConn wraps a gorilla connection with serialized writes and keepalive.
type WSConn struct {
	conn   *websocket.Conn
	config WSConfig

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// ReadMessage returns the payload of the next message.
func (c *WSConn) ReadMessage() ([]byte, error) {
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("websocket read: %w", err)
	}
	return msg, nil
}

// WriteJSON sends v as JSON.
func (c *WSConn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Close sends a close frame and closes the underlying connection.
func (c *WSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = c.conn.Close()
		c.writeMu.Unlock()

		c.wg.Wait()
	})
	return err
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *WSConn) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			// a dead connection surfaces on the reader side
			_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
		}
	}
}
