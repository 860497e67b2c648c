package connector

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/hub"
	"solana-token-scanner/internal/transport"
)

type fakeConn struct {
	msgs      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	writes []any
}

func newFakeConn(buffer int) *fakeConn {
	return &fakeConn{
		msgs:   make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case m, ok := <-c.msgs:
		if !ok {
			return nil, errors.New("connection reset")
		}
		return m, nil
	case <-c.closed:
		return nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

type fakeDialer struct {
	attempts atomic.Int64
	dial     func(n int64) (transport.Conn, error)
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	n := d.attempts.Add(1)
	return d.dial(n)
}

func failingDialer() *fakeDialer {
	return &fakeDialer{dial: func(int64) (transport.Conn, error) {
		return nil, errors.New("handshake failed")
	}}
}

type fakeFetcher struct {
	calls atomic.Int64

	mu         sync.Mutex
	lastHeader http.Header
	lastURL    string
	fetch      func(n int64) ([]byte, error)
}

func (f *fakeFetcher) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	n := f.calls.Add(1)
	f.mu.Lock()
	f.lastHeader = header
	f.lastURL = url
	f.mu.Unlock()
	return f.fetch(n)
}

func staticFetcher(body string) *fakeFetcher {
	return &fakeFetcher{fetch: func(int64) ([]byte, error) { return []byte(body), nil }}
}

type recorder struct {
	mu     sync.Mutex
	events []domain.TokenEvent
}

func (r *recorder) OnTokenEvent(_ context.Context, ev domain.TokenEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newHub() (*hub.Hub, *recorder) {
	rec := &recorder{}
	return hub.New(rec, hub.Options{}), rec
}
