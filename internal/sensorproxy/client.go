package sensorproxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/banshee-data/tofsweep/internal/monitoring"
)

const (
	DefaultReceiveTimeout = 2 * time.Second
	DefaultMaxRetries     = 5
	DefaultInitialBackoff = 100 * time.Millisecond
	DefaultMaxBackoff     = 2 * time.Second
)

// ClientConfig contains configuration options for the distance client.
type ClientConfig struct {
	Address        string
	ReceiveTimeout time.Duration
	// MaxRetries is the number of extra attempts after the first one.
	// Zero selects DefaultMaxRetries, negative disables retrying.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.Address == "" {
		c.Address = DefaultPeerAddress
	}
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = DefaultReceiveTimeout
	}
	switch {
	case c.MaxRetries == 0:
		c.MaxRetries = DefaultMaxRetries
	case c.MaxRetries < 0:
		c.MaxRetries = 0
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	return c
}

// Client requests distances from a sensor node over a connected UDP socket.
type Client struct {
	conn net.Conn
	cfg  ClientConfig
	buf  []byte
}

// Dial connects a UDP socket to cfg.Address.
func Dial(cfg ClientConfig) (*Client, error) {
	if cfg.Address == "" {
		cfg.Address = DefaultPeerAddress
	}
	conn, err := net.Dial("udp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial sensor node at %s: %w", cfg.Address, err)
	}
	return NewClient(conn, cfg), nil
}

// NewClient wraps an already connected socket.
func NewClient(conn net.Conn, cfg ClientConfig) *Client {
	if cfg.Address == "" && conn.RemoteAddr() != nil {
		cfg.Address = conn.RemoteAddr().String()
	}
	cfg = cfg.withDefaults()
	return &Client{
		conn: conn,
		cfg:  cfg,
		// larger than a reply so oversized datagrams are seen, not truncated
		buf: make([]byte, 64),
	}
}

// Measure sends one request and waits for its reply, retrying with
// exponential backoff on timeouts, refused connections and malformed
// replies.
func (c *Client) Measure(ctx context.Context) (uint32, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.InitialBackoff
	eb.MaxInterval = c.cfg.MaxBackoff
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.cfg.MaxRetries)), ctx)

	attempt := 0
	op := func() (uint32, error) {
		attempt++
		if err := ctx.Err(); err != nil {
			return 0, backoff.Permanent(err)
		}
		mm, err := c.exchange(ctx)
		if err != nil && !retryable(err) {
			return 0, backoff.Permanent(err)
		}
		return mm, err
	}
	notify := func(err error, wait time.Duration) {
		monitoring.Logf("Distance request %d to %s failed: %v; retrying in %v", attempt, c.cfg.Address, err, wait)
	}

	mm, err := backoff.RetryNotifyWithData(op, policy, notify)
	if err != nil {
		return 0, fmt.Errorf("requesting distance from %s: %w", c.cfg.Address, err)
	}
	return mm, nil
}

func (c *Client) exchange(ctx context.Context) (uint32, error) {
	if err := c.drain(); err != nil {
		return 0, err
	}

	n, err := c.conn.Write(RequestPayload)
	if err != nil {
		return 0, fmt.Errorf("sending request: %w", err)
	}
	if n != len(RequestPayload) {
		return 0, fmt.Errorf("%w: sent %d of %d bytes", ErrShortWrite, n, len(RequestPayload))
	}

	deadline := time.Now().Add(c.cfg.ReceiveTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return 0, fmt.Errorf("setting read deadline: %w", err)
	}

	n, err = c.conn.Read(c.buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, fmt.Errorf("%w within %v", ErrTimeout, c.cfg.ReceiveTimeout)
		}
		return 0, fmt.Errorf("receiving reply: %w", err)
	}
	monitoring.Debugf("Reply from %s: % x", c.cfg.Address, c.buf[:n])
	return DecodeDistance(c.buf[:n])
}

// drain discards replies already queued on the socket. A reply that arrives
// after its attempt timed out would otherwise answer the next request, and
// every later reading would land one sample late.
func (c *Client) drain() error {
	if err := c.conn.SetReadDeadline(time.Now()); err != nil {
		return fmt.Errorf("setting read deadline: %w", err)
	}
	for {
		n, err := c.conn.Read(c.buf)
		if err != nil {
			// a timeout means the queue is empty; anything else resurfaces
			// on the exchange itself
			return nil
		}
		monitoring.Logf("Discarded stale reply from %s: % x", c.cfg.Address, c.buf[:n])
	}
}

func retryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// Close releases the socket.
func (c *Client) Close() error {
	return c.conn.Close()
}
