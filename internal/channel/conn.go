package channel

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

const (
	// MaxHandshakeMessage bounds frames during the handshake.
	MaxHandshakeMessage = 1_000_000
	// MaxReauthMessage bounds frames during continuous authentication.
	MaxReauthMessage = 1024

	headerSize = 4
)

var (
	ErrFraming = errors.New("channel: bad frame")
	ErrClosed  = errors.New("channel: closed")
)

// Conn frames JSON messages over a net.Conn. Reads and writes may run
// concurrently with each other but not with themselves.
type Conn struct {
	c net.Conn

	mu     sync.Mutex
	limit  int
	closed bool
}

// NewConn wraps c with the handshake frame limit.
func NewConn(c net.Conn) *Conn {
	return &Conn{c: c, limit: MaxHandshakeMessage}
}

// SetLimit changes the largest frame accepted or sent.
func (c *Conn) SetLimit(n int) {
	c.mu.Lock()
	c.limit = n
	c.mu.Unlock()
}

func (c *Conn) maxFrame() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.c.RemoteAddr() }

// WriteFrame sends one frame.
func (c *Conn) WriteFrame(ctx context.Context, payload []byte) error {
	if len(payload) == 0 || len(payload) > c.maxFrame() {
		return fmt.Errorf("%w: %d-byte payload", ErrFraming, len(payload))
	}
	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[headerSize:], payload)
	return c.withContext(ctx, c.c.SetWriteDeadline, func() error {
		_, err := c.c.Write(buf)
		return err
	})
}

// ReadFrame receives one frame.
func (c *Conn) ReadFrame(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := c.withContext(ctx, c.c.SetReadDeadline, func() error {
		var hdr [headerSize]byte
		if _, err := io.ReadFull(c.c, hdr[:]); err != nil {
			return err
		}
		n := binary.BigEndian.Uint32(hdr[:])
		if n == 0 || n > uint32(c.maxFrame()) {
			return fmt.Errorf("%w: length %d", ErrFraming, n)
		}
		payload = make([]byte, n)
		_, err := io.ReadFull(c.c, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Send marshals v and writes it as one frame.
func (c *Conn) Send(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("channel: encode: %w", err)
	}
	return c.WriteFrame(ctx, b)
}

// Receive reads one frame and unmarshals it into v.
func (c *Conn) Receive(ctx context.Context, v any) error {
	b, err := c.ReadFrame(ctx)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("channel: decode: %w", err)
	}
	return nil
}

// Close closes the connection. Later calls return ErrClosed.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.mu.Unlock()
	return c.c.Close()
}

// withContext applies ctx's deadline through set, runs fn, and unblocks fn
// if ctx is cancelled first.
func (c *Conn) withContext(ctx context.Context, set func(time.Time) error, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dl, _ := ctx.Deadline()
	if err := set(dl); err != nil {
		return err
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			_ = set(time.Now())
		case <-done:
		}
	}()
	err := fn()
	close(done)
	wg.Wait()

	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}
