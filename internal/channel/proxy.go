package channel

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"picoauth/internal/protocol/continuous"
	"picoauth/internal/protocol/message"
	"picoauth/internal/protocol/sigma"
	"picoauth/internal/util/logging"
)

// Dialer opens the connection to a verifier.
type Dialer func(ctx context.Context) (net.Conn, error)

// TCPDialer dials address over TCP, giving up after timeout.
func TCPDialer(address string, timeout time.Duration) Dialer {
	return func(ctx context.Context) (net.Conn, error) {
		d := net.Dialer{Timeout: timeout}
		return d.DialContext(ctx, "tcp", address)
	}
}

// VerifierProxy is a remote verifier reached over a framed connection.
type VerifierProxy struct {
	dial Dialer
	log  *logging.Logger

	mu   sync.Mutex
	conn *Conn
}

var (
	_ sigma.RemoteVerifier   = (*VerifierProxy)(nil)
	_ continuous.ServiceLink = (*VerifierProxy)(nil)
)

var errNotConnected = errors.New("channel: not connected")

// NewVerifierProxy returns a proxy that dials on the first Start.
func NewVerifierProxy(dial Dialer, log *logging.Logger) *VerifierProxy {
	if log == nil {
		log = logging.NewNop()
	}
	return &VerifierProxy{dial: dial, log: log}
}

func (p *VerifierProxy) connect(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return p.conn, nil
	}
	nc, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	p.conn = NewConn(nc)
	p.log.Debug("connected to verifier", "remote", nc.RemoteAddr().String())
	return p.conn, nil
}

func (p *VerifierProxy) current() (*Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil, errNotConnected
	}
	return p.conn, nil
}

// Start sends the StartMessage, dialing first if needed.
func (p *VerifierProxy) Start(ctx context.Context, msg *message.StartMessage) (*message.EncServiceAuthMessage, error) {
	c, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Send(ctx, msg); err != nil {
		return nil, err
	}
	var out message.EncServiceAuthMessage
	if err := c.Receive(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Authenticate sends the PicoAuthMessage and returns the verifier's status.
// Afterwards the connection only carries reauth-sized frames.
func (p *VerifierProxy) Authenticate(ctx context.Context, msg *message.EncPicoAuthMessage) (*message.EncStatusMessage, error) {
	c, err := p.current()
	if err != nil {
		return nil, err
	}
	if err := c.Send(ctx, msg); err != nil {
		return nil, err
	}
	var out message.EncStatusMessage
	if err := c.Receive(ctx, &out); err != nil {
		return nil, err
	}
	c.SetLimit(MaxReauthMessage)
	return &out, nil
}

// Receive reads the verifier's next reauth message.
func (p *VerifierProxy) Receive(ctx context.Context) (*message.EncServiceReauthMessage, error) {
	c, err := p.current()
	if err != nil {
		return nil, err
	}
	var out message.EncServiceReauthMessage
	if err := c.Receive(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Send writes a prover reauth message.
func (p *VerifierProxy) Send(ctx context.Context, msg *message.EncPicoReauthMessage) error {
	c, err := p.current()
	if err != nil {
		return err
	}
	return c.Send(ctx, msg)
}

// Close drops the connection, if any.
func (p *VerifierProxy) Close() error {
	p.mu.Lock()
	c := p.conn
	p.conn = nil
	p.mu.Unlock()
	if c == nil {
		return nil
	}
	p.log.Debug("closing verifier connection", "remote", c.RemoteAddr().String())
	return c.Close()
}

// ProverProxy is the verifier's side of a prover connection.
type ProverProxy struct {
	conn *Conn
}

// NewProverProxy wraps an accepted connection.
func NewProverProxy(c net.Conn) *ProverProxy {
	return &ProverProxy{conn: NewConn(c)}
}

// RemoteAddr returns the prover's address.
func (p *ProverProxy) RemoteAddr() net.Addr { return p.conn.RemoteAddr() }

// ReadStart reads the prover's StartMessage.
func (p *ProverProxy) ReadStart(ctx context.Context) (*message.StartMessage, error) {
	var m message.StartMessage
	if err := p.conn.Receive(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SendServiceAuth answers the StartMessage.
func (p *ProverProxy) SendServiceAuth(ctx context.Context, m *message.EncServiceAuthMessage) error {
	return p.conn.Send(ctx, m)
}

// ReadPicoAuth reads the prover's PicoAuthMessage.
func (p *ProverProxy) ReadPicoAuth(ctx context.Context) (*message.EncPicoAuthMessage, error) {
	var m message.EncPicoAuthMessage
	if err := p.conn.Receive(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SendStatus ends the handshake. Afterwards only reauth-sized frames pass.
func (p *ProverProxy) SendStatus(ctx context.Context, m *message.EncStatusMessage) error {
	if err := p.conn.Send(ctx, m); err != nil {
		return err
	}
	p.conn.SetLimit(MaxReauthMessage)
	return nil
}

// ReadReauth reads the prover's next reauth message.
func (p *ProverProxy) ReadReauth(ctx context.Context) (*message.EncPicoReauthMessage, error) {
	var m message.EncPicoReauthMessage
	if err := p.conn.Receive(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SendReauth writes a service reauth message.
func (p *ProverProxy) SendReauth(ctx context.Context, m *message.EncServiceReauthMessage) error {
	return p.conn.Send(ctx, m)
}

// Close closes the connection.
func (p *ProverProxy) Close() error { return p.conn.Close() }
