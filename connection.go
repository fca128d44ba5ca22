package riakpb

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pior/riakpb/pbc"
)

const (
	defaultReadBufferSize = 16 << 10
	defaultKeepAlive      = 30 * time.Second
)

// Connection runs a Session over a net.Conn. A goroutine reads the socket
// and feeds the session until the connection is closed.
type Connection struct {
	conn    net.Conn
	session *Session
	logger  *zap.Logger
	closed  atomic.Bool
	done    chan struct{}
}

// NewConnection takes ownership of netConn and starts reading from it.
func NewConnection(netConn net.Conn, opts ...SessionOption) *Connection {
	cfg := newSessionConfig(opts)

	if tcp, ok := netConn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(defaultKeepAlive)
	}

	cfg.logger = cfg.logger.With(zap.Stringer("addr", netConn.RemoteAddr()))

	c := &Connection{
		conn:   netConn,
		logger: cfg.logger,
		done:   make(chan struct{}),
	}
	c.session = newSession(connTransport{c}, cfg)
	c.session.Connected()

	go c.readLoop(cfg.readBufferSize)
	return c
}

// connTransport adapts the connection to the Transport of its session.
type connTransport struct {
	c *Connection
}

func (t connTransport) Write(p []byte) error {
	_, err := t.c.conn.Write(p)
	return err
}

func (t connTransport) Close() error {
	return t.c.closeConn()
}

func (c *Connection) readLoop(size int) {
	defer close(c.done)

	buf := make([]byte, size)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.session.HandleData(buf[:n])
		}
		if err != nil {
			if c.closed.Load() || errors.Is(err, net.ErrClosed) {
				c.session.HandleClose(nil)
			} else {
				if !errors.Is(err, io.EOF) {
					c.logger.Debug("read failed", zap.Error(err))
				}
				c.session.HandleClose(err)
			}
			_ = c.closeConn()
			return
		}
	}
}

// Session returns the session bound to the connection.
func (c *Connection) Session() *Session {
	return c.session
}

// Do sends a request frame and waits for the final response record.
//
// When ctx is done first, Do returns ctx.Err() and the response is discarded
// when it arrives. The connection stays usable but the caller should prefer
// closing it.
func (c *Connection) Do(ctx context.Context, frame []byte) (pbc.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		rec pbc.Record
		err error
	}
	ch := make(chan result, 1)

	err := c.session.Send(frame, func(rec pbc.Record, err error) {
		ch <- result{rec, err}
	})
	if err != nil {
		return nil, err
	}

	select {
	case r := <-ch:
		return r.rec, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ping sends a ping and waits for the answer.
func (c *Connection) Ping(ctx context.Context) error {
	rec, err := c.Do(ctx, pbc.EncodePing())
	return expectEmpty(rec, err, pbc.CodePingResp)
}

// Close ends the session. Pending requests fail with ErrConnectionClosed.
func (c *Connection) Close() error {
	return c.session.End()
}

func (c *Connection) closeConn() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

// IsClosed reports whether the connection was closed, by either side.
func (c *Connection) IsClosed() bool {
	return c.closed.Load() || c.session.State() == StateDisconnected
}

// Done is closed once the read loop has exited.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// RemoteAddr returns the address of the server.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
