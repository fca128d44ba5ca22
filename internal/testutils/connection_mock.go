package testutils

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// ErrInjectedWrite is returned by the writes of a ConnectionMock after
// FailWrites.
var ErrInjectedWrite = errors.New("testutils: injected write failure")

// ConnectionMock is a net.Conn for tests. Reads return the fed chunks one by
// one, as separate TCP segments would arrive, and block until data is fed or
// the connection is closed. Writes are recorded.
type ConnectionMock struct {
	mu           sync.Mutex
	cond         *sync.Cond
	chunks       [][]byte
	writeBuf     bytes.Buffer
	closed       bool
	remoteClosed bool
	failWrites   bool
}

// NewConnectionMock creates a new mock connection with pre-configured response chunks.
func NewConnectionMock(chunks ...[]byte) *ConnectionMock {
	m := &ConnectionMock{}
	m.cond = sync.NewCond(&m.mu)
	m.Feed(chunks...)
	return m
}

// Feed queues chunks to be returned by Read.
func (m *ConnectionMock) Feed(chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks = append(m.chunks, bytes.Clone(c))
	}
	m.cond.Broadcast()
}

// CloseRemote makes Read return io.EOF once the fed chunks are consumed.
func (m *ConnectionMock) CloseRemote() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remoteClosed = true
	m.cond.Broadcast()
}

// FailWrites makes every following Write fail with ErrInjectedWrite.
func (m *ConnectionMock) FailWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = true
}

func (m *ConnectionMock) Read(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for !m.closed && len(m.chunks) == 0 && !m.remoteClosed {
		m.cond.Wait()
	}

	switch {
	case m.closed:
		return 0, net.ErrClosed
	case len(m.chunks) > 0:
		n := copy(b, m.chunks[0])
		m.chunks[0] = m.chunks[0][n:]
		if len(m.chunks[0]) == 0 {
			m.chunks = m.chunks[1:]
		}
		return n, nil
	default:
		return 0, io.EOF
	}
}

func (m *ConnectionMock) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, net.ErrClosed
	}
	if m.failWrites {
		return 0, ErrInjectedWrite
	}
	return m.writeBuf.Write(b)
}

func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
	return nil
}

// IsClosed reports whether Close was called.
func (m *ConnectionMock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8087}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error      { return nil }
func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }

// Written returns the bytes written to the mock connection so far.
func (m *ConnectionMock) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.writeBuf.Bytes())
}
