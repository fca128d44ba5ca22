package riakpb

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pior/riakpb/pbc"
)

var (
	ErrConnectionClosed   = errors.New("riakpb: connection closed")
	ErrUnexpectedResponse = errors.New("riakpb: unexpected response")
)

// Transport is the outbound side of a byte stream. Write is only called with
// complete frames.
type Transport interface {
	Write(p []byte) error
	Close() error
}

// Callback receives the final record of a response, or the error that ended
// the request. Exactly one of rec and err is non-nil.
type Callback func(rec pbc.Record, err error)

// State is the lifecycle state of a Session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type sessionConfig struct {
	logger         *zap.Logger
	maxFrameSize   int
	readBufferSize int
}

// SessionOption configures a Session or a Connection.
type SessionOption func(*sessionConfig)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) SessionOption {
	return func(c *sessionConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxFrameSize bounds the length prefix of incoming frames.
func WithMaxFrameSize(n int) SessionOption {
	return func(c *sessionConfig) { c.maxFrameSize = n }
}

// WithReadBufferSize sets the size of the socket read buffer of a Connection.
func WithReadBufferSize(n int) SessionOption {
	return func(c *sessionConfig) { c.readBufferSize = n }
}

func newSessionConfig(opts []SessionOption) sessionConfig {
	cfg := sessionConfig{
		logger:         zap.NewNop(),
		maxFrameSize:   pbc.DefaultMaxFrameSize,
		readBufferSize: defaultReadBufferSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

type request struct {
	frame []byte
	cb    Callback
}

// Session is the request/response engine of one connection. Requests are
// queued in FIFO order and written one at a time: the next request is only
// written once the response of the previous one is complete.
//
// Transport events are delivered by calling Connecting, Connected, HandleData
// and HandleClose, typically from a single read loop. Send may be called from
// any goroutine. Callbacks are invoked one at a time, in request order, and
// never while the session lock is held, so they may call Send or End.
type Session struct {
	transport Transport
	logger    *zap.Logger

	mu       sync.Mutex
	state    State
	ended    bool
	queue    []*request
	inFlight bool       // queue[0] has been written
	acc      pbc.Record // partial streaming response of queue[0]
	frames   *pbc.Reassembler

	ready       []func()
	dispatching bool
}

// NewSession returns a disconnected session writing to t.
func NewSession(t Transport, opts ...SessionOption) *Session {
	return newSession(t, newSessionConfig(opts))
}

func newSession(t Transport, cfg sessionConfig) *Session {
	return &Session{
		transport: t,
		logger:    cfg.logger,
		frames:    pbc.NewReassembler(cfg.maxFrameSize),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the number of requests waiting for their response,
// including the one in flight.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Connecting records that the transport is being opened.
func (s *Session) Connecting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.state != StateDisconnected {
		return
	}
	s.setState(StateConnecting)
}

// Connected records that the transport is open and writes the head of the
// queue, if any.
func (s *Session) Connected() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.setState(StateConnected)
	writes := s.advance(nil)
	s.mu.Unlock()

	s.flush(writes)
}

// Send queues a complete request frame. cb is invoked once with the final
// response record or an error. Send fails with ErrConnectionClosed once the
// session has ended; cb is then never invoked.
func (s *Session) Send(frame []byte, cb Callback) error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return ErrConnectionClosed
	}
	if cb == nil {
		cb = func(pbc.Record, error) {}
	}
	s.queue = append(s.queue, &request{frame: frame, cb: cb})
	writes := s.advance(nil)
	s.mu.Unlock()

	s.flush(writes)
	return nil
}

// HandleData feeds a chunk of the inbound byte stream. The chunk is copied.
func (s *Session) HandleData(chunk []byte) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}

	var writes [][]byte
	err := s.frames.Feed(chunk, func(f pbc.Frame) error {
		var err error
		writes, err = s.handleFrame(f, writes)
		return err
	})
	if err != nil {
		s.logger.Warn("malformed frame, closing session", zap.Error(err))
		s.teardown(err)
		s.mu.Unlock()

		_ = s.transport.Close()
		s.dispatch()
		return
	}
	s.mu.Unlock()

	s.flush(writes)
}

// HandleClose records that the transport was closed, with the cause if
// known. Every pending request fails with ErrConnectionClosed.
func (s *Session) HandleClose(cause error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	if cause != nil {
		cause = &pbc.ConnectionError{Op: "read", Err: cause}
	}
	s.teardown(cause)
	s.mu.Unlock()

	s.dispatch()
}

// End closes the transport and fails every pending request with
// ErrConnectionClosed.
func (s *Session) End() error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	s.teardown(nil)
	s.mu.Unlock()

	err := s.transport.Close()
	s.dispatch()
	return err
}

// handleFrame resolves the request in flight with a decoded frame. Called
// with the lock held.
func (s *Session) handleFrame(f pbc.Frame, writes [][]byte) ([][]byte, error) {
	if !s.inFlight {
		s.logger.Warn("dropping unsolicited frame", zap.Stringer("code", f.Code), zap.Int("size", len(f.Payload)))
		return writes, nil
	}
	if !f.Code.Known() {
		s.logger.Debug("unknown message code", zap.Uint8("code", uint8(f.Code)), zap.Int("size", len(f.Payload)))
	}

	rec, err := pbc.Decode(f.Code, f.Payload, s.acc)
	if err != nil {
		return writes, err
	}

	if e, ok := rec.(*pbc.ErrorResp); ok {
		s.complete(nil, e.Err())
		return s.advance(writes), nil
	}
	if !rec.Final() {
		s.acc = rec
		return writes, nil
	}
	s.complete(rec, nil)
	return s.advance(writes), nil
}

// complete dequeues the head and schedules its callback. Called with the
// lock held.
func (s *Session) complete(rec pbc.Record, err error) {
	head := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	s.inFlight = false
	s.acc = nil

	s.ready = append(s.ready, func() { head.cb(rec, err) })
}

// advance marks the head in flight when it can be written and appends its
// frame to writes. Called with the lock held.
func (s *Session) advance(writes [][]byte) [][]byte {
	if s.state != StateConnected || s.inFlight || len(s.queue) == 0 {
		return writes
	}
	s.inFlight = true
	return append(writes, s.queue[0].frame)
}

// teardown ends the session and schedules the failure of every pending
// request. Called with the lock held.
func (s *Session) teardown(cause error) {
	s.ended = true
	s.setState(StateDisconnected)

	err := ErrConnectionClosed
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrConnectionClosed, cause)
	}

	for _, req := range s.queue {
		s.ready = append(s.ready, func() { req.cb(nil, err) })
	}
	s.queue = nil
	s.inFlight = false
	s.acc = nil
	s.frames.Reset()
}

func (s *Session) setState(state State) {
	if s.state != state {
		s.logger.Debug("session state", zap.Stringer("from", s.state), zap.Stringer("to", state))
		s.state = state
	}
}

// flush writes frames outside the lock. A write failure ends the session.
func (s *Session) flush(writes [][]byte) {
	for _, frame := range writes {
		if err := s.transport.Write(frame); err != nil {
			s.logger.Warn("write failed, closing session", zap.Error(err))
			s.mu.Lock()
			if !s.ended {
				s.teardown(&pbc.ConnectionError{Op: "write", Err: err})
			}
			s.mu.Unlock()
			_ = s.transport.Close()
			break
		}
	}
	s.dispatch()
}

// dispatch runs ready callbacks in order. A callback that re-enters the
// session only queues further callbacks; the goroutine already dispatching
// runs them.
func (s *Session) dispatch() {
	s.mu.Lock()
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	for len(s.ready) > 0 {
		fn := s.ready[0]
		s.ready[0] = nil
		s.ready = s.ready[1:]

		s.mu.Unlock()
		fn()
		s.mu.Lock()
	}
	s.dispatching = false
	s.mu.Unlock()
}
