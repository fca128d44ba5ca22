package pbc

import (
	"errors"
	"fmt"
)

// Error types for protocol operations.
// These errors help clients decide whether a connection can be reused.

// Sentinel causes carried by ParseError.
var (
	ErrTruncated       = errors.New("pbc: truncated data")
	ErrVarintOverflow  = errors.New("pbc: varint exceeds 35 bits")
	ErrUnknownWireType = errors.New("pbc: unknown wire type")
	ErrInvalidField    = errors.New("pbc: invalid field number")
	ErrFrameLength     = errors.New("pbc: invalid frame length")
)

// ServerError represents an RpbErrorResp (message code 0) sent by the server.
// The server rejected the request but the byte stream is intact.
//
// Connection handling: connection can be REUSED
type ServerError struct {
	Message string
	Code    uint32
}

func (e *ServerError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("riak error %d: %s", e.Code, e.Message)
	}
	return "riak error: " + e.Message
}

// ShouldCloseConnection returns false - server errors don't corrupt protocol state
func (e *ServerError) ShouldCloseConnection() bool {
	return false
}

// ParseError represents a client-side decoding failure: a length prefix or a
// nested length exceeding the available bytes, an oversized varint, an
// unsupported wire type.
//
// Connection handling: Connection must be CLOSED, the stream position is lost
type ParseError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse error: " + e.Message + ": " + e.Err.Error()
	}
	return "parse error: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - parse errors indicate corrupted state
func (e *ParseError) ShouldCloseConnection() bool {
	return true
}

// ConnectionError wraps underlying I/O errors from connection operations.
//
// Connection handling: Connection is already broken, CLOSE and potentially RECONNECT
type ConnectionError struct {
	Op  string // Operation that failed (read, write, dial)
	Err error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ErrorWithConnectionState is implemented by all protocol error types.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection unusable.
//
// Returns false for nil and ServerError, true for ParseError,
// ConnectionError and any error of unknown type.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	// Unknown error type - be conservative and close connection
	return true
}

func parseErr(msg string, err error) error {
	return &ParseError{Message: msg, Err: err}
}
