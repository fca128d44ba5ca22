package pbc

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShouldCloseConnection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &ServerError{Message: "not found"}, false},
		{"wrapped server error", fmt.Errorf("get: %w", &ServerError{Message: "x"}), false},
		{"parse error", parseErr("varint", ErrVarintOverflow), true},
		{"connection error", &ConnectionError{Op: "write", Err: io.ErrClosedPipe}, true},
		{"unknown error", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ShouldCloseConnection(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	require.EqualError(t, &ServerError{Message: "overloaded"}, "riak error: overloaded")
	require.EqualError(t, &ServerError{Message: "overloaded", Code: 3}, "riak error 3: overloaded")
	require.EqualError(t, parseErr("tag", ErrInvalidField), "parse error: tag: pbc: invalid field number")
	require.EqualError(t, &ConnectionError{Op: "read", Err: io.EOF}, "connection error during read: EOF")

	require.ErrorIs(t, &ConnectionError{Op: "read", Err: io.EOF}, io.EOF)
}
