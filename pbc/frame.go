package pbc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame is one complete protocol message: a code and its payload.
type Frame struct {
	Code    MessageCode
	Payload []byte
}

// Size returns the number of bytes the frame occupies on the wire.
func (f Frame) Size() int {
	return HeaderSize + 1 + len(f.Payload)
}

// AppendFrame appends the wire form of a frame to dst.
func AppendFrame(dst []byte, code MessageCode, payload []byte) []byte {
	var hdr [HeaderSize + 1]byte
	binary.BigEndian.PutUint32(hdr[:HeaderSize], uint32(len(payload)+1))
	hdr[HeaderSize] = byte(code)
	dst = append(dst, hdr[:]...)
	return append(dst, payload...)
}

// Reassembler rebuilds frames from a byte stream delivered in chunks of any
// size. A chunk may end anywhere, including inside the length prefix.
//
// Reassembler is not safe for concurrent use.
type Reassembler struct {
	buf     []byte // carry-over: bytes received but not yet dispatched
	need    int    // size of the pending frame, 0 until its prefix is known
	maxSize int
}

// NewReassembler returns a Reassembler accepting frames whose length prefix
// is at most maxFrameSize. Zero selects DefaultMaxFrameSize.
func NewReassembler(maxFrameSize int) *Reassembler {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Reassembler{maxSize: maxFrameSize}
}

// Feed appends chunk to the carry-over and calls fn for every complete frame,
// in stream order. The payload passed to fn is only valid until fn returns.
//
// An error from fn stops processing and is returned. A length prefix of zero
// or above the limit returns a *ParseError; the stream cannot be resumed.
func (r *Reassembler) Feed(chunk []byte, fn func(Frame) error) error {
	r.buf = append(r.buf, chunk...)

	off := 0
	defer func() {
		// Keep the remainder for the next chunk.
		if off > len(r.buf) {
			r.buf = r.buf[:0]
			return
		}
		n := copy(r.buf, r.buf[off:])
		r.buf = r.buf[:n]
	}()

	for {
		avail := len(r.buf) - off
		if r.need == 0 {
			if avail < HeaderSize {
				return nil
			}
			length := binary.BigEndian.Uint32(r.buf[off:])
			if length == 0 || uint64(length) > uint64(r.maxSize) {
				return parseErr(fmt.Sprintf("frame length %d", length), ErrFrameLength)
			}
			r.need = int(length) + HeaderSize
		}
		if avail < r.need {
			return nil
		}

		f := Frame{
			Code:    MessageCode(r.buf[off+HeaderSize]),
			Payload: r.buf[off+HeaderSize+1 : off+r.need],
		}
		off += r.need
		r.need = 0

		if err := fn(f); err != nil {
			return err
		}
	}
}

// Buffered returns the number of bytes held for the next frame.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Reset drops the carry-over.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
	r.need = 0
}

// ReadFrame reads one frame from a blocking reader. The payload is owned by
// the caller.
func ReadFrame(rd io.Reader, maxFrameSize int) (Frame, error) {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}

	var hdr [HeaderSize + 1]byte
	if _, err := io.ReadFull(rd, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, parseErr("frame header", ErrTruncated)
		}
		return Frame{}, err
	}

	length := binary.BigEndian.Uint32(hdr[:HeaderSize])
	if length == 0 || uint64(length) > uint64(maxFrameSize) {
		return Frame{}, parseErr(fmt.Sprintf("frame length %d", length), ErrFrameLength)
	}

	payload := make([]byte, length-1)
	if _, err := io.ReadFull(rd, payload); err != nil {
		return Frame{}, parseErr("frame payload", ErrTruncated)
	}
	return Frame{Code: MessageCode(hdr[HeaderSize]), Payload: payload}, nil
}
