package pbc

import "math"

// region is a decode cursor over buf bounded by end. Every read of a message
// or nested message stays within its region.
type region struct {
	buf []byte
	pos int
	end int
}

func newRegion(buf []byte) *region {
	return &region{buf: buf, end: len(buf)}
}

func (r *region) remaining() int {
	return r.end - r.pos
}

// readVarint reads a base-128 varint capped at MaxVarintBytes.
func (r *region) readVarint() (uint64, error) {
	var v uint64
	for i := 0; i < MaxVarintBytes; i++ {
		if r.pos >= r.end {
			return 0, parseErr("varint", ErrTruncated)
		}
		b := r.buf[r.pos]
		r.pos++
		v |= uint64(b&0x7f) << (7 * i)
		if b < 0x80 {
			return v, nil
		}
	}
	return 0, parseErr("varint", ErrVarintOverflow)
}

// readBytes reads a length-delimited value. The result is a copy.
func (r *region) readBytes() ([]byte, error) {
	n, err := r.readVarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.remaining()) {
		return nil, parseErr("length-delimited field", ErrTruncated)
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}

func (r *region) readString() (string, error) {
	b, err := r.readBytes()
	return string(b), err
}

// readUint32 reads a varint into a 32-bit field. Values of 33 to 35 bits
// are rejected.
func (r *region) readUint32() (uint32, error) {
	v, err := r.readVarint()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, parseErr("uint32 field", ErrVarintOverflow)
	}
	return uint32(v), nil
}

func (r *region) readBool() (bool, error) {
	v, err := r.readVarint()
	return v != 0, err
}

// readTag splits a tag into its field number and wire type. Tags of fields
// 1 to 15 occupy a single byte.
func (r *region) readTag() (int, WireType, error) {
	t, err := r.readVarint()
	if err != nil {
		return 0, 0, err
	}
	field := int(t >> 3)
	if field < 1 {
		return 0, 0, parseErr("tag", ErrInvalidField)
	}
	return field, WireType(t & 0x07), nil
}

// sub reads a length prefix and returns the region it bounds. The parent
// cursor is moved past the sub-region.
func (r *region) sub() (*region, error) {
	n, err := r.readVarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.remaining()) {
		return nil, parseErr("nested message", ErrTruncated)
	}
	s := &region{buf: r.buf, pos: r.pos, end: r.pos + int(n)}
	r.pos = s.end
	return s, nil
}

// skip consumes a value of the given wire type.
func (r *region) skip(wt WireType) error {
	switch wt {
	case WireVarint:
		_, err := r.readVarintUnbounded()
		return err
	case WireBytes:
		_, err := r.sub()
		return err
	case WireFixed32:
		return r.advance(4)
	case WireFixed64:
		return r.advance(8)
	default:
		return parseErr("skip field", ErrUnknownWireType)
	}
}

// readVarintUnbounded consumes a varint of any length up to 10 bytes. Used to
// skip unknown fields, whose value is never interpreted.
func (r *region) readVarintUnbounded() (int, error) {
	for i := 0; i < 10; i++ {
		if r.pos >= r.end {
			return 0, parseErr("varint", ErrTruncated)
		}
		b := r.buf[r.pos]
		r.pos++
		if b < 0x80 {
			return i + 1, nil
		}
	}
	return 0, parseErr("varint", ErrVarintOverflow)
}

func (r *region) advance(n int) error {
	if n > r.remaining() {
		return parseErr("fixed field", ErrTruncated)
	}
	r.pos += n
	return nil
}

// AppendVarint appends the base-128 encoding of v to dst.
func AppendVarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// VarintSize returns the number of bytes AppendVarint produces for v.
func VarintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// MakeTag packs a field number and a wire type.
func MakeTag(field int, wt WireType) uint64 {
	return uint64(field)<<3 | uint64(wt)
}

// ReadVarint decodes a varint at the start of b, returning the value and the
// number of bytes consumed.
func ReadVarint(b []byte) (uint64, int, error) {
	r := newRegion(b)
	v, err := r.readVarint()
	return v, r.pos, err
}
