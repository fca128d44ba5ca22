package pbc

import "encoding/binary"

// FieldKind selects how a Field is put on the wire.
type FieldKind uint8

const (
	FieldAbsent FieldKind = iota
	FieldBool
	FieldInt
	FieldText
	FieldBytes
	FieldStruct
	// FieldRepeated emits every element of Fields under the same field number.
	FieldRepeated
)

// Field is one positional value of an encoded message. The zero value is an
// absent field.
type Field struct {
	Kind   FieldKind
	Bool   bool
	Int    uint64
	Bytes  []byte
	Fields []Field
}

func Absent() Field              { return Field{} }
func Bool(b bool) Field          { return Field{Kind: FieldBool, Bool: b} }
func Uint(v uint64) Field        { return Field{Kind: FieldInt, Int: v} }
func Text(s string) Field        { return Field{Kind: FieldText, Bytes: []byte(s)} }
func Bytes(b []byte) Field       { return Field{Kind: FieldBytes, Bytes: b} }
func Struct(fs ...Field) Field   { return Field{Kind: FieldStruct, Fields: fs} }
func Repeated(fs ...Field) Field { return Field{Kind: FieldRepeated, Fields: fs} }

// OptBool returns Absent for a nil pointer.
func OptBool(p *bool) Field {
	if p == nil {
		return Absent()
	}
	return Bool(*p)
}

// OptUint32 returns Absent for a nil pointer.
func OptUint32(p *uint32) Field {
	if p == nil {
		return Absent()
	}
	return Uint(uint64(*p))
}

// OptBytes returns Absent for a nil slice. An empty non-nil slice is sent.
func OptBytes(b []byte) Field {
	if b == nil {
		return Absent()
	}
	return Bytes(b)
}

// OptText returns Absent for an empty string.
func OptText(s string) Field {
	if s == "" {
		return Absent()
	}
	return Text(s)
}

// optUint returns Absent for zero.
func optUint(v uint32) Field {
	if v == 0 {
		return Absent()
	}
	return Uint(uint64(v))
}

// fixedBuffer writes into a buffer of fixed capacity. Writes past the
// capacity are dropped but still counted, so n is the length the encoding
// needs whatever the capacity.
type fixedBuffer struct {
	b []byte
	n int
}

func (w *fixedBuffer) writeByte(c byte) {
	if w.n < len(w.b) {
		w.b[w.n] = c
	}
	w.n++
}

func (w *fixedBuffer) write(p []byte) {
	if w.n < len(w.b) {
		copy(w.b[w.n:], p)
	}
	w.n += len(p)
}

func (w *fixedBuffer) writeVarint(v uint64) {
	for v >= 0x80 {
		w.writeByte(byte(v) | 0x80)
		v >>= 7
	}
	w.writeByte(byte(v))
}

// fits reports whether the encoding is complete. A length equal to the
// capacity counts as a miss.
func (w *fixedBuffer) fits() bool {
	return w.n < len(w.b)
}

func writeFields(w *fixedBuffer, fields []Field) {
	for i, f := range fields {
		writeField(w, i+1, f)
	}
}

func writeField(w *fixedBuffer, num int, f Field) {
	switch f.Kind {
	case FieldAbsent:
	case FieldBool:
		w.writeVarint(MakeTag(num, WireVarint))
		if f.Bool {
			w.writeByte(1)
		} else {
			w.writeByte(0)
		}
	case FieldInt:
		w.writeVarint(MakeTag(num, WireVarint))
		w.writeVarint(f.Int)
	case FieldText, FieldBytes:
		w.writeVarint(MakeTag(num, WireBytes))
		w.writeVarint(uint64(len(f.Bytes)))
		w.write(f.Bytes)
	case FieldStruct:
		payload := encodeNested(f.Fields, nestedCapacity)
		w.writeVarint(MakeTag(num, WireBytes))
		w.writeVarint(uint64(len(payload)))
		w.write(payload)
	case FieldRepeated:
		for _, e := range f.Fields {
			writeField(w, num, e)
		}
	}
}

// encodeNested encodes fields into a buffer of the given capacity, doubling
// it and starting over until the result fits.
func encodeNested(fields []Field, capacity int) []byte {
	for {
		w := fixedBuffer{b: make([]byte, capacity)}
		writeFields(&w, fields)
		if w.fits() {
			return w.b[:w.n]
		}
		capacity *= 2
	}
}

// EncodeFields encodes an ordered field list. Field numbers are positional:
// fields[i] is field i+1.
func EncodeFields(fields []Field) []byte {
	return encodeNested(fields, messageCapacity)
}

// encodeMessage builds a complete frame for code with the given fields.
// The same doubling strategy applies to the frame buffer.
func encodeMessage(code MessageCode, fields []Field) []byte {
	capacity := messageCapacity
	for {
		w := fixedBuffer{b: make([]byte, capacity), n: HeaderSize + 1}
		writeFields(&w, fields)
		if w.fits() {
			binary.BigEndian.PutUint32(w.b, uint32(w.n-HeaderSize))
			w.b[HeaderSize] = byte(code)
			return w.b[:w.n]
		}
		capacity *= 2
	}
}

// fieldHandler consumes the value of one field. It returns false when the
// field is not part of the message schema; the caller then skips the value.
type fieldHandler func(r *region, field int, wt WireType) (bool, error)

// decodeFields walks the tag/value pairs of r until its end.
func decodeFields(r *region, fn fieldHandler) error {
	for r.pos < r.end {
		field, wt, err := r.readTag()
		if err != nil {
			return err
		}
		handled, err := fn(r, field, wt)
		if err != nil {
			return err
		}
		if !handled {
			if err := r.skip(wt); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeFields walks the fields of payload and calls fn with the field
// number, wire type and raw value of each: the varint value for WireVarint,
// the bytes for WireBytes. Other wire types are skipped.
func DecodeFields(payload []byte, fn func(field int, wt WireType, v uint64, b []byte) error) error {
	return decodeFields(newRegion(payload), func(r *region, field int, wt WireType) (bool, error) {
		switch wt {
		case WireVarint:
			v, err := r.readVarint()
			if err != nil {
				return true, err
			}
			return true, fn(field, wt, v, nil)
		case WireBytes:
			b, err := r.readBytes()
			if err != nil {
				return true, err
			}
			return true, fn(field, wt, 0, b)
		}
		return false, nil
	})
}
