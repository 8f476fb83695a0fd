package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is a structure with a fixed, ordered protobuf wire layout
// Every field is always written, so an encoding is canonical for its value
type Message interface {
	EncodeWire(e *Encoder)
	DecodeWire(d *Decoder)
}

// Encode() returns the wire bytes of the message
func Encode(m Message) []byte {
	e := NewEncoder()
	m.EncodeWire(e)
	return e.Bytes()
}

// Decode() populates the message from wire bytes, rejecting trailing data
func Decode(data []byte, m Message) error {
	d := NewDecoder(data)
	m.DecodeWire(d)
	return d.Finish()
}

// ENCODER BELOW

// Encoder appends fields in the order they are written
type Encoder struct {
	buf []byte
}

// NewEncoder() creates an empty Encoder
func NewEncoder() *Encoder { return &Encoder{} }

// Bytes() returns the encoded bytes
func (e *Encoder) Bytes() []byte { return e.buf }

// Uint64() writes a varint field
func (e *Encoder) Uint64(num protowire.Number, v uint64) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, v)
}

// Uint32() writes a varint field
func (e *Encoder) Uint32(num protowire.Number, v uint32) { e.Uint64(num, uint64(v)) }

// Bool() writes a varint field of 0 or 1
func (e *Encoder) Bool(num protowire.Number, v bool) { e.Uint64(num, protowire.EncodeBool(v)) }

// RawBytes() writes a length delimited field
func (e *Encoder) RawBytes(num protowire.Number, v []byte) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, v)
}

// Message() writes a nested message as a length delimited field
func (e *Encoder) Message(num protowire.Number, m Message) { e.RawBytes(num, Encode(m)) }

// DECODER BELOW

var (
	ErrTruncated       = errors.New("truncated wire data")
	ErrUnexpectedField = errors.New("unexpected wire field")
	ErrTrailingData    = errors.New("trailing wire data")
)

// Decoder reads fields strictly in the order they were encoded
// The first failure sticks: later reads return zero values and Finish() reports it
type Decoder struct {
	buf []byte
	err error
}

// NewDecoder() creates a Decoder over data
func NewDecoder(data []byte) *Decoder { return &Decoder{buf: data} }

// Err() returns the first error encountered
func (d *Decoder) Err() error { return d.err }

// Fail() records an error raised by the caller while decoding
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Finish() returns the first error or an error if bytes remain
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if len(d.buf) != 0 {
		return ErrTrailingData
	}
	return nil
}

// Next() reports whether the next field carries the number num
func (d *Decoder) Next(num protowire.Number) bool {
	if d.err != nil || len(d.buf) == 0 {
		return false
	}
	n, _, l := protowire.ConsumeTag(d.buf)
	return l > 0 && n == num
}

// tag() consumes a tag and checks it against the expected number and type
func (d *Decoder) tag(num protowire.Number, typ protowire.Type) bool {
	if d.err != nil {
		return false
	}
	n, t, l := protowire.ConsumeTag(d.buf)
	if l < 0 {
		d.err = ErrTruncated
		return false
	}
	if n != num || t != typ {
		d.err = fmt.Errorf("%w: got %d/%d want %d/%d", ErrUnexpectedField, n, t, num, typ)
		return false
	}
	d.buf = d.buf[l:]
	return true
}

// Uint64() reads a varint field
func (d *Decoder) Uint64(num protowire.Number) uint64 {
	if !d.tag(num, protowire.VarintType) {
		return 0
	}
	v, l := protowire.ConsumeVarint(d.buf)
	if l < 0 {
		d.err = ErrTruncated
		return 0
	}
	d.buf = d.buf[l:]
	return v
}

// Uint32() reads a varint field that must fit in 32 bits
func (d *Decoder) Uint32(num protowire.Number) uint32 {
	v := d.Uint64(num)
	if v > 1<<32-1 {
		d.Fail(fmt.Errorf("field %d overflows uint32", num))
		return 0
	}
	return uint32(v)
}

// Bool() reads a varint field that must be 0 or 1
func (d *Decoder) Bool(num protowire.Number) bool {
	v := d.Uint64(num)
	if v > 1 {
		d.Fail(fmt.Errorf("field %d is not a bool", num))
		return false
	}
	return v == 1
}

// RawBytes() reads a length delimited field into a fresh slice
func (d *Decoder) RawBytes(num protowire.Number) []byte {
	if !d.tag(num, protowire.BytesType) {
		return nil
	}
	v, l := protowire.ConsumeBytes(d.buf)
	if l < 0 {
		d.err = ErrTruncated
		return nil
	}
	d.buf = d.buf[l:]
	return append([]byte{}, v...)
}

// Message() reads a nested message field
func (d *Decoder) Message(num protowire.Number, m Message) {
	bz := d.RawBytes(num)
	if d.err != nil {
		return
	}
	d.Fail(Decode(bz, m))
}
