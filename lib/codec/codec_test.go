package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type testMessage struct {
	Number uint64
	Flag   bool
	Data   []byte
	Inner  *testInner
}

type testInner struct {
	Small uint32
}

func (m *testMessage) EncodeWire(e *Encoder) {
	e.Uint64(1, m.Number)
	e.Bool(2, m.Flag)
	e.RawBytes(3, m.Data)
	e.Message(4, m.Inner)
}

func (m *testMessage) DecodeWire(d *Decoder) {
	m.Number = d.Uint64(1)
	m.Flag = d.Bool(2)
	m.Data = d.RawBytes(3)
	m.Inner = new(testInner)
	d.Message(4, m.Inner)
}

func (m *testInner) EncodeWire(e *Encoder) { e.Uint32(1, m.Small) }
func (m *testInner) DecodeWire(d *Decoder) { m.Small = d.Uint32(1) }

func TestWire(t *testing.T) {
	v := &testMessage{Number: 300, Flag: true, Data: []byte("abc"), Inner: &testInner{Small: 7}}
	bz := Encode(v)
	got := new(testMessage)
	require.NoError(t, Decode(bz, got))
	require.Equal(t, v, got)
	// encoding is stable
	require.Equal(t, bz, Encode(got))
}

func TestDecodeStrict(t *testing.T) {
	valid := Encode(&testMessage{Number: 1, Data: []byte{1}, Inner: &testInner{}})
	tests := []struct {
		name   string
		detail string
		data   []byte
		err    error
	}{
		{
			name:   "truncated",
			detail: "the last byte of the nested message is missing",
			data:   valid[:len(valid)-1],
			err:    ErrTruncated,
		},
		{
			name:   "trailing",
			detail: "extra bytes after the final field",
			data:   append(append([]byte{}, valid...), 0x08, 0x01),
			err:    ErrTrailingData,
		},
		{
			name:   "out of order",
			detail: "field 2 before field 1",
			data:   []byte{0x10, 0x01, 0x08, 0x01},
			err:    ErrUnexpectedField,
		},
		{
			name:   "empty",
			detail: "no fields at all",
			data:   nil,
			err:    ErrTruncated,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := Decode(test.data, new(testMessage))
			require.Error(t, err)
			require.True(t, errors.Is(err, test.err), err.Error())
		})
	}
}

func TestDecodeBoolRange(t *testing.T) {
	// field 1 = 0, field 2 = 2 which is not a valid bool
	d := NewDecoder([]byte{0x08, 0x00, 0x10, 0x02})
	d.Uint64(1)
	d.Bool(2)
	require.Error(t, d.Finish())
}

func TestNext(t *testing.T) {
	e := NewEncoder()
	e.RawBytes(5, []byte("a"))
	e.RawBytes(5, []byte("b"))
	e.Uint64(6, 9)
	d := NewDecoder(e.Bytes())
	var items [][]byte
	for d.Next(5) {
		items = append(items, d.RawBytes(5))
	}
	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, items)
	require.Equal(t, uint64(9), d.Uint64(6))
	require.NoError(t, d.Finish())
}
