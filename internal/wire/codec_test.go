package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, encode func(*Writer) error, decode func(*Reader) error) {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, encode(w))
	require.NoError(t, w.Flush())
	r := NewReader(&buf)
	require.NoError(t, decode(r))
}

func TestUint8RoundTrip(t *testing.T) {
	var got uint8
	roundTrip(t,
		func(w *Writer) error { return w.WriteUint8(0xAB) },
		func(r *Reader) (err error) { got, err = r.ReadUint8(); return },
	)
	assert.Equal(t, uint8(0xAB), got)
}

func TestUint16RoundTrip(t *testing.T) {
	var got uint16
	roundTrip(t,
		func(w *Writer) error { return w.WriteUint16(0xBEEF) },
		func(r *Reader) (err error) { got, err = r.ReadUint16(); return },
	)
	assert.Equal(t, uint16(0xBEEF), got)
}

func TestInt32RoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 1 << 30, -(1 << 30), -2147483648, 2147483647} {
		var got int32
		roundTrip(t,
			func(w *Writer) error { return w.WriteInt32(v) },
			func(r *Reader) (err error) { got, err = r.ReadInt32(); return },
		)
		assert.Equal(t, v, got)
	}
}

func TestASCIIStringRoundTrip(t *testing.T) {
	s := "some-group"
	var got *string
	roundTrip(t,
		func(w *Writer) error { return w.WriteASCIIString(&s) },
		func(r *Reader) (err error) { got, err = r.ReadASCIIString(); return },
	)
	require.NotNil(t, got)
	assert.Equal(t, s, *got)
}

func TestASCIIStringNullRoundTrip(t *testing.T) {
	var got *string
	roundTrip(t,
		func(w *Writer) error { return w.WriteASCIIString(nil) },
		func(r *Reader) (err error) { got, err = r.ReadASCIIString(); return },
	)
	assert.Nil(t, got)
}

func TestASCIIStringEmptyIsNotNull(t *testing.T) {
	empty := ""
	var got *string
	roundTrip(t,
		func(w *Writer) error { return w.WriteASCIIString(&empty) },
		func(r *Reader) (err error) { got, err = r.ReadASCIIString(); return },
	)
	require.NotNil(t, got)
	assert.Equal(t, "", *got)
}

func TestUTFStringRoundTrip(t *testing.T) {
	s := "héllo wörld あい"
	var got *string
	roundTrip(t,
		func(w *Writer) error { return w.WriteUTFString(&s) },
		func(r *Reader) (err error) { got, err = r.ReadUTFString(); return },
	)
	require.NotNil(t, got)
	assert.Equal(t, s, *got)
}

func TestUTFStringNullRoundTrip(t *testing.T) {
	var got *string
	roundTrip(t,
		func(w *Writer) error { return w.WriteUTFString(nil) },
		func(r *Reader) (err error) { got, err = r.ReadUTFString(); return },
	)
	assert.Nil(t, got)
}

func TestByteBlockRoundTrip(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	var got []byte
	roundTrip(t,
		func(w *Writer) error { return w.WriteByteBlock(payload) },
		func(r *Reader) (err error) { got, err = r.ReadByteBlock(); return },
	)
	assert.Equal(t, payload, got)
}

func TestByteBlockNullRoundTrip(t *testing.T) {
	var got []byte
	roundTrip(t,
		func(w *Writer) error { return w.WriteByteBlock(nil) },
		func(r *Reader) (err error) { got, err = r.ReadByteBlock(); return },
	)
	assert.Nil(t, got)
}

func TestByteBlockEmptyIsNotNull(t *testing.T) {
	empty := []byte{}
	var got []byte
	roundTrip(t,
		func(w *Writer) error { return w.WriteByteBlock(empty) },
		func(r *Reader) (err error) { got, err = r.ReadByteBlock(); return },
	)
	assert.NotNil(t, got)
	assert.Len(t, got, 0)
}
