package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactIntRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, -128, 255, -256, 1 << 20, -(1 << 20),
		1 << 40, -(1 << 40), 9223372036854775807, -9223372036854775808}
	for _, v := range values {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		require.NoError(t, w.WriteCompactInt(v))
		require.NoError(t, w.Flush())

		r := NewReader(&buf)
		got, err := r.ReadCompactInt()
		require.NoError(t, err)
		assert.Equal(t, v, got, "round trip of %d", v)
	}
}

func TestCompactIntZeroIsOneByte(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteCompactInt(0))
	require.NoError(t, w.Flush())
	assert.Equal(t, 1, buf.Len())
	assert.Equal(t, byte(0), buf.Bytes()[0])
}

func TestCompactIntPairRoundTrip(t *testing.T) {
	cases := []struct{ hd, hr int64 }{
		{0, 0},
		{0, 1},
		{1, 1},
		{0, 1 << 20},
		{1 << 20, 1 << 20},
		{100, 100 + (1 << 40)},
		{1 << 40, 1<<40 + 5},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		require.NoError(t, w.WriteCompactIntPair(c.hd, c.hr))
		require.NoError(t, w.Flush())

		r := NewReader(&buf)
		gotHD, gotHR, err := r.ReadCompactIntPair()
		require.NoError(t, err)
		assert.Equal(t, c.hd, gotHD)
		assert.Equal(t, c.hr, gotHR)
	}
}

func TestCompactIntPairZeroIsOneByte(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteCompactIntPair(0, 0))
	require.NoError(t, w.Flush())
	assert.Equal(t, 1, buf.Len())
	assert.Equal(t, byte(0), buf.Bytes()[0])
}

func TestCompactIntPairRejectsDescending(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	err := w.WriteCompactIntPair(5, 3)
	assert.Error(t, err)
}
