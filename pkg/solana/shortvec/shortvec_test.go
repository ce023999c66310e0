package shortvec

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownEncodings(t *testing.T) {
	for _, tc := range []struct {
		value   int
		encoded []byte
	}{
		{0x0, []byte{0x00}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x80, 0x01}},
		{0x3fff, []byte{0xff, 0x7f}},
		{0x4000, []byte{0x80, 0x80, 0x01}},
		{0xffff, []byte{0xff, 0xff, 0x03}},
	} {
		var buf bytes.Buffer
		n, err := EncodeLen(&buf, tc.value)
		require.NoError(t, err)
		assert.Equal(t, len(tc.encoded), n)
		assert.Equal(t, tc.encoded, buf.Bytes())

		decoded, err := DecodeLen(bytes.NewReader(tc.encoded))
		require.NoError(t, err)
		assert.Equal(t, tc.value, decoded)
	}
}

func TestEveryLength(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i <= math.MaxUint16; i++ {
		buf.Reset()
		_, err := EncodeLen(&buf, i)
		require.NoError(t, err)

		decoded, err := DecodeLen(&buf)
		require.NoError(t, err)
		require.Equal(t, i, decoded)
	}
}

func TestInvalid(t *testing.T) {
	_, err := EncodeLen(io.Discard, math.MaxUint16+1)
	assert.Error(t, err)
	_, err = EncodeLen(io.Discard, -1)
	assert.Error(t, err)

	for _, encoded := range [][]byte{
		{},
		{0x80},
		{0x80, 0x80, 0x80, 0x01},
		{0xff, 0xff, 0x07},
	} {
		_, err := DecodeLen(bytes.NewReader(encoded))
		assert.Error(t, err, "%x", encoded)
	}
}
