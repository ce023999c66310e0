// Package shortvec implements the compact-u16 length prefix used by Solana's
// transaction wire format: 7 bits per byte, little end first, high bit set on
// every byte but the last, at most 3 bytes.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedLen = 3

// EncodeLen writes n to w and returns the number of bytes written.
func EncodeLen(w io.Writer, n int) (int, error) {
	if n < 0 || n > math.MaxUint16 {
		return 0, errors.Errorf("length %d out of range [0, %d]", n, math.MaxUint16)
	}

	var encoded [maxEncodedLen]byte
	size := 0
	for {
		encoded[size] = byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			size++
			break
		}
		encoded[size] |= 0x80
		size++
	}

	return w.Write(encoded[:size])
}

// DecodeLen reads a compact-u16 length from r.
func DecodeLen(r io.Reader) (int, error) {
	var (
		value int
		b     [1]byte
	)
	for i := 0; i < maxEncodedLen; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}

		value |= int(b[0]&0x7f) << (7 * i)
		if b[0]&0x80 == 0 {
			if value > math.MaxUint16 {
				return 0, errors.Errorf("length %d exceeds %d", value, math.MaxUint16)
			}
			return value, nil
		}
	}
	return 0, errors.Errorf("length prefix longer than %d bytes", maxEncodedLen)
}
