package eip712

import (
	"crypto/ed25519"
	"encoding/hex"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
)

func TestKeccak256_KnownVectors(t *testing.T) {
	assert.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", Keccak256(""))
	assert.Equal(t, "4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45", Keccak256("abc"))

	// NIST SHA3-256("") must not be what we produce.
	assert.NotEqual(t, "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a", Keccak256(""))
}

func TestKeccak256_MatchesLegacyKeccak(t *testing.T) {
	for _, input := range []string{
		"Collateral",
		"Coordinator",
		"2",
		domainTypeString,
	} {
		h := sha3.NewLegacyKeccak256()
		h.Write([]byte(input))
		assert.Equal(t, hex.EncodeToString(h.Sum(nil)), Keccak256(input))

		nist := sha3.Sum256([]byte(input))
		assert.NotEqual(t, hex.EncodeToString(nist[:]), Keccak256(input))
	}
}

func TestKeccak256Hex(t *testing.T) {
	actual, err := Keccak256Hex("616263")
	require.NoError(t, err)
	assert.Equal(t, Keccak256("abc"), actual)

	_, err = Keccak256Hex("zz")
	assert.Equal(t, failure.KindFormat, failure.KindOf(err))
}

func TestEncodeAddress(t *testing.T) {
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	pub[0] = 0xab
	pub[31] = 0x01

	encoded, err := EncodeAddress("sender", pub)
	require.NoError(t, err)
	assert.Len(t, encoded, 64)
	assert.Equal(t, "ab", encoded[:2])
	assert.Equal(t, "01", encoded[62:])

	_, err = EncodeAddress("sender", pub[:31])
	require.Error(t, err)
	assert.Equal(t, failure.KindFormat, failure.KindOf(err))
	assert.Contains(t, err.Error(), "sender")
}

func TestEncodeUint(t *testing.T) {
	assert.Equal(t, "00000000", EncodeUint32(0))
	assert.Equal(t, "ffffffff", EncodeUint32(math.MaxUint32))
	assert.Equal(t, "0000000000000000", EncodeUint64(0))
	assert.Equal(t, "ffffffffffffffff", EncodeUint64(math.MaxUint64))
	assert.Equal(t, "00000000000003e8", EncodeUint64(1000))

	for _, tc := range []struct {
		v        uint64
		bits     int
		expected string
	}{
		{5, 8, "05"},
		{0x1234, 16, "1234"},
		{5, 32, "00000005"},
		{1700000000, 64, "000000006553f100"},
	} {
		actual, err := EncodeUint("value", tc.v, tc.bits)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, actual)
	}

	_, err := EncodeUint("nonce", math.MaxUint32+1, 32)
	assert.Equal(t, failure.KindFormat, failure.KindOf(err))

	_, err = EncodeUint("nonce", 1, 24)
	assert.Equal(t, failure.KindFormat, failure.KindOf(err))
}

func TestEncodeBytes(t *testing.T) {
	assert.Equal(t, "1901", Padding())
	assert.Equal(t, "", EncodeBytes(nil))
	assert.Equal(t, "00ff10", EncodeBytes([]byte{0, 255, 16}))
}
