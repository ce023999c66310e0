package collateral

import (
	"crypto/ed25519"
	"encoding/binary"
)

func putDiscriminator(dst []byte, src []byte, offset *int) {
	copy(dst[*offset:], src)
	*offset += 8
}

func putKey(dst []byte, src []byte, offset *int) {
	copy(dst[*offset:], src)
	*offset += ed25519.PublicKeySize
}

func getKey(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src[*offset:])
	*offset += ed25519.PublicKeySize
}

func putBytes32(dst []byte, src [32]byte, offset *int) {
	copy(dst[*offset:], src[:])
	*offset += 32
}

func putUint8(dst []byte, v uint8, offset *int) {
	dst[*offset] = v
	*offset += 1
}

func putUint32(dst []byte, v uint32, offset *int) {
	binary.LittleEndian.PutUint32(dst[*offset:], v)
	*offset += 4
}

func getUint32(src []byte, dst *uint32, offset *int) {
	*dst = binary.LittleEndian.Uint32(src[*offset:])
	*offset += 4
}

func putUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst[*offset:], v)
	*offset += 8
}

// getKeyVec reads a Borsh Vec<Pubkey>. It reports false when the declared
// length runs past the end of src.
func getKeyVec(src []byte, dst *[]ed25519.PublicKey, offset *int) bool {
	if len(src) < *offset+4 {
		return false
	}

	var length uint32
	getUint32(src, &length, offset)

	if uint64(len(src)-*offset) < uint64(length)*ed25519.PublicKeySize {
		return false
	}

	keys := make([]ed25519.PublicKey, length)
	for i := range keys {
		getKey(src, &keys[i], offset)
	}
	*dst = keys
	return true
}

func putKeyVec(dst []byte, src []ed25519.PublicKey, offset *int) {
	putUint32(dst, uint32(len(src)), offset)
	for _, key := range src {
		putKey(dst, key, offset)
	}
}
