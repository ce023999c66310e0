// Package eip712 implements the hex-level encoders used to build the typed,
// domain-separated withdrawal messages verified by the collateral program.
//
// All encoders produce lowercase hex. Hashing uses legacy Keccak-256 (the
// Ethereum variant), not NIST SHA3-256: the two differ in padding and a
// substitution yields digests the on-chain verifier will never accept.
package eip712

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
)

// Keccak256 hashes the UTF-8 bytes of data.
func Keccak256(data string) string {
	return hex.EncodeToString(crypto.Keccak256([]byte(data)))
}

// Keccak256Hex hashes the bytes represented by hexData.
func Keccak256Hex(hexData string) (string, error) {
	raw, err := hex.DecodeString(hexData)
	if err != nil {
		return "", failure.NewFormatError("hex data", "not valid hex: %s", err.Error())
	}
	return hex.EncodeToString(crypto.Keccak256(raw)), nil
}

// EncodeString encodes a dynamic string field as the hash of its contents.
func EncodeString(value string) string {
	return Keccak256(value)
}

// EncodeBytes encodes raw bytes as-is.
func EncodeBytes(value []byte) string {
	return hex.EncodeToString(value)
}

// EncodeAddress encodes a public key as its 32 raw bytes.
func EncodeAddress(field string, value ed25519.PublicKey) (string, error) {
	if len(value) != ed25519.PublicKeySize {
		return "", failure.NewFormatError(field, "address must be %d bytes, got %d", ed25519.PublicKeySize, len(value))
	}
	return hex.EncodeToString(value), nil
}

// EncodeUint encodes v big-endian, zero padded to bits/4 hex characters.
func EncodeUint(field string, v uint64, bits int) (string, error) {
	switch bits {
	case 8, 16, 32, 64:
	default:
		return "", failure.NewFormatError(field, "unsupported integer width %d", bits)
	}

	if bits < 64 && v>>uint(bits) != 0 {
		return "", failure.NewFormatError(field, "value %d overflows uint%d", v, bits)
	}

	encoded := fmt.Sprintf("%x", v)
	return strings.Repeat("0", bits/4-len(encoded)) + encoded, nil
}

// EncodeUint32 encodes a uint32 as 8 hex characters.
func EncodeUint32(v uint32) string {
	return fmt.Sprintf("%08x", v)
}

// EncodeUint64 encodes a uint64 as 16 hex characters.
func EncodeUint64(v uint64) string {
	return fmt.Sprintf("%016x", v)
}
