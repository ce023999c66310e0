// Package system holds the well known native program and sysvar ids the
// collateral program references.
package system

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
)

// ProgramKey is the system program, 11111111111111111111111111111111.
var ProgramKey [ed25519.PublicKeySize]byte

// InstructionsSysVar lets a program read the instructions of the transaction
// executing it, which is how the collateral program finds the signature
// verification preceding a withdrawal.
//
// Source: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/sysvar/instructions.rs#L31
var InstructionsSysVar = mustDecodeKey("Sysvar1nstructions1111111111111111111111111")

// IsProgramKey reports whether pub is the system program id. The same
// all-zero key doubles as the native asset marker in collateral pools.
func IsProgramKey(pub ed25519.PublicKey) bool {
	return bytes.Equal(pub, ProgramKey[:])
}

func mustDecodeKey(encoded string) ed25519.PublicKey {
	key, err := base58.Decode(encoded)
	if err != nil || len(key) != ed25519.PublicKeySize {
		panic("invalid key: " + encoded)
	}
	return key
}
