package ed25519

import (
	"crypto/ed25519"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/code-payments/collateral-server/pkg/solana"
)

// Ed25519SigVerify111111111111111111111111111
var ProgramKey = ed25519.PublicKey{3, 125, 70, 214, 124, 147, 251, 190, 18, 249, 66, 143, 131, 141, 64, 255, 5, 112, 116, 73, 39, 244, 138, 100, 252, 202, 112, 68, 128, 0, 0, 0}

const (
	// All data lives inside the verify instruction itself.
	currentInstructionIndex = math.MaxUint16

	headerSize         = 16
	publicKeyOffset    = headerSize
	signatureOffset    = publicKeyOffset + ed25519.PublicKeySize
	messageOffset      = signatureOffset + ed25519.SignatureSize
	maxMessageDataSize = math.MaxUint16
)

var (
	ErrInvalidPublicKey = errors.New("invalid public key length")
	ErrInvalidSignature = errors.New("invalid signature length")
	ErrMessageTooLarge  = errors.New("message too large")
)

// IsMalformedInputError reports whether Instruction rejected its inputs.
func IsMalformedInputError(err error) bool {
	cause := errors.Cause(err)
	return cause == ErrInvalidPublicKey || cause == ErrInvalidSignature || cause == ErrMessageTooLarge
}

// Signer produces Ed25519 signatures without exposing the secret key.
type Signer interface {
	PublicKey() ed25519.PublicKey
	Sign(message []byte) ([]byte, error)
}

// Instruction builds a native signature verification instruction asserting
// that signature is a valid signature of message by signer. Only the single
// signature layout is produced.
//
// Reference: https://github.com/solana-labs/solana/blob/27eff8408b7223bb3c4ab70523f8a8dca3ca6645/sdk/src/ed25519_instruction.rs#L32
func Instruction(signer ed25519.PublicKey, signature, message []byte) (solana.Instruction, error) {
	if len(signer) != ed25519.PublicKeySize {
		return solana.Instruction{}, errors.Wrapf(ErrInvalidPublicKey, "got %d bytes", len(signer))
	}
	if len(signature) != ed25519.SignatureSize {
		return solana.Instruction{}, errors.Wrapf(ErrInvalidSignature, "got %d bytes", len(signature))
	}
	if len(message) > maxMessageDataSize {
		return solana.Instruction{}, errors.Wrapf(ErrMessageTooLarge, "got %d bytes", len(message))
	}

	data := make([]byte, messageOffset+len(message))

	data[0] = 1 // num_signatures
	data[1] = 0 // padding

	binary.LittleEndian.PutUint16(data[2:], signatureOffset)
	binary.LittleEndian.PutUint16(data[4:], currentInstructionIndex)
	binary.LittleEndian.PutUint16(data[6:], publicKeyOffset)
	binary.LittleEndian.PutUint16(data[8:], currentInstructionIndex)
	binary.LittleEndian.PutUint16(data[10:], messageOffset)
	binary.LittleEndian.PutUint16(data[12:], uint16(len(message)))
	binary.LittleEndian.PutUint16(data[14:], currentInstructionIndex)

	copy(data[publicKeyOffset:], signer)
	copy(data[signatureOffset:], signature)
	copy(data[messageOffset:], message)

	return solana.NewInstruction(
		ProgramKey,
		data,
	), nil
}

// SignedInstruction signs message with signer and wraps the result in a
// verification instruction.
func SignedInstruction(signer Signer, message []byte) (solana.Instruction, []byte, error) {
	signature, err := signer.Sign(message)
	if err != nil {
		return solana.Instruction{}, nil, errors.Wrap(err, "failed to sign message")
	}

	instruction, err := Instruction(signer.PublicKey(), signature, message)
	if err != nil {
		return solana.Instruction{}, nil, err
	}

	return instruction, signature, nil
}
