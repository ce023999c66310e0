package ed25519

import (
	"crypto/ed25519"
	"encoding/binary"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keySigner struct {
	key ed25519.PrivateKey
	err error
}

func (s *keySigner) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

func (s *keySigner) Sign(message []byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return ed25519.Sign(s.key, message), nil
}

func TestInstruction_Layout(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	message := make([]byte, 32)
	for i := range message {
		message[i] = byte(i)
	}
	signature := ed25519.Sign(priv, message)

	instruction, err := Instruction(pub, signature, message)
	require.NoError(t, err)

	assert.EqualValues(t, ProgramKey, instruction.Program)
	assert.Empty(t, instruction.Accounts)

	data := instruction.Data
	require.Len(t, data, 112+len(message))

	assert.EqualValues(t, 1, data[0])
	assert.EqualValues(t, 0, data[1])
	assert.EqualValues(t, 48, binary.LittleEndian.Uint16(data[2:]))
	assert.EqualValues(t, math.MaxUint16, binary.LittleEndian.Uint16(data[4:]))
	assert.EqualValues(t, 16, binary.LittleEndian.Uint16(data[6:]))
	assert.EqualValues(t, math.MaxUint16, binary.LittleEndian.Uint16(data[8:]))
	assert.EqualValues(t, 112, binary.LittleEndian.Uint16(data[10:]))
	assert.EqualValues(t, len(message), binary.LittleEndian.Uint16(data[12:]))
	assert.EqualValues(t, math.MaxUint16, binary.LittleEndian.Uint16(data[14:]))

	assert.EqualValues(t, pub, data[16:48])
	assert.EqualValues(t, signature, data[48:112])
	assert.EqualValues(t, message, data[112:])

	assert.True(t, ed25519.Verify(data[16:48], data[112:], data[48:112]))
}

func TestInstruction_Invalid(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signature := ed25519.Sign(priv, []byte("msg"))

	_, err = Instruction(pub[:31], signature, []byte("msg"))
	assert.Equal(t, ErrInvalidPublicKey, errors.Cause(err))
	assert.True(t, IsMalformedInputError(err))

	_, err = Instruction(pub, signature[:63], []byte("msg"))
	assert.Equal(t, ErrInvalidSignature, errors.Cause(err))
	assert.True(t, IsMalformedInputError(err))

	_, err = Instruction(pub, signature, make([]byte, math.MaxUint16+1))
	assert.Equal(t, ErrMessageTooLarge, errors.Cause(err))
	assert.True(t, IsMalformedInputError(err))

	assert.False(t, IsMalformedInputError(errors.New("other")))
}

func TestSignedInstruction(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	signer := &keySigner{key: priv}
	message := []byte("digest")

	instruction, signature, err := SignedInstruction(signer, message)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(signer.PublicKey(), message, signature))
	assert.EqualValues(t, signature, instruction.Data[48:112])

	signer.err = errors.New("hsm unavailable")
	_, _, err = SignedInstruction(signer, message)
	assert.Error(t, err)
	assert.False(t, IsMalformedInputError(err))
}
