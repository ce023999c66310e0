package collateral

import (
	"bytes"
	"crypto/ed25519"
)

// CoordinatorAccount lists the keys allowed to produce coordinator
// signatures. Only executors[0] signs withdrawals.
type CoordinatorAccount struct {
	Executors []ed25519.PublicKey
}

// Executor returns the signing executor, or nil when none is registered.
func (a *CoordinatorAccount) Executor() ed25519.PublicKey {
	if len(a.Executors) == 0 {
		return nil
	}
	return a.Executors[0]
}

func (a *CoordinatorAccount) Marshal() []byte {
	data := make([]byte, 8+4+len(a.Executors)*ed25519.PublicKeySize)

	var offset int
	putDiscriminator(data, coordinatorDiscriminator, &offset)
	putKeyVec(data, a.Executors, &offset)

	return data
}

func (a *CoordinatorAccount) Unmarshal(data []byte) error {
	if len(data) < 8+4 {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(data[:8], coordinatorDiscriminator) {
		return ErrInvalidAccountData
	}

	offset := 8
	if !getKeyVec(data, &a.Executors, &offset) {
		return ErrInvalidAccountData
	}
	return nil
}
