package collateral

import (
	"bytes"
	"crypto/ed25519"
)

const SingleSignerCollateralAccountSize = (8 + // discriminator
	32 + // owner
	32 + // coordinator
	4) // nonce

// SingleSignerCollateralAccount is a pool controlled by one owner key.
type SingleSignerCollateralAccount struct {
	Owner       ed25519.PublicKey
	Coordinator ed25519.PublicKey
	Nonce       uint32
}

func (a *SingleSignerCollateralAccount) Marshal() []byte {
	data := make([]byte, SingleSignerCollateralAccountSize)

	var offset int
	putDiscriminator(data, singleSignerDiscriminator, &offset)
	putKey(data, a.Owner, &offset)
	putKey(data, a.Coordinator, &offset)
	putUint32(data, a.Nonce, &offset)

	return data
}

func (a *SingleSignerCollateralAccount) Unmarshal(data []byte) error {
	if len(data) < SingleSignerCollateralAccountSize {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(data[:8], singleSignerDiscriminator) {
		return ErrInvalidAccountData
	}

	offset := 8
	getKey(data, &a.Owner, &offset)
	getKey(data, &a.Coordinator, &offset)
	getUint32(data, &a.Nonce, &offset)

	return nil
}

// IsSingleSignerCollateralAccount reports whether data holds a single signer
// pool rather than a multi-signer one.
func IsSingleSignerCollateralAccount(data []byte) bool {
	return len(data) >= 8 && bytes.Equal(data[:8], singleSignerDiscriminator)
}
