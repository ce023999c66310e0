package collateral

import (
	"bytes"
	"crypto/ed25519"
)

// AdminSignaturesAccount records which admins have already submitted a
// signature for one withdrawal message.
type AdminSignaturesAccount struct {
	Version SchemaVersion
	Signers []ed25519.PublicKey
}

// HasSigner reports whether key already signed.
func (a *AdminSignaturesAccount) HasSigner(key ed25519.PublicKey) bool {
	for _, signer := range a.Signers {
		if bytes.Equal(signer, key) {
			return true
		}
	}
	return false
}

func (a *AdminSignaturesAccount) Marshal() []byte {
	version := a.Version
	if version == SchemaUnknown {
		version = SchemaV2
	}

	data := make([]byte, 8+4+len(a.Signers)*ed25519.PublicKeySize)

	var offset int
	putDiscriminator(data, version.adminSignaturesDiscriminator(), &offset)
	putKeyVec(data, a.Signers, &offset)

	return data
}

// Unmarshal decodes a record of the given schema. A record written under
// the other schema is rejected.
func (a *AdminSignaturesAccount) Unmarshal(version SchemaVersion, data []byte) error {
	if len(data) < 8+4 {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(data[:8], version.adminSignaturesDiscriminator()) {
		return ErrInvalidAccountData
	}

	a.Version = version

	offset := 8
	if !getKeyVec(data, &a.Signers, &offset) {
		return ErrInvalidAccountData
	}
	return nil
}
