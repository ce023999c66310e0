package collateral

import (
	"bytes"
	"crypto/ed25519"
)

const collateralAccountHeaderSize = (8 + // discriminator
	32 + // coordinator
	4 + // nonce (v1) or admin_funds_nonce (v2)
	4) // admins length prefix

// CollateralAccount is a multi-signer pool. V1 pools track a single nonce;
// V2 pools track the admin funds nonce instead.
type CollateralAccount struct {
	Version SchemaVersion

	Coordinator     ed25519.PublicKey
	Nonce           *uint32
	AdminFundsNonce *uint32
	Admins          []ed25519.PublicKey
}

// MultisigNonce is the nonce bound into admin signed messages.
func (a *CollateralAccount) MultisigNonce() uint32 {
	if a.AdminFundsNonce != nil {
		return *a.AdminFundsNonce
	}
	if a.Nonce != nil {
		return *a.Nonce
	}
	return 0
}

// SingleSignerNonce is the nonce bound into messages when the pool is used
// through the single signer path.
func (a *CollateralAccount) SingleSignerNonce() uint32 {
	if a.Nonce != nil {
		return *a.Nonce
	}
	if a.AdminFundsNonce != nil {
		return *a.AdminFundsNonce
	}
	return 0
}

// IsAdmin reports whether key may sign for the pool. An empty allow-list
// admits anyone.
func (a *CollateralAccount) IsAdmin(key ed25519.PublicKey) bool {
	if len(a.Admins) == 0 {
		return true
	}
	for _, admin := range a.Admins {
		if bytes.Equal(admin, key) {
			return true
		}
	}
	return false
}

func (a *CollateralAccount) Marshal() []byte {
	version := a.Version
	if version == SchemaUnknown {
		version = SchemaV2
	}

	data := make([]byte, collateralAccountHeaderSize+len(a.Admins)*ed25519.PublicKeySize)

	var offset int
	putDiscriminator(data, version.collateralDiscriminator(), &offset)
	putKey(data, a.Coordinator, &offset)
	if version == SchemaV1 {
		putUint32(data, a.SingleSignerNonce(), &offset)
	} else {
		putUint32(data, a.MultisigNonce(), &offset)
	}
	putKeyVec(data, a.Admins, &offset)

	return data
}

// Unmarshal decodes a pool written under version. SchemaUnknown accepts
// either schema. Trailing fields added by later program versions are
// ignored.
func (a *CollateralAccount) Unmarshal(version SchemaVersion, data []byte) error {
	if len(data) < collateralAccountHeaderSize {
		return ErrInvalidAccountData
	}

	switch {
	case bytes.Equal(data[:8], collateralV2Discriminator):
		a.Version = SchemaV2
	case bytes.Equal(data[:8], collateralV1Discriminator):
		a.Version = SchemaV1
	default:
		return ErrInvalidAccountData
	}
	if version != SchemaUnknown && version != a.Version {
		return ErrInvalidAccountData
	}

	offset := 8
	getKey(data, &a.Coordinator, &offset)

	var nonce uint32
	getUint32(data, &nonce, &offset)
	if a.Version == SchemaV1 {
		a.Nonce, a.AdminFundsNonce = &nonce, nil
	} else {
		a.Nonce, a.AdminFundsNonce = nil, &nonce
	}

	if !getKeyVec(data, &a.Admins, &offset) {
		return ErrInvalidAccountData
	}

	return nil
}
