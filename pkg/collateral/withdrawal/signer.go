package withdrawal

import (
	"crypto/ed25519"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/solana"
)

// Signer produces Ed25519 signatures for one key. Implementations must not
// expose the secret key through any method, including String.
type Signer interface {
	PublicKey() ed25519.PublicKey
	Sign(message []byte) ([]byte, error)
}

// KeypairSigner holds a secret key in memory for the duration of a
// withdrawal.
type KeypairSigner struct {
	key ed25519.PrivateKey
}

// NewKeypairSigner decodes a base58 secret. Both the 64 byte secret key and
// the 32 byte seed forms are accepted. Errors never include the input.
func NewKeypairSigner(base58Secret string) (*KeypairSigner, error) {
	base58Secret = strings.TrimSpace(base58Secret)
	if base58Secret == "" {
		return nil, failure.NewInvalidParametersError("secret key is required")
	}

	decoded, err := base58.Decode(base58Secret)
	if err != nil {
		return nil, failure.NewFormatError("secretKey", "not valid base58")
	}

	switch len(decoded) {
	case ed25519.PrivateKeySize:
		key := ed25519.PrivateKey(decoded)

		// The trailing half of a secret key is its public key; a mismatch
		// means the secret was corrupted or concatenated wrongly.
		expected := ed25519.NewKeyFromSeed(key.Seed())
		if !expected.Equal(key) {
			return nil, failure.NewFormatError("secretKey", "public half does not match seed")
		}
		return &KeypairSigner{key: key}, nil
	case ed25519.SeedSize:
		return &KeypairSigner{key: ed25519.NewKeyFromSeed(decoded)}, nil
	default:
		return nil, failure.NewFormatError("secretKey", "must be %d or %d bytes, got %d", ed25519.PrivateKeySize, ed25519.SeedSize, len(decoded))
	}
}

// NewKeypairSignerFromKey wraps an existing key.
func NewKeypairSignerFromKey(key ed25519.PrivateKey) *KeypairSigner {
	return &KeypairSigner{key: key}
}

func (s *KeypairSigner) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

func (s *KeypairSigner) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.key, message), nil
}

// String returns the base58 public key only.
func (s *KeypairSigner) String() string {
	return base58.Encode(s.PublicKey())
}

func (s *KeypairSigner) GoString() string {
	return "KeypairSigner(" + s.String() + ")"
}

// signTransaction adds signer's signature over the transaction message.
func signTransaction(txn *solana.Transaction, signer Signer) error {
	signature, err := signer.Sign(txn.Message.Marshal())
	if err != nil {
		return err
	}
	return txn.AddSignature(signer.PublicKey(), signature)
}
