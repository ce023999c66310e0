package withdrawal

import (
	"crypto/ed25519"
	"fmt"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
)

func TestNewKeypairSigner(t *testing.T) {
	pub, priv := newTestKeypair(t)

	fromSecret, err := NewKeypairSigner(base58.Encode(priv))
	require.NoError(t, err)
	assert.EqualValues(t, pub, fromSecret.PublicKey())

	fromSeed, err := NewKeypairSigner(" " + base58.Encode(priv.Seed()) + "\n")
	require.NoError(t, err)
	assert.EqualValues(t, pub, fromSeed.PublicKey())

	message := []byte("withdraw")
	signature, err := fromSeed.Sign(message)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(pub, message, signature))
}

func TestNewKeypairSigner_Invalid(t *testing.T) {
	_, priv := newTestKeypair(t)
	_, other := newTestKeypair(t)

	for _, blank := range []string{"", "   ", "\t\n"} {
		_, err := NewKeypairSigner(blank)
		assert.Equal(t, failure.KindInvalidParameters, failure.KindOf(err))
	}

	mismatched := append(append([]byte(nil), priv.Seed()...), other.Public().(ed25519.PublicKey)...)
	for _, invalid := range []string{
		"0OIl",
		base58.Encode(priv[:40]),
		base58.Encode(mismatched),
	} {
		_, err := NewKeypairSigner(invalid)
		require.Error(t, err)
		assert.Equal(t, failure.KindFormat, failure.KindOf(err))
		assert.NotContains(t, err.Error(), invalid)
	}
}

func TestKeypairSigner_NeverFormatsSecret(t *testing.T) {
	_, priv := newTestKeypair(t)
	signer := NewKeypairSignerFromKey(priv)

	secret := base58.Encode(priv)
	seed := base58.Encode(priv.Seed())
	publicKey := base58.Encode(signer.PublicKey())

	for _, formatted := range []string{
		signer.String(),
		fmt.Sprintf("%v", signer),
		fmt.Sprintf("%+v", signer),
		fmt.Sprintf("%#v", signer),
		fmt.Sprintf("%s", signer),
	} {
		assert.Contains(t, formatted, publicKey)
		assert.NotContains(t, formatted, secret)
		assert.NotContains(t, formatted, seed)
	}
}
