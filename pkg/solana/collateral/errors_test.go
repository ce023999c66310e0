package collateral

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/collateral-server/pkg/solana"
)

func TestIsStaleNonceError(t *testing.T) {
	for _, code := range []solana.CustomError{
		ErrorCodeInvalidNonce,
		ErrorCodeNonceAlreadyUsed,
		ErrorCodeSignatureExpired,
		ErrorCodeTargetNonceMismatch,
	} {
		txErr, err := solana.TransactionErrorFromInstructionError(&solana.InstructionError{Index: 1, Err: code})
		require.NoError(t, err)

		assert.True(t, IsStaleNonceError(txErr))
		assert.True(t, IsStaleNonceError(errors.Wrap(txErr, "submit")))
	}

	other, err := solana.TransactionErrorFromInstructionError(&solana.InstructionError{Index: 1, Err: solana.CustomError(6000)})
	require.NoError(t, err)
	assert.False(t, IsStaleNonceError(other))

	// Named in the program logs with an unfamiliar code.
	other.WithLogs("Program log: AnchorError caused by account: collateral. Error Code: NonceAlreadyUsed. Error Number: 6100.")
	assert.True(t, IsStaleNonceError(other))

	assert.False(t, IsStaleNonceError(solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)))
	assert.False(t, IsStaleNonceError(errors.New("InvalidNonce")))
	assert.False(t, IsStaleNonceError(nil))
}
