package withdrawal

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/collateral"
	solana_ed25519 "github.com/code-payments/collateral-server/pkg/solana/ed25519"
	"github.com/code-payments/collateral-server/pkg/solana/system"
	"github.com/code-payments/collateral-server/pkg/solana/token"
)

func TestExecuteSingleSigner_Token(t *testing.T) {
	env := setupTestEnv(t)
	env.setSingleSignerPool(env.owner.PublicKey(), 7)

	result, err := env.executor.ExecuteSingleSigner(env.ctx, env.newBundle(t, env.owner.PublicKey(), env.mint, 7), env.owner)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, result.Status)

	expectedDestination, err := token.GetAssociatedAccount(env.recipient, env.mint)
	require.NoError(t, err)
	assert.EqualValues(t, expectedDestination, result.DestinationTokenAccount)
	assert.True(t, env.client.HasAccount(expectedDestination))

	// Destination creation paid by the owner, then the withdrawal.
	require.Len(t, env.client.Submitted, 2)
	assert.EqualValues(t, env.owner.PublicKey(), env.client.Submitted[0].Message.Accounts[0])

	withdraw := env.client.Submitted[1]
	assert.EqualValues(t, env.owner.PublicKey(), withdraw.Message.Accounts[0])
	assert.EqualValues(t, 1, withdraw.Message.Header.NumSignatures)
	programs := programInstructions(withdraw)
	require.Len(t, programs, 2)
	assert.EqualValues(t, solana_ed25519.ProgramKey, programs[0])
	assert.EqualValues(t, env.program, programs[1])
	assert.Len(t, withdraw.Message.Instructions[1].Accounts, collateral.WithdrawSingleSignerInstructionAccountCount)
}

func TestExecuteSingleSigner_MultisigPoolFallback(t *testing.T) {
	env := setupTestEnv(t)
	env.setMultisigPool(3)
	env.setTokenAccount(env.recipient, env.mint)

	_, err := env.executor.ExecuteSingleSigner(env.ctx, env.newBundle(t, env.owner.PublicKey(), env.mint, 3), env.owner)
	require.NoError(t, err)
	require.Len(t, env.client.Submitted, 1)
}

func TestExecuteSingleSigner_WrongOwner(t *testing.T) {
	env := setupTestEnv(t)
	env.setSingleSignerPool(newTestKey(t), 7)

	_, err := env.executor.ExecuteSingleSigner(env.ctx, env.newBundle(t, env.owner.PublicKey(), env.mint, 7), env.owner)
	assert.Equal(t, failure.KindUnauthorizedSigner, failure.KindOf(err))

	_, err = env.executor.ExecuteSingleSigner(env.ctx, env.newBundle(t, env.owner.PublicKey(), env.mint, 7), nil)
	assert.Equal(t, failure.KindInvalidParameters, failure.KindOf(err))

	assert.Empty(t, env.client.Submitted)
}

func TestExecuteSingleSigner_Native(t *testing.T) {
	env := setupTestEnv(t)
	env.setSingleSignerPool(env.owner.PublicKey(), 7)

	result, err := env.executor.ExecuteSingleSigner(env.ctx, env.newBundle(t, env.owner.PublicKey(), collateral.NativeAsset, 7), env.owner)
	require.NoError(t, err)
	assert.Nil(t, result.SourceTokenAccount)
	assert.Nil(t, result.DestinationTokenAccount)
	require.Len(t, env.client.Submitted, 1)
}

func TestPrepareSingleSigner_Native(t *testing.T) {
	env := setupTestEnv(t)
	env.setSingleSignerPool(env.owner.PublicKey(), 7)

	prepared, err := env.executor.PrepareSingleSigner(env.ctx, env.newBundle(t, env.owner.PublicKey(), collateral.NativeAsset, 7), env.owner.PublicKey())
	require.NoError(t, err)
	assert.Nil(t, prepared.SourceTokenAccount)
	assert.Nil(t, prepared.DestinationTokenAccount)
	assert.False(t, prepared.DestinationCreated)
	assert.Equal(t, env.client.Blockhash, prepared.RecentBlockhash)
	assert.Empty(t, env.client.Submitted)

	txn := decodePrepared(t, prepared)
	require.Len(t, txn.Message.Instructions, 2)
	assert.EqualValues(t, env.owner.PublicKey(), txn.Message.Accounts[0])
	assert.Equal(t, solana.Signature{}, txn.Signatures[0])

	// Only the owner, the pool's accounts and programs are referenced.
	expected := []string{
		base58.Encode(env.owner.PublicKey()),
		base58.Encode(env.recipient),
		base58.Encode(env.coordinator),
		base58.Encode(env.pool),
		base58.Encode(env.program),
		base58.Encode(token.ProgramKey),
		base58.Encode(solana_ed25519.ProgramKey),
		base58.Encode(system.InstructionsSysVar),
		base58.Encode(system.ProgramKey[:]),
	}
	var actual []string
	for _, account := range txn.Message.Accounts {
		actual = append(actual, base58.Encode(account))
	}
	assert.ElementsMatch(t, expected, actual)

	withdraw := txn.Message.Instructions[1]
	for _, index := range []int{4, 5, 6} {
		assert.EqualValues(t, env.program, txn.Message.Accounts[withdraw.Accounts[index]])
	}
}

func TestPrepareSingleSigner_InlineCreate(t *testing.T) {
	env := setupTestEnv(t)
	env.setSingleSignerPool(env.owner.PublicKey(), 7)

	prepared, err := env.executor.PrepareSingleSigner(env.ctx, env.newBundle(t, env.owner.PublicKey(), env.mint, 7), env.owner.PublicKey())
	require.NoError(t, err)
	assert.True(t, prepared.DestinationCreated)
	assert.Empty(t, env.client.Submitted)

	txn := decodePrepared(t, prepared)
	require.Len(t, txn.Message.Instructions, 3)

	create, err := token.DecompileCreateAssociatedAccount(txn.Message, 0)
	require.NoError(t, err)
	assert.True(t, create.Idempotent)
	assert.EqualValues(t, env.owner.PublicKey(), create.Subsidizer)
	assert.EqualValues(t, prepared.DestinationTokenAccount, create.Address)

	programs := programInstructions(txn)
	assert.EqualValues(t, solana_ed25519.ProgramKey, programs[1])
	assert.EqualValues(t, env.program, programs[2])

	// The owner can sign the prepared transaction as is.
	require.NoError(t, signTransaction(&txn, env.owner))
	_, err = env.client.SubmitTransaction(txn, solana.CommitmentConfirmed)
	require.NoError(t, err)
}

func TestPrepareSingleSigner_ExistingDestination(t *testing.T) {
	env := setupTestEnv(t)
	env.setSingleSignerPool(env.owner.PublicKey(), 7)
	env.setTokenAccount(env.recipient, env.mint)

	prepared, err := env.executor.PrepareSingleSigner(env.ctx, env.newBundle(t, env.owner.PublicKey(), env.mint, 7), env.owner.PublicKey())
	require.NoError(t, err)
	assert.False(t, prepared.DestinationCreated)
	assert.Len(t, decodePrepared(t, prepared).Message.Instructions, 2)
}

func decodePrepared(t *testing.T, prepared *PreparedTransaction) solana.Transaction {
	raw, err := base58.Decode(prepared.SerializedTransaction)
	require.NoError(t, err)

	var txn solana.Transaction
	require.NoError(t, txn.Unmarshal(raw))
	return txn
}
