package withdrawal

import (
	"context"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/collateral"
	"github.com/code-payments/collateral-server/pkg/solana/solanatest"
)

func TestNewExecutor_Config(t *testing.T) {
	ctx := context.Background()
	client := solanatest.New()

	_, err := NewExecutor(ctx, client, WithTestOverrides(&TestOverrides{}))
	assert.Error(t, err)

	_, err = NewExecutor(ctx, client, WithTestOverrides(&TestOverrides{ProgramAddress: "not-base58-0OIl"}))
	assert.Error(t, err)

	program := newTestKey(t)
	_, err = NewExecutor(ctx, client, WithTestOverrides(&TestOverrides{
		ProgramAddress: base58.Encode(program),
		DefaultSchema:  "v3",
	}))
	assert.Error(t, err)

	executor, err := NewExecutor(ctx, client, WithTestOverrides(&TestOverrides{
		ProgramAddress: base58.Encode(program),
		DefaultSchema:  "v1",
	}))
	require.NoError(t, err)
	assert.EqualValues(t, program, executor.Program())
	assert.Equal(t, collateral.SchemaV1, executor.Schema())
}

func TestNewExecutor_SchemaFromIdl(t *testing.T) {
	ctx := context.Background()
	client := solanatest.New()
	program := newTestKey(t)

	idlAddress, err := collateral.GetIdlAddress(program)
	require.NoError(t, err)
	idl, err := collateral.EncodeIdlAccount(newTestKey(t), "Collateral", "CollateralAdminSignatures", "Coordinator")
	require.NoError(t, err)
	client.SetAccount(idlAddress, solana.AccountInfo{Data: idl, Owner: program})

	// The deployed schema wins over the configured default.
	executor, err := NewExecutor(ctx, client, WithTestOverrides(&TestOverrides{
		ProgramAddress: base58.Encode(program),
		DefaultSchema:  "v2",
	}))
	require.NoError(t, err)
	assert.Equal(t, collateral.SchemaV1, executor.Schema())
}

func TestExecutor_SchemaMismatch(t *testing.T) {
	env := setupTestEnv(t)

	nonce := uint32(5)
	pool := &collateral.CollateralAccount{
		Version:     collateral.SchemaV1,
		Coordinator: env.coordinator,
		Nonce:       &nonce,
	}
	env.client.SetAccount(env.pool, solana.AccountInfo{Data: pool.Marshal(), Owner: env.program})

	_, err := env.executor.ExecuteMultisig(env.ctx, env.newBundle(t, env.admin.PublicKey(), env.mint, 5), env.admin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collateral")
	assert.Empty(t, env.client.Submitted)
}
