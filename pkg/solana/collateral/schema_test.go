package collateral

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/solanatest"
)

func TestProbeSchema(t *testing.T) {
	program := newKey(t)
	idlAddress, err := GetIdlAddress(program)
	require.NoError(t, err)

	for _, tc := range []struct {
		name     string
		accounts []string
		expected SchemaVersion
	}{
		{"v2", []string{"Coordinator", "CollateralV2", "CollateralAdminSignaturesV2"}, SchemaV2},
		{"v1", []string{"Coordinator", "Collateral", "CollateralAdminSignatures"}, SchemaV1},
		{"both", []string{"Collateral", "CollateralV2"}, SchemaV2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeIdlAccount(newKey(t), tc.accounts...)
			require.NoError(t, err)

			client := solanatest.New()
			client.SetAccount(idlAddress, solana.AccountInfo{Data: data, Owner: program})

			actual, err := ProbeSchema(client, program, SchemaV1)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestProbeSchema_Fallback(t *testing.T) {
	program := newKey(t)
	client := solanatest.New()

	actual, err := ProbeSchema(client, program, SchemaV1)
	require.NoError(t, err)
	assert.Equal(t, SchemaV1, actual)

	actual, err = ProbeSchema(client, program, SchemaV2)
	require.NoError(t, err)
	assert.Equal(t, SchemaV2, actual)
}

func TestProbeSchema_Invalid(t *testing.T) {
	program := newKey(t)
	idlAddress, err := GetIdlAddress(program)
	require.NoError(t, err)

	client := solanatest.New()

	// No collateral account declared.
	data, err := EncodeIdlAccount(newKey(t), "Coordinator")
	require.NoError(t, err)
	client.SetAccount(idlAddress, solana.AccountInfo{Data: data})
	_, err = ProbeSchema(client, program, SchemaV2)
	assert.True(t, errors.Is(err, ErrUnknownSchema))

	// Not compressed.
	data[len(data)-1] ^= 0xff
	data[idlAccountHeaderSize] ^= 0xff
	client.SetAccount(idlAddress, solana.AccountInfo{Data: data})
	_, err = ProbeSchema(client, program, SchemaV2)
	assert.Error(t, err)

	// Wrong account type.
	client.SetAccount(idlAddress, solana.AccountInfo{Data: make([]byte, 64)})
	_, err = ProbeSchema(client, program, SchemaV2)
	assert.Equal(t, ErrInvalidAccountData, err)

	// RPC failure is not mistaken for a missing IDL.
	client.GetAccountInfoErr = errors.New("unavailable")
	_, err = ProbeSchema(client, program, SchemaV2)
	assert.Error(t, err)
}
