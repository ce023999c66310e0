package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("COLLATERAL_RECEIPT_STORE=postgres\n"), 0600))

	t.Setenv(receiptStoreConfigEnvName, "")
	os.Unsetenv(receiptStoreConfigEnvName)

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, receiptStorePostgres, os.Getenv(receiptStoreConfigEnvName))

	assert.Error(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestNewReceiptStore(t *testing.T) {
	t.Setenv(receiptStoreConfigEnvName, "memory")
	a := newCollateralApp(WithEnvConfigs())
	store, err := a.newReceiptStore(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, store)

	t.Setenv(receiptStoreConfigEnvName, "dynamo")
	a = newCollateralApp(WithEnvConfigs())
	_, err = a.newReceiptStore(context.Background())
	assert.Error(t, err)
}

func TestNewSolanaClient_RequiresEndpoint(t *testing.T) {
	for _, tc := range []struct {
		endpoint string
		valid    bool
	}{
		{"", false},
		{"   ", false},
		{"api.devnet.solana.com", false},
		{"ws://api.devnet.solana.com", false},
		{"https://api.devnet.solana.com", true},
		{"http://localhost:8899", true},
	} {
		t.Setenv(solanaRpcEndpointConfigEnvName, tc.endpoint)

		client, err := newSolanaClient(context.Background(), WithEnvConfigs()())
		if tc.valid {
			require.NoError(t, err, tc.endpoint)
			assert.NotNil(t, client)
		} else {
			assert.Error(t, err, tc.endpoint)
			assert.Nil(t, client)
		}
	}
}

func TestInit_MissingEndpoint(t *testing.T) {
	t.Setenv(solanaRpcEndpointConfigEnvName, "")
	t.Setenv(receiptStoreConfigEnvName, receiptStoreMemory)

	err := newCollateralApp(WithEnvConfigs()).Init(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), solanaRpcEndpointConfigEnvName)
}
