package main

import (
	"github.com/code-payments/collateral-server/pkg/config"
	"github.com/code-payments/collateral-server/pkg/config/env"
)

const (
	solanaRpcEndpointConfigEnvName = "SOLANA_RPC_ENDPOINT"
	defaultSolanaRpcEndpoint       = ""

	receiptStoreConfigEnvName = "COLLATERAL_RECEIPT_STORE"
	defaultReceiptStore       = receiptStoreMemory

	receiptStoreMemory   = "memory"
	receiptStorePostgres = "postgres"
)

type conf struct {
	solanaRpcEndpoint config.String
	receiptStore      config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			solanaRpcEndpoint: env.NewStringConfig(solanaRpcEndpointConfigEnvName, defaultSolanaRpcEndpoint),
			receiptStore:      env.NewStringConfig(receiptStoreConfigEnvName, defaultReceiptStore),
		}
	}
}
