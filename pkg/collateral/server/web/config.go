package web

import (
	"github.com/code-payments/collateral-server/pkg/config"
	"github.com/code-payments/collateral-server/pkg/config/env"
	"github.com/code-payments/collateral-server/pkg/config/memory"
	"github.com/code-payments/collateral-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "COLLATERAL_WEB_"

	poolWithdrawalsPerSecondConfigEnvName = envConfigPrefix + "POOL_WITHDRAWALS_PER_SECOND"
	defaultPoolWithdrawalsPerSecond       = 1.0

	poolLockStripesConfigEnvName = envConfigPrefix + "POOL_LOCK_STRIPES"
	defaultPoolLockStripes       = 1024

	maxReceiptsPerQueryConfigEnvName = envConfigPrefix + "MAX_RECEIPTS_PER_QUERY"
	defaultMaxReceiptsPerQuery       = 100

	adminSecretKeyConfigEnvName = "SOLANA_MULTISIG_COLLATERAL_ADMIN_PK"
	defaultAdminSecretKey       = ""

	fallbackAdminSecretKeyConfigEnvName = "SOLANA_AUTOFUND_SECRET_KEY_BASE58"
	defaultFallbackAdminSecretKey       = ""
)

type conf struct {
	poolWithdrawalsPerSecond config.Float64
	poolLockStripes          config.Uint64
	maxReceiptsPerQuery      config.Uint64

	// Secret keys are read when a request needs them and never cached.
	adminSecretKey         config.String
	fallbackAdminSecretKey config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			poolWithdrawalsPerSecond: env.NewFloat64Config(poolWithdrawalsPerSecondConfigEnvName, defaultPoolWithdrawalsPerSecond),
			poolLockStripes:          env.NewUint64Config(poolLockStripesConfigEnvName, defaultPoolLockStripes),
			maxReceiptsPerQuery:      env.NewUint64Config(maxReceiptsPerQueryConfigEnvName, defaultMaxReceiptsPerQuery),
			adminSecretKey:           env.NewStringConfig(adminSecretKeyConfigEnvName, defaultAdminSecretKey),
			fallbackAdminSecretKey:   env.NewStringConfig(fallbackAdminSecretKeyConfigEnvName, defaultFallbackAdminSecretKey),
		}
	}
}

type testOverrides struct {
	poolWithdrawalsPerSecond float64
	adminSecretKey           string
	fallbackAdminSecretKey   string
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			poolWithdrawalsPerSecond: wrapper.NewFloat64Config(memory.NewConfig(overrides.poolWithdrawalsPerSecond), defaultPoolWithdrawalsPerSecond),
			poolLockStripes:          wrapper.NewUint64Config(memory.NewConfig(uint64(16)), defaultPoolLockStripes),
			maxReceiptsPerQuery:      wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxReceiptsPerQuery)), defaultMaxReceiptsPerQuery),
			adminSecretKey:           wrapper.NewStringConfig(memory.NewConfig(overrides.adminSecretKey), defaultAdminSecretKey),
			fallbackAdminSecretKey:   wrapper.NewStringConfig(memory.NewConfig(overrides.fallbackAdminSecretKey), defaultFallbackAdminSecretKey),
		}
	}
}
