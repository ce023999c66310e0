package withdrawal

import (
	"github.com/code-payments/collateral-server/pkg/config"
	"github.com/code-payments/collateral-server/pkg/config/env"
	"github.com/code-payments/collateral-server/pkg/config/memory"
	"github.com/code-payments/collateral-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "COLLATERAL_"

	programAddressConfigEnvName = envConfigPrefix + "PROGRAM_ADDRESS"
	defaultProgramAddress       = ""

	defaultSchemaConfigEnvName = envConfigPrefix + "DEFAULT_SCHEMA"
	defaultDefaultSchema       = "v2"

	confirmationCommitmentConfigEnvName = envConfigPrefix + "CONFIRMATION_COMMITMENT"
	defaultConfirmationCommitment       = "confirmed"

	computeUnitLimitConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_LIMIT"
	defaultComputeUnitLimit       = 0

	computeUnitPriceConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_PRICE"
	defaultComputeUnitPrice       = 0
)

type conf struct {
	programAddress         config.String
	defaultSchema          config.String
	confirmationCommitment config.String
	computeUnitLimit       config.Uint64
	computeUnitPrice       config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			programAddress:         env.NewStringConfig(programAddressConfigEnvName, defaultProgramAddress),
			defaultSchema:          env.NewStringConfig(defaultSchemaConfigEnvName, defaultDefaultSchema),
			confirmationCommitment: env.NewStringConfig(confirmationCommitmentConfigEnvName, defaultConfirmationCommitment),
			computeUnitLimit:       env.NewUint64Config(computeUnitLimitConfigEnvName, defaultComputeUnitLimit),
			computeUnitPrice:       env.NewUint64Config(computeUnitPriceConfigEnvName, defaultComputeUnitPrice),
		}
	}
}

// TestOverrides configures an executor without touching the environment.
type TestOverrides struct {
	ProgramAddress   string
	DefaultSchema    string
	ComputeUnitLimit uint64
	ComputeUnitPrice uint64
}

// WithTestOverrides returns configuration backed by in-memory values.
func WithTestOverrides(overrides *TestOverrides) ConfigProvider {
	return func() *conf {
		schema := overrides.DefaultSchema
		if schema == "" {
			schema = defaultDefaultSchema
		}

		return &conf{
			programAddress:         wrapper.NewStringConfig(memory.NewConfig(overrides.ProgramAddress), defaultProgramAddress),
			defaultSchema:          wrapper.NewStringConfig(memory.NewConfig(schema), defaultDefaultSchema),
			confirmationCommitment: wrapper.NewStringConfig(memory.NewConfig(defaultConfirmationCommitment), defaultConfirmationCommitment),
			computeUnitLimit:       wrapper.NewUint64Config(memory.NewConfig(overrides.ComputeUnitLimit), defaultComputeUnitLimit),
			computeUnitPrice:       wrapper.NewUint64Config(memory.NewConfig(overrides.ComputeUnitPrice), defaultComputeUnitPrice),
		}
	}
}
