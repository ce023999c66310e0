package withdrawal

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/solana/collateral"
)

const (
	// CallPathSolanaV202 is the only execution path this service handles.
	CallPathSolanaV202 = "solana_v2_02"

	StatusReady = "ready"

	minAddressLength = 32
)

// WithdrawalSignature is the partner API's withdrawal signature object.
type WithdrawalSignature struct {
	Status     string           `json:"status"`
	Execution  *Execution       `json:"execution,omitempty"`
	Parameters []ParameterValue `json:"parameters"`
}

type Execution struct {
	CallPath string `json:"callPath"`
}

// BundleMeta identifies the pool and program a withdrawal runs against.
type BundleMeta struct {
	ChainID        uint64
	ProgramAddress string
	DepositAddress string
	ContractID     string
	OwnerAddress   string
}

func (m BundleMeta) Validate() error {
	return validation.Errors{
		"chainId": validation.Validate(m.ChainID,
			validation.Required,
			validation.By(func(any) error {
				if !collateral.IsSupportedChainID(m.ChainID) {
					return validation.NewError("validation_chain_id", "must be 900 or 901")
				}
				return nil
			}),
		),
		"programAddress": validation.Validate(m.ProgramAddress, validation.Required, validation.Length(minAddressLength, 0)),
		"depositAddress": validation.Validate(m.DepositAddress, validation.Required, validation.Length(minAddressLength, 0)),
		"ownerAddress":   validation.Validate(m.OwnerAddress, validation.Length(minAddressLength, 0)),
	}.Filter()
}

// ExecutionBundle is a validated withdrawal ready for execution.
type ExecutionBundle struct {
	Parameters     PartnerParameters
	ChainID        uint64
	ProgramAddress string
	DepositAddress string
	ContractID     string
	OwnerAddress   string
}

// BuildExecutionBundle validates a partner withdrawal signature and the pool
// metadata it will execute against.
func BuildExecutionBundle(signature WithdrawalSignature, meta BundleMeta) (*ExecutionBundle, error) {
	meta.ProgramAddress = strings.TrimSpace(meta.ProgramAddress)
	meta.DepositAddress = strings.TrimSpace(meta.DepositAddress)
	meta.OwnerAddress = strings.TrimSpace(meta.OwnerAddress)

	if err := meta.Validate(); err != nil {
		return nil, failure.NewInvalidParametersError("invalid bundle: %s", err.Error())
	}

	if signature.Status != StatusReady {
		return nil, failure.NewInvalidParametersError("withdrawal signature is not ready (status %q)", signature.Status)
	}

	var callPath string
	if signature.Execution != nil {
		callPath = signature.Execution.CallPath
	}
	if callPath != CallPathSolanaV202 {
		return nil, failure.NewUnsupportedExecutionPathError(CallPathSolanaV202, callPath)
	}

	if signature.Parameters == nil {
		return nil, failure.NewInvalidParametersError("withdrawal signature parameters are required")
	}
	params, err := ParseParameters(signature.Parameters)
	if err != nil {
		return nil, err
	}

	return &ExecutionBundle{
		Parameters:     params,
		ChainID:        meta.ChainID,
		ProgramAddress: meta.ProgramAddress,
		DepositAddress: meta.DepositAddress,
		ContractID:     meta.ContractID,
		OwnerAddress:   meta.OwnerAddress,
	}, nil
}
