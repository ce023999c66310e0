package web

import (
	"crypto/ed25519"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/collateral/withdrawal"
)

const maxRequestBodySize = 1 << 20

// withdrawalRequest is the body shared by every withdrawal route. Secret keys
// are only present on the execute routes.
type withdrawalRequest struct {
	ChainId        uint64                         `json:"chainId"`
	ProgramAddress string                         `json:"programAddress"`
	DepositAddress string                         `json:"depositAddress"`
	ContractId     string                         `json:"contractId"`
	OwnerAddress   string                         `json:"ownerAddress"`
	Withdrawal     withdrawal.WithdrawalSignature `json:"withdrawal"`

	CollateralAdminSecretKeyBase58 *string `json:"collateralAdminSecretKeyBase58"`
	OwnerSecretKeyBase58           string  `json:"ownerSecretKeyBase58"`
}

// parsedWithdrawal is a request whose bundle has been validated and whose
// parameters have been decoded for bookkeeping.
type parsedWithdrawal struct {
	bundle *withdrawal.ExecutionBundle
	params *withdrawal.DecodedParameters

	adminSecretKey *string
	ownerSecretKey string
}

func newWithdrawalRequestFromHttpContext(w http.ResponseWriter, r *http.Request) (*parsedWithdrawal, error) {
	var httpRequestBody withdrawalRequest

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		return nil, failure.NewInvalidParametersError("request body could not be read")
	}

	// The body may hold secret keys, so decoding errors are never echoed.
	if err := json.Unmarshal(body, &httpRequestBody); err != nil {
		return nil, failure.NewFormatError("body", "not valid json")
	}

	bundle, err := withdrawal.BuildExecutionBundle(httpRequestBody.Withdrawal, withdrawal.BundleMeta{
		ChainID:        httpRequestBody.ChainId,
		ProgramAddress: httpRequestBody.ProgramAddress,
		DepositAddress: httpRequestBody.DepositAddress,
		ContractID:     httpRequestBody.ContractId,
		OwnerAddress:   httpRequestBody.OwnerAddress,
	})
	if err != nil {
		return nil, err
	}

	params, err := withdrawal.DecodeExecutionParameters(bundle)
	if err != nil {
		return nil, err
	}

	return &parsedWithdrawal{
		bundle:         bundle,
		params:         params,
		adminSecretKey: httpRequestBody.CollateralAdminSecretKeyBase58,
		ownerSecretKey: httpRequestBody.OwnerSecretKeyBase58,
	}, nil
}

func (p *parsedWithdrawal) collateral() string {
	return base58.Encode(p.params.Collateral)
}

// ownerSigner builds the single signer owner from the request body.
func (p *parsedWithdrawal) ownerSigner() (*withdrawal.KeypairSigner, error) {
	if strings.TrimSpace(p.ownerSecretKey) == "" {
		return nil, failure.NewInvalidParametersError("owner secret key is required")
	}
	return withdrawal.NewKeypairSigner(p.ownerSecretKey)
}

// ownerAddress is the wallet a prepared transaction is built for.
func (p *parsedWithdrawal) ownerAddress() (ed25519.PublicKey, error) {
	if p.bundle.OwnerAddress == "" {
		return nil, failure.NewInvalidParametersError("ownerAddress is required to prepare a withdrawal")
	}

	decoded, err := base58.Decode(p.bundle.OwnerAddress)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, failure.NewInvalidAddressError("ownerAddress", p.bundle.OwnerAddress)
	}
	return decoded, nil
}
