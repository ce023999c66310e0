// Package collateral implements the client side of the collateral pool
// program: account derivation, account decoding, instruction building and
// the domain separated withdrawal messages the program verifies.
package collateral

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"

	"github.com/code-payments/collateral-server/pkg/solana/system"
)

var (
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
	ErrUnknownSchema          = errors.New("unknown schema version")
)

var (
	adminSignaturesPrefix = []byte("CollateralAdminSignatures")
	authorityPrefix       = []byte("CollateralAuthority")
)

// NativeAsset is the system program id, used in place of a mint for the
// chain's native currency.
var NativeAsset = ed25519.PublicKey(system.ProgramKey[:])

// IsNativeAsset reports whether asset denotes the native currency.
func IsNativeAsset(asset ed25519.PublicKey) bool {
	return system.IsProgramKey(asset)
}

// Chain ids carried in the message domains.
const (
	ChainIDMainnetBeta uint64 = 900
	ChainIDDevnet      uint64 = 901
)

// IsSupportedChainID reports whether id is a chain id the program signs for.
func IsSupportedChainID(id uint64) bool {
	return id == ChainIDMainnetBeta || id == ChainIDDevnet
}

// SchemaVersion selects the account layout generation deployed for the
// program.
type SchemaVersion uint8

const (
	SchemaUnknown SchemaVersion = iota
	SchemaV1
	SchemaV2
)

func (v SchemaVersion) String() string {
	switch v {
	case SchemaV1:
		return "v1"
	case SchemaV2:
		return "v2"
	default:
		return "unknown"
	}
}

// SchemaVersionFromString parses "v1" or "v2".
func SchemaVersionFromString(s string) (SchemaVersion, error) {
	switch s {
	case "v1", "V1", "1":
		return SchemaV1, nil
	case "v2", "V2", "2":
		return SchemaV2, nil
	default:
		return SchemaUnknown, ErrUnknownSchema
	}
}

// Account names as declared by the program's IDL.
const (
	collateralAccountV1      = "Collateral"
	collateralAccountV2      = "CollateralV2"
	adminSignaturesAccountV1 = "CollateralAdminSignatures"
	adminSignaturesAccountV2 = "CollateralAdminSignaturesV2"
	coordinatorAccount       = "Coordinator"
	singleSignerAccount      = "SingleSignerCollateral"
)

var (
	collateralV2Discriminator      = []byte{165, 86, 67, 157, 199, 120, 39, 111}
	adminSignaturesV2Discriminator = []byte{194, 102, 185, 168, 0, 177, 70, 136}

	collateralV1Discriminator      = accountDiscriminator(collateralAccountV1)
	adminSignaturesV1Discriminator = accountDiscriminator(adminSignaturesAccountV1)
	coordinatorDiscriminator       = accountDiscriminator(coordinatorAccount)
	singleSignerDiscriminator      = accountDiscriminator(singleSignerAccount)
)

var (
	submitSignaturesInstructionDiscriminator          = instructionDiscriminator("submit_signatures")
	withdrawCollateralAssetInstructionDiscriminator   = instructionDiscriminator("withdraw_collateral_asset")
	withdrawSingleSignerAssetInstructionDiscriminator = instructionDiscriminator("withdraw_single_signer_collateral_asset")
)

func (v SchemaVersion) collateralDiscriminator() []byte {
	if v == SchemaV1 {
		return collateralV1Discriminator
	}
	return collateralV2Discriminator
}

func (v SchemaVersion) adminSignaturesDiscriminator() []byte {
	if v == SchemaV1 {
		return adminSignaturesV1Discriminator
	}
	return adminSignaturesV2Discriminator
}

// Anchor account discriminator: sha256("account:<Name>")[:8].
func accountDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("account:" + name))
	return h[:8]
}

// Anchor instruction discriminator: sha256("global:<name>")[:8].
func instructionDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}
