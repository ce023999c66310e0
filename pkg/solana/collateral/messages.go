package collateral

import (
	"crypto/ed25519"
	"encoding/hex"

	"github.com/code-payments/collateral-server/pkg/collateral/failure"
	"github.com/code-payments/collateral-server/pkg/eip712"
)

const (
	domainVersion = "2"

	collateralDomainName  = "Collateral"
	coordinatorDomainName = "Coordinator"

	// The collateral type string names five fields while the encoded struct
	// carries six. The program hashes it this way; do not "fix" it.
	collateralWithdrawType  = "Withdraw(address user,address asset,uint256 amount,address recipient,uint256 nonce)"
	coordinatorWithdrawType = "Withdraw(address user,address collateral,address asset,uint256 amount,address recipient,uint256 nonce,uint256 expiresAt)"
)

var (
	collateralWithdrawTypeHash  = eip712.TypeHash(collateralWithdrawType)
	coordinatorWithdrawTypeHash = eip712.TypeHash(coordinatorWithdrawType)
)

// WithdrawMessageArgs are the fields shared by both withdrawal messages.
type WithdrawMessageArgs struct {
	Collateral ed25519.PublicKey
	Sender     ed25519.PublicKey
	Receiver   ed25519.PublicKey
	Asset      ed25519.PublicKey
	Request    WithdrawRequest
	Nonce      uint32
}

func (a *WithdrawMessageArgs) encodeFields() ([]string, error) {
	sender, err := eip712.EncodeAddress("sender", a.Sender)
	if err != nil {
		return nil, err
	}
	collateral, err := eip712.EncodeAddress("collateral", a.Collateral)
	if err != nil {
		return nil, err
	}
	asset, err := eip712.EncodeAddress("asset", a.Asset)
	if err != nil {
		return nil, err
	}
	receiver, err := eip712.EncodeAddress("receiver", a.Receiver)
	if err != nil {
		return nil, err
	}

	return []string{
		sender,
		collateral,
		asset,
		eip712.EncodeUint64(a.Request.AmountOfAsset),
		receiver,
		eip712.EncodeUint32(a.Nonce),
	}, nil
}

// EncodeCollateralStruct returns the hex struct hash of the admin signed
// message. Its raw bytes seed the admin signatures record address.
func EncodeCollateralStruct(args *WithdrawMessageArgs) (string, error) {
	fields, err := args.encodeFields()
	if err != nil {
		return "", err
	}
	return eip712.HashStruct(collateralWithdrawTypeHash, fields...)
}

// EncodeCoordinatorStruct returns the hex struct hash of the coordinator
// signed message.
func EncodeCoordinatorStruct(args *WithdrawMessageArgs) (string, error) {
	fields, err := args.encodeFields()
	if err != nil {
		return "", err
	}
	fields = append(fields, eip712.EncodeUint64(args.Request.SignatureExpirationTime))
	return eip712.HashStruct(coordinatorWithdrawTypeHash, fields...)
}

// CollateralWithdrawMessage returns the 32 byte digest the pool admin signs.
// The salt is fresh per submission.
func CollateralWithdrawMessage(args *WithdrawMessageArgs, salt [32]byte, chainID uint64) ([]byte, error) {
	domain, err := eip712.DomainSeparator(eip712.Domain{
		Name:              collateralDomainName,
		Version:           domainVersion,
		ChainID:           chainID,
		VerifyingContract: args.Collateral,
		Salt:              salt[:],
	})
	if err != nil {
		return nil, err
	}

	structHash, err := EncodeCollateralStruct(args)
	if err != nil {
		return nil, err
	}

	return eip712.Digest(domain, structHash)
}

// CoordinatorWithdrawMessage returns the 32 byte digest the coordinator
// signed off chain. The domain salt is the request's coordinator salt.
func CoordinatorWithdrawMessage(args *WithdrawMessageArgs, coordinator ed25519.PublicKey, chainID uint64) ([]byte, error) {
	domain, err := eip712.DomainSeparator(eip712.Domain{
		Name:              coordinatorDomainName,
		Version:           domainVersion,
		ChainID:           chainID,
		VerifyingContract: coordinator,
		Salt:              args.Request.CoordinatorSignatureSalt[:],
	})
	if err != nil {
		return nil, err
	}

	structHash, err := EncodeCoordinatorStruct(args)
	if err != nil {
		return nil, err
	}

	return eip712.Digest(domain, structHash)
}

// AdminSignaturesAddressForMessage derives the admin signatures record for
// the collateral message built from args.
func AdminSignaturesAddressForMessage(program ed25519.PublicKey, args *WithdrawMessageArgs) (ed25519.PublicKey, error) {
	structHash, err := EncodeCollateralStruct(args)
	if err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(structHash)
	if err != nil {
		return nil, failure.NewFormatError("structHash", "not valid hex: %s", err.Error())
	}

	address, _, err := GetAdminSignaturesAddress(program, &GetAdminSignaturesAddressArgs{
		Collateral: args.Collateral,
		StructHash: raw,
	})
	return address, err
}
