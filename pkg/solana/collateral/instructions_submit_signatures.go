package collateral

import (
	"crypto/ed25519"

	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/system"
)

const signatureSubmissionWithdrawCollateralAsset uint8 = 0

type SubmitSignaturesInstructionArgs struct {
	// Salts are the collateral domain salts, one per verification
	// instruction preceding this one.
	Salts       [][32]byte
	TargetNonce uint32

	// The WithdrawCollateralAsset submission variant.
	Sender   ed25519.PublicKey
	Receiver ed25519.PublicKey
	Asset    ed25519.PublicKey
	Request  WithdrawRequest
}

type SubmitSignaturesInstructionAccounts struct {
	Collateral      ed25519.PublicKey
	AdminSignatures ed25519.PublicKey
	RentPayer       ed25519.PublicKey
}

func submitSignaturesInstructionArgsSize(salts int) int {
	return (4 + 32*salts + // salts
		4 + // target_nonce
		1 + // signature_submission_type variant
		32 + // sender
		32 + // receiver
		32 + // asset
		WithdrawRequestSize) // withdraw_request
}

// NewSubmitSignaturesInstruction records admin signatures for a withdrawal.
// The program reads the signatures from the verification instructions that
// precede it in the same transaction.
func NewSubmitSignaturesInstruction(
	program ed25519.PublicKey,
	accounts *SubmitSignaturesInstructionAccounts,
	args *SubmitSignaturesInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte,
		len(submitSignaturesInstructionDiscriminator)+
			submitSignaturesInstructionArgsSize(len(args.Salts)))

	putDiscriminator(data, submitSignaturesInstructionDiscriminator, &offset)
	putUint32(data, uint32(len(args.Salts)), &offset)
	for _, salt := range args.Salts {
		putBytes32(data, salt, &offset)
	}
	putUint32(data, args.TargetNonce, &offset)
	putUint8(data, signatureSubmissionWithdrawCollateralAsset, &offset)
	putKey(data, args.Sender, &offset)
	putKey(data, args.Receiver, &offset)
	putKey(data, args.Asset, &offset)
	putWithdrawRequest(data, args.Request, &offset)

	return solana.NewInstruction(
		program,
		data,
		solana.NewAccountMeta(accounts.Collateral, false),
		solana.NewAccountMeta(accounts.AdminSignatures, false),
		solana.NewAccountMeta(accounts.RentPayer, true),
		solana.NewReadonlyAccountMeta(system.InstructionsSysVar, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
	)
}
