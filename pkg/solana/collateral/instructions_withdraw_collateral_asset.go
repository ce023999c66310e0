package collateral

import (
	"crypto/ed25519"

	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/system"
	"github.com/code-payments/collateral-server/pkg/solana/token"
)

const WithdrawCollateralAssetInstructionAccountCount = 13

type WithdrawCollateralAssetInstructionArgs struct {
	Request WithdrawRequest
}

type WithdrawCollateralAssetInstructionAccounts struct {
	RentReceiver              ed25519.PublicKey
	Sender                    ed25519.PublicKey
	Receiver                  ed25519.PublicKey
	Asset                     ed25519.PublicKey
	CollateralTokenAccount    ed25519.PublicKey
	ReceiverTokenAccount      ed25519.PublicKey
	CollateralAuthority       ed25519.PublicKey
	Coordinator               ed25519.PublicKey
	Collateral                ed25519.PublicKey
	CollateralAdminSignatures ed25519.PublicKey
}

// NewWithdrawCollateralAssetInstruction releases tokens from a multi-signer
// pool. It must directly follow the coordinator's verification instruction.
func NewWithdrawCollateralAssetInstruction(
	program ed25519.PublicKey,
	accounts *WithdrawCollateralAssetInstructionAccounts,
	args *WithdrawCollateralAssetInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte, len(withdrawCollateralAssetInstructionDiscriminator)+WithdrawRequestSize)

	putDiscriminator(data, withdrawCollateralAssetInstructionDiscriminator, &offset)
	putWithdrawRequest(data, args.Request, &offset)

	return solana.NewInstruction(
		program,
		data,
		solana.NewAccountMeta(accounts.RentReceiver, false),
		solana.NewAccountMeta(accounts.Sender, true),
		solana.NewReadonlyAccountMeta(accounts.Receiver, false),
		solana.NewReadonlyAccountMeta(accounts.Asset, false),
		solana.NewAccountMeta(accounts.CollateralTokenAccount, false),
		solana.NewAccountMeta(accounts.ReceiverTokenAccount, false),
		solana.NewReadonlyAccountMeta(accounts.CollateralAuthority, false),
		solana.NewReadonlyAccountMeta(accounts.Coordinator, false),
		solana.NewAccountMeta(accounts.Collateral, false),
		solana.NewAccountMeta(accounts.CollateralAdminSignatures, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
		solana.NewReadonlyAccountMeta(system.InstructionsSysVar, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
	)
}
