package collateral

import (
	"crypto/ed25519"

	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/system"
	"github.com/code-payments/collateral-server/pkg/solana/token"
)

const WithdrawSingleSignerInstructionAccountCount = 10

type WithdrawSingleSignerInstructionArgs struct {
	Request WithdrawRequest
}

// WithdrawSingleSignerInstructionAccounts leaves Asset, CollateralTokenAccount
// and ReceiverTokenAccount nil for a native asset withdrawal.
type WithdrawSingleSignerInstructionAccounts struct {
	Owner                  ed25519.PublicKey
	Receiver               ed25519.PublicKey
	Coordinator            ed25519.PublicKey
	Collateral             ed25519.PublicKey
	Asset                  ed25519.PublicKey
	CollateralTokenAccount ed25519.PublicKey
	ReceiverTokenAccount   ed25519.PublicKey
}

// NewWithdrawSingleSignerInstruction releases funds from a single signer
// pool. It must directly follow the coordinator's verification instruction.
func NewWithdrawSingleSignerInstruction(
	program ed25519.PublicKey,
	accounts *WithdrawSingleSignerInstructionAccounts,
	args *WithdrawSingleSignerInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte, len(withdrawSingleSignerAssetInstructionDiscriminator)+WithdrawRequestSize)

	putDiscriminator(data, withdrawSingleSignerAssetInstructionDiscriminator, &offset)
	putWithdrawRequest(data, args.Request, &offset)

	return solana.NewInstruction(
		program,
		data,
		solana.NewAccountMeta(accounts.Owner, true),
		solana.NewAccountMeta(accounts.Receiver, false),
		solana.NewReadonlyAccountMeta(accounts.Coordinator, false),
		solana.NewAccountMeta(accounts.Collateral, false),
		optionalAccount(program, accounts.Asset, false),
		optionalAccount(program, accounts.CollateralTokenAccount, true),
		optionalAccount(program, accounts.ReceiverTokenAccount, true),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
		solana.NewReadonlyAccountMeta(system.InstructionsSysVar, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
	)
}

// optionalAccount encodes an absent optional account as the program id,
// which Anchor reads as None. The placeholder must stay readonly; a writable
// reference would make the program account writable for the whole message.
func optionalAccount(program, account ed25519.PublicKey, writable bool) solana.AccountMeta {
	if account == nil {
		return solana.NewReadonlyAccountMeta(program, false)
	}
	if writable {
		return solana.NewAccountMeta(account, false)
	}
	return solana.NewReadonlyAccountMeta(account, false)
}
