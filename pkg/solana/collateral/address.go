package collateral

import (
	"crypto/ed25519"

	"github.com/code-payments/collateral-server/pkg/solana"
)

const idlSeed = "anchor:idl"

type GetAdminSignaturesAddressArgs struct {
	Collateral ed25519.PublicKey

	// StructHash is the raw 32 byte collateral struct hash, not its hex form.
	StructHash []byte
}

// GetAdminSignaturesAddress derives the record holding admin signatures
// collected for one withdrawal message.
func GetAdminSignaturesAddress(program ed25519.PublicKey, args *GetAdminSignaturesAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		program,
		adminSignaturesPrefix,
		args.Collateral,
		args.StructHash,
	)
}

// GetAuthorityAddress derives the authority that owns a pool's token custody.
func GetAuthorityAddress(program, collateral ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		program,
		authorityPrefix,
		collateral,
	)
}

// GetIdlAddress returns the account Anchor stores the program IDL at.
//
// Reference: https://github.com/coral-xyz/anchor/blob/v0.29.0/lang/syn/src/codegen/program/idl.rs
func GetIdlAddress(program ed25519.PublicKey) (ed25519.PublicKey, error) {
	base, err := solana.FindProgramAddress(program)
	if err != nil {
		return nil, err
	}
	return solana.CreateWithSeed(base, idlSeed, program)
}
