package token

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/collateral-server/pkg/solana"
	"github.com/code-payments/collateral-server/pkg/solana/system"
)

// AssociatedTokenAccountProgramKey is ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL.
var AssociatedTokenAccountProgramKey = ed25519.PublicKey{140, 151, 37, 143, 78, 36, 137, 241, 187, 61, 16, 41, 20, 142, 13, 131, 11, 90, 19, 153, 218, 255, 16, 132, 4, 142, 123, 216, 219, 233, 248, 89}

// Associated token program commands. The legacy create instruction carries
// no data at all, which decodes as commandCreate.
const (
	commandCreate byte = iota
	commandCreateIdempotent
)

// Account positions in a create instruction.
const (
	createSubsidizerIndex = iota
	createAddressIndex
	createOwnerIndex
	createMintIndex
	createSystemProgramIndex
	createTokenProgramIndex

	createAccountCount
)

// GetAssociatedAccount derives the token account of wallet for mint. The
// wallet may be off curve, as program owned custody is.
//
// Reference: https://spl.solana.com/associated-token-account#finding-the-associated-token-account-address
func GetAssociatedAccount(wallet, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(AssociatedTokenAccountProgramKey, wallet, ProgramKey, mint)
}

// CreateAssociatedTokenAccount fails on chain if the account already exists.
func CreateAssociatedTokenAccount(subsidizer, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	return createAssociatedTokenAccount(commandCreate, subsidizer, wallet, mint)
}

// CreateAssociatedTokenAccountIdempotent succeeds when the account already
// exists with the expected owner and mint.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/associated-token-account-v1.1.0/associated-token-account/program/src/instruction.rs#L34
func CreateAssociatedTokenAccountIdempotent(subsidizer, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	return createAssociatedTokenAccount(commandCreateIdempotent, subsidizer, wallet, mint)
}

func createAssociatedTokenAccount(command byte, subsidizer, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	address, err := GetAssociatedAccount(wallet, mint)
	if err != nil {
		return solana.Instruction{}, nil, err
	}

	accounts := make([]solana.AccountMeta, createAccountCount)
	accounts[createSubsidizerIndex] = solana.NewAccountMeta(subsidizer, true)
	accounts[createAddressIndex] = solana.NewAccountMeta(address, false)
	accounts[createOwnerIndex] = solana.NewReadonlyAccountMeta(wallet, false)
	accounts[createMintIndex] = solana.NewReadonlyAccountMeta(mint, false)
	accounts[createSystemProgramIndex] = solana.NewReadonlyAccountMeta(system.ProgramKey[:], false)
	accounts[createTokenProgramIndex] = solana.NewReadonlyAccountMeta(ProgramKey, false)

	return solana.NewInstruction(AssociatedTokenAccountProgramKey, []byte{command}, accounts...), address, nil
}

// DecompiledCreateAssociatedAccount is a create instruction recovered from a
// compiled message.
type DecompiledCreateAssociatedAccount struct {
	Subsidizer ed25519.PublicKey
	Address    ed25519.PublicKey
	Owner      ed25519.PublicKey
	Mint       ed25519.PublicKey
	Idempotent bool
}

func DecompileCreateAssociatedAccount(m solana.Message, index int) (*DecompiledCreateAssociatedAccount, error) {
	if index < 0 || index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	compiled := m.Instructions[index]
	if !bytes.Equal(m.Accounts[compiled.ProgramIndex], AssociatedTokenAccountProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}

	command := commandCreate
	switch len(compiled.Data) {
	case 0:
	case 1:
		command = compiled.Data[0]
	default:
		return nil, errors.New("unexpected data")
	}
	if command != commandCreate && command != commandCreateIdempotent {
		return nil, solana.ErrIncorrectInstruction
	}

	if len(compiled.Accounts) < createAccountCount {
		return nil, errors.Errorf("invalid number of accounts: %d (expected at least %d)", len(compiled.Accounts), createAccountCount)
	}
	account := func(i int) ed25519.PublicKey {
		return m.Accounts[compiled.Accounts[i]]
	}
	if !system.IsProgramKey(account(createSystemProgramIndex)) {
		return nil, errors.New("system program key mismatch")
	}
	if !bytes.Equal(account(createTokenProgramIndex), ProgramKey) {
		return nil, errors.New("token program key mismatch")
	}

	return &DecompiledCreateAssociatedAccount{
		Subsidizer: account(createSubsidizerIndex),
		Address:    account(createAddressIndex),
		Owner:      account(createOwnerIndex),
		Mint:       account(createMintIndex),
		Idempotent: command == commandCreateIdempotent,
	}, nil
}
