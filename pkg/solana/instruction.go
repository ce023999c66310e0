package solana

import (
	"bytes"
	"crypto/ed25519"
	"errors"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
)

// AccountMeta is an account referenced by an instruction, along with the
// permissions the instruction requires of it.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool

	isPayer   bool
	isProgram bool
}

// NewAccountMeta returns a writable account reference.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{PublicKey: pub, IsSigner: isSigner, IsWritable: true}
}

// NewReadonlyAccountMeta returns a readonly account reference.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{PublicKey: pub, IsSigner: isSigner}
}

// merge promotes a's permissions with those of a duplicate reference.
func (a *AccountMeta) merge(other AccountMeta) {
	a.IsSigner = a.IsSigner || other.IsSigner
	a.IsWritable = a.IsWritable || other.IsWritable
	a.isPayer = a.isPayer || other.isPayer
}

// compareAccountMeta orders accounts the way the runtime expects them in a
// message: payer first, then signers, then writable accounts, with invoked
// programs last. Ties are broken by key.
//
// Reference: https://docs.solana.com/transaction#account-addresses-format
func compareAccountMeta(a, b AccountMeta) int {
	if r := compareFlag(a.isPayer, b.isPayer); r != 0 {
		return r
	}
	if r := compareFlag(!a.isProgram, !b.isProgram); r != 0 {
		return r
	}
	if r := compareFlag(a.IsSigner, b.IsSigner); r != 0 {
		return r
	}
	if r := compareFlag(a.IsWritable, b.IsWritable); r != 0 {
		return r
	}
	return bytes.Compare(a.PublicKey, b.PublicKey)
}

// compareFlag sorts set flags ahead of unset ones.
func compareFlag(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

// Instruction is a single program invocation.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// CompiledInstruction references its program and accounts by index into the
// message's account list.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}
