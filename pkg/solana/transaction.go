package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"slices"
	"strings"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

const (
	// MaxTransactionSize taken from: https://github.com/solana-labs/solana/blob/39b3ac6a8d29e14faa1de73d8b46d390ad41797b/sdk/src/packet.rs#L9-L13
	MaxTransactionSize = 1232
)

type Signature [ed25519.SignatureSize]byte
type Blockhash [sha256.Size]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (b Blockhash) String() string {
	return base58.Encode(b[:])
}

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

// Message is a legacy transaction message.
type Message struct {
	Header          Header
	Accounts        []ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []CompiledInstruction
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewTransaction compiles the instructions into a legacy transaction with the
// provided fee payer. Signatures are left zeroed until Sign is called.
func NewTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	refs := []AccountMeta{{PublicKey: payer, IsSigner: true, IsWritable: true, isPayer: true}}
	for _, instruction := range instructions {
		refs = append(refs, AccountMeta{PublicKey: instruction.Program, isProgram: true})
		refs = append(refs, instruction.Accounts...)
	}

	accounts := dedupeAccounts(refs)
	slices.SortStableFunc(accounts, compareAccountMeta)

	var m Message
	m.Accounts = make([]ed25519.PublicKey, 0, len(accounts))
	for _, account := range accounts {
		m.Accounts = append(m.Accounts, normalizeKey(account.PublicKey))

		switch {
		case account.IsSigner && !account.IsWritable:
			m.Header.NumSignatures++
			m.Header.NumReadonlySigned++
		case account.IsSigner:
			m.Header.NumSignatures++
		case !account.IsWritable:
			m.Header.NumReadOnly++
		}
	}

	m.Instructions = make([]CompiledInstruction, 0, len(instructions))
	for _, instruction := range instructions {
		compiled := CompiledInstruction{
			ProgramIndex: byte(indexOf(m.Accounts, normalizeKey(instruction.Program))),
			Accounts:     make([]byte, 0, len(instruction.Accounts)),
			Data:         instruction.Data,
		}
		for _, account := range instruction.Accounts {
			compiled.Accounts = append(compiled.Accounts, byte(indexOf(m.Accounts, normalizeKey(account.PublicKey))))
		}
		m.Instructions = append(m.Instructions, compiled)
	}

	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

func (t *Transaction) Signature() []byte {
	return t.Signatures[0][:]
}

// String renders the transaction for debug logs.
func (t *Transaction) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "signatures=%d header=%d/%d/%d blockhash=%s\n",
		len(t.Signatures),
		t.Message.Header.NumSignatures,
		t.Message.Header.NumReadonlySigned,
		t.Message.Header.NumReadOnly,
		t.Message.RecentBlockhash,
	)
	for i, s := range t.Signatures {
		fmt.Fprintf(&sb, "  sig[%d] %s\n", i, s)
	}
	for i, a := range t.Message.Accounts {
		fmt.Fprintf(&sb, "  acct[%d] %s\n", i, base58.Encode(a))
	}
	for i, c := range t.Message.Instructions {
		fmt.Fprintf(&sb, "  ix[%d] program=%d accounts=%v data=%x\n", i, c.ProgramIndex, c.Accounts, c.Data)
	}

	return sb.String()
}

func (t *Transaction) SetBlockhash(bh Blockhash) {
	t.Message.RecentBlockhash = bh
}

// Sign signs the message with each of the provided keys. Keys that are not
// required signers of the message are rejected.
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	messageBytes := t.Message.Marshal()

	for _, s := range signers {
		pub := s.Public().(ed25519.PublicKey)
		if err := t.AddSignature(pub, ed25519.Sign(s, messageBytes)); err != nil {
			return err
		}
	}

	return nil
}

// AddSignature places an externally produced signature at the signer's slot.
func (t *Transaction) AddSignature(pub ed25519.PublicKey, sig []byte) error {
	index := indexOf(t.Message.Accounts, pub)
	if index < 0 {
		return errors.Errorf("signing account %s is not in the account list", base58.Encode(pub))
	}
	if index >= len(t.Signatures) {
		return errors.Errorf("signing account %s is not in the list of signers", base58.Encode(pub))
	}
	if len(sig) != ed25519.SignatureSize {
		return errors.Errorf("invalid signature length %d", len(sig))
	}

	copy(t.Signatures[index][:], sig)
	return nil
}

// dedupeAccounts collapses repeated references to the same key, keeping the
// first position and the union of the requested permissions.
func dedupeAccounts(refs []AccountMeta) []AccountMeta {
	unique := make([]AccountMeta, 0, len(refs))
	for _, ref := range refs {
		i := slices.IndexFunc(unique, func(seen AccountMeta) bool {
			return bytes.Equal(seen.PublicKey, ref.PublicKey)
		})
		if i < 0 {
			unique = append(unique, ref)
			continue
		}
		unique[i].merge(ref)
	}
	return unique
}

// normalizeKey substitutes the zero key for an unset one.
func normalizeKey(key ed25519.PublicKey) ed25519.PublicKey {
	if len(key) == 0 {
		return make(ed25519.PublicKey, ed25519.PublicKeySize)
	}
	return key
}

func indexOf(keys []ed25519.PublicKey, key ed25519.PublicKey) int {
	return slices.IndexFunc(keys, func(k ed25519.PublicKey) bool {
		return bytes.Equal(k, key)
	})
}
