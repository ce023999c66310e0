package token

import (
	"bytes"
	"crypto/ed25519"

	bin "github.com/gagliardetto/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// AccountSize is the packed size of an SPL token account.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L125
const AccountSize = 165

// Account is an SPL token account. Optional fields use the program's
// COption encoding: a u32 tag followed by the value, present or not.
type Account struct {
	Mint            ed25519.PublicKey
	Owner           ed25519.PublicKey
	Amount          uint64
	Delegate        ed25519.PublicKey
	State           AccountState
	IsNative        *uint64 // rent-exempt reserve of a wrapped SOL account
	DelegatedAmount uint64
	CloseAuthority  ed25519.PublicKey
}

func (a *Account) Marshal() []byte {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)

	// Writes into a bytes.Buffer cannot fail.
	_ = enc.WriteBytes(padKey(a.Mint), false)
	_ = enc.WriteBytes(padKey(a.Owner), false)
	_ = enc.WriteUint64(a.Amount, bin.LE)
	writeOptionalKey(enc, a.Delegate)
	_ = enc.WriteUint8(uint8(a.State))
	if a.IsNative != nil {
		_ = enc.WriteUint32(1, bin.LE)
		_ = enc.WriteUint64(*a.IsNative, bin.LE)
	} else {
		_ = enc.WriteUint32(0, bin.LE)
		_ = enc.WriteUint64(0, bin.LE)
	}
	_ = enc.WriteUint64(a.DelegatedAmount, bin.LE)
	writeOptionalKey(enc, a.CloseAuthority)

	return buf.Bytes()
}

// Unmarshal reports false when b is not a packed token account.
func (a *Account) Unmarshal(b []byte) bool {
	if len(b) != AccountSize {
		return false
	}

	var decoded Account
	dec := bin.NewBinDecoder(b)

	var err error
	if decoded.Mint, err = readKey(dec); err != nil {
		return false
	}
	if decoded.Owner, err = readKey(dec); err != nil {
		return false
	}
	if decoded.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return false
	}
	if decoded.Delegate, err = readOptionalKey(dec); err != nil {
		return false
	}

	state, err := dec.ReadUint8()
	if err != nil {
		return false
	}
	decoded.State = AccountState(state)

	tag, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return false
	}
	reserve, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return false
	}
	if tag == 1 {
		decoded.IsNative = &reserve
	}

	if decoded.DelegatedAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return false
	}
	if decoded.CloseAuthority, err = readOptionalKey(dec); err != nil {
		return false
	}

	*a = decoded
	return true
}

func padKey(key ed25519.PublicKey) []byte {
	padded := make([]byte, ed25519.PublicKeySize)
	copy(padded, key)
	return padded
}

func writeOptionalKey(enc *bin.Encoder, key ed25519.PublicKey) {
	var tag uint32
	if len(key) > 0 {
		tag = 1
	}
	_ = enc.WriteUint32(tag, bin.LE)
	_ = enc.WriteBytes(padKey(key), false)
}

func readKey(dec *bin.Decoder) (ed25519.PublicKey, error) {
	raw, err := dec.ReadNBytes(ed25519.PublicKeySize)
	if err != nil {
		return nil, err
	}
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, raw)
	return key, nil
}

func readOptionalKey(dec *bin.Decoder) (ed25519.PublicKey, error) {
	tag, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, err
	}
	key, err := readKey(dec)
	if err != nil || tag != 1 {
		return nil, err
	}
	return key, nil
}
