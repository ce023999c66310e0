package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/pkg/errors"

	"github.com/code-payments/collateral-server/pkg/solana/shortvec"
)

// Marshal returns the wire form: a compact-u16 prefixed signature list
// followed by the message.
func (t Transaction) Marshal() []byte {
	var b bytes.Buffer

	_, _ = shortvec.EncodeLen(&b, len(t.Signatures))
	for _, s := range t.Signatures {
		b.Write(s[:])
	}
	b.Write(t.Message.Marshal())

	return b.Bytes()
}

func (t *Transaction) Unmarshal(b []byte) error {
	r := newWireReader(b)

	count, err := r.length("signature count")
	if err != nil {
		return err
	}

	t.Signatures = make([]Signature, count)
	for i := range t.Signatures {
		if err := r.fill(t.Signatures[i][:], "signature"); err != nil {
			return err
		}
	}

	return t.Message.Unmarshal(r.remaining())
}

// Marshal returns the legacy message bytes that signers sign.
func (m Message) Marshal() []byte {
	var b bytes.Buffer

	b.WriteByte(m.Header.NumSignatures)
	b.WriteByte(m.Header.NumReadonlySigned)
	b.WriteByte(m.Header.NumReadOnly)

	_, _ = shortvec.EncodeLen(&b, len(m.Accounts))
	for _, a := range m.Accounts {
		b.Write(a)
	}

	b.Write(m.RecentBlockhash[:])

	_, _ = shortvec.EncodeLen(&b, len(m.Instructions))
	for _, i := range m.Instructions {
		b.WriteByte(i.ProgramIndex)
		_, _ = shortvec.EncodeLen(&b, len(i.Accounts))
		b.Write(i.Accounts)
		_, _ = shortvec.EncodeLen(&b, len(i.Data))
		b.Write(i.Data)
	}

	return b.Bytes()
}

// Unmarshal parses a legacy message. Versioned messages, which set the high
// bit of the first byte, are rejected.
func (m *Message) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	if b[0]&0x80 != 0 {
		return errors.New("versioned messages not supported")
	}

	r := newWireReader(b)

	var header [3]byte
	if err := r.fill(header[:], "header"); err != nil {
		return err
	}
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}

	accountCount, err := r.length("account count")
	if err != nil {
		return err
	}
	m.Accounts = make([]ed25519.PublicKey, accountCount)
	for i := range m.Accounts {
		m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		if err := r.fill(m.Accounts[i], "account"); err != nil {
			return err
		}
	}

	if err := r.fill(m.RecentBlockhash[:], "recent blockhash"); err != nil {
		return err
	}

	instructionCount, err := r.length("instruction count")
	if err != nil {
		return err
	}
	m.Instructions = make([]CompiledInstruction, instructionCount)
	for i := range m.Instructions {
		c, err := r.instruction(len(m.Accounts))
		if err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
		m.Instructions[i] = c
	}

	return nil
}

type wireReader struct {
	r *bytes.Reader
}

func newWireReader(b []byte) *wireReader {
	return &wireReader{r: bytes.NewReader(b)}
}

func (w *wireReader) length(what string) (int, error) {
	n, err := shortvec.DecodeLen(w.r)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", what)
	}
	return n, nil
}

func (w *wireReader) fill(dst []byte, what string) error {
	if _, err := io.ReadFull(w.r, dst); err != nil {
		return errors.Wrapf(err, "failed to read %s", what)
	}
	return nil
}

func (w *wireReader) remaining() []byte {
	rest := make([]byte, w.r.Len())
	_, _ = w.r.Read(rest)
	return rest
}

// instruction reads one compiled instruction whose indices must address one
// of accountCount accounts.
func (w *wireReader) instruction(accountCount int) (CompiledInstruction, error) {
	var c CompiledInstruction

	var program [1]byte
	if err := w.fill(program[:], "program index"); err != nil {
		return c, err
	}
	c.ProgramIndex = program[0]
	if int(c.ProgramIndex) >= accountCount {
		return c, errors.Errorf("program index %d out of range", c.ProgramIndex)
	}

	n, err := w.length("account count")
	if err != nil {
		return c, err
	}
	c.Accounts = make([]byte, n)
	if err := w.fill(c.Accounts, "accounts"); err != nil {
		return c, err
	}
	for _, index := range c.Accounts {
		if int(index) >= accountCount {
			return c, errors.Errorf("account index %d out of range", index)
		}
	}

	if n, err = w.length("data length"); err != nil {
		return c, err
	}
	c.Data = make([]byte, n)
	if err := w.fill(c.Data, "data"); err != nil {
		return c, err
	}

	return c, nil
}
