package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana/shortvec"
)

// SignatureString is the base58 transaction id, the fee payer's signature.
func (t Transaction) SignatureString() string {
	if len(t.Signatures) == 0 {
		return ""
	}
	return base58.Encode(t.Signatures[0][:])
}

func (t Transaction) Marshal() []byte {
	var buf bytes.Buffer
	writeLen(&buf, len(t.Signatures))
	for i := range t.Signatures {
		buf.Write(t.Signatures[i][:])
	}
	buf.Write(t.Message.Marshal())
	return buf.Bytes()
}

func (t *Transaction) Unmarshal(b []byte) error {
	if len(b) > MaxTransactionSize {
		return errors.Errorf("transaction too large: %d > %d", len(b), MaxTransactionSize)
	}

	d := &decoder{r: bytes.NewReader(b)}
	t.Signatures = make([]Signature, d.length("signatures"))
	for i := range t.Signatures {
		d.read(t.Signatures[i][:], "signature")
	}
	if d.err != nil {
		return d.err
	}

	rest := b[len(b)-d.r.Len():]
	return t.Message.Unmarshal(rest)
}

func (m Message) Marshal() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{m.Header.NumSignatures, m.Header.NumReadonlySigned, m.Header.NumReadOnly})

	writeLen(&buf, len(m.Accounts))
	for _, account := range m.Accounts {
		buf.Write(account)
	}

	buf.Write(m.RecentBlockhash[:])

	writeLen(&buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf.WriteByte(ix.ProgramIndex)
		writeLen(&buf, len(ix.Accounts))
		buf.Write(ix.Accounts)
		writeLen(&buf, len(ix.Data))
		buf.Write(ix.Data)
	}
	return buf.Bytes()
}

// Unmarshal decodes a legacy message. Account indexes are range checked and
// trailing bytes are rejected.
func (m *Message) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	if b[0]&0x80 != 0 {
		return errors.New("versioned messages not supported")
	}

	d := &decoder{r: bytes.NewReader(b)}
	m.Header = Header{
		NumSignatures:     d.uint8("num signatures"),
		NumReadonlySigned: d.uint8("num readonly signed"),
		NumReadOnly:       d.uint8("num readonly"),
	}

	m.Accounts = make([]ed25519.PublicKey, d.length("accounts"))
	for i := range m.Accounts {
		m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		d.read(m.Accounts[i], "account")
	}

	d.read(m.RecentBlockhash[:], "recent blockhash")

	m.Instructions = make([]CompiledInstruction, d.length("instructions"))
	for i := range m.Instructions {
		ix := &m.Instructions[i]
		ix.ProgramIndex = d.uint8("program index")
		ix.Accounts = make([]byte, d.length("instruction accounts"))
		d.read(ix.Accounts, "instruction accounts")
		ix.Data = make([]byte, d.length("instruction data"))
		d.read(ix.Data, "instruction data")
		if d.err != nil {
			return errors.Wrapf(d.err, "instruction %d", i)
		}

		for _, index := range append([]byte{ix.ProgramIndex}, ix.Accounts...) {
			if int(index) >= len(m.Accounts) {
				return errors.Errorf("instruction %d: account index %d out of range", i, index)
			}
		}
	}

	if d.err != nil {
		return d.err
	}
	if d.r.Len() != 0 {
		return errors.Errorf("%d trailing bytes after message", d.r.Len())
	}
	return nil
}

func writeLen(buf *bytes.Buffer, n int) {
	// Lengths never exceed the maximum transaction size.
	_, _ = shortvec.EncodeLen(buf, n)
}

// decoder stops at the first error. Later reads are no-ops returning zero
// values, so callers check err once per logical unit.
type decoder struct {
	r   *bytes.Reader
	err error
}

func (d *decoder) uint8(what string) byte {
	if d.err != nil {
		return 0
	}
	b, err := d.r.ReadByte()
	if err != nil {
		d.err = errors.Wrapf(err, "failed to read %s", what)
	}
	return b
}

func (d *decoder) length(what string) int {
	if d.err != nil {
		return 0
	}
	n, err := shortvec.DecodeLen(d.r)
	if err != nil {
		d.err = errors.Wrapf(err, "failed to read %s length", what)
		return 0
	}
	if n > d.r.Len() {
		d.err = errors.Errorf("%s length %d exceeds remaining %d bytes", what, n, d.r.Len())
		return 0
	}
	return n
}

func (d *decoder) read(dst []byte, what string) {
	if d.err != nil {
		return
	}
	if _, err := io.ReadFull(d.r, dst); err != nil {
		d.err = errors.Wrapf(err, "failed to read %s", what)
	}
}
