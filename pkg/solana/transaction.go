package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"sort"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// MaxTransactionSize is the largest serialized transaction accepted, the
// payload of a single packet.
const MaxTransactionSize = 1232

var ErrSignatureVerification = errors.New("transaction signature verification failed")

type (
	Signature [ed25519.SignatureSize]byte
	Blockhash [sha256.Size]byte
)

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

// Message is a legacy message. Address lookup tables are not supported.
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

// NewTransaction compiles instructions into an unsigned legacy transaction
// paid for by payer.
func NewTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	metas := collectAccountMetas(payer, instructions)
	sort.Slice(metas, func(i, j int) bool {
		return lessAccountMeta(metas[i], metas[j])
	})

	var m Message
	indexes := make(map[string]byte, len(metas))
	for i, meta := range metas {
		key := meta.PublicKey
		if len(key) == 0 {
			key = make(ed25519.PublicKey, ed25519.PublicKeySize)
		}
		m.Accounts = append(m.Accounts, key)
		indexes[string(meta.PublicKey)] = byte(i)

		switch {
		case meta.IsSigner:
			m.Header.NumSignatures++
			if !meta.IsWritable {
				m.Header.NumReadonlySigned++
			}
		case !meta.IsWritable:
			m.Header.NumReadOnly++
		}
	}

	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIndex: indexes[string(ix.Program)],
			Data:         ix.Data,
		}
		for _, meta := range ix.Accounts {
			compiled.Accounts = append(compiled.Accounts, indexes[string(meta.PublicKey)])
		}
		m.Instructions = append(m.Instructions, compiled)
	}

	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

// collectAccountMetas returns one meta per distinct key, carrying the union
// of the permissions requested for it.
func collectAccountMetas(payer ed25519.PublicKey, instructions []Instruction) []AccountMeta {
	var metas []AccountMeta
	seen := make(map[string]int)

	add := func(meta AccountMeta) {
		if i, ok := seen[string(meta.PublicKey)]; ok {
			metas[i].merge(meta)
			return
		}
		seen[string(meta.PublicKey)] = len(metas)
		metas = append(metas, meta)
	}

	add(AccountMeta{PublicKey: payer, IsSigner: true, IsWritable: true, isPayer: true})
	for _, ix := range instructions {
		add(AccountMeta{PublicKey: ix.Program, isProgram: true})
		for _, meta := range ix.Accounts {
			add(meta)
		}
	}
	return metas
}

func (t *Transaction) SetBlockhash(bh Blockhash) {
	t.Message.RecentBlockhash = bh
}

// Sign adds the signatures of signers, which must all be required signers of
// the message.
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	message := t.Message.Marshal()

	for _, signer := range signers {
		pub := signer.Public().(ed25519.PublicKey)

		index := -1
		for i := range t.Signatures {
			if i < len(t.Message.Accounts) && bytes.Equal(t.Message.Accounts[i], pub) {
				index = i
				break
			}
		}
		if index < 0 {
			return errors.Errorf("%s is not a required signer", base58.Encode(pub))
		}

		copy(t.Signatures[index][:], ed25519.Sign(signer, message))
	}
	return nil
}

// VerifySignatures checks every required signature against the message.
func (t *Transaction) VerifySignatures() error {
	required := int(t.Message.Header.NumSignatures)
	switch {
	case required == 0 || len(t.Signatures) != required:
		return errors.Wrapf(ErrSignatureVerification, "expected %d signatures, got %d", required, len(t.Signatures))
	case len(t.Message.Accounts) < required:
		return errors.Wrap(ErrSignatureVerification, "fewer accounts than signatures")
	}

	message := t.Message.Marshal()
	for i := range t.Signatures {
		if !ed25519.Verify(t.Message.Accounts[i], message, t.Signatures[i][:]) {
			return errors.Wrapf(ErrSignatureVerification, "invalid signature for %s", base58.Encode(t.Message.Accounts[i]))
		}
	}
	return nil
}
