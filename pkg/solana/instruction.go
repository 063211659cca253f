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

// AccountMeta is an account referenced by an instruction.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool

	isPayer   bool
	isProgram bool
}

func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{PublicKey: pub, IsSigner: isSigner, IsWritable: true}
}

func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{PublicKey: pub, IsSigner: isSigner}
}

// merge widens m with the permissions of other, which references the same key.
func (m *AccountMeta) merge(other AccountMeta) {
	m.IsSigner = m.IsSigner || other.IsSigner
	m.IsWritable = m.IsWritable || other.IsWritable
	m.isPayer = m.isPayer || other.isPayer
	m.isProgram = m.isProgram || other.isProgram
}

// rank orders account metas within a message: the fee payer, then writable
// signers, readonly signers, writable and readonly accounts, with invoked
// programs after everything else.
func (m AccountMeta) rank() int {
	if m.isPayer {
		return -1
	}

	var r int
	if m.isProgram {
		r += 4
	}
	if !m.IsSigner {
		r += 2
	}
	if !m.IsWritable {
		r++
	}
	return r
}

func lessAccountMeta(a, b AccountMeta) bool {
	if ra, rb := a.rank(), b.rank(); ra != rb {
		return ra < rb
	}
	return bytes.Compare(a.PublicKey, b.PublicKey) < 0
}

type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Accounts: accounts,
		Data:     data,
	}
}

// CompiledInstruction references the program and accounts of an instruction
// by their index in the message account list.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}

// DecompileInstructions restores the instructions of m, with signer and
// writable flags taken from the message header.
func (m Message) DecompileInstructions() ([]Instruction, error) {
	inRange := func(index byte) bool {
		return int(index) < len(m.Accounts)
	}

	var res []Instruction
	for _, compiled := range m.Instructions {
		if !inRange(compiled.ProgramIndex) {
			return nil, NewTransactionError(TransactionErrorInvalidAccountIndex)
		}

		ix := Instruction{
			Program: m.Accounts[compiled.ProgramIndex],
			Data:    compiled.Data,
		}
		for _, index := range compiled.Accounts {
			if !inRange(index) {
				return nil, NewTransactionError(TransactionErrorInvalidAccountIndex)
			}
			ix.Accounts = append(ix.Accounts, AccountMeta{
				PublicKey:  m.Accounts[index],
				IsSigner:   m.IsSigner(int(index)),
				IsWritable: m.IsWritable(int(index)),
			})
		}
		res = append(res, ix)
	}
	return res, nil
}

func (m Message) IsSigner(index int) bool {
	return index < int(m.Header.NumSignatures)
}

// IsWritable applies the header's readonly counts. Readonly signers are the
// tail of the signer range, readonly accounts the tail of the account list.
func (m Message) IsWritable(index int) bool {
	signers := int(m.Header.NumSignatures)
	if index < signers {
		return index < signers-int(m.Header.NumReadonlySigned)
	}
	return index < len(m.Accounts)-int(m.Header.NumReadOnly)
}
