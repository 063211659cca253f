package system

import (
	"crypto/ed25519"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
)

// ProgramKey is the address of the system program.
//
// Current key: 11111111111111111111111111111111
var ProgramKey = make(ed25519.PublicKey, ed25519.PublicKeySize)

type Command uint32

const (
	CommandCreateAccount Command = iota
	CommandAssign
	CommandTransfer
	CommandCreateAccountWithSeed
	CommandAdvanceNonceAccount
	CommandWithdrawNonceAccount
	CommandInitializeNonceAccount
	CommandAuthorizeNonceAccount
	CommandAllocate
	CommandAllocateWithSeed
	CommandAssignWithSeed
	CommandTransferWithSeed

	CommandUnknown = Command(math.MaxUint32)
)

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/system_instruction.rs#L17
const (
	ErrorAccountAlreadyInUse solana.CustomError = iota
	ErrorResultWithNegativeLamports
	ErrorInvalidProgramId
	ErrorInvalidAccountDataLength
	// nolint:varcheck,deadcode,unused
	ErrorMaxSeedLengthExceeded
	// nolint:varcheck,deadcode,unused
	ErrorAddressWithSeedMismatch
)

// MaxPermittedDataLength is the largest account the system program will allocate.
const MaxPermittedDataLength = 10 * 1024 * 1024

const (
	createAccountDataSize = 4 + 2*8 + ed25519.PublicKeySize
	transferDataSize      = 4 + 8
)

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L58-L72
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE, SIGNER] New account
	data := make([]byte, createAccountDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandCreateAccount))
	binary.LittleEndian.PutUint64(data[4:], lamports)
	binary.LittleEndian.PutUint64(data[4+8:], size)
	copy(data[4+2*8:], owner)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/system_instruction.rs#L91-L96
func Transfer(from, to ed25519.PublicKey, lamports uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE] Recipient account
	data := make([]byte, transferDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandTransfer))
	binary.LittleEndian.PutUint64(data[4:], lamports)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(from, true),
		solana.NewAccountMeta(to, false),
	)
}

// GetCommand returns the command encoded in the leading four bytes of
// system program instruction data.
func GetCommand(data []byte) (Command, error) {
	if len(data) < 4 {
		return CommandUnknown, solana.InstructionErrorInvalidInstructionData
	}
	return Command(binary.LittleEndian.Uint32(data)), nil
}

type CreateAccountArgs struct {
	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

func DecodeCreateAccountArgs(data []byte) (*CreateAccountArgs, error) {
	if len(data) != createAccountDataSize {
		return nil, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "invalid create account data size: %d", len(data))
	}
	if cmd, _ := GetCommand(data); cmd != CommandCreateAccount {
		return nil, solana.ErrIncorrectInstruction
	}

	args := &CreateAccountArgs{
		Lamports: binary.LittleEndian.Uint64(data[4:]),
		Size:     binary.LittleEndian.Uint64(data[4+8:]),
		Owner:    make(ed25519.PublicKey, ed25519.PublicKeySize),
	}
	copy(args.Owner, data[4+2*8:])
	return args, nil
}

func DecodeTransferArgs(data []byte) (lamports uint64, err error) {
	if len(data) != transferDataSize {
		return 0, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "invalid transfer data size: %d", len(data))
	}
	if cmd, _ := GetCommand(data); cmd != CommandTransfer {
		return 0, solana.ErrIncorrectInstruction
	}
	return binary.LittleEndian.Uint64(data[4:]), nil
}
