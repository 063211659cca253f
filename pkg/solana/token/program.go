package token

import (
	"crypto/ed25519"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
)

// ProgramKey is the address of the token program that should be used.
//
// Current key: TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
var ProgramKey = ed25519.PublicKey{6, 221, 246, 225, 215, 101, 161, 147, 217, 203, 225, 70, 206, 235, 121, 172, 28, 180, 133, 237, 95, 91, 55, 145, 58, 140, 245, 133, 126, 255, 0, 169}

type Command byte

const (
	CommandInitializeMint Command = iota
	CommandInitializeAccount
	CommandInitializeMultisig
	CommandTransfer
	CommandApprove
	CommandRevoke
	CommandSetAuthority
	CommandMintTo
	CommandBurn
	CommandCloseAccount
	CommandFreezeAccount
	CommandThawAccount
	CommandTransferChecked
	CommandApproveChecked
	CommandMintToChecked
	CommandBurnChecked
	CommandInitializeAccount2
	CommandSyncNative
	CommandInitializeAccount3
	CommandInitializeMultisig2
	CommandInitializeMint2

	CommandUnknown = Command(math.MaxUint8)
)

const (
	// nolint:varcheck,deadcode,unused
	ErrorNotRentExempt solana.CustomError = iota
	ErrorInsufficientFunds
	// nolint:varcheck,deadcode,unused
	ErrorInvalidMint
	ErrorMintMismatch
	ErrorOwnerMismatch
	ErrorFixedSupply
	ErrorAlreadyInUse
	// nolint:varcheck,deadcode,unused
	ErrorInvalidNumberOfProvidedSigners
	// nolint:varcheck,deadcode,unused
	ErrorInvalidNumberOfRequiredSigners
	ErrorUninitializedState
	// nolint:varcheck,deadcode,unused
	ErrorNativeNotSupported
	ErrorNonNativeHasBalance
	ErrorInvalidInstruction
	// nolint:varcheck,deadcode,unused
	ErrorInvalidState
	ErrorOverflow
	// nolint:varcheck,deadcode,unused
	ErrorAuthorityTypeNotSupported
	// nolint:varcheck,deadcode,unused
	ErrorMintCannotFreeze
	ErrorAccountFrozen
	ErrorMintDecimalsMismatch
)

// GetCommand returns the command of raw token program instruction data.
func GetCommand(data []byte) (Command, error) {
	if len(data) == 0 {
		return CommandUnknown, errors.Wrap(solana.InstructionErrorInvalidInstructionData, "token instruction missing data")
	}
	return Command(data[0]), nil
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L447-L462
func InitializeMint2(mint, mintAuthority, freezeAuthority ed25519.PublicKey, decimals byte) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint to initialize.
	data := make([]byte, 0, 2+ed25519.PublicKeySize+1+ed25519.PublicKeySize)
	data = append(data, byte(CommandInitializeMint2), decimals)
	data = append(data, mintAuthority...)
	if len(freezeAuthority) > 0 {
		data = append(data, 1)
		data = append(data, freezeAuthority...)
	} else {
		data = append(data, 0)
	}

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(mint, false),
	)
}

type InitializeMint2Args struct {
	Decimals        byte
	MintAuthority   ed25519.PublicKey
	FreezeAuthority ed25519.PublicKey
}

func DecodeInitializeMint2Args(data []byte) (*InitializeMint2Args, error) {
	const base = 2 + ed25519.PublicKeySize + 1
	if len(data) != base && len(data) != base+ed25519.PublicKeySize {
		return nil, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "invalid initialize mint data size: %d", len(data))
	}
	if Command(data[0]) != CommandInitializeMint2 {
		return nil, solana.ErrIncorrectInstruction
	}

	args := &InitializeMint2Args{
		Decimals:      data[1],
		MintAuthority: make(ed25519.PublicKey, ed25519.PublicKeySize),
	}
	copy(args.MintAuthority, data[2:])

	switch data[base-1] {
	case 0:
		if len(data) != base {
			return nil, errors.Wrap(solana.InstructionErrorInvalidInstructionData, "unexpected freeze authority")
		}
	case 1:
		if len(data) != base+ed25519.PublicKeySize {
			return nil, errors.Wrap(solana.InstructionErrorInvalidInstructionData, "missing freeze authority")
		}
		args.FreezeAuthority = make(ed25519.PublicKey, ed25519.PublicKeySize)
		copy(args.FreezeAuthority, data[base:])
	default:
		return nil, errors.Wrap(solana.InstructionErrorInvalidInstructionData, "invalid freeze authority option")
	}

	return args, nil
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L426-L436
func InitializeAccount3(account, mint, owner ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]`  The account to initialize.
	//   1. `[]` The mint this account will be associated with.
	data := make([]byte, 1+ed25519.PublicKeySize)
	data[0] = byte(CommandInitializeAccount3)
	copy(data[1:], owner)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(mint, false),
	)
}

func DecodeInitializeAccount3Args(data []byte) (owner ed25519.PublicKey, err error) {
	if len(data) != 1+ed25519.PublicKeySize {
		return nil, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "invalid initialize account data size: %d", len(data))
	}
	if Command(data[0]) != CommandInitializeAccount3 {
		return nil, solana.ErrIncorrectInstruction
	}

	owner = make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(owner, data[1:])
	return owner, nil
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L150-L163
func MintTo(mint, dest, authority ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint.
	//   1. `[writable]` The account to mint tokens to.
	//   2. `[signer]` The mint's minting authority.
	data := make([]byte, 1+8)
	data[0] = byte(CommandMintTo)
	binary.LittleEndian.PutUint64(data[1:], amount)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(mint, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(authority, true),
	)
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L76-L91
func Transfer(source, dest, owner ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The source account.
	//   1. `[writable]` The destination account.
	//   2. `[signer]` The source account's owner/delegate.
	data := make([]byte, 1+8)
	data[0] = byte(CommandTransfer)
	binary.LittleEndian.PutUint64(data[1:], amount)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(source, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

// DecodeAmountArgs decodes the data of the plain amount instructions,
// Transfer and MintTo.
func DecodeAmountArgs(data []byte, expected Command) (amount uint64, err error) {
	if len(data) != 1+8 {
		return 0, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "invalid amount data size: %d", len(data))
	}
	if Command(data[0]) != expected {
		return 0, solana.ErrIncorrectInstruction
	}
	return binary.LittleEndian.Uint64(data[1:]), nil
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L230-L252
func TransferChecked(source, mint, dest, owner ed25519.PublicKey, amount uint64, decimals byte) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The source account.
	//   1. `[]` The token mint.
	//   2. `[writable]` The destination account.
	//   3. `[signer]` The source account's owner/delegate.
	data := make([]byte, 1+8+1)
	data[0] = byte(CommandTransferChecked)
	binary.LittleEndian.PutUint64(data[1:], amount)
	data[9] = decimals

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(source, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

func DecodeTransferCheckedArgs(data []byte) (amount uint64, decimals byte, err error) {
	if len(data) != 1+8+1 {
		return 0, 0, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "invalid transfer checked data size: %d", len(data))
	}
	if Command(data[0]) != CommandTransferChecked {
		return 0, 0, solana.ErrIncorrectInstruction
	}
	return binary.LittleEndian.Uint64(data[1:9]), data[9], nil
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L183-L197
func CloseAccount(account, dest, owner ed25519.PublicKey) solana.Instruction {
	// Close an account by transferring all its SOL to the destination account.
	// Non-native accounts may only be closed if its token amount is zero.
	//
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The account to close.
	//   1. `[writable]` The destination account.
	//   2. `[signer]` The account's owner.
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandCloseAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}
