package token

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

// AssociatedTokenAccountProgramKey is ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL.
var AssociatedTokenAccountProgramKey = ed25519.PublicKey{140, 151, 37, 143, 78, 36, 137, 241, 187, 61, 16, 41, 20, 142, 13, 131, 11, 90, 19, 153, 218, 255, 16, 132, 4, 142, 123, 216, 219, 233, 248, 89}

type AssociatedCommand byte

const (
	AssociatedCommandCreate AssociatedCommand = iota
	AssociatedCommandCreateIdempotent
)

// GetAssociatedAccount derives the canonical token account of wallet for mint.
func GetAssociatedAccount(wallet, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(AssociatedTokenAccountProgramKey, GetAssociatedAccountSeeds(wallet, mint)...)
}

// GetAssociatedAccountSeeds returns the seeds, without bump, that derive the
// associated account of wallet for mint.
func GetAssociatedAccountSeeds(wallet, mint ed25519.PublicKey) [][]byte {
	return [][]byte{wallet, ProgramKey, mint}
}

// CreateAssociatedTokenAccount fails if the account already exists.
func CreateAssociatedTokenAccount(funder, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	return createAssociatedTokenAccount(AssociatedCommandCreate, funder, wallet, mint)
}

// CreateAssociatedTokenAccountIdempotent is CreateAssociatedTokenAccount, but
// succeeds without changes when the account already exists for the wallet and mint.
func CreateAssociatedTokenAccountIdempotent(funder, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	return createAssociatedTokenAccount(AssociatedCommandCreateIdempotent, funder, wallet, mint)
}

func createAssociatedTokenAccount(cmd AssociatedCommand, funder, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	addr, err := GetAssociatedAccount(wallet, mint)
	if err != nil {
		return solana.Instruction{}, nil, err
	}

	var data []byte
	if cmd != AssociatedCommandCreate {
		data = []byte{byte(cmd)}
	}

	return solana.NewInstruction(
		AssociatedTokenAccountProgramKey,
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(addr, false),
		solana.NewReadonlyAccountMeta(wallet, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey, false),
		solana.NewReadonlyAccountMeta(ProgramKey, false),
	), addr, nil
}

// GetAssociatedCommand returns the command of associated token account
// program instruction data. Empty data is the original Create instruction.
func GetAssociatedCommand(data []byte) (AssociatedCommand, error) {
	switch {
	case len(data) == 0:
		return AssociatedCommandCreate, nil
	case len(data) == 1 && data[0] <= byte(AssociatedCommandCreateIdempotent):
		return AssociatedCommand(data[0]), nil
	default:
		return 0, errors.Wrap(solana.InstructionErrorInvalidInstructionData, "unknown associated token account instruction")
	}
}
