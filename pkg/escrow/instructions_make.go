package escrow

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/binary"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

const (
	MakeInstructionArgsSize = (8 + // seed
		8 + // amount
		8 + // receive
		1) // bump
)

type MakeInstructionArgs struct {
	Seed    uint64
	Amount  uint64
	Receive uint64
	Bump    uint8
}

type MakeInstructionAccounts struct {
	Maker     ed25519.PublicKey
	MintA     ed25519.PublicKey
	MintB     ed25519.PublicKey
	MakerAtaA ed25519.PublicKey
	Vault     ed25519.PublicKey
	Escrow    ed25519.PublicKey
}

func NewMakeInstruction(
	program ed25519.PublicKey,
	accounts *MakeInstructionAccounts,
	args *MakeInstructionArgs,
) solana.Instruction {
	return solana.NewInstruction(
		program,
		encodeInstruction(OpcodeMake, args.Marshal()),
		solana.NewAccountMeta(accounts.Maker, true),
		solana.NewReadonlyAccountMeta(accounts.MintA, false),
		solana.NewReadonlyAccountMeta(accounts.MintB, false),
		solana.NewAccountMeta(accounts.MakerAtaA, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}

func (args *MakeInstructionArgs) Marshal() []byte {
	return binary.NewWriter(MakeInstructionArgsSize).
		Uint64(args.Seed).
		Uint64(args.Amount).
		Uint64(args.Receive).
		Uint8(args.Bump).
		Bytes()
}

// DecodeMakeInstructionArgs decodes the Make payload, ie. the instruction
// data without the opcode.
func DecodeMakeInstructionArgs(payload []byte) (*MakeInstructionArgs, error) {
	if len(payload) != MakeInstructionArgsSize {
		return nil, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "invalid make payload size: %d", len(payload))
	}

	r := binary.NewReader(payload)
	return &MakeInstructionArgs{
		Seed:    r.Uint64(),
		Amount:  r.Uint64(),
		Receive: r.Uint64(),
		Bump:    r.Uint8(),
	}, nil
}
