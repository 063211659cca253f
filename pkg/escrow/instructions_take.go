package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

const (
	TakeInstructionArgsSize = 0
)

type TakeInstructionAccounts struct {
	Taker     ed25519.PublicKey
	Maker     ed25519.PublicKey
	MintA     ed25519.PublicKey
	MintB     ed25519.PublicKey
	MakerAtaB ed25519.PublicKey
	TakerAtaA ed25519.PublicKey
	TakerAtaB ed25519.PublicKey
	Vault     ed25519.PublicKey
	Escrow    ed25519.PublicKey
}

func NewTakeInstruction(
	program ed25519.PublicKey,
	accounts *TakeInstructionAccounts,
) solana.Instruction {
	return solana.NewInstruction(
		program,
		encodeInstruction(OpcodeTake, nil),
		solana.NewAccountMeta(accounts.Taker, true),
		solana.NewAccountMeta(accounts.Maker, false),
		solana.NewReadonlyAccountMeta(accounts.MintA, false),
		solana.NewReadonlyAccountMeta(accounts.MintB, false),
		solana.NewAccountMeta(accounts.MakerAtaB, false),
		solana.NewAccountMeta(accounts.TakerAtaA, false),
		solana.NewAccountMeta(accounts.TakerAtaB, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}
