package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

const (
	RefundInstructionArgsSize = 0
)

type RefundInstructionAccounts struct {
	Maker     ed25519.PublicKey
	MintA     ed25519.PublicKey
	MakerAtaA ed25519.PublicKey
	Vault     ed25519.PublicKey
	Escrow    ed25519.PublicKey
}

func NewRefundInstruction(
	program ed25519.PublicKey,
	accounts *RefundInstructionAccounts,
) solana.Instruction {
	return solana.NewInstruction(
		program,
		encodeInstruction(OpcodeRefund, nil),
		solana.NewAccountMeta(accounts.Maker, true),
		solana.NewReadonlyAccountMeta(accounts.MintA, false),
		solana.NewAccountMeta(accounts.MakerAtaA, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}
