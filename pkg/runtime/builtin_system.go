package runtime

import (
	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/memo"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

func builtinPrograms() []Program {
	return []Program{
		NewNativeProgram(system.ProgramKey, processSystem),
		NewNativeProgram(token.ProgramKey, processToken),
		NewNativeProgram(token.AssociatedTokenAccountProgramKey, processAssociatedTokenAccount),
		NewNativeProgram(memo.ProgramKey, processMemo),
	}
}

func processSystem(ctx *InvokeContext, data []byte) error {
	cmd, err := system.GetCommand(data)
	if err != nil {
		return err
	}

	switch cmd {
	case system.CommandCreateAccount:
		return systemCreateAccount(ctx, data)
	case system.CommandTransfer:
		return systemTransfer(ctx, data)
	default:
		return errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "unsupported system command %d", cmd)
	}
}

func systemCreateAccount(ctx *InvokeContext, data []byte) error {
	args, err := system.DecodeCreateAccountArgs(data)
	if err != nil {
		return err
	}

	accounts := ctx.Accounts()
	if len(accounts) < 2 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}
	funder, created := accounts[0], accounts[1]

	if !funder.IsSigner || !created.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}
	if funder.Account == created.Account {
		return solana.InstructionErrorInvalidArgument
	}

	if !created.IsEmpty() {
		ctx.Log("Create Account: account %s already in use", created)
		return system.ErrorAccountAlreadyInUse
	}
	if args.Size > system.MaxPermittedDataLength {
		return system.ErrorInvalidAccountDataLength
	}
	if !ctx.Rent().IsExempt(args.Lamports, args.Size) {
		ctx.Log("Create Account: %d lamports below rent exempt minimum %d", args.Lamports, ctx.Rent().MinimumBalance(args.Size))
		return solana.InstructionErrorInsufficientFunds
	}

	if len(funder.Data) > 0 {
		return errors.Wrap(solana.InstructionErrorInvalidArgument, "funder must not carry data")
	}
	if funder.Lamports < args.Lamports {
		ctx.Log("Transfer: insufficient lamports %d, need %d", funder.Lamports, args.Lamports)
		return system.ErrorResultWithNegativeLamports
	}

	funder.Lamports -= args.Lamports
	created.Lamports = args.Lamports
	created.Data = make([]byte, args.Size)
	created.Owner = args.Owner
	return nil
}

func systemTransfer(ctx *InvokeContext, data []byte) error {
	lamports, err := system.DecodeTransferArgs(data)
	if err != nil {
		return err
	}

	accounts := ctx.Accounts()
	if len(accounts) < 2 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}
	from, to := accounts[0], accounts[1]

	if !from.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}
	if len(from.Data) > 0 {
		return errors.Wrap(solana.InstructionErrorInvalidArgument, "from must not carry data")
	}
	if from.Lamports < lamports {
		ctx.Log("Transfer: insufficient lamports %d, need %d", from.Lamports, lamports)
		return system.ErrorResultWithNegativeLamports
	}
	if from.Account == to.Account {
		return nil
	}

	from.Lamports -= lamports
	return to.AddLamports(lamports)
}
