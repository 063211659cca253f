package runtime

import (
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

func processAssociatedTokenAccount(ctx *InvokeContext, data []byte) error {
	cmd, err := token.GetAssociatedCommand(data)
	if err != nil {
		return err
	}

	accounts := ctx.Accounts()
	if len(accounts) < 6 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}
	funder, ata, wallet, mint := accounts[0], accounts[1], accounts[2], accounts[3]

	seeds := token.GetAssociatedAccountSeeds(wallet.Key, mint.Key)
	address, bump, err := solana.FindProgramAddressAndBump(ctx.ProgramID(), seeds...)
	if err != nil {
		return solana.InstructionErrorInvalidSeeds
	}
	if !ata.Is(address) {
		ctx.Log("Error: Associated address does not match seed derivation")
		return solana.InstructionErrorInvalidSeeds
	}

	if cmd == token.AssociatedCommandCreateIdempotent && ata.IsOwnedBy(token.ProgramKey) {
		existing, err := loadTokenAccount(ata)
		if err != nil {
			return err
		}
		if !wallet.Is(existing.Owner) {
			ctx.Log("Error: Associated token account has an invalid owner")
			return solana.InstructionErrorIllegalOwner
		}
		if !mint.Is(existing.Mint) {
			return solana.InstructionErrorInvalidAccountData
		}
		return nil
	}

	if !mint.IsOwnedBy(token.ProgramKey) {
		return solana.InstructionErrorIllegalOwner
	}

	signer := SignerSeeds(append(seeds, []byte{bump}))

	err = ctx.Invoke(
		system.CreateAccount(funder.Key, ata.Key, token.ProgramKey, ctx.Rent().MinimumBalance(token.AccountSize), token.AccountSize),
		signer,
	)
	if err != nil {
		return err
	}

	return ctx.Invoke(token.InitializeAccount3(ata.Key, mint.Key, wallet.Key))
}
