package escrow

import (
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/runtime"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

func (p *Program) processMake(ctx *runtime.InvokeContext, args *MakeInstructionArgs) error {
	accounts, err := bindMakeAccounts(ctx.Accounts())
	if err != nil {
		return err
	}

	if !accounts.maker.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}

	escrowSigner, err := newSigner(p.id, escrowSeeds(accounts.maker.Key, args.Seed), args.Bump)
	if err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidSeeds, err.Error())
	}
	if !accounts.escrow.Is(escrowSigner.address) {
		ctx.Log("Error: escrow address mismatch, expected %s", base58.Encode(escrowSigner.address))
		return ErrorEscrowAddressMismatch
	}

	// Settlement always re-derives the canonical bump, so an escrow created
	// under any other bump could never be taken or refunded.
	if _, canonical, err := GetEscrowAddress(p.id, accounts.maker.Key, args.Seed); err != nil || canonical != args.Bump {
		return errors.Wrapf(solana.InstructionErrorInvalidSeeds, "bump %d is not canonical", args.Bump)
	}

	mintA, err := loadMint(accounts.mintA)
	if err != nil {
		return err
	}
	if _, err := loadMint(accounts.mintB); err != nil {
		return err
	}

	err = ctx.Invoke(
		system.CreateAccount(
			accounts.maker.Key,
			accounts.escrow.Key,
			p.id,
			ctx.Rent().MinimumBalance(EscrowAccountSize),
			EscrowAccountSize,
		),
		escrowSigner.seeds,
	)
	if err != nil {
		return err
	}

	record := &EscrowAccount{
		Maker:   accounts.maker.Key,
		MintA:   accounts.mintA.Key,
		MintB:   accounts.mintB.Key,
		Amount:  args.Amount,
		Receive: args.Receive,
		Seed:    args.Seed,
		Bump:    args.Bump,
	}
	accounts.escrow.Data = record.Marshal()

	if err := p.prepareVault(ctx, accounts); err != nil {
		return err
	}

	return ctx.Invoke(token.TransferChecked(
		accounts.makerAtaA.Key,
		accounts.mintA.Key,
		accounts.vault.Key,
		accounts.maker.Key,
		args.Amount,
		mintA.Decimals,
	))
}

// prepareVault creates the vault when it doesn't exist yet. An existing vault
// must already hold mint_a on behalf of the escrow.
func (p *Program) prepareVault(ctx *runtime.InvokeContext, accounts *makeAccounts) error {
	if !accounts.vault.IsEmpty() {
		_, err := loadVault(accounts.vault, accounts.mintA, accounts.escrow)
		return err
	}

	vaultSigner, err := findSigner(p.id, vaultSeeds(accounts.escrow.Key))
	if err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidSeeds, err.Error())
	}
	if !accounts.vault.Is(vaultSigner.address) {
		ctx.Log("Error: vault address mismatch, expected %s", base58.Encode(vaultSigner.address))
		return ErrorInvalidVault
	}

	err = ctx.Invoke(
		system.CreateAccount(
			accounts.maker.Key,
			accounts.vault.Key,
			token.ProgramKey,
			ctx.Rent().MinimumBalance(token.AccountSize),
			token.AccountSize,
		),
		vaultSigner.seeds,
	)
	if err != nil {
		return err
	}

	return ctx.Invoke(token.InitializeAccount3(accounts.vault.Key, accounts.mintA.Key, accounts.escrow.Key))
}
