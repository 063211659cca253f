package escrow

import (
	"github.com/code-payments/code-escrow/pkg/runtime"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

func (p *Program) processRefund(ctx *runtime.InvokeContext) error {
	accounts, err := bindRefundAccounts(ctx.Accounts())
	if err != nil {
		return err
	}

	record, err := p.loadEscrow(accounts.escrow)
	if err != nil {
		return err
	}
	if !accounts.maker.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}

	if !accounts.maker.Is(record.Maker) {
		return ErrorMakerMismatch
	}
	if !accounts.mintA.Is(record.MintA) {
		return ErrorMintMismatch
	}

	escrowSigner, err := p.escrowSigner(record, accounts.escrow)
	if err != nil {
		return err
	}

	mintA, err := loadMint(accounts.mintA)
	if err != nil {
		return err
	}

	vault, err := loadVault(accounts.vault, accounts.mintA, accounts.escrow)
	if err != nil {
		return err
	}
	if vault.Amount < record.Amount {
		ctx.Log("Error: vault holds %d, escrow requires %d", vault.Amount, record.Amount)
		return ErrorInvalidVault
	}

	err = ctx.Invoke(
		token.TransferChecked(
			accounts.vault.Key,
			accounts.mintA.Key,
			accounts.makerAtaA.Key,
			accounts.escrow.Key,
			vault.Amount,
			mintA.Decimals,
		),
		escrowSigner.seeds,
	)
	if err != nil {
		return err
	}

	err = ctx.Invoke(
		token.CloseAccount(accounts.vault.Key, accounts.maker.Key, accounts.escrow.Key),
		escrowSigner.seeds,
	)
	if err != nil {
		return err
	}

	return accounts.escrow.Close(accounts.maker.Account)
}
