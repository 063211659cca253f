package escrow

import (
	"github.com/code-payments/code-escrow/pkg/runtime"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

func (p *Program) processTake(ctx *runtime.InvokeContext) error {
	accounts, err := bindTakeAccounts(ctx.Accounts())
	if err != nil {
		return err
	}

	record, err := p.loadEscrow(accounts.escrow)
	if err != nil {
		return err
	}
	if !accounts.taker.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}

	if !accounts.maker.Is(record.Maker) {
		return ErrorMakerMismatch
	}
	if !accounts.mintA.Is(record.MintA) || !accounts.mintB.Is(record.MintB) {
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
	mintB, err := loadMint(accounts.mintB)
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
	if _, ok := loadTokenAccount(accounts.makerAtaB, record.MintB, record.Maker); !ok {
		return ErrorInvalidMakerAccount
	}

	err = ctx.Invoke(token.TransferChecked(
		accounts.takerAtaB.Key,
		accounts.mintB.Key,
		accounts.makerAtaB.Key,
		accounts.taker.Key,
		record.Receive,
		mintB.Decimals,
	))
	if err != nil {
		return err
	}

	err = ctx.Invoke(
		token.TransferChecked(
			accounts.vault.Key,
			accounts.mintA.Key,
			accounts.takerAtaA.Key,
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
