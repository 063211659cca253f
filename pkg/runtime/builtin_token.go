package runtime

import (
	"bytes"
	"crypto/ed25519"
	"math"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

func processToken(ctx *InvokeContext, data []byte) error {
	cmd, err := token.GetCommand(data)
	if err != nil {
		return err
	}

	switch cmd {
	case token.CommandInitializeMint2:
		return tokenInitializeMint(ctx, data)
	case token.CommandInitializeAccount3:
		return tokenInitializeAccount(ctx, data)
	case token.CommandMintTo:
		return tokenMintTo(ctx, data)
	case token.CommandTransfer:
		amount, err := token.DecodeAmountArgs(data, token.CommandTransfer)
		if err != nil {
			return err
		}
		return tokenTransfer(ctx, amount, nil)
	case token.CommandTransferChecked:
		amount, decimals, err := token.DecodeTransferCheckedArgs(data)
		if err != nil {
			return err
		}
		return tokenTransfer(ctx, amount, &decimals)
	case token.CommandCloseAccount:
		return tokenCloseAccount(ctx)
	default:
		return token.ErrorInvalidInstruction
	}
}

func tokenInitializeMint(ctx *InvokeContext, data []byte) error {
	args, err := token.DecodeInitializeMint2Args(data)
	if err != nil {
		return err
	}

	accounts := ctx.Accounts()
	if len(accounts) < 1 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}
	mint := accounts[0]

	if !mint.IsOwnedBy(token.ProgramKey) {
		return solana.InstructionErrorIncorrectProgramID
	}

	var state token.Mint
	if !state.Unmarshal(mint.Data) {
		return solana.InstructionErrorInvalidAccountData
	}
	if state.IsInitialized {
		return token.ErrorAlreadyInUse
	}
	if !ctx.Rent().IsExempt(mint.Lamports, uint64(len(mint.Data))) {
		return token.ErrorNotRentExempt
	}

	state = token.Mint{
		MintAuthority:   args.MintAuthority,
		Decimals:        args.Decimals,
		IsInitialized:   true,
		FreezeAuthority: args.FreezeAuthority,
	}
	mint.Data = state.Marshal()
	return nil
}

func tokenInitializeAccount(ctx *InvokeContext, data []byte) error {
	owner, err := token.DecodeInitializeAccount3Args(data)
	if err != nil {
		return err
	}

	accounts := ctx.Accounts()
	if len(accounts) < 2 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}
	acc, mint := accounts[0], accounts[1]

	if !acc.IsOwnedBy(token.ProgramKey) {
		return solana.InstructionErrorIncorrectProgramID
	}

	var state token.Account
	if !state.Unmarshal(acc.Data) {
		return solana.InstructionErrorInvalidAccountData
	}
	if state.State != token.AccountStateUninitialized {
		return token.ErrorAlreadyInUse
	}
	if !ctx.Rent().IsExempt(acc.Lamports, uint64(len(acc.Data))) {
		return token.ErrorNotRentExempt
	}

	if _, err := loadMint(mint); err != nil {
		return token.ErrorInvalidMint
	}

	state = token.Account{
		Mint:  mint.Key,
		Owner: owner,
		State: token.AccountStateInitialized,
	}
	acc.Data = state.Marshal()
	return nil
}

func tokenMintTo(ctx *InvokeContext, data []byte) error {
	amount, err := token.DecodeAmountArgs(data, token.CommandMintTo)
	if err != nil {
		return err
	}

	accounts := ctx.Accounts()
	if len(accounts) < 3 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}
	mintInfo, destInfo, authority := accounts[0], accounts[1], accounts[2]

	mint, err := loadMint(mintInfo)
	if err != nil {
		return err
	}
	dest, err := loadTokenAccount(destInfo)
	if err != nil {
		return err
	}

	if dest.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}
	if !mintInfo.Is(dest.Mint) {
		return token.ErrorMintMismatch
	}

	if len(mint.MintAuthority) == 0 {
		return token.ErrorFixedSupply
	}
	if err := validateOwner(mint.MintAuthority, authority); err != nil {
		return err
	}

	if mint.Supply > math.MaxUint64-amount || dest.Amount > math.MaxUint64-amount {
		return token.ErrorOverflow
	}
	mint.Supply += amount
	dest.Amount += amount

	mintInfo.Data = mint.Marshal()
	destInfo.Data = dest.Marshal()
	return nil
}

// tokenTransfer implements Transfer and, when decimals is set, TransferChecked
// whose accounts additionally include the mint.
func tokenTransfer(ctx *InvokeContext, amount uint64, decimals *byte) error {
	accounts := ctx.Accounts()

	var sourceInfo, mintInfo, destInfo, authority *AccountInfo
	if decimals != nil {
		if len(accounts) < 4 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		sourceInfo, mintInfo, destInfo, authority = accounts[0], accounts[1], accounts[2], accounts[3]
	} else {
		if len(accounts) < 3 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		sourceInfo, destInfo, authority = accounts[0], accounts[1], accounts[2]
	}

	source, err := loadTokenAccount(sourceInfo)
	if err != nil {
		return err
	}
	dest, err := loadTokenAccount(destInfo)
	if err != nil {
		return err
	}

	if source.State == token.AccountStateFrozen || dest.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}
	if source.Amount < amount {
		ctx.Log("Error: insufficient funds")
		return token.ErrorInsufficientFunds
	}
	if !bytes.Equal(source.Mint, dest.Mint) {
		return token.ErrorMintMismatch
	}

	if mintInfo != nil {
		if !mintInfo.Is(source.Mint) {
			return token.ErrorMintMismatch
		}

		mint, err := loadMint(mintInfo)
		if err != nil {
			return err
		}
		if mint.Decimals != *decimals {
			return token.ErrorMintDecimalsMismatch
		}
	}

	if err := validateOwner(source.Owner, authority); err != nil {
		return err
	}

	if sourceInfo.Account == destInfo.Account {
		return nil
	}

	if dest.Amount > math.MaxUint64-amount {
		return token.ErrorOverflow
	}
	source.Amount -= amount
	dest.Amount += amount

	sourceInfo.Data = source.Marshal()
	destInfo.Data = dest.Marshal()
	return nil
}

func tokenCloseAccount(ctx *InvokeContext) error {
	accounts := ctx.Accounts()
	if len(accounts) < 3 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}
	sourceInfo, destInfo, authority := accounts[0], accounts[1], accounts[2]

	if sourceInfo.Account == destInfo.Account {
		return solana.InstructionErrorInvalidAccountData
	}

	source, err := loadTokenAccount(sourceInfo)
	if err != nil {
		return err
	}
	if source.Amount != 0 {
		ctx.Log("Error: non-native account can only be closed if its balance is zero")
		return token.ErrorNonNativeHasBalance
	}

	closeAuthority := source.Owner
	if len(source.CloseAuthority) > 0 {
		closeAuthority = source.CloseAuthority
	}
	if err := validateOwner(closeAuthority, authority); err != nil {
		return err
	}

	if err := sourceInfo.Close(destInfo.Account); err != nil {
		if errors.Is(err, solana.InstructionErrorArithmeticOverflow) {
			return token.ErrorOverflow
		}
		return err
	}
	return nil
}

func loadTokenAccount(info *AccountInfo) (*token.Account, error) {
	if !info.IsOwnedBy(token.ProgramKey) {
		return nil, solana.InstructionErrorIncorrectProgramID
	}

	var state token.Account
	if !state.Unmarshal(info.Data) {
		return nil, solana.InstructionErrorInvalidAccountData
	}
	if state.State == token.AccountStateUninitialized {
		return nil, token.ErrorUninitializedState
	}
	return &state, nil
}

func loadMint(info *AccountInfo) (*token.Mint, error) {
	if !info.IsOwnedBy(token.ProgramKey) {
		return nil, solana.InstructionErrorIncorrectProgramID
	}

	var state token.Mint
	if !state.Unmarshal(info.Data) {
		return nil, solana.InstructionErrorInvalidAccountData
	}
	if !state.IsInitialized {
		return nil, token.ErrorUninitializedState
	}
	return &state, nil
}

func validateOwner(expected ed25519.PublicKey, authority *AccountInfo) error {
	if !authority.Is(expected) {
		return token.ErrorOwnerMismatch
	}
	if !authority.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}
	return nil
}
