package escrow

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/runtime"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

type makeAccounts struct {
	maker         *runtime.AccountInfo
	mintA         *runtime.AccountInfo
	mintB         *runtime.AccountInfo
	makerAtaA     *runtime.AccountInfo
	vault         *runtime.AccountInfo
	escrow        *runtime.AccountInfo
	systemProgram *runtime.AccountInfo
	tokenProgram  *runtime.AccountInfo
}

func bindMakeAccounts(infos []*runtime.AccountInfo) (*makeAccounts, error) {
	if len(infos) != 8 {
		return nil, errors.Wrapf(solana.InstructionErrorNotEnoughAccountKeys, "make expects 8 accounts, got %d", len(infos))
	}

	accounts := &makeAccounts{
		maker:         infos[0],
		mintA:         infos[1],
		mintB:         infos[2],
		makerAtaA:     infos[3],
		vault:         infos[4],
		escrow:        infos[5],
		systemProgram: infos[6],
		tokenProgram:  infos[7],
	}
	if err := checkPrograms(accounts.systemProgram, accounts.tokenProgram); err != nil {
		return nil, err
	}
	return accounts, nil
}

type takeAccounts struct {
	taker         *runtime.AccountInfo
	maker         *runtime.AccountInfo
	mintA         *runtime.AccountInfo
	mintB         *runtime.AccountInfo
	makerAtaB     *runtime.AccountInfo
	takerAtaA     *runtime.AccountInfo
	takerAtaB     *runtime.AccountInfo
	vault         *runtime.AccountInfo
	escrow        *runtime.AccountInfo
	systemProgram *runtime.AccountInfo
	tokenProgram  *runtime.AccountInfo
}

func bindTakeAccounts(infos []*runtime.AccountInfo) (*takeAccounts, error) {
	if len(infos) != 11 {
		return nil, errors.Wrapf(solana.InstructionErrorNotEnoughAccountKeys, "take expects 11 accounts, got %d", len(infos))
	}

	accounts := &takeAccounts{
		taker:         infos[0],
		maker:         infos[1],
		mintA:         infos[2],
		mintB:         infos[3],
		makerAtaB:     infos[4],
		takerAtaA:     infos[5],
		takerAtaB:     infos[6],
		vault:         infos[7],
		escrow:        infos[8],
		systemProgram: infos[9],
		tokenProgram:  infos[10],
	}
	if err := checkPrograms(accounts.systemProgram, accounts.tokenProgram); err != nil {
		return nil, err
	}
	return accounts, nil
}

type refundAccounts struct {
	maker         *runtime.AccountInfo
	mintA         *runtime.AccountInfo
	makerAtaA     *runtime.AccountInfo
	vault         *runtime.AccountInfo
	escrow        *runtime.AccountInfo
	systemProgram *runtime.AccountInfo
	tokenProgram  *runtime.AccountInfo
}

func bindRefundAccounts(infos []*runtime.AccountInfo) (*refundAccounts, error) {
	if len(infos) != 7 {
		return nil, errors.Wrapf(solana.InstructionErrorNotEnoughAccountKeys, "refund expects 7 accounts, got %d", len(infos))
	}

	accounts := &refundAccounts{
		maker:         infos[0],
		mintA:         infos[1],
		makerAtaA:     infos[2],
		vault:         infos[3],
		escrow:        infos[4],
		systemProgram: infos[5],
		tokenProgram:  infos[6],
	}
	if err := checkPrograms(accounts.systemProgram, accounts.tokenProgram); err != nil {
		return nil, err
	}
	return accounts, nil
}

func checkPrograms(systemProgram, tokenProgram *runtime.AccountInfo) error {
	if !systemProgram.Is(system.ProgramKey) {
		return errors.Wrapf(solana.InstructionErrorIncorrectProgramID, "expected system program, got %s", systemProgram)
	}
	if !tokenProgram.Is(token.ProgramKey) {
		return errors.Wrapf(solana.InstructionErrorIncorrectProgramID, "expected token program, got %s", tokenProgram)
	}
	return nil
}

func loadMint(info *runtime.AccountInfo) (*token.Mint, error) {
	if !info.IsOwnedBy(token.ProgramKey) {
		return nil, errors.Wrapf(solana.InstructionErrorIllegalOwner, "mint %s not owned by the token program", info)
	}

	var mint token.Mint
	if !mint.Unmarshal(info.Data) || !mint.IsInitialized {
		return nil, errors.Wrapf(solana.InstructionErrorInvalidAccountData, "mint %s is not initialized", info)
	}
	return &mint, nil
}

// loadVault returns the vault token account, which must hold mint on behalf
// of escrow.
func loadVault(info, mint, escrow *runtime.AccountInfo) (*token.Account, error) {
	vault, ok := loadTokenAccount(info, mint.Key, escrow.Key)
	if !ok {
		return nil, ErrorInvalidVault
	}
	return vault, nil
}

// loadTokenAccount decodes an initialized token account for mint held by
// owner.
func loadTokenAccount(info *runtime.AccountInfo, mint, owner ed25519.PublicKey) (*token.Account, bool) {
	if !info.IsOwnedBy(token.ProgramKey) {
		return nil, false
	}

	var state token.Account
	if !state.Unmarshal(info.Data) || state.State != token.AccountStateInitialized {
		return nil, false
	}
	if !bytes.Equal(state.Mint, mint) || !bytes.Equal(state.Owner, owner) {
		return nil, false
	}
	return &state, true
}

// loadEscrow decodes the escrow record, which must be owned by program.
func (p *Program) loadEscrow(info *runtime.AccountInfo) (*EscrowAccount, error) {
	var escrow EscrowAccount
	if err := escrow.Unmarshal(info.Data); err != nil {
		return nil, err
	}
	if !info.IsOwnedBy(p.id) {
		return nil, errors.Wrapf(solana.InstructionErrorIllegalOwner, "escrow %s not owned by the program", info)
	}
	return &escrow, nil
}

// escrowSigner re-derives the escrow address of a record from its maker and
// seed, searching for the canonical bump.
func (p *Program) escrowSigner(record *EscrowAccount, escrow *runtime.AccountInfo) (*signer, error) {
	s, err := findSigner(p.id, escrowSeeds(record.Maker, record.Seed))
	if err != nil {
		return nil, errors.Wrap(solana.InstructionErrorInvalidSeeds, err.Error())
	}
	if !escrow.Is(s.address) {
		return nil, ErrorEscrowAddressMismatch
	}
	return s, nil
}
