package escrow_test

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/escrow"
	"github.com/code-payments/code-escrow/pkg/runtime"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	"github.com/code-payments/code-escrow/pkg/testutil"
)

type testEnv struct {
	bank      *runtime.Bank
	programID ed25519.PublicKey

	authority ed25519.PrivateKey
	maker     ed25519.PrivateKey
	taker     ed25519.PrivateKey

	mintA ed25519.PublicKey
	mintB ed25519.PublicKey

	makerAtaA ed25519.PublicKey
	makerAtaB ed25519.PublicKey
	takerAtaA ed25519.PublicKey
	takerAtaB ed25519.PublicKey
}

// setup funds the maker with 1000 of mint A and the taker with 500 of mint B.
func setup(t *testing.T) *testEnv {
	program := escrow.NewProgram(escrow.DefaultProgramID)
	bank := testutil.NewTestBank(t, program)

	env := &testEnv{
		bank:      bank,
		programID: program.ID(),
		authority: testutil.NewFundedWallet(t, bank),
		maker:     testutil.NewFundedWallet(t, bank),
		taker:     testutil.NewFundedWallet(t, bank),
	}

	env.mintA = testutil.CreateMint(t, bank, env.authority, env.authority, 6)
	env.mintB = testutil.CreateMint(t, bank, env.authority, env.authority, 9)

	env.makerAtaA = testutil.CreateAssociatedTokenAccount(t, bank, env.maker, testutil.PublicKey(env.maker), env.mintA)
	env.makerAtaB = testutil.CreateAssociatedTokenAccount(t, bank, env.maker, testutil.PublicKey(env.maker), env.mintB)
	env.takerAtaA = testutil.CreateAssociatedTokenAccount(t, bank, env.taker, testutil.PublicKey(env.taker), env.mintA)
	env.takerAtaB = testutil.CreateAssociatedTokenAccount(t, bank, env.taker, testutil.PublicKey(env.taker), env.mintB)

	testutil.MintTokens(t, bank, env.authority, env.mintA, env.makerAtaA, 1000)
	testutil.MintTokens(t, bank, env.authority, env.mintB, env.takerAtaB, 500)

	return env
}

func (e *testEnv) makeAccounts(t *testing.T, seed uint64) (*escrow.MakeInstructionAccounts, uint8) {
	address, bump, err := escrow.GetEscrowAddress(e.programID, testutil.PublicKey(e.maker), seed)
	require.NoError(t, err)

	vault, _, err := escrow.GetVaultAddress(e.programID, address)
	require.NoError(t, err)

	return &escrow.MakeInstructionAccounts{
		Maker:     testutil.PublicKey(e.maker),
		MintA:     e.mintA,
		MintB:     e.mintB,
		MakerAtaA: e.makerAtaA,
		Vault:     vault,
		Escrow:    address,
	}, bump
}

func (e *testEnv) makeInstruction(t *testing.T, seed, amount, receive uint64) (solana.Instruction, *escrow.MakeInstructionAccounts) {
	accounts, bump := e.makeAccounts(t, seed)
	return escrow.NewMakeInstruction(e.programID, accounts, &escrow.MakeInstructionArgs{
		Seed:    seed,
		Amount:  amount,
		Receive: receive,
		Bump:    bump,
	}), accounts
}

func (e *testEnv) make(t *testing.T, seed, amount, receive uint64) *escrow.MakeInstructionAccounts {
	ix, accounts := e.makeInstruction(t, seed, amount, receive)
	testutil.MustSubmit(t, e.bank, []ed25519.PrivateKey{e.maker}, ix)
	return accounts
}

func (e *testEnv) takeAccounts(made *escrow.MakeInstructionAccounts) *escrow.TakeInstructionAccounts {
	return &escrow.TakeInstructionAccounts{
		Taker:     testutil.PublicKey(e.taker),
		Maker:     testutil.PublicKey(e.maker),
		MintA:     e.mintA,
		MintB:     e.mintB,
		MakerAtaB: e.makerAtaB,
		TakerAtaA: e.takerAtaA,
		TakerAtaB: e.takerAtaB,
		Vault:     made.Vault,
		Escrow:    made.Escrow,
	}
}

func (e *testEnv) take(t *testing.T, accounts *escrow.TakeInstructionAccounts) error {
	_, err := testutil.Submit(t, e.bank, []ed25519.PrivateKey{e.taker}, escrow.NewTakeInstruction(e.programID, accounts))
	return err
}

func (e *testEnv) refundAccounts(made *escrow.MakeInstructionAccounts) *escrow.RefundInstructionAccounts {
	return &escrow.RefundInstructionAccounts{
		Maker:     testutil.PublicKey(e.maker),
		MintA:     e.mintA,
		MakerAtaA: e.makerAtaA,
		Vault:     made.Vault,
		Escrow:    made.Escrow,
	}
}

func (e *testEnv) refund(t *testing.T, accounts *escrow.RefundInstructionAccounts) error {
	_, err := testutil.Submit(t, e.bank, []ed25519.PrivateKey{e.maker}, escrow.NewRefundInstruction(e.programID, accounts))
	return err
}

func (e *testEnv) getEscrow(t *testing.T, address ed25519.PublicKey) *escrow.EscrowAccount {
	acc, err := e.bank.GetAccount(context.Background(), address)
	require.NoError(t, err)
	require.True(t, acc.IsOwnedBy(e.programID))

	var record escrow.EscrowAccount
	require.NoError(t, record.Unmarshal(acc.Data))
	return &record
}

type balances struct {
	makerAtaA, makerAtaB, takerAtaA, takerAtaB uint64
	maker, taker                               uint64
}

func (e *testEnv) balances(t *testing.T) balances {
	return balances{
		makerAtaA: testutil.GetTokenBalance(t, e.bank, e.makerAtaA),
		makerAtaB: testutil.GetTokenBalance(t, e.bank, e.makerAtaB),
		takerAtaA: testutil.GetTokenBalance(t, e.bank, e.takerAtaA),
		takerAtaB: testutil.GetTokenBalance(t, e.bank, e.takerAtaB),
		maker:     testutil.GetLamports(t, e.bank, testutil.PublicKey(e.maker)),
		taker:     testutil.GetLamports(t, e.bank, testutil.PublicKey(e.taker)),
	}
}

func TestMake(t *testing.T) {
	env := setup(t)
	rent := env.bank.Rent(context.Background())

	before := env.balances(t)
	made := env.make(t, 7, 1000, 500)

	record := env.getEscrow(t, made.Escrow)
	assert.Equal(t, testutil.PublicKey(env.maker), record.Maker)
	assert.Equal(t, env.mintA, record.MintA)
	assert.Equal(t, env.mintB, record.MintB)
	assert.EqualValues(t, 1000, record.Amount)
	assert.EqualValues(t, 500, record.Receive)
	assert.EqualValues(t, 7, record.Seed)

	derived, err := escrow.CreateEscrowAddress(env.programID, testutil.PublicKey(env.maker), 7, record.Bump)
	require.NoError(t, err)
	assert.Equal(t, made.Escrow, derived)

	assert.Equal(t, rent.MinimumBalance(escrow.EscrowAccountSize), testutil.GetLamports(t, env.bank, made.Escrow))

	vault := testutil.GetTokenAccount(t, env.bank, made.Vault)
	assert.Equal(t, env.mintA, vault.Mint)
	assert.Equal(t, made.Escrow, vault.Owner)
	assert.EqualValues(t, 1000, vault.Amount)

	after := env.balances(t)
	assert.EqualValues(t, 0, after.makerAtaA)
	assert.Equal(t, before.maker-rent.MinimumBalance(escrow.EscrowAccountSize)-rent.MinimumBalance(token.AccountSize), after.maker)
}

func TestMake_Errors(t *testing.T) {
	env := setup(t)

	t.Run("insufficient tokens", func(t *testing.T) {
		ix, accounts := env.makeInstruction(t, 1, 1001, 500)
		_, err := testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
		testutil.AssertInstructionError(t, err, 0, token.ErrorInsufficientFunds)

		testutil.RequireAccountNotFound(t, env.bank, accounts.Escrow)
		testutil.RequireAccountNotFound(t, env.bank, accounts.Vault)
	})

	t.Run("escrow address mismatch", func(t *testing.T) {
		accounts, bump := env.makeAccounts(t, 2)
		accounts.Escrow = testutil.GenerateSolanaKeys(t, 1)[0]

		ix := escrow.NewMakeInstruction(env.programID, accounts, &escrow.MakeInstructionArgs{Seed: 2, Amount: 10, Receive: 5, Bump: bump})
		_, err := testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
		testutil.AssertInstructionError(t, err, 0, escrow.ErrorEscrowAddressMismatch)
	})

	t.Run("non canonical bump", func(t *testing.T) {
		accounts, canonical := env.makeAccounts(t, 3)

		for bump := int(canonical) - 1; bump > 0; bump-- {
			address, err := escrow.CreateEscrowAddress(env.programID, testutil.PublicKey(env.maker), 3, uint8(bump))
			if err != nil {
				continue
			}
			accounts.Escrow = address

			ix := escrow.NewMakeInstruction(env.programID, accounts, &escrow.MakeInstructionArgs{Seed: 3, Amount: 10, Receive: 5, Bump: uint8(bump)})
			_, err = testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
			testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorInvalidSeeds)
			return
		}
	})

	t.Run("missing signature", func(t *testing.T) {
		ix, _ := env.makeInstruction(t, 4, 10, 5)
		ix.Accounts[0].IsSigner = false

		_, err := testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.taker}, ix)
		testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorMissingRequiredSignature)
	})

	t.Run("account count", func(t *testing.T) {
		ix, _ := env.makeInstruction(t, 5, 10, 5)
		ix.Accounts = ix.Accounts[:7]

		_, err := testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
		testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorNotEnoughAccountKeys)

		ix, _ = env.makeInstruction(t, 5, 10, 5)
		ix.Accounts = append(ix.Accounts, solana.NewReadonlyAccountMeta(env.mintB, false))

		_, err = testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
		testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorNotEnoughAccountKeys)
	})

	t.Run("incorrect program", func(t *testing.T) {
		ix, _ := env.makeInstruction(t, 6, 10, 5)
		ix.Accounts[7].PublicKey = testutil.GenerateSolanaKeys(t, 1)[0]

		_, err := testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
		testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorIncorrectProgramID)
	})

	t.Run("invalid vault", func(t *testing.T) {
		accounts, bump := env.makeAccounts(t, 7)
		accounts.Vault = testutil.GenerateSolanaKeys(t, 1)[0]

		ix := escrow.NewMakeInstruction(env.programID, accounts, &escrow.MakeInstructionArgs{Seed: 7, Amount: 10, Receive: 5, Bump: bump})
		_, err := testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
		testutil.AssertInstructionError(t, err, 0, escrow.ErrorInvalidVault)

		accounts.Vault = env.takerAtaA
		ix = escrow.NewMakeInstruction(env.programID, accounts, &escrow.MakeInstructionArgs{Seed: 7, Amount: 10, Receive: 5, Bump: bump})
		_, err = testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
		testutil.AssertInstructionError(t, err, 0, escrow.ErrorInvalidVault)
	})

	t.Run("invalid data", func(t *testing.T) {
		ix, _ := env.makeInstruction(t, 8, 10, 5)
		ix.Data = ix.Data[:len(ix.Data)-1]

		_, err := testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
		testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorInvalidInstructionData)

		ix.Data = []byte{3}
		_, err = testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
		testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorInvalidInstructionData)
	})

	t.Run("already open", func(t *testing.T) {
		env.make(t, 9, 10, 5)

		ix, _ := env.makeInstruction(t, 9, 10, 5)
		_, err := testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
		testutil.AssertInstructionError(t, err, 0, system.ErrorAccountAlreadyInUse)
	})

	assert.EqualValues(t, 990, testutil.GetTokenBalance(t, env.bank, env.makerAtaA))
}

func TestMake_FundedVaultAddress(t *testing.T) {
	env := setup(t)

	accounts, bump := env.makeAccounts(t, 12)
	testutil.MustSubmit(t, env.bank, []ed25519.PrivateKey{env.taker}, system.Transfer(testutil.PublicKey(env.taker), accounts.Vault, 1))

	ix := escrow.NewMakeInstruction(env.programID, accounts, &escrow.MakeInstructionArgs{Seed: 12, Amount: 1000, Receive: 500, Bump: bump})
	_, err := testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
	testutil.AssertInstructionError(t, err, 0, escrow.ErrorInvalidVault)
	testutil.RequireAccountNotFound(t, env.bank, accounts.Escrow)

	// The escrow's associated token account is accepted as the vault instead.
	accounts.Vault = testutil.CreateAssociatedTokenAccount(t, env.bank, env.maker, accounts.Escrow, env.mintA)
	ix = escrow.NewMakeInstruction(env.programID, accounts, &escrow.MakeInstructionArgs{Seed: 12, Amount: 1000, Receive: 500, Bump: bump})
	testutil.MustSubmit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
	assert.EqualValues(t, 1000, testutil.GetTokenBalance(t, env.bank, accounts.Vault))
}

func TestMake_ExistingVault(t *testing.T) {
	env := setup(t)

	accounts, bump := env.makeAccounts(t, 11)
	accounts.Vault = testutil.CreateAssociatedTokenAccount(t, env.bank, env.maker, accounts.Escrow, env.mintA)

	ix := escrow.NewMakeInstruction(env.programID, accounts, &escrow.MakeInstructionArgs{Seed: 11, Amount: 1000, Receive: 500, Bump: bump})
	testutil.MustSubmit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
	assert.EqualValues(t, 1000, testutil.GetTokenBalance(t, env.bank, accounts.Vault))

	require.NoError(t, env.take(t, env.takeAccounts(accounts)))
	testutil.RequireAccountNotFound(t, env.bank, accounts.Vault)
	assert.EqualValues(t, 1000, testutil.GetTokenBalance(t, env.bank, env.takerAtaA))
}

func TestTake(t *testing.T) {
	env := setup(t)
	rent := env.bank.Rent(context.Background())

	made := env.make(t, 7, 1000, 500)
	before := env.balances(t)

	require.NoError(t, env.take(t, env.takeAccounts(made)))

	after := env.balances(t)
	assert.Equal(t, before.makerAtaB+500, after.makerAtaB)
	assert.Equal(t, before.takerAtaA+1000, after.takerAtaA)
	assert.EqualValues(t, 0, after.takerAtaB)
	assert.Equal(t, before.makerAtaA, after.makerAtaA)
	assert.Equal(t, before.maker+rent.MinimumBalance(escrow.EscrowAccountSize)+rent.MinimumBalance(token.AccountSize), after.maker)
	assert.Equal(t, before.taker, after.taker)

	testutil.RequireAccountNotFound(t, env.bank, made.Escrow)
	testutil.RequireAccountNotFound(t, env.bank, made.Vault)
}

func TestTake_Mismatch(t *testing.T) {
	env := setup(t)

	made := env.make(t, 7, 1000, 500)
	otherMint := testutil.CreateMint(t, env.bank, env.authority, env.authority, 9)
	before := env.balances(t)
	record := env.getEscrow(t, made.Escrow)

	for _, tc := range []struct {
		name     string
		modify   func(*escrow.TakeInstructionAccounts)
		expected error
	}{
		{
			name:     "maker",
			modify:   func(a *escrow.TakeInstructionAccounts) { a.Maker = testutil.PublicKey(env.authority) },
			expected: escrow.ErrorMakerMismatch,
		},
		{
			name:     "mint a",
			modify:   func(a *escrow.TakeInstructionAccounts) { a.MintA = otherMint },
			expected: escrow.ErrorMintMismatch,
		},
		{
			name:     "mint b",
			modify:   func(a *escrow.TakeInstructionAccounts) { a.MintB = otherMint },
			expected: escrow.ErrorMintMismatch,
		},
		{
			name:     "escrow",
			modify:   func(a *escrow.TakeInstructionAccounts) { a.Escrow = env.makerAtaA },
			expected: solana.InstructionErrorInvalidAccountData,
		},
		{
			name:     "vault",
			modify:   func(a *escrow.TakeInstructionAccounts) { a.Vault = env.makerAtaA },
			expected: escrow.ErrorInvalidVault,
		},
		{
			name:     "maker ata b held by taker",
			modify:   func(a *escrow.TakeInstructionAccounts) { a.MakerAtaB = env.takerAtaB },
			expected: escrow.ErrorInvalidMakerAccount,
		},
		{
			name:     "maker ata b for mint a",
			modify:   func(a *escrow.TakeInstructionAccounts) { a.MakerAtaB = env.makerAtaA },
			expected: escrow.ErrorInvalidMakerAccount,
		},
		{
			name:     "maker ata b missing",
			modify:   func(a *escrow.TakeInstructionAccounts) { a.MakerAtaB = testutil.GenerateSolanaKeys(t, 1)[0] },
			expected: escrow.ErrorInvalidMakerAccount,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			accounts := env.takeAccounts(made)
			tc.modify(accounts)

			testutil.AssertInstructionError(t, env.take(t, accounts), 0, tc.expected)
		})
	}

	assert.Equal(t, before, env.balances(t))
	assert.Equal(t, record, env.getEscrow(t, made.Escrow))
	assert.EqualValues(t, 1000, testutil.GetTokenBalance(t, env.bank, made.Vault))
}

func TestTake_InsufficientMintB(t *testing.T) {
	env := setup(t)

	made := env.make(t, 7, 1000, 501)
	before := env.balances(t)

	testutil.AssertInstructionError(t, env.take(t, env.takeAccounts(made)), 0, token.ErrorInsufficientFunds)
	assert.Equal(t, before, env.balances(t))
	assert.EqualValues(t, 1000, testutil.GetTokenBalance(t, env.bank, made.Vault))
}

func TestTake_DrainsDonations(t *testing.T) {
	env := setup(t)

	made := env.make(t, 7, 1000, 500)
	testutil.MintTokens(t, env.bank, env.authority, env.mintA, made.Vault, 25)

	require.NoError(t, env.take(t, env.takeAccounts(made)))
	assert.EqualValues(t, 1025, testutil.GetTokenBalance(t, env.bank, env.takerAtaA))
	testutil.RequireAccountNotFound(t, env.bank, made.Vault)
}

func TestRefund(t *testing.T) {
	env := setup(t)
	rent := env.bank.Rent(context.Background())

	start := env.balances(t)
	made := env.make(t, 7, 1000, 500)
	before := env.balances(t)

	require.NoError(t, env.refund(t, env.refundAccounts(made)))

	after := env.balances(t)
	assert.Equal(t, before.makerAtaA+1000, after.makerAtaA)
	assert.Equal(t, start.makerAtaA, after.makerAtaA)
	assert.Equal(t, start.makerAtaB, after.makerAtaB)
	assert.Equal(t, start.takerAtaB, after.takerAtaB)
	assert.Equal(t, before.maker+rent.MinimumBalance(escrow.EscrowAccountSize)+rent.MinimumBalance(token.AccountSize), after.maker)
	assert.Equal(t, start.maker, after.maker)

	testutil.RequireAccountNotFound(t, env.bank, made.Escrow)
	testutil.RequireAccountNotFound(t, env.bank, made.Vault)
}

func TestRefund_Errors(t *testing.T) {
	env := setup(t)

	made := env.make(t, 7, 1000, 500)

	accounts := env.refundAccounts(made)
	accounts.MintA = env.mintB
	testutil.AssertInstructionError(t, env.refund(t, accounts), 0, escrow.ErrorMintMismatch)

	// Only the maker can refund.
	ix := escrow.NewRefundInstruction(env.programID, &escrow.RefundInstructionAccounts{
		Maker:     testutil.PublicKey(env.taker),
		MintA:     env.mintA,
		MakerAtaA: env.takerAtaA,
		Vault:     made.Vault,
		Escrow:    made.Escrow,
	})
	_, err := testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.taker}, ix)
	testutil.AssertInstructionError(t, err, 0, escrow.ErrorMakerMismatch)

	ix = escrow.NewRefundInstruction(env.programID, env.refundAccounts(made))
	ix.Accounts[0].IsSigner = false
	_, err = testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.taker}, ix)
	testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorMissingRequiredSignature)

	ix = escrow.NewRefundInstruction(env.programID, env.refundAccounts(made))
	ix.Accounts = ix.Accounts[:6]
	_, err = testutil.Submit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
	testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorNotEnoughAccountKeys)

	assert.EqualValues(t, 1000, testutil.GetTokenBalance(t, env.bank, made.Vault))
}

func TestTakeRefund_MutuallyExclusive(t *testing.T) {
	t.Run("take first", func(t *testing.T) {
		env := setup(t)
		made := env.make(t, 7, 1000, 250)

		require.NoError(t, env.take(t, env.takeAccounts(made)))
		testutil.AssertInstructionError(t, env.take(t, env.takeAccounts(made)), 0, solana.InstructionErrorInvalidAccountData)
		testutil.AssertInstructionError(t, env.refund(t, env.refundAccounts(made)), 0, solana.InstructionErrorInvalidAccountData)
	})

	t.Run("refund first", func(t *testing.T) {
		env := setup(t)
		made := env.make(t, 7, 1000, 250)

		require.NoError(t, env.refund(t, env.refundAccounts(made)))
		testutil.AssertInstructionError(t, env.refund(t, env.refundAccounts(made)), 0, solana.InstructionErrorInvalidAccountData)
		testutil.AssertInstructionError(t, env.take(t, env.takeAccounts(made)), 0, solana.InstructionErrorInvalidAccountData)

		assert.EqualValues(t, 500, testutil.GetTokenBalance(t, env.bank, env.takerAtaB))
	})

	t.Run("reopen after close", func(t *testing.T) {
		env := setup(t)
		made := env.make(t, 7, 1000, 250)
		require.NoError(t, env.refund(t, env.refundAccounts(made)))

		reopened := env.make(t, 7, 400, 100)
		assert.Equal(t, made.Escrow, reopened.Escrow)
		assert.EqualValues(t, 400, env.getEscrow(t, reopened.Escrow).Amount)
	})
}

func TestProgramLogs(t *testing.T) {
	env := setup(t)

	ix, _ := env.makeInstruction(t, 7, 1000, 500)
	res := testutil.MustSubmit(t, env.bank, []ed25519.PrivateKey{env.maker}, ix)
	assert.Contains(t, res.Logs, "Program log: Instruction: Make")
}
