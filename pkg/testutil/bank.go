package testutil

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/data/account/memory"
	"github.com/code-payments/code-escrow/pkg/runtime"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// DefaultWalletBalance is the balance funded into test wallets.
const DefaultWalletBalance = 10_000_000_000

var blockhashCounter uint64

// NewTestBank returns a bank backed by an in memory account store with
// programs deployed next to the builtins.
func NewTestBank(t *testing.T, programs ...runtime.Program) *runtime.Bank {
	return runtime.NewBank(memory.New(), runtime.WithManualConfigs(runtime.ManualConfigs{}), programs...)
}

// NewFundedWallet generates a wallet holding DefaultWalletBalance lamports.
func NewFundedWallet(t *testing.T, bank *runtime.Bank) ed25519.PrivateKey {
	wallet := GenerateSolanaKeypair(t)
	require.NoError(t, bank.Fund(context.Background(), PublicKey(wallet), DefaultWalletBalance))
	return wallet
}

// NewBlockhash returns a unique blockhash so that otherwise identical
// transactions get distinct signatures.
func NewBlockhash() solana.Blockhash {
	var counter [8]byte
	binary.LittleEndian.PutUint64(counter[:], atomic.AddUint64(&blockhashCounter, 1))
	return sha256.Sum256(counter[:])
}

// Submit builds, signs and submits a transaction paid for by the first signer.
func Submit(t *testing.T, bank *runtime.Bank, signers []ed25519.PrivateKey, instructions ...solana.Instruction) (*runtime.Result, error) {
	require.NotEmpty(t, signers)

	tx := solana.NewTransaction(PublicKey(signers[0]), instructions...)
	tx.SetBlockhash(NewBlockhash())
	require.NoError(t, tx.Sign(signers...))

	return bank.SubmitTransaction(context.Background(), tx)
}

// MustSubmit is Submit, requiring the transaction to be committed.
func MustSubmit(t *testing.T, bank *runtime.Bank, signers []ed25519.PrivateKey, instructions ...solana.Instruction) *runtime.Result {
	res, err := Submit(t, bank, signers, instructions...)
	if err != nil && res != nil {
		t.Logf("logs: %v", res.Logs)
	}
	require.NoError(t, err)
	return res
}

// CreateMint creates and initializes a mint whose authority is authority.
func CreateMint(t *testing.T, bank *runtime.Bank, payer, authority ed25519.PrivateKey, decimals byte) ed25519.PublicKey {
	mint := GenerateSolanaKeypair(t)
	rent := bank.Rent(context.Background())

	MustSubmit(
		t,
		bank,
		[]ed25519.PrivateKey{payer, mint},
		system.CreateAccount(PublicKey(payer), PublicKey(mint), token.ProgramKey, rent.MinimumBalance(token.MintSize), token.MintSize),
		token.InitializeMint2(PublicKey(mint), PublicKey(authority), nil, decimals),
	)
	return PublicKey(mint)
}

// CreateAssociatedTokenAccount creates the associated token account of wallet
// for mint, and returns its address.
func CreateAssociatedTokenAccount(t *testing.T, bank *runtime.Bank, payer ed25519.PrivateKey, wallet, mint ed25519.PublicKey) ed25519.PublicKey {
	ix, address, err := token.CreateAssociatedTokenAccount(PublicKey(payer), wallet, mint)
	require.NoError(t, err)

	MustSubmit(t, bank, []ed25519.PrivateKey{payer}, ix)
	return address
}

// MintTokens mints amount of mint into dest.
func MintTokens(t *testing.T, bank *runtime.Bank, authority ed25519.PrivateKey, mint, dest ed25519.PublicKey, amount uint64) {
	MustSubmit(t, bank, []ed25519.PrivateKey{authority}, token.MintTo(mint, dest, PublicKey(authority), amount))
}

// GetTokenAccount returns the decoded token account at address.
func GetTokenAccount(t *testing.T, bank *runtime.Bank, address ed25519.PublicKey) *token.Account {
	acc, err := bank.GetAccount(context.Background(), address)
	require.NoError(t, err)
	require.True(t, acc.IsOwnedBy(token.ProgramKey))

	var state token.Account
	require.True(t, state.Unmarshal(acc.Data))
	return &state
}

// GetTokenBalance returns the token balance of the account at address.
func GetTokenBalance(t *testing.T, bank *runtime.Bank, address ed25519.PublicKey) uint64 {
	return GetTokenAccount(t, bank, address).Amount
}

// GetLamports returns the balance of the account at address, zero when it
// doesn't exist.
func GetLamports(t *testing.T, bank *runtime.Bank, address ed25519.PublicKey) uint64 {
	acc, err := bank.GetAccount(context.Background(), address)
	if err == runtime.ErrAccountNotFound {
		return 0
	}
	require.NoError(t, err)
	return acc.Lamports
}

// RequireAccountNotFound verifies that no account exists at address.
func RequireAccountNotFound(t *testing.T, bank *runtime.Bank, address ed25519.PublicKey) {
	_, err := bank.GetAccount(context.Background(), address)
	require.Equal(t, runtime.ErrAccountNotFound, err)
}
