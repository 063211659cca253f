package runtime_test

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/data/account/memory"
	"github.com/code-payments/code-escrow/pkg/runtime"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/testutil"
)

func TestBank_TransferCommitted(t *testing.T) {
	bank := testutil.NewTestBank(t)

	sender := testutil.NewFundedWallet(t, bank)
	receiver := testutil.GenerateSolanaKeys(t, 1)[0]

	res := testutil.MustSubmit(t, bank, []ed25519.PrivateKey{sender}, system.Transfer(testutil.PublicKey(sender), receiver, 1000))
	assert.NotEmpty(t, res.Signature)
	assert.Nil(t, res.Err)
	assert.EqualValues(t, 1, res.Slot)
	assert.EqualValues(t, 1, bank.Slot())

	name := base58.Encode(system.ProgramKey)
	assert.Equal(t, []string{
		fmt.Sprintf("Program %s invoke [1]", name),
		fmt.Sprintf("Program %s success", name),
	}, res.Logs)

	assert.EqualValues(t, testutil.DefaultWalletBalance-1000, testutil.GetLamports(t, bank, testutil.PublicKey(sender)))
	assert.EqualValues(t, 1000, testutil.GetLamports(t, bank, receiver))

	acc, err := bank.GetAccount(context.Background(), receiver)
	require.NoError(t, err)
	assert.True(t, acc.IsOwnedBy(system.ProgramKey))
	assert.Empty(t, acc.Data)
}

func TestBank_Atomicity(t *testing.T) {
	bank := testutil.NewTestBank(t)

	sender := testutil.NewFundedWallet(t, bank)
	receiver := testutil.GenerateSolanaKeys(t, 1)[0]

	res, err := testutil.Submit(
		t,
		bank,
		[]ed25519.PrivateKey{sender},
		system.Transfer(testutil.PublicKey(sender), receiver, 1000),
		system.Transfer(testutil.PublicKey(sender), receiver, testutil.DefaultWalletBalance),
	)
	testutil.AssertInstructionError(t, err, 1, system.ErrorResultWithNegativeLamports)
	require.NotNil(t, res)
	assert.Equal(t, err, res.Err)
	assert.NotEmpty(t, res.Logs)

	assert.EqualValues(t, testutil.DefaultWalletBalance, testutil.GetLamports(t, bank, testutil.PublicKey(sender)))
	testutil.RequireAccountNotFound(t, bank, receiver)
	assert.EqualValues(t, 0, bank.Slot())
}

func TestBank_SignatureChecks(t *testing.T) {
	bank := testutil.NewTestBank(t)

	sender := testutil.NewFundedWallet(t, bank)
	receiver := testutil.GenerateSolanaKeys(t, 1)[0]

	tx := solana.NewTransaction(testutil.PublicKey(sender), system.Transfer(testutil.PublicKey(sender), receiver, 10))
	tx.SetBlockhash(testutil.NewBlockhash())
	require.NoError(t, tx.Sign(sender))

	_, err := bank.SubmitTransaction(context.Background(), tx)
	require.NoError(t, err)

	_, err = bank.SubmitTransaction(context.Background(), tx)
	testutil.AssertTransactionError(t, err, solana.TransactionErrorDuplicateSignature)

	tampered := solana.NewTransaction(testutil.PublicKey(sender), system.Transfer(testutil.PublicKey(sender), receiver, 10))
	tampered.SetBlockhash(testutil.NewBlockhash())
	require.NoError(t, tampered.Sign(sender))
	tampered.SetBlockhash(testutil.NewBlockhash())

	_, err = bank.SubmitTransaction(context.Background(), tampered)
	testutil.AssertTransactionError(t, err, solana.TransactionErrorSignatureFailure)

	unsigned := solana.NewTransaction(testutil.PublicKey(sender), system.Transfer(testutil.PublicKey(sender), receiver, 10))
	_, err = bank.SubmitTransaction(context.Background(), unsigned)
	testutil.AssertTransactionError(t, err, solana.TransactionErrorSignatureFailure)

	assert.EqualValues(t, 10, testutil.GetLamports(t, bank, receiver))
}

func TestBank_ConcurrentDuplicates(t *testing.T) {
	bank := testutil.NewTestBank(t)

	sender := testutil.NewFundedWallet(t, bank)
	receiver := testutil.GenerateSolanaKeys(t, 1)[0]

	tx := solana.NewTransaction(testutil.PublicKey(sender), system.Transfer(testutil.PublicKey(sender), receiver, 10))
	tx.SetBlockhash(testutil.NewBlockhash())
	require.NoError(t, tx.Sign(sender))

	const submitters = 32

	var wg sync.WaitGroup
	results := make(chan error, submitters)
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := bank.SubmitTransaction(context.Background(), tx)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var committed int
	for err := range results {
		if err == nil {
			committed++
			continue
		}

		var txErr *solana.TransactionError
		require.True(t, errors.As(err, &txErr))
		assert.Contains(t, []solana.TransactionErrorKey{
			solana.TransactionErrorAccountInUse,
			solana.TransactionErrorDuplicateSignature,
		}, txErr.ErrorKey())
	}
	assert.Equal(t, 1, committed)

	_, err := bank.SubmitTransaction(context.Background(), tx)
	testutil.AssertTransactionError(t, err, solana.TransactionErrorDuplicateSignature)

	assert.EqualValues(t, 10, testutil.GetLamports(t, bank, receiver))
	assert.EqualValues(t, testutil.DefaultWalletBalance-10, testutil.GetLamports(t, bank, testutil.PublicKey(sender)))
	assert.EqualValues(t, 1, bank.Slot())
}

func TestBank_SkipSignatureChecks(t *testing.T) {
	bank := runtime.NewBank(memory.New(), runtime.WithManualConfigs(runtime.ManualConfigs{
		SkipSignatureChecks: true,
	}))

	sender := testutil.NewFundedWallet(t, bank)
	receiver := testutil.GenerateSolanaKeys(t, 1)[0]

	for i := 0; i < 2; i++ {
		tx := solana.NewTransaction(testutil.PublicKey(sender), system.Transfer(testutil.PublicKey(sender), receiver, 10))
		_, err := bank.SubmitTransaction(context.Background(), tx)
		require.NoError(t, err)
	}

	assert.EqualValues(t, 20, testutil.GetLamports(t, bank, receiver))
}

func TestBank_Sanitize(t *testing.T) {
	bank := testutil.NewTestBank(t)

	sender := testutil.NewFundedWallet(t, bank)
	receivers := testutil.GenerateSolanaKeys(t, 2)

	tx := solana.NewTransaction(testutil.PublicKey(sender), system.Transfer(testutil.PublicKey(sender), receivers[0], 10))
	tx.Signatures = nil
	_, err := bank.SubmitTransaction(context.Background(), tx)
	testutil.AssertTransactionError(t, err, solana.TransactionErrorSanitizeFailure)

	tx = solana.NewTransaction(
		testutil.PublicKey(sender),
		system.Transfer(testutil.PublicKey(sender), receivers[0], 10),
		system.Transfer(testutil.PublicKey(sender), receivers[1], 10),
	)
	tx.Message.Accounts[2] = tx.Message.Accounts[1]
	require.NoError(t, tx.Sign(sender))
	_, err = bank.SubmitTransaction(context.Background(), tx)
	testutil.AssertTransactionError(t, err, solana.TransactionErrorAccountLoadedTwice)

	tx = solana.NewTransaction(testutil.PublicKey(sender), system.Transfer(testutil.PublicKey(sender), receivers[0], 10))
	tx.Message.Instructions[0].Accounts[1] = byte(len(tx.Message.Accounts))
	require.NoError(t, tx.Sign(sender))
	_, err = bank.SubmitTransaction(context.Background(), tx)
	testutil.AssertTransactionError(t, err, solana.TransactionErrorInvalidAccountIndex)

	testutil.RequireAccountNotFound(t, bank, receivers[0])
	testutil.RequireAccountNotFound(t, bank, receivers[1])
}

func TestBank_UnknownProgram(t *testing.T) {
	bank := testutil.NewTestBank(t)

	payer := testutil.NewFundedWallet(t, bank)
	unknown := testutil.GenerateSolanaKeys(t, 1)[0]

	_, err := testutil.Submit(t, bank, []ed25519.PrivateKey{payer}, solana.NewInstruction(unknown, []byte{0}))
	testutil.AssertTransactionError(t, err, solana.TransactionErrorInvalidProgramForExecution)
}

func TestBank_AccountInUse(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	blocker := runtime.NewNativeProgram(testutil.GenerateSolanaKeys(t, 1)[0], func(ctx *runtime.InvokeContext, data []byte) error {
		close(started)
		<-release
		return nil
	})
	bank := testutil.NewTestBank(t, blocker)

	wallet := testutil.NewFundedWallet(t, bank)
	other := testutil.NewFundedWallet(t, bank)
	receiver := testutil.GenerateSolanaKeys(t, 1)[0]

	done := make(chan error, 1)
	go func() {
		tx := solana.NewTransaction(testutil.PublicKey(wallet), solana.NewInstruction(blocker.ID(), nil, solana.NewAccountMeta(testutil.PublicKey(wallet), true)))
		tx.SetBlockhash(testutil.NewBlockhash())
		if err := tx.Sign(wallet); err != nil {
			done <- err
			return
		}

		_, err := bank.SubmitTransaction(context.Background(), tx)
		done <- err
	}()
	<-started

	_, err := testutil.Submit(t, bank, []ed25519.PrivateKey{wallet}, system.Transfer(testutil.PublicKey(wallet), receiver, 10))
	testutil.AssertTransactionError(t, err, solana.TransactionErrorAccountInUse)

	_, err = testutil.Submit(t, bank, []ed25519.PrivateKey{other}, system.Transfer(testutil.PublicKey(other), testutil.PublicKey(wallet), 10))
	testutil.AssertTransactionError(t, err, solana.TransactionErrorAccountInUse)

	// Accounts that aren't locked remain available.
	testutil.MustSubmit(t, bank, []ed25519.PrivateKey{other}, system.Transfer(testutil.PublicKey(other), receiver, 10))

	close(release)
	require.NoError(t, <-done)

	testutil.MustSubmit(t, bank, []ed25519.PrivateKey{wallet}, system.Transfer(testutil.PublicKey(wallet), receiver, 10))
	assert.EqualValues(t, 20, testutil.GetLamports(t, bank, receiver))
}
