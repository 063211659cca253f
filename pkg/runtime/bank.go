package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/cache"
	"github.com/code-payments/code-escrow/pkg/data/account"
	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/solana"
)

const (
	metricsStructName = "runtime.bank"

	transactionEventName       = "TransactionProcessed"
	transactionCountMetricName = "Runtime/transactions"
	transactionTimeMetricName  = "Runtime/transaction_duration"
)

var (
	ErrAccountNotFound = account.ErrAccountNotFound
)

// Result is the outcome of a processed transaction.
type Result struct {
	Signature string
	Slot      uint64
	Logs      []string

	// Err is set when the transaction was rejected. None of its effects were
	// committed.
	Err *solana.TransactionError
}

// Bank executes transactions against accounts persisted in an account.Store.
// Transactions are atomic: every modified account is committed in a single
// batch, or nothing is.
type Bank struct {
	log  *logrus.Entry
	conf *conf

	accounts account.Store
	programs map[string]Program

	locks      *accountLocks
	signatures cache.Cache[uint64]
	slot       uint64
}

// NewBank returns a bank with the builtin system, token, associated token
// account and memo programs deployed, in addition to programs.
func NewBank(accounts account.Store, configProvider ConfigProvider, programs ...Program) *Bank {
	conf := configProvider()

	b := &Bank{
		log:        logrus.StandardLogger().WithField("type", "runtime/bank"),
		conf:       conf,
		accounts:   accounts,
		programs:   make(map[string]Program),
		locks:      newAccountLocks(),
		signatures: cache.NewCache[uint64](int(conf.signatureCacheSize.Get(context.Background()))),
	}

	for _, p := range append(builtinPrograms(), programs...) {
		b.programs[base58.Encode(p.ID())] = p
	}

	return b
}

// Slot returns the slot of the last committed transaction.
func (b *Bank) Slot() uint64 {
	return atomic.LoadUint64(&b.slot)
}

// Rent returns the current rent parameters.
func (b *Bank) Rent(ctx context.Context) Rent {
	return Rent{
		LamportsPerByteYear:     b.conf.lamportsPerByteYear.Get(ctx),
		ExemptionThresholdYears: b.conf.exemptionThresholdYears.Get(ctx),
	}
}

// SubmitTransaction processes tx. When the transaction is rejected the
// returned error is the *solana.TransactionError, and the result still
// carries the program logs. Other errors are infrastructure failures.
func (b *Bank) SubmitTransaction(ctx context.Context, tx solana.Transaction) (*Result, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SubmitTransaction")
	defer tracer.End()

	log := b.log.WithFields(logrus.Fields{
		"method":    "SubmitTransaction",
		"signature": tx.SignatureString(),
	})

	start := time.Now()
	res, err := b.submit(ctx, log, &tx)
	duration := time.Since(start)

	outcome := "success"
	switch {
	case err != nil:
		outcome = "internal_error"
		tracer.OnError(err)
		log.WithError(err).Warn("failure processing transaction")
	case res.Err != nil:
		outcome = "rejected"
		log.WithError(res.Err).Debug("transaction rejected")
	default:
		log.WithField("slot", res.Slot).Debug("transaction committed")
	}

	tracer.AddAttribute("outcome", outcome)
	metrics.RecordCount(ctx, transactionCountMetricName+"/"+outcome, 1)
	metrics.RecordDuration(ctx, transactionTimeMetricName, duration)

	if err != nil {
		return nil, err
	}

	event := map[string]interface{}{
		"signature": res.Signature,
		"outcome":   outcome,
		"duration":  duration.Milliseconds(),
	}
	if res.Err != nil {
		if encoded, err := json.Marshal(res.Err); err == nil {
			event["error"] = string(encoded)
		}
	}
	metrics.RecordEvent(ctx, transactionEventName, event)

	if res.Err != nil {
		return res, res.Err
	}
	return res, nil
}

func (b *Bank) submit(ctx context.Context, log *logrus.Entry, tx *solana.Transaction) (*Result, error) {
	res := &Result{
		Signature: tx.SignatureString(),
	}

	reject := func(key solana.TransactionErrorKey) (*Result, error) {
		res.Err = solana.NewTransactionError(key)
		return res, nil
	}

	if err := sanitize(tx); err != nil {
		res.Err = err
		return res, nil
	}

	verifySignatures := b.conf.verifySignatures.Get(ctx)
	if verifySignatures {
		if err := tx.VerifySignatures(); err != nil {
			return reject(solana.TransactionErrorSignatureFailure)
		}
	}

	msg := &tx.Message

	keys := make([]string, len(msg.Accounts))
	var writableKeys, readonlyKeys []string
	for i, key := range msg.Accounts {
		keys[i] = base58.Encode(key)
		if msg.IsWritable(i) {
			writableKeys = append(writableKeys, keys[i])
		} else {
			readonlyKeys = append(readonlyKeys, keys[i])
		}
	}

	if !b.locks.tryLock(writableKeys, readonlyKeys) {
		return reject(solana.TransactionErrorAccountInUse)
	}
	defer b.locks.unlock(writableKeys, readonlyKeys)

	// The fee payer is always writable, so copies of a transaction are
	// serialized by its lock and a signature is cached before it's released.
	// Without signature checks signatures aren't unique, so duplicates can
	// only be detected with verification enabled.
	if verifySignatures && b.signatures.Contains(res.Signature) {
		return reject(solana.TransactionErrorDuplicateSignature)
	}

	loaded, snapshots, err := b.load(ctx, msg.Accounts, keys)
	if err != nil {
		return nil, err
	}

	exec := &executor{
		ctx:      ctx,
		log:      log,
		programs: b.programs,
		rent:     b.Rent(ctx),
		maxDepth: int(b.conf.maxInvokeDepth.Get(ctx)),
	}

	for i, compiled := range msg.Instructions {
		programID := msg.Accounts[compiled.ProgramIndex]
		if _, ok := b.programs[keys[compiled.ProgramIndex]]; !ok {
			res.Logs = exec.logs
			return reject(solana.TransactionErrorInvalidProgramForExecution)
		}

		infos := make([]*AccountInfo, len(compiled.Accounts))
		for j, index := range compiled.Accounts {
			acc := loaded[index]
			infos[j] = &AccountInfo{
				Account:    acc,
				IsSigner:   msg.IsSigner(int(index)),
				IsWritable: msg.IsWritable(int(index)) && !acc.Executable,
			}
		}

		if err := exec.process(programID, infos, compiled.Data, nil); err != nil {
			res.Logs = exec.logs

			res.Err = solana.NewInstructionTransactionError(solana.NewInstructionError(i, err))
			return res, nil
		}
	}
	res.Logs = exec.logs

	slot := atomic.AddUint64(&b.slot, 1)

	var dirty []*account.Record
	for i, acc := range loaded {
		if !msg.IsWritable(i) || acc.Executable {
			continue
		}
		if !isModified(acc, snapshots[i]) {
			continue
		}
		dirty = append(dirty, acc.toRecord(slot))
	}

	if len(dirty) > 0 {
		if err := b.accounts.Save(ctx, dirty...); err != nil {
			return nil, errors.Wrap(err, "error committing accounts")
		}
	}

	res.Slot = slot
	if verifySignatures {
		if err := b.signatures.Insert(res.Signature, slot, 1); err != nil {
			log.WithError(err).Warn("failure caching signature")
		}
	}

	return res, nil
}

func (b *Bank) load(ctx context.Context, addresses []ed25519.PublicKey, keys []string) ([]*Account, []accountSnapshot, error) {
	records, err := b.accounts.GetMany(ctx, keys...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error loading accounts")
	}

	loaded := make([]*Account, len(keys))
	snapshots := make([]accountSnapshot, len(keys))
	for i, key := range keys {
		if _, ok := b.programs[key]; ok {
			loaded[i] = newProgramAccount(addresses[i])
		} else if record, ok := records[key]; ok {
			if loaded[i], err = fromRecord(record); err != nil {
				return nil, nil, err
			}
		} else {
			loaded[i] = newEmptyAccount(addresses[i])
		}

		snapshots[i] = snapshotOf(loaded[i])
	}

	return loaded, snapshots, nil
}

func isModified(acc *Account, pre accountSnapshot) bool {
	return acc.Lamports != pre.lamports ||
		acc.Executable != pre.executable ||
		!bytes.Equal(acc.Owner, pre.owner) ||
		!bytes.Equal(acc.Data, pre.data)
}

// sanitize rejects structurally invalid transactions before any account is
// locked.
func sanitize(tx *solana.Transaction) *solana.TransactionError {
	msg := &tx.Message
	header := msg.Header

	if header.NumSignatures == 0 || len(tx.Signatures) != int(header.NumSignatures) {
		return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
	}
	if int(header.NumSignatures)+int(header.NumReadOnly) > len(msg.Accounts) || header.NumReadonlySigned >= header.NumSignatures {
		return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
	}

	for i := range msg.Accounts {
		if len(msg.Accounts[i]) != ed25519.PublicKeySize {
			return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
		}
		for j := 0; j < i; j++ {
			if bytes.Equal(msg.Accounts[i], msg.Accounts[j]) {
				return solana.NewTransactionError(solana.TransactionErrorAccountLoadedTwice)
			}
		}
	}

	for _, compiled := range msg.Instructions {
		if int(compiled.ProgramIndex) >= len(msg.Accounts) || compiled.ProgramIndex == 0 {
			return solana.NewTransactionError(solana.TransactionErrorInvalidAccountIndex)
		}
		for _, index := range compiled.Accounts {
			if int(index) >= len(msg.Accounts) {
				return solana.NewTransactionError(solana.TransactionErrorInvalidAccountIndex)
			}
		}
	}

	return nil
}
