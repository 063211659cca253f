package runtime

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/database/query"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

// KeyedAccount is an account returned from a paged query. Cursor continues
// the query after the account.
type KeyedAccount struct {
	*Account

	Cursor query.Cursor
}

// GetAccount returns the committed state of the account at key.
//
// Returns ErrAccountNotFound if the account doesn't exist.
func (b *Bank) GetAccount(ctx context.Context, key ed25519.PublicKey) (*Account, error) {
	encoded := base58.Encode(key)
	if _, ok := b.programs[encoded]; ok {
		return newProgramAccount(key), nil
	}

	record, err := b.accounts.Get(ctx, encoded)
	if err != nil {
		return nil, err
	}
	return fromRecord(record)
}

// GetProgramAccounts returns a page of the accounts owned by program. Accepts
// the query.WithLimit, query.WithCursor and query.WithDirection options.
//
// Returns ErrAccountNotFound if no accounts are found.
func (b *Bank) GetProgramAccounts(ctx context.Context, program ed25519.PublicKey, opts ...query.Option) ([]*KeyedAccount, error) {
	req, err := query.NewRequest(opts...)
	if err != nil {
		return nil, err
	}

	records, err := b.accounts.GetAllByOwner(ctx, base58.Encode(program), req.Cursor, req.Limit, req.Direction)
	if err != nil {
		return nil, err
	}

	res := make([]*KeyedAccount, len(records))
	for i, record := range records {
		acc, err := fromRecord(record)
		if err != nil {
			return nil, err
		}

		res[i] = &KeyedAccount{
			Account: acc,
			Cursor:  query.ToCursor(record.Id),
		}
	}
	return res, nil
}

// Fund credits lamports to a system account out of thin air, creating it if
// needed. It is the genesis mechanism for wallets and fee payers.
func (b *Bank) Fund(ctx context.Context, key ed25519.PublicKey, lamports uint64) error {
	encoded := base58.Encode(key)
	if _, ok := b.programs[encoded]; ok {
		return errors.New("cannot fund a program account")
	}

	writable := []string{encoded}
	if !b.locks.tryLock(writable, nil) {
		return solana.NewTransactionError(solana.TransactionErrorAccountInUse)
	}
	defer b.locks.unlock(writable, nil)

	acc, err := b.GetAccount(ctx, key)
	if err == ErrAccountNotFound {
		acc = newEmptyAccount(key)
	} else if err != nil {
		return err
	}

	if !acc.IsOwnedBy(system.ProgramKey) {
		return errors.Errorf("%s is not a system account", encoded)
	}
	if err := acc.AddLamports(lamports); err != nil {
		return err
	}

	return b.accounts.Save(ctx, acc.toRecord(b.Slot()))
}
