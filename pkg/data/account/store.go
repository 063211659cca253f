package account

import (
	"context"

	"github.com/code-payments/code-escrow/pkg/database/query"
)

type Store interface {
	// Count returns the total count of live accounts.
	Count(ctx context.Context) (uint64, error)

	// Save atomically writes a batch of records. Records with a zero balance
	// are deleted instead of written. Either every record in the batch is
	// applied or none are.
	Save(ctx context.Context, records ...*Record) error

	// Get finds the record for a given address.
	//
	// Returns ErrAccountNotFound if the account doesn't exist.
	Get(ctx context.Context, address string) (*Record, error)

	// GetMany returns the records that exist for the provided addresses, keyed
	// by address. Missing accounts are omitted from the result.
	GetMany(ctx context.Context, addresses ...string) (map[string]*Record, error)

	// GetAllByOwner returns a page of accounts owned by a program.
	//
	// Returns ErrAccountNotFound if no records are found.
	GetAllByOwner(ctx context.Context, owner string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)
}
