package runtime

import (
	"bytes"
	"crypto/ed25519"
	"math"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/data/account"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

// NativeLoaderKey owns every builtin program account.
//
// Current key: NativeLoader1111111111111111111111111111111
var NativeLoaderKey = mustDecodeKey("NativeLoader1111111111111111111111111111111")

// Account is the state of an account loaded for a transaction. Every
// instruction that references the same address shares the same *Account.
type Account struct {
	Key        ed25519.PublicKey
	Owner      ed25519.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
}

// AccountInfo is an account as seen by a single invocation, together with
// the privileges the invocation was granted on it.
type AccountInfo struct {
	*Account

	IsSigner   bool
	IsWritable bool
}

func newEmptyAccount(key ed25519.PublicKey) *Account {
	return &Account{
		Key:   key,
		Owner: system.ProgramKey,
	}
}

func newProgramAccount(key ed25519.PublicKey) *Account {
	return &Account{
		Key:        key,
		Owner:      NativeLoaderKey,
		Lamports:   1,
		Executable: true,
	}
}

func fromRecord(record *account.Record) (*Account, error) {
	key, err := record.GetAddress()
	if err != nil {
		return nil, errors.Wrap(err, "invalid account address")
	}
	owner, err := record.GetOwner()
	if err != nil {
		return nil, errors.Wrap(err, "invalid account owner")
	}

	return &Account{
		Key:        key,
		Owner:      owner,
		Lamports:   record.Lamports,
		Data:       record.Data,
		Executable: record.Executable,
	}, nil
}

func (a *Account) toRecord(slot uint64) *account.Record {
	return &account.Record{
		Address:    base58.Encode(a.Key),
		Owner:      base58.Encode(a.Owner),
		Lamports:   a.Lamports,
		Data:       a.Data,
		Executable: a.Executable,
		Slot:       slot,
	}
}

// IsOwnedBy reports whether program owns the account.
func (a *Account) IsOwnedBy(program ed25519.PublicKey) bool {
	return bytes.Equal(a.Owner, program)
}

// Is reports whether the account lives at key.
func (a *Account) Is(key ed25519.PublicKey) bool {
	return bytes.Equal(a.Key, key)
}

// IsEmpty reports whether the account holds nothing and belongs to the system
// program, ie. it can be created.
func (a *Account) IsEmpty() bool {
	return a.Lamports == 0 && len(a.Data) == 0 && a.IsOwnedBy(system.ProgramKey)
}

// AddLamports credits the account, failing with ArithmeticOverflow instead of
// wrapping.
func (a *Account) AddLamports(amount uint64) error {
	if a.Lamports > math.MaxUint64-amount {
		return solana.InstructionErrorArithmeticOverflow
	}
	a.Lamports += amount
	return nil
}

// SubLamports debits the account, failing with InsufficientFunds.
func (a *Account) SubLamports(amount uint64) error {
	if a.Lamports < amount {
		return solana.InstructionErrorInsufficientFunds
	}
	a.Lamports -= amount
	return nil
}

// Close moves the entire balance to dest and hands the emptied account back to
// the system program. The bank reclaims it at commit.
func (a *Account) Close(dest *Account) error {
	if a == dest {
		return solana.InstructionErrorInvalidArgument
	}
	if err := dest.AddLamports(a.Lamports); err != nil {
		return err
	}
	a.Lamports = 0
	a.Data = nil
	a.Owner = system.ProgramKey
	return nil
}

func (a *Account) String() string {
	return base58.Encode(a.Key)
}

func mustDecodeKey(s string) ed25519.PublicKey {
	key, err := base58.Decode(s)
	if err != nil || len(key) != ed25519.PublicKeySize {
		panic("invalid key: " + s)
	}
	return key
}
