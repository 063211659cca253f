package token

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// Serialized sizes of the SPL token state.
const (
	AccountSize = 165
	MintSize    = 82
)

// Account is a token account. Optional keys are nil when unset.
type Account struct {
	Mint   ed25519.PublicKey
	Owner  ed25519.PublicKey
	Amount uint64

	Delegate        ed25519.PublicKey
	State           AccountState
	IsNative        *uint64 // rent exempt reserve of wrapped SOL accounts
	DelegatedAmount uint64
	CloseAuthority  ed25519.PublicKey
}

func (a *Account) Marshal() []byte {
	return binary.NewWriter(AccountSize).
		Key(a.Mint).
		Key(a.Owner).
		Uint64(a.Amount).
		OptionalKey(a.Delegate).
		Uint8(byte(a.State)).
		OptionalUint64(a.IsNative).
		Uint64(a.DelegatedAmount).
		OptionalKey(a.CloseAuthority).
		Bytes()
}

// Unmarshal reports false if b is not AccountSize bytes.
func (a *Account) Unmarshal(b []byte) bool {
	if len(b) != AccountSize {
		return false
	}

	r := binary.NewReader(b)
	a.Mint = r.Key()
	a.Owner = r.Key()
	a.Amount = r.Uint64()
	a.Delegate = r.OptionalKey()
	a.State = AccountState(r.Uint8())
	a.IsNative = r.OptionalUint64()
	a.DelegatedAmount = r.Uint64()
	a.CloseAuthority = r.OptionalKey()
	return true
}

// IsInitializedAccount reports whether b holds an initialized, possibly
// frozen, token account.
func IsInitializedAccount(b []byte) bool {
	var a Account
	return a.Unmarshal(b) && a.State != AccountStateUninitialized
}

// Mint is a token mint. A nil MintAuthority fixes the supply.
type Mint struct {
	MintAuthority   ed25519.PublicKey
	Supply          uint64
	Decimals        byte
	IsInitialized   bool
	FreezeAuthority ed25519.PublicKey
}

func (m *Mint) Marshal() []byte {
	return binary.NewWriter(MintSize).
		OptionalKey(m.MintAuthority).
		Uint64(m.Supply).
		Uint8(m.Decimals).
		Bool(m.IsInitialized).
		OptionalKey(m.FreezeAuthority).
		Bytes()
}

func (m *Mint) Unmarshal(b []byte) bool {
	if len(b) != MintSize {
		return false
	}

	r := binary.NewReader(b)
	m.MintAuthority = r.OptionalKey()
	m.Supply = r.Uint64()
	m.Decimals = r.Uint8()
	m.IsInitialized = r.Bool()
	m.FreezeAuthority = r.OptionalKey()
	return true
}
