package escrow

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/binary"
)

const EscrowAccountSize = (32 + // maker
	32 + // mint_a
	32 + // mint_b
	8 + // amount
	8 + // receive
	8 + // seed
	1) // bump

// EscrowAccount holds the terms of one open swap. The layout is fixed and
// carries no version tag.
type EscrowAccount struct {
	Maker   ed25519.PublicKey
	MintA   ed25519.PublicKey
	MintB   ed25519.PublicKey
	Amount  uint64
	Receive uint64
	Seed    uint64
	Bump    uint8
}

func (obj *EscrowAccount) Marshal() []byte {
	return binary.NewWriter(EscrowAccountSize).
		Key(obj.Maker).
		Key(obj.MintA).
		Key(obj.MintB).
		Uint64(obj.Amount).
		Uint64(obj.Receive).
		Uint64(obj.Seed).
		Uint8(obj.Bump).
		Bytes()
}

// Unmarshal decodes an escrow account, failing with InvalidAccountData unless
// data is exactly EscrowAccountSize bytes.
func (obj *EscrowAccount) Unmarshal(data []byte) error {
	if len(data) != EscrowAccountSize {
		return errors.Wrapf(solana.InstructionErrorInvalidAccountData, "invalid escrow account size: %d", len(data))
	}

	r := binary.NewReader(data)
	obj.Maker = r.Key()
	obj.MintA = r.Key()
	obj.MintB = r.Key()
	obj.Amount = r.Uint64()
	obj.Receive = r.Uint64()
	obj.Seed = r.Uint64()
	obj.Bump = r.Uint8()

	return nil
}

func (obj *EscrowAccount) String() string {
	return fmt.Sprintf(
		"EscrowAccount{maker=%s,mint_a=%s,mint_b=%s,amount=%d,receive=%d,seed=%d,bump=%d}",
		base58.Encode(obj.Maker),
		base58.Encode(obj.MintA),
		base58.Encode(obj.MintB),
		obj.Amount,
		obj.Receive,
		obj.Seed,
		obj.Bump,
	)
}
