package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"hash"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/pkg/errors"
)

const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

var (
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

	// ErrInvalidPublicKey is returned when a derived address lies on the
	// curve, so a private key could exist for it.
	ErrInvalidPublicKey = errors.New("invalid public key")

	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")
)

var (
	newAddressHash = func() hash.Hash { return sha256.New() }

	pdaMarker = []byte("ProgramDerivedAddress")
)

// CreateProgramAddress derives sha256(seeds || program || marker) and
// rejects results that are valid curve points.
func CreateProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return nil, ErrTooManySeeds
	}

	h := newAddressHash()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return nil, ErrMaxSeedLengthExceeded
		}
		h.Write(seed)
	}
	h.Write(program)
	h.Write(pdaMarker)

	address := ed25519.PublicKey(h.Sum(nil))
	if IsOnCurve(address) {
		return nil, ErrInvalidPublicKey
	}
	return address, nil
}

// FindProgramAddressAndBump appends a one byte bump seed, trying 255 down to
// 1, and returns the first off-curve address. That bump is the canonical one.
func FindProgramAddressAndBump(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	bumped := append(append([][]byte{}, seeds...), nil)

	for bump := uint8(255); bump > 0; bump-- {
		bumped[len(seeds)] = []byte{bump}

		address, err := CreateProgramAddress(program, bumped...)
		if errors.Is(err, ErrInvalidPublicKey) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		return address, bump, nil
	}
	return nil, 0, ErrNoViableBump
}

func FindProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	address, _, err := FindProgramAddressAndBump(program, seeds...)
	return address, err
}

// IsOnCurve reports whether key decompresses to an ed25519 point.
func IsOnCurve(key ed25519.PublicKey) bool {
	if len(key) != ed25519.PublicKeySize {
		return false
	}

	var encoded [ed25519.PublicKeySize]byte
	copy(encoded[:], key)

	var point edwards25519.ExtendedGroupElement
	return point.FromBytes(&encoded)
}
