package escrow

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/code-payments/code-escrow/pkg/runtime"
	"github.com/code-payments/code-escrow/pkg/solana"
)

var (
	escrowPrefix = []byte("escrow")
	vaultPrefix  = []byte("vault")
)

// escrowSeeds is the single source of the escrow seed order, shared by the
// creation and the settlement paths.
func escrowSeeds(maker ed25519.PublicKey, seed uint64) [][]byte {
	encoded := make([]byte, 8)
	binary.LittleEndian.PutUint64(encoded, seed)
	return [][]byte{escrowPrefix, maker, encoded}
}

func vaultSeeds(escrow ed25519.PublicKey) [][]byte {
	return [][]byte{vaultPrefix, escrow}
}

// GetEscrowAddress returns the escrow address of maker for seed, and its
// canonical bump.
func GetEscrowAddress(program, maker ed25519.PublicKey, seed uint64) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(program, escrowSeeds(maker, seed)...)
}

// CreateEscrowAddress derives the escrow address of maker for seed using the
// provided bump.
func CreateEscrowAddress(program, maker ed25519.PublicKey, seed uint64, bump uint8) (ed25519.PublicKey, error) {
	return solana.CreateProgramAddress(program, withBump(escrowSeeds(maker, seed), bump)...)
}

// GetVaultAddress returns the address of the vault Make creates for escrow.
func GetVaultAddress(program, escrow ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(program, vaultSeeds(escrow)...)
}

// signer lets the program sign for one derived address during a single
// instruction. It never leaves the handler that derived it.
type signer struct {
	address ed25519.PublicKey
	seeds   runtime.SignerSeeds
}

func newSigner(program ed25519.PublicKey, seeds [][]byte, bump uint8) (*signer, error) {
	seeds = withBump(seeds, bump)

	address, err := solana.CreateProgramAddress(program, seeds...)
	if err != nil {
		return nil, err
	}

	return &signer{
		address: address,
		seeds:   seeds,
	}, nil
}

// findSigner is newSigner with the canonical bump.
func findSigner(program ed25519.PublicKey, seeds [][]byte) (*signer, error) {
	_, bump, err := solana.FindProgramAddressAndBump(program, seeds...)
	if err != nil {
		return nil, err
	}
	return newSigner(program, seeds, bump)
}

func withBump(seeds [][]byte, bump uint8) [][]byte {
	res := make([][]byte, len(seeds), len(seeds)+1)
	copy(res, seeds)
	return append(res, []byte{bump})
}
