package testutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// GenerateSolanaKeypair returns a new random signer.
func GenerateSolanaKeypair(t *testing.T) ed25519.PrivateKey {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return priv
}

// GenerateSolanaKeys returns n random addresses with no known signer.
func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	var keys []ed25519.PublicKey
	for len(keys) < n {
		keys = append(keys, PublicKey(GenerateSolanaKeypair(t)))
	}
	return keys
}

func PublicKey(signer ed25519.PrivateKey) ed25519.PublicKey {
	return signer.Public().(ed25519.PublicKey)
}
