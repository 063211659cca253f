package escrow

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana"
)

func TestEscrowAccount_RoundTrip(t *testing.T) {
	record := &EscrowAccount{
		Maker:   randomKey(t),
		MintA:   randomKey(t),
		MintB:   randomKey(t),
		Amount:  1000,
		Receive: 500,
		Seed:    7,
		Bump:    253,
	}

	data := record.Marshal()
	require.Len(t, data, 121)
	assert.EqualValues(t, record.Maker, data[0:32])
	assert.EqualValues(t, record.MintA, data[32:64])
	assert.EqualValues(t, record.MintB, data[64:96])
	assert.Equal(t, []byte{0xe8, 0x03, 0, 0, 0, 0, 0, 0}, data[96:104])
	assert.Equal(t, []byte{0xf4, 0x01, 0, 0, 0, 0, 0, 0}, data[104:112])
	assert.Equal(t, []byte{7, 0, 0, 0, 0, 0, 0, 0}, data[112:120])
	assert.EqualValues(t, 253, data[120])

	var decoded EscrowAccount
	require.NoError(t, decoded.Unmarshal(data))
	assert.Equal(t, record, &decoded)
	assert.Equal(t, data, decoded.Marshal())
}

func TestEscrowAccount_InvalidSize(t *testing.T) {
	for _, size := range []int{0, 1, EscrowAccountSize - 1, EscrowAccountSize + 1, 165} {
		var decoded EscrowAccount
		err := decoded.Unmarshal(make([]byte, size))
		assert.True(t, errors.Is(err, solana.InstructionErrorInvalidAccountData), "size %d", size)
	}

	var decoded EscrowAccount
	assert.Error(t, decoded.Unmarshal(nil))
}

func randomKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub
}
