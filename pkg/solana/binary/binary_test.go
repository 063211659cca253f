package binary

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	key := ed25519.PublicKey(bytes.Repeat([]byte{7}, ed25519.PublicKeySize))
	native := uint64(2039280)

	size := ed25519.PublicKeySize + 2*(OptionSize+ed25519.PublicKeySize) + 8 + 2*(OptionSize+8) + 2
	data := NewWriter(size).
		Key(key).
		OptionalKey(key).
		OptionalKey(nil).
		Uint64(42).
		OptionalUint64(&native).
		OptionalUint64(nil).
		Uint8(9).
		Bool(true).
		Bytes()
	require.Len(t, data, size)

	r := NewReader(data)
	assert.Equal(t, key, r.Key())
	assert.Equal(t, key, r.OptionalKey())
	assert.Nil(t, r.OptionalKey())
	assert.EqualValues(t, 42, r.Uint64())

	v := r.OptionalUint64()
	require.NotNil(t, v)
	assert.Equal(t, native, *v)
	assert.Nil(t, r.OptionalUint64())

	assert.EqualValues(t, 9, r.Uint8())
	assert.True(t, r.Bool())
	assert.Equal(t, size, r.Offset())
}

func TestLittleEndian(t *testing.T) {
	data := NewWriter(9).Uint64(0x0102030405060708).Bool(false).Bytes()
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1, 0}, data)
}

func TestReader_KeyIsCopied(t *testing.T) {
	data := bytes.Repeat([]byte{1}, ed25519.PublicKeySize)
	key := NewReader(data).Key()
	data[0] = 2
	assert.EqualValues(t, 1, key[0])
}
