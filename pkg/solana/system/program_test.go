package system

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana"
)

func TestCreateAccount(t *testing.T) {
	keys := generateKeys(t, 3)

	instruction := CreateAccount(keys[0], keys[1], keys[2], 12345, 67890)

	command := make([]byte, 4)
	lamports := make([]byte, 8)
	binary.LittleEndian.PutUint64(lamports, 12345)
	size := make([]byte, 8)
	binary.LittleEndian.PutUint64(size, 67890)

	assert.Equal(t, command, instruction.Data[0:4])
	assert.Equal(t, lamports, instruction.Data[4:12])
	assert.Equal(t, size, instruction.Data[12:20])
	assert.Equal(t, []byte(keys[2]), instruction.Data[20:52])

	require.Len(t, instruction.Accounts, 2)
	for _, account := range instruction.Accounts {
		assert.True(t, account.IsSigner)
		assert.True(t, account.IsWritable)
	}

	// Round trip through the wire format to make sure nothing is lost.
	var tx solana.Transaction
	require.NoError(t, tx.Unmarshal(solana.NewTransaction(keys[0], instruction).Marshal()))
	decompiled, err := tx.Message.DecompileInstructions()
	require.NoError(t, err)
	require.Len(t, decompiled, 1)

	cmd, err := GetCommand(decompiled[0].Data)
	require.NoError(t, err)
	assert.Equal(t, CommandCreateAccount, cmd)

	args, err := DecodeCreateAccountArgs(decompiled[0].Data)
	require.NoError(t, err)
	assert.EqualValues(t, 12345, args.Lamports)
	assert.EqualValues(t, 67890, args.Size)
	assert.Equal(t, keys[2], args.Owner)
}

func TestDecodeCreateAccountArgs_Invalid(t *testing.T) {
	keys := generateKeys(t, 3)
	instruction := CreateAccount(keys[0], keys[1], keys[2], 1, 2)

	_, err := DecodeCreateAccountArgs(instruction.Data[:len(instruction.Data)-1])
	assert.ErrorIs(t, err, solana.InstructionErrorInvalidInstructionData)

	_, err = DecodeCreateAccountArgs(append(instruction.Data, 0))
	assert.ErrorIs(t, err, solana.InstructionErrorInvalidInstructionData)

	binary.LittleEndian.PutUint32(instruction.Data, uint32(CommandAllocate))
	_, err = DecodeCreateAccountArgs(instruction.Data)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)

	_, err = GetCommand([]byte{1, 2})
	assert.ErrorIs(t, err, solana.InstructionErrorInvalidInstructionData)
}

func TestTransfer(t *testing.T) {
	keys := generateKeys(t, 2)

	instruction := Transfer(keys[0], keys[1], 42)
	assert.EqualValues(t, ProgramKey, instruction.Program)

	require.Len(t, instruction.Accounts, 2)
	assert.True(t, instruction.Accounts[0].IsSigner)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.False(t, instruction.Accounts[1].IsSigner)
	assert.True(t, instruction.Accounts[1].IsWritable)

	cmd, err := GetCommand(instruction.Data)
	require.NoError(t, err)
	assert.Equal(t, CommandTransfer, cmd)

	lamports, err := DecodeTransferArgs(instruction.Data)
	require.NoError(t, err)
	assert.EqualValues(t, 42, lamports)

	_, err = DecodeTransferArgs(instruction.Data[:8])
	assert.ErrorIs(t, err, solana.InstructionErrorInvalidInstructionData)

	_, err = DecodeTransferArgs(CreateAccount(keys[0], keys[1], keys[0], 1, 1).Data[:12])
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
}

func generateKeys(t *testing.T, amount int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, amount)

	for i := 0; i < amount; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}

	return keys
}
