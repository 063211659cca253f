package escrow

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana"
)

func TestMakeInstructionArgs_RoundTrip(t *testing.T) {
	for _, args := range []*MakeInstructionArgs{
		{},
		{Seed: 7, Amount: 1000, Receive: 500, Bump: 254},
		{Seed: math.MaxUint64, Amount: math.MaxUint64, Receive: math.MaxUint64, Bump: math.MaxUint8},
	} {
		payload := args.Marshal()
		require.Len(t, payload, MakeInstructionArgsSize)

		decoded, err := DecodeMakeInstructionArgs(payload)
		require.NoError(t, err)
		assert.Equal(t, args, decoded)
	}
}

func TestMakeInstructionArgs_Layout(t *testing.T) {
	args := &MakeInstructionArgs{
		Seed:    0x0102030405060708,
		Amount:  1000,
		Receive: 500,
		Bump:    0xfe,
	}

	expected := []byte{
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0xe8, 0x03, 0, 0, 0, 0, 0, 0,
		0xf4, 0x01, 0, 0, 0, 0, 0, 0,
		0xfe,
	}
	assert.Equal(t, expected, args.Marshal())
	assert.Equal(t, append([]byte{0}, expected...), encodeInstruction(OpcodeMake, args.Marshal()))
}

func TestDecodeInstruction(t *testing.T) {
	for _, tc := range []struct {
		opcode Opcode
		size   int
	}{
		{OpcodeMake, MakeInstructionArgsSize},
		{OpcodeTake, TakeInstructionArgsSize},
		{OpcodeRefund, RefundInstructionArgsSize},
	} {
		for size := 0; size <= MakeInstructionArgsSize+1; size++ {
			data := make([]byte, 1+size)
			data[0] = byte(tc.opcode)

			opcode, payload, err := DecodeInstruction(data)
			if size == tc.size {
				require.NoError(t, err)
				assert.Equal(t, tc.opcode, opcode)
				assert.Len(t, payload, size)
			} else {
				assert.True(t, errors.Is(err, solana.InstructionErrorInvalidInstructionData), "%s with %d bytes", tc.opcode, size)
			}
		}
	}

	_, _, err := DecodeInstruction(nil)
	assert.True(t, errors.Is(err, solana.InstructionErrorInvalidInstructionData))

	for _, opcode := range []byte{3, 4, 0xff} {
		_, _, err := DecodeInstruction([]byte{opcode})
		assert.True(t, errors.Is(err, solana.InstructionErrorInvalidInstructionData))
	}

	for size := 0; size <= MakeInstructionArgsSize+1; size++ {
		if size == MakeInstructionArgsSize {
			continue
		}
		_, err := DecodeMakeInstructionArgs(make([]byte, size))
		assert.True(t, errors.Is(err, solana.InstructionErrorInvalidInstructionData))
	}
}

func TestOpcode_String(t *testing.T) {
	assert.Equal(t, "Make", OpcodeMake.String())
	assert.Equal(t, "Take", OpcodeTake.String())
	assert.Equal(t, "Refund", OpcodeRefund.String())
	assert.Equal(t, "Opcode(9)", Opcode(9).String())
}
