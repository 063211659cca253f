package escrow

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana"
)

// Opcode is the first byte of escrow instruction data.
type Opcode uint8

const (
	OpcodeMake Opcode = iota
	OpcodeTake
	OpcodeRefund
)

func (o Opcode) String() string {
	switch o {
	case OpcodeMake:
		return "Make"
	case OpcodeTake:
		return "Take"
	case OpcodeRefund:
		return "Refund"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
}

// DecodeInstruction splits instruction data into its opcode and payload. The
// payload size is validated against the opcode.
func DecodeInstruction(data []byte) (Opcode, []byte, error) {
	if len(data) == 0 {
		return 0, nil, errors.Wrap(solana.InstructionErrorInvalidInstructionData, "missing opcode")
	}

	opcode, payload := Opcode(data[0]), data[1:]

	var expected int
	switch opcode {
	case OpcodeMake:
		expected = MakeInstructionArgsSize
	case OpcodeTake:
		expected = TakeInstructionArgsSize
	case OpcodeRefund:
		expected = RefundInstructionArgsSize
	default:
		return 0, nil, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "unknown opcode %d", data[0])
	}

	if len(payload) != expected {
		return 0, nil, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "%s payload must be %d bytes, got %d", opcode, expected, len(payload))
	}
	return opcode, payload, nil
}

func encodeInstruction(opcode Opcode, payload []byte) []byte {
	data := make([]byte, 1+len(payload))
	data[0] = byte(opcode)
	copy(data[1:], payload)
	return data
}
